// Copyright 2025 Tom Barlow
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package queue wraps a pgmq-compatible Postgres extension with the five
// operations the orchestration engine needs: create_queue, send_batch,
// read_with_poll, set_vt, and archive. It is the only transport for "work
// is available" — there is no side-channel notification.
package queue

import (
	"context"
	"time"
)

// Payload is the normative message body for a step-task dispatch.
type Payload struct {
	WorkflowSlug string `json:"workflow_slug"`
	RunID        string `json:"run_id"`
	StepSlug     string `json:"step_slug"`
	TaskIndex    int    `json:"task_index"`
}

// Message is one delivery from a poll, still invisible to other readers
// until its visibility timeout elapses.
type Message struct {
	// ID is the queue's message identifier (matches step_task.message_id).
	ID int64

	// Payload is the decoded message body.
	Payload Payload

	// ReadCount is how many times this message has been read, pgmq's own
	// redelivery counter (independent of step_task.attempts_count, which
	// the engine maintains separately).
	ReadCount int

	// EnqueuedAt is when the message was first sent.
	EnqueuedAt time.Time
}

// Queue is the set of operations the orchestrator consumes from a
// pgmq-compatible extension. Implementations must give every returned
// message id 1:1 ordinal alignment with its input payload in SendBatch.
type Queue interface {
	// CreateQueue idempotently establishes the per-workflow queue.
	CreateQueue(ctx context.Context, queueName string) error

	// SendBatch enqueues payloads and returns their message ids in the
	// same order as the input slice.
	SendBatch(ctx context.Context, queueName string, payloads []Payload) ([]int64, error)

	// ReadWithPoll long-polls for up to maxMessages, blocking up to
	// pollFor. Each returned message is invisible to other readers for
	// visibilityTimeout.
	ReadWithPoll(ctx context.Context, queueName string, visibilityTimeout time.Duration, maxMessages int, pollFor time.Duration) ([]Message, error)

	// SetVT delays redelivery of the given messages by setting a new
	// visibility timeout, used by the retry protocol.
	SetVT(ctx context.Context, queueName string, messageIDs []int64, newTimeout time.Duration) error

	// Archive removes the given messages from the live queue while
	// preserving their record for inspection.
	Archive(ctx context.Context, queueName string, messageIDs []int64) error
}
