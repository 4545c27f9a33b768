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

package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGMQ is a Queue backed by the pgmq Postgres extension, accessed through
// its exposed SQL functions rather than a client library (pgmq ships as
// SQL, not a Go driver).
type PGMQ struct {
	pool *pgxpool.Pool
}

// NewPGMQ wraps an existing pool. The pool is expected to already have the
// pgmq extension created (handled by internal/migrations).
func NewPGMQ(pool *pgxpool.Pool) *PGMQ {
	return &PGMQ{pool: pool}
}

var _ Queue = (*PGMQ)(nil)

// CreateQueue calls pgmq.create, which no-ops if the queue already exists.
func (q *PGMQ) CreateQueue(ctx context.Context, queueName string) error {
	_, err := q.pool.Exec(ctx, `SELECT pgmq.create($1)`, queueName)
	if err != nil {
		return fmt.Errorf("pgmq.create %s: %w", queueName, err)
	}
	return nil
}

// SendBatch marshals each payload to JSON and calls pgmq.send_batch,
// preserving ordinal alignment between payloads and the returned ids.
func (q *PGMQ) SendBatch(ctx context.Context, queueName string, payloads []Payload) ([]int64, error) {
	if len(payloads) == 0 {
		return nil, nil
	}

	msgs := make([]string, len(payloads))
	for i, p := range payloads {
		b, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("marshal payload %d: %w", i, err)
		}
		msgs[i] = string(b)
	}

	rows, err := q.pool.Query(ctx,
		`SELECT msg_id FROM pgmq.send_batch($1, $2::jsonb[]) WITH ORDINALITY ORDER BY ordinality`,
		queueName, msgs,
	)
	if err != nil {
		return nil, fmt.Errorf("pgmq.send_batch %s: %w", queueName, err)
	}
	defer rows.Close()

	ids := make([]int64, 0, len(payloads))
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan send_batch result: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(ids) != len(payloads) {
		return nil, fmt.Errorf("pgmq.send_batch %s: expected %d ids, got %d", queueName, len(payloads), len(ids))
	}
	return ids, nil
}

// ReadWithPoll calls pgmq.read_with_poll and decodes each message body
// back into a Payload.
func (q *PGMQ) ReadWithPoll(ctx context.Context, queueName string, visibilityTimeout time.Duration, maxMessages int, pollFor time.Duration) ([]Message, error) {
	rows, err := q.pool.Query(ctx,
		`SELECT msg_id, read_ct, enqueued_at, message
		   FROM pgmq.read_with_poll($1, $2, $3, $4, $5)`,
		queueName,
		int(visibilityTimeout.Seconds()),
		maxMessages,
		int(pollFor.Seconds()),
		100, // poll_interval_ms
	)
	if err != nil {
		return nil, fmt.Errorf("pgmq.read_with_poll %s: %w", queueName, err)
	}
	defer rows.Close()

	var out []Message
	for rows.Next() {
		var (
			msgID     int64
			readCount int
			enqueued  time.Time
			raw       []byte
		)
		if err := rows.Scan(&msgID, &readCount, &enqueued, &raw); err != nil {
			return nil, fmt.Errorf("scan read_with_poll result: %w", err)
		}
		var payload Payload
		if err := json.Unmarshal(raw, &payload); err != nil {
			return nil, fmt.Errorf("unmarshal message %d: %w", msgID, err)
		}
		out = append(out, Message{
			ID:        msgID,
			Payload:   payload,
			ReadCount: readCount,
			EnqueuedAt: enqueued,
		})
	}
	return out, rows.Err()
}

// SetVT calls pgmq.set_vt once per message id; pgmq's batch set_vt variant
// is not universally available across extension versions, so this stays
// one statement per id inside a single round trip via a batch.
func (q *PGMQ) SetVT(ctx context.Context, queueName string, messageIDs []int64, newTimeout time.Duration) error {
	if len(messageIDs) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	offsetSeconds := int(newTimeout.Seconds())
	for _, id := range messageIDs {
		batch.Queue(`SELECT pgmq.set_vt($1, $2, $3)`, queueName, id, offsetSeconds)
	}

	br := q.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range messageIDs {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("pgmq.set_vt %s: %w", queueName, err)
		}
	}
	return nil
}

// Archive calls pgmq.archive with the full id array in one statement.
func (q *PGMQ) Archive(ctx context.Context, queueName string, messageIDs []int64) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := q.pool.Exec(ctx, `SELECT pgmq.archive($1, $2::bigint[])`, queueName, messageIDs)
	if err != nil {
		return fmt.Errorf("pgmq.archive %s: %w", queueName, err)
	}
	return nil
}
