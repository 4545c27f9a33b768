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

package engine

import (
	"context"
	"testing"
	"time"

	"github.com/ashgrove/dagflow/pkg/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue lets Poll's empty-result short-circuit be tested without a
// live Postgres connection: a real claim round trip always needs the pool,
// but an empty poll must return before ever touching it.
type fakeQueue struct {
	messages []queue.Message
	err      error
}

func (f *fakeQueue) CreateQueue(ctx context.Context, queueName string) error { return nil }
func (f *fakeQueue) SendBatch(ctx context.Context, queueName string, payloads []queue.Payload) ([]int64, error) {
	return nil, nil
}
func (f *fakeQueue) ReadWithPoll(ctx context.Context, queueName string, vt time.Duration, max int, pollFor time.Duration) ([]queue.Message, error) {
	return f.messages, f.err
}
func (f *fakeQueue) SetVT(ctx context.Context, queueName string, ids []int64, newTimeout time.Duration) error {
	return nil
}
func (f *fakeQueue) Archive(ctx context.Context, queueName string, ids []int64) error { return nil }

func TestEngine_Poll_EmptyReadReturnsNilWithoutClaiming(t *testing.T) {
	e := New(nil, &fakeQueue{}, nil, nil, nil)

	claimed, err := e.Poll(context.Background(), "worker-1", "linear_three_step", 30*time.Second, 10, time.Second)
	require.NoError(t, err)
	assert.Nil(t, claimed)
}

func TestEngine_Poll_PropagatesReadError(t *testing.T) {
	boom := assert.AnError
	e := New(nil, &fakeQueue{err: boom}, nil, nil, nil)

	_, err := e.Poll(context.Background(), "worker-1", "linear_three_step", 30*time.Second, 10, time.Second)
	require.Error(t, err)
}
