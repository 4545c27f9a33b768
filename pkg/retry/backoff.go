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

// Package retry computes the visibility-timeout delay fail_task sets on a
// redelivered message: base * 2^(attempts-1), capped, with no jitter. The
// schedule is deterministic by default so tests can assert exact delays;
// randomization is opt-in via Policy.RandomizationFactor.
package retry

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Policy holds the per-step-or-workflow backoff configuration.
type Policy struct {
	BaseSeconds int
	CapSeconds  int

	// RandomizationFactor is 0 by default (deterministic). Set it to
	// enable jitter, per spec §4.7's optional knob.
	RandomizationFactor float64
}

// Delay returns the visibility-timeout offset to apply before the
// attemptsCount-th redelivery: base*2^(attemptsCount-1), capped at
// CapSeconds. attemptsCount must be >= 1.
func (p Policy) Delay(attemptsCount int) time.Duration {
	if attemptsCount < 1 {
		attemptsCount = 1
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Duration(p.BaseSeconds) * time.Second
	b.Multiplier = 2
	b.RandomizationFactor = p.RandomizationFactor
	b.MaxInterval = time.Duration(p.CapSeconds) * time.Second
	b.MaxElapsedTime = 0 // attempts are bounded by max_attempts, not elapsed time
	b.Reset()

	var delay time.Duration
	for i := 0; i < attemptsCount; i++ {
		delay = b.NextBackOff()
	}
	return delay
}
