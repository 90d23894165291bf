// Copyright 2024 Evolution Gaming
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package syncctx provides a single-goroutine serializer, the Go-native
// stand-in for a Java-style SynchronizationContext: a serialized executor
// that a resolver can use to guarantee its own state is only ever touched
// from one goroutine, without a mutex.
package syncctx

import (
	"sync"
	"time"

	"github.com/evolution-gaming/grpc-k8sdns-resolver/internal/clock"
)

// Serializer runs submitted functions one at a time, in submission order,
// on a single background goroutine.
type Serializer struct {
	clock   clock.Clock
	tasks   chan func()
	done    chan struct{}
	closeMu sync.Once
}

// New creates a Serializer and starts its background goroutine. The
// goroutine runs until Close is called.
func New(clk clock.Clock) *Serializer {
	ser := &Serializer{
		clock: clk,
		tasks: make(chan func()),
		done:  make(chan struct{}),
	}
	go ser.run()
	return ser
}

func (s *Serializer) run() {
	for {
		select {
		case task := <-s.tasks:
			task()
		case <-s.done:
			return
		}
	}
}

// Schedule submits f to run on the serializer's goroutine. If the
// serializer is already closed, f is silently dropped: callers that hop
// back into the serializer from an asynchronous callback (e.g. a DNS
// lookup completing after Close) must tolerate this.
func (s *Serializer) Schedule(f func()) {
	select {
	case s.tasks <- f:
	case <-s.done:
	}
}

// Close stops the serializer's goroutine. Tasks already queued may or may
// not run; tasks submitted after Close returns are always dropped.
func (s *Serializer) Close() {
	s.closeMu.Do(func() {
		close(s.done)
	})
}

// ScheduledHandle is a handle to a recurring task scheduled with
// ScheduleWithFixedDelay. Cancel stops future executions; it does not
// interrupt an execution already in progress.
type ScheduledHandle struct {
	cancel func()
}

// Cancel stops the recurring task. Idempotent.
func (h *ScheduledHandle) Cancel() {
	h.cancel()
}

// ScheduleWithFixedDelay arranges for task to run on the serializer,
// first after initialDelay, then repeatedly with delay elapsing between
// the end of one run and the start of the next (fixed-delay, not
// fixed-rate: a slow run pushes later runs back, it never causes runs to
// be skipped or to pile up).
func (s *Serializer) ScheduleWithFixedDelay(task func(), initialDelay, delay time.Duration) *ScheduledHandle {
	cancelled := make(chan struct{})
	var once sync.Once
	handle := &ScheduledHandle{
		cancel: func() { once.Do(func() { close(cancelled) }) },
	}

	go func() {
		timer := s.clock.NewTimer(initialDelay)
		defer func() {
			if !timer.Stop() {
				select {
				case <-timer.Chan():
				default:
				}
			}
		}()

		for {
			select {
			case <-cancelled:
				return
			case <-timer.Chan():
			}

			runDone := make(chan struct{})
			s.Schedule(func() {
				select {
				case <-cancelled:
				default:
					task()
				}
				close(runDone)
			})
			select {
			case <-runDone:
			case <-cancelled:
				return
			}

			timer.Reset(delay)
		}
	}()

	return handle
}
