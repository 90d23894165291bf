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

// Package clocktest exists to allow interoperability between our Clock
// interface and the clockwork interfaces. Compatibility between Go
// interfaces is shallow, since function signatures containing other
// interfaces within an interface are compared by their exact (nominal)
// type. Therefore, for the clock function returning a Timer, we need to
// wrap it into a function returning our own Timer type instead.
package clocktest

import (
	"context"
	"time"

	"github.com/evolution-gaming/grpc-k8sdns-resolver/internal/clock"
	"github.com/jonboulle/clockwork"
)

// FakeClock provides an interface for a clock which can be manually
// advanced through time. This adapts *[clockwork.FakeClock] to our
// clock.Clock interface.
type FakeClock interface {
	clock.Clock
	Advance(d time.Duration)
	BlockUntilContext(ctx context.Context, waiters int) error
}

// NewFakeClock creates a new FakeClock using clockwork.
func NewFakeClock() FakeClock {
	return fakeClock{clockwork.NewFakeClock()}
}

type fakeClock struct {
	*clockwork.FakeClock
}

var _ FakeClock = fakeClock{}

// NewTimer implements clock.Clock by re-boxing the clockwork.Timer
// returned by clockwork.Clock.NewTimer as a clock.Timer. See the package
// comment for why this re-boxing is necessary.
func (f fakeClock) NewTimer(d time.Duration) clock.Timer {
	return f.FakeClock.NewTimer(d)
}
