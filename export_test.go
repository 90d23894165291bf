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

package k8sdns

import (
	"context"
	"net/netip"

	"github.com/evolution-gaming/grpc-k8sdns-resolver/internal/clock"
)

// WithLookuper overrides the DNS lookup implementation a Builder's
// resolvers use. It is defined in a test file, so it exists only for this
// package's tests, which use it to stub DNS resolution entirely.
func WithLookuper(l ARecordLookuper) Option {
	return optionFunc(func(o *builderOptions) { o.lookuper = l })
}

// WithClock overrides the clock a Builder's resolvers use. Exported only
// for tests.
func WithClock(c clock.Clock) Option {
	return optionFunc(func(o *builderOptions) { o.clock = c })
}

// LookuperFunc adapts a function to the ARecordLookuper interface, the
// same func-adapter shape used elsewhere in this module's dependencies
// for single-method seams.
type LookuperFunc func(ctx context.Context, fqdn string) ([]netip.Addr, error)

func (f LookuperFunc) LookupA(ctx context.Context, fqdn string) ([]netip.Addr, error) {
	return f(ctx, fqdn)
}
