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
	"testing"
	"time"

	"github.com/evolution-gaming/grpc-k8sdns-resolver/internal/clock/clocktest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/resolver"
)

func TestNewBuilder_Defaults(t *testing.T) {
	t.Parallel()

	b, err := NewBuilder(WithLookuper(LookuperFunc(func(context.Context, string) ([]netip.Addr, error) {
		return nil, nil
	})))
	require.NoError(t, err)
	assert.Equal(t, DefaultScheme, b.Scheme())
	assert.Equal(t, DefaultPriority, b.Priority())
}

func TestNewBuilder_Validation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		opts []Option
	}{
		{"empty scheme", []Option{WithScheme("")}},
		{"priority too low", []Option{WithPriority(-1)}},
		{"priority too high", []Option{WithPriority(11)}},
		{"zero refresh interval", []Option{WithRefreshInterval(0)}},
		{"negative refresh interval", []Option{WithRefreshInterval(-time.Second)}},
		{"zero default port", []Option{WithDefaultPort(0)}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := NewBuilder(tc.opts...)
			require.Error(t, err)
			var cfgErr *InvalidConfigurationError
			assert.ErrorAs(t, err, &cfgErr)
		})
	}
}

func TestBuilder_Build_SchemeMismatch(t *testing.T) {
	t.Parallel()

	b, err := NewBuilder(WithLookuper(LookuperFunc(func(context.Context, string) ([]netip.Addr, error) {
		return nil, nil
	})))
	require.NoError(t, err)

	target := resolver.Target{URL: *mustParseURL(t, "other-scheme:///svc.example.org:9000")}
	_, err = b.Build(target, &stubClientConn{}, resolver.BuildOptions{})
	require.Error(t, err)
}

func TestBuilder_Build_Success(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	t.Cleanup(cancel)

	signal := make(chan resolver.State, 1)
	lookuper := LookuperFunc(func(context.Context, string) ([]netip.Addr, error) {
		return []netip.Addr{mustAddr(t, "10.0.0.5")}, nil
	})
	b, err := NewBuilder(WithLookuper(lookuper), WithClock(clocktest.NewFakeClock()))
	require.NoError(t, err)

	cc := &stubClientConn{onUpdate: func(s resolver.State) { signal <- s }}
	target := resolver.Target{URL: *mustParseURL(t, "k8s-dns:///svc.example.org:9000")}
	r, err := b.Build(target, cc, resolver.BuildOptions{})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	select {
	case s := <-signal:
		require.Len(t, s.Addresses, 1)
		assert.Equal(t, "10.0.0.5:9000", s.Addresses[0].Addr)
	case <-ctx.Done():
		t.Fatal("expected an address update")
	}
}
