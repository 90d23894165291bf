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
	"testing"
	"time"

	"github.com/evolution-gaming/grpc-k8sdns-resolver/internal/dnstest"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/resolver"
)

// integrationLookuper adapts a dnstest.Server into an ARecordLookuper by
// pointing a real dnsClient at its ephemeral address, exercising target
// parsing, wire queries, and the resolver core together instead of
// stubbing the wire.
func integrationLookuper(t *testing.T, srv *dnstest.Server) ARecordLookuper {
	t.Helper()
	return newDNSClient([]string{srv.Addr()})
}

func TestIntegration_InitialResolutionAndChange(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	srv := dnstest.NewServer(t)
	srv.SetAddresses("svc.example.org.", "10.1.0.1")

	b, err := NewBuilder(
		WithScheme("k8s-dns-it"),
		WithRefreshInterval(50*time.Millisecond),
		WithLookuper(integrationLookuper(t, srv)),
	)
	require.NoError(t, err)

	signal := make(chan resolver.State, 8)
	cc := &stubClientConn{onUpdate: func(s resolver.State) { signal <- s }}
	target := resolver.Target{URL: *mustParseURL(t, "k8s-dns-it:///svc.example.org:9000")}
	r, err := b.Build(target, cc, resolver.BuildOptions{})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	waitFor := func(n int) resolver.State {
		t.Helper()
		select {
		case s := <-signal:
			return s
		case <-ctx.Done():
			t.Fatalf("timed out waiting for update #%d", n)
			return resolver.State{}
		}
	}

	first := waitFor(1)
	require.Len(t, first.Addresses, 1)
	require.Equal(t, "10.1.0.1:9000", first.Addresses[0].Addr)

	srv.SetAddresses("svc.example.org.", "10.1.0.1", "10.1.0.2")

	second := waitFor(2)
	require.Len(t, second.Addresses, 2)
}

// TestIntegration_OutageReportsFailure exercises the failure half of the
// outage-handling contract end to end, against a real (if fake)
// authoritative server; the recovery-pacing half, which needs to swap in
// a working server mid-flight, is covered by
// TestResolver_TransientFailureThenRecovery against a stubbed lookuper.
func TestIntegration_OutageReportsFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	srv := dnstest.NewServer(t)
	srv.SetAddresses("svc.example.org.", "10.2.0.1")

	b, err := NewBuilder(
		WithScheme("k8s-dns-it-2"),
		WithRefreshInterval(50*time.Millisecond),
		WithLookuper(integrationLookuper(t, srv)),
	)
	require.NoError(t, err)

	stateCh := make(chan resolver.State, 8)
	errCh := make(chan error, 8)
	cc := &stubClientConn{
		onUpdate: func(s resolver.State) { stateCh <- s },
		onError:  func(err error) { errCh <- err },
	}
	target := resolver.Target{URL: *mustParseURL(t, "k8s-dns-it-2:///svc.example.org:9000")}
	r, err := b.Build(target, cc, resolver.BuildOptions{})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	select {
	case <-stateCh:
	case <-ctx.Done():
		t.Fatal("expected initial resolution")
	}

	srv.Stop()

	select {
	case err := <-errCh:
		require.ErrorContains(t, err, "Unable to resolve host svc.example.org")
	case <-ctx.Done():
		t.Fatal("expected a failure report after the DNS server stopped")
	}
}

func TestIntegration_EmptyResolutionReportsFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)

	srv := dnstest.NewServer(t)
	// No addresses set: the server answers NOERROR with zero A records.

	b, err := NewBuilder(
		WithScheme("k8s-dns-it-3"),
		WithRefreshInterval(50*time.Millisecond),
		WithLookuper(integrationLookuper(t, srv)),
	)
	require.NoError(t, err)

	errCh := make(chan error, 1)
	cc := &stubClientConn{onError: func(err error) { errCh <- err }}
	target := resolver.Target{URL: *mustParseURL(t, "k8s-dns-it-3:///svc.example.org:9000")}
	r, err := b.Build(target, cc, resolver.BuildOptions{})
	require.NoError(t, err)
	t.Cleanup(r.Close)

	select {
	case err := <-errCh:
		require.ErrorContains(t, err, "no A records")
	case <-ctx.Done():
		t.Fatal("expected an empty-resolution failure")
	}
}
