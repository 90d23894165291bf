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
	"fmt"
	"net"
	"net/netip"
	"sort"
	"strconv"
	"time"

	"github.com/evolution-gaming/grpc-k8sdns-resolver/internal/clock"
	"github.com/evolution-gaming/grpc-k8sdns-resolver/internal/syncctx"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/resolver"
	"google.golang.org/grpc/status"
)

// successResult is the last successful resolution snapshot: a sorted,
// deduplicated address list and the instant it was accepted, used to pace
// the delay computation in ResolveNow after a failure.
type successResult struct {
	addresses   []netip.Addr
	receiveTime time.Time
}

// dnsResolver is the resolver core: a per-target state machine that polls
// DNS, deduplicates results, suppresses unchanged notifications, and
// hands control back to the host on failure.
//
// The mutable fields (task, lastSuccess, refreshing, closed) are only ever
// read or written from within a task scheduled on ser; the others are set
// once at construction and only read afterwards. That discipline is what lets the resolver avoid a
// mutex despite having a background polling goroutine and an
// asynchronous DNS completion callback.
type dnsResolver struct {
	target          ParsedTarget
	cc              resolver.ClientConn
	lookuper        ARecordLookuper
	refreshInterval time.Duration
	clock           clock.Clock
	ser             *syncctx.Serializer

	ctx       context.Context
	cancelCtx context.CancelFunc

	task        *syncctx.ScheduledHandle // non-nil while Polling, nil while Quiescent
	lastSuccess *successResult
	refreshing  bool
	closed      bool
}

// newDNSResolver constructs a resolver bound to target and starts it
// immediately: an initial refresh with zero delay, followed by recurring
// refreshes every refreshInterval. Resolver construction and start happen
// together here since grpc-go's resolver.Builder.Build contract hands over
// the ClientConn up front rather than via a later call.
func newDNSResolver(
	target ParsedTarget,
	cc resolver.ClientConn,
	lookuper ARecordLookuper,
	refreshInterval time.Duration,
	clk clock.Clock,
) *dnsResolver {
	ctx, cancel := context.WithCancel(context.Background())
	r := &dnsResolver{
		target:          target,
		cc:              cc,
		lookuper:        lookuper,
		refreshInterval: refreshInterval,
		clock:           clk,
		ser:             syncctx.New(clk),
		ctx:             ctx,
		cancelCtx:       cancel,
	}
	r.task = r.ser.ScheduleWithFixedDelay(r.tick, 0, r.refreshInterval)
	return r
}

// ResolveNow implements resolver.Resolver: a no-op if a recurring task is
// already scheduled (Polling), otherwise it restarts the recurring task
// with a delay computed so the next tick lands no earlier than one
// refresh interval after the last success.
func (r *dnsResolver) ResolveNow(resolver.ResolveNowOptions) {
	r.ser.Schedule(func() {
		if r.closed || r.task != nil {
			return
		}
		var initialDelay time.Duration
		if r.lastSuccess != nil {
			target := r.lastSuccess.receiveTime.Add(r.refreshInterval)
			if d := target.Sub(r.clock.Now()); d > 0 {
				initialDelay = d
			}
		}
		r.task = r.ser.ScheduleWithFixedDelay(r.tick, initialDelay, r.refreshInterval)
	})
}

// Close implements resolver.Resolver. It cancels the scheduled task, if
// any, and is idempotent. It blocks until that cancellation has actually
// run on the serializer before tearing the serializer down, mirroring the
// teacher's pollingResolverTask.Close (cancel, then wait for the
// goroutine to actually stop) rather than firing the cancellation and
// returning immediately.
func (r *dnsResolver) Close() {
	done := make(chan struct{})
	r.ser.Schedule(func() {
		defer close(done)
		if r.closed {
			return
		}
		r.closed = true
		if r.task != nil {
			r.task.Cancel()
			r.task = nil
		}
		r.cancelCtx()
	})
	// A repeated Close finds the serializer already closed, so its task is
	// dropped; r.ctx was cancelled by the first Close and ends the wait.
	select {
	case <-done:
	case <-r.ctx.Done():
	}
	r.ser.Close()
}

// tick is the recurring task. It runs on the serializer, so it must
// return quickly: it only flips the single-flight gate and hands the
// actual DNS lookup to its own goroutine, which hops back into the
// serializer once the lookup completes.
func (r *dnsResolver) tick() {
	if r.closed || r.refreshing {
		return
	}
	r.refreshing = true

	ctx := r.ctx
	go func() {
		addrs, err := r.lookuper.LookupA(ctx, r.target.Host)
		r.ser.Schedule(func() {
			r.refreshing = false
			if r.closed {
				return
			}
			switch {
			case err != nil:
				r.handleFailure(err)
			case len(addrs) == 0:
				r.handleFailure(fmt.Errorf("no A records found for %s", r.target.HostStr))
			default:
				r.handleSuccess(addrs)
			}
		})
	}()
}

// handleFailure cancels the scheduled task (transition to Quiescent) and
// notifies the host. lastSuccess is left
// untouched, since ResolveNow's delay computation needs it to keep pacing
// "one poll per interval" even across a failure-and-recovery.
func (r *dnsResolver) handleFailure(err error) {
	if r.task != nil {
		r.task.Cancel()
		r.task = nil
	}
	wrapped := status.Errorf(codes.Unavailable, "Unable to resolve host %s: %v", r.target.HostStr, err)
	r.cc.ReportError(wrapped)
}

// handleSuccess notifies the host only if the sorted, deduplicated
// address set actually changed since the last success.
func (r *dnsResolver) handleSuccess(addrs []netip.Addr) {
	sorted := sortDedupAddrs(addrs)
	if r.lastSuccess == nil || !addrsEqual(r.lastSuccess.addresses, sorted) {
		addresses := make([]resolver.Address, len(sorted))
		for i, addr := range sorted {
			addresses[i] = resolver.Address{Addr: net.JoinHostPort(addr.String(), strconv.Itoa(int(r.target.Port)))}
		}
		_ = r.cc.UpdateState(resolver.State{Addresses: addresses})
	}
	r.lastSuccess = &successResult{addresses: sorted, receiveTime: r.clock.Now()}
}

// sortDedupAddrs removes duplicates and sorts addrs ascending by their
// textual representation. This canonical form is the basis for change
// detection and, incidentally, gives the resulting address list a stable,
// deterministic order some load-balancer policies rely on for
// tie-breaking.
func sortDedupAddrs(addrs []netip.Addr) []netip.Addr {
	seen := make(map[string]netip.Addr, len(addrs))
	for _, addr := range addrs {
		seen[addr.String()] = addr
	}
	out := make([]netip.Addr, 0, len(seen))
	for _, addr := range seen {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out
}

func addrsEqual(a, b []netip.Addr) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
