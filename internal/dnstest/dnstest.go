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

// Package dnstest is an integration-test harness: a minimal authoritative
// DNS server, backed by github.com/miekg/dns, whose A-record answers a
// test can change at any time. It stands in for a CoreDNS-backed
// integration environment, scaled down to an in-process fake.
package dnstest

import (
	"net"
	"sync"
	"testing"
	"time"

	"github.com/miekg/dns"
)

// Server is a fake authoritative DNS server serving A records out of an
// in-memory, mutable table.
type Server struct {
	mu        sync.Mutex
	addresses map[string][]string

	pc     net.PacketConn
	dnsSrv *dns.Server
}

// NewServer starts a fake DNS server listening on a random UDP port. It
// is shut down automatically when the test completes.
func NewServer(t *testing.T) *Server {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("dnstest: listen: %v", err)
	}

	srv := &Server{
		addresses: make(map[string][]string),
		pc:        pc,
	}
	srv.dnsSrv = &dns.Server{PacketConn: pc, Handler: dns.HandlerFunc(srv.handle)}

	started := make(chan struct{})
	srv.dnsSrv.NotifyStartedFunc = func() { close(started) }
	go func() {
		_ = srv.dnsSrv.ActivateAndServe()
	}()
	<-started

	t.Cleanup(func() {
		_ = srv.dnsSrv.Shutdown()
	})

	return srv
}

// Addr returns the "host:port" the server is listening on.
func (s *Server) Addr() string {
	return s.pc.LocalAddr().String()
}

// SetAddresses replaces the A records served for fqdn. Passing no
// addresses makes the server answer with an empty (but successful)
// record set, exercising the empty-resolution case.
func (s *Server) SetAddresses(fqdn string, addrs ...string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addresses[dns.Fqdn(fqdn)] = append([]string(nil), addrs...)
}

// Stop closes the underlying listener immediately, simulating a DNS
// server outage for the transient-failure scenario.
func (s *Server) Stop() {
	_ = s.dnsSrv.Shutdown()
}

func (s *Server) handle(w dns.ResponseWriter, req *dns.Msg) {
	resp := new(dns.Msg)
	resp.SetReply(req)
	resp.Authoritative = true

	if len(req.Question) == 1 && req.Question[0].Qtype == dns.TypeA {
		s.mu.Lock()
		addrs := s.addresses[req.Question[0].Name]
		s.mu.Unlock()
		for _, addr := range addrs {
			rr := &dns.A{
				Hdr: dns.RR_Header{
					Name:   req.Question[0].Name,
					Rrtype: dns.TypeA,
					Class:  dns.ClassINET,
					Ttl:    5,
				},
				A: net.ParseIP(addr),
			}
			resp.Answer = append(resp.Answer, rr)
		}
	}

	_ = w.WriteMsg(resp)
}

// TTL is the fixed record TTL this fake server advertises, matching the
// Kubernetes CoreDNS default the resolver's default refresh interval is
// calibrated against.
const TTL = 5 * time.Second
