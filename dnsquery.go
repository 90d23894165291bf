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

	"github.com/miekg/dns"
)

// ARecordLookuper performs a single A-record lookup for a fully-qualified
// domain name. It is the seam the resolver core polls through; production
// code gets one from newDNSClient, tests substitute a stub.
type ARecordLookuper interface {
	// LookupA resolves fqdn to its A records. An empty, non-error result
	// means the name currently has no A records; the resolver core treats
	// that the same as an error.
	LookupA(ctx context.Context, fqdn string) ([]netip.Addr, error)
}

// dnsClient issues A-record queries directly against the nameservers
// configured for the host, using github.com/miekg/dns rather than
// net.Resolver. This is what lets it bypass any resolver cache sitting in
// front of the standard library's cgo/nsswitch-backed lookups: every call
// performs a fresh wire query.
type dnsClient struct {
	client      *dns.Client
	nameservers []string
}

// newDNSClient builds a dnsClient from the nameservers configured in
// resolv.conf-style configuration. It mirrors the way the original
// resolver configured its DNS library with caching disabled: there is no
// cache here to disable in the first place.
func newDNSClient(nameservers []string) *dnsClient {
	return &dnsClient{
		client:      &dns.Client{},
		nameservers: nameservers,
	}
}

func (c *dnsClient) LookupA(ctx context.Context, fqdn string) ([]netip.Addr, error) {
	if len(c.nameservers) == 0 {
		return nil, fmt.Errorf("no nameservers configured")
	}

	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(fqdn), dns.TypeA)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range c.nameservers {
		resp, _, err := c.client.ExchangeContext(ctx, msg, server)
		if err != nil {
			lastErr = err
			continue
		}
		if resp.Rcode != dns.RcodeSuccess {
			lastErr = fmt.Errorf("nameserver %s returned %s for %s", server, dns.RcodeToString[resp.Rcode], fqdn)
			continue
		}
		return recordsToAddrs(resp.Answer), nil
	}
	return nil, lastErr
}

// systemNameservers reads the nameserver list out of resolv.conf-style
// configuration, defaulting to the standard /etc/resolv.conf path. It is
// read fresh at dnsClient construction time, the same point at which the
// original resolver built its cache-free DNS library session.
func systemNameservers() ([]string, error) {
	cfg, err := dns.ClientConfigFromFile("/etc/resolv.conf")
	if err != nil {
		return nil, fmt.Errorf("reading resolver configuration: %w", err)
	}
	servers := make([]string, 0, len(cfg.Servers))
	for _, server := range cfg.Servers {
		servers = append(servers, net.JoinHostPort(server, cfg.Port))
	}
	return servers, nil
}

// LookupA performs a single, uncached A-record lookup against the host's
// configured nameservers. It exists for callers that want the resolver's
// cache-bypassing DNS behavior without registering a full resolver.Builder,
// such as the k8sdns-lookup command.
func LookupA(ctx context.Context, host string) ([]netip.Addr, error) {
	servers, err := systemNameservers()
	if err != nil {
		return nil, err
	}
	return newDNSClient(servers).LookupA(ctx, host)
}

func recordsToAddrs(answer []dns.RR) []netip.Addr {
	addrs := make([]netip.Addr, 0, len(answer))
	for _, rr := range answer {
		aRecord, ok := rr.(*dns.A)
		if !ok {
			continue
		}
		addr, ok := netip.AddrFromSlice(aRecord.A.To4())
		if !ok {
			continue
		}
		addrs = append(addrs, addr)
	}
	return addrs
}
