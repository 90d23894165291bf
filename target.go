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
	"fmt"
	"net/url"
	"strconv"

	"github.com/miekg/dns"
)

// ParsedTarget is the decoded form of a resolver target URI.
type ParsedTarget struct {
	// Authority is the service authority presented to the RPC channel,
	// used for things like the TLS server name.
	Authority string
	// Host is the fully-qualified DNS name to resolve (trailing dot).
	Host string
	// HostStr is the host as it appeared in the target URI, used in
	// error messages.
	HostStr string
	// Port is the port to pair with every resolved address.
	Port uint16
}

// InvalidTargetError is returned by parseTarget when the target URI is
// malformed. It carries the original URI text and the underlying cause.
type InvalidTargetError struct {
	Target string
	Err    error
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid DNS target URI %q: %v", e.Target, e.Err)
}

func (e *InvalidTargetError) Unwrap() error {
	return e.Err
}

// parseTarget decodes u into a ParsedTarget, honoring both
// "scheme://host[:port]" and "scheme:///host[:port]" forms. The latter
// carries the host in the path component (with a leading slash) rather
// than the authority component, which is how clients typically spell an
// authority-less target.
func parseTarget(u *url.URL, defaultPort uint16) (ParsedTarget, error) {
	nameURL := u
	if u.Host == "" {
		if u.Path == "" {
			return ParsedTarget{}, &InvalidTargetError{Target: u.String(), Err: fmt.Errorf("missing path component")}
		}
		if u.Path[0] != '/' {
			return ParsedTarget{}, &InvalidTargetError{Target: u.String(), Err: fmt.Errorf("path component %q must start with '/'", u.Path)}
		}
		reparsed, err := url.Parse("//" + u.Path[1:])
		if err != nil {
			return ParsedTarget{}, &InvalidTargetError{Target: u.String(), Err: err}
		}
		nameURL = reparsed
	}

	authority := nameURL.Host
	if authority == "" {
		return ParsedTarget{}, &InvalidTargetError{Target: u.String(), Err: fmt.Errorf("missing host")}
	}
	hostStr := nameURL.Hostname()
	if hostStr == "" {
		return ParsedTarget{}, &InvalidTargetError{Target: u.String(), Err: fmt.Errorf("missing host")}
	}
	if _, ok := dns.IsDomainName(hostStr); !ok {
		return ParsedTarget{}, &InvalidTargetError{Target: u.String(), Err: fmt.Errorf("invalid host %q", hostStr)}
	}

	port := defaultPort
	if portStr := nameURL.Port(); portStr != "" {
		parsed, err := strconv.ParseUint(portStr, 10, 16)
		if err != nil {
			return ParsedTarget{}, &InvalidTargetError{Target: u.String(), Err: fmt.Errorf("invalid port %q: %w", portStr, err)}
		}
		port = uint16(parsed)
	}
	if port == 0 {
		return ParsedTarget{}, &InvalidTargetError{Target: u.String(), Err: fmt.Errorf("port must be in (0, 65535]")}
	}

	return ParsedTarget{
		Authority: authority,
		Host:      dns.Fqdn(hostStr),
		HostStr:   hostStr,
		Port:      port,
	}, nil
}
