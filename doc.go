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

// Package k8sdns is a gRPC name resolver for headless-service-style
// DNS names in a container-orchestration environment, such as a
// Kubernetes headless Service. Unlike grpc-go's built-in "dns" resolver,
// which leans on net.Resolver (and therefore whatever OS-level resolver
// cache sits in front of it), this resolver issues A-record queries
// directly against the configured nameservers on every poll, so changes
// propagate as soon as the authoritative server's TTL allows.
//
// # Usage
//
// Build and register a provider before dialing:
//
//	builder, err := k8sdns.NewBuilder(
//		k8sdns.WithRefreshInterval(10 * time.Second),
//	)
//	if err != nil {
//		log.Fatal(err)
//	}
//	k8sdns.Register(builder)
//
//	conn, err := grpc.NewClient(
//		"k8s-dns:///my-svc.my-namespace.svc.cluster.local:9000",
//		grpc.WithTransportCredentials(insecure.NewCredentials()),
//	)
//
// Target URIs may also carry the host in the authority component
// (k8s-dns://my-svc...) rather than the path; both forms are accepted and
// produce the same resolved host, port, and error behavior.
//
// # Only A records
//
// Only IPv4 A records are resolved. SRV and AAAA records, and any
// addition of service-config data beyond raw addresses, are out of scope
// for this resolver.
//
// # Polling, not pushing
//
// This resolver is strictly pull-based: it polls on a fixed interval and
// never pushes. grpc-go calls ResolveNow when it suspects the channel's
// current address set is stale or unusable; this resolver honors that by
// re-arming its polling loop, but retry pacing after a DNS failure is
// otherwise left entirely to the channel, consistent with grpc's name
// resolution contract.
package k8sdns
