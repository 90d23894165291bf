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
	"sync"

	"google.golang.org/grpc/resolver"
)

// registry tracks every Builder registered per scheme so the
// highest-priority one can be handed to resolver.Register, which itself
// has no notion of priority: it simply overwrites whatever was
// previously registered for a scheme.
type registry struct {
	mu       sync.Mutex
	builders map[string][]*Builder
}

var globalRegistry = &registry{builders: make(map[string][]*Builder)}

// Register adds b to the set of builders competing for its scheme, then
// registers the highest-priority builder for that scheme (ties broken by
// most-recently-registered) with grpc-go's global resolver registry.
//
// This exists because competing providers for the same scheme are ranked
// by priority, but resolver.Register keys builders solely by scheme with
// last-write-wins semantics. Register recovers the priority-ranking
// behavior on top of that simpler primitive.
func Register(b *Builder) {
	globalRegistry.mu.Lock()
	defer globalRegistry.mu.Unlock()

	globalRegistry.builders[b.scheme] = append(globalRegistry.builders[b.scheme], b)

	best := b
	for _, candidate := range globalRegistry.builders[b.scheme] {
		if candidate.priority >= best.priority {
			best = candidate
		}
	}
	resolver.Register(best)
}
