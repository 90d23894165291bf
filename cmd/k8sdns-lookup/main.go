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

// Command k8sdns-lookup performs a single one-shot A-record lookup
// through the resolver's DNS client and prints the resulting addresses,
// useful for checking that a headless service name resolves the way the
// resolver itself would see it before wiring up a full gRPC client.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	k8sdns "github.com/evolution-gaming/grpc-k8sdns-resolver"
)

func main() {
	timeout := flag.Duration("timeout", 5*time.Second, "lookup timeout")
	flag.Parse()

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: k8sdns-lookup [-timeout=5s] <hostname>")
		os.Exit(2)
	}

	if err := run(flag.Arg(0), *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "k8sdns-lookup:", err)
		os.Exit(1)
	}
}

func run(host string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	addrs, err := k8sdns.LookupA(ctx, host)
	if err != nil {
		return err
	}
	if len(addrs) == 0 {
		return fmt.Errorf("no A records found for %s", host)
	}
	for _, addr := range addrs {
		fmt.Println(addr)
	}
	return nil
}
