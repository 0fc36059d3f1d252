/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package netutil contains network helpers for the crawler transport.
package netutil

import (
	"context"
	"net"
	"time"

	"go.uber.org/atomic"
)

// NewCustomDNSResolver creates a resolver that sends DNS queries to the given servers (host:port)
// in round-robin manner instead of the system ones.
// Crawled hosts are often resolved via a dedicated caching DNS server to keep the system resolver unloaded.
func NewCustomDNSResolver(addrs []string, timeout time.Duration) *net.Resolver {
	var idx atomic.Uint32
	return &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, address string) (net.Conn, error) {
			d := net.Dialer{Timeout: timeout}
			addr := addrs[int(idx.Inc()-1)%len(addrs)]
			return d.DialContext(ctx, "udp", addr)
		},
	}
}
