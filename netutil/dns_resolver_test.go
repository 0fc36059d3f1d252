/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package netutil

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewCustomDNSResolver(t *testing.T) {
	var dialed []string
	servers := make([]string, 2)
	for i := range servers {
		conn, err := net.ListenPacket("udp", "127.0.0.1:0")
		require.NoError(t, err)
		defer func() { _ = conn.Close() }()
		servers[i] = conn.LocalAddr().String()
	}

	resolver := NewCustomDNSResolver(servers, time.Second)
	require.True(t, resolver.PreferGo)
	for i := 0; i < 4; i++ {
		conn, err := resolver.Dial(context.Background(), "udp", "ignored:53")
		require.NoError(t, err)
		dialed = append(dialed, conn.RemoteAddr().String())
		require.NoError(t, conn.Close())
	}
	require.Equal(t, []string{servers[0], servers[1], servers[0], servers[1]}, dialed)
}
