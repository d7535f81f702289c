package client

import (
	"context"
	"net"
	"net/netip"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDNSResolverLiterals(t *testing.T) {
	t.Parallel()

	r := NewDNSResolver()

	tests := []struct {
		host, service string
		want          netip.AddrPort
	}{
		{"127.0.0.1", "7000", netip.MustParseAddrPort("127.0.0.1:7000")},
		{"::1", "80", netip.MustParseAddrPort("[::1]:80")},
		{"::ffff:10.0.0.1", "443", netip.MustParseAddrPort("10.0.0.1:443")},
	}

	for _, tt := range tests {
		got, err := r.Resolve(context.Background(), tt.host, tt.service)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := r.Resolve(context.Background(), "127.0.0.1", "no-such-service-name")
	require.ErrorIs(t, err, ErrInvalidPort)
}

func TestOnlineOverLoopback(t *testing.T) {
	t.Parallel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}

		_, _ = conn.Write([]byte("hello over tcp\n"))
	}()

	port := ln.Addr().(*net.TCPAddr).Port //nolint:forcetypeassert

	h := newHarness(t, NewDNSResolver(), &net.Dialer{}, func(c *Config) {
		c.Host = "127.0.0.1"
		c.Service = strconv.Itoa(port)
	})

	h.rec.Await(t, wait, "enter Online")
	assert.Equal(t, "hello over tcp", h.nextLine(t))

	h.client.Cancel()
	h.rec.Await(t, wait, "done")
	require.NoError(t, h.result(t))
}
