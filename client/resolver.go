package client

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/rs/dnscache"
)

var (
	ErrNoAddresses = errors.New("host resolved to no usable addresses")
	ErrInvalidPort = errors.New("invalid port")
)

// Resolver maps a host and a service (numeric port or service name) to an
// endpoint. Resolve is called off the loop and must honor ctx.
type Resolver interface {
	Resolve(ctx context.Context, host, service string) (netip.AddrPort, error)
}

// Dialer opens TCP connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DNSResolver resolves hosts through a caching resolver. Cached entries are
// kept fresh by Refresh, which callers may run periodically via StartRefresh.
type DNSResolver struct {
	cache *dnscache.Resolver
	ports *net.Resolver
}

// NewDNSResolver returns a resolver backed by a fresh DNS cache.
func NewDNSResolver() *DNSResolver {
	return &DNSResolver{
		cache: &dnscache.Resolver{},
		ports: net.DefaultResolver,
	}
}

func (r *DNSResolver) Resolve(ctx context.Context, host, service string) (netip.AddrPort, error) {
	port, err := r.port(ctx, service)
	if err != nil {
		return netip.AddrPort{}, err
	}

	if addr, err := netip.ParseAddr(host); err == nil {
		return netip.AddrPortFrom(addr.Unmap(), port), nil
	}

	hosts, err := r.cache.LookupHost(ctx, host)
	if err != nil {
		return netip.AddrPort{}, err
	}

	for _, h := range hosts {
		if addr, err := netip.ParseAddr(h); err == nil {
			return netip.AddrPortFrom(addr.Unmap(), port), nil
		}
	}

	return netip.AddrPort{}, fmt.Errorf("%w: %s", ErrNoAddresses, host)
}

func (r *DNSResolver) port(ctx context.Context, service string) (uint16, error) {
	if n, err := strconv.ParseUint(service, 10, 16); err == nil {
		return uint16(n), nil
	}

	n, err := r.ports.LookupPort(ctx, "tcp", service)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrInvalidPort, err)
	}

	return uint16(n), nil //nolint:gosec
}

// Refresh re-resolves cached hosts and evicts the ones not used since the
// previous refresh.
func (r *DNSResolver) Refresh() {
	r.cache.Refresh(true)
}

// StartRefresh calls Refresh every interval until ctx is done.
func (r *DNSResolver) StartRefresh(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Refresh()
			}
		}
	}()
}
