package dialer

import (
	"context"
	"net"
)

// Dialer mirrors the net.Dialer interface.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// New constructs the outbound Dialer for the given upstream. A nil upstream
// connects directly to destinations; otherwise every connection is chained
// through the upstream SOCKS5 proxy. The strategy is fixed here, once, so
// the per-connection path never branches on configuration.
func New(cfg Config, upstream *Upstream) (Dialer, error) {
	if upstream == nil {
		return NewDirectDialer(cfg), nil
	}
	if err := upstream.Validate(); err != nil {
		return nil, err
	}
	return NewSOCKS5ProxyDialer(cfg, *upstream), nil
}
