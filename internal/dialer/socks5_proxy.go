package dialer

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/hollis-net/sockhop/internal/socks5"
)

// SOCKS5ProxyDialer dials outbound TCP connections through an upstream
// SOCKS5 proxy, authenticating with the upstream's credentials and passing
// the destination along unresolved.
type SOCKS5ProxyDialer struct {
	cfg      Config
	upstream Upstream
	direct   Dialer
}

// NewSOCKS5ProxyDialer constructs a dialer that chains through upstream.
func NewSOCKS5ProxyDialer(cfg Config, upstream Upstream) Dialer {
	return &SOCKS5ProxyDialer{
		cfg:      cfg,
		upstream: upstream,
		direct:   NewDirectDialer(cfg),
	}
}

// DialContext connects to the upstream proxy and performs the client-side
// SOCKS5 handshake for address. The handshake is completed synchronously
// before returning, so a non-nil net.Conn is already speaking to the
// destination.
//
// If NegotiationTimeout is set, a deadline is applied during the handshake
// and cleared before returning. On any handshake failure the upstream
// connection is closed; when the upstream answered with a SOCKS5 failure
// reply the returned error wraps a *socks5.ReplyError carrying its code.
func (d *SOCKS5ProxyDialer) DialContext(ctx context.Context, network, address string) (net.Conn, error) {
	if !strings.HasPrefix(network, "tcp") {
		return nil, fmt.Errorf("socks5 proxy dial %s %s: unsupported network", network, address)
	}

	c, err := d.direct.DialContext(ctx, network, d.upstream.Addr())
	if err != nil {
		return nil, fmt.Errorf("socks5 proxy: %w", err)
	}

	if d.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Now().Add(d.cfg.NegotiationTimeout))
	}

	auth := socks5.Auth{Username: d.upstream.Username, Password: d.upstream.Password}
	if err := socks5.ClientDial(c, auth, address); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("socks5 proxy connect %s: %w", address, err)
	}

	if d.cfg.NegotiationTimeout > 0 {
		_ = c.SetDeadline(time.Time{})
	}
	return c, nil
}
