package proxy

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/hollis-net/sockhop/internal/dialer"
)

// ErrInvalidConfig reports a server configuration rejected by Validate.
var ErrInvalidConfig = errors.New("invalid server config")

// Defaults applied by New for zero Config fields.
const (
	DefaultDialTimeout        = 10 * time.Second
	DefaultNegotiationTimeout = 10 * time.Second
)

// Config carries everything needed to run the server.
type Config struct {
	// Host is the listen host. Empty means all interfaces.
	Host string
	// Port is the listen port. Zero picks an unused port; see
	// Server.BoundPort.
	Port int

	// Username and Password turn on username/password authentication when
	// both are set. Leave both empty for an open proxy.
	Username string
	Password string

	// Upstream chains every outbound connection through one SOCKS5 proxy.
	// Nil connects directly.
	Upstream *dialer.Upstream

	// DialTimeout bounds outbound connection attempts. Zero means
	// DefaultDialTimeout.
	DialTimeout time.Duration
	// NegotiationTimeout bounds the handshake on each connection, client
	// and upstream side. Zero means DefaultNegotiationTimeout.
	NegotiationTimeout time.Duration

	// KeepAlive applies to accepted and outbound TCP sockets.
	KeepAlive net.KeepAliveConfig

	// Verbose enables per-session logging.
	Verbose bool
}

// Validate checks the configuration without opening any sockets. It is the
// single gate between configuration and the network: Start refuses to bind
// on any error here.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return fmt.Errorf("%w: port %d out of range", ErrInvalidConfig, c.Port)
	}
	if (c.Username == "") != (c.Password == "") {
		return fmt.Errorf("%w: username and password must be set together", ErrInvalidConfig)
	}
	if len(c.Username) > 255 || len(c.Password) > 255 {
		return fmt.Errorf("%w: credentials longer than 255 bytes", ErrInvalidConfig)
	}
	if c.Upstream != nil {
		if err := c.Upstream.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// UsesAuth reports whether clients will be required to authenticate.
func (c *Config) UsesAuth() bool {
	return c.Username != "" && c.Password != ""
}

func (c *Config) listenAddr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}
