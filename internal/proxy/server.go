package proxy

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"syscall"
	"time"

	"github.com/hollis-net/sockhop/internal/dialer"
	"github.com/hollis-net/sockhop/internal/socks5"
)

// Server is the SOCKS5 proxy server.
type Server struct {
	cfg    Config
	ctx    context.Context
	dialer dialer.Dialer
	auth   socks5.Auth

	ln   net.Listener
	port int

	done     chan struct{}
	serveErr error
}

// New validates cfg, applies defaults, and fixes the outbound strategy. No
// sockets are opened until Start or Serve.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.DialTimeout == 0 {
		cfg.DialTimeout = DefaultDialTimeout
	}
	if cfg.NegotiationTimeout == 0 {
		cfg.NegotiationTimeout = DefaultNegotiationTimeout
	}

	d, err := dialer.New(dialer.Config{
		DialTimeout:        cfg.DialTimeout,
		NegotiationTimeout: cfg.NegotiationTimeout,
		KeepAlive:          cfg.KeepAlive,
	}, cfg.Upstream)
	if err != nil {
		return nil, err
	}

	return &Server{
		cfg:    cfg,
		ctx:    ctx,
		dialer: d,
		auth:   socks5.Auth{Username: cfg.Username, Password: cfg.Password},
		done:   make(chan struct{}),
	}, nil
}

// Start builds a server with New, binds the configured listen address, and
// accepts in a background goroutine. It returns once the listener is bound;
// the chosen port is available from BoundPort. Closing the server stops
// accepting while in-flight sessions drain; canceling ctx additionally
// tears down in-flight relays.
func Start(ctx context.Context, cfg Config) (*Server, error) {
	s, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}

	ln, err := ListenTCP(s.ctx, "tcp", s.cfg.listenAddr(), s.cfg.KeepAlive)
	if err != nil {
		return nil, err
	}
	s.ln = ln
	s.port = ln.Addr().(*net.TCPAddr).Port

	stop := context.AfterFunc(s.ctx, func() { _ = s.Close() })
	go func() {
		defer close(s.done)
		defer stop()
		s.serveErr = s.Serve(ln)
	}()

	return s, nil
}

// Serve accepts connections on ln until it is closed, handling each on its
// own goroutine. It returns the error from Accept.
func (s *Server) Serve(ln net.Listener) error {
	for {
		c, err := ln.Accept()
		if err != nil {
			return err
		}
		go s.handleConn(c)
	}
}

// Close releases the listener. Safe to call more than once. In-flight
// sessions keep running; cancel the Start context to tear those down too.
func (s *Server) Close() error {
	if s.ln == nil {
		return nil
	}
	if err := s.ln.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}

// Done is closed once a server begun with Start has stopped accepting and
// released its listener.
func (s *Server) Done() <-chan struct{} {
	return s.done
}

// Wait blocks until the accept loop returns. The net.ErrClosed produced by
// an orderly Close is filtered to nil.
func (s *Server) Wait() error {
	<-s.done
	if errors.Is(s.serveErr, net.ErrClosed) {
		return nil
	}
	return s.serveErr
}

// BoundPort returns the port the listener is bound to, which is the
// configured port unless that was zero.
func (s *Server) BoundPort() int {
	return s.port
}

// Addr returns the listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

// UsesAuth reports whether clients must authenticate.
func (s *Server) UsesAuth() bool {
	return s.cfg.UsesAuth()
}

func (s *Server) handleConn(conn net.Conn) {
	defer conn.Close()

	if err := s.session(conn); err != nil && s.cfg.Verbose {
		log.Printf("socks5 %s: %v", conn.RemoteAddr(), err)
	}
}

// session drives one client connection from handshake to relay teardown.
// Errors stay contained here: the accept loop and sibling sessions never
// see them.
func (s *Server) session(conn net.Conn) error {
	if tc, ok := conn.(*net.TCPConn); ok {
		_ = tc.SetKeepAliveConfig(s.cfg.KeepAlive)
	}

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Now().Add(s.cfg.NegotiationTimeout))
	}

	if err := socks5.ServerNegotiate(conn, s.auth); err != nil {
		return fmt.Errorf("negotiate: %w", err)
	}

	req, err := socks5.ReadRequest(conn)
	if err != nil {
		if errors.Is(err, socks5.ErrAddrNotSupported) {
			_ = socks5.WriteReply(conn, socks5.RepAddrNotSupported, nil)
		}
		return fmt.Errorf("request: %w", err)
	}

	if req.Cmd != socks5.CmdConnect {
		_ = socks5.WriteReply(conn, socks5.RepCommandNotSupported, nil)
		return fmt.Errorf("unsupported command 0x%02x", req.Cmd)
	}

	dst, err := s.dialer.DialContext(s.ctx, "tcp", req.Addr())
	if err != nil {
		_ = socks5.WriteReply(conn, replyCode(err), nil)
		return fmt.Errorf("connect %s: %w", req.Addr(), err)
	}
	defer dst.Close()

	if err := socks5.WriteReply(conn, socks5.RepSuccess, dst.LocalAddr()); err != nil {
		return err
	}

	if s.cfg.NegotiationTimeout > 0 {
		_ = conn.SetDeadline(time.Time{})
	}

	if s.cfg.Verbose {
		log.Printf("socks5 %s: connected to %s", conn.RemoteAddr(), req.Addr())
	}

	return CopyBidirectional(s.ctx, conn, dst)
}

// replyCode maps a dial error to the closest RFC 1928 reply code. A reply
// code from the upstream proxy passes through unchanged so the client sees
// the upstream's verdict.
func replyCode(err error) byte {
	var rerr *socks5.ReplyError
	if errors.As(err, &rerr) {
		return rerr.Rep
	}

	switch {
	case errors.Is(err, syscall.ECONNREFUSED):
		return socks5.RepConnectionRefused
	case errors.Is(err, syscall.EHOSTUNREACH):
		return socks5.RepHostUnreachable
	case errors.Is(err, syscall.ENETUNREACH):
		return socks5.RepNetworkUnreachable
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return socks5.RepHostUnreachable
	}
	var nerr net.Error
	if errors.As(err, &nerr) && nerr.Timeout() {
		return socks5.RepHostUnreachable
	}
	return socks5.RepServerFailure
}
