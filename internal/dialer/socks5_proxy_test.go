package dialer

import (
	"context"
	"errors"
	"io"
	"log"
	"net"
	"testing"
	"time"

	gosocks5 "github.com/armon/go-socks5"

	"github.com/hollis-net/sockhop/internal/socks5"
	"github.com/hollis-net/sockhop/internal/testutil"
)

func upstreamFor(ln net.Listener, user, pass string) Upstream {
	return Upstream{
		Host:     "127.0.0.1",
		Port:     ln.Addr().(*net.TCPAddr).Port,
		Username: user,
		Password: pass,
	}
}

func TestSOCKS5ProxyDialerDialSuccess(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	echoLn := testutil.StartEchoTCPServer(t, ctx)

	upLn := testutil.StartUpstreamSOCKS5(t, &gosocks5.Config{
		AuthMethods: []gosocks5.Authenticator{gosocks5.UserPassAuthenticator{
			Credentials: gosocks5.StaticCredentials{"user": "pass"},
		}},
	})

	d := NewSOCKS5ProxyDialer(
		Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 2 * time.Second},
		upstreamFor(upLn, "user", "pass"),
	)

	conn, err := d.DialContext(ctx, "tcp", echoLn.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()

	testutil.AssertEcho(t, conn, conn, []byte("hello"))
}

func TestSOCKS5ProxyDialerBadCredentials(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	upLn := testutil.StartUpstreamSOCKS5(t, &gosocks5.Config{
		AuthMethods: []gosocks5.Authenticator{gosocks5.UserPassAuthenticator{
			Credentials: gosocks5.StaticCredentials{"user": "right"},
		}},
	})

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upstreamFor(upLn, "user", "wrong"))

	_, err := d.DialContext(ctx, "tcp", "127.0.0.1:1")
	if !errors.Is(err, socks5.ErrAuthRejected) {
		t.Fatalf("err = %v, want ErrAuthRejected", err)
	}
}

func TestSOCKS5ProxyDialerUpstreamDenies(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// An upstream that cannot reach anything; go-socks5 turns "refused"
	// errors into a connection-refused reply.
	upLn := testutil.StartUpstreamSOCKS5(t, &gosocks5.Config{
		Logger: log.New(io.Discard, "", 0),
		Dial: func(ctx context.Context, network, addr string) (net.Conn, error) {
			return nil, errors.New("connection refused")
		},
	})

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upstreamFor(upLn, "user", "pass"))

	_, err := d.DialContext(ctx, "tcp", "127.0.0.1:1")
	var rerr *socks5.ReplyError
	if !errors.As(err, &rerr) {
		t.Fatalf("err = %v, want *socks5.ReplyError", err)
	}
	if rerr.Rep != socks5.RepConnectionRefused {
		t.Fatalf("reply code = 0x%02x, want 0x%02x", rerr.Rep, socks5.RepConnectionRefused)
	}
}

func TestSOCKS5ProxyDialerClosesConnOnRejection(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	readErr := make(chan error, 1)
	upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		var hdr [2]byte
		if _, err := io.ReadFull(c, hdr[:]); err != nil {
			readErr <- err
			return
		}
		methods := make([]byte, int(hdr[1]))
		if _, err := io.ReadFull(c, methods); err != nil {
			readErr <- err
			return
		}
		if _, err := c.Write([]byte{socks5.Version, socks5.MethodNoAcceptable}); err != nil {
			readErr <- err
			return
		}
		_, err := c.Read(make([]byte, 1))
		readErr <- err
	})

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, upstreamFor(upLn, "user", "pass"))

	_, err := d.DialContext(ctx, "tcp", "127.0.0.1:1")
	if !errors.Is(err, socks5.ErrNoAcceptableMethod) {
		t.Fatalf("err = %v, want ErrNoAcceptableMethod", err)
	}

	waitUp()
	if err := <-readErr; !errors.Is(err, io.EOF) {
		t.Fatalf("upstream read = %v, want EOF from a closed dialer conn", err)
	}
}

func TestSOCKS5ProxyDialerNegotiationTimeout(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	// An upstream that accepts and then never answers the greeting.
	upLn, waitUp := testutil.StartSingleAcceptServer(t, ctx, func(c net.Conn) {
		_, _ = io.Copy(io.Discard, c)
	})

	d := NewSOCKS5ProxyDialer(
		Config{DialTimeout: 2 * time.Second, NegotiationTimeout: 50 * time.Millisecond},
		upstreamFor(upLn, "user", "pass"),
	)

	_, err := d.DialContext(ctx, "tcp", "127.0.0.1:1")
	var nerr net.Error
	if !errors.As(err, &nerr) || !nerr.Timeout() {
		t.Fatalf("err = %v, want timeout", err)
	}

	waitUp()
}

func TestSOCKS5ProxyDialerUpstreamUnreachable(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	up := upstreamFor(ln, "user", "pass")
	_ = ln.Close()

	d := NewSOCKS5ProxyDialer(Config{DialTimeout: 2 * time.Second}, up)

	if _, err := d.DialContext(ctx, "tcp", "127.0.0.1:1"); err == nil {
		t.Fatal("expected error")
	}
}

func TestSOCKS5ProxyDialerUnsupportedNetwork(t *testing.T) {
	d := NewSOCKS5ProxyDialer(Config{}, Upstream{Host: "127.0.0.1", Port: 1080, Username: "user", Password: "pass"})

	if _, err := d.DialContext(context.Background(), "udp", "127.0.0.1:53"); err == nil {
		t.Fatal("expected error")
	}
}
