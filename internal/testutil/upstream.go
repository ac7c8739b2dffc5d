package testutil

import (
	"net"
	"testing"

	gosocks5 "github.com/armon/go-socks5"
)

// StartUpstreamSOCKS5 starts a go-socks5 server on a loopback port to stand
// in for a real upstream proxy. The listener is closed at test cleanup.
func StartUpstreamSOCKS5(t *testing.T, conf *gosocks5.Config) net.Listener {
	t.Helper()

	srv, err := gosocks5.New(conf)
	if err != nil {
		t.Fatal(err)
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ln.Close() })

	go func() { _ = srv.Serve(ln) }()

	return ln
}
