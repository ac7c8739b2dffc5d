package proxy

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hollis-net/sockhop/internal/testutil"
)

// tcpPair returns both ends of one loopback TCP connection, so teardown
// behaves like production (close shows up as net.ErrClosed, not a pipe
// error).
func tcpPair(t *testing.T) (net.Conn, net.Conn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	type accepted struct {
		conn net.Conn
		err  error
	}
	ch := make(chan accepted, 1)
	go func() {
		c, err := ln.Accept()
		ch <- accepted{c, err}
	}()

	client, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}

	a := <-ch
	if a.err != nil {
		_ = client.Close()
		t.Fatal(a.err)
	}

	t.Cleanup(func() {
		_ = client.Close()
		_ = a.conn.Close()
	})

	return client, a.conn
}

func TestCopyBidirectional(t *testing.T) {
	left, leftPeer := tcpPair(t)
	right, rightPeer := tcpPair(t)

	done := make(chan error, 1)
	go func() {
		done <- CopyBidirectional(context.Background(), leftPeer, rightPeer)
	}()

	testutil.AssertEcho(t, left, right, []byte("ping"))
	testutil.AssertEcho(t, right, left, []byte("pong"))

	// Hanging up one side must tear down the other.
	_ = left.Close()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("CopyBidirectional() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not finish after close")
	}

	_ = right.SetReadDeadline(time.Now().Add(2 * time.Second))
	if _, err := right.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
		t.Fatalf("far side read = %v, want EOF", err)
	}
}

func TestCopyBidirectionalLargeTransfer(t *testing.T) {
	left, leftPeer := tcpPair(t)
	right, rightPeer := tcpPair(t)

	done := make(chan error, 1)
	go func() {
		done <- CopyBidirectional(context.Background(), leftPeer, rightPeer)
	}()

	// Big enough to cycle the pooled copy buffers several times in both
	// directions at once.
	payload := bytes.Repeat([]byte("0123456789abcdef"), 16*1024)

	var g errgroup.Group
	g.Go(func() error {
		if _, err := left.Write(payload); err != nil {
			return err
		}
		got := make([]byte, len(payload))
		if _, err := io.ReadFull(left, got); err != nil {
			return err
		}
		if !bytes.Equal(got, payload) {
			return errors.New("left read mismatched payload")
		}
		return nil
	})
	g.Go(func() error {
		got := make([]byte, len(payload))
		if _, err := io.ReadFull(right, got); err != nil {
			return err
		}
		if !bytes.Equal(got, payload) {
			return errors.New("right read mismatched payload")
		}
		_, err := right.Write(got)
		return err
	})
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	_ = left.Close()
	if err := <-done; err != nil {
		t.Fatalf("CopyBidirectional() = %v, want nil", err)
	}
}

func TestCopyBidirectionalContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	left, leftPeer := tcpPair(t)
	right, rightPeer := tcpPair(t)

	done := make(chan error, 1)
	go func() {
		done <- CopyBidirectional(ctx, leftPeer, rightPeer)
	}()

	// Prove the relay is live before cancellation.
	testutil.AssertEcho(t, left, right, []byte("ping"))

	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("CopyBidirectional() = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not finish after cancel")
	}

	for _, c := range []net.Conn{left, right} {
		_ = c.SetReadDeadline(time.Now().Add(2 * time.Second))
		if _, err := c.Read(make([]byte, 1)); !errors.Is(err, io.EOF) {
			t.Fatalf("read = %v, want EOF after cancel", err)
		}
	}
}
