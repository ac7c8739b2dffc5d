package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// CopyBidirectional splices left and right together until either side
// closes or errors. The first direction to finish closes both conns so the
// other direction unblocks and neither side is left half-open; canceling
// ctx does the same. The net.ErrClosed that teardown inflicts on the losing
// direction is filtered out, so a clean EOF relay returns nil.
func CopyBidirectional(ctx context.Context, left, right net.Conn) error {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	// If the context is canceled, close both sides to unblock the copies.
	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var g errgroup.Group
	g.Go(func() error {
		err := copyConn(left, right)
		closeBoth()
		return err
	})
	g.Go(func() error {
		err := copyConn(right, left)
		closeBoth()
		return err
	})

	return g.Wait()
}

func copyConn(dst io.Writer, src io.Reader) error {
	buf := relayBuffers.Get().(*[]byte)
	defer relayBuffers.Put(buf)

	if _, err := io.CopyBuffer(dst, src, *buf); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}
	return nil
}
