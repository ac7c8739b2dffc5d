package proxy

import (
	"sync"
)

const relayBufferSize = 32 * 1024

// relayBuffers holds the copy buffers shared by all relay directions, so a
// busy server is not allocating 32 KiB per direction per session.
var relayBuffers = sync.Pool{
	New: func() any {
		// The pool stores *[]byte; storing the slice itself would heap-
		// allocate a fresh header on every Put.
		b := make([]byte, relayBufferSize)
		return &b
	},
}
