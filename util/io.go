package util

import (
	"errors"
	"io"
	"net"
)

// DefaultBufSize is the standard buffer size for network I/O (32 KiB).
const DefaultBufSize = 32 * 1024

// Drain reads r until EOF or error using a pooled buffer and returns
// the byte count.  Errors that only mean the link was closed, locally
// or by the peer, are reported as nil.
func Drain(r io.Reader) (int64, error) {
	buf := GetBuf()
	defer PutBuf(buf)

	n, err := io.CopyBuffer(discard{}, readerOnly{r}, *buf)
	if IsClosed(err) {
		err = nil
	}
	return n, err
}

// readerOnly and discard hide WriterTo and ReaderFrom so CopyBuffer
// uses the pooled buffer.
type readerOnly struct{ io.Reader }

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// IsClosed reports whether err is expected when a link shuts down.
func IsClosed(err error) bool {
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
		return true
	}
	// net.OpError wrapping "use of closed network connection"
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return errors.Is(opErr.Err, net.ErrClosed)
	}
	return false
}
