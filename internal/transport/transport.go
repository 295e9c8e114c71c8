// Package transport opens the raw network links that carry peer
// sessions.  Securing the link (see the noise subpackage) and speaking
// the peer handshake happen above this layer.
package transport

import (
	"context"
	"net"
)

// Dialer opens outbound peer connections.
type Dialer interface {
	// Dial establishes a connection to the given network address.
	Dial(ctx context.Context, network, address string) (net.Conn, error)

	// Close releases any long-lived resources held by the dialer.
	// Stateless dialers return nil.
	Close() error
}

// Listen opens a TCP listener for inbound peers.  The listener is
// closed when ctx is done.
func Listen(ctx context.Context, address string) (net.Listener, error) {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", address)
	if err != nil {
		return nil, err
	}
	go func() {
		<-ctx.Done()
		ln.Close()
	}()
	return ln, nil
}
