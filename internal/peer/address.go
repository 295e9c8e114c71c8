// Package peer holds the identity types shared by the supervisor, the
// connection registry and the node server.
package peer

import (
	"fmt"
	"net"
	"strconv"

	"peerkeep/util"
)

// Address is a remote endpoint: a hostname or IP literal plus a port.
// Two addresses are the same peer only if both fields match textually;
// a hostname and the IP it resolves to are different identities.
type Address struct {
	Host string
	Port int
}

// NewAddress is shorthand for Address{Host: host, Port: port}.
func NewAddress(host string, port int) Address {
	return Address{Host: host, Port: port}
}

// ParseAddress splits "host:port" (or "[v6]:port").
func ParseAddress(s string) (Address, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return Address{}, fmt.Errorf("peer address %q: %w", s, err)
	}
	if host == "" {
		return Address{}, fmt.Errorf("peer address %q: host is required", s)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		return Address{}, fmt.Errorf("peer address %q: invalid port %q", s, portStr)
	}
	return Address{Host: host, Port: port}, nil
}

// Equal reports whether a and b identify the same peer.
func (a Address) Equal(b Address) bool {
	return a.Host == b.Host && a.Port == b.Port
}

// IsIP reports whether Host is an IP literal rather than a name.
func (a Address) IsIP() bool { return net.ParseIP(a.Host) != nil }

// String returns "host:port".
func (a Address) String() string {
	return util.FormatAddr(a.Host, a.Port)
}
