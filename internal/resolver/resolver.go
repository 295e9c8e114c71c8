// Package resolver turns peer hostnames into IP literals.
//
// Two lookups exist.  The one-time startup resolution of a configured
// peer goes through the host's resolver (System), the same path a
// blocking gethostbyname call takes.  The periodic DNS seed query a
// harvester issues before reconnecting goes straight to the
// nameservers with github.com/miekg/dns (DNS), so it keeps the answer
// order the seeder returned and honours its own timeout.
package resolver

import (
	"context"
	"net"

	nerrors "peerkeep/internal/errors"
)

// Resolver maps a hostname to IP literals.  Failures are returned as
// errors that classify as operational (see errors.IsOperational).
type Resolver interface {
	Resolve(ctx context.Context, host string) ([]string, error)
}

// Func adapts a function to the Resolver interface.
type Func func(ctx context.Context, host string) ([]string, error)

// Resolve calls f.
func (f Func) Resolve(ctx context.Context, host string) ([]string, error) { return f(ctx, host) }

// First resolves host and returns the first address.  IP literals are
// returned unchanged without a lookup.
func First(ctx context.Context, r Resolver, host string) (string, error) {
	if net.ParseIP(host) != nil {
		return host, nil
	}
	ips, err := r.Resolve(ctx, host)
	if err != nil {
		return "", err
	}
	if len(ips) == 0 {
		return "", nerrors.WrapResolve(host, "", nerrors.ErrNoAddress)
	}
	return ips[0], nil
}
