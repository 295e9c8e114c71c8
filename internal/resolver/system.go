package resolver

import (
	"context"
	"net"

	nerrors "peerkeep/internal/errors"
)

// System resolves through net.Resolver.  IPv4 addresses are listed
// before IPv6 ones, matching gethostbyname which only knows IPv4.
type System struct {
	// Resolver defaults to net.DefaultResolver.
	Resolver *net.Resolver
}

// Resolve implements Resolver.
func (s System) Resolve(ctx context.Context, host string) ([]string, error) {
	if net.ParseIP(host) != nil {
		return []string{host}, nil
	}
	r := s.Resolver
	if r == nil {
		r = net.DefaultResolver
	}

	addrs, err := r.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, nerrors.WrapResolve(host, "", err)
	}

	var v4, v6 []string
	for _, a := range addrs {
		if ip4 := a.IP.To4(); ip4 != nil {
			v4 = append(v4, ip4.String())
		} else {
			v6 = append(v6, a.IP.String())
		}
	}
	out := append(v4, v6...)
	if len(out) == 0 {
		return nil, nerrors.WrapResolve(host, "", nerrors.ErrNoAddress)
	}
	return out, nil
}
