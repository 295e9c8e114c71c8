package core

import (
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/multierr"

	"peerkeep/internal/peer"
)

// ResolveMode prints the DNS seed candidates for every peer, in the
// order a harvester would try them.
type ResolveMode struct {
	Stack *Stack

	// Stdout defaults to os.Stdout when nil.
	Stdout io.Writer
}

// Run queries the seed resolver once per peer.
func (m *ResolveMode) Run(ctx context.Context) error {
	s := m.Stack
	out := stdout(m.Stdout)

	var errs error
	for _, p := range s.Peers {
		qctx, cancel := context.WithTimeout(ctx, s.DNSTimeout)
		ips, err := s.Seeder.Resolve(qctx, p.Host)
		cancel()
		if err != nil {
			fmt.Fprintf(out, "%s\terror: %v\n", p, err)
			errs = multierr.Append(errs, err)
			continue
		}

		candidates := make([]string, len(ips))
		for i, ip := range ips {
			candidates[i] = peer.NewAddress(ip, p.Port).String()
		}
		fmt.Fprintf(out, "%s\t%s\n", p, strings.Join(candidates, " "))
	}
	return errs
}
