package core

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"

	"peerkeep/internal/supervisor"
)

// OnceMode runs a single supervisor cycle per peer and reports which
// peers ended up connected.
type OnceMode struct {
	Stack *Stack

	// Stdout defaults to os.Stdout when nil.
	Stdout io.Writer
}

// Run cycles every peer once.  Operational failures are reported per
// peer; startup resolution failures and defects are returned.
func (m *OnceMode) Run(ctx context.Context) error {
	s := m.Stack
	out := stdout(m.Stdout)
	defer s.Server.Close()

	opts := s.supervisorOptions()
	var errs error
	for _, p := range s.Peers {
		sup, err := supervisor.New(ctx, p, s.Auth, opts)
		if err != nil {
			fmt.Fprintf(out, "%s\terror: %v\n", p, err)
			errs = multierr.Append(errs, err)
			continue
		}
		if err := sup.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintf(out, "%s\terror: %v\n", p, err)
			errs = multierr.Append(errs, err)
			continue
		}

		t := sup.Target()
		status := "not connected"
		if rec, ok := s.Registry.Find(sup.Current()); ok {
			status = fmt.Sprintf("connected (%s)", rec.Role)
		} else if rec, ok := s.Registry.Find(t.Arg); ok {
			status = fmt.Sprintf("connected (%s)", rec.Role)
		}
		fmt.Fprintf(out, "%s\t%s\n", p, status)
	}
	return errs
}
