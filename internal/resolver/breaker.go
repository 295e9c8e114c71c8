package resolver

import (
	"context"

	nerrors "peerkeep/internal/errors"
	"peerkeep/internal/retry"
)

// Breaker short-circuits lookups against a seeder that keeps failing.
// While the circuit is open Resolve fails immediately with an error
// wrapping errors.ErrCircuitOpen.
type Breaker struct {
	next Resolver
	cb   *retry.CircuitBreaker
}

// WithBreaker wraps next.
func WithBreaker(next Resolver, cb *retry.CircuitBreaker) *Breaker {
	return &Breaker{next: next, cb: cb}
}

// State returns the current circuit state.
func (b *Breaker) State() retry.State { return b.cb.CurrentState() }

// Resolve implements Resolver.
func (b *Breaker) Resolve(ctx context.Context, host string) ([]string, error) {
	var ips []string
	err := b.cb.Execute(func() error {
		var err error
		ips, err = b.next.Resolve(ctx, host)
		return err
	})
	if err != nil {
		var re *nerrors.ResolveError
		if !nerrors.As(err, &re) && nerrors.Is(err, nerrors.ErrCircuitOpen) {
			err = nerrors.WrapResolve(host, "", err)
		}
		return nil, err
	}
	return ips, nil
}
