// Package supervisor keeps one configured peer connected.
//
// A Supervisor runs a fixed cycle for the lifetime of its context:
//
//	CHECKING    is the target already in the connection registry?
//	RESOLVING   harvesters re-discover the peer through a DNS seed query
//	CONNECTING  one outbound attempt to the chosen candidate
//	WAIT        fixed interval, then back to CHECKING
//
// Connection and DNS failures are expected and never stop the loop.
// Only a failure that does not classify as operational (a defect) or
// cancellation of the context ends Run.
package supervisor

import (
	"context"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	nerrors "peerkeep/internal/errors"
	"peerkeep/internal/metrics"
	"peerkeep/internal/peer"
	"peerkeep/internal/registry"
	"peerkeep/internal/resolver"
)

const (
	// DefaultInterval is the WAIT between cycles.
	DefaultInterval = 3 * time.Second
	// DefaultDNSTimeout bounds one DNS seed query.
	DefaultDNSTimeout = 30 * time.Second
)

// Registry is the read side of the connection registry.
type Registry interface {
	Connections() []registry.Record
}

// Connector opens an outbound peer connection.  On success the new
// connection is expected to appear in the Registry under addr.
type Connector interface {
	Connect(ctx context.Context, addr peer.Address, protocolHint string, auth bool) error
}

// RoleFunc reports the local node role.  It is consulted once per cycle.
type RoleFunc func() peer.NodeRole

// Logger receives the supervisor's log lines.  *util.Logger satisfies it.
type Logger interface {
	Info(format string, args ...interface{})
	Error(format string, args ...interface{})
}

// Options wires a Supervisor to its collaborators.  Registry, Connector
// and Role are required.
type Options struct {
	Registry  Registry
	Connector Connector
	Role      RoleFunc

	// Seeder answers the periodic DNS seed query.  Nil disables seeding
	// even for harvesters.
	Seeder resolver.Resolver
	// Lookup performs the one-time startup resolution.  Defaults to the
	// system resolver.
	Lookup resolver.Resolver

	Logger  Logger
	Metrics *metrics.Collector
	Clock   clock.Clock

	Interval     time.Duration
	DNSTimeout   time.Duration
	ProtocolHint string
}

// Target is the peer a supervisor maintains.
type Target struct {
	// Arg is the address as configured.
	Arg peer.Address
	// Origin is Arg with the host resolved once at startup.  It is the
	// first candidate.
	Origin peer.Address
}

// Supervisor maintains one persistent peer.
type Supervisor struct {
	target Target
	auth   bool
	opts   Options
	clock  clock.Clock
	log    Logger

	mu      sync.Mutex
	current peer.Address // last candidate chosen, Origin until a seed answer replaces it
}

// New resolves target's host once, blocking until the lookup finishes,
// and returns a supervisor ready to Run.  A failed lookup is returned
// as a *errors.ResolveError; the supervisor is not created.
func New(ctx context.Context, target peer.Address, auth bool, opts Options) (*Supervisor, error) {
	switch {
	case opts.Registry == nil:
		return nil, fmt.Errorf("supervisor: registry is required")
	case opts.Connector == nil:
		return nil, fmt.Errorf("supervisor: connector is required")
	case opts.Role == nil:
		return nil, fmt.Errorf("supervisor: role func is required")
	}
	if opts.Lookup == nil {
		opts.Lookup = resolver.System{}
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.DNSTimeout <= 0 {
		opts.DNSTimeout = DefaultDNSTimeout
	}
	if opts.Logger == nil {
		opts.Logger = nopLogger{}
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}

	ip, err := resolver.First(ctx, opts.Lookup, target.Host)
	if err != nil {
		var re *nerrors.ResolveError
		if !nerrors.As(err, &re) {
			err = nerrors.WrapResolve(target.Host, "", err)
		}
		return nil, err
	}

	origin := peer.NewAddress(ip, target.Port)
	return &Supervisor{
		target:  Target{Arg: target, Origin: origin},
		auth:    auth,
		opts:    opts,
		clock:   clk,
		log:     opts.Logger,
		current: origin,
	}, nil
}

// Target returns the configured and startup-resolved addresses.
func (s *Supervisor) Target() Target { return s.target }

// Current returns the candidate the supervisor dials and checks the
// registry for.  A DNS seed answer replaces it until a later answer
// does; a failed or empty seed query keeps it.
func (s *Supervisor) Current() peer.Address {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Supervisor) setCurrent(a peer.Address) {
	s.mu.Lock()
	s.current = a
	s.mu.Unlock()
}

// Run cycles until ctx is cancelled, in which case it returns nil, or a
// cycle surfaces a defect, which is returned.  The first cycle starts
// immediately.
func (s *Supervisor) Run(ctx context.Context) error {
	for {
		if err := s.Cycle(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		t := s.clock.Timer(s.opts.Interval)
		select {
		case <-ctx.Done():
			t.Stop()
			return nil
		case <-t.C:
		}
	}
}

// Cycle performs one CHECKING, RESOLVING, CONNECTING pass without the
// trailing WAIT.  Operational failures are logged and absorbed; the
// returned error is either ctx's error or a defect.
func (s *Supervisor) Cycle(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if s.connected() {
		s.opts.Metrics.CycleCompleted(true)
		return nil
	}

	if s.opts.Role().SeedsFromDNS() && s.opts.Seeder != nil {
		if err := ctx.Err(); err != nil {
			return err
		}
		seeds, err := s.seedCandidates(ctx)
		if err != nil {
			return err
		}
		if len(seeds) > 0 {
			s.setCurrent(seeds[0])
		}
	}
	candidate := s.Current()

	if err := ctx.Err(); err != nil {
		return err
	}
	s.log.Info("Reconnecting to peer %s", candidate)
	s.opts.Metrics.ReconnectAttempt()
	err := s.opts.Connector.Connect(ctx, candidate, s.opts.ProtocolHint, s.auth)
	s.opts.Metrics.CycleCompleted(false)
	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if nerrors.IsOperational(err) {
		s.log.Info("Failed to connect to %s: %v", candidate, err)
		s.opts.Metrics.ConnectFailed(err.Error())
		return nil
	}
	s.log.Error("Unexpected error connecting to %s: %v", candidate, err)
	s.opts.Metrics.RecordError(err.Error())
	return err
}

// connected reports whether any live connection is known by the
// current candidate or the configured address.
func (s *Supervisor) connected() bool {
	current := s.Current()
	for _, rec := range s.opts.Registry.Connections() {
		id := rec.PeerInfo()
		if id.Equal(current) || id.Equal(s.target.Arg) {
			return true
		}
	}
	return false
}

// seedCandidates queries the DNS seeder for the configured host and
// pairs each address with the configured port.  Operational failures
// are logged and yield no candidates; the error is reserved for
// cancellation and defects.
func (s *Supervisor) seedCandidates(ctx context.Context) ([]peer.Address, error) {
	qctx, cancel := context.WithTimeout(ctx, s.opts.DNSTimeout)
	defer cancel()

	ips, err := s.opts.Seeder.Resolve(qctx, s.target.Arg.Host)
	s.opts.Metrics.DNSLookup(err != nil)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if !nerrors.IsOperational(err) {
			s.log.Error("DNS seed lookup for %s failed unexpectedly: %v", s.target.Arg.Host, err)
			return nil, err
		}
		s.log.Error("Exception while querying DNS server: %v", err)
		return nil, nil
	}

	out := make([]peer.Address, 0, len(ips))
	for _, ip := range ips {
		if net.ParseIP(ip) == nil {
			s.log.Error("DNS seeder returned invalid address %q", ip)
			continue
		}
		out = append(out, peer.NewAddress(ip, s.target.Arg.Port))
	}
	s.log.Info("Received %d peers from DNS seeder.", len(out))
	return out, nil
}

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
