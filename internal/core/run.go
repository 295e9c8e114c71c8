package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"peerkeep/internal/metrics"
	"peerkeep/internal/peer"
	"peerkeep/internal/supervisor"
	"peerkeep/internal/transport"
)

// RunMode is the daemon: it serves inbound peers, keeps one supervisor
// per configured peer, and optionally exposes Prometheus metrics.  It
// runs until its context is cancelled.
type RunMode struct {
	Stack       *Stack
	Listen      string // empty disables inbound
	MetricsAddr string // empty disables the metrics endpoint
	GracePeriod time.Duration
}

// Run starts every component and blocks until ctx is cancelled or the
// listener fails.
func (m *RunMode) Run(ctx context.Context) error {
	s := m.Stack
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	abort := func(err error) error {
		cancel()
		g.Wait() //nolint:errcheck
		return multierr.Append(err, m.closeServer())
	}

	if m.Listen != "" {
		ln, err := transport.Listen(gctx, m.Listen)
		if err != nil {
			return abort(fmt.Errorf("listen on %s: %w", m.Listen, err))
		}
		s.Logger.Info("listening for peers on %s", ln.Addr())
		g.Go(func() error { return s.Server.Serve(gctx, ln) })
	}

	if m.MetricsAddr != "" {
		if err := m.serveMetrics(gctx, g); err != nil {
			return abort(err)
		}
	}

	started, err := m.startSupervisors(gctx, g)
	if started == 0 && m.Listen == "" {
		return abort(fmt.Errorf("no supervisor could be started: %w", err))
	}

	err = g.Wait()
	s.Logger.Verbose("shutting down; metrics: %s", s.Metrics.JSON())
	return multierr.Append(err, m.closeServer())
}

// startSupervisors starts one supervisor per peer.  A peer whose
// startup resolution fails is logged and skipped; the others run.
func (m *RunMode) startSupervisors(ctx context.Context, g *errgroup.Group) (int, error) {
	s := m.Stack
	opts := s.supervisorOptions()

	var errs error
	started := 0
	for _, p := range s.Peers {
		h, err := supervisor.Start(ctx, p, s.Auth, opts)
		if err != nil {
			s.Logger.Error("cannot supervise %s: %v", p, err)
			errs = multierr.Append(errs, err)
			continue
		}
		started++
		t := h.Supervisor().Target()
		s.Logger.Verbose("supervising %s (origin %s)", t.Arg, t.Origin)

		p := p
		g.Go(func() error {
			waitSupervisor(s.Logger, p, h)
			return nil
		})
	}
	return started, errs
}

type errorLogger interface {
	Error(format string, args ...interface{})
}

// waitSupervisor blocks until h exits.  A defect stops only that
// supervisor, so it is logged rather than propagated.
func waitSupervisor(log errorLogger, p peer.Address, h *supervisor.Handle) {
	if err := h.Wait(); err != nil {
		log.Error("supervisor for %s stopped: %v", p, err)
	}
}

func (m *RunMode) serveMetrics(ctx context.Context, g *errgroup.Group) error {
	reg := prometheus.NewRegistry()
	if err := metrics.Register(reg, m.Stack.Metrics); err != nil {
		return fmt.Errorf("register metrics: %w", err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/vars", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintln(w, m.Stack.Metrics.JSON())
	})

	ln, err := transport.Listen(ctx, m.MetricsAddr)
	if err != nil {
		return fmt.Errorf("metrics listen on %s: %w", m.MetricsAddr, err)
	}
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	m.Stack.Logger.Info("metrics on http://%s/metrics", ln.Addr())

	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) && ctx.Err() == nil {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), m.grace())
		defer cancel()
		return srv.Shutdown(sctx)
	})
	return nil
}

// closeServer closes every link, giving read loops GracePeriod to exit.
func (m *RunMode) closeServer() error {
	done := make(chan error, 1)
	go func() { done <- m.Stack.Server.Close() }()

	select {
	case err := <-done:
		return err
	case <-time.After(m.grace()):
		return fmt.Errorf("timed out after %s waiting for peer links to close", m.grace())
	}
}

func (m *RunMode) grace() time.Duration {
	if m.GracePeriod > 0 {
		return m.GracePeriod
	}
	return 5 * time.Second
}
