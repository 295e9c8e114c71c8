package supervisor

import (
	"context"

	"peerkeep/internal/peer"
)

// Handle controls a supervisor running in its own goroutine.
type Handle struct {
	sup    *Supervisor
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

// Start resolves target (blocking, see New) and runs the supervisor in
// the background until ctx is cancelled or Stop is called.
func Start(ctx context.Context, target peer.Address, auth bool, opts Options) (*Handle, error) {
	s, err := New(ctx, target, auth, opts)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{sup: s, cancel: cancel, done: make(chan struct{})}
	go func() {
		defer close(h.done)
		defer cancel()
		h.err = s.Run(ctx)
	}()
	return h, nil
}

// Supervisor returns the running supervisor.
func (h *Handle) Supervisor() *Supervisor { return h.sup }

// Stop cancels the supervisor and waits for it to exit.
func (h *Handle) Stop() {
	h.cancel()
	<-h.done
}

// Wait blocks until the supervisor exits and returns the defect that
// stopped it, or nil if it was cancelled.
func (h *Handle) Wait() error {
	<-h.done
	return h.err
}

// Done is closed once the supervisor has exited.
func (h *Handle) Done() <-chan struct{} { return h.done }
