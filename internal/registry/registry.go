// Package registry tracks the live peer connections of a node.
//
// Connections are added by the node server once a handshake completes
// and removed when their read loop ends.  Supervisors only read the
// registry, through Connections, to decide whether their target is
// already connected.
package registry

import (
	"io"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"peerkeep/internal/metrics"
	"peerkeep/internal/peer"
)

// Record is a read-only snapshot of one registered connection.
type Record struct {
	ID      uuid.UUID
	Peer    peer.Address
	Role    peer.NodeRole
	Inbound bool
	Since   time.Time
}

// PeerInfo returns the identity the connection is known by: the dialed
// address for outbound connections, the remote IP plus advertised
// listen port for inbound ones.
func (r Record) PeerInfo() peer.Address { return r.Peer }

type entry struct {
	rec    Record
	closer io.Closer
}

// Registry is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	conns   map[uuid.UUID]*entry
	metrics *metrics.Collector
	now     func() time.Time
}

// New returns an empty registry.  m may be nil.
func New(m *metrics.Collector) *Registry {
	return &Registry{
		conns:   make(map[uuid.UUID]*entry),
		metrics: m,
		now:     time.Now,
	}
}

// Add registers a connection and returns its record.  c is closed by
// Close; Remove leaves closing to the caller.
func (r *Registry) Add(p peer.Address, role peer.NodeRole, inbound bool, c io.Closer) Record {
	rec := Record{
		ID:      uuid.New(),
		Peer:    p,
		Role:    role,
		Inbound: inbound,
		Since:   r.now(),
	}
	r.mu.Lock()
	r.conns[rec.ID] = &entry{rec: rec, closer: c}
	r.mu.Unlock()

	r.metrics.ConnectionOpened()
	return rec
}

// Remove unregisters id.  It reports whether the id was present.
func (r *Registry) Remove(id uuid.UUID) bool {
	r.mu.Lock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	r.mu.Unlock()

	if ok {
		r.metrics.ConnectionClosed()
	}
	return ok
}

// Connections returns a snapshot of every registered connection.
func (r *Registry) Connections() []Record {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Record, 0, len(r.conns))
	for _, e := range r.conns {
		out = append(out, e.rec)
	}
	return out
}

// Find returns the first record whose identity equals p.
func (r *Registry) Find(p peer.Address) (Record, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, e := range r.conns {
		if e.rec.Peer.Equal(p) {
			return e.rec, true
		}
	}
	return Record{}, false
}

// Len returns the number of registered connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Close unregisters and closes every connection, returning all close
// errors combined.
func (r *Registry) Close() error {
	r.mu.Lock()
	conns := r.conns
	r.conns = make(map[uuid.UUID]*entry)
	r.mu.Unlock()

	var err error
	for _, e := range conns {
		r.metrics.ConnectionClosed()
		if e.closer != nil {
			err = multierr.Append(err, e.closer.Close())
		}
	}
	return err
}
