// Package node owns a node's peer links: outbound connections opened on
// behalf of supervisors and inbound connections accepted from peers.
// Every established link is recorded in the registry until it drops.
package node

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	nerrors "peerkeep/internal/errors"
	"peerkeep/internal/metrics"
	"peerkeep/internal/peer"
	"peerkeep/internal/registry"
	"peerkeep/internal/retry"
	"peerkeep/internal/transport"
	"peerkeep/internal/transport/noise"
	"peerkeep/util"
)

// Config describes the local node as advertised in handshakes.
type Config struct {
	NetworkID  string
	Role       peer.NodeRole
	ListenPort int
	Version    string

	// Key is the static identity used for authenticated links.  It is
	// required when Auth is set or when Connect is asked for auth.
	Key *noise.Keypair
	// Trusted restricts authenticated peers to these static keys.
	// Empty accepts any key that completes the handshake.
	Trusted [][]byte
	// Auth makes inbound links run the Noise handshake.
	Auth bool

	HandshakeTimeout time.Duration
}

// Server is safe for concurrent use.
type Server struct {
	cfg      Config
	role     atomic.Int32
	dialer   transport.Dialer
	registry *registry.Registry
	logger   *util.Logger
	metrics  *metrics.Collector
	accept   *retry.Backoff

	wg sync.WaitGroup
}

// NewServer wires a node around reg.  m may be nil.
func NewServer(cfg Config, d transport.Dialer, reg *registry.Registry, logger *util.Logger, m *metrics.Collector) *Server {
	if cfg.HandshakeTimeout == 0 {
		cfg.HandshakeTimeout = 10 * time.Second
	}
	s := &Server{
		cfg:      cfg,
		dialer:   d,
		registry: reg,
		logger:   logger,
		metrics:  m,
		accept:   retry.DefaultBackoff(),
	}
	s.role.Store(int32(cfg.Role))
	return s
}

// Role reports the local node role.  It is the role source handed to
// supervisors, so a role change takes effect on their next cycle.
func (s *Server) Role() peer.NodeRole { return peer.NodeRole(s.role.Load()) }

// SetRole changes the advertised local role.
func (s *Server) SetRole(r peer.NodeRole) { s.role.Store(int32(r)) }

// Registry returns the connection registry the server writes to.
func (s *Server) Registry() *registry.Registry { return s.registry }

// ── Outbound ─────────────────────────────────────────────────────────

// Connect opens a link to addr, registering it under addr once the
// handshake completes.  Every failure is returned as a
// *errors.NetworkError.
func (s *Server) Connect(ctx context.Context, addr peer.Address, protocolHint string, auth bool) error {
	target := addr.String()

	conn, err := s.dialer.Dial(ctx, "tcp", target)
	if err != nil {
		return nerrors.Wrap("dial", target, err)
	}

	link, h, role, err := s.handshake(ctx, conn, protocolHint, auth, true)
	if err != nil {
		conn.Close()
		return err
	}

	rec := s.registry.Add(addr, role, false, link)
	s.logger.Verbose("connected to %s (%s, %s)", addr, role, h.Protocol)
	s.wg.Add(1)
	go s.readLoop(link, rec)
	return nil
}

// ── Inbound ──────────────────────────────────────────────────────────

// Serve accepts inbound peers on ln until ctx is cancelled or ln is
// closed.  Temporary accept errors are retried with backoff.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.logger.Verbose("listening on %s", ln.Addr())

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		var conn net.Conn
		err := s.accept.Do(ctx, func(attempt int) error {
			c, err := ln.Accept()
			if err != nil {
				if nerrors.IsRetryable(err) && ctx.Err() == nil {
					s.logger.Debug("accept attempt %d: %v", attempt, err)
					return err
				}
				return retry.Permanent(err)
			}
			conn = c
			return nil
		})
		if err != nil {
			if ctx.Err() != nil || nerrors.Is(err, net.ErrClosed) {
				return nil
			}
			return nerrors.Wrap("accept", ln.Addr().String(), err)
		}

		s.wg.Add(1)
		go s.serveConn(ctx, conn)
	}
}

func (s *Server) serveConn(ctx context.Context, conn net.Conn) {
	defer s.wg.Done()

	remote := conn.RemoteAddr().String()
	link, h, role, err := s.handshake(ctx, conn, "", s.cfg.Auth, false)
	if err != nil {
		s.logger.Verbose("inbound %s: %v", remote, err)
		s.metrics.RecordError(err.Error())
		conn.Close()
		return
	}

	id, err := inboundIdentity(remote, h.ListenPort)
	if err != nil {
		s.logger.Verbose("inbound %s: %v", remote, err)
		link.Close()
		return
	}

	rec := s.registry.Add(id, role, true, link)
	s.logger.Verbose("accepted %s as %s (%s)", remote, id, role)
	s.wg.Add(1)
	s.readLoop(link, rec)
}

// inboundIdentity pairs the remote IP with the port the peer says it
// listens on, falling back to the source port.
func inboundIdentity(remote string, listenPort int) (peer.Address, error) {
	host, port, err := net.SplitHostPort(remote)
	if err != nil {
		return peer.Address{}, err
	}
	if listenPort > 0 {
		return peer.NewAddress(host, listenPort), nil
	}
	p, err := strconv.Atoi(port)
	if err != nil {
		return peer.Address{}, err
	}
	return peer.NewAddress(host, p), nil
}

// ── Shared ───────────────────────────────────────────────────────────

type link struct {
	net.Conn
	r *bufio.Reader
}

func (l *link) Read(p []byte) (int, error) { return l.r.Read(p) }

// handshake optionally secures conn and exchanges handshake lines.  The
// dialing side writes first.
func (s *Server) handshake(ctx context.Context, conn net.Conn, protocol string, auth, initiator bool) (*link, Handshake, peer.NodeRole, error) {
	remote := conn.RemoteAddr().String()
	fail := func(op string, err error) (*link, Handshake, peer.NodeRole, error) {
		return nil, Handshake{}, 0, nerrors.Wrap(op, remote, err)
	}

	conn.SetDeadline(time.Now().Add(s.cfg.HandshakeTimeout)) //nolint:errcheck
	stop := context.AfterFunc(ctx, func() {
		conn.SetDeadline(time.Now()) //nolint:errcheck
	})
	defer stop()

	if auth {
		if s.cfg.Key == nil {
			return fail("noise", fmt.Errorf("%w: no static key configured", nerrors.ErrAuthFailed))
		}
		var (
			sc  *noise.Conn
			err error
		)
		if initiator {
			sc, err = noise.Client(conn, *s.cfg.Key, s.cfg.Trusted)
		} else {
			sc, err = noise.Server(conn, *s.cfg.Key, s.cfg.Trusted)
		}
		if err != nil {
			return fail("noise", err)
		}
		conn = sc
	}

	if protocol == "" {
		protocol = DefaultProtocol
	}
	local := Handshake{
		NetworkID:  s.cfg.NetworkID,
		Role:       s.Role().String(),
		ListenPort: s.cfg.ListenPort,
		Protocol:   protocol,
		Version:    s.cfg.Version,
	}

	l := &link{Conn: conn, r: bufio.NewReader(conn)}
	if initiator {
		if err := writeHandshake(conn, local); err != nil {
			return fail("handshake", err)
		}
	}
	h, role, err := readHandshake(l.r, s.cfg.NetworkID)
	if err != nil {
		if ctx.Err() != nil {
			err = ctx.Err()
		}
		return fail("handshake", err)
	}
	if !initiator {
		if err := writeHandshake(conn, local); err != nil {
			return fail("handshake", err)
		}
	}

	conn.SetDeadline(time.Time{}) //nolint:errcheck
	return l, h, role, nil
}

// readLoop drains the link until it drops, then unregisters it.
func (s *Server) readLoop(l *link, rec registry.Record) {
	defer s.wg.Done()

	_, err := util.Drain(l)
	s.registry.Remove(rec.ID)
	l.Close()
	if err != nil {
		s.logger.Debug("link %s closed: %v", rec.Peer, err)
	} else {
		s.logger.Debug("link %s closed by peer", rec.Peer)
	}
}

// Close closes every registered link and waits for their read loops.
// Listeners passed to Serve are closed by cancelling its context.
func (s *Server) Close() error {
	err := s.registry.Close()
	s.wg.Wait()
	return err
}
