package core

import (
	"fmt"
	"time"

	"peerkeep/config"
	"peerkeep/internal/metrics"
	"peerkeep/internal/node"
	"peerkeep/internal/peer"
	"peerkeep/internal/registry"
	"peerkeep/internal/resolver"
	"peerkeep/internal/retry"
	"peerkeep/internal/supervisor"
	"peerkeep/internal/transport"
	"peerkeep/internal/transport/noise"
	"peerkeep/util"
)

// Version is advertised in handshakes; cmd sets it from its own
// link-time version.
var Version = "dev" //nolint:gochecknoglobals

// Stack is the set of long-lived components every mode shares.
type Stack struct {
	Peers    []peer.Address
	Auth     bool
	Metrics  *metrics.Collector
	Registry *registry.Registry
	Server   *node.Server
	Seeder   resolver.Resolver
	Lookup   resolver.Resolver
	Logger   *util.Logger

	Interval     time.Duration
	DNSTimeout   time.Duration
	ProtocolHint string
}

// buildStack wires the components described by cfg.  cfg must already
// be validated.
func buildStack(cfg *config.Config, logger *util.Logger) (*Stack, error) {
	peers, err := cfg.PeerAddresses()
	if err != nil {
		return nil, err
	}
	role, err := cfg.NodeRole()
	if err != nil {
		return nil, err
	}
	trusted, err := noise.ParseTrusted(cfg.TrustedKeys)
	if err != nil {
		return nil, err
	}

	var key *noise.Keypair
	if cfg.KeyPath != "" {
		k, err := noise.LoadOrCreateKeypair(cfg.KeyPath)
		if err != nil {
			return nil, err
		}
		logger.Verbose("static key %s", k.PublicHex())
		key = &k
	}

	listenPort := 0
	if cfg.Listen != "" {
		if listenPort, err = util.ListenPort(cfg.Listen); err != nil {
			return nil, fmt.Errorf("listen address %q: %w", cfg.Listen, err)
		}
	}

	m := metrics.New()
	reg := registry.New(m)
	srv := node.NewServer(node.Config{
		NetworkID:        cfg.NetworkID,
		Role:             role,
		ListenPort:       listenPort,
		Version:          Version,
		Key:              key,
		Trusted:          trusted,
		Auth:             cfg.Auth,
		HandshakeTimeout: cfg.ConnectTimeout,
	}, &transport.TCPDialer{Timeout: cfg.ConnectTimeout}, reg, logger.Named("node"), m)

	seeder, err := buildSeeder(cfg, logger)
	if err != nil {
		return nil, err
	}

	return &Stack{
		Peers:        peers,
		Auth:         cfg.Auth,
		Metrics:      m,
		Registry:     reg,
		Server:       srv,
		Seeder:       seeder,
		Lookup:       resolver.System{},
		Logger:       logger,
		Interval:     cfg.Interval,
		DNSTimeout:   cfg.DNSTimeout,
		ProtocolHint: cfg.ProtocolHint,
	}, nil
}

// buildSeeder returns the DNS seed resolver, wrapped in a circuit
// breaker when one is configured.  Without a usable resolv.conf the
// local stub at 127.0.0.1:53 is queried.
func buildSeeder(cfg *config.Config, logger *util.Logger) (resolver.Resolver, error) {
	dcfg := resolver.DNSConfig{
		Servers: cfg.Nameservers(),
		Timeout: cfg.DNSTimeout,
		IPv6:    cfg.DNSIPv6,
	}
	d, err := resolver.NewDNS(dcfg)
	if err != nil {
		logger.Verbose("%v; falling back to %s", err, resolver.FallbackServer)
		dcfg.Servers = []string{resolver.FallbackServer}
		if d, err = resolver.NewDNS(dcfg); err != nil {
			return nil, err
		}
	}
	logger.Debug("DNS seed servers: %v", d.Servers())

	if cfg.DNSBreakerFailures <= 0 {
		return d, nil
	}
	dnsLog := logger.Named("dns")
	cb := retry.NewCircuitBreaker(&retry.CircuitBreakerConfig{
		MaxFailures:  cfg.DNSBreakerFailures,
		ResetTimeout: cfg.DNSBreakerReset,
		HalfOpenMax:  1,
		OnStateChange: func(from, to retry.State) {
			dnsLog.Warn("seed breaker %s -> %s", from, to)
		},
	})
	return resolver.WithBreaker(d, cb), nil
}

// supervisorOptions returns the options every supervisor of s shares.
func (s *Stack) supervisorOptions() supervisor.Options {
	return supervisor.Options{
		Registry:     s.Registry,
		Connector:    s.Server,
		Role:         s.Server.Role,
		Seeder:       s.Seeder,
		Lookup:       s.Lookup,
		Logger:       s.Logger.Named("supervisor"),
		Metrics:      s.Metrics,
		Interval:     s.Interval,
		DNSTimeout:   s.DNSTimeout,
		ProtocolHint: s.ProtocolHint,
	}
}
