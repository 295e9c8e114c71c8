package config

import "time"

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, the config file, and environment variable loading.

const (
	// DefaultRole is the local node role.
	DefaultRole = "full_node"

	// DefaultNetworkID is exchanged in every handshake.
	DefaultNetworkID = "mainnet"

	// DefaultInterval is the wait between supervisor cycles.
	DefaultInterval = 3 * time.Second

	// DefaultDNSTimeout bounds a single DNS seed query.
	DefaultDNSTimeout = 30 * time.Second

	// DefaultConnectTimeout bounds dialing plus handshake.
	DefaultConnectTimeout = 10 * time.Second

	// DefaultDNSBreakerReset is how long an open DNS breaker waits
	// before letting a probe through.
	DefaultDNSBreakerReset = 30 * time.Second

	// DefaultGracePeriod is how long shutdown waits for links to close.
	DefaultGracePeriod = 5 * time.Second
)
