// Package config defines the runtime configuration for peerkeep and
// the helpers that turn it into typed peer addresses and roles.
package config

import (
	"fmt"
	"net"
	"strings"
	"time"

	nerrors "peerkeep/internal/errors"
	"peerkeep/internal/peer"
	"peerkeep/internal/transport/noise"
)

// Config holds every tuneable for one peerkeep process.
type Config struct {
	// ── Peers ────────────────────────────────────────────────────────
	Peers        []string // host:port of every persistent peer
	Role         string   // local node role name
	Auth         bool     // secure outbound links with Noise
	NetworkID    string
	ProtocolHint string

	// ── Node ─────────────────────────────────────────────────────────
	Listen      string // inbound listen address, empty disables
	KeyPath     string // hex static key file, created if missing
	TrustedKeys []string

	// ── Timing ───────────────────────────────────────────────────────
	Interval       time.Duration
	DNSTimeout     time.Duration
	ConnectTimeout time.Duration

	// ── DNS seeding ──────────────────────────────────────────────────
	DNSServers         []string
	DNSIPv6            bool
	DNSBreakerFailures int // 0 disables the breaker
	DNSBreakerReset    time.Duration

	// ── Output ───────────────────────────────────────────────────────
	MetricsAddr string
	Verbose     int

	// ── Modes (CLI only) ─────────────────────────────────────────────
	ConfigPath string
	Once       bool
	Resolve    bool
	DryRun     bool
}

// Default returns a Config populated from defaults.go.
func Default() *Config {
	return &Config{
		Role:            DefaultRole,
		NetworkID:       DefaultNetworkID,
		Interval:        DefaultInterval,
		DNSTimeout:      DefaultDNSTimeout,
		ConnectTimeout:  DefaultConnectTimeout,
		DNSBreakerReset: DefaultDNSBreakerReset,
	}
}

// ── Typed accessors ──────────────────────────────────────────────────

// PeerAddresses parses every configured peer.
func (c *Config) PeerAddresses() ([]peer.Address, error) {
	out := make([]peer.Address, 0, len(c.Peers))
	for _, p := range c.Peers {
		a, err := peer.ParseAddress(strings.TrimSpace(p))
		if err != nil {
			return nil, &nerrors.ConfigError{
				Field:   "peer",
				Value:   p,
				Message: err.Error(),
				Hint:    "peers are given as host:port, e.g. node.example:8444",
			}
		}
		out = append(out, a)
	}
	return out, nil
}

// NodeRole parses Role.
func (c *Config) NodeRole() (peer.NodeRole, error) {
	r, err := peer.ParseNodeRole(c.Role)
	if err != nil {
		return 0, &nerrors.ConfigError{
			Field:   "role",
			Value:   c.Role,
			Message: "unknown node role",
			Hint:    "use " + strings.Join(peer.RoleNames(), ", "),
		}
	}
	return r, nil
}

// Nameservers returns DNSServers with the default port filled in.
func (c *Config) Nameservers() []string {
	out := make([]string, 0, len(c.DNSServers))
	for _, s := range c.DNSServers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, _, err := net.SplitHostPort(s); err != nil {
			s = net.JoinHostPort(strings.Trim(s, "[]"), "53")
		}
		out = append(out, s)
	}
	return out
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
// Every failure is a *errors.ConfigError.
func (c *Config) Validate() error {
	if len(c.Peers) == 0 && (c.Listen == "" || c.Once || c.Resolve) {
		return &nerrors.ConfigError{
			Field:   "peer",
			Message: "at least one peer is required",
			Hint:    "pass host:port arguments, set PEERKEEP_PEERS, or list peers in the config file",
		}
	}
	if _, err := c.PeerAddresses(); err != nil {
		return err
	}
	if _, err := c.NodeRole(); err != nil {
		return err
	}
	if strings.TrimSpace(c.NetworkID) == "" {
		return &nerrors.ConfigError{Field: "network-id", Message: "network id must not be empty"}
	}

	for _, d := range []struct {
		field string
		v     time.Duration
	}{
		{"interval", c.Interval},
		{"dns-timeout", c.DNSTimeout},
		{"connect-timeout", c.ConnectTimeout},
	} {
		if d.v <= 0 {
			return &nerrors.ConfigError{Field: d.field, Value: d.v, Message: "must be positive"}
		}
	}

	if c.DNSBreakerFailures < 0 {
		return &nerrors.ConfigError{Field: "dns-breaker-failures", Value: c.DNSBreakerFailures, Message: "must not be negative"}
	}
	if c.DNSBreakerFailures > 0 && c.DNSBreakerReset <= 0 {
		return &nerrors.ConfigError{
			Field:   "dns-breaker-reset",
			Value:   c.DNSBreakerReset,
			Message: "must be positive when the DNS breaker is enabled",
		}
	}

	if c.Listen != "" {
		if _, _, err := net.SplitHostPort(c.Listen); err != nil {
			return &nerrors.ConfigError{
				Field:   "listen",
				Value:   c.Listen,
				Message: err.Error(),
				Hint:    "use host:port or :port, e.g. :8444",
			}
		}
	}

	if c.Auth && c.KeyPath == "" {
		return &nerrors.ConfigError{
			Field:   "key",
			Message: "--auth requires a static key file",
			Hint:    "pass --key node.key; the file is created if it does not exist",
		}
	}
	if _, err := noise.ParseTrusted(c.TrustedKeys); err != nil {
		return &nerrors.ConfigError{Field: "trusted-key", Message: err.Error()}
	}

	if c.Once && c.Resolve {
		return &nerrors.ConfigError{Field: "once", Message: "--once and --resolve are mutually exclusive"}
	}
	return nil
}

// String renders the effective configuration for --dry-run.
func (c *Config) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "peers:            %s\n", strings.Join(c.Peers, ", "))
	fmt.Fprintf(&b, "role:             %s\n", c.Role)
	fmt.Fprintf(&b, "network id:       %s\n", c.NetworkID)
	fmt.Fprintf(&b, "auth:             %v\n", c.Auth)
	fmt.Fprintf(&b, "listen:           %s\n", orNone(c.Listen))
	fmt.Fprintf(&b, "interval:         %s\n", c.Interval)
	fmt.Fprintf(&b, "dns timeout:      %s\n", c.DNSTimeout)
	fmt.Fprintf(&b, "connect timeout:  %s\n", c.ConnectTimeout)
	fmt.Fprintf(&b, "dns servers:      %s\n", orNone(strings.Join(c.Nameservers(), ", ")))
	fmt.Fprintf(&b, "metrics:          %s\n", orNone(c.MetricsAddr))
	return b.String()
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}
