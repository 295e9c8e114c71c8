package config

// loader.go - configuration loading from environment variables.
//
// Precedence order (highest wins):
//   1. CLI flags  (handled by cmd/root.go)
//   2. Environment variables  (this file)
//   3. Config file  (file.go)
//   4. Defaults   (defaults.go)

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the PEERKEEP_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).  Lists are
// comma-separated.  Durations accept Go syntax ("3s") or whole seconds.

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// CLI flag parsing so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := envList("PEERKEEP_PEERS"); len(v) > 0 {
		cfg.Peers = v
	}
	if v := os.Getenv("PEERKEEP_ROLE"); v != "" {
		cfg.Role = v
	}
	if envBool("PEERKEEP_AUTH") {
		cfg.Auth = true
	}
	if v := os.Getenv("PEERKEEP_NETWORK_ID"); v != "" {
		cfg.NetworkID = v
	}
	if v := os.Getenv("PEERKEEP_PROTOCOL"); v != "" {
		cfg.ProtocolHint = v
	}

	// Node
	if v := os.Getenv("PEERKEEP_LISTEN"); v != "" {
		cfg.Listen = v
	}
	if v := os.Getenv("PEERKEEP_KEY"); v != "" {
		cfg.KeyPath = v
	}
	if v := envList("PEERKEEP_TRUSTED_KEYS"); len(v) > 0 {
		cfg.TrustedKeys = v
	}

	// Timing
	if v := envDuration("PEERKEEP_INTERVAL"); v > 0 {
		cfg.Interval = v
	}
	if v := envDuration("PEERKEEP_DNS_TIMEOUT"); v > 0 {
		cfg.DNSTimeout = v
	}
	if v := envDuration("PEERKEEP_CONNECT_TIMEOUT"); v > 0 {
		cfg.ConnectTimeout = v
	}

	// DNS seeding
	if v := envList("PEERKEEP_DNS_SERVERS"); len(v) > 0 {
		cfg.DNSServers = v
	}
	if envBool("PEERKEEP_DNS_IPV6") {
		cfg.DNSIPv6 = true
	}
	if v := envInt("PEERKEEP_DNS_BREAKER_FAILURES"); v > 0 {
		cfg.DNSBreakerFailures = v
	}
	if v := envDuration("PEERKEEP_DNS_BREAKER_RESET"); v > 0 {
		cfg.DNSBreakerReset = v
	}

	// Output
	if v := os.Getenv("PEERKEEP_METRICS_ADDR"); v != "" {
		cfg.MetricsAddr = v
	}
	if v := envInt("PEERKEEP_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}

func envList(key string) []string {
	return splitList(os.Getenv(key))
}

func envDuration(key string) time.Duration {
	d, err := parseDuration(os.Getenv(key))
	if err != nil {
		return 0
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// parseDuration accepts "1m30s" or a bare number of seconds.
func parseDuration(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(s)
}
