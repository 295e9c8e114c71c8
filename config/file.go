package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	nerrors "peerkeep/internal/errors"
)

// fileConfig mirrors the TOML file layout.  Durations are strings so a
// file can say "3s" or "30".
type fileConfig struct {
	Peers        []string `toml:"peers"`
	Role         string   `toml:"role"`
	Auth         bool     `toml:"auth"`
	NetworkID    string   `toml:"network_id"`
	ProtocolHint string   `toml:"protocol"`

	Listen      string   `toml:"listen"`
	Key         string   `toml:"key"`
	TrustedKeys []string `toml:"trusted_keys"`

	Interval       string `toml:"interval"`
	DNSTimeout     string `toml:"dns_timeout"`
	ConnectTimeout string `toml:"connect_timeout"`

	DNS struct {
		Servers         []string `toml:"servers"`
		IPv6            bool     `toml:"ipv6"`
		BreakerFailures int      `toml:"breaker_failures"`
		BreakerReset    string   `toml:"breaker_reset"`
	} `toml:"dns"`

	MetricsAddr string `toml:"metrics_addr"`
	Verbose     int    `toml:"verbose"`
}

// LoadFile overlays the TOML file at path onto cfg.  Only keys present
// in the file override cfg; unknown keys are rejected.
func LoadFile(cfg *Config, path string) error {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return &nerrors.ConfigError{Field: "config", Value: path, Message: err.Error()}
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return &nerrors.ConfigError{
			Field:   "config",
			Value:   path,
			Message: "unknown keys: " + strings.Join(keys, ", "),
		}
	}

	if meta.IsDefined("peers") {
		cfg.Peers = raw.Peers
	}
	if meta.IsDefined("role") {
		cfg.Role = strings.TrimSpace(raw.Role)
	}
	if meta.IsDefined("auth") {
		cfg.Auth = raw.Auth
	}
	if meta.IsDefined("network_id") {
		cfg.NetworkID = strings.TrimSpace(raw.NetworkID)
	}
	if meta.IsDefined("protocol") {
		cfg.ProtocolHint = strings.TrimSpace(raw.ProtocolHint)
	}
	if meta.IsDefined("listen") {
		cfg.Listen = strings.TrimSpace(raw.Listen)
	}
	if meta.IsDefined("key") {
		cfg.KeyPath = strings.TrimSpace(raw.Key)
	}
	if meta.IsDefined("trusted_keys") {
		cfg.TrustedKeys = raw.TrustedKeys
	}

	durations := []struct {
		key string
		raw string
		dst *time.Duration
	}{
		{"interval", raw.Interval, &cfg.Interval},
		{"dns_timeout", raw.DNSTimeout, &cfg.DNSTimeout},
		{"connect_timeout", raw.ConnectTimeout, &cfg.ConnectTimeout},
	}
	for _, d := range durations {
		if !meta.IsDefined(d.key) {
			continue
		}
		if err := setDuration(d.dst, d.raw); err != nil {
			return &nerrors.ConfigError{Field: d.key, Value: d.raw, Message: err.Error()}
		}
	}

	if meta.IsDefined("dns", "servers") {
		cfg.DNSServers = raw.DNS.Servers
	}
	if meta.IsDefined("dns", "ipv6") {
		cfg.DNSIPv6 = raw.DNS.IPv6
	}
	if meta.IsDefined("dns", "breaker_failures") {
		cfg.DNSBreakerFailures = raw.DNS.BreakerFailures
	}
	if meta.IsDefined("dns", "breaker_reset") {
		if err := setDuration(&cfg.DNSBreakerReset, raw.DNS.BreakerReset); err != nil {
			return &nerrors.ConfigError{Field: "dns.breaker_reset", Value: raw.DNS.BreakerReset, Message: err.Error()}
		}
	}

	if meta.IsDefined("metrics_addr") {
		cfg.MetricsAddr = strings.TrimSpace(raw.MetricsAddr)
	}
	if meta.IsDefined("verbose") {
		cfg.Verbose = raw.Verbose
	}
	return nil
}

func setDuration(dst *time.Duration, s string) error {
	d, err := parseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	*dst = d
	return nil
}
