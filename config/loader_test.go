package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadFromEnv_Peers(t *testing.T) {
	t.Setenv("PEERKEEP_PEERS", "seed.example:8444, 1.2.3.4:8444,,")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if len(cfg.Peers) != 2 || cfg.Peers[0] != "seed.example:8444" || cfg.Peers[1] != "1.2.3.4:8444" {
		t.Errorf("Peers = %q", cfg.Peers)
	}
}

func TestLoadFromEnv_Strings(t *testing.T) {
	t.Setenv("PEERKEEP_ROLE", "harvester")
	t.Setenv("PEERKEEP_NETWORK_ID", "testnet11")
	t.Setenv("PEERKEEP_LISTEN", ":8448")
	t.Setenv("PEERKEEP_KEY", "/var/lib/peerkeep/node.key")
	t.Setenv("PEERKEEP_METRICS_ADDR", "127.0.0.1:9100")
	t.Setenv("PEERKEEP_PROTOCOL", "chia/0.0.36")

	cfg := &Config{}
	LoadFromEnv(cfg)

	if cfg.Role != "harvester" {
		t.Errorf("Role = %q", cfg.Role)
	}
	if cfg.NetworkID != "testnet11" {
		t.Errorf("NetworkID = %q", cfg.NetworkID)
	}
	if cfg.Listen != ":8448" {
		t.Errorf("Listen = %q", cfg.Listen)
	}
	if cfg.KeyPath != "/var/lib/peerkeep/node.key" {
		t.Errorf("KeyPath = %q", cfg.KeyPath)
	}
	if cfg.MetricsAddr != "127.0.0.1:9100" {
		t.Errorf("MetricsAddr = %q", cfg.MetricsAddr)
	}
	if cfg.ProtocolHint != "chia/0.0.36" {
		t.Errorf("ProtocolHint = %q", cfg.ProtocolHint)
	}
}

func TestLoadFromEnv_Booleans(t *testing.T) {
	for _, v := range []string{"1", "true", "yes", "TRUE", "Yes"} {
		t.Run(v, func(t *testing.T) {
			t.Setenv("PEERKEEP_AUTH", v)
			t.Setenv("PEERKEEP_DNS_IPV6", v)
			cfg := &Config{}
			LoadFromEnv(cfg)
			if !cfg.Auth {
				t.Error("Auth should be true")
			}
			if !cfg.DNSIPv6 {
				t.Error("DNSIPv6 should be true")
			}
		})
	}
}

func TestLoadFromEnv_Durations(t *testing.T) {
	tests := []struct {
		key  string
		val  string
		get  func(*Config) time.Duration
		want time.Duration
	}{
		{"PEERKEEP_INTERVAL", "5", func(c *Config) time.Duration { return c.Interval }, 5 * time.Second},
		{"PEERKEEP_INTERVAL", "1500ms", func(c *Config) time.Duration { return c.Interval }, 1500 * time.Millisecond},
		{"PEERKEEP_DNS_TIMEOUT", "10s", func(c *Config) time.Duration { return c.DNSTimeout }, 10 * time.Second},
		{"PEERKEEP_CONNECT_TIMEOUT", "2", func(c *Config) time.Duration { return c.ConnectTimeout }, 2 * time.Second},
		{"PEERKEEP_DNS_BREAKER_RESET", "1m", func(c *Config) time.Duration { return c.DNSBreakerReset }, time.Minute},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.val, func(t *testing.T) {
			t.Setenv(tt.key, tt.val)
			cfg := &Config{}
			LoadFromEnv(cfg)
			if got := tt.get(cfg); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadFromEnv_DNS(t *testing.T) {
	t.Setenv("PEERKEEP_DNS_SERVERS", "10.0.0.53,10.0.0.54:5353")
	t.Setenv("PEERKEEP_DNS_BREAKER_FAILURES", "4")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if len(cfg.DNSServers) != 2 {
		t.Errorf("DNSServers = %q", cfg.DNSServers)
	}
	if cfg.DNSBreakerFailures != 4 {
		t.Errorf("DNSBreakerFailures = %d", cfg.DNSBreakerFailures)
	}
}

func TestLoadFromEnv_NoOverrideWhenEmpty(t *testing.T) {
	// Ensure no PEERKEEP_ vars are set.
	os.Clearenv()

	cfg := Default()
	cfg.Peers = []string{"original:8444"}
	LoadFromEnv(cfg)

	if len(cfg.Peers) != 1 || cfg.Peers[0] != "original:8444" {
		t.Errorf("Peers was overridden: %q", cfg.Peers)
	}
	if cfg.Interval != DefaultInterval {
		t.Errorf("Interval was overridden: %v", cfg.Interval)
	}
}

func TestLoadFromEnv_InvalidIgnored(t *testing.T) {
	t.Setenv("PEERKEEP_INTERVAL", "soon")
	t.Setenv("PEERKEEP_VERBOSE", "loud")
	cfg := Default()
	LoadFromEnv(cfg)
	if cfg.Interval != DefaultInterval {
		t.Errorf("Interval should keep its default for invalid input, got %v", cfg.Interval)
	}
	if cfg.Verbose != 0 {
		t.Errorf("Verbose should be 0 for invalid input, got %d", cfg.Verbose)
	}
}

func TestLoadFromEnv_Verbose(t *testing.T) {
	t.Setenv("PEERKEEP_VERBOSE", "2")
	cfg := &Config{}
	LoadFromEnv(cfg)
	if cfg.Verbose != 2 {
		t.Errorf("Verbose = %d, want 2", cfg.Verbose)
	}
}
