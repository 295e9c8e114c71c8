package config

import (
	"strings"
	"testing"
	"time"

	nerrors "peerkeep/internal/errors"
	"peerkeep/internal/peer"
)

func validConfig() *Config {
	c := Default()
	c.Peers = []string{"node.example:8444"}
	return c
}

// ── Defaults ─────────────────────────────────────────────────────────

func TestDefault(t *testing.T) {
	c := Default()
	if c.Interval != 3*time.Second {
		t.Errorf("Interval = %v, want 3s", c.Interval)
	}
	if c.DNSTimeout != 30*time.Second {
		t.Errorf("DNSTimeout = %v, want 30s", c.DNSTimeout)
	}
	if c.Role != "full_node" || c.NetworkID != "mainnet" {
		t.Errorf("Role/NetworkID = %q/%q", c.Role, c.NetworkID)
	}
	if c.DNSBreakerFailures != 0 {
		t.Error("DNS breaker should be disabled by default")
	}
}

// ── Accessors ────────────────────────────────────────────────────────

func TestPeerAddresses(t *testing.T) {
	c := &Config{Peers: []string{"seed.example:8444", " 1.2.3.4:8444 ", "[::1]:8444"}}
	got, err := c.PeerAddresses()
	if err != nil {
		t.Fatal(err)
	}
	want := []peer.Address{
		peer.NewAddress("seed.example", 8444),
		peer.NewAddress("1.2.3.4", 8444),
		peer.NewAddress("::1", 8444),
	}
	if len(got) != len(want) {
		t.Fatalf("got %d peers, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("peer %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestNodeRole(t *testing.T) {
	tests := []struct {
		in      string
		want    peer.NodeRole
		wantErr bool
	}{
		{"full_node", peer.RoleFullNode, false},
		{"HARVESTER", peer.RoleHarvester, false},
		{"data-layer", peer.RoleDataLayer, false},
		{"miner", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			c := &Config{Role: tt.in}
			got, err := c.NodeRole()
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr = %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNameservers(t *testing.T) {
	c := &Config{DNSServers: []string{"10.0.0.53", "10.0.0.54:5353", "", "::1", "[2001:db8::1]"}}
	got := c.Nameservers()
	want := []string{"10.0.0.53:53", "10.0.0.54:5353", "[::1]:53", "[2001:db8::1]:53"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("got %v, want %v", got, want)
	}
}

// ── Validation ───────────────────────────────────────────────────────

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		field   string // empty means valid
		wantSub string
	}{
		{"valid", func(*Config) {}, "", ""},
		{"listen only", func(c *Config) { c.Peers = nil; c.Listen = ":8444" }, "", ""},
		{"no peers", func(c *Config) { c.Peers = nil }, "peer", "hint:"},
		{"once needs peers", func(c *Config) { c.Peers = nil; c.Listen = ":8444"; c.Once = true }, "peer", ""},
		{"bad peer", func(c *Config) { c.Peers = []string{"node.example"} }, "peer", "host:port"},
		{"bad port", func(c *Config) { c.Peers = []string{"node.example:0"} }, "peer", ""},
		{"bad role", func(c *Config) { c.Role = "miner" }, "role", "harvester"},
		{"empty network", func(c *Config) { c.NetworkID = " " }, "network-id", ""},
		{"zero interval", func(c *Config) { c.Interval = 0 }, "interval", ""},
		{"zero dns timeout", func(c *Config) { c.DNSTimeout = 0 }, "dns-timeout", ""},
		{"negative connect timeout", func(c *Config) { c.ConnectTimeout = -time.Second }, "connect-timeout", ""},
		{"negative breaker", func(c *Config) { c.DNSBreakerFailures = -1 }, "dns-breaker-failures", ""},
		{"breaker no reset", func(c *Config) { c.DNSBreakerFailures = 3; c.DNSBreakerReset = 0 }, "dns-breaker-reset", ""},
		{"bad listen", func(c *Config) { c.Listen = "8444" }, "listen", "hint:"},
		{"auth without key", func(c *Config) { c.Auth = true }, "key", "hint:"},
		{"auth with key", func(c *Config) { c.Auth = true; c.KeyPath = "node.key" }, "", ""},
		{"bad trusted key", func(c *Config) { c.TrustedKeys = []string{"zz"} }, "trusted-key", ""},
		{"once and resolve", func(c *Config) { c.Once = true; c.Resolve = true }, "once", "mutually exclusive"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()

			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ce *nerrors.ConfigError
			if !nerrors.As(err, &ce) {
				t.Fatalf("want *ConfigError, got %v", err)
			}
			if ce.Field != tt.field {
				t.Errorf("Field = %q, want %q", ce.Field, tt.field)
			}
			if tt.wantSub != "" && !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q should contain %q", err.Error(), tt.wantSub)
			}
		})
	}
}

func TestString(t *testing.T) {
	c := validConfig()
	s := c.String()
	for _, want := range []string{"node.example:8444", "full_node", "mainnet", "3s", "(none)"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() missing %q:\n%s", want, s)
		}
	}
}
