// Package cmd wires up the CLI flags and dispatches to the core modes.
package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"peerkeep/config"
	"peerkeep/internal/core"
	"peerkeep/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X peerkeep/cmd.version=2.0.0"
var version = "0.1.0" //nolint:gochecknoglobals

// flagValues holds raw flag values; they are applied over the file and
// environment layers only when set on the command line.
type flagValues struct {
	role, networkID, protocol string
	listen, key, metricsAddr  string
	configPath                string
	auth, ipv6                bool
	interval, dnsTimeout      time.Duration
	connectTimeout            time.Duration
	dnsServers, trustedKeys   []string
	breakerFailures           int
	verbose                   int
	once, resolve, dryRun     bool
	showVersion, showHelp     bool
}

// Execute parses args and runs the appropriate peerkeep mode.
func Execute(ctx context.Context, args []string) error {
	var fv flagValues
	fs := newFlagSet(&fv)

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fv.showHelp || (len(args) == 0 && !configuredByEnv()) {
		printUsage(fs)
		return nil
	}
	if fv.showVersion {
		fmt.Printf("peerkeep %s\n", version)
		return nil
	}

	cfg, err := buildConfig(fs, &fv)
	if err != nil {
		return err
	}
	if fv.dryRun {
		fmt.Print(cfg.String())
		return nil
	}

	// ── build and run ────────────────────────────────────────────
	logger := util.NewLogger(cfg.Verbose)
	core.Version = version

	mode, err := core.Build(cfg, logger)
	if err != nil {
		return err
	}
	return mode.Run(ctx)
}

func newFlagSet(fv *flagValues) *flag.FlagSet {
	fs := flag.NewFlagSet("peerkeep", flag.ContinueOnError)

	// ── node ─────────────────────────────────────────────────────
	fs.StringVarP(&fv.role, "role", "r", config.DefaultRole, "Local node role")
	fs.BoolVarP(&fv.auth, "auth", "a", false, "Authenticate peer links with Noise")
	fs.StringVarP(&fv.listen, "listen", "l", "", "Accept inbound peers on host:port")
	fs.StringVar(&fv.networkID, "network-id", config.DefaultNetworkID, "Network id exchanged in handshakes")
	fs.StringVar(&fv.protocol, "protocol", "", "Protocol hint sent in outbound handshakes")
	fs.StringVarP(&fv.key, "key", "k", "", "Static key file (created if missing)")
	fs.StringSliceVar(&fv.trustedKeys, "trusted-key", nil, "Accept only these hex public keys (repeatable)")

	// ── timing ───────────────────────────────────────────────────
	fs.DurationVarP(&fv.interval, "interval", "i", config.DefaultInterval, "Wait between reconnection cycles")
	fs.DurationVar(&fv.dnsTimeout, "dns-timeout", config.DefaultDNSTimeout, "DNS seed query timeout")
	fs.DurationVarP(&fv.connectTimeout, "connect-timeout", "w", config.DefaultConnectTimeout, "Dial and handshake timeout")

	// ── DNS seeding ──────────────────────────────────────────────
	fs.StringSliceVar(&fv.dnsServers, "dns-server", nil, "Nameserver for seed queries (repeatable, default resolv.conf)")
	fs.BoolVar(&fv.ipv6, "dns-ipv6", false, "Also query AAAA records")
	fs.IntVar(&fv.breakerFailures, "dns-breaker-failures", 0, "Open the DNS breaker after N failures (0 disables)")

	// ── output / modes ───────────────────────────────────────────
	fs.StringVar(&fv.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on host:port")
	fs.StringVarP(&fv.configPath, "config", "c", "", "TOML config file")
	fs.BoolVar(&fv.once, "once", false, "Run one cycle per peer and exit")
	fs.BoolVar(&fv.resolve, "resolve", false, "Print DNS seed candidates and exit")
	fs.BoolVar(&fv.dryRun, "dry-run", false, "Validate configuration and print it")
	fs.CountVarP(&fv.verbose, "verbose", "v", "Increase verbosity (repeatable)")

	fs.BoolVar(&fv.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&fv.showHelp, "help", "h", false, "Show this help")

	fs.Usage = func() { printUsage(fs) }
	return fs
}

// buildConfig layers defaults < config file < environment < flags,
// takes peers from the positional arguments, and validates the result.
func buildConfig(fs *flag.FlagSet, fv *flagValues) (*config.Config, error) {
	cfg := config.Default()
	path := fv.configPath
	if path == "" {
		path = os.Getenv("PEERKEEP_CONFIG")
	}
	if path != "" {
		if err := config.LoadFile(cfg, path); err != nil {
			return nil, err
		}
		cfg.ConfigPath = path
	}
	config.LoadFromEnv(cfg)
	applyFlags(fs, fv, cfg)

	if rest := fs.Args(); len(rest) > 0 {
		cfg.Peers = rest
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ── helpers ──────────────────────────────────────────────────────────

// applyFlags copies every flag the user set explicitly onto cfg.
func applyFlags(fs *flag.FlagSet, fv *flagValues, cfg *config.Config) {
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("role", func() { cfg.Role = fv.role })
	set("auth", func() { cfg.Auth = fv.auth })
	set("listen", func() { cfg.Listen = fv.listen })
	set("network-id", func() { cfg.NetworkID = fv.networkID })
	set("protocol", func() { cfg.ProtocolHint = fv.protocol })
	set("key", func() { cfg.KeyPath = fv.key })
	set("trusted-key", func() { cfg.TrustedKeys = fv.trustedKeys })
	set("interval", func() { cfg.Interval = fv.interval })
	set("dns-timeout", func() { cfg.DNSTimeout = fv.dnsTimeout })
	set("connect-timeout", func() { cfg.ConnectTimeout = fv.connectTimeout })
	set("dns-server", func() { cfg.DNSServers = fv.dnsServers })
	set("dns-ipv6", func() { cfg.DNSIPv6 = fv.ipv6 })
	set("dns-breaker-failures", func() { cfg.DNSBreakerFailures = fv.breakerFailures })
	set("metrics-addr", func() { cfg.MetricsAddr = fv.metricsAddr })
	set("verbose", func() { cfg.Verbose = fv.verbose })

	cfg.Once = fv.once
	cfg.Resolve = fv.resolve
	cfg.DryRun = fv.dryRun
}

// configuredByEnv reports whether peers can come from the environment
// or a config file, so running without arguments is meaningful.
func configuredByEnv() bool {
	return os.Getenv("PEERKEEP_PEERS") != "" || os.Getenv("PEERKEEP_CONFIG") != ""
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `peerkeep – persistent peer supervisor v%s

Keeps configured peers connected, reconnecting when links drop.
Harvesters re-discover their peer through DNS seeding every cycle.

Usage:
  peerkeep [options] <host:port> [host:port...]     Supervise peers
  peerkeep -l :8444 [options] [host:port...]        Also accept peers
  peerkeep --once [options] <host:port...>          One cycle, then exit
  peerkeep --resolve [options] <host:port...>       Show DNS candidates

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  PEERKEEP_PEERS, PEERKEEP_ROLE, PEERKEEP_CONFIG, ... override the config
  file; command-line flags override both.

Examples:
  peerkeep node.example:8444                            Full node
  peerkeep -r harvester farmer.example:8447             Harvester with DNS seeding
  peerkeep -a -k node.key -l :8444 1.2.3.4:8444         Authenticated links
  peerkeep --resolve --dns-server 1.1.1.1 seed.example:8444
`)
}
