package resolver

import (
	"context"
	"fmt"
	"net"
	"time"

	"github.com/miekg/dns"

	nerrors "peerkeep/internal/errors"
)

// DefaultResolvConf is where nameservers are read from when none are
// configured.
const DefaultResolvConf = "/etc/resolv.conf"

// FallbackServer is queried when no nameserver is configured and
// resolv.conf cannot be read.
const FallbackServer = "127.0.0.1:53"

// DNSConfig configures the seed resolver.
type DNSConfig struct {
	// Servers are "host:port" nameserver addresses.  Empty means the
	// servers listed in ResolvConf.
	Servers []string
	// ResolvConf defaults to DefaultResolvConf.
	ResolvConf string
	// Timeout bounds a single exchange with one server.
	Timeout time.Duration
	// IPv6 also queries AAAA records, appended after the A answers.
	IPv6 bool
}

// DNS queries nameservers directly for A (and optionally AAAA)
// records, preserving the order of the answer section.
type DNS struct {
	udp     *dns.Client
	tcp     *dns.Client
	servers []string
	ipv6    bool
}

// NewDNS builds a seed resolver.  It fails only when no nameserver can
// be determined.
func NewDNS(cfg DNSConfig) (*DNS, error) {
	servers := cfg.Servers
	if len(servers) == 0 {
		path := cfg.ResolvConf
		if path == "" {
			path = DefaultResolvConf
		}
		cc, err := dns.ClientConfigFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading nameservers from %s: %w", path, err)
		}
		for _, s := range cc.Servers {
			servers = append(servers, net.JoinHostPort(s, cc.Port))
		}
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("no nameservers configured")
	}

	return &DNS{
		udp:     &dns.Client{Net: "udp", Timeout: cfg.Timeout},
		tcp:     &dns.Client{Net: "tcp", Timeout: cfg.Timeout},
		servers: servers,
		ipv6:    cfg.IPv6,
	}, nil
}

// Servers returns the nameservers queried, in order.
func (d *DNS) Servers() []string { return append([]string(nil), d.servers...) }

// Resolve implements Resolver.
func (d *DNS) Resolve(ctx context.Context, host string) ([]string, error) {
	if net.ParseIP(host) != nil {
		return []string{host}, nil
	}
	name := dns.Fqdn(host)

	out, err := d.query(ctx, name, dns.TypeA)
	if err != nil {
		return nil, err
	}
	if d.ipv6 {
		v6, err := d.query(ctx, name, dns.TypeAAAA)
		if err != nil && len(out) == 0 {
			return nil, err
		}
		out = append(out, v6...)
	}
	if len(out) == 0 {
		return nil, nerrors.WrapResolve(host, d.servers[0], nerrors.ErrNoAddress)
	}
	return out, nil
}

// query asks each server in turn until one gives a usable answer.
// NXDOMAIN is authoritative and ends the search.
func (d *DNS) query(ctx context.Context, name string, qtype uint16) ([]string, error) {
	msg := new(dns.Msg)
	msg.SetQuestion(name, qtype)
	msg.RecursionDesired = true

	var lastErr error
	for _, server := range d.servers {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		in, _, err := d.udp.ExchangeContext(ctx, msg, server)
		if err == nil && in.Truncated {
			in, _, err = d.tcp.ExchangeContext(ctx, msg, server)
		}
		if err != nil {
			if ctx.Err() == context.Canceled {
				return nil, ctx.Err()
			}
			lastErr = nerrors.WrapResolve(name, server, err)
			continue
		}

		switch in.Rcode {
		case dns.RcodeSuccess:
			return answers(in), nil
		case dns.RcodeNameError:
			return nil, nerrors.WrapResolve(name, server,
				&net.DNSError{Err: "no such host", Name: name, Server: server, IsNotFound: true})
		default:
			lastErr = nerrors.WrapResolve(name, server,
				fmt.Errorf("server answered %s", dns.RcodeToString[in.Rcode]))
		}
	}
	return nil, lastErr
}

func answers(in *dns.Msg) []string {
	var out []string
	for _, rr := range in.Answer {
		switch v := rr.(type) {
		case *dns.A:
			out = append(out, v.A.String())
		case *dns.AAAA:
			out = append(out, v.AAAA.String())
		}
	}
	return out
}
