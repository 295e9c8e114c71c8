package resolver

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nerrors "peerkeep/internal/errors"
)

// startDNS runs an in-process nameserver on a loopback UDP port.
func startDNS(t *testing.T, zone map[string][]string) string {
	t.Helper()

	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	handler := dns.HandlerFunc(func(w dns.ResponseWriter, req *dns.Msg) {
		resp := new(dns.Msg)
		resp.SetReply(req)
		q := req.Question[0]
		records, ok := zone[q.Name]
		if !ok {
			resp.SetRcode(req, dns.RcodeNameError)
			_ = w.WriteMsg(resp)
			return
		}
		for _, rec := range records {
			rr, err := dns.NewRR(rec)
			if err != nil {
				continue
			}
			if rr.Header().Rrtype == q.Qtype {
				resp.Answer = append(resp.Answer, rr)
			}
		}
		_ = w.WriteMsg(resp)
	})

	started := make(chan struct{})
	srv := &dns.Server{PacketConn: pc, Handler: handler, NotifyStartedFunc: func() { close(started) }}
	go func() { _ = srv.ActivateAndServe() }()
	<-started
	t.Cleanup(func() { _ = srv.Shutdown() })

	return pc.LocalAddr().String()
}

var seedZone = map[string][]string{
	"seed.example.": {
		"seed.example. 60 IN A 203.0.113.5",
		"seed.example. 60 IN A 203.0.113.6",
		"seed.example. 60 IN A 203.0.113.7",
		"seed.example. 60 IN AAAA 2001:db8::5",
	},
	"empty.example.": {},
}

func TestDNS_ResolveKeepsAnswerOrder(t *testing.T) {
	addr := startDNS(t, seedZone)
	r, err := NewDNS(DNSConfig{Servers: []string{addr}, Timeout: time.Second})
	require.NoError(t, err)

	ips, err := r.Resolve(context.Background(), "seed.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.5", "203.0.113.6", "203.0.113.7"}, ips)
}

func TestDNS_ResolveIPv6(t *testing.T) {
	addr := startDNS(t, seedZone)
	r, err := NewDNS(DNSConfig{Servers: []string{addr}, Timeout: time.Second, IPv6: true})
	require.NoError(t, err)

	ips, err := r.Resolve(context.Background(), "seed.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.5", "203.0.113.6", "203.0.113.7", "2001:db8::5"}, ips)
}

func TestDNS_NXDomain(t *testing.T) {
	addr := startDNS(t, seedZone)
	r, err := NewDNS(DNSConfig{Servers: []string{addr}, Timeout: time.Second})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "missing.example")
	require.Error(t, err)

	var dnsErr *net.DNSError
	require.True(t, nerrors.As(err, &dnsErr))
	assert.True(t, dnsErr.IsNotFound)
	assert.True(t, nerrors.IsOperational(err))
}

func TestDNS_NoRecords(t *testing.T) {
	addr := startDNS(t, seedZone)
	r, err := NewDNS(DNSConfig{Servers: []string{addr}, Timeout: time.Second})
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "empty.example")
	require.Error(t, err)
	assert.True(t, nerrors.Is(err, nerrors.ErrNoAddress))
}

func TestDNS_Timeout(t *testing.T) {
	// A socket nobody reads from: every query times out.
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer pc.Close()

	r, err := NewDNS(DNSConfig{Servers: []string{pc.LocalAddr().String()}, Timeout: 100 * time.Millisecond})
	require.NoError(t, err)

	start := time.Now()
	_, err = r.Resolve(context.Background(), "seed.example")
	require.Error(t, err)
	assert.True(t, nerrors.IsOperational(err), "timeout should be operational: %v", err)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestDNS_FallsThroughToNextServer(t *testing.T) {
	dead, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)
	defer dead.Close()
	live := startDNS(t, seedZone)

	r, err := NewDNS(DNSConfig{
		Servers: []string{dead.LocalAddr().String(), live},
		Timeout: 100 * time.Millisecond,
	})
	require.NoError(t, err)

	ips, err := r.Resolve(context.Background(), "seed.example")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", ips[0])
}

func TestDNS_IPLiteralSkipsQuery(t *testing.T) {
	r, err := NewDNS(DNSConfig{Servers: []string{"127.0.0.1:1"}})
	require.NoError(t, err)

	ips, err := r.Resolve(context.Background(), "198.51.100.1")
	require.NoError(t, err)
	assert.Equal(t, []string{"198.51.100.1"}, ips)
}

func TestNewDNS_ResolvConf(t *testing.T) {
	path := filepath.Join(t.TempDir(), "resolv.conf")
	require.NoError(t, os.WriteFile(path, []byte("nameserver 10.0.0.53\nnameserver 2001:db8::53\n"), 0o600))

	r, err := NewDNS(DNSConfig{ResolvConf: path})
	require.NoError(t, err)
	assert.Equal(t, []string{"10.0.0.53:53", "[2001:db8::53]:53"}, r.Servers())

	_, err = NewDNS(DNSConfig{ResolvConf: filepath.Join(t.TempDir(), "missing")})
	assert.Error(t, err)
}
