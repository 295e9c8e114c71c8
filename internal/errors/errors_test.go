package errors

import (
	"context"
	"fmt"
	"io"
	"net"
	"testing"
)

func TestNetworkError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  NetworkError
		want string
	}{
		{
			name: "retryable",
			err:  NetworkError{Op: "dial", Addr: "203.0.113.5:8444", Err: io.EOF, Retryable: true},
			want: "dial 203.0.113.5:8444: EOF (retryable)",
		},
		{
			name: "non-retryable",
			err:  NetworkError{Op: "handshake", Addr: "1.2.3.4:8444", Err: fmt.Errorf("network id mismatch")},
			want: "handshake 1.2.3.4:8444: network id mismatch",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestNetworkError_Unwrap(t *testing.T) {
	err := &NetworkError{Op: "dial", Addr: "x", Err: io.EOF}
	if !Is(err, io.EOF) {
		t.Error("should unwrap to io.EOF")
	}
}

func TestResolveError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  *ResolveError
		want string
	}{
		{"system", WrapResolve("seed.example", "", ErrNoAddress), "resolve seed.example: no address records"},
		{"server", WrapResolve("seed.example", "10.0.0.53:53", ErrTimeout), "resolve seed.example via 10.0.0.53:53: operation timed out"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
			if !Is(tt.err, tt.err.Err) {
				t.Error("should unwrap to inner error")
			}
		})
	}
}

func TestConfigError_Format(t *testing.T) {
	tests := []struct {
		name string
		err  ConfigError
		want string
	}{
		{
			name: "with value and hint",
			err: ConfigError{
				Field:   "role",
				Value:   "miner",
				Message: "unknown node role",
				Hint:    "use full_node, harvester, farmer, timelord, introducer, wallet or data_layer",
			},
			want: "config: --role=miner: unknown node role\n  hint: use full_node, harvester, farmer, timelord, introducer, wallet or data_layer",
		},
		{
			name: "missing value no hint",
			err: ConfigError{
				Field:   "peer",
				Message: "at least one peer is required",
			},
			want: "config: --peer: at least one peer is required",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.err.Error(); got != tt.want {
				t.Errorf("got:\n%s\nwant:\n%s", got, tt.want)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	inner := fmt.Errorf("connection refused")
	err := Wrap("dial", "10.0.0.1:8444", inner)

	if err.Op != "dial" || err.Addr != "10.0.0.1:8444" {
		t.Errorf("wrong fields: Op=%q Addr=%q", err.Op, err.Addr)
	}
	if !Is(err, inner) {
		t.Error("should unwrap to inner error")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: true}, true},
		{"non-retryable network", &NetworkError{Op: "dial", Addr: "x", Err: io.EOF, Retryable: false}, false},
		{"plain error", fmt.Errorf("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.want {
				t.Errorf("IsRetryable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsOperational(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"network", Wrap("dial", "x", fmt.Errorf("refused")), true},
		{"resolve", WrapResolve("seed.example", "", ErrNoAddress), true},
		{"wrapped resolve", fmt.Errorf("seed: %w", WrapResolve("h", "", io.EOF)), true},
		{"dns error", &net.DNSError{Err: "no such host", Name: "x", IsNotFound: true}, true},
		{"op error", &net.OpError{Op: "dial", Net: "tcp", Err: fmt.Errorf("refused")}, true},
		{"deadline", context.DeadlineExceeded, true},
		{"eof", io.EOF, true},
		{"circuit open", fmt.Errorf("dns: %w", ErrCircuitOpen), true},
		{"handshake", ErrHandshake, true},
		{"cancelled", context.Canceled, false},
		{"cancelled dial", Wrap("dial", "x", context.Canceled), false},
		{"defect", fmt.Errorf("nil registry"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsOperational(tt.err); got != tt.want {
				t.Errorf("IsOperational(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}

func TestClassifyRetryable_NetOpError(t *testing.T) {
	opErr := &net.OpError{
		Op:  "dial",
		Net: "tcp",
		Err: &net.DNSError{IsTemporary: true},
	}
	if !classifyRetryable(opErr) {
		t.Error("temporary OpError should be retryable")
	}
}

func TestSentinels(t *testing.T) {
	sentinels := []error{
		ErrNotConnected, ErrCircuitOpen, ErrTimeout,
		ErrAuthFailed, ErrHandshake, ErrNoAddress,
	}
	for i, a := range sentinels {
		for j, b := range sentinels {
			if i != j && Is(a, b) {
				t.Errorf("sentinel %d and %d should not match", i, j)
			}
		}
	}
}
