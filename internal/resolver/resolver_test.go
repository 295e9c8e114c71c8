package resolver

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nerrors "peerkeep/internal/errors"
	"peerkeep/internal/retry"
)

func TestFirst(t *testing.T) {
	calls := 0
	r := Func(func(_ context.Context, host string) ([]string, error) {
		calls++
		switch host {
		case "seed.example":
			return []string{"203.0.113.5", "203.0.113.6"}, nil
		case "empty.example":
			return nil, nil
		}
		return nil, nerrors.WrapResolve(host, "", errors.New("no such host"))
	})

	ip, err := First(context.Background(), r, "seed.example")
	require.NoError(t, err)
	assert.Equal(t, "203.0.113.5", ip)

	ip, err = First(context.Background(), r, "1.2.3.4")
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.4", ip)
	assert.Equal(t, 1, calls, "IP literals must not be looked up")

	_, err = First(context.Background(), r, "empty.example")
	assert.True(t, nerrors.Is(err, nerrors.ErrNoAddress))

	_, err = First(context.Background(), r, "bogus.invalid")
	assert.Error(t, err)
}

func TestSystem_Localhost(t *testing.T) {
	ips, err := System{}.Resolve(context.Background(), "localhost")
	require.NoError(t, err)
	require.NotEmpty(t, ips)
}

func TestSystem_IPLiteral(t *testing.T) {
	ips, err := System{}.Resolve(context.Background(), "::1")
	require.NoError(t, err)
	assert.Equal(t, []string{"::1"}, ips)
}

func TestSystem_Failure(t *testing.T) {
	_, err := System{}.Resolve(context.Background(), "host.invalid")
	require.Error(t, err)
	assert.True(t, nerrors.IsOperational(err))
}

func TestBreaker_OpensAfterFailures(t *testing.T) {
	mock := clock.NewMock()
	calls := 0
	failing := Func(func(_ context.Context, host string) ([]string, error) {
		calls++
		return nil, nerrors.WrapResolve(host, "10.0.0.53:53", nerrors.ErrTimeout)
	})
	b := WithBreaker(failing, retry.NewCircuitBreaker(&retry.CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Minute,
		Clock:        mock,
	}))

	for i := 0; i < 2; i++ {
		_, err := b.Resolve(context.Background(), "seed.example")
		require.Error(t, err)
	}
	assert.Equal(t, retry.StateOpen, b.State())

	_, err := b.Resolve(context.Background(), "seed.example")
	require.Error(t, err)
	assert.True(t, nerrors.Is(err, nerrors.ErrCircuitOpen))
	assert.True(t, nerrors.IsOperational(err))
	assert.Equal(t, 2, calls, "open circuit must not reach the resolver")

	mock.Add(2 * time.Minute)
	_, _ = b.Resolve(context.Background(), "seed.example")
	assert.Equal(t, 3, calls)
}

func TestBreaker_PassesThroughSuccess(t *testing.T) {
	ok := Func(func(context.Context, string) ([]string, error) {
		return []string{"203.0.113.5"}, nil
	})
	b := WithBreaker(ok, retry.NewCircuitBreaker(nil))

	ips, err := b.Resolve(context.Background(), "seed.example")
	require.NoError(t, err)
	assert.Equal(t, []string{"203.0.113.5"}, ips)
	assert.Equal(t, retry.StateClosed, b.State())
}
