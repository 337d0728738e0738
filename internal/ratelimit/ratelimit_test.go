package ratelimit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow_PerClientAddress(t *testing.T) {
	tests := []struct {
		name     string
		burst    int
		clients  []string
		wantPass int
	}{
		{name: "burst from one client", burst: 3, clients: []string{"10.0.0.1", "10.0.0.1", "10.0.0.1"}, wantPass: 3},
		{name: "client over burst", burst: 2, clients: []string{"10.0.0.1", "10.0.0.1", "10.0.0.1", "10.0.0.1"}, wantPass: 2},
		{name: "clients have separate buckets", burst: 1, clients: []string{"10.0.0.1", "10.0.0.2", "10.0.0.1"}, wantPass: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rl := New(0.001, tt.burst)
			defer rl.Stop()

			passed := 0
			for _, c := range tt.clients {
				if rl.Allow(c) {
					passed++
				}
			}
			assert.Equal(t, tt.wantPass, passed)
		})
	}
}

// catalogHost mirrors how remote catalog fetches key the limiter.
func catalogHost(t *testing.T, rawURL string) string {
	t.Helper()
	u, err := url.Parse(rawURL)
	require.NoError(t, err)
	return u.Host
}

func TestWait_SpacesFetchesToOneHost(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	rl := New(10, 1)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	host := catalogHost(t, srv.URL+"/exercises.json")
	fetch := func() {
		require.NoError(t, rl.Wait(ctx, host))
		resp, err := http.Get(srv.URL + "/exercises.json")
		require.NoError(t, err)
		_ = resp.Body.Close()
	}

	start := time.Now()
	fetch()
	assert.Less(t, time.Since(start), 100*time.Millisecond, "first fetch uses the burst")

	start = time.Now()
	fetch()
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond, "second fetch waits for a token")

	assert.Equal(t, int32(2), hits.Load())
	assert.Equal(t, 1, rl.Len())
}

func TestWait_HostsAreIndependent(t *testing.T) {
	rl := New(0.001, 1)
	defer rl.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, rl.Wait(ctx, catalogHost(t, "https://cdn-a.example.com/exercises.json")))

	start := time.Now()
	require.NoError(t, rl.Wait(ctx, catalogHost(t, "https://cdn-b.example.com/exercises.json")))
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, 2, rl.Len())
}

func TestWait_ContextCanceled(t *testing.T) {
	rl := New(0.1, 1)
	defer rl.Stop()

	host := catalogHost(t, "https://catalog.example.com/exercises.json")
	require.True(t, rl.Allow(host))

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.Error(t, rl.Wait(ctx, host))
}

func TestSweep_IdleKeys(t *testing.T) {
	now := time.Now()
	rl := New(1, 1, WithIdleTTL(time.Minute), WithClock(func() time.Time { return now }))
	defer rl.Stop()

	rl.Allow("old")
	now = now.Add(45 * time.Second)
	rl.Allow("recent")
	require.Equal(t, 2, rl.Len())

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, rl.Sweep())
	assert.Equal(t, 1, rl.Len())

	// A swept key starts over with a full burst.
	assert.True(t, rl.Allow("old"))
}

func TestStop_Idempotent(t *testing.T) {
	rl := New(1, 1)
	rl.Stop()
	assert.NotPanics(t, rl.Stop)
}
