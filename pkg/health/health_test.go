package health

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePinger struct {
	mu  sync.Mutex
	err error
}

func (f *fakePinger) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *fakePinger) set(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func passing(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func get(t *testing.T, handler http.HandlerFunc, path string) *httptest.ResponseRecorder {
	t.Helper()
	w := httptest.NewRecorder()
	handler(w, httptest.NewRequest(http.MethodGet, path, nil))
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	return w
}

func TestLiveEndpoint(t *testing.T) {
	tests := []struct {
		name     string
		check    CheckFunc
		runs     int
		wantCode int
		wantBody string
	}{
		{
			name:     "no runs yet",
			check:    failing("boom"),
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok"}`,
		},
		{
			name:     "below failure threshold",
			check:    failing("boom"),
			runs:     2,
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok"}`,
		},
		{
			name:     "at failure threshold",
			check:    failing("boom"),
			runs:     3,
			wantCode: http.StatusServiceUnavailable,
			wantBody: `{"status":"unhealthy","checks":{"db":"boom"}}`,
		},
		{
			name:     "passing",
			check:    passing,
			runs:     5,
			wantCode: http.StatusOK,
			wantBody: `{"status":"ok"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := New()
			h.AddLivenessCheck("db", time.Second, tt.check)
			for range tt.runs {
				h.liveness[0].run(context.Background())
			}

			w := get(t, h.LiveEndpoint, "/livez")
			assert.Equal(t, tt.wantCode, w.Code)
			assert.JSONEq(t, tt.wantBody, w.Body.String())
		})
	}
}

func TestReadyEndpoint(t *testing.T) {
	h := New()
	h.AddReadinessCheckWithThresholds("postgres", time.Second, passing, Thresholds{Failure: 1, Success: 1})
	h.AddReadinessCheckWithThresholds("redis", time.Second, failing("refused"), Thresholds{Failure: 1, Success: 1})

	w := get(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"_readiness":"service is not ready"}}`, w.Body.String())

	h.SetReady(true)
	for _, p := range h.readiness {
		p.run(context.Background())
	}
	w = get(t, h.ReadyEndpoint, "/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.JSONEq(t, `{"status":"unhealthy","checks":{"redis":"refused"}}`, w.Body.String())
	assert.False(t, h.IsReady())
}

func TestReadyEndpoint_Drain(t *testing.T) {
	h := New()
	h.SetReady(true)
	assert.True(t, h.IsReady())
	assert.Equal(t, http.StatusOK, get(t, h.ReadyEndpoint, "/readyz").Code)

	h.SetReady(false)
	assert.False(t, h.IsReady())
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h.ReadyEndpoint, "/readyz").Code)
}

func TestProbeRecovers(t *testing.T) {
	pinger := &fakePinger{err: errors.New("down")}
	p := newProbe("redis", time.Second, PingCheck(pinger), Thresholds{Failure: 2, Success: 2})
	ctx := context.Background()

	p.run(ctx)
	p.run(ctx)
	require.Contains(t, p.failure(), "down")

	pinger.set(nil)
	p.run(ctx)
	assert.NotEmpty(t, p.failure(), "one success is below the success threshold")
	p.run(ctx)
	assert.Empty(t, p.failure())
}

func TestProbeTimeout(t *testing.T) {
	p := newProbe("slow", 10*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}, Thresholds{Failure: 1, Success: 1})

	p.run(context.Background())
	assert.Contains(t, p.failure(), "deadline exceeded")
}

func TestStartAndStop(t *testing.T) {
	pinger := &fakePinger{err: errors.New("refused")}
	h := New()
	h.AddReadinessCheckWithThresholds("postgres", time.Second, PingCheck(pinger), Thresholds{Failure: 1, Success: 1})
	h.SetReady(true)

	h.Start(context.Background(), 5*time.Millisecond)
	defer h.Stop()

	require.Eventually(t, func() bool { return !h.IsReady() }, time.Second, 5*time.Millisecond)

	pinger.set(nil)
	require.Eventually(t, h.IsReady, time.Second, 5*time.Millisecond)

	h.Stop()
	h.Stop()
}

func TestGoroutineCountCheck(t *testing.T) {
	require.NoError(t, GoroutineCountCheck(1<<20)(context.Background()))
	require.Error(t, GoroutineCountCheck(0)(context.Background()))
}
