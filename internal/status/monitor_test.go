package status

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/acme/chat-webhook-gateway/internal/config"
	"github.com/acme/chat-webhook-gateway/pkg/logger"
)

func newTestMonitor(t *testing.T, endpoint string) (*Monitor, *Tracker) {
	t.Helper()
	lg, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	tr := NewTracker()
	m := NewMonitor(config.StatusConfig{
		HealthEndpoint: endpoint,
		ServiceName:    "webhook",
		ProbeInterval:  time.Second,
	}, tr, lg)
	return m, tr
}

func TestProbeHealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, tr := newTestMonitor(t, srv.URL)
	tr.SetStatus(false, "webhook")
	tr.IncrementRetryCount()

	if !m.probe(context.Background()) {
		t.Fatal("expected healthy probe")
	}

	snap := tr.Snapshot()
	if !snap.Connected || snap.RetryCount != 0 || len(snap.FailedServices) != 0 {
		t.Fatalf("unexpected state after recovery: %+v", snap)
	}
}

func TestProbeUnhealthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	m, tr := newTestMonitor(t, srv.URL)

	if m.probe(context.Background()) {
		t.Fatal("expected unhealthy probe")
	}

	snap := tr.Snapshot()
	if snap.Connected {
		t.Fatal("expected disconnected")
	}
	if snap.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", snap.RetryCount)
	}
	if len(snap.FailedServices) != 1 || snap.FailedServices[0] != "webhook" {
		t.Fatalf("expected webhook marked down, got %v", snap.FailedServices)
	}
}

func TestProbeUnreachable(t *testing.T) {
	m, tr := newTestMonitor(t, "http://127.0.0.1:1/healthz")

	if m.probe(context.Background()) {
		t.Fatal("expected failed probe")
	}
	if tr.Snapshot().Connected {
		t.Fatal("expected disconnected")
	}
}

func TestProbeFallsBackToGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	m, _ := newTestMonitor(t, srv.URL)
	if !m.probe(context.Background()) {
		t.Fatal("expected GET fallback to succeed")
	}
}

func TestWidenCapsAtMax(t *testing.T) {
	m, _ := newTestMonitor(t, "http://example.invalid")
	m.cfg.MaxProbeInterval = 90 * time.Second

	interval := m.baseInterval()
	for i := 0; i < 10; i++ {
		interval = m.widen(interval)
	}
	if interval != 90*time.Second {
		t.Fatalf("expected cap at 90s, got %s", interval)
	}
}
