package status

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/acme/chat-webhook-gateway/internal/config"
	"github.com/acme/chat-webhook-gateway/pkg/logger"
)

// Monitor periodically probes a health endpoint and feeds the tracker. Probe
// cadence backs off on consecutive failures between the configured base and
// max intervals; the call manager itself never retries.
type Monitor struct {
	cfg     config.StatusConfig
	tracker *Tracker
	http    *http.Client
	logger  *logger.Logger
}

// NewMonitor builds a monitor for the configured health endpoint.
func NewMonitor(cfg config.StatusConfig, tracker *Tracker, lg *logger.Logger) *Monitor {
	timeout := cfg.ProbeTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Monitor{
		cfg:     cfg,
		tracker: tracker,
		http:    &http.Client{Timeout: timeout},
		logger:  lg,
	}
}

// Run probes until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) error {
	if m.cfg.HealthEndpoint == "" {
		m.logger.Info("status monitor: no health endpoint configured, not probing")
		<-ctx.Done()
		return ctx.Err()
	}

	interval := m.baseInterval()
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}

		if m.probe(ctx) {
			interval = m.baseInterval()
		} else {
			interval = m.widen(interval)
		}
		timer.Reset(interval)
	}
}

// probe reports whether the endpoint answered with a 2xx.
func (m *Monitor) probe(ctx context.Context) bool {
	m.tracker.SetRetrying(true)
	defer m.tracker.SetRetrying(false)

	ok := m.check(ctx)
	if ok {
		m.tracker.SetStatus(true, "")
		return true
	}

	m.tracker.SetStatus(false, m.serviceName())
	m.tracker.IncrementRetryCount()
	m.logger.Warn("status monitor: health probe failed",
		zap.String("endpoint", m.cfg.HealthEndpoint),
		zap.Int("retry_count", m.tracker.Snapshot().RetryCount),
	)
	return false
}

func (m *Monitor) check(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, m.cfg.HealthEndpoint, nil)
	if err != nil {
		return false
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	if resp.StatusCode == http.StatusMethodNotAllowed {
		return m.checkGet(ctx)
	}
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (m *Monitor) checkGet(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.cfg.HealthEndpoint, nil)
	if err != nil {
		return false
	}
	resp, err := m.http.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

func (m *Monitor) serviceName() string {
	if m.cfg.ServiceName != "" {
		return m.cfg.ServiceName
	}
	return "webhook"
}

func (m *Monitor) baseInterval() time.Duration {
	if m.cfg.ProbeInterval > 0 {
		return m.cfg.ProbeInterval
	}
	return 30 * time.Second
}

func (m *Monitor) widen(current time.Duration) time.Duration {
	next := current * 2
	max := m.cfg.MaxProbeInterval
	if max <= 0 {
		max = 5 * time.Minute
	}
	if next > max {
		return max
	}
	return next
}
