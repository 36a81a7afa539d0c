package monitoring

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/cafe-sync/internal/config"
)

func TestChecker_RunStopsOnCancel(t *testing.T) {
	cfg := config.MonitoringConfig{
		CheckIntervalSecs:    1,
		LookbackWindowHours:  24,
		FailureRateThreshold: 0.5,
		StaleAfterHours:      36,
	}
	checker := NewChecker(fixedCollector(&fakeSource{}), NewAlerter(cfg), cfg)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		checker.Run(ctx)
		close(done)
	}()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Checker.Run did not stop after context cancellation")
	}
}

func TestChecker_DefaultInterval(t *testing.T) {
	checker := NewChecker(fixedCollector(&fakeSource{}), NewAlerter(config.MonitoringConfig{}), config.MonitoringConfig{
		CheckIntervalSecs: 0,
	})
	assert.NotNil(t, checker)

	// Start and immediately cancel to verify it doesn't panic.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	checker.Run(ctx)
}

func TestChecker_CheckSendsAlerts(t *testing.T) {
	var received atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		received.Add(1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer ts.Close()

	cfg := config.MonitoringConfig{
		WebhookURL:           ts.URL,
		LookbackWindowHours:  24,
		FailureRateThreshold: 0.5,
		StaleAfterHours:      36,
	}
	checker := NewChecker(fixedCollector(&fakeSource{}), NewAlerter(cfg), cfg)

	alerts := checker.Check(context.Background())
	require.Len(t, alerts, 1)
	assert.Equal(t, AlertStaleSync, alerts[0].Type)
	assert.Equal(t, int32(1), received.Load())
}

func TestChecker_CheckHealthy(t *testing.T) {
	last := collectedAt.Add(-time.Hour)
	cfg := config.MonitoringConfig{LookbackWindowHours: 24, FailureRateThreshold: 0.5, StaleAfterHours: 36}
	checker := NewChecker(fixedCollector(&fakeSource{lastSuccess: &last}), NewAlerter(cfg), cfg)

	assert.Empty(t, checker.Check(context.Background()))
}

func TestChecker_Status(t *testing.T) {
	last := collectedAt.Add(-time.Hour)
	cfg := config.MonitoringConfig{LookbackWindowHours: 24, FailureRateThreshold: 0.5, StaleAfterHours: 36}

	healthy := NewChecker(fixedCollector(&fakeSource{lastSuccess: &last, cafes: 50}), NewAlerter(cfg), cfg)
	st, err := healthy.Status(context.Background())
	require.NoError(t, err)
	assert.True(t, st.Healthy)
	assert.NotNil(t, st.Alerts)
	assert.Empty(t, st.Alerts)
	assert.Equal(t, 50, st.Snapshot.Cafes)

	stale := NewChecker(fixedCollector(&fakeSource{}), NewAlerter(cfg), cfg)
	st, err = stale.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, st.Healthy)
	require.Len(t, st.Alerts, 1)
	assert.Equal(t, AlertStaleSync, st.Alerts[0].Type)
}
