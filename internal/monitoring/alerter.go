package monitoring

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/cafe-sync/internal/config"
	"github.com/sells-group/cafe-sync/internal/model"
)

// AlertType identifies the kind of alert.
type AlertType string

const (
	AlertStaleSync     AlertType = "stale_sync"
	AlertFailureRate   AlertType = "sync_failure_rate"
	AlertLastRunFailed AlertType = "last_run_failed"
)

// minFinishedRuns is the sample size below which the failure rate is not judged.
const minFinishedRuns = 3

// Alert represents a single alert to be sent.
type Alert struct {
	Type      AlertType      `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Alerter evaluates a MetricsSnapshot against configured thresholds
// and sends alerts via webhook when thresholds are breached.
type Alerter struct {
	cfg    config.MonitoringConfig
	client *http.Client
}

// NewAlerter creates a new Alerter with the given monitoring config.
func NewAlerter(cfg config.MonitoringConfig) *Alerter {
	return &Alerter{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Evaluate checks the snapshot against thresholds and returns any alerts.
func (a *Alerter) Evaluate(snap *MetricsSnapshot) []Alert {
	var alerts []Alert
	now := snap.CollectedAt
	if now.IsZero() {
		now = time.Now().UTC()
	}

	// Staleness: no successful sync within the configured window.
	if a.cfg.StaleAfterHours > 0 {
		switch {
		case snap.LastSuccess == nil:
			alerts = append(alerts, Alert{
				Type:      AlertStaleSync,
				Severity:  "high",
				Message:   fmt.Sprintf("Pipeline %s has never completed a sync", snap.Pipeline),
				Details:   map[string]any{"pipeline": snap.Pipeline},
				Timestamp: now,
			})
		case snap.HoursSinceSuccess > float64(a.cfg.StaleAfterHours):
			alerts = append(alerts, Alert{
				Type:     AlertStaleSync,
				Severity: "high",
				Message: fmt.Sprintf(
					"Pipeline %s last synced %.1fh ago (threshold %dh)",
					snap.Pipeline, snap.HoursSinceSuccess, a.cfg.StaleAfterHours,
				),
				Details: map[string]any{
					"pipeline":            snap.Pipeline,
					"last_success":        snap.LastSuccess.UTC().Format(time.RFC3339),
					"hours_since_success": snap.HoursSinceSuccess,
				},
				Timestamp: now,
			})
		}
	}

	// Failure rate over the lookback window.
	finished := snap.RunsComplete + snap.RunsFailed
	if finished >= minFinishedRuns && snap.FailRate > a.cfg.FailureRateThreshold {
		alerts = append(alerts, Alert{
			Type:     AlertFailureRate,
			Severity: "high",
			Message: fmt.Sprintf(
				"Sync failure rate %.1f%% exceeds threshold %.1f%% (%d failed / %d finished in last %dh)",
				snap.FailRate*100, a.cfg.FailureRateThreshold*100,
				snap.RunsFailed, finished, snap.LookbackHours,
			),
			Details: map[string]any{
				"failure_rate": snap.FailRate,
				"threshold":    a.cfg.FailureRateThreshold,
				"failed":       snap.RunsFailed,
				"finished":     finished,
			},
			Timestamp: now,
		})
	}

	if snap.LastRunStatus == model.RunStatusFailed {
		alerts = append(alerts, Alert{
			Type:     AlertLastRunFailed,
			Severity: "medium",
			Message:  fmt.Sprintf("Latest %s run failed: %s", snap.Pipeline, snap.LastRunError),
			Details: map[string]any{
				"pipeline": snap.Pipeline,
				"error":    snap.LastRunError,
			},
			Timestamp: now,
		})
	}

	return alerts
}

// SendAlerts delivers alerts to the configured webhook URL.
// Returns the number of alerts successfully sent.
func (a *Alerter) SendAlerts(ctx context.Context, alerts []Alert) int {
	if a.cfg.WebhookURL == "" || len(alerts) == 0 {
		return 0
	}

	sent := 0
	for _, alert := range alerts {
		if err := a.sendWebhook(ctx, alert); err != nil {
			zap.L().Error("monitoring: failed to send alert",
				zap.String("type", string(alert.Type)),
				zap.Error(err),
			)
			continue
		}
		zap.L().Info("monitoring: alert sent",
			zap.String("type", string(alert.Type)),
			zap.String("severity", alert.Severity),
		)
		sent++
	}
	return sent
}

// sendWebhook posts a single alert to the webhook URL.
func (a *Alerter) sendWebhook(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return eris.Wrap(err, "monitoring: marshal alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.WebhookURL, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "monitoring: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "monitoring: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("monitoring: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
