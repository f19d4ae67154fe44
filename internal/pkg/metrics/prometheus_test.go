package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterValue returns the value of the counter with the given name and
// label values, or -1 when absent.
func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.GetMetric() {
			if labelsMatch(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return -1
}

func labelsMatch(metric *dto.Metric, want map[string]string) bool {
	matched := 0
	for _, lp := range metric.GetLabel() {
		if v, ok := want[lp.GetName()]; ok {
			if v != lp.GetValue() {
				return false
			}
			matched++
		}
	}
	return matched == len(want)
}

func TestMetricsRecordWebhook(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")

	m.RecordWebhookEvent("lemon_squeezy", "subscription_created", "processed")
	m.RecordWebhookEvent("lemon_squeezy", "subscription_created", "processed")
	m.RecordWebhookEvent("lemon_squeezy", "subscription_created", "duplicate")
	m.RecordWebhookProcessingDuration("lemon_squeezy", "subscription_created", 20*time.Millisecond)
	m.RecordWebhookError("lemon_squeezy", "invalid_signature")

	events := "test_billing_webhook_events_total"
	assert.Equal(t, 2.0, counterValue(t, reg, events, map[string]string{"event_type": "subscription_created", "outcome": "processed"}))
	assert.Equal(t, 1.0, counterValue(t, reg, events, map[string]string{"event_type": "subscription_created", "outcome": "duplicate"}))
	assert.Equal(t, 1.0, counterValue(t, reg, "test_billing_webhook_errors_total", map[string]string{"error_type": "invalid_signature"}))
}

func TestMetricsRecordJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "test")

	m.RecordJob("report_usage", "completed", time.Second)
	m.RecordStatusChange("lemon_squeezy", "inactive", "active")
	m.RecordAPICall("lemon_squeezy", "/usage-records", "201")
	m.RecordAPICallDuration("lemon_squeezy", "/usage-records", time.Millisecond)
	m.RecordUserSync("clerk", "success")

	families, err := reg.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
	assert.Equal(t, 1.0, counterValue(t, reg, "test_jobqueue_jobs_total", map[string]string{"job_type": "report_usage", "status": "completed"}))
}

func TestHandlerServesRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg, "foodar")
	m.RecordWebhookError("clerk", "invalid_signature")

	app := fiber.New()
	app.Get("/metrics", Handler(reg))

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, 200, resp.StatusCode)
	assert.Contains(t, string(body), "foodar_billing_webhook_errors_total")
}
