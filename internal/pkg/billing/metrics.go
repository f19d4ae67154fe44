package billing

import "time"

// Metrics tracks webhook reconciliation and provider API calls.
type Metrics interface {
	// RecordWebhookEvent records a webhook outcome.
	// outcome: "processed", "ignored", "duplicate", "rejected" or "error"
	RecordWebhookEvent(provider, eventType, outcome string)

	RecordWebhookProcessingDuration(provider, eventType string, duration time.Duration)

	// RecordWebhookError records a webhook processing error.
	// errorType: e.g. "invalid_signature", "invalid_payload", "persistence"
	RecordWebhookError(provider, errorType string)

	RecordStatusChange(provider, fromStatus, toStatus string)

	// RecordUserSync records an identity-provider user sync.
	// status: "success" or "error"
	RecordUserSync(provider, status string)

	// RecordAPICall records an outbound call to the payment provider.
	// status: HTTP status code as string, or "error" / "circuit_open"
	RecordAPICall(provider, endpoint, status string)

	RecordAPICallDuration(provider, endpoint string, duration time.Duration)
}

// NoopMetrics is a no-op implementation of the Metrics interface.
type NoopMetrics struct{}

func (n *NoopMetrics) RecordWebhookEvent(_, _, _ string)                            {}
func (n *NoopMetrics) RecordWebhookProcessingDuration(_, _ string, _ time.Duration) {}
func (n *NoopMetrics) RecordWebhookError(_, _ string)                               {}
func (n *NoopMetrics) RecordStatusChange(_, _, _ string)                            {}
func (n *NoopMetrics) RecordUserSync(_, _ string)                                   {}
func (n *NoopMetrics) RecordAPICall(_, _, _ string)                                 {}
func (n *NoopMetrics) RecordAPICallDuration(_, _ string, _ time.Duration)           {}
