package billing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Lemon Squeezy event names handled by the reconciliation flow.
const (
	EventSubscriptionCreated        = "subscription_created"
	EventSubscriptionUpdated        = "subscription_updated"
	EventSubscriptionPaymentSuccess = "subscription_payment_success"
	EventSubscriptionPaymentFailed  = "subscription_payment_failed"
	EventSubscriptionCancelled      = "subscription_cancelled"
	EventSubscriptionExpired        = "subscription_expired"
)

// EventKind classifies an event name into a state-machine transition.
type EventKind int

const (
	EventKindUnrecognized EventKind = iota
	EventKindLifecycle
	EventKindPaymentSucceeded
	EventKindPaymentFailed
	EventKindCancelled
	EventKindExpired
)

func (k EventKind) String() string {
	switch k {
	case EventKindLifecycle:
		return "lifecycle"
	case EventKindPaymentSucceeded:
		return "payment_succeeded"
	case EventKindPaymentFailed:
		return "payment_failed"
	case EventKindCancelled:
		return "cancelled"
	case EventKindExpired:
		return "expired"
	default:
		return "unrecognized"
	}
}

// ClassifyEvent maps a provider event name to its kind.
func ClassifyEvent(eventName string) EventKind {
	switch eventName {
	case EventSubscriptionCreated, EventSubscriptionUpdated:
		return EventKindLifecycle
	case EventSubscriptionPaymentSuccess:
		return EventKindPaymentSucceeded
	case EventSubscriptionPaymentFailed:
		return EventKindPaymentFailed
	case EventSubscriptionCancelled:
		return EventKindCancelled
	case EventSubscriptionExpired:
		return EventKindExpired
	default:
		return EventKindUnrecognized
	}
}

// ProviderID accepts JSON strings and numbers. Lemon Squeezy sends resource
// ids as strings and nested ids as numbers.
type ProviderID string

func (id *ProviderID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ProviderID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("provider id: %w", err)
	}
	if _, err := strconv.ParseInt(n.String(), 10, 64); err != nil {
		return fmt.Errorf("provider id %q is not an integer", n.String())
	}
	*id = ProviderID(n.String())
	return nil
}

func (id ProviderID) String() string {
	return string(id)
}

// WebhookPayload is the subset of a Lemon Squeezy webhook body we read.
type WebhookPayload struct {
	Meta struct {
		EventName  string         `json:"event_name"`
		CustomData map[string]any `json:"custom_data"`
		TestMode   bool           `json:"test_mode"`
		WebhookID  string         `json:"webhook_id"`
	} `json:"meta"`
	Data struct {
		ID         ProviderID `json:"id"`
		Type       string     `json:"type"`
		Attributes struct {
			Status                string     `json:"status"`
			StoreID               ProviderID `json:"store_id"`
			SubscriptionID        ProviderID `json:"subscription_id"`
			FirstSubscriptionItem *struct {
				ID ProviderID `json:"id"`
			} `json:"first_subscription_item"`
		} `json:"attributes"`
	} `json:"data"`
}

// Event is the normalized view of a webhook consumed by the state machine.
type Event struct {
	Name           string
	Kind           EventKind
	ObjectID       string
	RestaurantID   string
	ExternalStatus string

	// SubscriptionID is data.id for subscription objects and
	// attributes.subscription_id for invoices.
	SubscriptionID     string
	SubscriptionItemID string
}

// ParseWebhookPayload decodes and validates a verified webhook body.
func ParseWebhookPayload(body []byte) (*WebhookPayload, error) {
	var p WebhookPayload
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	p.Meta.EventName = strings.TrimSpace(p.Meta.EventName)
	if p.Meta.EventName == "" {
		return nil, fmt.Errorf("%w: meta.event_name is required", ErrInvalidPayload)
	}
	if p.Data.ID == "" {
		return nil, fmt.Errorf("%w: data.id is required", ErrInvalidPayload)
	}
	if strings.TrimSpace(p.Data.Type) == "" {
		return nil, fmt.Errorf("%w: data.type is required", ErrInvalidPayload)
	}
	return &p, nil
}

// RestaurantID reads custom_data.restaurant_id, accepting strings and numbers.
func (p *WebhookPayload) RestaurantID() string {
	if p.Meta.CustomData == nil {
		return ""
	}
	switch v := p.Meta.CustomData["restaurant_id"].(type) {
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v != math.Trunc(v) {
			return ""
		}
		return strconv.FormatFloat(v, 'f', 0, 64)
	default:
		return ""
	}
}

// Event normalizes the payload.
func (p *WebhookPayload) Event() Event {
	ev := Event{
		Name:           p.Meta.EventName,
		Kind:           ClassifyEvent(p.Meta.EventName),
		ObjectID:       p.Data.ID.String(),
		RestaurantID:   p.RestaurantID(),
		ExternalStatus: strings.TrimSpace(p.Data.Attributes.Status),
	}

	switch ev.Kind {
	case EventKindPaymentSucceeded, EventKindPaymentFailed:
		ev.SubscriptionID = p.Data.Attributes.SubscriptionID.String()
	default:
		ev.SubscriptionID = p.Data.ID.String()
	}
	if item := p.Data.Attributes.FirstSubscriptionItem; item != nil {
		ev.SubscriptionItemID = item.ID.String()
	}
	return ev
}
