// Package ledger stores every verified inbound webhook before any business
// processing happens, and records when processing finished.
package ledger

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/foodar/foodar/app/models"
)

// ErrDuplicate is returned by RecordReceived when an entry with the same
// external event id exists and has already been processed.
var ErrDuplicate = errors.New("webhook event already processed")

// Ledger records webhook receipt and completion.
type Ledger struct {
	repo Repository
	now  func() time.Time
}

// New creates a ledger from an injected repository.
func New(repo Repository) *Ledger {
	return &Ledger{repo: repo, now: time.Now}
}

// NewFromDB creates a ledger backed by GORM.
func NewFromDB(db *gorm.DB) *Ledger {
	return New(NewRepository(db))
}

// PaymentEventKey builds the payment-provider idempotency key. The same
// object moving through different lifecycle events yields distinct keys.
func PaymentEventKey(eventName, objectID string) string {
	return strings.TrimSpace(eventName) + "_" + strings.TrimSpace(objectID)
}

// RecordReceived stores the payload. For a non-nil externalEventID the insert
// is backed by the unique index, so two concurrent deliveries cannot both
// create a row. An existing unprocessed entry (an earlier attempt crashed or
// rolled back) is handed back with created=false so it can be processed again.
func (l *Ledger) RecordReceived(ctx context.Context, provider, eventName string, externalEventID *string, payload []byte) (*models.WebhookEvent, bool, error) {
	p := strings.ToLower(strings.TrimSpace(provider))
	if p == "" {
		return nil, false, errors.New("provider is required")
	}

	var key *string
	if externalEventID != nil {
		if k := strings.TrimSpace(*externalEventID); k != "" {
			key = &k
		}
	}

	event := &models.WebhookEvent{
		Provider:        p,
		EventName:       strings.TrimSpace(eventName),
		ExternalEventID: key,
		RawPayload:      string(payload),
	}

	if key == nil {
		if err := l.repo.Create(ctx, event); err != nil {
			return nil, false, err
		}
		return event, true, nil
	}

	created, stored, err := l.repo.CreateIfNotExists(ctx, event)
	if err != nil {
		return nil, false, err
	}
	if !created && stored.Processed {
		return stored, false, ErrDuplicate
	}
	return stored, created, nil
}

// MarkProcessed flags the entry as finished. It is safe to call repeatedly and
// is used for successes, no-ops and handled rejections alike.
func (l *Ledger) MarkProcessed(ctx context.Context, id string, processingErr error) error {
	if strings.TrimSpace(id) == "" {
		return errors.New("webhook event id is required")
	}
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
	}
	return l.repo.MarkProcessed(ctx, id, errMsg, l.now().UTC())
}
