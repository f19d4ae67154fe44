// Package identity mirrors identity-provider accounts into the users table
// and verifies session tokens.
package identity

import (
	"context"
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2/log"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/internal/pkg/ledger"
)

// UserStore persists mirrored accounts.
type UserStore interface {
	// UpsertByClerkID creates the user or updates role plus any non-empty
	// email and name.
	UpsertByClerkID(ctx context.Context, user *models.User) error
	DeleteByClerkID(ctx context.Context, clerkUserID string) error
}

// SyncMetrics records user sync outcomes.
type SyncMetrics interface {
	RecordUserSync(provider, status string)
}

type noopSyncMetrics struct{}

func (noopSyncMetrics) RecordUserSync(_, _ string) {}

// Result describes a handled identity webhook.
type Result struct {
	EventType   string
	ClerkUserID string
	Ignored     bool
}

type Service struct {
	users   UserStore
	ledger  *ledger.Ledger
	metrics SyncMetrics
}

func NewService(users UserStore, l *ledger.Ledger, metrics SyncMetrics) *Service {
	if metrics == nil {
		metrics = noopSyncMetrics{}
	}
	return &Service{users: users, ledger: l, metrics: metrics}
}

// HandleWebhook applies a signature-verified identity event. Events carry no
// reliable idempotency key, so they are recorded without one and applied
// idempotently instead.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) (Result, error) {
	provider := models.WebhookProviderClerk

	ev, err := ParseEvent(body)
	if err != nil {
		return Result{}, err
	}
	res := Result{EventType: ev.Type, ClerkUserID: ev.Data.ID}

	entry, _, err := s.ledger.RecordReceived(ctx, provider, ev.Type, nil, body)
	if err != nil {
		return res, fmt.Errorf("record identity webhook: %w", err)
	}

	switch ev.Type {
	case EventUserCreated, EventUserUpdated:
		err = s.users.UpsertByClerkID(ctx, ev.Data.ToUser())
	case EventUserDeleted:
		err = s.users.DeleteByClerkID(ctx, ev.Data.ID)
	default:
		res.Ignored = true
	}
	if err != nil {
		s.metrics.RecordUserSync(provider, "error")
		return res, fmt.Errorf("apply %s for %s: %w", ev.Type, ev.Data.ID, err)
	}

	if !res.Ignored {
		s.metrics.RecordUserSync(provider, "success")
		log.Infof("[Identity] %s applied for %s", ev.Type, ev.Data.ID)
	}
	if err := s.ledger.MarkProcessed(ctx, entry.ID, nil); err != nil {
		log.Errorf("[Identity] Failed to mark webhook %s processed: %v", entry.ID, err)
	}
	return res, nil
}

// IsClientError reports whether err is caused by the request rather than
// by the server.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidPayload) || errors.Is(err, ErrInvalidSignature)
}
