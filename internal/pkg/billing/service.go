package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"gorm.io/gorm"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/internal/pkg/ledger"
)

// Outcome is the result of a successfully handled webhook.
type Outcome string

const (
	OutcomeProcessed Outcome = "processed"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeDuplicate Outcome = "duplicate"
)

// Result is returned by HandleWebhook.
type Result struct {
	Outcome      Outcome
	EventName    string
	RestaurantID string
	Subscription *models.Subscription
	Transition   Transition
}

// UsageDispatcher sends the billable quantity to the payment provider. It
// must not block on the provider; failures are its own to log.
type UsageDispatcher interface {
	DispatchUsageReport(ctx context.Context, subscriptionItemID string, quantity int) error
}

// PaymentNotifier delivers advisory messages after a committed transition.
type PaymentNotifier interface {
	NotifyPaymentFailed(ctx context.Context, restaurant *models.Restaurant, sub *models.Subscription) error
}

// Service reconciles locally cached subscription state with payment-provider
// webhooks and product changes.
type Service struct {
	repo     Repository
	ledger   *ledger.Ledger
	cfg      Config
	usage    UsageDispatcher
	notifier PaymentNotifier
	metrics  Metrics
	now      func() time.Time
}

// Option customizes a Service.
type Option func(*Service)

func WithUsageDispatcher(d UsageDispatcher) Option {
	return func(s *Service) { s.usage = d }
}

func WithPaymentNotifier(n PaymentNotifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithMetrics(m Metrics) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService creates a billing service from injected collaborators.
func NewService(repo Repository, l *ledger.Ledger, cfg Config, opts ...Option) *Service {
	s := &Service{
		repo:    repo,
		ledger:  l,
		cfg:     cfg,
		metrics: &NoopMetrics{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// NewServiceFromDB creates a billing service from a GORM DB handle.
func NewServiceFromDB(db *gorm.DB, cfg Config, opts ...Option) *Service {
	return NewService(NewRepository(db), ledger.NewFromDB(db), cfg, opts...)
}

func (s *Service) Config() Config {
	return s.cfg
}

// HandleWebhook processes a signature-verified Lemon Squeezy payload.
//
// The ledger row is written before routing data is checked so the payload is
// never lost. Missing restaurant id and unknown restaurant are final: the row
// is marked processed and an error is returned. The state transition and the
// ledger completion commit in one transaction that holds the restaurant and
// subscription row locks.
func (s *Service) HandleWebhook(ctx context.Context, body []byte) (Result, error) {
	start := s.now()
	provider := models.WebhookProviderLemonSqueezy

	payload, err := ParseWebhookPayload(body)
	if err != nil {
		s.metrics.RecordWebhookError(provider, "invalid_payload")
		return Result{}, err
	}
	ev := payload.Event()
	res := Result{EventName: ev.Name, RestaurantID: ev.RestaurantID}
	defer func() {
		s.metrics.RecordWebhookProcessingDuration(provider, ev.Name, s.now().Sub(start))
	}()

	key := ledger.PaymentEventKey(ev.Name, ev.ObjectID)
	entry, _, err := s.ledger.RecordReceived(ctx, provider, ev.Name, &key, body)
	if errors.Is(err, ledger.ErrDuplicate) {
		log.Infof("[Billing] Duplicate webhook %s ignored", key)
		s.metrics.RecordWebhookEvent(provider, ev.Name, string(OutcomeDuplicate))
		res.Outcome = OutcomeDuplicate
		return res, nil
	}
	if err != nil {
		s.metrics.RecordWebhookError(provider, "ledger")
		return res, fmt.Errorf("record webhook %s: %w", key, err)
	}

	if ev.RestaurantID == "" {
		s.reject(ctx, entry.ID, ev.Name, ErrMissingRestaurantID)
		return res, ErrMissingRestaurantID
	}

	restaurant, err := s.repo.FindRestaurant(ctx, ev.RestaurantID)
	if errors.Is(err, ErrRestaurantNotFound) {
		notFound := fmt.Errorf("%w: %s", ErrRestaurantNotFound, ev.RestaurantID)
		s.reject(ctx, entry.ID, ev.Name, notFound)
		return res, notFound
	}
	if err != nil {
		s.metrics.RecordWebhookError(provider, "persistence")
		return res, fmt.Errorf("find restaurant %s: %w", ev.RestaurantID, err)
	}

	var (
		sub       *models.Subscription
		tr        Transition
		duplicate bool
	)
	err = s.repo.Transaction(ctx, func(tx TxRepository) error {
		locked, err := tx.LockWebhookEvent(entry.ID)
		if err != nil {
			return err
		}
		if locked.Processed {
			duplicate = true
			return nil
		}

		sub, err = tx.LockOrCreateSubscription(restaurant.ID)
		if err != nil {
			return err
		}

		now := s.now()
		if ev.Kind != EventKindUnrecognized {
			count, err := tx.CountActiveProducts(restaurant.ID)
			if err != nil {
				return err
			}
			tr = ApplyEvent(sub, ev, count, s.cfg, now)
			if err := tx.SaveSubscription(sub); err != nil {
				return err
			}
		}
		return tx.MarkWebhookProcessed(entry.ID, "", now.UTC())
	})
	if err != nil {
		s.metrics.RecordWebhookError(provider, "persistence")
		return res, fmt.Errorf("apply webhook %s: %w", key, err)
	}

	if duplicate {
		s.metrics.RecordWebhookEvent(provider, ev.Name, string(OutcomeDuplicate))
		res.Outcome = OutcomeDuplicate
		return res, nil
	}

	res.Subscription = sub
	res.Transition = tr
	if !tr.Changed {
		log.Infof("[Billing] Unhandled event %s for restaurant %s recorded", ev.Name, restaurant.ID)
		s.metrics.RecordWebhookEvent(provider, ev.Name, string(OutcomeIgnored))
		res.Outcome = OutcomeIgnored
		return res, nil
	}

	res.Outcome = OutcomeProcessed
	s.metrics.RecordWebhookEvent(provider, ev.Name, string(OutcomeProcessed))
	if tr.PreviousStatus != tr.Status {
		s.metrics.RecordStatusChange(provider, tr.PreviousStatus, tr.Status)
		if isTerminalStatus(tr.PreviousStatus) {
			log.Infof("[Billing] Restaurant %s resubscribed after %s", restaurant.ID, tr.PreviousStatus)
		}
	}
	log.Infof("[Billing] %s for restaurant %s: status %s -> %s, next bill %d",
		ev.Name, restaurant.ID, tr.PreviousStatus, tr.Status, sub.NextBillAmount)

	s.dispatchUsage(ctx, sub)
	if ev.Kind == EventKindPaymentFailed && s.notifier != nil {
		if err := s.notifier.NotifyPaymentFailed(context.WithoutCancel(ctx), restaurant, sub); err != nil {
			log.Warnf("[Billing] Payment-failed notice for restaurant %s not sent: %v", restaurant.ID, err)
		}
	}
	return res, nil
}

// OnProductCountChanged refreshes the cached billable product count and
// reports it to the provider. The next bill amount is left for the next
// lifecycle or payment webhook. Returns the stored count.
func (s *Service) OnProductCountChanged(ctx context.Context, restaurantID string) (int, error) {
	var sub *models.Subscription
	err := s.repo.Transaction(ctx, func(tx TxRepository) error {
		var err error
		sub, err = tx.LockSubscription(restaurantID)
		if err != nil || sub == nil {
			return err
		}
		count, err := tx.CountActiveProducts(restaurantID)
		if err != nil {
			return err
		}
		if count == sub.ActiveProductsCount {
			return nil
		}
		sub.ActiveProductsCount = count
		return tx.SaveSubscription(sub)
	})
	if err != nil {
		return 0, fmt.Errorf("recount products for restaurant %s: %w", restaurantID, err)
	}
	if sub == nil {
		return 0, nil
	}

	s.dispatchUsage(ctx, sub)
	return sub.ActiveProductsCount, nil
}

// GetSubscription returns the restaurant's subscription, or nil.
func (s *Service) GetSubscription(ctx context.Context, restaurantID string) (*models.Subscription, error) {
	return s.repo.FindSubscription(ctx, restaurantID)
}

// CanAccess evaluates CanAccessFeatures with the service clock.
func (s *Service) CanAccess(restaurant *models.Restaurant, sub *models.Subscription) bool {
	return CanAccessFeatures(restaurant, sub, s.now())
}

func (s *Service) dispatchUsage(ctx context.Context, sub *models.Subscription) {
	itemID := sub.UsageItemID()
	if itemID == "" || s.usage == nil {
		return
	}
	if err := s.usage.DispatchUsageReport(ctx, itemID, sub.ActiveProductsCount); err != nil {
		log.Warnf("[Billing] Usage report for item %s not dispatched: %v", itemID, err)
	}
}

func (s *Service) reject(ctx context.Context, entryID, eventName string, cause error) {
	log.Warnf("[Billing] Webhook %s rejected: %v", eventName, cause)
	s.metrics.RecordWebhookEvent(models.WebhookProviderLemonSqueezy, eventName, "rejected")
	if err := s.ledger.MarkProcessed(ctx, entryID, cause); err != nil {
		log.Errorf("[Billing] Failed to mark webhook %s processed: %v", entryID, err)
	}
}
