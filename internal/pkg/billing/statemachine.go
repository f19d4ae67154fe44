package billing

import (
	"time"

	"github.com/foodar/foodar/app/models"
)

// Transition describes what ApplyEvent did to a subscription.
type Transition struct {
	Kind           EventKind
	PreviousStatus string
	Status         string
	Changed        bool
	SetupFeeBilled bool
}

// GraceEnd returns UTC midnight of now's day plus the grace period. Repeated
// failures on the same day yield the same deadline.
func GraceEnd(now time.Time, graceDays int) time.Time {
	u := now.UTC()
	midnight := time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
	return midnight.AddDate(0, 0, graceDays)
}

// ApplyEvent mutates sub according to the event. activeProducts is the
// billable product count read inside the same transaction. Unrecognized
// events leave sub untouched.
func ApplyEvent(sub *models.Subscription, ev Event, activeProducts int, cfg Config, now time.Time) Transition {
	tr := Transition{Kind: ev.Kind, PreviousStatus: sub.Status, Status: sub.Status}
	if ev.Kind == EventKindUnrecognized {
		return tr
	}

	sub.ActiveProductsCount = activeProducts

	switch ev.Kind {
	case EventKindLifecycle:
		isFirst := !sub.SetupFeeCharged && !sub.HasSubscribed()
		sub.Status = MapProviderStatus(ev.ExternalStatus)
		if ev.SubscriptionID != "" {
			id := ev.SubscriptionID
			sub.ExternalSubscriptionID = &id
		}
		if ev.SubscriptionItemID != "" {
			item := ev.SubscriptionItemID
			sub.ExternalSubscriptionItemID = &item
		}
		sub.NextBillAmount = LifecycleBill(isFirst, activeProducts, cfg.PerProductPrice, cfg.SetupFee)
		if isFirst {
			sub.SetupFeeCharged = true
			tr.SetupFeeBilled = true
		}

	case EventKindPaymentSucceeded:
		billedAt := now.UTC()
		sub.Status = models.SubscriptionStatusActive
		sub.LastBilledAt = &billedAt
		sub.GraceEndAt = nil
		sub.WarningCount = 0
		if ev.SubscriptionID != "" {
			id := ev.SubscriptionID
			sub.ExternalSubscriptionID = &id
		}
		sub.NextBillAmount = PostPaymentBill(activeProducts, cfg.PerProductPrice)

	case EventKindPaymentFailed:
		graceEnd := GraceEnd(now, cfg.GracePeriodDays)
		sub.Status = models.SubscriptionStatusPastDue
		sub.GraceEndAt = &graceEnd
		sub.WarningCount++

	case EventKindCancelled:
		sub.Status = models.SubscriptionStatusCancelled
		sub.GraceEndAt = nil

	case EventKindExpired:
		sub.Status = models.SubscriptionStatusExpired
		sub.GraceEndAt = nil
	}

	tr.Status = sub.Status
	tr.Changed = true
	return tr
}

// CanAccessFeatures reports whether a restaurant may use gated features: it
// must be approved and either inside its trial window or actively subscribed.
func CanAccessFeatures(restaurant *models.Restaurant, sub *models.Subscription, now time.Time) bool {
	if restaurant == nil || !restaurant.IsApproved() {
		return false
	}
	return restaurant.IsTrialActive(now) || sub.IsActive()
}
