package billing

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodar/foodar/app/models"
)

func strPtr(s string) *string { return &s }

func TestGraceEndUsesStartOfDay(t *testing.T) {
	morning := time.Date(2026, 7, 1, 0, 5, 0, 0, time.UTC)
	evening := time.Date(2026, 7, 1, 23, 59, 0, 0, time.UTC)
	want := time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)

	assert.True(t, GraceEnd(morning, 3).Equal(want))
	assert.True(t, GraceEnd(evening, 3).Equal(want))
}

func TestGraceEndNormalizesToUTC(t *testing.T) {
	karachi := time.FixedZone("PKT", 5*60*60)
	// 02:00 local on July 2 is still July 1 in UTC.
	local := time.Date(2026, 7, 2, 2, 0, 0, 0, karachi)

	assert.True(t, GraceEnd(local, 3).Equal(time.Date(2026, 7, 4, 0, 0, 0, 0, time.UTC)))
}

func TestApplyEvent_LifecycleUsesPreUpdateExternalID(t *testing.T) {
	cfg := DefaultConfig()
	now := time.Now()
	sub := models.NewInactiveSubscription("r1")

	tr := ApplyEvent(sub, Event{Kind: EventKindLifecycle, ExternalStatus: "on_trial", SubscriptionID: "s1"}, 5, cfg, now)
	assert.True(t, tr.Changed)
	assert.True(t, tr.SetupFeeBilled)
	assert.Equal(t, models.SubscriptionStatusInactive, tr.PreviousStatus)
	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Equal(t, 6499, sub.NextBillAmount)

	tr = ApplyEvent(sub, Event{Kind: EventKindLifecycle, ExternalStatus: "active", SubscriptionID: "s1"}, 5, cfg, now)
	assert.False(t, tr.SetupFeeBilled)
	assert.Equal(t, 1500, sub.NextBillAmount)
}

func TestApplyEvent_SetupFeeFlagSurvivesMissingExternalID(t *testing.T) {
	sub := models.NewInactiveSubscription("r1")
	sub.SetupFeeCharged = true

	ApplyEvent(sub, Event{Kind: EventKindLifecycle, ExternalStatus: "active"}, 2, DefaultConfig(), time.Now())
	assert.Equal(t, 600, sub.NextBillAmount)
}

func TestApplyEvent_LifecycleKeepsDunningFields(t *testing.T) {
	grace := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	sub := &models.Subscription{
		Status:                 models.SubscriptionStatusPastDue,
		ExternalSubscriptionID: strPtr("s1"),
		GraceEndAt:             &grace,
		WarningCount:           2,
	}

	ApplyEvent(sub, Event{Kind: EventKindLifecycle, ExternalStatus: "past_due", SubscriptionID: "s1", SubscriptionItemID: "it1"}, 1, DefaultConfig(), time.Now())

	assert.Equal(t, &grace, sub.GraceEndAt)
	assert.Equal(t, 2, sub.WarningCount)
	assert.Equal(t, "it1", sub.UsageItemID())
}

func TestApplyEvent_PaymentSucceededResetsDunning(t *testing.T) {
	grace := time.Date(2026, 1, 4, 0, 0, 0, 0, time.UTC)
	now := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	sub := &models.Subscription{
		Status:                 models.SubscriptionStatusPastDue,
		ExternalSubscriptionID: strPtr("old"),
		GraceEndAt:             &grace,
		WarningCount:           4,
		NextBillAmount:         9999,
	}

	ApplyEvent(sub, Event{Kind: EventKindPaymentSucceeded, SubscriptionID: "new"}, 3, DefaultConfig(), now)

	assert.Equal(t, models.SubscriptionStatusActive, sub.Status)
	assert.Nil(t, sub.GraceEndAt)
	assert.Equal(t, 0, sub.WarningCount)
	require.NotNil(t, sub.LastBilledAt)
	assert.True(t, sub.LastBilledAt.Equal(now))
	assert.Equal(t, "new", *sub.ExternalSubscriptionID)
	assert.Equal(t, 900, sub.NextBillAmount)
}

func TestApplyEvent_PaymentSucceededKeepsIDWhenAbsent(t *testing.T) {
	sub := &models.Subscription{ExternalSubscriptionID: strPtr("s1")}
	ApplyEvent(sub, Event{Kind: EventKindPaymentSucceeded}, 0, DefaultConfig(), time.Now())
	assert.Equal(t, "s1", *sub.ExternalSubscriptionID)
}

func TestApplyEvent_PaymentFailedLeavesBillAlone(t *testing.T) {
	sub := &models.Subscription{Status: models.SubscriptionStatusActive, NextBillAmount: 1500}
	now := time.Date(2026, 2, 27, 14, 0, 0, 0, time.UTC)

	ApplyEvent(sub, Event{Kind: EventKindPaymentFailed}, 5, DefaultConfig(), now)

	assert.Equal(t, models.SubscriptionStatusPastDue, sub.Status)
	assert.Equal(t, 1500, sub.NextBillAmount)
	assert.Equal(t, 1, sub.WarningCount)
	assert.True(t, sub.GraceEndAt.Equal(time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)))
}

func TestApplyEvent_TerminalStatesClearGrace(t *testing.T) {
	for _, kind := range []EventKind{EventKindCancelled, EventKindExpired} {
		grace := time.Now()
		sub := &models.Subscription{Status: models.SubscriptionStatusPastDue, GraceEndAt: &grace}
		ApplyEvent(sub, Event{Kind: kind}, 0, DefaultConfig(), time.Now())
		assert.Nil(t, sub.GraceEndAt, kind.String())
		assert.True(t, isTerminalStatus(sub.Status), kind.String())
	}
}

func TestApplyEvent_UnrecognizedIsNoop(t *testing.T) {
	sub := &models.Subscription{Status: models.SubscriptionStatusActive, ActiveProductsCount: 2, NextBillAmount: 600}
	before := *sub

	tr := ApplyEvent(sub, Event{Kind: EventKindUnrecognized, ExternalStatus: "whatever"}, 10, DefaultConfig(), time.Now())

	assert.False(t, tr.Changed)
	assert.Equal(t, before, *sub)
}

func TestApplyEvent_UnknownStatusPassesThrough(t *testing.T) {
	sub := models.NewInactiveSubscription("r1")
	ApplyEvent(sub, Event{Kind: EventKindLifecycle, ExternalStatus: "incomplete", SubscriptionID: "s"}, 0, DefaultConfig(), time.Now())
	assert.Equal(t, "incomplete", sub.Status)
}

func TestCanAccessFeatures(t *testing.T) {
	now := time.Date(2026, 5, 5, 12, 0, 0, 0, time.UTC)
	trialStart := now.AddDate(0, 0, -2)
	trialEnd := now.AddDate(0, 0, 5)
	expiredEnd := now.AddDate(0, 0, -1)

	inTrial := &models.Restaurant{Status: models.RestaurantStatusApproved, TrialStartsAt: &trialStart, TrialEndsAt: &trialEnd}
	trialOver := &models.Restaurant{Status: models.RestaurantStatusApproved, TrialStartsAt: &trialStart, TrialEndsAt: &expiredEnd}
	pending := &models.Restaurant{Status: models.RestaurantStatusPending, TrialStartsAt: &trialStart, TrialEndsAt: &trialEnd}

	active := &models.Subscription{Status: models.SubscriptionStatusActive}
	pastDue := &models.Subscription{Status: models.SubscriptionStatusPastDue}

	assert.True(t, CanAccessFeatures(inTrial, nil, now))
	assert.True(t, CanAccessFeatures(trialOver, active, now))
	assert.False(t, CanAccessFeatures(trialOver, pastDue, now))
	assert.False(t, CanAccessFeatures(trialOver, nil, now))
	assert.False(t, CanAccessFeatures(pending, active, now))
	assert.False(t, CanAccessFeatures(nil, active, now))
}
