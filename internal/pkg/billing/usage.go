package billing

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2/log"
)

// UsageReporter performs the provider call.
type UsageReporter interface {
	ReportUsage(ctx context.Context, subscriptionItemID string, quantity int) error
}

// AsyncUsageDispatcher reports usage on a detached goroutine. It is used
// when no job queue is available.
type AsyncUsageDispatcher struct {
	reporter UsageReporter
	timeout  time.Duration
}

func NewAsyncUsageDispatcher(reporter UsageReporter, timeout time.Duration) *AsyncUsageDispatcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &AsyncUsageDispatcher{reporter: reporter, timeout: timeout}
}

func (d *AsyncUsageDispatcher) DispatchUsageReport(_ context.Context, subscriptionItemID string, quantity int) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()
		if err := d.reporter.ReportUsage(ctx, subscriptionItemID, quantity); err != nil {
			log.Warnf("[Billing] Usage report for item %s (qty %d) failed: %v", subscriptionItemID, quantity, err)
			return
		}
		log.Infof("[Billing] Usage reported for item %s: %d", subscriptionItemID, quantity)
	}()
	return nil
}

// AsyncRecounter runs OnProductCountChanged on a detached goroutine. It is
// used when no job queue is available.
type AsyncRecounter struct {
	svc     *Service
	timeout time.Duration
}

func NewAsyncRecounter(svc *Service, timeout time.Duration) *AsyncRecounter {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AsyncRecounter{svc: svc, timeout: timeout}
}

func (r *AsyncRecounter) ScheduleProductRecount(_ context.Context, restaurantID string) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		if _, err := r.svc.OnProductCountChanged(ctx, restaurantID); err != nil {
			log.Errorf("[Billing] Product recount for restaurant %s failed: %v", restaurantID, err)
		}
	}()
	return nil
}
