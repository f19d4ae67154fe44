package jobqueue

import (
	"context"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// Enqueuer is the part of Queue used by Dispatcher.
type Enqueuer interface {
	EnqueueJob(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error)
}

// Dispatcher turns domain side effects into queued jobs. It satisfies the
// billing usage dispatcher, the product recount scheduler and the mail
// outbox used by controllers.
type Dispatcher struct {
	queue Enqueuer
}

func NewDispatcher(queue Enqueuer) *Dispatcher {
	return &Dispatcher{queue: queue}
}

// DispatchUsageReport enqueues a usage report for the subscription item.
func (d *Dispatcher) DispatchUsageReport(ctx context.Context, subscriptionItemID string, quantity int) error {
	itemID := strings.TrimSpace(subscriptionItemID)
	if itemID == "" {
		return fmt.Errorf("cannot enqueue usage report without subscription item id")
	}
	payload := ReportUsageJobPayload{SubscriptionItemID: itemID, Quantity: quantity}
	job, err := d.queue.EnqueueJob(ctx, JobTypeReportUsage, payload.ToMap())
	if err != nil {
		return fmt.Errorf("failed to enqueue usage report for %s: %w", itemID, err)
	}
	log.Debugf("[Dispatcher] Usage report job %s queued for item %s (qty %d)", job.ID, itemID, quantity)
	return nil
}

// ScheduleProductRecount enqueues a billable-product recount for the restaurant.
func (d *Dispatcher) ScheduleProductRecount(ctx context.Context, restaurantID string) error {
	id := strings.TrimSpace(restaurantID)
	if id == "" {
		return fmt.Errorf("cannot enqueue recount without restaurant id")
	}
	payload := RecountProductsJobPayload{RestaurantID: id}
	if _, err := d.queue.EnqueueJob(ctx, JobTypeRecountProducts, payload.ToMap()); err != nil {
		return fmt.Errorf("failed to enqueue product recount for %s: %w", id, err)
	}
	return nil
}

// SendMail enqueues a rendered message.
func (d *Dispatcher) SendMail(ctx context.Context, to, subject, body string) error {
	if strings.TrimSpace(to) == "" {
		return fmt.Errorf("cannot enqueue mail without recipient")
	}
	payload := SendMailJobPayload{To: to, Subject: subject, Body: body}
	if _, err := d.queue.EnqueueJob(ctx, JobTypeSendMail, payload.ToMap()); err != nil {
		return fmt.Errorf("failed to enqueue mail to %s: %w", to, err)
	}
	return nil
}
