package jobqueue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2/log"
)

// UsageReporter sends the billable quantity to the payment provider.
type UsageReporter interface {
	ReportUsage(ctx context.Context, subscriptionItemID string, quantity int) error
}

// ProductRecounter refreshes the cached billable product count.
type ProductRecounter interface {
	OnProductCountChanged(ctx context.Context, restaurantID string) (int, error)
}

// MailSender delivers a rendered message.
type MailSender interface {
	Send(to, subject, body string) error
}

// RegisterHandlers wires the billing and notification job types. Nil
// collaborators leave their job type unhandled.
func RegisterHandlers(q *Queue, reporter UsageReporter, recounter ProductRecounter, mailer MailSender) {
	if reporter != nil {
		q.Handle(JobTypeReportUsage, reportUsageHandler(reporter))
	}
	if recounter != nil {
		q.Handle(JobTypeRecountProducts, recountProductsHandler(recounter))
	}
	if mailer != nil {
		q.Handle(JobTypeSendMail, sendMailHandler(mailer))
	}
}

func reportUsageHandler(reporter UsageReporter) HandlerFunc {
	return func(ctx context.Context, job *Job) error {
		payload, err := ReportUsageJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid report_usage payload: %w", err)
		}
		if strings.TrimSpace(payload.SubscriptionItemID) == "" {
			return errors.New("report_usage payload missing subscription_item_id")
		}
		if err := reporter.ReportUsage(ctx, payload.SubscriptionItemID, payload.Quantity); err != nil {
			return err
		}
		log.Infof("[JobQueue] Usage reported for item %s: %d", payload.SubscriptionItemID, payload.Quantity)
		return nil
	}
}

func recountProductsHandler(recounter ProductRecounter) HandlerFunc {
	return func(ctx context.Context, job *Job) error {
		payload, err := RecountProductsJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid recount_products payload: %w", err)
		}
		if strings.TrimSpace(payload.RestaurantID) == "" {
			return errors.New("recount_products payload missing restaurant_id")
		}
		count, err := recounter.OnProductCountChanged(ctx, payload.RestaurantID)
		if err != nil {
			return err
		}
		log.Debugf("[JobQueue] Restaurant %s has %d billable products", payload.RestaurantID, count)
		return nil
	}
}

func sendMailHandler(mailer MailSender) HandlerFunc {
	return func(_ context.Context, job *Job) error {
		payload, err := SendMailJobPayloadFromMap(job.Payload)
		if err != nil {
			return fmt.Errorf("invalid send_mail payload: %w", err)
		}
		if strings.TrimSpace(payload.To) == "" {
			return errors.New("send_mail payload missing recipient")
		}
		return mailer.Send(payload.To, payload.Subject, payload.Body)
	}
}
