package mail

import (
	"context"
	"errors"

	"github.com/foodar/foodar/app/models"
)

// Outbox accepts rendered messages for delivery, either queued or direct.
type Outbox interface {
	SendMail(ctx context.Context, to, subject, body string) error
}

// DirectOutbox sends through a Mailer on the calling goroutine.
type DirectOutbox struct {
	Mailer *Mailer
}

func (o DirectOutbox) SendMail(_ context.Context, to, subject, body string) error {
	return o.Mailer.Send(to, subject, body)
}

var ErrNoRecipient = errors.New("restaurant owner has no email address")

// Notifier renders restaurant notices and hands them to an outbox.
type Notifier struct {
	outbox Outbox
}

func NewNotifier(outbox Outbox) *Notifier {
	return &Notifier{outbox: outbox}
}

func (n *Notifier) NotifyApproved(ctx context.Context, r *models.Restaurant) error {
	return n.deliver(ctx, r, ApprovalMessage(r))
}

func (n *Notifier) NotifyRejected(ctx context.Context, r *models.Restaurant) error {
	return n.deliver(ctx, r, RejectionMessage(r))
}

func (n *Notifier) NotifyPaymentFailed(ctx context.Context, r *models.Restaurant, sub *models.Subscription) error {
	return n.deliver(ctx, r, PaymentFailedMessage(r, sub))
}

func (n *Notifier) deliver(ctx context.Context, r *models.Restaurant, msg Message) error {
	if r == nil || r.Owner == nil || r.Owner.Email == "" {
		return ErrNoRecipient
	}
	return n.outbox.SendMail(ctx, r.Owner.Email, msg.Subject, msg.Body)
}
