package mail

import (
	"fmt"
	"strings"
	"time"

	"github.com/foodar/foodar/app/models"
)

// Message is a rendered advisory mail.
type Message struct {
	Subject string
	Body    string
}

func ApprovalMessage(r *models.Restaurant) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nyour restaurant %q has been approved.\n", r.Name)
	if r.TrialEndsAt != nil {
		fmt.Fprintf(&b, "Your trial runs until %s.\n", r.TrialEndsAt.UTC().Format("2006-01-02"))
	}
	b.WriteString("Subscribe before the trial ends to keep your AR menu online.\n")
	return Message{Subject: "Your restaurant has been approved", Body: b.String()}
}

func RejectionMessage(r *models.Restaurant) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nyour restaurant %q was not approved.\n", r.Name)
	if r.RejectionReason != "" {
		fmt.Fprintf(&b, "Reason: %s\n", r.RejectionReason)
	}
	return Message{Subject: "Your restaurant application", Body: b.String()}
}

func PaymentFailedMessage(r *models.Restaurant, sub *models.Subscription) Message {
	var b strings.Builder
	fmt.Fprintf(&b, "Hello,\n\nthe latest payment for %q failed.\n", r.Name)
	if sub != nil && sub.GraceEndAt != nil {
		fmt.Fprintf(&b, "Please update your payment method before %s.\n", sub.GraceEndAt.UTC().Format(time.RFC1123))
	} else {
		b.WriteString("Please update your payment method.\n")
	}
	return Message{Subject: "Payment failed", Body: b.String()}
}
