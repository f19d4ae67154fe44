package identity

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	svix "github.com/svix/svix-webhooks/go"
)

// SvixTolerance bounds the distance between the signed timestamp and now.
const SvixTolerance = 5 * time.Minute

const svixSecretPrefix = "whsec_"

var ErrInvalidSignature = errors.New("invalid webhook signature")

// SvixHeaders are the signature headers sent with every identity webhook.
type SvixHeaders struct {
	ID        string
	Timestamp string
	Signature string
}

func (h SvixHeaders) httpHeader() http.Header {
	hdr := http.Header{}
	hdr.Set("svix-id", h.ID)
	hdr.Set("svix-timestamp", h.Timestamp)
	hdr.Set("svix-signature", h.Signature)
	return hdr
}

// VerifySvixSignature checks body against the svix-signature header. The
// timestamp window is evaluated against now; the signature itself is checked
// by the Svix library, which accepts any matching v1 entry.
func VerifySvixSignature(secret string, h SvixHeaders, body []byte, now time.Time) error {
	if h.ID == "" || h.Timestamp == "" || h.Signature == "" {
		return fmt.Errorf("%w: missing svix headers", ErrInvalidSignature)
	}

	ts, err := strconv.ParseInt(h.Timestamp, 10, 64)
	if err != nil {
		return fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
	}
	signedAt := time.Unix(ts, 0)
	if now.Sub(signedAt) > SvixTolerance || signedAt.Sub(now) > SvixTolerance {
		return fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	wh, err := newSvixWebhook(secret)
	if err != nil {
		return err
	}
	if err := wh.VerifyIgnoringTimestamp(body, h.httpHeader()); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return nil
}

// SignSvix returns the v1 signature header value for body.
func SignSvix(secret, msgID, timestamp string, body []byte) (string, error) {
	wh, err := newSvixWebhook(secret)
	if err != nil {
		return "", err
	}
	ts, err := strconv.ParseInt(timestamp, 10, 64)
	if err != nil {
		return "", fmt.Errorf("svix timestamp: %w", err)
	}
	return wh.Sign(msgID, time.Unix(ts, 0), body)
}

func newSvixWebhook(secret string) (*svix.Webhook, error) {
	if strings.TrimPrefix(secret, svixSecretPrefix) == "" {
		return nil, errors.New("identity webhook secret is not configured")
	}
	wh, err := svix.NewWebhook(secret)
	if err != nil {
		return nil, fmt.Errorf("identity webhook secret: %w", err)
	}
	return wh, nil
}
