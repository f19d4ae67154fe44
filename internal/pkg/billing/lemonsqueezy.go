package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sony/gobreaker/v2"

	"github.com/foodar/foodar/app/models"
)

const (
	jsonAPIContentType = "application/vnd.api+json"

	endpointUsageRecords = "/usage-records"
	endpointCheckouts    = "/checkouts"
)

// LemonSqueezyClient talks to the Lemon Squeezy REST API. Calls are single
// attempt and guarded by a circuit breaker so a provider outage does not pile
// up background usage reports.
type LemonSqueezyClient struct {
	APIKey     string
	StoreID    string
	VariantID  string
	APIBaseURL string
	TestMode   bool

	HTTPClient *http.Client

	breaker *gobreaker.CircuitBreaker[[]byte]
	metrics Metrics
}

// NewLemonSqueezyClient builds a client from billing configuration.
func NewLemonSqueezyClient(cfg Config, metrics Metrics) *LemonSqueezyClient {
	if metrics == nil {
		metrics = &NoopMetrics{}
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.APIBaseURL), "/")
	if base == "" {
		base = defaultLemonSqueezyAPIBaseURL
	}

	settings := gobreaker.Settings{
		Name:        "lemon_squeezy",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warnf("[LemonSqueezy] circuit breaker %s: %s -> %s", name, from, to)
		},
	}

	return &LemonSqueezyClient{
		APIKey:     cfg.APIKey,
		StoreID:    cfg.StoreID,
		VariantID:  cfg.VariantID,
		APIBaseURL: base,
		TestMode:   cfg.TestMode,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		breaker: gobreaker.NewCircuitBreaker[[]byte](settings),
		metrics: metrics,
	}
}

type jsonAPIRelationship struct {
	Data struct {
		Type string `json:"type"`
		ID   string `json:"id"`
	} `json:"data"`
}

func relationship(typ, id string) jsonAPIRelationship {
	var r jsonAPIRelationship
	r.Data.Type = typ
	r.Data.ID = id
	return r
}

type usageRecordRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			Quantity int    `json:"quantity"`
			Action   string `json:"action"`
		} `json:"attributes"`
		Relationships struct {
			SubscriptionItem jsonAPIRelationship `json:"subscription-item"`
		} `json:"relationships"`
	} `json:"data"`
}

// ReportUsage sets the billable quantity on a usage-based subscription item.
func (c *LemonSqueezyClient) ReportUsage(ctx context.Context, subscriptionItemID string, quantity int) error {
	if strings.TrimSpace(c.APIKey) == "" {
		return fmt.Errorf("%w: LEMON_SQUEEZY_API_KEY is not set", ErrProviderNotConfigured)
	}
	itemID := strings.TrimSpace(subscriptionItemID)
	if itemID == "" {
		return errors.New("subscription item id is required")
	}
	if quantity < 0 {
		return errors.New("quantity must be non-negative")
	}

	var req usageRecordRequest
	req.Data.Type = "usage-records"
	req.Data.Attributes.Quantity = quantity
	req.Data.Attributes.Action = "set"
	req.Data.Relationships.SubscriptionItem = relationship("subscription-items", itemID)

	_, err := c.post(ctx, endpointUsageRecords, req)
	return err
}

type checkoutRequest struct {
	Data struct {
		Type       string `json:"type"`
		Attributes struct {
			CheckoutData struct {
				Email  string            `json:"email,omitempty"`
				Name   string            `json:"name,omitempty"`
				Custom map[string]string `json:"custom"`
			} `json:"checkout_data"`
			TestMode bool `json:"test_mode"`
		} `json:"attributes"`
		Relationships struct {
			Store   jsonAPIRelationship `json:"store"`
			Variant jsonAPIRelationship `json:"variant"`
		} `json:"relationships"`
	} `json:"data"`
}

type checkoutResponse struct {
	Data struct {
		Attributes struct {
			URL string `json:"url"`
		} `json:"attributes"`
	} `json:"data"`
}

// CreateCheckout creates a hosted checkout for the restaurant. The restaurant
// id travels in custom data and comes back on every subscription webhook.
func (c *LemonSqueezyClient) CreateCheckout(ctx context.Context, restaurant *models.Restaurant) (string, error) {
	if strings.TrimSpace(c.APIKey) == "" || strings.TrimSpace(c.StoreID) == "" || strings.TrimSpace(c.VariantID) == "" {
		return "", fmt.Errorf("%w: LEMON_SQUEEZY_API_KEY/STORE_ID/VARIANT_ID are required", ErrProviderNotConfigured)
	}
	if restaurant == nil || strings.TrimSpace(restaurant.ID) == "" {
		return "", errors.New("restaurant is required")
	}

	var req checkoutRequest
	req.Data.Type = "checkouts"
	req.Data.Attributes.CheckoutData.Custom = map[string]string{"restaurant_id": restaurant.ID}
	if restaurant.Owner != nil {
		req.Data.Attributes.CheckoutData.Email = restaurant.Owner.Email
		req.Data.Attributes.CheckoutData.Name = restaurant.Owner.FullName
	}
	req.Data.Attributes.TestMode = c.TestMode
	req.Data.Relationships.Store = relationship("stores", c.StoreID)
	req.Data.Relationships.Variant = relationship("variants", c.VariantID)

	body, err := c.post(ctx, endpointCheckouts, req)
	if err != nil {
		return "", err
	}

	var out checkoutResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%w: decode checkout: %v", ErrProviderAPI, err)
	}
	if strings.TrimSpace(out.Data.Attributes.URL) == "" {
		return "", fmt.Errorf("%w: checkout response missing url", ErrProviderAPI)
	}
	return out.Data.Attributes.URL, nil
}

func (c *LemonSqueezyClient) post(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	start := time.Now()
	body, err := c.breaker.Execute(func() ([]byte, error) {
		return c.doPost(ctx, endpoint, payload)
	})
	c.metrics.RecordAPICallDuration(models.WebhookProviderLemonSqueezy, endpoint, time.Since(start))

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		c.metrics.RecordAPICall(models.WebhookProviderLemonSqueezy, endpoint, "circuit_open")
		return nil, fmt.Errorf("%w: %v", ErrProviderAPI, err)
	}
	return body, err
}

func (c *LemonSqueezyClient) doPost(ctx context.Context, endpoint string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIBaseURL+endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(c.APIKey))
	req.Header.Set("Accept", jsonAPIContentType)
	req.Header.Set("Content-Type", jsonAPIContentType)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		c.metrics.RecordAPICall(models.WebhookProviderLemonSqueezy, endpoint, "error")
		return nil, fmt.Errorf("%w: %v", ErrProviderAPI, err)
	}
	defer resp.Body.Close()

	c.metrics.RecordAPICall(models.WebhookProviderLemonSqueezy, endpoint, strconv.Itoa(resp.StatusCode))
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s status=%d body=%s", ErrProviderAPI, endpoint, resp.StatusCode, string(body))
	}
	return body, nil
}
