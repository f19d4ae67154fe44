package billing

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodar/foodar/app/models"
)

func testClient(t *testing.T, handler http.HandlerFunc) *LemonSqueezyClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultConfig()
	cfg.APIKey = "ls-key"
	cfg.StoreID = "11"
	cfg.VariantID = "22"
	cfg.APIBaseURL = srv.URL
	cfg.TestMode = true
	return NewLemonSqueezyClient(cfg, nil)
}

func TestReportUsage(t *testing.T) {
	var got map[string]any
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/usage-records", r.URL.Path)
		assert.Equal(t, "Bearer ls-key", r.Header.Get("Authorization"))
		assert.Equal(t, jsonAPIContentType, r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"type":"usage-records","id":"1"}}`))
	})

	require.NoError(t, c.ReportUsage(context.Background(), "456", 5))

	data := got["data"].(map[string]any)
	assert.Equal(t, "usage-records", data["type"])
	attrs := data["attributes"].(map[string]any)
	assert.Equal(t, float64(5), attrs["quantity"])
	assert.Equal(t, "set", attrs["action"])
	rel := data["relationships"].(map[string]any)["subscription-item"].(map[string]any)["data"].(map[string]any)
	assert.Equal(t, "subscription-items", rel["type"])
	assert.Equal(t, "456", rel["id"])
}

func TestReportUsageProviderError(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"errors":[{"detail":"bad item"}]}`))
	})

	err := c.ReportUsage(context.Background(), "456", 5)
	assert.ErrorIs(t, err, ErrProviderAPI)
}

func TestReportUsageRequiresAPIKey(t *testing.T) {
	c := NewLemonSqueezyClient(DefaultConfig(), nil)
	err := c.ReportUsage(context.Background(), "456", 1)
	assert.ErrorIs(t, err, ErrProviderNotConfigured)
}

func TestCircuitOpensAfterConsecutiveFailures(t *testing.T) {
	calls := 0
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	})

	for i := 0; i < 5; i++ {
		require.Error(t, c.ReportUsage(context.Background(), "456", 1))
	}
	err := c.ReportUsage(context.Background(), "456", 1)
	assert.ErrorIs(t, err, ErrProviderAPI)
	assert.Equal(t, 5, calls)
}

func TestCreateCheckout(t *testing.T) {
	var got checkoutRequest
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/checkouts", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"type":"checkouts","id":"c1","attributes":{"url":"https://shop.lemonsqueezy.com/checkout/c1"}}}`))
	})

	restaurant := &models.Restaurant{ID: "r-1", Owner: &models.User{Email: "owner@example.com", FullName: "Sara Khan"}}
	url, err := c.CreateCheckout(context.Background(), restaurant)
	require.NoError(t, err)

	assert.Equal(t, "https://shop.lemonsqueezy.com/checkout/c1", url)
	assert.Equal(t, "r-1", got.Data.Attributes.CheckoutData.Custom["restaurant_id"])
	assert.Equal(t, "owner@example.com", got.Data.Attributes.CheckoutData.Email)
	assert.True(t, got.Data.Attributes.TestMode)
	assert.Equal(t, "11", got.Data.Relationships.Store.Data.ID)
	assert.Equal(t, "22", got.Data.Relationships.Variant.Data.ID)
}

func TestCreateCheckoutMissingURL(t *testing.T) {
	c := testClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"attributes":{}}}`))
	})

	_, err := c.CreateCheckout(context.Background(), &models.Restaurant{ID: "r-1"})
	assert.ErrorIs(t, err, ErrProviderAPI)
}
