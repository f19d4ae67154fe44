package billing

import "errors"

var (
	// ErrInvalidSignature is returned when the webhook signature does not match.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrInvalidPayload is returned when a verified payload cannot be parsed.
	ErrInvalidPayload = errors.New("invalid webhook payload")

	// ErrMissingRestaurantID is returned when custom_data carries no restaurant_id.
	ErrMissingRestaurantID = errors.New("missing restaurant_id in custom_data")

	// ErrRestaurantNotFound is returned when the routed restaurant does not exist.
	ErrRestaurantNotFound = errors.New("restaurant not found")

	// ErrProviderAPI is returned when the payment provider API call fails.
	ErrProviderAPI = errors.New("payment provider API error")

	// ErrProviderNotConfigured is returned when credentials are missing.
	ErrProviderNotConfigured = errors.New("payment provider not configured")
)
