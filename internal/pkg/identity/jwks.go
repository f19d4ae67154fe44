package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/gofiber/fiber/v2/log"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/time/rate"
)

const (
	// minRefreshInterval throttles refetches triggered by unknown key ids.
	minRefreshInterval = time.Minute
	jwksFetchTimeout   = 5 * time.Second
)

// JWKSCache holds the provider's signing keys. The set is refetched in the
// background every TTL, and a key id that is not cached triggers at most one
// refetch per minute. Lookups never wait on the throttle.
type JWKSCache struct {
	kf keyfunc.Keyfunc
}

var errNoJWKSURL = errors.New("JWKS url is not configured")

// NewJWKSCache loads the key set from url. A failing first fetch is logged,
// not returned, so the API can start while the provider is unreachable. The
// background refresh stops when ctx is done. Without a url every lookup fails.
func NewJWKSCache(ctx context.Context, url string, ttl time.Duration, client *http.Client) (*JWKSCache, error) {
	if url == "" {
		log.Warn("[Identity] No JWKS url configured, bearer tokens will be rejected")
		return &JWKSCache{}, nil
	}
	if ttl <= 0 {
		ttl = DefaultJWKSTTL
	}
	if client == nil {
		client = &http.Client{Timeout: jwksFetchTimeout}
	}

	kf, err := keyfunc.NewDefaultOverrideCtx(ctx, []string{url}, keyfunc.Override{
		Client:            client,
		HTTPTimeout:       jwksFetchTimeout,
		RefreshInterval:   ttl,
		RefreshUnknownKID: rate.NewLimiter(rate.Every(minRefreshInterval), 1),
		RateLimitWaitMax:  time.Millisecond,
		RefreshErrorHandlerFunc: func(u string) func(context.Context, error) {
			return func(_ context.Context, err error) {
				log.Warnf("[Identity] JWKS refresh from %s failed: %v", u, err)
			}
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create JWKS cache: %w", err)
	}
	return &JWKSCache{kf: kf}, nil
}

// KeyfuncCtx returns a jwt.Keyfunc resolving keys from the cached set.
func (c *JWKSCache) KeyfuncCtx(ctx context.Context) jwt.Keyfunc {
	if c.kf == nil {
		return func(*jwt.Token) (interface{}, error) { return nil, errNoJWKSURL }
	}
	return c.kf.KeyfuncCtx(ctx)
}
