package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/app/repository"
	"github.com/foodar/foodar/internal/pkg/cache"
	"github.com/foodar/foodar/internal/pkg/usercontext"
)

// withRestaurant installs the user and restaurant locals that the auth and
// restaurant middlewares set in production.
func withRestaurant(userID string, r *models.Restaurant) fiber.Handler {
	return func(c *fiber.Ctx) error {
		usercontext.SetUserContext(c, usercontext.UserContext{UserID: userID, IsLoggedIn: true})
		if r != nil {
			usercontext.SetRestaurant(c, r)
		}
		return c.Next()
	}
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &out), string(raw))
	}
	return out
}

type memoryRestaurants struct {
	mu    sync.Mutex
	items map[string]*models.Restaurant
}

func newMemoryRestaurants(list ...*models.Restaurant) *memoryRestaurants {
	m := &memoryRestaurants{items: map[string]*models.Restaurant{}}
	for _, r := range list {
		m.items[r.ID] = r
	}
	return m
}

func (m *memoryRestaurants) Create(_ context.Context, r *models.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r.ID == "" {
		r.ID = "rest-" + r.Slug
	}
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *memoryRestaurants) GetByID(_ context.Context, id string) (*models.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r
	return &cp, nil
}

func (m *memoryRestaurants) GetByOwnerID(_ context.Context, ownerID string) (*models.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.OwnerID == ownerID {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryRestaurants) GetBySlug(_ context.Context, slug string) (*models.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.items {
		if r.Slug == slug {
			cp := *r
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryRestaurants) SlugExists(ctx context.Context, slug string) (bool, error) {
	_, err := m.GetBySlug(ctx, slug)
	return err == nil, nil
}

func (m *memoryRestaurants) Update(_ context.Context, r *models.Restaurant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[r.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *r
	m.items[r.ID] = &cp
	return nil
}

func (m *memoryRestaurants) ListByStatus(_ context.Context, status string, _, _ int) ([]models.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Restaurant
	for _, r := range m.items {
		if status == "" || r.Status == status {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (m *memoryRestaurants) Approve(_ context.Context, id string, now time.Time, trialDays int) (*models.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.Status != models.RestaurantStatusPending {
		return nil, repository.ErrInvalidState
	}
	r.Approve(now, trialDays)
	cp := *r
	return &cp, nil
}

func (m *memoryRestaurants) Reject(_ context.Context, id, reason string) (*models.Restaurant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if r.Status != models.RestaurantStatusPending {
		return nil, repository.ErrInvalidState
	}
	r.Reject(reason)
	cp := *r
	return &cp, nil
}

func (m *memoryRestaurants) AddMenuViews(_ context.Context, increments map[string]int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, inc := range increments {
		if r, ok := m.items[id]; ok {
			r.MenuViews += inc
		}
	}
	return nil
}

type memoryProducts struct {
	mu    sync.Mutex
	items []*models.Product
	seq   int
}

func (m *memoryProducts) Create(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		m.seq++
		p.ID = fmt.Sprintf("prod-%d", m.seq)
	}
	if p.Currency == "" {
		p.Currency = models.DefaultCurrency
	}
	cp := *p
	m.items = append(m.items, &cp)
	return nil
}

func (m *memoryProducts) GetByID(_ context.Context, restaurantID, id string) (*models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.items {
		if p.ID == id && p.RestaurantID == restaurantID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryProducts) ListByRestaurant(_ context.Context, restaurantID string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.items {
		if p.RestaurantID == restaurantID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memoryProducts) ListMenu(_ context.Context, restaurantID string) ([]models.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Product{}
	for _, p := range m.items {
		if p.RestaurantID == restaurantID && p.Active && p.ShowInMenu {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (m *memoryProducts) Update(_ context.Context, p *models.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, existing := range m.items {
		if existing.ID == p.ID {
			cp := *p
			m.items[i] = &cp
			return nil
		}
	}
	return repository.ErrNotFound
}

func (m *memoryProducts) CountActive(_ context.Context, restaurantID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, p := range m.items {
		if p.RestaurantID == restaurantID && p.Active {
			n++
		}
	}
	return n, nil
}

type memoryModels struct {
	mu    sync.Mutex
	items []*models.Model3D
	err   error
}

func (m *memoryModels) Create(_ context.Context, model *models.Model3D) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	cp := *model
	m.items = append(m.items, &cp)
	return nil
}

func (m *memoryModels) GetByID(_ context.Context, restaurantID, id string) (*models.Model3D, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, model := range m.items {
		if model.ID == id && model.RestaurantID == restaurantID {
			cp := *model
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memoryModels) ListByRestaurant(_ context.Context, restaurantID string) ([]models.Model3D, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Model3D{}
	for _, model := range m.items {
		if model.RestaurantID == restaurantID {
			out = append(out, *model)
		}
	}
	return out, nil
}

func (m *memoryModels) GetByIDs(_ context.Context, ids []string) ([]models.Model3D, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Model3D
	for _, model := range m.items {
		if want[model.ID] {
			out = append(out, *model)
		}
	}
	return out, nil
}

type recordingRecounter struct {
	mu    sync.Mutex
	calls []string
}

func (r *recordingRecounter) ScheduleProductRecount(_ context.Context, restaurantID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, restaurantID)
	return nil
}

// memoryCache mimics cache.Cache with JSON values.
type memoryCache struct {
	mu      sync.Mutex
	values  map[string][]byte
	deleted []string
}

func newMemoryCache() *memoryCache {
	return &memoryCache{values: map[string][]byte{}}
}

func (m *memoryCache) GetJSON(_ context.Context, key string, out interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	raw, ok := m.values[key]
	if !ok {
		return cache.ErrMiss
	}
	return json.Unmarshal(raw, out)
}

func (m *memoryCache) SetJSON(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = raw
	return nil
}

func (m *memoryCache) Delete(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		m.deleted = append(m.deleted, k)
	}
	return nil
}

type fakeAccess struct {
	sub     *models.Subscription
	allowed bool
}

func (f *fakeAccess) GetSubscription(_ context.Context, _ string) (*models.Subscription, error) {
	return f.sub, nil
}

func (f *fakeAccess) CanAccess(_ *models.Restaurant, _ *models.Subscription) bool {
	return f.allowed
}
