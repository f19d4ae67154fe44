package identity

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodar/foodar/app/models"
	"github.com/foodar/foodar/internal/pkg/ledger"
)

type memoryEvents struct {
	mu     sync.Mutex
	events map[string]*models.WebhookEvent
}

func (m *memoryEvents) Create(_ context.Context, e *models.WebhookEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.ID = uuid.New().String()
	cp := *e
	m.events[e.ID] = &cp
	return nil
}

func (m *memoryEvents) CreateIfNotExists(ctx context.Context, e *models.WebhookEvent) (bool, *models.WebhookEvent, error) {
	return true, e, m.Create(ctx, e)
}

func (m *memoryEvents) Lock(_ context.Context, id string) (*models.WebhookEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *m.events[id]
	return &cp, nil
}

func (m *memoryEvents) MarkProcessed(_ context.Context, id, processingError string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	e := m.events[id]
	e.Processed = true
	e.ProcessedAt = &at
	e.ProcessingError = processingError
	return nil
}

type memoryUsers struct {
	users     map[string]*models.User
	upsertErr error
}

func (m *memoryUsers) UpsertByClerkID(_ context.Context, u *models.User) error {
	if m.upsertErr != nil {
		return m.upsertErr
	}
	if existing, ok := m.users[u.ClerkUserID]; ok {
		if u.Email != "" {
			existing.Email = u.Email
		}
		if u.FullName != "" {
			existing.FullName = u.FullName
		}
		existing.Role = u.Role
		return nil
	}
	m.users[u.ClerkUserID] = u
	return nil
}

func (m *memoryUsers) DeleteByClerkID(_ context.Context, id string) error {
	delete(m.users, id)
	return nil
}

type recordingSyncMetrics struct{ statuses []string }

func (r *recordingSyncMetrics) RecordUserSync(_, status string) { r.statuses = append(r.statuses, status) }

func newTestService() (*Service, *memoryUsers, *memoryEvents, *recordingSyncMetrics) {
	users := &memoryUsers{users: map[string]*models.User{}}
	events := &memoryEvents{events: map[string]*models.WebhookEvent{}}
	m := &recordingSyncMetrics{}
	return NewService(users, ledger.New(events), m), users, events, m
}

func TestService_UserLifecycle(t *testing.T) {
	svc, users, events, m := newTestService()
	ctx := context.Background()

	created := `{"type":"user.created","data":{"id":"user_1","email_addresses":[{"email_address":"a@example.com"}],"first_name":"Sara"}}`
	res, err := svc.HandleWebhook(ctx, []byte(created))
	require.NoError(t, err)
	assert.Equal(t, "user_1", res.ClerkUserID)
	require.Contains(t, users.users, "user_1")
	assert.Equal(t, "Sara", users.users["user_1"].FullName)

	// Delivered twice, still one user.
	_, err = svc.HandleWebhook(ctx, []byte(created))
	require.NoError(t, err)
	assert.Len(t, users.users, 1)

	updated := `{"type":"user.updated","data":{"id":"user_1","email_addresses":[],"public_metadata":{"role":"admin"}}}`
	_, err = svc.HandleWebhook(ctx, []byte(updated))
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", users.users["user_1"].Email)
	assert.Equal(t, models.ROLE_ADMIN, users.users["user_1"].Role)

	_, err = svc.HandleWebhook(ctx, []byte(`{"type":"user.deleted","data":{"id":"user_1"}}`))
	require.NoError(t, err)
	assert.Empty(t, users.users)

	assert.Len(t, events.events, 4)
	for _, e := range events.events {
		assert.True(t, e.Processed)
		assert.Nil(t, e.ExternalEventID)
		assert.Equal(t, models.WebhookProviderClerk, e.Provider)
	}
	assert.Equal(t, []string{"success", "success", "success", "success"}, m.statuses)
}

func TestService_UnknownEventIgnored(t *testing.T) {
	svc, users, events, m := newTestService()
	res, err := svc.HandleWebhook(context.Background(), []byte(`{"type":"session.created","data":{"id":"sess_1"}}`))
	require.NoError(t, err)
	assert.True(t, res.Ignored)
	assert.Empty(t, users.users)
	assert.Len(t, events.events, 1)
	assert.Empty(t, m.statuses)
}

func TestService_Errors(t *testing.T) {
	svc, users, events, m := newTestService()
	ctx := context.Background()

	_, err := svc.HandleWebhook(ctx, []byte(`{`))
	assert.ErrorIs(t, err, ErrInvalidPayload)
	assert.True(t, IsClientError(err))
	assert.Empty(t, events.events)

	users.upsertErr = errors.New("deadlock")
	_, err = svc.HandleWebhook(ctx, []byte(`{"type":"user.created","data":{"id":"user_9"}}`))
	require.Error(t, err)
	assert.False(t, IsClientError(err))
	assert.Equal(t, []string{"error"}, m.statuses)
	for _, e := range events.events {
		assert.False(t, e.Processed, "failed events stay open")
	}
}
