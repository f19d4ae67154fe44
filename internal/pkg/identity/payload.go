package identity

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/foodar/foodar/app/models"
)

const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

var ErrInvalidPayload = errors.New("invalid identity webhook payload")

// Event is an identity-provider webhook envelope.
type Event struct {
	Type string   `json:"type"`
	Data UserData `json:"data"`
}

type EmailAddress struct {
	EmailAddress string `json:"email_address"`
}

type UserData struct {
	ID             string         `json:"id"`
	EmailAddresses []EmailAddress `json:"email_addresses"`
	FirstName      *string        `json:"first_name"`
	LastName       *string        `json:"last_name"`
	PublicMetadata map[string]any `json:"public_metadata"`
}

// ParseEvent decodes the envelope and requires a type and a user id.
func ParseEvent(body []byte) (*Event, error) {
	var ev Event
	if err := json.Unmarshal(body, &ev); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if ev.Type == "" {
		return nil, fmt.Errorf("%w: missing type", ErrInvalidPayload)
	}
	if strings.HasPrefix(ev.Type, "user.") && ev.Data.ID == "" {
		return nil, fmt.Errorf("%w: missing data.id", ErrInvalidPayload)
	}
	return &ev, nil
}

// PrimaryEmail returns the first listed address.
func (d UserData) PrimaryEmail() string {
	if len(d.EmailAddresses) == 0 {
		return ""
	}
	return d.EmailAddresses[0].EmailAddress
}

// FullName joins whichever name parts are present.
func (d UserData) FullName() string {
	var parts []string
	for _, p := range []*string{d.FirstName, d.LastName} {
		if p != nil && strings.TrimSpace(*p) != "" {
			parts = append(parts, strings.TrimSpace(*p))
		}
	}
	return strings.Join(parts, " ")
}

func (d UserData) Role() string {
	role, _ := d.PublicMetadata["role"].(string)
	return models.NormalizeRole(role)
}

// ToUser maps the payload to a user row.
func (d UserData) ToUser() *models.User {
	return &models.User{
		ClerkUserID: d.ID,
		Email:       d.PrimaryEmail(),
		FullName:    d.FullName(),
		Role:        d.Role(),
	}
}
