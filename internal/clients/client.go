package clients

import (
	"context"
	"errors"
	"time"

	"github.com/spigell/broker-genie/internal/set"
)

var (
	ErrNotFound          = errors.New("client not found")
	ErrDuplicateSpouse   = errors.New("a client can have at most one spouse")
	ErrInvalidSubmission = errors.New("invalid intake submission")
)

type Relationship string

const (
	RelationshipSpouse Relationship = "spouse"
	RelationshipChild  Relationship = "child"
	RelationshipOther  Relationship = "other"
)

// Profile is the health and location data the eligibility matcher reads.
// An empty State means the state is unknown.
type Profile struct {
	State            string  `json:"state"`
	HealthConditions set.Set `json:"health_conditions"`
	Medications      set.Set `json:"medications"`
}

// Client is a primary applicant with their dependents.
type Client struct {
	ID               string       `json:"id"`
	UserID           string       `json:"user_id,omitempty"`
	FullName         string       `json:"full_name"`
	Gender           string       `json:"gender,omitempty"`
	DateOfBirth      string       `json:"date_of_birth,omitempty"`
	ZipCode          string       `json:"zip_code,omitempty"`
	State            string       `json:"state,omitempty"`
	Height           *float64     `json:"height,omitempty"`
	Weight           *float64     `json:"weight,omitempty"`
	HealthConditions set.Set      `json:"health_conditions"`
	Medications      set.Set      `json:"medications"`
	Dependents       []*Dependent `json:"dependents,omitempty"`
	CreatedAt        time.Time    `json:"created_at"`
}

type Dependent struct {
	ID               string       `json:"id"`
	ClientID         string       `json:"client_id,omitempty"`
	Relationship     Relationship `json:"relationship"`
	FullName         string       `json:"full_name"`
	Gender           string       `json:"gender,omitempty"`
	DateOfBirth      string       `json:"date_of_birth,omitempty"`
	Height           *float64     `json:"height,omitempty"`
	Weight           *float64     `json:"weight,omitempty"`
	HealthConditions set.Set      `json:"health_conditions"`
	Medications      set.Set      `json:"medications"`
}

// Profile returns the primary applicant's matching profile. Dependents are not part of it.
func (c *Client) Profile() *Profile {
	return &Profile{
		State:            c.State,
		HealthConditions: c.HealthConditions,
		Medications:      c.Medications,
	}
}

func (c *Client) HasSpouse() bool {
	for _, dep := range c.Dependents {
		if dep.Relationship == RelationshipSpouse {
			return true
		}
	}
	return false
}

// Repository persists intake results.
type Repository interface {
	Create(ctx context.Context, c *Client) error
	Get(ctx context.Context, id string) (*Client, error)
	List(ctx context.Context, userID string) ([]*Client, error)
}
