package clients

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/broker-genie/internal/set"
)

const dateLayout = "2006-01-02"

// Submission is a raw intake form. Standard selections and free-text custom entries arrive separately.
type Submission struct {
	FullName               string                 `json:"full_name" mapstructure:"full_name"`
	Gender                 string                 `json:"gender" mapstructure:"gender"`
	DateOfBirth            string                 `json:"date_of_birth" mapstructure:"date_of_birth"`
	ZipCode                string                 `json:"zip_code" mapstructure:"zip_code"`
	State                  string                 `json:"state" mapstructure:"state"`
	Height                 *float64               `json:"height,omitempty" mapstructure:"height"`
	Weight                 *float64               `json:"weight,omitempty" mapstructure:"weight"`
	HealthConditions       []string               `json:"health_conditions" mapstructure:"health_conditions"`
	Medications            []string               `json:"medications" mapstructure:"medications"`
	CustomHealthConditions []string               `json:"custom_health_conditions" mapstructure:"custom_health_conditions"`
	CustomMedications      []string               `json:"custom_medications" mapstructure:"custom_medications"`
	Dependents             []*DependentSubmission `json:"dependents" mapstructure:"dependents"`
}

type DependentSubmission struct {
	Relationship           string   `json:"relationship" mapstructure:"relationship"`
	FullName               string   `json:"full_name" mapstructure:"full_name"`
	Gender                 string   `json:"gender" mapstructure:"gender"`
	DateOfBirth            string   `json:"date_of_birth" mapstructure:"date_of_birth"`
	Height                 *float64 `json:"height,omitempty" mapstructure:"height"`
	Weight                 *float64 `json:"weight,omitempty" mapstructure:"weight"`
	HealthConditions       []string `json:"health_conditions" mapstructure:"health_conditions"`
	Medications            []string `json:"medications" mapstructure:"medications"`
	CustomHealthConditions []string `json:"custom_health_conditions" mapstructure:"custom_health_conditions"`
	CustomMedications      []string `json:"custom_medications" mapstructure:"custom_medications"`
}

// DecodeSubmission decodes a generic document (YAML, JSON, viper sub-tree) into a Submission.
// Numbers given as strings are accepted, as intake forms send them.
func DecodeSubmission(raw map[string]any) (*Submission, error) {
	var sub Submission
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       mapstructure.DecodeHookFuncType(dateToString),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &sub,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidSubmission, err)
	}

	return &sub, nil
}

// dateToString renders dates back to YYYY-MM-DD. YAML parsers turn unquoted dates into time.Time.
func dateToString(_, to reflect.Type, data any) (any, error) {
	t, ok := data.(time.Time)
	if !ok || to.Kind() != reflect.String {
		return data, nil
	}
	return t.Format(dateLayout), nil
}

// Build validates a submission and turns it into a Client with merged condition and medication sets.
func Build(userID string, sub *Submission) (*Client, error) {
	if sub == nil {
		return nil, fmt.Errorf("%w: submission is empty", ErrInvalidSubmission)
	}

	name := strings.TrimSpace(sub.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrInvalidSubmission)
	}

	state := ""
	if strings.TrimSpace(sub.State) != "" {
		code, ok := NormalizeState(sub.State)
		if !ok {
			return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidSubmission, sub.State)
		}
		state = code
	}

	if err := validatePerson(name, sub.DateOfBirth, sub.Height, sub.Weight); err != nil {
		return nil, err
	}

	client := &Client{
		ID:               uuid.New().String(),
		UserID:           strings.TrimSpace(userID),
		FullName:         name,
		Gender:           strings.TrimSpace(sub.Gender),
		DateOfBirth:      strings.TrimSpace(sub.DateOfBirth),
		ZipCode:          strings.TrimSpace(sub.ZipCode),
		State:            state,
		Height:           sub.Height,
		Weight:           sub.Weight,
		HealthConditions: merge(sub.HealthConditions, sub.CustomHealthConditions),
		Medications:      merge(sub.Medications, sub.CustomMedications),
		CreatedAt:        time.Now().UTC(),
	}

	for idx, ds := range sub.Dependents {
		dep, err := buildDependent(client.ID, ds)
		if err != nil {
			return nil, fmt.Errorf("dependent %d: %w", idx+1, err)
		}
		if dep.Relationship == RelationshipSpouse && client.HasSpouse() {
			return nil, ErrDuplicateSpouse
		}
		client.Dependents = append(client.Dependents, dep)
	}

	return client, nil
}

func buildDependent(clientID string, ds *DependentSubmission) (*Dependent, error) {
	if ds == nil {
		return nil, fmt.Errorf("%w: dependent is empty", ErrInvalidSubmission)
	}

	rel := Relationship(strings.ToLower(strings.TrimSpace(ds.Relationship)))
	switch rel {
	case RelationshipSpouse, RelationshipChild, RelationshipOther:
	default:
		return nil, fmt.Errorf("%w: unknown relationship %q", ErrInvalidSubmission, ds.Relationship)
	}

	name := strings.TrimSpace(ds.FullName)
	if name == "" {
		return nil, fmt.Errorf("%w: dependent full name is required", ErrInvalidSubmission)
	}
	if err := validatePerson(name, ds.DateOfBirth, ds.Height, ds.Weight); err != nil {
		return nil, err
	}

	return &Dependent{
		ID:               uuid.New().String(),
		ClientID:         clientID,
		Relationship:     rel,
		FullName:         name,
		Gender:           strings.TrimSpace(ds.Gender),
		DateOfBirth:      strings.TrimSpace(ds.DateOfBirth),
		Height:           ds.Height,
		Weight:           ds.Weight,
		HealthConditions: merge(ds.HealthConditions, ds.CustomHealthConditions),
		Medications:      merge(ds.Medications, ds.CustomMedications),
	}, nil
}

func validatePerson(name, dob string, height, weight *float64) error {
	if dob = strings.TrimSpace(dob); dob != "" {
		if _, err := time.Parse(dateLayout, dob); err != nil {
			return fmt.Errorf("%w: %s: date of birth %q is not YYYY-MM-DD", ErrInvalidSubmission, name, dob)
		}
	}
	if height != nil && *height < 0 {
		return fmt.Errorf("%w: %s: height must not be negative", ErrInvalidSubmission, name)
	}
	if weight != nil && *weight < 0 {
		return fmt.Errorf("%w: %s: weight must not be negative", ErrInvalidSubmission, name)
	}
	return nil
}

// merge unions standard selections with custom entries. Custom entries are trimmed and blanks dropped.
func merge(standard, custom []string) set.Set {
	out := set.New()
	for _, item := range standard {
		if item != "" {
			out.Add(item)
		}
	}
	for _, item := range custom {
		if item = strings.TrimSpace(item); item != "" {
			out.Add(item)
		}
	}
	return out
}
