// Package catalog provides the insurance plan catalog and the reference lists of
// health conditions and medications offered on the intake form.
package catalog

import (
	"context"
	"fmt"

	"github.com/mitchellh/mapstructure"

	"github.com/spigell/broker-genie/internal/plans"
	"github.com/spigell/broker-genie/internal/set"
)

type Source interface {
	Plans(ctx context.Context) (*plans.Plans, error)
	HealthConditions(ctx context.Context) ([]string, error)
	Medications(ctx context.Context) ([]string, error)
}

// Document is the full catalog as stored in a file or a cache entry.
type Document struct {
	Plans            []*plans.Plan `json:"plans" mapstructure:"plans"`
	HealthConditions []string      `json:"health_conditions" mapstructure:"health_conditions"`
	Medications      []string      `json:"medications" mapstructure:"medications"`
}

// Load reads everything a source offers into a single document.
func Load(ctx context.Context, src Source) (*Document, error) {
	ps, err := src.Plans(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading plans: %w", err)
	}
	conditions, err := src.HealthConditions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading health conditions: %w", err)
	}
	meds, err := src.Medications(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading medications: %w", err)
	}

	return &Document{Plans: ps.Items, HealthConditions: conditions, Medications: meds}, nil
}

// Validate checks every plan and rejects duplicate ids.
func (d *Document) Validate() error {
	seen := set.New()
	for i, plan := range d.Plans {
		if err := plan.Validate(); err != nil {
			return fmt.Errorf("plan #%d: %w", i, err)
		}
		if seen.Has(plan.ID) {
			return fmt.Errorf("duplicate plan id %q", plan.ID)
		}
		seen.Add(plan.ID)
	}
	return nil
}

func decodeDocument(raw map[string]any) (*Document, error) {
	var doc Document
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook:       set.DecodeHook(),
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           &doc,
	})
	if err != nil {
		return nil, err
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, err
	}

	return &doc, nil
}
