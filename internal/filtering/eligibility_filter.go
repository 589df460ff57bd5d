package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/eligibility"
	"github.com/spigell/broker-genie/internal/plans"
)

type eligibilityFilter struct {
	enabled bool
	reason  string
	profile *clients.Profile
	logger  *zap.Logger
}

// NewEligibility creates a filter that keeps only the plans the profile qualifies for.
func NewEligibility(profile *clients.Profile, logger *zap.Logger) Filter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &eligibilityFilter{enabled: true, profile: profile, logger: logger}
}

func (f *eligibilityFilter) Name() string { return "eligibility" }

func (f *eligibilityFilter) Disable(reason string) {
	f.enabled = false
	f.reason = reason
}

func (f *eligibilityFilter) IsEnabled() bool { return f.enabled }

func (f *eligibilityFilter) Validate() error {
	if f.profile == nil {
		return fmt.Errorf("client profile is required")
	}
	return nil
}

func (f *eligibilityFilter) Apply(_ context.Context, p *plans.Plans) (*plans.Plans, Step, error) {
	initial := p.Len()
	matched := eligibility.Match(f.profile, p.Items)

	if dropped := initial - len(matched); dropped > 0 {
		f.logger.Info("excluding plans the client does not qualify for",
			zap.String("state", f.profile.State),
			zap.Int("excluded_plans", dropped),
			zap.Int("plans_left", len(matched)),
		)
	}

	return &plans.Plans{Items: matched}, Step{Initial: initial, Dropped: initial - len(matched), Left: len(matched)}, nil
}

func (f *eligibilityFilter) Status() Status {
	details := map[string]string{}
	if f.profile != nil {
		details["state"] = f.profile.State
		details["health_conditions"] = fmt.Sprint(f.profile.HealthConditions.Len())
		details["medications"] = fmt.Sprint(f.profile.Medications.Len())
	}
	return Status{Name: f.Name(), Enabled: f.enabled, Reason: f.reason, Details: details}
}
