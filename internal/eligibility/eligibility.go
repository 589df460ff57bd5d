// Package eligibility decides which insurance plans a client qualifies for.
//
// Matching is a pure function of the client's profile and the catalog: it performs
// no I/O, never mutates its inputs and is safe for concurrent use.
package eligibility

import (
	"github.com/spigell/broker-genie/internal/clients"
	"github.com/spigell/broker-genie/internal/plans"
)

// Reason names the check that excluded a plan.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonStateUnavailable Reason = "state_unavailable"
	ReasonHealthCondition  Reason = "disqualifying_health_condition"
	ReasonMedication       Reason = "disqualifying_medication"
)

// Verdict is the outcome of checking one plan against one profile.
type Verdict struct {
	PlanID   string
	Eligible bool
	Reason   Reason
	// Overlap lists the client's conditions or medications that disqualified the plan.
	Overlap []string
}

var emptyProfile = &clients.Profile{}

// Evaluate applies the state, health condition and medication checks in that order
// and reports the first one that fails.
func Evaluate(profile *clients.Profile, plan *plans.Plan) Verdict {
	if profile == nil {
		profile = emptyProfile
	}

	v := Verdict{PlanID: plan.ID}

	// An unknown state does not restrict anything.
	if profile.State != "" && !plan.AvailableStates.IsEmpty() && !plan.AvailableStates.Has(profile.State) {
		v.Reason = ReasonStateUnavailable
		return v
	}

	if overlap := plan.DisqualifyingHealthConditions.Intersection(profile.HealthConditions); len(overlap) > 0 {
		v.Reason = ReasonHealthCondition
		v.Overlap = overlap
		return v
	}

	if overlap := plan.DisqualifyingMedications.Intersection(profile.Medications); len(overlap) > 0 {
		v.Reason = ReasonMedication
		v.Overlap = overlap
		return v
	}

	v.Eligible = true
	return v
}

// Match returns the plans of catalog the profile qualifies for, in catalog order.
// The result is never nil. Nil catalog entries are skipped.
func Match(profile *clients.Profile, catalog []*plans.Plan) []*plans.Plan {
	matched := make([]*plans.Plan, 0, len(catalog))
	for _, plan := range catalog {
		if plan == nil {
			continue
		}
		if Evaluate(profile, plan).Eligible {
			matched = append(matched, plan)
		}
	}
	return matched
}

// Explain evaluates every plan of catalog, in catalog order.
func Explain(profile *clients.Profile, catalog []*plans.Plan) []Verdict {
	verdicts := make([]Verdict, 0, len(catalog))
	for _, plan := range catalog {
		if plan == nil {
			continue
		}
		verdicts = append(verdicts, Evaluate(profile, plan))
	}
	return verdicts
}
