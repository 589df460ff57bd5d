package filtering

import (
	"context"
	"strings"

	"github.com/spigell/broker-genie/internal/plans"
)

const allCategories = "all"

type categoryFilter struct {
	category string
}

// NewCategory creates a filter that keeps plans of a single category. Empty or "all" keeps everything.
func NewCategory(category string) Filter {
	return &categoryFilter{category: strings.TrimSpace(category)}
}

func (f *categoryFilter) Name() string { return "category" }

func (f *categoryFilter) Disable(string) { f.category = "" }

func (f *categoryFilter) IsEnabled() bool {
	return f.category != "" && !strings.EqualFold(f.category, allCategories)
}

func (f *categoryFilter) Validate() error { return nil }

func (f *categoryFilter) Apply(_ context.Context, p *plans.Plans) (*plans.Plans, Step, error) {
	initial := p.Len()
	dropped := p.Keep(func(plan *plans.Plan) bool {
		return plan.ProductCategory == f.category
	})

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}

func (f *categoryFilter) Status() Status {
	details := map[string]string{}
	if f.IsEnabled() {
		details["category"] = f.category
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Details: details}
}

type searchFilter struct {
	term string
}

// NewSearch creates a filter matching a case-insensitive term against company, product and benefits.
func NewSearch(term string) Filter {
	return &searchFilter{term: strings.ToLower(strings.TrimSpace(term))}
}

func (f *searchFilter) Name() string { return "search" }

func (f *searchFilter) Disable(string) { f.term = "" }

func (f *searchFilter) IsEnabled() bool { return f.term != "" }

func (f *searchFilter) Validate() error { return nil }

func (f *searchFilter) Apply(_ context.Context, p *plans.Plans) (*plans.Plans, Step, error) {
	initial := p.Len()
	dropped := p.Keep(func(plan *plans.Plan) bool {
		return strings.Contains(strings.ToLower(plan.CompanyName), f.term) ||
			strings.Contains(strings.ToLower(plan.ProductName), f.term) ||
			strings.Contains(strings.ToLower(plan.Benefits), f.term)
	})

	return p, Step{Initial: initial, Dropped: len(dropped), Left: p.Len()}, nil
}
