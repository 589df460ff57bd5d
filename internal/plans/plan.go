package plans

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spigell/broker-genie/internal/set"
)

const (
	PlanIDField       = "ID"
	PlanCategoryField = "Category"
	PlanCompanyField  = "Company"
)

type Plans struct {
	Items []*Plan
}

// Plan is a single insurance product offering with its eligibility restrictions.
type Plan struct {
	ID              string  `json:"id" yaml:"id" mapstructure:"id"`
	CompanyName     string  `json:"company_name" yaml:"company_name" mapstructure:"company_name"`
	ProductName     string  `json:"product_name" yaml:"product_name" mapstructure:"product_name"`
	ProductCategory string  `json:"product_category" yaml:"product_category" mapstructure:"product_category"`
	MonthlyPrice    float64 `json:"product_price" yaml:"product_price" mapstructure:"product_price"`
	Benefits        string  `json:"product_benefits" yaml:"product_benefits" mapstructure:"product_benefits"`
	// AvailableStates is empty when the plan is sold everywhere.
	AvailableStates               set.Set `json:"available_states,omitempty" yaml:"available_states,omitempty" mapstructure:"available_states"`
	DisqualifyingHealthConditions set.Set `json:"disqualifying_health_conditions,omitempty" yaml:"disqualifying_health_conditions,omitempty" mapstructure:"disqualifying_health_conditions"`
	DisqualifyingMedications      set.Set `json:"disqualifying_medications,omitempty" yaml:"disqualifying_medications,omitempty" mapstructure:"disqualifying_medications"`
}

// Validate checks the plan at the provider boundary.
func (p *Plan) Validate() error {
	if p == nil {
		return fmt.Errorf("plan is nil")
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("plan id is required")
	}
	if strings.TrimSpace(p.CompanyName) == "" {
		return fmt.Errorf("plan %s: company name is required", p.ID)
	}
	if strings.TrimSpace(p.ProductName) == "" {
		return fmt.Errorf("plan %s: product name is required", p.ID)
	}
	if p.MonthlyPrice < 0 {
		return fmt.Errorf("plan %s: monthly price must not be negative, got %.2f", p.ID, p.MonthlyPrice)
	}
	for state := range p.AvailableStates {
		if len(state) != 2 || strings.ToUpper(state) != state {
			return fmt.Errorf("plan %s: invalid state code %q", p.ID, state)
		}
	}
	return nil
}

// PriceLabel renders the monthly price the way brokers read it.
func (p *Plan) PriceLabel() string {
	return fmt.Sprintf("$%.2f/month", p.MonthlyPrice)
}

func (p *Plan) GetStringField(name string) string {
	switch name {
	case PlanIDField:
		return p.ID
	case PlanCategoryField:
		return p.ProductCategory
	case PlanCompanyField:
		return p.CompanyName
	default:
		return ""
	}
}

func (ps *Plans) Len() int {
	return len(ps.Items)
}

func (ps *Plans) FindByID(id string) *Plan {
	for _, plan := range ps.Items {
		if plan.ID == id {
			return plan
		}
	}
	return nil
}

// Categories returns distinct categories in first-seen order.
func (ps *Plans) Categories() []string {
	return ps.distinct(PlanCategoryField)
}

// Companies returns distinct company names in first-seen order.
func (ps *Plans) Companies() []string {
	return ps.distinct(PlanCompanyField)
}

func (ps *Plans) distinct(field string) []string {
	seen := set.New()
	var out []string
	for _, plan := range ps.Items {
		value := plan.GetStringField(field)
		if seen.Has(value) {
			continue
		}
		seen.Add(value)
		out = append(out, value)
	}
	return out
}

// Keep retains plans accepted by keep, preserving order, and returns the IDs of dropped plans.
func (ps *Plans) Keep(keep func(*Plan) bool) []string {
	var dropped []string
	kept := ps.Items[:0]
	for _, plan := range ps.Items {
		if keep(plan) {
			kept = append(kept, plan)
			continue
		}
		dropped = append(dropped, plan.ID)
	}
	clear(ps.Items[len(kept):])
	ps.Items = kept
	return dropped
}

// Clone returns a shallow copy whose item slice can be filtered independently.
func (ps *Plans) Clone() *Plans {
	items := make([]*Plan, len(ps.Items))
	copy(items, ps.Items)
	return &Plans{Items: items}
}

// ReportByCategory groups a printable summary of plans by category.
func (ps *Plans) ReportByCategory() map[string][]map[string]string {
	report := make(map[string][]map[string]string)
	for _, plan := range ps.Items {
		report[plan.ProductCategory] = append(report[plan.ProductCategory], map[string]string{
			"id":       plan.ID,
			"company":  plan.CompanyName,
			"product":  plan.ProductName,
			"price":    plan.PriceLabel(),
			"benefits": plan.Benefits,
		})
	}
	return report
}

func (ps *Plans) DumpToTmpFile() (string, error) {
	file, err := os.CreateTemp("", "plans_*.json")
	if err != nil {
		return "", err
	}
	defer file.Close()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(ps.Items); err != nil {
		return "", err
	}
	return file.Name(), nil
}
