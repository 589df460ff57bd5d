// Package rules answers broker questions from the catalog with keyword rules.
// It needs no network access and is used when no language model is available.
package rules

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/spigell/broker-genie/internal/ai"
	"github.com/spigell/broker-genie/internal/plans"
)

const HelpMessage = "I can help you with information about our insurance products, health conditions, medications, and pricing. " +
	"Please ask me about specific insurance plans, health conditions, or how to find the right coverage for your needs."

type Assistant struct{}

func New() *Assistant {
	return &Assistant{}
}

func (*Assistant) Name() string { return "rules" }

// Answer picks the first matching topic: products, health conditions, medications, then pricing.
func (*Assistant) Answer(_ context.Context, question string, kb *ai.KnowledgeBase) (string, error) {
	if kb == nil {
		kb = &ai.KnowledgeBase{}
	}
	q := strings.ToLower(question)
	catalog := &plans.Plans{Items: kb.Plans}

	switch {
	case containsAny(q, "product", "plan", "insurance"):
		return products(q, catalog), nil
	case containsAny(q, "health", "condition", "medical"):
		return restrictions(q, catalog, kb.HealthConditions, conditionTopic), nil
	case containsAny(q, "medication", "drug", "medicine"):
		return restrictions(q, catalog, kb.Medications, medicationTopic), nil
	case containsAny(q, "price", "cost", "affordable"):
		return byPrice(catalog), nil
	default:
		return HelpMessage, nil
	}
}

func products(q string, catalog *plans.Plans) string {
	var b strings.Builder

	for _, category := range catalog.Categories() {
		if category == "" || !strings.Contains(q, strings.ToLower(category)) {
			continue
		}
		fmt.Fprintf(&b, "Here are the %s insurance plans available:\n\n", category)
		for _, p := range catalog.Items {
			if strings.EqualFold(p.ProductCategory, category) {
				fmt.Fprintf(&b, "- **%s - %s**: %s\n  %s\n\n", p.CompanyName, p.ProductName, p.PriceLabel(), p.Benefits)
			}
		}
		return b.String()
	}

	for _, company := range catalog.Companies() {
		if company == "" || !strings.Contains(q, strings.ToLower(company)) {
			continue
		}
		fmt.Fprintf(&b, "Here are the insurance plans offered by %s:\n\n", company)
		for _, p := range catalog.Items {
			if strings.EqualFold(p.CompanyName, company) {
				fmt.Fprintf(&b, "- **%s** (%s): %s\n  %s\n\n", p.ProductName, p.ProductCategory, p.PriceLabel(), p.Benefits)
			}
		}
		return b.String()
	}

	b.WriteString("Here are the insurance plans we offer:\n\n")
	for _, category := range catalog.Categories() {
		fmt.Fprintf(&b, "**%s Plans:**\n", category)
		for _, p := range catalog.Items {
			if p.ProductCategory == category {
				fmt.Fprintf(&b, "- %s - %s: %s\n", p.CompanyName, p.ProductName, p.PriceLabel())
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}

type topic struct {
	disqualifies func(p *plans.Plan, name string) bool
	intro        string
	none         string
	overview     string
}

var conditionTopic = topic{
	disqualifies: func(p *plans.Plan, name string) bool { return p.DisqualifyingHealthConditions.Has(name) },
	intro:        "For clients with %s, here are the insurance options:\n\n",
	none:         "There are no plans available for this health condition.\n",
	overview:     "Here are the health conditions that may affect insurance eligibility:\n\n",
}

var medicationTopic = topic{
	disqualifies: func(p *plans.Plan, name string) bool { return p.DisqualifyingMedications.Has(name) },
	intro:        "For clients taking %s, here are the insurance options:\n\n",
	none:         "There are no plans available for clients taking this medication.\n",
	overview:     "Here are the medications that may affect insurance eligibility:\n\n",
}

// restrictions answers about one named condition or medication, or summarizes all of them.
func restrictions(q string, catalog *plans.Plans, names []string, t topic) string {
	var b strings.Builder

	for _, name := range names {
		if name == "" || !strings.Contains(q, strings.ToLower(name)) {
			continue
		}

		fmt.Fprintf(&b, t.intro, name)
		available := 0
		for _, p := range catalog.Items {
			if t.disqualifies(p, name) {
				continue
			}
			if available == 0 {
				b.WriteString("**Available Plans:**\n")
			}
			available++
			fmt.Fprintf(&b, "- %s - %s (%s): %s\n", p.CompanyName, p.ProductName, p.ProductCategory, p.PriceLabel())
		}
		if available == 0 {
			b.WriteString(t.none)
		}
		return b.String()
	}

	b.WriteString(t.overview)
	for _, name := range names {
		count := 0
		for _, p := range catalog.Items {
			if t.disqualifies(p, name) {
				count++
			}
		}
		fmt.Fprintf(&b, "- **%s**: Disqualifies from %d plans\n", name, count)
	}
	return b.String()
}

func byPrice(catalog *plans.Plans) string {
	sorted := &plans.Plans{Items: slices.Clone(catalog.Items)}
	sorted.Sort(plans.SortByPrice, false)

	var b strings.Builder
	b.WriteString("Here are our insurance plans sorted by price (lowest to highest):\n\n")
	for _, p := range sorted.Items {
		fmt.Fprintf(&b, "- **%s - %s** (%s): %s\n", p.CompanyName, p.ProductName, p.ProductCategory, p.PriceLabel())
	}
	return b.String()
}

func containsAny(s string, words ...string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
