package catalog

import (
	"context"
	"slices"

	"github.com/spigell/broker-genie/internal/plans"
)

// Static serves a fixed, already validated document.
type Static struct {
	doc Document
}

func NewStatic(doc Document) *Static {
	return &Static{doc: doc}
}

func (s *Static) Plans(context.Context) (*plans.Plans, error) {
	return (&plans.Plans{Items: s.doc.Plans}).Clone(), nil
}

func (s *Static) HealthConditions(context.Context) ([]string, error) {
	return slices.Clone(s.doc.HealthConditions), nil
}

func (s *Static) Medications(context.Context) ([]string, error) {
	return slices.Clone(s.doc.Medications), nil
}
