package ai

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/catalog"
	"github.com/spigell/broker-genie/internal/plans"
)

const (
	Greeting   = "Hello! I'm your Insurance Sales Genie assistant. How can I help you today?"
	ErrorReply = "I'm sorry, I encountered an error while processing your request. Please try again."
)

var ErrEmptyQuestion = errors.New("question must not be empty")

// KnowledgeBase is the catalog data an assistant may answer from.
type KnowledgeBase struct {
	Plans            []*plans.Plan `json:"insurancePlans"`
	HealthConditions []string      `json:"healthConditions"`
	Medications      []string      `json:"medications"`
}

// LoadKnowledgeBase reads the whole catalog from src.
func LoadKnowledgeBase(ctx context.Context, src catalog.Source) (*KnowledgeBase, error) {
	doc, err := catalog.Load(ctx, src)
	if err != nil {
		return nil, err
	}
	return &KnowledgeBase{Plans: doc.Plans, HealthConditions: doc.HealthConditions, Medications: doc.Medications}, nil
}

type Assistant interface {
	Name() string
	Answer(ctx context.Context, question string, kb *KnowledgeBase) (string, error)
}

// Fallback asks the primary assistant and falls back to the secondary one on error.
type Fallback struct {
	primary   Assistant
	secondary Assistant
	logger    *zap.Logger
}

// NewFallback returns a fallback chain. A nil primary means only the secondary is used.
func NewFallback(primary, secondary Assistant, logger *zap.Logger) *Fallback {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fallback{primary: primary, secondary: secondary, logger: logger}
}

func (f *Fallback) Name() string {
	if f.primary == nil {
		return f.secondary.Name()
	}
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *Fallback) Answer(ctx context.Context, question string, kb *KnowledgeBase) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}

	if f.primary != nil {
		answer, err := f.primary.Answer(ctx, question, kb)
		if err == nil {
			return answer, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		f.logger.Warn("assistant failed, falling back",
			zap.String("assistant", f.primary.Name()),
			zap.String("fallback", f.secondary.Name()),
			zap.Error(err),
		)
	}

	return f.secondary.Answer(ctx, question, kb)
}
