package gemini

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/broker-genie/internal/ai"
	"github.com/spigell/broker-genie/internal/utils"
)

type contentGenerator interface {
	GenerateContent(ctx context.Context, system, message string) (string, error)
	Model() string
}

//go:embed prompt.md
var systemPrompt string

const defaultMaxLogLength = 200

// Assistant answers broker questions with Gemini, grounding it on the catalog.
type Assistant struct {
	generator contentGenerator
	logger    *zap.Logger
	maxLogLen int
}

func NewAssistant(generator contentGenerator, maxLogLength int, logger *zap.Logger) *Assistant {
	if maxLogLength <= 0 {
		maxLogLength = defaultMaxLogLength
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Assistant{
		generator: generator,
		logger:    logger,
		maxLogLen: maxLogLength,
	}
}

func (a *Assistant) Name() string { return "gemini" }

func (a *Assistant) Answer(ctx context.Context, question string, kb *ai.KnowledgeBase) (string, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return "", ai.ErrEmptyQuestion
	}

	system, err := buildSystemInstruction(kb)
	if err != nil {
		return "", err
	}

	a.logger.Debug("gemini chat request",
		zap.String("model", a.generator.Model()),
		zap.Int("system_length", utf8.RuneCountInString(system)),
		zap.String("question_preview", utils.TruncateForLog(question, a.maxLogLen)),
	)

	answer, err := a.generator.GenerateContent(ctx, system, question)
	if err != nil {
		return "", err
	}

	a.logger.Debug("gemini chat response",
		zap.Int("response_length", utf8.RuneCountInString(answer)),
		zap.String("response_preview", utils.TruncateForLog(answer, a.maxLogLen)),
	)

	return answer, nil
}

func buildSystemInstruction(kb *ai.KnowledgeBase) (string, error) {
	if kb == nil {
		kb = &ai.KnowledgeBase{}
	}

	payload, err := json.MarshalIndent(kb, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal knowledge base: %w", err)
	}

	var b strings.Builder
	b.WriteString(strings.TrimSpace(systemPrompt))
	b.WriteString("\n\nHere is additional context that might be helpful:\n\n")
	b.Write(payload)
	return b.String(), nil
}
