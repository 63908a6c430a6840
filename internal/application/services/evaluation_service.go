package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
)

// EvaluationService writes the Markdown recommendation for a finished run.
type EvaluationService struct {
	llm    providers.ChatCompleter
	logger zerolog.Logger
}

// NewEvaluationService creates a new evaluation service.
func NewEvaluationService(llm providers.ChatCompleter, logger zerolog.Logger) *EvaluationService {
	return &EvaluationService{
		llm:    llm,
		logger: logger.With().Str("component", "evaluator").Logger(),
	}
}

// Evaluate asks the LLM for a Markdown report over the current tags, related
// history tags and the clinics found per tag.
func (s *EvaluationService) Evaluate(ctx context.Context, current, history []entities.TriagedTag, rec *entities.Recommendation) (string, error) {
	if s.llm == nil {
		return "", apperrors.NewConfigurationError("evaluation requires an LLM client", nil)
	}
	if rec == nil {
		return "", apperrors.NewValidationError("recommendation is required")
	}

	prompt, err := evaluationUserPrompt(current, history, rec)
	if err != nil {
		return "", err
	}
	md, err := s.llm.Complete(ctx, providers.ChatRequest{
		Messages: []providers.ChatMessage{
			{Role: "system", Content: evaluationSystemPrompt},
			{Role: "user", Content: prompt},
		},
	})
	if err != nil {
		return "", apperrors.NewExternalError("evaluation failed", err)
	}
	s.logger.Debug().Str("run_id", rec.RunID).Int("chars", len(md)).Msg("evaluation done")
	return strings.TrimSpace(md), nil
}

func evaluationUserPrompt(current, history []entities.TriagedTag, rec *entities.Recommendation) (string, error) {
	if current == nil {
		current = []entities.TriagedTag{}
	}
	if history == nil {
		history = []entities.TriagedTag{}
	}
	byTag := make(map[entities.SpecialtyTag][]*entities.ClinicRecord, len(rec.Entries))
	for _, e := range rec.Entries {
		byTag[e.Tag] = e.Clinics
	}

	sections := []struct {
		title string
		value any
	}{
		{"TAGS_CUR", current},
		{"TAGS_HIST", history},
		{"CLINICS", byTag},
	}
	var b strings.Builder
	for _, sec := range sections {
		data, err := json.MarshalIndent(sec.value, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to encode %s: %w", sec.title, err)
		}
		fmt.Fprintf(&b, "## %s\n%s\n\n", sec.title, data)
	}
	return b.String(), nil
}
