package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	apperrors "github.com/zatekoja/clinicfinder/pkg/errors"
	"github.com/zatekoja/clinicfinder/pkg/retry"
)

const maxTriageTags = 3

// ErrUnknownTag is returned when a triage reply names no tag from the vocabulary.
var ErrUnknownTag = errors.New("no known specialty tag in triage reply")

type triageReply struct {
	TagsCurrent []struct {
		Tag   string   `json:"tag"`
		Score *float64 `json:"score"`
	} `json:"TAGS_CURRENT"`
}

// TriageService turns a symptom description into scored specialty tags.
type TriageService struct {
	llm    providers.ChatCompleter
	mapper *TagMapper
	retry  retry.Config
	logger zerolog.Logger
}

// NewTriageService creates a new triage service.
func NewTriageService(llm providers.ChatCompleter, mapper *TagMapper, retryCfg retry.Config, logger zerolog.Logger) *TriageService {
	return &TriageService{
		llm:    llm,
		mapper: mapper,
		retry:  retryCfg,
		logger: logger.With().Str("component", "triage").Logger(),
	}
}

// Triage returns at most three tags for the symptom, highest score first.
// Malformed replies are retried; after the last attempt the call fails.
func (s *TriageService) Triage(ctx context.Context, symptom string, history []string) ([]entities.TriagedTag, error) {
	symptom = strings.TrimSpace(symptom)
	if symptom == "" {
		return nil, apperrors.NewValidationError("symptom is required")
	}
	if s.llm == nil {
		return nil, apperrors.NewConfigurationError("triage requires an LLM client", nil)
	}

	req := providers.ChatRequest{
		Messages: []providers.ChatMessage{
			{Role: "system", Content: triageSystemPrompt},
			{Role: "user", Content: triageUserPrompt(symptom, history, s.mapper.Vocabulary())},
		},
		JSONMode: true,
	}

	var tags []entities.TriagedTag
	err := retry.Do(ctx, s.retry, func() error {
		raw, err := s.llm.Complete(ctx, req)
		if err != nil {
			return err
		}
		tags, err = s.parse(raw)
		return err
	}, func(attempt int, err error, next time.Duration) {
		s.logger.Warn().Err(err).Int("attempt", attempt).Dur("backoff", next).Msg("triage attempt failed")
	})
	if err != nil {
		return nil, apperrors.NewExternalError("triage failed", err)
	}
	return tags, nil
}

func (s *TriageService) parse(raw string) ([]entities.TriagedTag, error) {
	var reply triageReply
	if err := json.Unmarshal([]byte(raw), &reply); err != nil {
		return nil, fmt.Errorf("malformed triage reply: %w", err)
	}

	var tags []entities.TriagedTag
	seen := make(map[entities.SpecialtyTag]bool)
	for _, t := range reply.TagsCurrent {
		tag := entities.SpecialtyTag(strings.ToLower(strings.TrimSpace(t.Tag)))
		if tag == "" || seen[tag] || !s.mapper.Known(tag) {
			continue
		}
		seen[tag] = true
		score := 0.0
		if t.Score != nil {
			score = *t.Score
		}
		tags = append(tags, entities.TriagedTag{Tag: tag, Score: score})
	}
	if len(tags) == 0 {
		return nil, ErrUnknownTag
	}

	sort.SliceStable(tags, func(i, j int) bool { return tags[i].Score > tags[j].Score })
	if len(tags) > maxTriageTags {
		tags = tags[:maxTriageTags]
	}
	return tags, nil
}

// TagsOf returns the tags of triaged results in order.
func TagsOf(triaged []entities.TriagedTag) []entities.SpecialtyTag {
	out := make([]entities.SpecialtyTag, 0, len(triaged))
	for _, t := range triaged {
		out = append(out, t.Tag)
	}
	return out
}
