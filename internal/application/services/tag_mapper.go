package services

import (
	"context"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/zatekoja/clinicfinder/internal/adapters/mapping"
	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
)

const maxTypeLabelRunes = 6

var (
	hedgePattern   = regexp.MustCompile(`[（(].*?[)）]`)
	negativeLabels = map[string]bool{"其他": true, "unknown": true, "none": true, "無": true}
)

// TagMapper translates canonical tags to search keywords and maps place
// type codes to localized specialty labels, learning unknown codes through
// the LLM.
type TagMapper struct {
	keywords *mapping.Table
	types    *mapping.Table
	llm      providers.ChatCompleter
	logger   zerolog.Logger

	mu       sync.Mutex
	rejected map[string]bool
	inflight singleflight.Group
}

// NewTagMapper creates a tag mapper. llm may be nil, in which case unknown
// type codes are simply dropped.
func NewTagMapper(keywords, types *mapping.Table, llm providers.ChatCompleter, logger zerolog.Logger) *TagMapper {
	return &TagMapper{
		keywords: keywords,
		types:    types,
		llm:      llm,
		logger:   logger.With().Str("component", "tag_mapper").Logger(),
		rejected: make(map[string]bool),
	}
}

// ToKeyword returns the localized search keyword for tag, or "<tag> clinic".
func (m *TagMapper) ToKeyword(tag entities.SpecialtyTag) string {
	if kw, ok := m.keywords.Get(string(tag)); ok && kw != "" {
		return kw
	}
	return string(tag) + " clinic"
}

// Vocabulary returns the allowed canonical tags.
func (m *TagMapper) Vocabulary() []string {
	return m.keywords.Keys()
}

// Known reports whether tag is part of the vocabulary.
func (m *TagMapper) Known(tag entities.SpecialtyTag) bool {
	_, ok := m.keywords.Get(string(tag))
	return ok
}

// MapPlaceTypes maps type codes to localized labels in input order. Codes
// with no acceptable label are skipped; duplicate labels are collapsed.
func (m *TagMapper) MapPlaceTypes(ctx context.Context, types []string) []string {
	labels := make([]string, 0, len(types))
	seen := make(map[string]bool, len(types))
	for _, t := range types {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		label, ok := m.types.Get(t)
		if !ok {
			label, ok = m.learnOnMiss(ctx, t)
		}
		if ok && label != "" && !seen[label] {
			seen[label] = true
			labels = append(labels, label)
		}
	}
	return labels
}

func (m *TagMapper) learnOnMiss(ctx context.Context, placeType string) (string, bool) {
	m.mu.Lock()
	rejected := m.rejected[placeType]
	m.mu.Unlock()
	if rejected || m.llm == nil {
		return "", false
	}

	v, _, _ := m.inflight.Do(placeType, func() (interface{}, error) {
		// Another caller may have learned it while we waited.
		if label, ok := m.types.Get(placeType); ok {
			return label, nil
		}
		label, err := m.ProposeLabel(ctx, placeType)
		if err != nil {
			m.logger.Warn().Err(err).Str("type", placeType).Msg("type label proposal failed")
			return "", nil
		}
		if label == "" {
			m.mu.Lock()
			m.rejected[placeType] = true
			m.mu.Unlock()
			return "", nil
		}
		if err := m.Learn(placeType, label); err != nil {
			m.logger.Warn().Err(err).Str("type", placeType).Msg("failed to persist learned type label")
		}
		return label, nil
	})
	label, _ := v.(string)
	return label, label != ""
}

// ProposeLabel asks the LLM for a label and returns it cleaned. An empty
// label with a nil error means the answer was rejected.
func (m *TagMapper) ProposeLabel(ctx context.Context, placeType string) (string, error) {
	if m.llm == nil {
		return "", nil
	}
	raw, err := m.llm.Complete(ctx, providers.ChatRequest{
		Messages: []providers.ChatMessage{{Role: "user", Content: typeLabelPrompt(placeType)}},
	})
	if err != nil {
		return "", err
	}
	label, _ := CleanTypeLabel(raw)
	return label, nil
}

// Learn is the commit point for a learned label: it updates the table and
// rewrites the YAML file. The last write wins.
func (m *TagMapper) Learn(placeType, label string) error {
	m.types.Set(placeType, label)
	m.logger.Info().Str("type", placeType).Str("label", label).Msg("learned type label")
	return m.types.Save()
}

// CleanTypeLabel validates an LLM answer: negatives are rejected, hedges in
// parentheses are removed, and only CJK ideographs are kept, at most six.
func CleanTypeLabel(raw string) (string, bool) {
	s := strings.TrimSpace(raw)
	if s == "" || negativeLabels[strings.ToLower(s)] {
		return "", false
	}
	s = hedgePattern.ReplaceAllString(s, "")

	var b strings.Builder
	n := 0
	for _, r := range s {
		if r < 0x4E00 || r > 0x9FFF {
			continue
		}
		if n == maxTypeLabelRunes {
			break
		}
		b.WriteRune(r)
		n++
	}
	label := b.String()
	if label == "" || negativeLabels[label] {
		return "", false
	}
	return label, true
}
