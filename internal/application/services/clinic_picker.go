package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
	"github.com/zatekoja/clinicfinder/internal/domain/providers"
	"github.com/zatekoja/clinicfinder/pkg/address"
)

const (
	defaultCandidateLimit = 30
	maxPicks              = 5
)

// ClinicPick is one clinic chosen by the model.
type ClinicPick struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	NeedGeo bool   `json:"need_geo"`
}

// ParsePicks decodes a model reply that must be a JSON array of pick
// objects. Any other shape yields no picks and ok=false. Picks without a name
// are ignored and at most five are kept.
func ParsePicks(raw string) (picks []ClinicPick, ok bool) {
	trimmed := bytes.TrimSpace([]byte(raw))
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, false
	}

	var items []json.RawMessage
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, false
	}
	for _, item := range items {
		item = bytes.TrimSpace(item)
		if len(item) == 0 || item[0] != '{' {
			return nil, false
		}
		var p ClinicPick
		if err := json.Unmarshal(item, &p); err != nil {
			return nil, false
		}
		p.Name = strings.TrimSpace(p.Name)
		p.Address = strings.TrimSpace(p.Address)
		if p.Name == "" {
			continue
		}
		picks = append(picks, p)
	}
	if len(picks) > maxPicks {
		picks = picks[:maxPicks]
	}
	return picks, true
}

type pickCandidate struct {
	Name      string   `json:"name"`
	Specialty string   `json:"specialty"`
	Address   string   `json:"address"`
	Phone     string   `json:"phone,omitempty"`
	Lat       *float64 `json:"lat,omitempty"`
	Lng       *float64 `json:"lng,omitempty"`
}

// ClinicPicker asks the LLM to choose the best local candidates for a tag.
type ClinicPicker struct {
	registry       *ClinicRegistry
	llm            providers.ChatCompleter
	candidateLimit int
	logger         zerolog.Logger
}

// NewClinicPicker creates a picker. A nil llm disables the step.
func NewClinicPicker(registry *ClinicRegistry, llm providers.ChatCompleter, candidateLimit int, logger zerolog.Logger) *ClinicPicker {
	if candidateLimit <= 0 {
		candidateLimit = defaultCandidateLimit
	}
	return &ClinicPicker{
		registry:       registry,
		llm:            llm,
		candidateLimit: candidateLimit,
		logger:         logger.With().Str("component", "clinic_picker").Logger(),
	}
}

// Pick returns up to five clinics chosen from the keyword-filtered local
// candidates. A malformed reply yields no picks; the error is set only when
// the LLM call itself failed.
func (p *ClinicPicker) Pick(ctx context.Context, tag entities.SpecialtyTag, location string) ([]*entities.ClinicRecord, error) {
	if p.llm == nil {
		return nil, nil
	}
	candidates := p.registry.Candidates(tag, location, p.candidateLimit)
	if len(candidates) == 0 {
		p.logger.Debug().Str("tag", string(tag)).Msg("no local candidates")
		return nil, nil
	}

	payload := make([]pickCandidate, 0, len(candidates))
	for _, c := range candidates {
		payload = append(payload, pickCandidate{
			Name:      c.Name,
			Specialty: c.Specialty,
			Address:   c.Address,
			Phone:     c.Phone,
			Lat:       c.Lat,
			Lng:       c.Lng,
		})
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to encode candidates: %w", err)
	}

	raw, err := p.llm.Complete(ctx, providers.ChatRequest{
		Messages: []providers.ChatMessage{
			{Role: "system", Content: clinicPickSystemPrompt},
			{Role: "user", Content: string(body)},
		},
	})
	if err != nil {
		return nil, err
	}

	picks, ok := ParsePicks(raw)
	if !ok {
		p.logger.Warn().Str("tag", string(tag)).Int("reply_len", len(raw)).Msg("discarding malformed pick reply")
		return nil, nil
	}
	return p.materialize(picks, candidates), nil
}

// materialize turns picks into records. A pick that names a candidate reuses
// the candidate's row so coordinates and phone carry over.
func (p *ClinicPicker) materialize(picks []ClinicPick, candidates []*entities.ClinicRecord) []*entities.ClinicRecord {
	byName := make(map[string]*entities.ClinicRecord, len(candidates))
	for _, c := range candidates {
		if _, dup := byName[c.Name]; !dup {
			byName[c.Name] = c
		}
	}

	out := make([]*entities.ClinicRecord, 0, len(picks))
	seen := make(map[string]bool, len(picks))
	for _, pick := range picks {
		if seen[pick.Name] {
			continue
		}
		seen[pick.Name] = true

		var rec *entities.ClinicRecord
		if c, ok := byName[pick.Name]; ok {
			rec = c.Clone()
		} else {
			rec = &entities.ClinicRecord{
				Name:       pick.Name,
				Address:    pick.Address,
				AddressKey: address.Normalize(pick.Address),
			}
		}
		if rec.Address == "" {
			rec.Address = pick.Address
			rec.AddressKey = address.Normalize(pick.Address)
		}
		rec.NeedGeo = pick.NeedGeo || !rec.HasCoordinates()
		rec.Source = entities.SourceLLMPick
		out = append(out, rec)
	}
	return out
}
