package evaluation

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
)

// Triager is the part of the triage service the runner exercises.
type Triager interface {
	Triage(ctx context.Context, symptom string, history []string) ([]entities.TriagedTag, error)
}

// DefaultK matches the triage cap of three tags.
const DefaultK = 3

// Runner runs triage across a set of golden cases.
type Runner struct {
	triager Triager
	k       int
	logger  zerolog.Logger
}

func NewRunner(triager Triager, k int, logger zerolog.Logger) *Runner {
	if k <= 0 {
		k = DefaultK
	}
	return &Runner{triager: triager, k: k, logger: logger.With().Str("component", "triage_eval").Logger()}
}

// Run triages every case in order. A failed case scores zero and counts as
// failed; it never aborts the run. ctx cancellation stops early.
func (r *Runner) Run(ctx context.Context, cases []GoldenCase) (*EvalSummary, error) {
	summary := &EvalSummary{
		ByDifficulty: make(map[Difficulty]*DifficultySummary),
	}

	for _, gc := range cases {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		start := time.Now()
		tags, err := r.triager.Triage(ctx, gc.Symptom, gc.HistoryTags)
		result := EvalResult{
			CaseID:     gc.ID,
			Difficulty: gc.Difficulty,
			Err:        err,
			Latency:    time.Since(start),
		}

		if err != nil {
			result.Error = err.Error()
			r.logger.Warn().Err(err).Str("case", gc.ID).Msg("triage failed")
		} else {
			returned := make([]string, 0, len(tags))
			for _, t := range tags {
				result.ReturnedTags = append(result.ReturnedTags, t.Tag)
				returned = append(returned, string(t.Tag))
			}
			expected := make([]string, 0, len(gc.ExpectedTags))
			for _, t := range gc.ExpectedTags {
				expected = append(expected, string(t))
			}
			result.RecallAtK = RecallAtK(expected, returned, r.k)
			result.MRRAtK = MRRAtK(expected, returned, r.k)
		}

		r.updateSummary(summary, result)
	}

	r.finalizeSummary(summary)
	return summary, nil
}

func (r *Runner) updateSummary(s *EvalSummary, res EvalResult) {
	s.TotalCases++
	s.Results = append(s.Results, res)
	s.AvgRecallAtK += res.RecallAtK
	s.AvgMRRAtK += res.MRRAtK
	s.AvgLatency += res.Latency
	if res.Err != nil {
		s.Failed++
	}

	if _, ok := s.ByDifficulty[res.Difficulty]; !ok {
		s.ByDifficulty[res.Difficulty] = &DifficultySummary{}
	}
	ds := s.ByDifficulty[res.Difficulty]
	ds.Count++
	ds.AvgRecallAtK += res.RecallAtK
	ds.AvgMRRAtK += res.MRRAtK
}

func (r *Runner) finalizeSummary(s *EvalSummary) {
	if s.TotalCases > 0 {
		n := float64(s.TotalCases)
		s.AvgRecallAtK /= n
		s.AvgMRRAtK /= n
		s.AvgLatency /= time.Duration(s.TotalCases)
	}

	for _, ds := range s.ByDifficulty {
		if ds.Count > 0 {
			n := float64(ds.Count)
			ds.AvgRecallAtK /= n
			ds.AvgMRRAtK /= n
		}
	}
}
