package evaluation

import (
	"time"

	"github.com/zatekoja/clinicfinder/internal/domain/entities"
)

// Difficulty labels how ambiguous a golden symptom is.
type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"   // e.g., "sore throat and runny nose"
	DifficultyMedium Difficulty = "medium" // e.g., "chest tightness when climbing stairs"
	DifficultyHard   Difficulty = "hard"   // e.g., "tired all the time, some dizziness"
)

// IsValid checks if the difficulty value is one of the defined constants.
func (d Difficulty) IsValid() bool {
	switch d {
	case DifficultyEasy, DifficultyMedium, DifficultyHard:
		return true
	}
	return false
}

// GoldenCase is a labeled symptom with the specialty tags a clinician expects.
type GoldenCase struct {
	ID           string                  `json:"id"`
	Symptom      string                  `json:"symptom"`
	HistoryTags  []string                `json:"history_tags,omitempty"`
	ExpectedTags []entities.SpecialtyTag `json:"expected_tags"`
	Difficulty   Difficulty              `json:"difficulty"`
}

// EvalResult holds the evaluation outcome for a single case.
type EvalResult struct {
	CaseID       string
	Difficulty   Difficulty
	RecallAtK    float64
	MRRAtK       float64
	ReturnedTags []entities.SpecialtyTag
	Err          error  `json:"-"`
	Error        string `json:"error,omitempty"`
	Latency      time.Duration
}

// EvalSummary holds aggregate metrics across all golden cases.
type EvalSummary struct {
	TotalCases   int
	Failed       int // triage returned an error
	AvgRecallAtK float64
	AvgMRRAtK    float64
	AvgLatency   time.Duration
	Results      []EvalResult
	ByDifficulty map[Difficulty]*DifficultySummary
}

// DifficultySummary holds metrics grouped by difficulty.
type DifficultySummary struct {
	Count        int
	AvgRecallAtK float64
	AvgMRRAtK    float64
}
