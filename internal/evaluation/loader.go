package evaluation

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// LoadGoldenCases reads and parses a golden case set from a JSON file.
func LoadGoldenCases(path string) ([]GoldenCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read golden cases file: %w", err)
	}

	var cases []GoldenCase
	if err := json.Unmarshal(data, &cases); err != nil {
		return nil, fmt.Errorf("failed to parse golden cases: %w", err)
	}

	return cases, nil
}

// ValidateGoldenCases checks that all cases have required fields and valid
// values. known reports whether a tag is in the vocabulary; nil skips that check.
func ValidateGoldenCases(cases []GoldenCase, known func(tag string) bool) error {
	seen := make(map[string]struct{}, len(cases))

	for i, c := range cases {
		if c.ID == "" {
			return fmt.Errorf("case at index %d: missing id", i)
		}
		if _, dup := seen[c.ID]; dup {
			return fmt.Errorf("case at index %d: duplicate id %q", i, c.ID)
		}
		seen[c.ID] = struct{}{}

		if strings.TrimSpace(c.Symptom) == "" {
			return fmt.Errorf("case %q: missing symptom", c.ID)
		}
		if len(c.ExpectedTags) == 0 {
			return fmt.Errorf("case %q: no expected tags", c.ID)
		}
		for _, tag := range c.ExpectedTags {
			if known != nil && !known(string(tag)) {
				return fmt.Errorf("case %q: unknown tag %q", c.ID, tag)
			}
		}
		if !c.Difficulty.IsValid() {
			return fmt.Errorf("case %q: invalid difficulty %q (must be easy/medium/hard)", c.ID, c.Difficulty)
		}
	}

	return nil
}
