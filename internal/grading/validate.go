package grading

import (
	"fmt"
	"math"
	"strings"
)

// ConfigError describes a malformed grading system definition.
type ConfigError struct {
	Level  int
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	if e.Level < 0 {
		return fmt.Sprintf("grading system %s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("grading level %d %s: %s", e.Level, e.Field, e.Reason)
}

// Validate checks a grading system before it is stored. Overlapping or
// gapped bands are accepted; Resolve handles both deterministically.
func (s GradingSystem) Validate() error {
	if invalidPercent(s.PassMark) {
		return &ConfigError{Level: -1, Field: "pass_mark", Reason: "must be between 0 and 100"}
	}

	for i, level := range s.Levels {
		if strings.TrimSpace(level.Grade) == "" {
			return &ConfigError{Level: i, Field: "grade", Reason: "must not be empty"}
		}
		if invalidPercent(level.MinScore) {
			return &ConfigError{Level: i, Field: "min_score", Reason: "must be between 0 and 100"}
		}
		if invalidPercent(level.MaxScore) {
			return &ConfigError{Level: i, Field: "max_score", Reason: "must be between 0 and 100"}
		}
		if level.MinScore > level.MaxScore {
			return &ConfigError{Level: i, Field: "min_score", Reason: "must not exceed max_score"}
		}
	}

	return nil
}

func invalidPercent(v float64) bool {
	return math.IsNaN(v) || v < 0 || v > 100
}
