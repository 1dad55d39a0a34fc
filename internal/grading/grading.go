// Package grading resolves letter grades from scores and aggregates
// continuous-assessment and exam marks into report-card totals.
//
// Everything in this package is pure: no I/O, no shared mutable state, and
// identical inputs always produce identical outputs.
package grading

import (
	"math"
	"sort"
)

// DefaultPassMark is the pass mark applied when no grading system is configured.
const DefaultPassMark = 40.0

// GradingLevel is one inclusive score band of a grading system.
type GradingLevel struct {
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
	Grade    string  `json:"grade"`
	Remark   string  `json:"remark"`
}

// Contains reports whether score falls inside the band, bounds included.
func (l GradingLevel) Contains(score float64) bool {
	return l.MinScore <= score && score <= l.MaxScore
}

// GradingSystem is a school-defined set of score bands plus a pass mark.
type GradingSystem struct {
	Name     string         `json:"name"`
	Levels   []GradingLevel `json:"levels"`
	PassMark float64        `json:"pass_mark"`
}

// Result is the outcome of resolving a score against a grading system.
type Result struct {
	Grade  string `json:"grade"`
	Remark string `json:"remark"`
	Passed bool   `json:"passed"`
}

// FallbackResult is returned when no configured band contains the score.
var FallbackResult = Result{Grade: "F", Remark: "Fail", Passed: false}

// The default scale is threshold based: each band runs from its threshold up
// to the next band's threshold so fractional scores such as 69.999 resolve to
// the lower band, and scores outside [0,100] still land on A or F.
var defaultSystem = GradingSystem{
	Name:     "Default",
	PassMark: DefaultPassMark,
	Levels: []GradingLevel{
		{MinScore: 70, MaxScore: math.Inf(1), Grade: "A", Remark: "Excellent"},
		{MinScore: 60, MaxScore: 70, Grade: "B", Remark: "Very Good"},
		{MinScore: 50, MaxScore: 60, Grade: "C", Remark: "Good"},
		{MinScore: 45, MaxScore: 50, Grade: "D", Remark: "Fair"},
		{MinScore: 40, MaxScore: 45, Grade: "E", Remark: "Pass"},
		{MinScore: math.Inf(-1), MaxScore: 40, Grade: "F", Remark: "Fail"},
	},
}

// DefaultGradingSystem returns a copy of the fixed scale used when a school
// has not configured a grading system.
func DefaultGradingSystem() GradingSystem {
	return defaultSystem.clone()
}

// IsEmpty reports whether the system has no levels and therefore defers to
// the default scale.
func (s *GradingSystem) IsEmpty() bool {
	return s == nil || len(s.Levels) == 0
}

// Lookup returns the band that contains score. Levels are scanned by MaxScore
// descending; levels sharing a MaxScore keep their configured order, so the
// one listed first wins.
func (s GradingSystem) Lookup(score float64) (GradingLevel, bool) {
	for _, level := range s.sortedLevels() {
		if level.Contains(score) {
			return level, true
		}
	}
	return GradingLevel{}, false
}

// Resolve maps score onto the system. A score in a gap between bands
// resolves to FallbackResult regardless of the pass mark.
func (s GradingSystem) Resolve(score float64) Result {
	level, ok := s.Lookup(score)
	if !ok {
		return FallbackResult
	}

	return Result{
		Grade:  level.Grade,
		Remark: level.Remark,
		Passed: score >= s.PassMark,
	}
}

// Effective returns the system that applies for the given configuration:
// the system itself when it has levels, otherwise the default scale.
func Effective(system *GradingSystem) GradingSystem {
	if system.IsEmpty() {
		return defaultSystem.clone()
	}
	return *system
}

// ResolveGrade resolves score against system, falling back to the default
// scale (pass mark 40) when system is nil or has no levels.
func ResolveGrade(score float64, system *GradingSystem) Result {
	return Effective(system).Resolve(score)
}

func (s GradingSystem) sortedLevels() []GradingLevel {
	levels := make([]GradingLevel, len(s.Levels))
	copy(levels, s.Levels)
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].MaxScore > levels[j].MaxScore
	})
	return levels
}

func (s GradingSystem) clone() GradingSystem {
	levels := make([]GradingLevel, len(s.Levels))
	copy(levels, s.Levels)
	s.Levels = levels
	return s
}
