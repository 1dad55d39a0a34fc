package service

import (
	"strconv"

	"github.com/noah-isme/gema-school-api/internal/grading"
	"github.com/noah-isme/gema-school-api/internal/observability"
)

// Calculator runs stored scores through the grading engine.
type Calculator struct {
	defaultScaleOnly bool
}

// NewCalculator constructs a calculator. With defaultScaleOnly set, totals
// are graded on the built-in scale even when the school configured its own
// grading system, matching results produced before custom systems were honoured.
func NewCalculator(defaultScaleOnly bool) Calculator {
	return Calculator{defaultScaleOnly: defaultScaleOnly}
}

// Calculate grades the scores and returns the system that remarks and pass
// status must be resolved against so they agree with the attached grades.
func (c Calculator) Calculate(scores []grading.AssessmentScore, system *grading.GradingSystem) ([]grading.CalculatedAssessment, *grading.GradingSystem) {
	var opts []grading.Option
	reporting := system
	if c.defaultScaleOnly {
		opts = append(opts, grading.WithDefaultScaleOnly())
		reporting = nil
	}

	results := grading.BatchCalculateAssessments(scores, system, opts...)
	observeCalculations(results, reporting)
	return results, reporting
}

// CalculateOne grades a single score.
func (c Calculator) CalculateOne(score grading.AssessmentScore, system *grading.GradingSystem) (grading.CalculatedAssessment, *grading.GradingSystem) {
	results, reporting := c.Calculate([]grading.AssessmentScore{score}, system)
	return results[0], reporting
}

func observeCalculations(results []grading.CalculatedAssessment, system *grading.GradingSystem) {
	effective := grading.Effective(system)
	for _, result := range results {
		observability.AssessmentsCalculated().WithLabelValues(strconv.FormatBool(result.IsComplete)).Inc()
		if !result.IsComplete || result.Total == nil {
			continue
		}
		if _, matched := effective.Lookup(*result.Total); !matched {
			observability.GradeFallbacks().Inc()
		}
	}
}
