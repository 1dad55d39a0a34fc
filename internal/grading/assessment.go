package grading

// AssessmentScore holds one student's raw marks for one subject in one term.
// A nil component means the mark has not been entered.
type AssessmentScore struct {
	CA1      *float64 `json:"ca1"`
	CA2      *float64 `json:"ca2"`
	CA3      *float64 `json:"ca3"`
	Exam     *float64 `json:"exam"`
	IsAbsent bool     `json:"is_absent"`
	IsExempt bool     `json:"is_exempt"`
}

// Excused reports whether the student was absent or exempt, in which case no
// total is ever computed.
func (s AssessmentScore) Excused() bool {
	return s.IsAbsent || s.IsExempt
}

// HasAllComponents reports whether every CA component and the exam are present.
func (s AssessmentScore) HasAllComponents() bool {
	return s.CA1 != nil && s.CA2 != nil && s.CA3 != nil && s.Exam != nil
}

func (s AssessmentScore) clone() AssessmentScore {
	return AssessmentScore{
		CA1:      cloneFloat(s.CA1),
		CA2:      cloneFloat(s.CA2),
		CA3:      cloneFloat(s.CA3),
		Exam:     cloneFloat(s.Exam),
		IsAbsent: s.IsAbsent,
		IsExempt: s.IsExempt,
	}
}

// CalculatedAssessment is an AssessmentScore plus its derived totals and grade.
type CalculatedAssessment struct {
	AssessmentScore
	TotalCA    *float64 `json:"total_ca"`
	Total      *float64 `json:"total"`
	Grade      *string  `json:"grade"`
	IsComplete bool     `json:"is_complete"`
}

// Option tunes how assessments are aggregated.
type Option func(*options)

type options struct {
	defaultScaleOnly bool
}

// WithDefaultScaleOnly grades totals against the default scale even when a
// custom grading system is supplied. This reproduces report cards produced
// before aggregation honoured school grading systems.
func WithDefaultScaleOnly() Option {
	return func(o *options) {
		o.defaultScaleOnly = true
	}
}

func buildOptions(opts []Option) options {
	var cfg options
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// CalculateAssessmentTotals derives the CA subtotal, grand total and grade for
// a single record. Absent or exempt records and records with a missing
// component are returned incomplete with nil aggregates. No rounding or range
// checking is applied.
func CalculateAssessmentTotals(score AssessmentScore, system *GradingSystem, opts ...Option) CalculatedAssessment {
	return calculate(score, system, buildOptions(opts))
}

// BatchCalculateAssessments applies CalculateAssessmentTotals to each record
// independently and returns the results in input order.
func BatchCalculateAssessments(scores []AssessmentScore, system *GradingSystem, opts ...Option) []CalculatedAssessment {
	cfg := buildOptions(opts)
	results := make([]CalculatedAssessment, len(scores))
	for i, score := range scores {
		results[i] = calculate(score, system, cfg)
	}
	return results
}

func calculate(score AssessmentScore, system *GradingSystem, cfg options) CalculatedAssessment {
	result := CalculatedAssessment{AssessmentScore: score.clone()}
	if score.Excused() || !score.HasAllComponents() {
		return result
	}

	totalCA := *score.CA1 + *score.CA2 + *score.CA3
	total := totalCA + *score.Exam

	if cfg.defaultScaleOnly {
		system = nil
	}
	grade := ResolveGrade(total, system).Grade

	result.TotalCA = &totalCA
	result.Total = &total
	result.Grade = &grade
	result.IsComplete = true
	return result
}

func cloneFloat(v *float64) *float64 {
	if v == nil {
		return nil
	}
	value := *v
	return &value
}
