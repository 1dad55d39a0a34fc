package dto

import (
	"time"

	"github.com/noah-isme/gema-school-api/internal/grading"
)

// SubjectAnalytics summarises one subject across a term.
type SubjectAnalytics struct {
	SubjectID   uint            `json:"subject_id"`
	SubjectName string          `json:"subject_name"`
	Summary     grading.Summary `json:"summary"`
}

// TermAnalyticsResponse aggregates results for every subject in a term.
type TermAnalyticsResponse struct {
	SchoolID    uint               `json:"school_id"`
	TermID      uint               `json:"term_id"`
	TermName    string             `json:"term_name"`
	Overall     grading.Summary    `json:"overall"`
	Subjects    []SubjectAnalytics `json:"subjects"`
	GeneratedAt time.Time          `json:"generated_at"`
	CacheHit    bool               `json:"cache_hit"`
}
