package dto

import (
	"time"

	"github.com/noah-isme/gema-school-api/internal/grading"
)

// ClassResultRow is one student's line on a class result sheet.
type ClassResultRow struct {
	AssessmentResponse
	AdmissionNo string `json:"admission_no"`
	Position    int    `json:"position"`
	PositionTag string `json:"position_label"`
}

// ClassResultResponse is the computed result sheet for a class, subject and term.
type ClassResultResponse struct {
	SchoolID      uint                  `json:"school_id"`
	ClassID       uint                  `json:"class_id"`
	ClassName     string                `json:"class_name"`
	SubjectID     uint                  `json:"subject_id"`
	SubjectName   string                `json:"subject_name"`
	TermID        uint                  `json:"term_id"`
	TermName      string                `json:"term_name"`
	GradingSystem GradingSystemResponse `json:"grading_system"`
	Rows          []ClassResultRow      `json:"rows"`
	Summary       grading.Summary       `json:"summary"`
	GeneratedAt   time.Time             `json:"generated_at"`
	CacheHit      bool                  `json:"cache_hit"`
}

// StudentReportResponse is a student's report card for one term.
type StudentReportResponse struct {
	StudentID     uint                  `json:"student_id"`
	StudentName   string                `json:"student_name"`
	AdmissionNo   string                `json:"admission_no"`
	TermID        uint                  `json:"term_id"`
	TermName      string                `json:"term_name"`
	GradingSystem GradingSystemResponse `json:"grading_system"`
	Subjects      []AssessmentResponse  `json:"subjects"`
	Summary       grading.Summary       `json:"summary"`
	GeneratedAt   time.Time             `json:"generated_at"`
}
