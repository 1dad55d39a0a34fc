package dto

import (
	"time"

	"github.com/noah-isme/gema-school-api/internal/grading"
	"github.com/noah-isme/gema-school-api/internal/models"
)

// AssessmentScoreRequest records one student's marks for a subject and term.
type AssessmentScoreRequest struct {
	StudentID uint     `json:"student_id" validate:"required"`
	SubjectID uint     `json:"subject_id" validate:"required"`
	TermID    uint     `json:"term_id" validate:"required"`
	ClassID   uint     `json:"class_id" validate:"required"`
	CA1       *float64 `json:"ca1" validate:"omitempty,gte=0"`
	CA2       *float64 `json:"ca2" validate:"omitempty,gte=0"`
	CA3       *float64 `json:"ca3" validate:"omitempty,gte=0"`
	Exam      *float64 `json:"exam" validate:"omitempty,gte=0"`
	IsAbsent  bool     `json:"is_absent"`
	IsExempt  bool     `json:"is_exempt"`
}

// AssessmentSheetEntry is one row of a class score sheet.
type AssessmentSheetEntry struct {
	StudentID uint     `json:"student_id" validate:"required"`
	CA1       *float64 `json:"ca1" validate:"omitempty,gte=0"`
	CA2       *float64 `json:"ca2" validate:"omitempty,gte=0"`
	CA3       *float64 `json:"ca3" validate:"omitempty,gte=0"`
	Exam      *float64 `json:"exam" validate:"omitempty,gte=0"`
	IsAbsent  bool     `json:"is_absent"`
	IsExempt  bool     `json:"is_exempt"`
}

// AssessmentSheetRequest records a whole class sheet for one subject and term.
type AssessmentSheetRequest struct {
	SubjectID uint                   `json:"subject_id" validate:"required"`
	TermID    uint                   `json:"term_id" validate:"required"`
	ClassID   uint                   `json:"class_id" validate:"required"`
	Entries   []AssessmentSheetEntry `json:"entries" validate:"required,min=1,dive"`
}

// AssessmentResponse serializes a stored score entry with its derived totals.
type AssessmentResponse struct {
	ID          uint      `json:"id"`
	StudentID   uint      `json:"student_id"`
	StudentName string    `json:"student_name"`
	SubjectID   uint      `json:"subject_id"`
	SubjectName string    `json:"subject_name"`
	TermID      uint      `json:"term_id"`
	ClassID     uint      `json:"class_id"`
	CA1         *float64  `json:"ca1"`
	CA2         *float64  `json:"ca2"`
	CA3         *float64  `json:"ca3"`
	Exam        *float64  `json:"exam"`
	IsAbsent    bool      `json:"is_absent"`
	IsExempt    bool      `json:"is_exempt"`
	TotalCA     *float64  `json:"total_ca"`
	Total       *float64  `json:"total"`
	Grade       *string   `json:"grade"`
	Remark      string    `json:"remark,omitempty"`
	Passed      *bool     `json:"passed,omitempty"`
	IsComplete  bool      `json:"is_complete"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// AssessmentSheetResponse summarises a bulk score entry.
type AssessmentSheetResponse struct {
	Saved    int                  `json:"saved"`
	Complete int                  `json:"complete"`
	Items    []AssessmentResponse `json:"items"`
}

// NewAssessmentResponse combines a stored entry with its calculation.
// Remark and pass status are attached only for complete records, resolved
// against system.
func NewAssessmentResponse(assessment models.Assessment, calculated grading.CalculatedAssessment, system *grading.GradingSystem) AssessmentResponse {
	response := AssessmentResponse{
		ID:          assessment.ID,
		StudentID:   assessment.StudentID,
		StudentName: assessment.Student.Name,
		SubjectID:   assessment.SubjectID,
		SubjectName: assessment.Subject.Name,
		TermID:      assessment.TermID,
		ClassID:     assessment.ClassID,
		CA1:         calculated.CA1,
		CA2:         calculated.CA2,
		CA3:         calculated.CA3,
		Exam:        calculated.Exam,
		IsAbsent:    calculated.IsAbsent,
		IsExempt:    calculated.IsExempt,
		TotalCA:     calculated.TotalCA,
		Total:       calculated.Total,
		Grade:       calculated.Grade,
		IsComplete:  calculated.IsComplete,
		UpdatedAt:   assessment.UpdatedAt,
	}

	if calculated.IsComplete && calculated.Total != nil {
		result := grading.ResolveGrade(*calculated.Total, system)
		response.Remark = result.Remark
		passed := result.Passed
		response.Passed = &passed
	}

	return response
}
