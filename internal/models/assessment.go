package models

import (
	"time"

	"github.com/noah-isme/gema-school-api/internal/grading"
)

// Assessment stores one student's raw marks for one subject in one term.
type Assessment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	SchoolID   uint      `gorm:"not null;index" json:"school_id"`
	ClassID    uint      `gorm:"not null;index:idx_assessment_sheet" json:"class_id"`
	SubjectID  uint      `gorm:"not null;index:idx_assessment_sheet;uniqueIndex:idx_assessment_entry" json:"subject_id"`
	TermID     uint      `gorm:"not null;index:idx_assessment_sheet;uniqueIndex:idx_assessment_entry" json:"term_id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_assessment_entry" json:"student_id"`
	CA1        *float64  `gorm:"column:ca1" json:"ca1"`
	CA2        *float64  `gorm:"column:ca2" json:"ca2"`
	CA3        *float64  `gorm:"column:ca3" json:"ca3"`
	Exam       *float64  `json:"exam"`
	IsAbsent   bool      `gorm:"not null;default:false" json:"is_absent"`
	IsExempt   bool      `gorm:"not null;default:false" json:"is_exempt"`
	RecordedBy uint      `json:"recorded_by"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	Student    Student   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"student"`
	Subject    Subject   `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"subject"`
}

// Score returns the raw marks in the grading engine's input shape.
func (a Assessment) Score() grading.AssessmentScore {
	return grading.AssessmentScore{
		CA1:      a.CA1,
		CA2:      a.CA2,
		CA3:      a.CA3,
		Exam:     a.Exam,
		IsAbsent: a.IsAbsent,
		IsExempt: a.IsExempt,
	}
}
