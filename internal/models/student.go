package models

import (
	"time"

	"gorm.io/gorm"
)

// Student represents a learner enrolled in a class.
type Student struct {
	ID             uint           `gorm:"primaryKey" json:"id"`
	SchoolID       uint           `gorm:"not null;index;uniqueIndex:idx_student_admission" json:"school_id"`
	ClassID        uint           `gorm:"not null;index" json:"class_id"`
	AdmissionNo    string         `gorm:"size:64;not null;uniqueIndex:idx_student_admission" json:"admission_no"`
	Name           string         `gorm:"size:255;not null" json:"name"`
	Status         string         `gorm:"size:32;not null;default:active" json:"status"`
	UserID         *uint          `gorm:"index" json:"user_id"`
	GuardianUserID *uint          `gorm:"index" json:"guardian_user_id"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	DeletedAt      gorm.DeletedAt `gorm:"index" json:"-"`
}

const (
	// StudentStatusActive marks a student currently attending classes.
	StudentStatusActive = "active"
	// StudentStatusWithdrawn marks a student who left the school.
	StudentStatusWithdrawn = "withdrawn"
)

// VisibleTo reports whether a student or parent account may read this
// student's results.
func (s Student) VisibleTo(userID uint) bool {
	if userID == 0 {
		return false
	}
	return (s.UserID != nil && *s.UserID == userID) ||
		(s.GuardianUserID != nil && *s.GuardianUserID == userID)
}
