package models

import "time"

// School is the tenant that owns classes, terms, subjects and grading systems.
type School struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:255;not null" json:"name"`
	Code      string    `gorm:"size:32;uniqueIndex;not null" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Term is an academic sub-period of a session during which scores are recorded.
type Term struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	SchoolID  uint       `gorm:"not null;index" json:"school_id"`
	Session   string     `gorm:"size:32;not null" json:"session"`
	Name      string     `gorm:"size:64;not null" json:"name"`
	StartsAt  *time.Time `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	IsCurrent bool       `gorm:"not null;default:false" json:"is_current"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Label renders the term for report headers, e.g. "First Term 2024/2025".
func (t Term) Label() string {
	if t.Session == "" {
		return t.Name
	}
	return t.Name + " " + t.Session
}

// Class groups students who share a result sheet.
type Class struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SchoolID  uint      `gorm:"not null;index" json:"school_id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	TeacherID *uint     `gorm:"index" json:"teacher_id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Subject is a course taught in a school.
type Subject struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	SchoolID  uint      `gorm:"not null;index" json:"school_id"`
	Name      string    `gorm:"size:128;not null" json:"name"`
	Code      string    `gorm:"size:32" json:"code"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
