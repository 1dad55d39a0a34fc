package models

import (
	"time"

	"gorm.io/datatypes"
)

// Audited actions.
const (
	ActionGradingSystemCreated    = "grading_system.created"
	ActionGradingSystemUpdated    = "grading_system.updated"
	ActionGradingSystemDeleted    = "grading_system.deleted"
	ActionGradingSystemDefaulted  = "grading_system.default_changed"
	ActionAssessmentRecorded      = "assessment.recorded"
	ActionAssessmentSheetRecorded = "assessment.sheet_recorded"
	ActionAssessmentDeleted       = "assessment.deleted"
	ActionBroadsheetExported      = "broadsheet.exported"
	EntityTypeGradingSystem       = "grading_system"
	EntityTypeAssessment          = "assessment"
	EntityTypeClass               = "class"
)

// ActivityLog is one entry of the grading audit trail. TermID is set for
// score changes so a term's edits can be reviewed before results go out.
type ActivityLog struct {
	ID         uint              `gorm:"primaryKey" json:"id"`
	SchoolID   *uint             `gorm:"index:idx_activity_school_created,priority:1" json:"school_id"`
	TermID     *uint             `gorm:"index" json:"term_id"`
	ActorID    uint              `gorm:"not null;index" json:"actor_id"`
	ActorRole  string            `gorm:"size:32;not null" json:"actor_role"`
	Action     string            `gorm:"size:64;not null;index" json:"action"`
	EntityType string            `gorm:"size:64;not null" json:"entity_type"`
	EntityID   *uint             `json:"entity_id"`
	Metadata   datatypes.JSONMap `gorm:"type:json" json:"metadata"`
	CreatedAt  time.Time         `gorm:"index:idx_activity_school_created,priority:2" json:"created_at"`
}
