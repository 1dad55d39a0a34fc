package models

import (
	"sort"
	"time"

	"github.com/noah-isme/gema-school-api/internal/grading"
)

// GradingSystem is a school-owned set of grade bands plus a pass mark.
type GradingSystem struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	SchoolID  uint           `gorm:"not null;index" json:"school_id"`
	Name      string         `gorm:"size:128;not null" json:"name"`
	PassMark  float64        `gorm:"not null" json:"pass_mark"`
	IsDefault bool           `gorm:"not null;default:false" json:"is_default"`
	Levels    []GradingLevel `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"levels"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// GradingLevel is one inclusive score band of a grading system.
type GradingLevel struct {
	ID              uint    `gorm:"primaryKey" json:"id"`
	GradingSystemID uint    `gorm:"not null;index" json:"grading_system_id"`
	Position        int     `gorm:"not null;default:0" json:"position"`
	MinScore        float64 `gorm:"not null" json:"min_score"`
	MaxScore        float64 `gorm:"not null" json:"max_score"`
	Grade           string  `gorm:"size:16;not null" json:"grade"`
	Remark          string  `gorm:"size:128" json:"remark"`
}

// Engine converts the stored definition into the grading engine's form,
// keeping the configured level order.
func (g GradingSystem) Engine() *grading.GradingSystem {
	levels := make([]GradingLevel, len(g.Levels))
	copy(levels, g.Levels)
	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Position < levels[j].Position
	})

	system := &grading.GradingSystem{
		Name:     g.Name,
		PassMark: g.PassMark,
		Levels:   make([]grading.GradingLevel, 0, len(levels)),
	}
	for _, level := range levels {
		system.Levels = append(system.Levels, grading.GradingLevel{
			MinScore: level.MinScore,
			MaxScore: level.MaxScore,
			Grade:    level.Grade,
			Remark:   level.Remark,
		})
	}
	return system
}
