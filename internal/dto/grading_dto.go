package dto

import (
	"math"
	"time"

	"github.com/noah-isme/gema-school-api/internal/grading"
	"github.com/noah-isme/gema-school-api/internal/models"
)

// GradingLevelRequest describes one score band in a create/update payload.
type GradingLevelRequest struct {
	MinScore *float64 `json:"min_score" validate:"required,gte=0,lte=100"`
	MaxScore *float64 `json:"max_score" validate:"required,gte=0,lte=100"`
	Grade    string   `json:"grade" validate:"required,max=16"`
	Remark   string   `json:"remark" validate:"omitempty,max=128"`
}

// GradingSystemRequest is the payload for creating or replacing a grading system.
type GradingSystemRequest struct {
	SchoolID  uint                  `json:"school_id" validate:"required"`
	Name      string                `json:"name" validate:"required,min=2,max=128"`
	PassMark  *float64              `json:"pass_mark" validate:"required,gte=0,lte=100"`
	IsDefault bool                  `json:"is_default"`
	Levels    []GradingLevelRequest `json:"levels" validate:"required,min=1,dive"`
}

// GradeResolveRequest asks for the grade a score would receive.
type GradeResolveRequest struct {
	Score *float64 `json:"score" validate:"required"`
}

// GradingLevelResponse serializes a score band.
type GradingLevelResponse struct {
	MinScore float64 `json:"min_score"`
	MaxScore float64 `json:"max_score"`
	Grade    string  `json:"grade"`
	Remark   string  `json:"remark"`
}

// GradingSystemResponse serializes a grading system.
type GradingSystemResponse struct {
	ID        uint                   `json:"id"`
	SchoolID  uint                   `json:"school_id"`
	Name      string                 `json:"name"`
	PassMark  float64                `json:"pass_mark"`
	IsDefault bool                   `json:"is_default"`
	Builtin   bool                   `json:"builtin"`
	Levels    []GradingLevelResponse `json:"levels"`
	UpdatedAt *time.Time             `json:"updated_at,omitempty"`
}

// GradeResolveResponse reports the outcome of resolving a score.
type GradeResolveResponse struct {
	Score  float64 `json:"score"`
	Grade  string  `json:"grade"`
	Remark string  `json:"remark"`
	Passed bool    `json:"passed"`
}

// NewGradingSystemResponse converts a stored grading system.
func NewGradingSystemResponse(system models.GradingSystem) GradingSystemResponse {
	engine := system.Engine()
	updatedAt := system.UpdatedAt
	response := GradingSystemResponse{
		ID:        system.ID,
		SchoolID:  system.SchoolID,
		Name:      system.Name,
		PassMark:  system.PassMark,
		IsDefault: system.IsDefault,
		Levels:    newGradingLevelResponses(engine.Levels),
		UpdatedAt: &updatedAt,
	}
	return response
}

// NewBuiltinGradingSystemResponse describes the fixed scale used by schools
// without a configured grading system.
func NewBuiltinGradingSystemResponse(schoolID uint) GradingSystemResponse {
	system := grading.DefaultGradingSystem()
	return GradingSystemResponse{
		SchoolID:  schoolID,
		Name:      system.Name,
		PassMark:  system.PassMark,
		IsDefault: true,
		Builtin:   true,
		Levels:    newGradingLevelResponses(system.Levels),
	}
}

// NewGradeResolveResponse converts a grading result.
func NewGradeResolveResponse(score float64, result grading.Result) GradeResolveResponse {
	return GradeResolveResponse{
		Score:  score,
		Grade:  result.Grade,
		Remark: result.Remark,
		Passed: result.Passed,
	}
}

func newGradingLevelResponses(levels []grading.GradingLevel) []GradingLevelResponse {
	responses := make([]GradingLevelResponse, 0, len(levels))
	for _, level := range levels {
		responses = append(responses, GradingLevelResponse{
			MinScore: displayBound(level.MinScore),
			MaxScore: displayBound(level.MaxScore),
			Grade:    level.Grade,
			Remark:   level.Remark,
		})
	}
	return responses
}

// displayBound keeps open-ended default bands JSON encodable.
func displayBound(v float64) float64 {
	switch {
	case math.IsInf(v, 1):
		return 100
	case math.IsInf(v, -1):
		return 0
	default:
		return v
	}
}
