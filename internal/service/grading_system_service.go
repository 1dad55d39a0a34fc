package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/grading"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/repository"
)

var (
	// ErrGradingSystemNotFound indicates the grading system was not located.
	ErrGradingSystemNotFound = errors.New("grading system not found")
	// ErrInvalidGradingSystem wraps structural problems in a grading system definition.
	ErrInvalidGradingSystem = errors.New("invalid grading system")
)

// EffectiveSystem is the grading system applied to a school's results.
// System is nil when the school has no default configured and the built-in
// scale applies.
type EffectiveSystem struct {
	System   *grading.GradingSystem
	Response dto.GradingSystemResponse
}

// GradingSystemResolver exposes the grading system in force for a school.
type GradingSystemResolver interface {
	Effective(ctx context.Context, schoolID uint) (EffectiveSystem, error)
}

// GradingSystemService manages school grading systems.
type GradingSystemService interface {
	GradingSystemResolver
	Create(ctx context.Context, actor ActivityActor, payload dto.GradingSystemRequest) (dto.GradingSystemResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, payload dto.GradingSystemRequest) (dto.GradingSystemResponse, error)
	Get(ctx context.Context, actor ActivityActor, id uint) (dto.GradingSystemResponse, error)
	List(ctx context.Context, actor ActivityActor, schoolID uint) ([]dto.GradingSystemResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
	SetDefault(ctx context.Context, actor ActivityActor, id uint) (dto.GradingSystemResponse, error)
	Resolve(ctx context.Context, actor ActivityActor, id uint, payload dto.GradeResolveRequest) (dto.GradeResolveResponse, error)
}

type gradingSystemService struct {
	repo      repository.GradingSystemRepository
	validator *validator.Validate
	activity  ActivityRecorder
	cache     *ResultCache
	sanitizer *bluemonday.Policy
	tracer    trace.Tracer
	logger    zerolog.Logger
}

// NewGradingSystemService constructs the grading system service.
func NewGradingSystemService(repo repository.GradingSystemRepository, validator *validator.Validate, activity ActivityRecorder, cache *ResultCache, logger zerolog.Logger) GradingSystemService {
	return &gradingSystemService{
		repo:      repo,
		validator: validator,
		activity:  activity,
		cache:     cache,
		sanitizer: bluemonday.StrictPolicy(),
		tracer:    otel.Tracer("github.com/noah-isme/gema-school-api/internal/service/grading_system"),
		logger:    logger.With().Str("component", "grading_system_service").Logger(),
	}
}

func (s *gradingSystemService) Create(ctx context.Context, actor ActivityActor, payload dto.GradingSystemRequest) (dto.GradingSystemResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading_system.create")
	span.SetAttributes(attribute.Int64("grading.school_id", int64(payload.SchoolID)))
	defer span.End()

	model, err := s.buildModel(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingSystemResponse{}, err
	}
	if !actor.canAdminister(model.SchoolID) {
		return dto.GradingSystemResponse{}, ErrForbidden
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create_failed")
		return dto.GradingSystemResponse{}, err
	}

	s.afterChange(ctx, actor, models.ActionGradingSystemCreated, model)
	return s.reload(ctx, model.ID)
}

func (s *gradingSystemService) Update(ctx context.Context, actor ActivityActor, id uint, payload dto.GradingSystemRequest) (dto.GradingSystemResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading_system.update")
	span.SetAttributes(attribute.Int64("grading.system_id", int64(id)))
	defer span.End()

	existing, err := s.load(ctx, id)
	if err != nil {
		span.RecordError(err)
		return dto.GradingSystemResponse{}, err
	}
	if !actor.canAdminister(existing.SchoolID) {
		return dto.GradingSystemResponse{}, ErrForbidden
	}

	payload.SchoolID = existing.SchoolID
	model, err := s.buildModel(payload)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingSystemResponse{}, err
	}
	model.ID = existing.ID

	if err := s.repo.Update(ctx, &model); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingSystemResponse{}, ErrGradingSystemNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "update_failed")
		return dto.GradingSystemResponse{}, err
	}

	s.afterChange(ctx, actor, models.ActionGradingSystemUpdated, model)
	return s.reload(ctx, model.ID)
}

func (s *gradingSystemService) Get(ctx context.Context, actor ActivityActor, id uint) (dto.GradingSystemResponse, error) {
	system, err := s.load(ctx, id)
	if err != nil {
		return dto.GradingSystemResponse{}, err
	}
	if !actor.isStaffOf(system.SchoolID) {
		return dto.GradingSystemResponse{}, ErrForbidden
	}
	return dto.NewGradingSystemResponse(system), nil
}

// List returns the school's grading systems. When none is marked default the
// built-in scale is appended so clients always see what applies.
func (s *gradingSystemService) List(ctx context.Context, actor ActivityActor, schoolID uint) ([]dto.GradingSystemResponse, error) {
	if !actor.isStaffOf(schoolID) {
		return nil, ErrForbidden
	}

	systems, err := s.repo.ListBySchool(ctx, schoolID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.GradingSystemResponse, 0, len(systems)+1)
	hasDefault := false
	for _, system := range systems {
		hasDefault = hasDefault || system.IsDefault
		responses = append(responses, dto.NewGradingSystemResponse(system))
	}
	if !hasDefault {
		responses = append(responses, dto.NewBuiltinGradingSystemResponse(schoolID))
	}
	return responses, nil
}

func (s *gradingSystemService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	ctx, span := s.tracer.Start(ctx, "grading_system.delete")
	span.SetAttributes(attribute.Int64("grading.system_id", int64(id)))
	defer span.End()

	system, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if !actor.canAdminister(system.SchoolID) {
		return ErrForbidden
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrGradingSystemNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete_failed")
		return err
	}

	s.afterChange(ctx, actor, models.ActionGradingSystemDeleted, system)
	return nil
}

func (s *gradingSystemService) SetDefault(ctx context.Context, actor ActivityActor, id uint) (dto.GradingSystemResponse, error) {
	ctx, span := s.tracer.Start(ctx, "grading_system.set_default")
	span.SetAttributes(attribute.Int64("grading.system_id", int64(id)))
	defer span.End()

	system, err := s.load(ctx, id)
	if err != nil {
		return dto.GradingSystemResponse{}, err
	}
	if !actor.canAdminister(system.SchoolID) {
		return dto.GradingSystemResponse{}, ErrForbidden
	}

	if err := s.repo.SetDefault(ctx, system.SchoolID, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.GradingSystemResponse{}, ErrGradingSystemNotFound
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "set_default_failed")
		return dto.GradingSystemResponse{}, err
	}

	s.afterChange(ctx, actor, models.ActionGradingSystemDefaulted, system)
	return s.reload(ctx, id)
}

// Resolve previews the grade a score receives. id 0 resolves against the
// built-in scale.
func (s *gradingSystemService) Resolve(ctx context.Context, actor ActivityActor, id uint, payload dto.GradeResolveRequest) (dto.GradeResolveResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.GradeResolveResponse{}, err
	}

	var system *grading.GradingSystem
	if id != 0 {
		stored, err := s.load(ctx, id)
		if err != nil {
			return dto.GradeResolveResponse{}, err
		}
		if !actor.isStaffOf(stored.SchoolID) {
			return dto.GradeResolveResponse{}, ErrForbidden
		}
		system = stored.Engine()
	}

	score := *payload.Score
	result := grading.ResolveGrade(score, system)
	if _, matched := grading.Effective(system).Lookup(score); !matched {
		s.logger.Debug().Uint("grading_system_id", id).Float64("score", score).Msg("score fell outside every grade band")
	}
	return dto.NewGradeResolveResponse(score, result), nil
}

func (s *gradingSystemService) Effective(ctx context.Context, schoolID uint) (EffectiveSystem, error) {
	stored, err := s.repo.GetDefault(ctx, schoolID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return EffectiveSystem{Response: dto.NewBuiltinGradingSystemResponse(schoolID)}, nil
		}
		return EffectiveSystem{}, err
	}

	system := stored.Engine()
	if system.IsEmpty() {
		return EffectiveSystem{Response: dto.NewBuiltinGradingSystemResponse(schoolID)}, nil
	}
	return EffectiveSystem{System: system, Response: dto.NewGradingSystemResponse(stored)}, nil
}

func (s *gradingSystemService) buildModel(payload dto.GradingSystemRequest) (models.GradingSystem, error) {
	if err := s.validator.Struct(payload); err != nil {
		return models.GradingSystem{}, err
	}

	model := models.GradingSystem{
		SchoolID:  payload.SchoolID,
		Name:      s.clean(payload.Name),
		PassMark:  *payload.PassMark,
		IsDefault: payload.IsDefault,
		Levels:    make([]models.GradingLevel, 0, len(payload.Levels)),
	}
	for i, level := range payload.Levels {
		model.Levels = append(model.Levels, models.GradingLevel{
			Position: i,
			MinScore: *level.MinScore,
			MaxScore: *level.MaxScore,
			Grade:    s.clean(level.Grade),
			Remark:   s.clean(level.Remark),
		})
	}

	if model.Name == "" {
		return models.GradingSystem{}, fmt.Errorf("%w: name must not be empty", ErrInvalidGradingSystem)
	}
	if err := model.Engine().Validate(); err != nil {
		return models.GradingSystem{}, fmt.Errorf("%w: %v", ErrInvalidGradingSystem, err)
	}
	return model, nil
}

func (s *gradingSystemService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(strings.TrimSpace(value)))
}

func (s *gradingSystemService) load(ctx context.Context, id uint) (models.GradingSystem, error) {
	system, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.GradingSystem{}, ErrGradingSystemNotFound
		}
		return models.GradingSystem{}, err
	}
	return system, nil
}

func (s *gradingSystemService) reload(ctx context.Context, id uint) (dto.GradingSystemResponse, error) {
	system, err := s.load(ctx, id)
	if err != nil {
		return dto.GradingSystemResponse{}, err
	}
	return dto.NewGradingSystemResponse(system), nil
}

// afterChange drops cached results computed with the old definition and
// writes the audit entry.
func (s *gradingSystemService) afterChange(ctx context.Context, actor ActivityActor, action string, system models.GradingSystem) {
	s.cache.InvalidateSchool(ctx, system.SchoolID)

	systemID := system.ID
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		SchoolID:   system.SchoolID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     action,
		EntityType: models.EntityTypeGradingSystem,
		EntityID:   &systemID,
		Metadata: map[string]interface{}{
			"name":       system.Name,
			"pass_mark":  system.PassMark,
			"levels":     len(system.Levels),
			"is_default": system.IsDefault,
		},
	})

	s.logger.Info().
		Str("action", action).
		Uint("grading_system_id", system.ID).
		Uint("school_id", system.SchoolID).
		Msg("grading system changed")
}
