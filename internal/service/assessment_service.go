package service

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/grading"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/repository"
)

var (
	// ErrAssessmentNotFound indicates the score entry was not located.
	ErrAssessmentNotFound = errors.New("assessment not found")
	// ErrScoreOutOfRange indicates a component score exceeds its configured maximum.
	ErrScoreOutOfRange = errors.New("score out of range")
)

// ScoreLimits holds the maximum mark of each assessment component.
type ScoreLimits struct {
	CA1  float64
	CA2  float64
	CA3  float64
	Exam float64
}

// DefaultScoreLimits returns the 20/20/20/40 split used when nothing is configured.
func DefaultScoreLimits() ScoreLimits {
	return ScoreLimits{CA1: 20, CA2: 20, CA3: 20, Exam: 40}
}

// Check rejects negative, non-finite and over-limit component scores.
// Missing components are accepted.
func (l ScoreLimits) Check(score grading.AssessmentScore) error {
	components := []struct {
		name  string
		value *float64
		max   float64
	}{
		{name: "ca1", value: score.CA1, max: l.CA1},
		{name: "ca2", value: score.CA2, max: l.CA2},
		{name: "ca3", value: score.CA3, max: l.CA3},
		{name: "exam", value: score.Exam, max: l.Exam},
	}

	for _, component := range components {
		if component.value == nil {
			continue
		}
		value := *component.value
		if math.IsNaN(value) || math.IsInf(value, 0) || value < 0 {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrScoreOutOfRange, component.name)
		}
		if component.max > 0 && value > component.max+1e-9 {
			return fmt.Errorf("%w: %s must not exceed %g", ErrScoreOutOfRange, component.name, component.max)
		}
	}
	return nil
}

// AssessmentService records raw component scores.
type AssessmentService interface {
	Record(ctx context.Context, actor ActivityActor, payload dto.AssessmentScoreRequest) (dto.AssessmentResponse, error)
	RecordSheet(ctx context.Context, actor ActivityActor, payload dto.AssessmentSheetRequest) (dto.AssessmentSheetResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
}

type assessmentService struct {
	assessments repository.AssessmentRepository
	students    repository.StudentRepository
	schools     repository.SchoolRepository
	systems     GradingSystemResolver
	validator   *validator.Validate
	activity    ActivityRecorder
	cache       *ResultCache
	calculator  Calculator
	limits      ScoreLimits
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewAssessmentService constructs the score entry service.
func NewAssessmentService(
	assessments repository.AssessmentRepository,
	students repository.StudentRepository,
	schools repository.SchoolRepository,
	systems GradingSystemResolver,
	validator *validator.Validate,
	activity ActivityRecorder,
	cache *ResultCache,
	calculator Calculator,
	limits ScoreLimits,
	logger zerolog.Logger,
) AssessmentService {
	return &assessmentService{
		assessments: assessments,
		students:    students,
		schools:     schools,
		systems:     systems,
		validator:   validator,
		activity:    activity,
		cache:       cache,
		calculator:  calculator,
		limits:      limits,
		tracer:      otel.Tracer("github.com/noah-isme/gema-school-api/internal/service/assessment"),
		logger:      logger.With().Str("component", "assessment_service").Logger(),
	}
}

func (s *assessmentService) Record(ctx context.Context, actor ActivityActor, payload dto.AssessmentScoreRequest) (dto.AssessmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.record")
	span.SetAttributes(
		attribute.Int64("assessment.student_id", int64(payload.StudentID)),
		attribute.Int64("assessment.subject_id", int64(payload.SubjectID)),
		attribute.Int64("assessment.term_id", int64(payload.TermID)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AssessmentResponse{}, err
	}

	sheet, err := loadSheetContext(ctx, s.schools, payload.ClassID, payload.SubjectID, payload.TermID)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentResponse{}, err
	}
	if !actor.isStaffOf(sheet.SchoolID()) {
		return dto.AssessmentResponse{}, ErrForbidden
	}

	student, err := s.students.GetByID(ctx, payload.StudentID)
	if err != nil {
		return dto.AssessmentResponse{}, notFoundAs(err, ErrStudentNotFound)
	}
	if student.SchoolID != sheet.SchoolID() {
		return dto.AssessmentResponse{}, ErrSchoolMismatch
	}
	if student.ClassID != sheet.Class.ID {
		return dto.AssessmentResponse{}, ErrStudentNotInClass
	}

	model := models.Assessment{
		SchoolID:   sheet.SchoolID(),
		ClassID:    sheet.Class.ID,
		SubjectID:  sheet.Subject.ID,
		TermID:     sheet.Term.ID,
		StudentID:  student.ID,
		CA1:        payload.CA1,
		CA2:        payload.CA2,
		CA3:        payload.CA3,
		Exam:       payload.Exam,
		IsAbsent:   payload.IsAbsent,
		IsExempt:   payload.IsExempt,
		RecordedBy: actor.ID,
	}
	if err := s.limits.Check(model.Score()); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "score_out_of_range")
		return dto.AssessmentResponse{}, err
	}

	stored, err := s.assessments.Upsert(ctx, model)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert_failed")
		return dto.AssessmentResponse{}, err
	}

	effective, err := s.systems.Effective(ctx, sheet.SchoolID())
	if err != nil {
		return dto.AssessmentResponse{}, err
	}
	calculated, reporting := s.calculator.CalculateOne(stored.Score(), effective.System)

	s.cache.InvalidateSheet(ctx, sheet.SchoolID(), sheet.Class.ID, sheet.Subject.ID, sheet.Term.ID)

	metadata := map[string]interface{}{
		"student_id":  stored.StudentID,
		"subject_id":  stored.SubjectID,
		"term_id":     stored.TermID,
		"class_id":    stored.ClassID,
		"is_absent":   stored.IsAbsent,
		"is_exempt":   stored.IsExempt,
		"is_complete": calculated.IsComplete,
	}
	if calculated.Total != nil {
		metadata["total"] = *calculated.Total
	}
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		SchoolID:   stored.SchoolID,
		TermID:     stored.TermID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionAssessmentRecorded,
		EntityType: models.EntityTypeAssessment,
		EntityID:   &stored.ID,
		Metadata:   metadata,
	})

	span.SetAttributes(attribute.Bool("assessment.complete", calculated.IsComplete))
	return dto.NewAssessmentResponse(stored, calculated, reporting), nil
}

func (s *assessmentService) RecordSheet(ctx context.Context, actor ActivityActor, payload dto.AssessmentSheetRequest) (dto.AssessmentSheetResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assessment.record_sheet")
	span.SetAttributes(
		attribute.Int64("assessment.class_id", int64(payload.ClassID)),
		attribute.Int("assessment.entries", len(payload.Entries)),
	)
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.AssessmentSheetResponse{}, err
	}

	sheet, err := loadSheetContext(ctx, s.schools, payload.ClassID, payload.SubjectID, payload.TermID)
	if err != nil {
		span.RecordError(err)
		return dto.AssessmentSheetResponse{}, err
	}
	if !actor.isStaffOf(sheet.SchoolID()) {
		return dto.AssessmentSheetResponse{}, ErrForbidden
	}

	roster, err := s.students.ListByClass(ctx, sheet.Class.ID)
	if err != nil {
		return dto.AssessmentSheetResponse{}, err
	}
	enrolled := make(map[uint]struct{}, len(roster))
	for _, student := range roster {
		enrolled[student.ID] = struct{}{}
	}

	// Later entries for the same student replace earlier ones.
	index := make(map[uint]int, len(payload.Entries))
	batch := make([]models.Assessment, 0, len(payload.Entries))
	for i, entry := range payload.Entries {
		if _, ok := enrolled[entry.StudentID]; !ok {
			return dto.AssessmentSheetResponse{}, fmt.Errorf("entry %d: %w", i, ErrStudentNotInClass)
		}
		model := sheetModel(sheet, entry, actor.ID)
		if err := s.limits.Check(model.Score()); err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "score_out_of_range")
			return dto.AssessmentSheetResponse{}, fmt.Errorf("entry %d: %w", i, err)
		}
		if existing, ok := index[entry.StudentID]; ok {
			batch[existing] = model
			continue
		}
		index[entry.StudentID] = len(batch)
		batch = append(batch, model)
	}

	if err := s.assessments.UpsertMany(ctx, batch); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "upsert_failed")
		return dto.AssessmentSheetResponse{}, err
	}

	stored, err := s.assessments.List(ctx, repository.AssessmentFilter{
		ClassID:   sheet.Class.ID,
		SubjectID: sheet.Subject.ID,
		TermID:    sheet.Term.ID,
	})
	if err != nil {
		return dto.AssessmentSheetResponse{}, err
	}
	saved := make([]models.Assessment, 0, len(index))
	for _, assessment := range stored {
		if _, ok := index[assessment.StudentID]; ok {
			saved = append(saved, assessment)
		}
	}

	effective, err := s.systems.Effective(ctx, sheet.SchoolID())
	if err != nil {
		return dto.AssessmentSheetResponse{}, err
	}
	scores := make([]grading.AssessmentScore, 0, len(saved))
	for _, assessment := range saved {
		scores = append(scores, assessment.Score())
	}
	calculated, reporting := s.calculator.Calculate(scores, effective.System)

	response := dto.AssessmentSheetResponse{
		Saved: len(saved),
		Items: make([]dto.AssessmentResponse, 0, len(saved)),
	}
	for i, assessment := range saved {
		if calculated[i].IsComplete {
			response.Complete++
		}
		response.Items = append(response.Items, dto.NewAssessmentResponse(assessment, calculated[i], reporting))
	}

	s.cache.InvalidateSheet(ctx, sheet.SchoolID(), sheet.Class.ID, sheet.Subject.ID, sheet.Term.ID)

	classID := sheet.Class.ID
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		SchoolID:   sheet.SchoolID(),
		TermID:     sheet.Term.ID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionAssessmentSheetRecorded,
		EntityType: models.EntityTypeClass,
		EntityID:   &classID,
		Metadata: map[string]interface{}{
			"subject_id": sheet.Subject.ID,
			"saved":      response.Saved,
			"complete":   response.Complete,
		},
	})

	s.logger.Info().
		Uint("class_id", sheet.Class.ID).
		Uint("subject_id", sheet.Subject.ID).
		Uint("term_id", sheet.Term.ID).
		Int("saved", response.Saved).
		Msg("score sheet recorded")

	return response, nil
}

func (s *assessmentService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	assessment, err := s.assessments.GetByID(ctx, id)
	if err != nil {
		return notFoundAs(err, ErrAssessmentNotFound)
	}
	if !actor.isStaffOf(assessment.SchoolID) {
		return ErrForbidden
	}

	if err := s.assessments.Delete(ctx, id); err != nil {
		return notFoundAs(err, ErrAssessmentNotFound)
	}

	s.cache.InvalidateSheet(ctx, assessment.SchoolID, assessment.ClassID, assessment.SubjectID, assessment.TermID)
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		SchoolID:   assessment.SchoolID,
		TermID:     assessment.TermID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionAssessmentDeleted,
		EntityType: models.EntityTypeAssessment,
		EntityID:   &id,
		Metadata: map[string]interface{}{
			"student_id": assessment.StudentID,
			"subject_id": assessment.SubjectID,
		},
	})
	return nil
}

func sheetModel(sheet sheetContext, entry dto.AssessmentSheetEntry, recordedBy uint) models.Assessment {
	return models.Assessment{
		SchoolID:   sheet.SchoolID(),
		ClassID:    sheet.Class.ID,
		SubjectID:  sheet.Subject.ID,
		TermID:     sheet.Term.ID,
		StudentID:  entry.StudentID,
		CA1:        entry.CA1,
		CA2:        entry.CA2,
		CA3:        entry.CA3,
		Exam:       entry.Exam,
		IsAbsent:   entry.IsAbsent,
		IsExempt:   entry.IsExempt,
		RecordedBy: recordedBy,
	}
}
