package service

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/events"
	"github.com/noah-isme/gema-school-api/internal/grading"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/repository"
)

// ClassResultQuery identifies a class result sheet.
type ClassResultQuery struct {
	ClassID   uint
	SubjectID uint
	TermID    uint
}

// ResultService computes result sheets and report cards from stored scores.
type ResultService interface {
	ClassResults(ctx context.Context, actor ActivityActor, query ClassResultQuery) (dto.ClassResultResponse, error)
	StudentReport(ctx context.Context, actor ActivityActor, studentID, termID uint) (dto.StudentReportResponse, error)
}

type resultService struct {
	assessments repository.AssessmentRepository
	students    repository.StudentRepository
	schools     repository.SchoolRepository
	systems     GradingSystemResolver
	cache       *ResultCache
	publisher   events.ResultPublisher
	calculator  Calculator
	tracer      trace.Tracer
	logger      zerolog.Logger
	now         func() time.Time
}

// NewResultService constructs the result service. publisher may be nil.
func NewResultService(
	assessments repository.AssessmentRepository,
	students repository.StudentRepository,
	schools repository.SchoolRepository,
	systems GradingSystemResolver,
	cache *ResultCache,
	publisher events.ResultPublisher,
	calculator Calculator,
	logger zerolog.Logger,
) ResultService {
	return &resultService{
		assessments: assessments,
		students:    students,
		schools:     schools,
		systems:     systems,
		cache:       cache,
		publisher:   publisher,
		calculator:  calculator,
		tracer:      otel.Tracer("github.com/noah-isme/gema-school-api/internal/service/result"),
		logger:      logger.With().Str("component", "result_service").Logger(),
		now:         time.Now,
	}
}

// ClassResults returns every active student of the class with their graded
// totals, class positions and a class summary. Students without a score entry
// appear as pending rows.
func (s *resultService) ClassResults(ctx context.Context, actor ActivityActor, query ClassResultQuery) (dto.ClassResultResponse, error) {
	ctx, span := s.tracer.Start(ctx, "results.class")
	span.SetAttributes(
		attribute.Int64("results.class_id", int64(query.ClassID)),
		attribute.Int64("results.subject_id", int64(query.SubjectID)),
		attribute.Int64("results.term_id", int64(query.TermID)),
	)
	defer span.End()

	sheet, err := loadSheetContext(ctx, s.schools, query.ClassID, query.SubjectID, query.TermID)
	if err != nil {
		span.RecordError(err)
		return dto.ClassResultResponse{}, err
	}
	if !actor.isStaffOf(sheet.SchoolID()) {
		return dto.ClassResultResponse{}, ErrForbidden
	}

	cacheKey := classResultKey(sheet.SchoolID(), sheet.Class.ID, sheet.Subject.ID, sheet.Term.ID)
	var cached dto.ClassResultResponse
	if s.cache.Get(ctx, cacheKey, &cached) {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("results.cache_hit", true))
		return cached, nil
	}

	roster, err := s.students.ListByClass(ctx, sheet.Class.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_students_failed")
		return dto.ClassResultResponse{}, err
	}
	stored, err := s.assessments.List(ctx, repository.AssessmentFilter{
		ClassID:   sheet.Class.ID,
		SubjectID: sheet.Subject.ID,
		TermID:    sheet.Term.ID,
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_assessments_failed")
		return dto.ClassResultResponse{}, err
	}

	effective, err := s.systems.Effective(ctx, sheet.SchoolID())
	if err != nil {
		return dto.ClassResultResponse{}, err
	}

	entries := classEntries(sheet, roster, stored)
	scores := make([]grading.AssessmentScore, 0, len(entries))
	for _, entry := range entries {
		scores = append(scores, entry.Score())
	}
	calculated, reporting := s.calculator.Calculate(scores, effective.System)
	ranks := grading.RankTotals(calculated)

	response := dto.ClassResultResponse{
		SchoolID:      sheet.SchoolID(),
		ClassID:       sheet.Class.ID,
		ClassName:     sheet.Class.Name,
		SubjectID:     sheet.Subject.ID,
		SubjectName:   sheet.Subject.Name,
		TermID:        sheet.Term.ID,
		TermName:      sheet.Term.Label(),
		GradingSystem: effective.Response,
		Rows:          make([]dto.ClassResultRow, 0, len(entries)),
		Summary:       grading.Summarize(calculated, reporting),
		GeneratedAt:   s.now().UTC(),
	}
	for i, entry := range entries {
		response.Rows = append(response.Rows, dto.ClassResultRow{
			AssessmentResponse: dto.NewAssessmentResponse(entry, calculated[i], reporting),
			AdmissionNo:        entry.Student.AdmissionNo,
			Position:           ranks[i],
			PositionTag:        grading.Ordinal(ranks[i]),
		})
	}

	s.cache.Set(ctx, cacheKey, response)
	s.announce(ctx, sheet, response)

	span.SetAttributes(
		attribute.Int("results.students", response.Summary.Students),
		attribute.Int("results.complete", response.Summary.Complete),
	)
	return response, nil
}

// StudentReport returns a student's graded subjects for a term. Staff of the
// student's school, the student and their guardian may read it.
func (s *resultService) StudentReport(ctx context.Context, actor ActivityActor, studentID, termID uint) (dto.StudentReportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "results.student")
	span.SetAttributes(
		attribute.Int64("results.student_id", int64(studentID)),
		attribute.Int64("results.term_id", int64(termID)),
	)
	defer span.End()

	student, err := s.students.GetByID(ctx, studentID)
	if err != nil {
		return dto.StudentReportResponse{}, notFoundAs(err, ErrStudentNotFound)
	}
	term, err := s.schools.GetTerm(ctx, termID)
	if err != nil {
		return dto.StudentReportResponse{}, notFoundAs(err, ErrTermNotFound)
	}
	if term.SchoolID != student.SchoolID {
		return dto.StudentReportResponse{}, ErrSchoolMismatch
	}

	ownRecord := actor.hasRole(models.RoleParent, models.RoleStudent) && student.VisibleTo(actor.ID)
	if !ownRecord && !actor.isStaffOf(student.SchoolID) {
		return dto.StudentReportResponse{}, ErrForbidden
	}

	stored, err := s.assessments.List(ctx, repository.AssessmentFilter{StudentID: student.ID, TermID: term.ID})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_assessments_failed")
		return dto.StudentReportResponse{}, err
	}

	effective, err := s.systems.Effective(ctx, student.SchoolID)
	if err != nil {
		return dto.StudentReportResponse{}, err
	}

	scores := make([]grading.AssessmentScore, 0, len(stored))
	for _, assessment := range stored {
		scores = append(scores, assessment.Score())
	}
	calculated, reporting := s.calculator.Calculate(scores, effective.System)

	response := dto.StudentReportResponse{
		StudentID:     student.ID,
		StudentName:   student.Name,
		AdmissionNo:   student.AdmissionNo,
		TermID:        term.ID,
		TermName:      term.Label(),
		GradingSystem: effective.Response,
		Subjects:      make([]dto.AssessmentResponse, 0, len(stored)),
		Summary:       grading.Summarize(calculated, reporting),
		GeneratedAt:   s.now().UTC(),
	}
	for i, assessment := range stored {
		response.Subjects = append(response.Subjects, dto.NewAssessmentResponse(assessment, calculated[i], reporting))
	}

	return response, nil
}

func (s *resultService) announce(ctx context.Context, sheet sheetContext, response dto.ClassResultResponse) {
	if s.publisher == nil {
		return
	}

	event := events.ClassResultsComputed{
		SchoolID:   sheet.SchoolID(),
		ClassID:    sheet.Class.ID,
		SubjectID:  sheet.Subject.ID,
		TermID:     sheet.Term.ID,
		Students:   response.Summary.Students,
		Complete:   response.Summary.Complete,
		PassRate:   response.Summary.PassRate,
		Average:    response.Summary.Average,
		Grades:     response.Summary.Distribution,
		ComputedAt: response.GeneratedAt,
	}
	if err := s.publisher.PublishClassResults(ctx, event); err != nil {
		s.logger.Warn().Err(err).Uint("class_id", sheet.Class.ID).Msg("failed to announce class results")
	}
}

// classEntries lines up roster students with their stored entries. Entries of
// students no longer on the roster are kept after the roster.
func classEntries(sheet sheetContext, roster []models.Student, stored []models.Assessment) []models.Assessment {
	byStudent := make(map[uint]models.Assessment, len(stored))
	for _, assessment := range stored {
		byStudent[assessment.StudentID] = assessment
	}

	entries := make([]models.Assessment, 0, len(roster)+len(stored))
	listed := make(map[uint]struct{}, len(roster))
	for _, student := range roster {
		listed[student.ID] = struct{}{}
		if assessment, ok := byStudent[student.ID]; ok {
			entries = append(entries, assessment)
			continue
		}
		entries = append(entries, models.Assessment{
			SchoolID:  sheet.SchoolID(),
			ClassID:   sheet.Class.ID,
			SubjectID: sheet.Subject.ID,
			TermID:    sheet.Term.ID,
			StudentID: student.ID,
			Student:   student,
			Subject:   sheet.Subject,
		})
	}

	for _, assessment := range stored {
		if _, ok := listed[assessment.StudentID]; !ok {
			entries = append(entries, assessment)
		}
	}
	return entries
}
