package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/grading"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/repository"
)

// AnalyticsService aggregates term-wide result statistics for administrators.
type AnalyticsService interface {
	TermAnalytics(ctx context.Context, actor ActivityActor, termID uint) (dto.TermAnalyticsResponse, error)
}

type analyticsService struct {
	assessments repository.AssessmentRepository
	schools     repository.SchoolRepository
	systems     GradingSystemResolver
	cache       *ResultCache
	calculator  Calculator
	logger      zerolog.Logger
	now         func() time.Time
}

// NewAnalyticsService constructs the analytics service.
func NewAnalyticsService(assessments repository.AssessmentRepository, schools repository.SchoolRepository, systems GradingSystemResolver, cache *ResultCache, calculator Calculator, logger zerolog.Logger) AnalyticsService {
	return &analyticsService{
		assessments: assessments,
		schools:     schools,
		systems:     systems,
		cache:       cache,
		calculator:  calculator,
		logger:      logger.With().Str("component", "analytics_service").Logger(),
		now:         time.Now,
	}
}

func (s *analyticsService) TermAnalytics(ctx context.Context, actor ActivityActor, termID uint) (dto.TermAnalyticsResponse, error) {
	tracer := otel.Tracer("github.com/noah-isme/gema-school-api/internal/service/analytics")
	ctx, span := tracer.Start(ctx, "analytics.term")
	span.SetAttributes(attribute.Int64("analytics.term_id", int64(termID)))
	defer span.End()

	term, err := s.schools.GetTerm(ctx, termID)
	if err != nil {
		return dto.TermAnalyticsResponse{}, notFoundAs(err, ErrTermNotFound)
	}
	if !actor.canAdminister(term.SchoolID) {
		return dto.TermAnalyticsResponse{}, ErrForbidden
	}

	cacheKey := termAnalyticsKey(term.SchoolID, term.ID)
	var cached dto.TermAnalyticsResponse
	if s.cache.Get(ctx, cacheKey, &cached) {
		cached.CacheHit = true
		span.SetAttributes(attribute.Bool("analytics.cache_hit", true))
		return cached, nil
	}

	stored, err := s.assessments.List(ctx, repository.AssessmentFilter{SchoolID: term.SchoolID, TermID: term.ID})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_assessments_failed")
		return dto.TermAnalyticsResponse{}, err
	}

	effective, err := s.systems.Effective(ctx, term.SchoolID)
	if err != nil {
		return dto.TermAnalyticsResponse{}, err
	}

	response := s.buildAnalytics(term, stored, effective.System)
	s.cache.Set(ctx, cacheKey, response)

	s.logger.Debug().
		Uint("term_id", term.ID).
		Int("subjects", len(response.Subjects)).
		Msg("term analytics computed")
	return response, nil
}

func (s *analyticsService) buildAnalytics(term models.Term, stored []models.Assessment, system *grading.GradingSystem) dto.TermAnalyticsResponse {
	scores := make([]grading.AssessmentScore, 0, len(stored))
	for _, assessment := range stored {
		scores = append(scores, assessment.Score())
	}
	calculated, reporting := s.calculator.Calculate(scores, system)

	type bucket struct {
		subject models.Subject
		results []grading.CalculatedAssessment
	}
	buckets := map[uint]*bucket{}
	for i, assessment := range stored {
		b, ok := buckets[assessment.SubjectID]
		if !ok {
			b = &bucket{subject: assessment.Subject}
			buckets[assessment.SubjectID] = b
		}
		b.results = append(b.results, calculated[i])
	}

	subjects := make([]dto.SubjectAnalytics, 0, len(buckets))
	for subjectID, b := range buckets {
		subjects = append(subjects, dto.SubjectAnalytics{
			SubjectID:   subjectID,
			SubjectName: b.subject.Name,
			Summary:     grading.Summarize(b.results, reporting),
		})
	}
	sort.Slice(subjects, func(i, j int) bool {
		left := strings.ToLower(subjects[i].SubjectName)
		right := strings.ToLower(subjects[j].SubjectName)
		if left != right {
			return left < right
		}
		return subjects[i].SubjectID < subjects[j].SubjectID
	})

	return dto.TermAnalyticsResponse{
		SchoolID:    term.SchoolID,
		TermID:      term.ID,
		TermName:    term.Label(),
		Overall:     grading.Summarize(calculated, reporting),
		Subjects:    subjects,
		GeneratedAt: s.now().UTC(),
	}
}
