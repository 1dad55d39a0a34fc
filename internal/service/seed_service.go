package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/repository"
)

var (
	// ErrSeedDisabled indicates the seeding tools are disabled by configuration.
	ErrSeedDisabled = errors.New("seeding is disabled")
	// ErrSeedUnauthorized indicates the provided token is invalid.
	ErrSeedUnauthorized = errors.New("invalid seed token")
)

// SeedService loads school rosters for onboarding and demos.
type SeedService interface {
	SeedRoster(ctx context.Context, token string, payload dto.RosterSeedRequest) (dto.RosterSeedResponse, error)
}

type seedService struct {
	roster    repository.RosterRepository
	validator *validator.Validate
	cache     *ResultCache
	sanitizer *bluemonday.Policy
	enabled   bool
	token     string
	logger    zerolog.Logger
}

// NewSeedService constructs a seeding service.
func NewSeedService(roster repository.RosterRepository, validator *validator.Validate, cache *ResultCache, enabled bool, token string, logger zerolog.Logger) SeedService {
	return &seedService{
		roster:    roster,
		validator: validator,
		cache:     cache,
		sanitizer: bluemonday.StrictPolicy(),
		enabled:   enabled,
		token:     token,
		logger:    logger.With().Str("component", "seed_service").Logger(),
	}
}

func (s *seedService) SeedRoster(ctx context.Context, token string, payload dto.RosterSeedRequest) (dto.RosterSeedResponse, error) {
	if !s.enabled {
		return dto.RosterSeedResponse{}, ErrSeedDisabled
	}
	if !s.validateToken(token) {
		return dto.RosterSeedResponse{}, ErrSeedUnauthorized
	}
	if err := s.validator.Struct(payload); err != nil {
		return dto.RosterSeedResponse{}, err
	}

	school, counts, err := s.roster.Seed(ctx, s.buildRoster(payload))
	if err != nil {
		return dto.RosterSeedResponse{}, err
	}

	// Class membership may have changed under cached sheets.
	s.cache.InvalidateSchool(ctx, school.ID)

	s.logger.Info().
		Uint("school_id", school.ID).
		Int("classes", counts.Classes).
		Int("students", counts.Students).
		Msg("roster seeded")

	return dto.RosterSeedResponse{
		SchoolID: school.ID,
		Terms:    counts.Terms,
		Subjects: counts.Subjects,
		Classes:  counts.Classes,
		Students: counts.Students,
	}, nil
}

func (s *seedService) buildRoster(payload dto.RosterSeedRequest) repository.Roster {
	roster := repository.Roster{
		School: models.School{
			Name: s.clean(payload.School.Name),
			Code: strings.ToUpper(strings.TrimSpace(payload.School.Code)),
		},
	}

	for _, term := range payload.Terms {
		roster.Terms = append(roster.Terms, models.Term{
			Session:   strings.TrimSpace(term.Session),
			Name:      s.clean(term.Name),
			IsCurrent: term.IsCurrent,
		})
	}
	for _, subject := range payload.Subjects {
		roster.Subjects = append(roster.Subjects, models.Subject{
			Name: s.clean(subject.Name),
			Code: strings.ToUpper(strings.TrimSpace(subject.Code)),
		})
	}
	for _, class := range payload.Classes {
		entry := repository.RosterClass{Class: models.Class{Name: s.clean(class.Name), TeacherID: class.TeacherID}}
		for _, student := range class.Students {
			entry.Students = append(entry.Students, models.Student{
				AdmissionNo:    strings.TrimSpace(student.AdmissionNo),
				Name:           s.clean(student.Name),
				Status:         models.StudentStatusActive,
				UserID:         student.UserID,
				GuardianUserID: student.GuardianUserID,
			})
		}
		roster.Classes = append(roster.Classes, entry)
	}

	return roster
}

func (s *seedService) clean(value string) string {
	return strings.TrimSpace(s.sanitizer.Sanitize(value))
}

func (s *seedService) validateToken(token string) bool {
	expected := strings.TrimSpace(s.token)
	if expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(strings.TrimSpace(token))) == 1
}
