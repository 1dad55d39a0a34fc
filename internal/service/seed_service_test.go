package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/repository"
)

type recordingRosterRepo struct {
	roster repository.Roster
	calls  int
}

func (r *recordingRosterRepo) Seed(_ context.Context, roster repository.Roster) (models.School, repository.RosterCounts, error) {
	r.calls++
	r.roster = roster
	school := roster.School
	school.ID = 1
	students := 0
	for _, class := range roster.Classes {
		students += len(class.Students)
	}
	return school, repository.RosterCounts{
		Terms:    len(roster.Terms),
		Subjects: len(roster.Subjects),
		Classes:  len(roster.Classes),
		Students: students,
	}, nil
}

func rosterRequest() dto.RosterSeedRequest {
	return dto.RosterSeedRequest{
		School:   dto.RosterSchool{Name: "Greenfield <b>College</b>", Code: " gfc "},
		Terms:    []dto.RosterTerm{{Session: "2024/2025", Name: "First Term", IsCurrent: true}},
		Subjects: []dto.RosterSubject{{Name: "Mathematics", Code: "mth"}},
		Classes: []dto.RosterClass{{
			Name:     "JSS 1A",
			Students: []dto.RosterStudent{{AdmissionNo: " GFC-001 ", Name: "Ada Obi"}},
		}},
	}
}

func TestSeedServiceTokenGuard(t *testing.T) {
	repo := &recordingRosterRepo{}
	svc := NewSeedService(repo, testValidator(), NewResultCache(nil, 0, testLogger()), true, "secret", testLogger())

	_, err := svc.SeedRoster(context.Background(), "wrong", rosterRequest())
	require.ErrorIs(t, err, ErrSeedUnauthorized)

	disabled := NewSeedService(repo, testValidator(), nil, false, "secret", testLogger())
	_, err = disabled.SeedRoster(context.Background(), "secret", rosterRequest())
	require.ErrorIs(t, err, ErrSeedDisabled)

	noToken := NewSeedService(repo, testValidator(), nil, true, "", testLogger())
	_, err = noToken.SeedRoster(context.Background(), "", rosterRequest())
	require.ErrorIs(t, err, ErrSeedUnauthorized)
	require.Zero(t, repo.calls)
}

func TestSeedServiceNormalizesRoster(t *testing.T) {
	repo := &recordingRosterRepo{}
	svc := NewSeedService(repo, testValidator(), nil, true, "secret", testLogger())

	response, err := svc.SeedRoster(context.Background(), " secret ", rosterRequest())
	require.NoError(t, err)
	require.Equal(t, dto.RosterSeedResponse{SchoolID: 1, Terms: 1, Subjects: 1, Classes: 1, Students: 1}, response)

	require.Equal(t, "GFC", repo.roster.School.Code)
	require.Equal(t, "Greenfield College", repo.roster.School.Name)
	require.Equal(t, "MTH", repo.roster.Subjects[0].Code)
	require.Equal(t, "GFC-001", repo.roster.Classes[0].Students[0].AdmissionNo)
	require.Equal(t, models.StudentStatusActive, repo.roster.Classes[0].Students[0].Status)
}

func TestSeedServiceValidatesPayload(t *testing.T) {
	repo := &recordingRosterRepo{}
	svc := NewSeedService(repo, testValidator(), nil, true, "secret", testLogger())

	payload := rosterRequest()
	payload.Classes[0].Students[0].AdmissionNo = ""
	_, err := svc.SeedRoster(context.Background(), "secret", payload)
	require.Error(t, err)
	require.Zero(t, repo.calls)
}

func TestSeedServiceWritesThroughRepository(t *testing.T) {
	f := newSchoolFixture(t)
	svc := NewSeedService(repository.NewRosterRepository(f.db), testValidator(), f.cache, true, "secret", testLogger())

	payload := rosterRequest()
	payload.School = dto.RosterSchool{Name: f.school.Name, Code: f.school.Code}
	payload.Classes[0].Name = f.class.Name
	payload.Classes[0].Students = append(payload.Classes[0].Students, dto.RosterStudent{AdmissionNo: "GFC-010", Name: "Efe Nwosu"})

	response, err := svc.SeedRoster(context.Background(), "secret", payload)
	require.NoError(t, err)
	require.Equal(t, f.school.ID, response.SchoolID)

	roster, err := f.students.ListByClass(context.Background(), f.class.ID)
	require.NoError(t, err)
	names := make([]string, 0, len(roster))
	for _, student := range roster {
		names = append(names, student.Name)
	}
	require.Contains(t, names, "Efe Nwosu")
}
