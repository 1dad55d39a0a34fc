package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/handler"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/service"
)

type stubGradingSystemService struct {
	err           error
	lastActor     service.ActivityActor
	lastSchoolID  uint
	lastID        uint
	lastPayload   dto.GradingSystemRequest
	resolveCalled bool
}

func (s *stubGradingSystemService) Effective(context.Context, uint) (service.EffectiveSystem, error) {
	return service.EffectiveSystem{}, s.err
}

func (s *stubGradingSystemService) Create(_ context.Context, actor service.ActivityActor, payload dto.GradingSystemRequest) (dto.GradingSystemResponse, error) {
	s.lastActor = actor
	s.lastPayload = payload
	if s.err != nil {
		return dto.GradingSystemResponse{}, s.err
	}
	return dto.GradingSystemResponse{ID: 9, SchoolID: payload.SchoolID, Name: payload.Name}, nil
}

func (s *stubGradingSystemService) Update(_ context.Context, actor service.ActivityActor, id uint, payload dto.GradingSystemRequest) (dto.GradingSystemResponse, error) {
	s.lastActor = actor
	s.lastID = id
	s.lastPayload = payload
	return dto.GradingSystemResponse{ID: id, Name: payload.Name}, s.err
}

func (s *stubGradingSystemService) Get(_ context.Context, _ service.ActivityActor, id uint) (dto.GradingSystemResponse, error) {
	s.lastID = id
	return dto.GradingSystemResponse{ID: id}, s.err
}

func (s *stubGradingSystemService) List(_ context.Context, actor service.ActivityActor, schoolID uint) ([]dto.GradingSystemResponse, error) {
	s.lastActor = actor
	s.lastSchoolID = schoolID
	if s.err != nil {
		return nil, s.err
	}
	return []dto.GradingSystemResponse{dto.NewBuiltinGradingSystemResponse(schoolID)}, nil
}

func (s *stubGradingSystemService) Delete(_ context.Context, _ service.ActivityActor, id uint) error {
	s.lastID = id
	return s.err
}

func (s *stubGradingSystemService) SetDefault(_ context.Context, _ service.ActivityActor, id uint) (dto.GradingSystemResponse, error) {
	s.lastID = id
	return dto.GradingSystemResponse{ID: id, IsDefault: true}, s.err
}

func (s *stubGradingSystemService) Resolve(_ context.Context, _ service.ActivityActor, id uint, payload dto.GradeResolveRequest) (dto.GradeResolveResponse, error) {
	s.lastID = id
	s.resolveCalled = true
	if s.err != nil {
		return dto.GradeResolveResponse{}, s.err
	}
	return dto.GradeResolveResponse{Score: *payload.Score, Grade: "B", Remark: "Very Good", Passed: true}, nil
}

func gradingSystemApp(svc service.GradingSystemService, role string) *fiber.App {
	return newTestApp("/api/v1/admin/grading-systems", asActor(3, role, 1), handler.NewGradingSystemHandler(svc, nopLogger).Register)
}

func TestGradingSystemHandlerListDefaultsToActorSchool(t *testing.T) {
	svc := &stubGradingSystemService{}
	app := gradingSystemApp(svc, models.RoleTeacher)

	resp, payload := doJSON(t, app, http.MethodGet, "/api/v1/admin/grading-systems", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(1), svc.lastSchoolID)
	require.Equal(t, uint(1), svc.lastActor.SchoolID)
	require.Equal(t, models.RoleTeacher, svc.lastActor.Role)

	var systems []dto.GradingSystemResponse
	require.NoError(t, json.Unmarshal(payload.Data, &systems))
	require.Len(t, systems, 1)
	require.True(t, systems[0].Builtin)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/admin/grading-systems?school_id=4", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(4), svc.lastSchoolID)
}

func TestGradingSystemHandlerCreate(t *testing.T) {
	svc := &stubGradingSystemService{}
	app := gradingSystemApp(svc, models.RoleAdmin)

	body := dto.GradingSystemRequest{
		Name:     "WAEC",
		PassMark: floatPtr(45),
		Levels: []dto.GradingLevelRequest{
			{MinScore: floatPtr(75), MaxScore: floatPtr(100), Grade: "A1"},
		},
	}
	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/admin/grading-systems", body)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, payload.Success)
	require.Equal(t, uint(1), svc.lastPayload.SchoolID, "school defaults to the actor's")

	var created dto.GradingSystemResponse
	require.NoError(t, json.Unmarshal(payload.Data, &created))
	require.Equal(t, uint(9), created.ID)
}

func TestGradingSystemHandlerWritesRequireAdmin(t *testing.T) {
	svc := &stubGradingSystemService{}
	app := gradingSystemApp(svc, models.RoleTeacher)

	resp, _ := doJSON(t, app, http.MethodDelete, "/api/v1/admin/grading-systems/5", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Zero(t, svc.lastID)

	parentApp := gradingSystemApp(svc, models.RoleParent)
	resp, _ = doJSON(t, parentApp, http.MethodGet, "/api/v1/admin/grading-systems", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestGradingSystemHandlerResolve(t *testing.T) {
	svc := &stubGradingSystemService{}
	app := gradingSystemApp(svc, models.RoleTeacher)

	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/admin/grading-systems/builtin/resolve", map[string]float64{"score": 65})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, svc.resolveCalled)
	require.Zero(t, svc.lastID)

	var result dto.GradeResolveResponse
	require.NoError(t, json.Unmarshal(payload.Data, &result))
	require.Equal(t, "B", result.Grade)

	resp, _ = doJSON(t, app, http.MethodPost, "/api/v1/admin/grading-systems/7/resolve", map[string]float64{"score": 65})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(7), svc.lastID)
}

func TestGradingSystemHandlerErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "not_found", err: service.ErrGradingSystemNotFound, status: fiber.StatusNotFound},
		{name: "invalid", err: fmt.Errorf("%w: grading level 0 grade: must not be empty", service.ErrInvalidGradingSystem), status: fiber.StatusBadRequest},
		{name: "forbidden", err: service.ErrForbidden, status: fiber.StatusForbidden},
		{name: "generic", err: errors.New("boom"), status: fiber.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := gradingSystemApp(&stubGradingSystemService{err: tc.err}, models.RoleAdmin)
			resp, payload := doJSON(t, app, http.MethodPut, "/api/v1/admin/grading-systems/2", dto.GradingSystemRequest{Name: "X"})
			require.Equal(t, tc.status, resp.StatusCode)
			require.False(t, payload.Success)
		})
	}
}

func TestGradingSystemHandlerInvalidIdentifier(t *testing.T) {
	app := gradingSystemApp(&stubGradingSystemService{}, models.RoleAdmin)

	for _, path := range []string{"/api/v1/admin/grading-systems/abc", "/api/v1/admin/grading-systems/0"} {
		resp, _ := doJSON(t, app, http.MethodGet, path, nil)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, path)
	}
}
