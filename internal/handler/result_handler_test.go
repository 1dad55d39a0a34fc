package handler_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/grading"
	"github.com/noah-isme/gema-school-api/internal/handler"
	"github.com/noah-isme/gema-school-api/internal/middleware"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/service"
)

type stubResultService struct {
	err         error
	response    dto.ClassResultResponse
	lastQuery   service.ClassResultQuery
	lastActor   service.ActivityActor
	lastStudent uint
	lastTerm    uint
}

func (s *stubResultService) ClassResults(_ context.Context, actor service.ActivityActor, query service.ClassResultQuery) (dto.ClassResultResponse, error) {
	s.lastActor = actor
	s.lastQuery = query
	return s.response, s.err
}

func (s *stubResultService) StudentReport(_ context.Context, actor service.ActivityActor, studentID, termID uint) (dto.StudentReportResponse, error) {
	s.lastActor = actor
	s.lastStudent = studentID
	s.lastTerm = termID
	if s.err != nil {
		return dto.StudentReportResponse{}, s.err
	}
	return dto.StudentReportResponse{StudentID: studentID, TermID: termID, Subjects: []dto.AssessmentResponse{}}, nil
}

func sampleClassResults() dto.ClassResultResponse {
	results := grading.BatchCalculateAssessments([]grading.AssessmentScore{
		{CA1: floatPtr(15), CA2: floatPtr(15), CA3: floatPtr(10), Exam: floatPtr(40)},
		{IsAbsent: true},
	}, nil)
	ranks := grading.RankTotals(results)

	rows := make([]dto.ClassResultRow, 0, len(results))
	for i, result := range results {
		assessment := models.Assessment{StudentID: uint(i + 1), SubjectID: 2, TermID: 1, ClassID: 3}
		rows = append(rows, dto.ClassResultRow{
			AssessmentResponse: dto.NewAssessmentResponse(assessment, result, nil),
			AdmissionNo:        fmt.Sprintf("GFC-%03d", i+1),
			Position:           ranks[i],
			PositionTag:        grading.Ordinal(ranks[i]),
		})
	}

	return dto.ClassResultResponse{
		ClassID:       3,
		ClassName:     "JSS 1A",
		SubjectID:     2,
		SubjectName:   "Mathematics",
		TermID:        1,
		TermName:      "First Term",
		GradingSystem: dto.NewBuiltinGradingSystemResponse(1),
		Rows:          rows,
		Summary:       grading.Summarize(results, nil),
		GeneratedAt:   time.Now().UTC(),
	}
}

func resultApp(svc service.ResultService, role string) *fiber.App {
	return newTestApp("/api/v1/results", asActor(21, role, 1), handler.NewResultHandler(svc, nopLogger).Register)
}

func TestResultHandlerClassResults(t *testing.T) {
	svc := &stubResultService{response: sampleClassResults()}
	app := resultApp(svc, models.RoleTeacher)

	resp, payload := doJSON(t, app, http.MethodGet, "/api/v1/results/classes/3?subject_id=2&term_id=1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, service.ClassResultQuery{ClassID: 3, SubjectID: 2, TermID: 1}, svc.lastQuery)

	var sheet dto.ClassResultResponse
	require.NoError(t, json.Unmarshal(payload.Data, &sheet))
	require.Len(t, sheet.Rows, 2)
	require.Equal(t, "1st", sheet.Rows[0].PositionTag)

	var meta grading.Summary
	require.NoError(t, json.Unmarshal(payload.Meta, &meta))
	require.Equal(t, 1, meta.Complete)
	require.Equal(t, 1, meta.Absent)
}

func TestResultHandlerClassResultsRequiresQuery(t *testing.T) {
	app := resultApp(&stubResultService{}, models.RoleTeacher)

	for _, path := range []string{
		"/api/v1/results/classes/3?term_id=1",
		"/api/v1/results/classes/3?subject_id=2",
		"/api/v1/results/classes/0?subject_id=2&term_id=1",
		"/api/v1/results/classes/3?subject_id=two&term_id=1",
	} {
		resp, _ := doJSON(t, app, http.MethodGet, path, nil)
		require.Equal(t, fiber.StatusBadRequest, resp.StatusCode, path)
	}
}

func TestResultHandlerClassResultsStaffOnly(t *testing.T) {
	svc := &stubResultService{response: sampleClassResults()}
	app := resultApp(svc, models.RoleParent)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/results/classes/3?subject_id=2&term_id=1", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Zero(t, svc.lastQuery.ClassID)
}

func TestResultHandlerStudentReport(t *testing.T) {
	svc := &stubResultService{}
	app := resultApp(svc, models.RoleParent)

	resp, payload := doJSON(t, app, http.MethodGet, "/api/v1/results/students/4?term_id=1", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(4), svc.lastStudent)
	require.Equal(t, uint(1), svc.lastTerm)
	require.Equal(t, models.RoleParent, svc.lastActor.Role)
	require.True(t, payload.Success)

	denied := resultApp(&stubResultService{err: service.ErrForbidden}, models.RoleParent)
	resp, _ = doJSON(t, denied, http.MethodGet, "/api/v1/results/students/4?term_id=1", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/api/v1/results/students/4", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestResultHandlerWithoutRole(t *testing.T) {
	app := fiber.New()
	group := app.Group("/api/v1/results", middleware.CorrelationID())
	handler.NewResultHandler(&stubResultService{}, nopLogger).Register(group)

	resp, _ := doJSON(t, app, http.MethodGet, "/api/v1/results/students/4?term_id=1", nil)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}
