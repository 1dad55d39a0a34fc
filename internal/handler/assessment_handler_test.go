package handler_test

import (
	"context"
	"encoding/json"
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

type stubAssessmentService struct {
	err        error
	lastActor  service.ActivityActor
	lastRecord dto.AssessmentScoreRequest
	lastSheet  dto.AssessmentSheetRequest
	deletedID  uint
}

func (s *stubAssessmentService) Record(_ context.Context, actor service.ActivityActor, payload dto.AssessmentScoreRequest) (dto.AssessmentResponse, error) {
	s.lastActor = actor
	s.lastRecord = payload
	if s.err != nil {
		return dto.AssessmentResponse{}, s.err
	}
	total := 80.0
	grade := "A"
	return dto.AssessmentResponse{ID: 1, StudentID: payload.StudentID, Total: &total, Grade: &grade, IsComplete: true}, nil
}

func (s *stubAssessmentService) RecordSheet(_ context.Context, actor service.ActivityActor, payload dto.AssessmentSheetRequest) (dto.AssessmentSheetResponse, error) {
	s.lastActor = actor
	s.lastSheet = payload
	if s.err != nil {
		return dto.AssessmentSheetResponse{}, s.err
	}
	return dto.AssessmentSheetResponse{Saved: len(payload.Entries), Items: []dto.AssessmentResponse{}}, nil
}

func (s *stubAssessmentService) Delete(_ context.Context, _ service.ActivityActor, id uint) error {
	s.deletedID = id
	return s.err
}

func assessmentApp(svc service.AssessmentService) *fiber.App {
	return newTestApp("/api/v1/assessments", asActor(11, models.RoleTeacher, 1), handler.NewAssessmentHandler(svc, nopLogger).Register)
}

func TestAssessmentHandlerRecord(t *testing.T) {
	svc := &stubAssessmentService{}
	app := assessmentApp(svc)

	body := dto.AssessmentScoreRequest{
		StudentID: 4, SubjectID: 2, TermID: 1, ClassID: 3,
		CA1: floatPtr(15), CA2: floatPtr(15), CA3: floatPtr(10), Exam: floatPtr(40),
	}
	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/assessments", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(11), svc.lastActor.ID)
	require.Equal(t, uint(1), svc.lastActor.SchoolID)
	require.Equal(t, 40.0, *svc.lastRecord.Exam)

	var recorded dto.AssessmentResponse
	require.NoError(t, json.Unmarshal(payload.Data, &recorded))
	require.Equal(t, "A", *recorded.Grade)
}

func TestAssessmentHandlerRecordSheet(t *testing.T) {
	svc := &stubAssessmentService{}
	app := assessmentApp(svc)

	body := dto.AssessmentSheetRequest{
		SubjectID: 2, TermID: 1, ClassID: 3,
		Entries: []dto.AssessmentSheetEntry{
			{StudentID: 4, IsAbsent: true},
			{StudentID: 5, CA1: floatPtr(10)},
		},
	}
	resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/assessments/sheet", body)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Len(t, svc.lastSheet.Entries, 2)
	require.True(t, svc.lastSheet.Entries[0].IsAbsent)

	var sheet dto.AssessmentSheetResponse
	require.NoError(t, json.Unmarshal(payload.Data, &sheet))
	require.Equal(t, 2, sheet.Saved)
}

func TestAssessmentHandlerErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "out_of_range", err: fmt.Errorf("%w: exam must be between 0 and 40", service.ErrScoreOutOfRange), status: fiber.StatusBadRequest},
		{name: "not_in_class", err: service.ErrStudentNotInClass, status: fiber.StatusUnprocessableEntity},
		{name: "school_mismatch", err: service.ErrSchoolMismatch, status: fiber.StatusUnprocessableEntity},
		{name: "class_missing", err: service.ErrClassNotFound, status: fiber.StatusNotFound},
		{name: "forbidden", err: service.ErrForbidden, status: fiber.StatusForbidden},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			app := assessmentApp(&stubAssessmentService{err: tc.err})
			resp, payload := doJSON(t, app, http.MethodPost, "/api/v1/assessments", dto.AssessmentScoreRequest{StudentID: 1})
			require.Equal(t, tc.status, resp.StatusCode)
			require.NotEmpty(t, payload.Message)
		})
	}
}

func TestAssessmentHandlerDelete(t *testing.T) {
	svc := &stubAssessmentService{}
	app := assessmentApp(svc)

	resp, _ := doJSON(t, app, http.MethodDelete, "/api/v1/assessments/12", nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(12), svc.deletedID)

	missing := assessmentApp(&stubAssessmentService{err: service.ErrAssessmentNotFound})
	resp, _ = doJSON(t, missing, http.MethodDelete, "/api/v1/assessments/12", nil)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodDelete, "/api/v1/assessments/x", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestAssessmentHandlerRejectsMalformedBody(t *testing.T) {
	app := assessmentApp(&stubAssessmentService{})

	req := newRawRequest(http.MethodPost, "/api/v1/assessments", "{not json", fiber.MIMEApplicationJSON)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}
