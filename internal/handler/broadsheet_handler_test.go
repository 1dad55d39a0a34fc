package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-school-api/internal/dto"
	"github.com/noah-isme/gema-school-api/internal/handler"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/service"
)

type stubBroadsheetService struct {
	err       error
	exported  bool
	published bool
	lastQuery service.ClassResultQuery
	imported  []byte
}

func (s *stubBroadsheetService) Export(_ context.Context, _ service.ActivityActor, query service.ClassResultQuery) (service.BroadsheetFile, error) {
	s.exported = true
	s.lastQuery = query
	if s.err != nil {
		return service.BroadsheetFile{}, s.err
	}
	return service.BroadsheetFile{FileName: "broadsheet_jss-1a_mathematics_first-term.xlsx", Content: []byte("PK-xlsx"), Rows: 2}, nil
}

func (s *stubBroadsheetService) Publish(_ context.Context, _ service.ActivityActor, query service.ClassResultQuery) (dto.BroadsheetExportResponse, error) {
	s.published = true
	s.lastQuery = query
	if s.err != nil {
		return dto.BroadsheetExportResponse{}, s.err
	}
	return dto.BroadsheetExportResponse{FileName: "broadsheet.xlsx", URL: "https://cdn.example.com/broadsheet.xlsx", Rows: 2}, nil
}

func (s *stubBroadsheetService) Import(_ context.Context, _ service.ActivityActor, query service.ClassResultQuery, reader io.Reader) (dto.BroadsheetImportResponse, error) {
	s.lastQuery = query
	data, err := io.ReadAll(reader)
	if err != nil {
		return dto.BroadsheetImportResponse{}, err
	}
	s.imported = data
	if s.err != nil {
		return dto.BroadsheetImportResponse{}, s.err
	}
	return dto.BroadsheetImportResponse{Imported: 3, Skipped: 1, Errors: []dto.BroadsheetRowError{{Row: 4, Message: "unknown admission number"}}}, nil
}

func broadsheetApp(svc service.BroadsheetService) *fiber.App {
	return newTestApp("/api/v1/broadsheets", asActor(5, models.RoleTeacher, 1), handler.NewBroadsheetHandler(svc, nopLogger).Register)
}

func multipartBody(t *testing.T, field, name string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile(field, name)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestBroadsheetHandlerDownloadStreamsWorkbook(t *testing.T) {
	svc := &stubBroadsheetService{}
	app := broadsheetApp(svc)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/broadsheets/classes/3?subject_id=2&term_id=1&download=true", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.True(t, svc.exported)
	require.False(t, svc.published)
	require.Contains(t, resp.Header.Get("Content-Type"), "spreadsheetml")
	require.Contains(t, resp.Header.Get("Content-Disposition"), "broadsheet_jss-1a_mathematics_first-term.xlsx")

	defer resp.Body.Close()
	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, []byte("PK-xlsx"), content)
}

func TestBroadsheetHandlerPublishesByDefault(t *testing.T) {
	svc := &stubBroadsheetService{}
	app := broadsheetApp(svc)

	resp, payload := doJSON(t, app, http.MethodGet, "/api/v1/broadsheets/classes/3?subject_id=2&term_id=1", nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	require.True(t, svc.published)
	require.Equal(t, service.ClassResultQuery{ClassID: 3, SubjectID: 2, TermID: 1}, svc.lastQuery)

	var published dto.BroadsheetExportResponse
	require.NoError(t, json.Unmarshal(payload.Data, &published))
	require.Equal(t, "https://cdn.example.com/broadsheet.xlsx", published.URL)

	unavailable := broadsheetApp(&stubBroadsheetService{err: service.ErrStorageUnavailable})
	resp, _ = doJSON(t, unavailable, http.MethodGet, "/api/v1/broadsheets/classes/3?subject_id=2&term_id=1", nil)
	require.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
}

func TestBroadsheetHandlerImport(t *testing.T) {
	svc := &stubBroadsheetService{}
	app := broadsheetApp(svc)

	body, contentType := multipartBody(t, "file", "scores.xlsx", []byte("sheet-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/api/v1/broadsheets/classes/3/import?subject_id=2&term_id=1", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, []byte("sheet-bytes"), svc.imported)

	var payload struct {
		Data dto.BroadsheetImportResponse `json:"data"`
	}
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	require.Equal(t, 3, payload.Data.Imported)
	require.Equal(t, 4, payload.Data.Errors[0].Row)
}

func TestBroadsheetHandlerImportErrors(t *testing.T) {
	missing := broadsheetApp(&stubBroadsheetService{})
	resp, _ := doJSON(t, missing, http.MethodPost, "/api/v1/broadsheets/classes/3/import?subject_id=2&term_id=1", nil)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)

	cases := map[error]int{
		service.ErrImportTooLarge:    fiber.StatusRequestEntityTooLarge,
		service.ErrImportInvalidFile: fiber.StatusBadRequest,
		service.ErrForbidden:         fiber.StatusForbidden,
	}
	for serviceErr, status := range cases {
		app := broadsheetApp(&stubBroadsheetService{err: serviceErr})
		body, contentType := multipartBody(t, "file", "scores.xlsx", []byte("x"))
		req := httptest.NewRequest(http.MethodPost, "/api/v1/broadsheets/classes/3/import?subject_id=2&term_id=1", body)
		req.Header.Set("Content-Type", contentType)

		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		require.Equal(t, status, resp.StatusCode, serviceErr.Error())
	}
}
