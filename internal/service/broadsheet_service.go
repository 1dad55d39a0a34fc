package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
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
	// ErrImportInvalidFile indicates the uploaded spreadsheet could not be read.
	ErrImportInvalidFile = errors.New("invalid broadsheet file")
	// ErrImportTooLarge indicates the uploaded spreadsheet exceeds the size limit.
	ErrImportTooLarge = errors.New("broadsheet file exceeds maximum allowed size")
	// ErrStorageUnavailable indicates no file storage is configured for exports.
	ErrStorageUnavailable = errors.New("file storage is not configured")
)

const (
	xlsxMime       = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	resultsSheet   = "Results"
	summarySheet   = "Summary"
	admissionField = "admission_no"
)

var broadsheetHeaders = []interface{}{
	"Position", "Admission No", "Student", "CA1", "CA2", "CA3", "Total CA", "Exam", "Total", "Grade", "Remark", "Absent", "Exempt",
}

// FileStorage abstracts upload destinations.
type FileStorage interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// BroadsheetFile is a rendered spreadsheet of one school's class.
type BroadsheetFile struct {
	SchoolID uint
	FileName string
	Content  []byte
	Rows     int
}

// BroadsheetService renders class results to XLSX and imports score sheets
// from XLSX.
type BroadsheetService interface {
	Export(ctx context.Context, actor ActivityActor, query ClassResultQuery) (BroadsheetFile, error)
	Publish(ctx context.Context, actor ActivityActor, query ClassResultQuery) (dto.BroadsheetExportResponse, error)
	Import(ctx context.Context, actor ActivityActor, query ClassResultQuery, reader io.Reader) (dto.BroadsheetImportResponse, error)
}

type broadsheetService struct {
	results     ResultService
	assessments AssessmentService
	students    repository.StudentRepository
	schools     repository.SchoolRepository
	storage     FileStorage
	activity    ActivityRecorder
	limits      ScoreLimits
	maxSize     int64
	tracer      trace.Tracer
	logger      zerolog.Logger
}

// NewBroadsheetService constructs the broadsheet service. storage may be nil,
// in which case only direct downloads are available.
func NewBroadsheetService(
	results ResultService,
	assessments AssessmentService,
	students repository.StudentRepository,
	schools repository.SchoolRepository,
	storage FileStorage,
	activity ActivityRecorder,
	limits ScoreLimits,
	maxSizeMB int,
	logger zerolog.Logger,
) BroadsheetService {
	if maxSizeMB <= 0 {
		maxSizeMB = 5
	}
	return &broadsheetService{
		results:     results,
		assessments: assessments,
		students:    students,
		schools:     schools,
		storage:     storage,
		activity:    activity,
		limits:      limits,
		maxSize:     int64(maxSizeMB) * 1024 * 1024,
		tracer:      otel.Tracer("github.com/noah-isme/gema-school-api/internal/service/broadsheet"),
		logger:      logger.With().Str("component", "broadsheet_service").Logger(),
	}
}

func (s *broadsheetService) Export(ctx context.Context, actor ActivityActor, query ClassResultQuery) (BroadsheetFile, error) {
	ctx, span := s.tracer.Start(ctx, "broadsheet.export")
	span.SetAttributes(attribute.Int64("broadsheet.class_id", int64(query.ClassID)))
	defer span.End()

	sheet, err := s.results.ClassResults(ctx, actor, query)
	if err != nil {
		span.RecordError(err)
		return BroadsheetFile{}, err
	}

	content, err := renderBroadsheet(sheet)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "render_failed")
		return BroadsheetFile{}, err
	}

	return BroadsheetFile{
		SchoolID: sheet.SchoolID,
		FileName: broadsheetFileName(sheet),
		Content:  content,
		Rows:     len(sheet.Rows),
	}, nil
}

func (s *broadsheetService) Publish(ctx context.Context, actor ActivityActor, query ClassResultQuery) (dto.BroadsheetExportResponse, error) {
	if s.storage == nil {
		return dto.BroadsheetExportResponse{}, ErrStorageUnavailable
	}

	file, err := s.Export(ctx, actor, query)
	if err != nil {
		return dto.BroadsheetExportResponse{}, err
	}

	url, err := s.storage.Upload(ctx, file.FileName, bytes.NewReader(file.Content))
	if err != nil {
		s.logger.Error().Err(err).Str("file", file.FileName).Msg("failed to upload broadsheet")
		return dto.BroadsheetExportResponse{}, err
	}

	classID := query.ClassID
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		SchoolID:   file.SchoolID,
		TermID:     query.TermID,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Action:     models.ActionBroadsheetExported,
		EntityType: models.EntityTypeClass,
		EntityID:   &classID,
		Metadata: map[string]interface{}{
			"subject_id": query.SubjectID,
			"rows":       file.Rows,
			"url":        url,
		},
	})

	return dto.BroadsheetExportResponse{FileName: file.FileName, URL: url, Rows: file.Rows}, nil
}

// Import reads the first worksheet, maps each row to a student by admission
// number and records the valid rows as one score sheet. Rows that cannot be
// used are reported and skipped.
func (s *broadsheetService) Import(ctx context.Context, actor ActivityActor, query ClassResultQuery, reader io.Reader) (dto.BroadsheetImportResponse, error) {
	ctx, span := s.tracer.Start(ctx, "broadsheet.import")
	span.SetAttributes(attribute.Int64("broadsheet.class_id", int64(query.ClassID)))
	defer span.End()

	sheet, err := loadSheetContext(ctx, s.schools, query.ClassID, query.SubjectID, query.TermID)
	if err != nil {
		return dto.BroadsheetImportResponse{}, err
	}
	if !actor.isStaffOf(sheet.SchoolID()) {
		return dto.BroadsheetImportResponse{}, ErrForbidden
	}

	data, err := io.ReadAll(io.LimitReader(reader, s.maxSize+1))
	if err != nil {
		return dto.BroadsheetImportResponse{}, err
	}
	if int64(len(data)) > s.maxSize {
		return dto.BroadsheetImportResponse{}, ErrImportTooLarge
	}

	detected := mimetype.Detect(data)
	span.SetAttributes(attribute.String("broadsheet.detected_mime", detected.String()))
	if !detected.Is(xlsxMime) && !detected.Is("application/zip") {
		return dto.BroadsheetImportResponse{}, fmt.Errorf("%w: unsupported type %s", ErrImportInvalidFile, detected.String())
	}

	rows, err := readFirstSheet(data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read_failed")
		return dto.BroadsheetImportResponse{}, err
	}

	columns := headerColumns(rows[0])
	if _, ok := columns[admissionField]; !ok {
		return dto.BroadsheetImportResponse{}, fmt.Errorf("%w: missing %q column", ErrImportInvalidFile, "Admission No")
	}

	response := dto.BroadsheetImportResponse{Errors: []dto.BroadsheetRowError{}}
	entries := make([]dto.AssessmentSheetEntry, 0, len(rows)-1)
	for i, row := range rows[1:] {
		rowNumber := i + 2
		if rowIsBlank(row) {
			continue
		}

		entry, err := s.parseRow(ctx, sheet, columns, row)
		if err != nil {
			response.Skipped++
			response.Errors = append(response.Errors, dto.BroadsheetRowError{Row: rowNumber, Message: err.Error()})
			continue
		}
		entries = append(entries, entry)
	}

	if len(entries) == 0 {
		return response, nil
	}

	saved, err := s.assessments.RecordSheet(ctx, actor, dto.AssessmentSheetRequest{
		ClassID:   sheet.Class.ID,
		SubjectID: sheet.Subject.ID,
		TermID:    sheet.Term.ID,
		Entries:   entries,
	})
	if err != nil {
		span.RecordError(err)
		return dto.BroadsheetImportResponse{}, err
	}
	response.Imported = saved.Saved

	s.logger.Info().
		Uint("class_id", sheet.Class.ID).
		Int("imported", response.Imported).
		Int("skipped", response.Skipped).
		Msg("broadsheet imported")
	return response, nil
}

func (s *broadsheetService) parseRow(ctx context.Context, sheet sheetContext, columns map[string]int, row []string) (dto.AssessmentSheetEntry, error) {
	admissionNo := cellAt(row, columns, admissionField)
	if admissionNo == "" {
		return dto.AssessmentSheetEntry{}, errors.New("admission number is empty")
	}

	student, err := s.students.FindByAdmissionNo(ctx, sheet.SchoolID(), admissionNo)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssessmentSheetEntry{}, fmt.Errorf("unknown admission number %s", admissionNo)
		}
		return dto.AssessmentSheetEntry{}, err
	}
	if student.ClassID != sheet.Class.ID {
		return dto.AssessmentSheetEntry{}, fmt.Errorf("student %s is not in %s", admissionNo, sheet.Class.Name)
	}

	entry := dto.AssessmentSheetEntry{
		StudentID: student.ID,
		IsAbsent:  parseFlag(cellAt(row, columns, "absent")),
		IsExempt:  parseFlag(cellAt(row, columns, "exempt")),
	}
	targets := []struct {
		field string
		dest  **float64
	}{
		{field: "ca1", dest: &entry.CA1},
		{field: "ca2", dest: &entry.CA2},
		{field: "ca3", dest: &entry.CA3},
		{field: "exam", dest: &entry.Exam},
	}
	for _, target := range targets {
		value, err := parseScoreCell(cellAt(row, columns, target.field))
		if err != nil {
			return dto.AssessmentSheetEntry{}, fmt.Errorf("%s: %w", target.field, err)
		}
		*target.dest = value
	}

	// Checked per row so an out-of-range row is reported and skipped instead
	// of failing the whole sheet in RecordSheet.
	score := grading.AssessmentScore{CA1: entry.CA1, CA2: entry.CA2, CA3: entry.CA3, Exam: entry.Exam}
	if err := s.limits.Check(score); err != nil {
		return dto.AssessmentSheetEntry{}, err
	}
	return entry, nil
}

func renderBroadsheet(sheet dto.ClassResultResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", resultsSheet); err != nil {
		return nil, fmt.Errorf("failed to name results sheet: %w", err)
	}
	if err := f.SetSheetRow(resultsSheet, "A1", &broadsheetHeaders); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		values := []interface{}{
			positionCell(row.Position),
			row.AdmissionNo,
			row.StudentName,
			scoreCell(row.CA1),
			scoreCell(row.CA2),
			scoreCell(row.CA3),
			scoreCell(row.TotalCA),
			scoreCell(row.Exam),
			scoreCell(row.Total),
			grading.FormatGrade(row.Grade),
			row.Remark,
			flagCell(row.IsAbsent),
			flagCell(row.IsExempt),
		}
		if err := f.SetSheetRow(resultsSheet, cell, &values); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	summary := sheet.Summary
	lines := [][]interface{}{
		{"Class", sheet.ClassName},
		{"Subject", sheet.SubjectName},
		{"Term", sheet.TermName},
		{"Grading System", sheet.GradingSystem.Name},
		{"Students", summary.Students},
		{"Complete", summary.Complete},
		{"Absent", summary.Absent},
		{"Exempt", summary.Exempt},
		{"Pending", summary.Pending},
		{"Passed", summary.Passed},
		{"Pass Rate", grading.FormatScore(&summary.PassRate)},
		{"Average", grading.FormatScore(&summary.Average)},
		{"Highest", summary.Highest},
		{"Lowest", summary.Lowest},
	}
	grades := make([]string, 0, len(summary.Distribution))
	for grade := range summary.Distribution {
		grades = append(grades, grade)
	}
	sort.Strings(grades)
	for _, grade := range grades {
		lines = append(lines, []interface{}{"Grade " + grade, summary.Distribution[grade]})
	}
	for i := range lines {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(summarySheet, cell, &lines[i]); err != nil {
			return nil, fmt.Errorf("failed to write summary: %w", err)
		}
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write broadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

func readFirstSheet(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportInvalidFile, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("%w: workbook has no sheets", ErrImportInvalidFile)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrImportInvalidFile, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%w: a header row and at least one data row are required", ErrImportInvalidFile)
	}
	return rows, nil
}

func headerColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		key := strings.ToLower(strings.TrimSpace(name))
		key = strings.NewReplacer(" ", "_", "-", "_", ".", "").Replace(key)
		if key == "admission_number" || key == "adm_no" {
			key = admissionField
		}
		if _, exists := columns[key]; !exists {
			columns[key] = i
		}
	}
	return columns
}

func cellAt(row []string, columns map[string]int, field string) string {
	idx, ok := columns[field]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

func rowIsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func parseScoreCell(value string) (*float64, error) {
	if value == "" || value == "-" {
		return nil, nil
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return nil, fmt.Errorf("%q is not a number", value)
	}
	return &parsed, nil
}

func parseFlag(value string) bool {
	switch strings.ToLower(value) {
	case "yes", "y", "true", "1", "x":
		return true
	default:
		return false
	}
}

func scoreCell(score *float64) interface{} {
	if score == nil {
		return ""
	}
	return *score
}

func positionCell(position int) interface{} {
	if position <= 0 {
		return ""
	}
	return grading.Ordinal(position)
}

func flagCell(flag bool) string {
	if flag {
		return "Yes"
	}
	return ""
}

func broadsheetFileName(sheet dto.ClassResultResponse) string {
	parts := []string{"broadsheet", sheet.ClassName, sheet.SubjectName, sheet.TermName}
	for i, part := range parts {
		parts[i] = slug(part)
	}
	return strings.Join(parts, "_") + ".xlsx"
}

func slug(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	value = strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			return r
		}
		return '-'
	}, value)
	for strings.Contains(value, "--") {
		value = strings.ReplaceAll(value, "--", "-")
	}
	value = strings.Trim(value, "-")
	if value == "" {
		return "x"
	}
	return value
}
