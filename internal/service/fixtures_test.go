package service

import (
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-school-api/internal/events"
	"github.com/noah-isme/gema-school-api/internal/models"
	"github.com/noah-isme/gema-school-api/internal/repository"
)

func testLogger() zerolog.Logger {
	return zerolog.New(io.Discard)
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func floatPtr(v float64) *float64 {
	return &v
}

type capturePublisher struct {
	events []events.ClassResultsComputed
}

func (c *capturePublisher) PublishClassResults(ctx context.Context, event events.ClassResultsComputed) error {
	c.events = append(c.events, event)
	return nil
}

// schoolFixture seeds one school with a class of three students and a second
// school used for isolation checks.
type schoolFixture struct {
	db          *gorm.DB
	school      models.School
	otherSchool models.School
	class       models.Class
	otherClass  models.Class
	subject     models.Subject
	english     models.Subject
	term        models.Term
	ada         models.Student
	bola        models.Student
	chidi       models.Student
	transferred models.Student

	assessments repository.AssessmentRepository
	students    repository.StudentRepository
	schools     repository.SchoolRepository
	systems     repository.GradingSystemRepository
	activity    *memoryActivityRepo

	cache     *ResultCache
	redis     *miniredis.Miniredis
	publisher *capturePublisher
}

func newSchoolFixture(t *testing.T) *schoolFixture {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))

	f := &schoolFixture{db: db}
	f.school = models.School{Name: "Greenfield College", Code: "GFC"}
	f.otherSchool = models.School{Name: "Hillside Academy", Code: "HSA"}
	require.NoError(t, db.Create(&f.school).Error)
	require.NoError(t, db.Create(&f.otherSchool).Error)

	f.class = models.Class{SchoolID: f.school.ID, Name: "JSS 1A"}
	f.otherClass = models.Class{SchoolID: f.school.ID, Name: "JSS 1B"}
	require.NoError(t, db.Create(&f.class).Error)
	require.NoError(t, db.Create(&f.otherClass).Error)

	f.subject = models.Subject{SchoolID: f.school.ID, Name: "Mathematics", Code: "MTH"}
	f.english = models.Subject{SchoolID: f.school.ID, Name: "English", Code: "ENG"}
	require.NoError(t, db.Create(&f.subject).Error)
	require.NoError(t, db.Create(&f.english).Error)

	starts := time.Date(2024, 9, 9, 0, 0, 0, 0, time.UTC)
	f.term = models.Term{SchoolID: f.school.ID, Session: "2024/2025", Name: "First Term", StartsAt: &starts, IsCurrent: true}
	require.NoError(t, db.Create(&f.term).Error)

	guardian := uint(900)
	f.ada = models.Student{SchoolID: f.school.ID, ClassID: f.class.ID, AdmissionNo: "GFC-001", Name: "Ada Obi", Status: models.StudentStatusActive, GuardianUserID: &guardian}
	f.bola = models.Student{SchoolID: f.school.ID, ClassID: f.class.ID, AdmissionNo: "GFC-002", Name: "Bola Ade", Status: models.StudentStatusActive}
	f.chidi = models.Student{SchoolID: f.school.ID, ClassID: f.class.ID, AdmissionNo: "GFC-003", Name: "Chidi Eze", Status: models.StudentStatusActive}
	f.transferred = models.Student{SchoolID: f.school.ID, ClassID: f.otherClass.ID, AdmissionNo: "GFC-004", Name: "Dayo Lawal", Status: models.StudentStatusActive}
	for _, student := range []*models.Student{&f.ada, &f.bola, &f.chidi, &f.transferred} {
		require.NoError(t, db.Create(student).Error)
	}

	f.assessments = repository.NewAssessmentRepository(db)
	f.students = repository.NewStudentRepository(db)
	f.schools = repository.NewSchoolRepository(db)
	f.systems = repository.NewGradingSystemRepository(db)
	f.activity = &memoryActivityRepo{}

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	f.redis = mr
	f.cache = NewResultCache(client, time.Minute, testLogger())
	f.publisher = &capturePublisher{}

	return f
}

func (f *schoolFixture) teacher() ActivityActor {
	return ActivityActor{ID: 50, Role: models.RoleTeacher, SchoolID: f.school.ID}
}

func (f *schoolFixture) admin() ActivityActor {
	return ActivityActor{ID: 10, Role: models.RoleAdmin, SchoolID: f.school.ID}
}

func (f *schoolFixture) activityService() ActivityService {
	return NewActivityService(f.activity, testLogger())
}

func (f *schoolFixture) gradingSystems() GradingSystemService {
	return NewGradingSystemService(f.systems, testValidator(), f.activityService(), f.cache, testLogger())
}

func (f *schoolFixture) assessmentService(calculator Calculator) AssessmentService {
	return NewAssessmentService(f.assessments, f.students, f.schools, f.gradingSystems(), testValidator(), f.activityService(), f.cache, calculator, DefaultScoreLimits(), testLogger())
}

func (f *schoolFixture) resultService(calculator Calculator) ResultService {
	return NewResultService(f.assessments, f.students, f.schools, f.gradingSystems(), f.cache, f.publisher, calculator, testLogger())
}

func (f *schoolFixture) sheetQuery() ClassResultQuery {
	return ClassResultQuery{ClassID: f.class.ID, SubjectID: f.subject.ID, TermID: f.term.ID}
}

func (f *schoolFixture) seedCustomDefault(t *testing.T) models.GradingSystem {
	t.Helper()
	system := models.GradingSystem{
		SchoolID:  f.school.ID,
		Name:      "WAEC Scale",
		PassMark:  45,
		IsDefault: true,
		Levels: []models.GradingLevel{
			{Position: 0, MinScore: 75, MaxScore: 100, Grade: "A1", Remark: "Excellent"},
			{Position: 1, MinScore: 45, MaxScore: 74.99, Grade: "C4", Remark: "Credit"},
			{Position: 2, MinScore: 0, MaxScore: 44.99, Grade: "F9", Remark: "Fail"},
		},
	}
	require.NoError(t, f.systems.Create(context.Background(), &system))
	return system
}
