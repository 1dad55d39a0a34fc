package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-school-api/internal/models"
)

// RosterClass pairs a class with the students enrolled in it.
type RosterClass struct {
	Class    models.Class
	Students []models.Student
}

// Roster is a school's academic structure loaded in one pass.
type Roster struct {
	School   models.School
	Terms    []models.Term
	Subjects []models.Subject
	Classes  []RosterClass
}

// RosterCounts reports how many records of each kind were written.
type RosterCounts struct {
	Terms    int
	Subjects int
	Classes  int
	Students int
}

// RosterRepository seeds schools with their classes, subjects, terms and students.
type RosterRepository interface {
	Seed(ctx context.Context, roster Roster) (models.School, RosterCounts, error)
}

type rosterRepository struct {
	db *gorm.DB
}

// NewRosterRepository constructs the roster repository.
func NewRosterRepository(db *gorm.DB) RosterRepository {
	return &rosterRepository{db: db}
}

// Seed matches existing rows on their natural keys (school code, term
// session and name, subject name, class name, admission number) and updates
// them in place, so running the same roster twice is harmless.
func (r *rosterRepository) Seed(ctx context.Context, roster Roster) (models.School, RosterCounts, error) {
	var (
		school models.School
		counts RosterCounts
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		school = roster.School
		if err := tx.Where(models.School{Code: school.Code}).
			Assign(models.School{Name: school.Name}).
			FirstOrCreate(&school).Error; err != nil {
			return err
		}

		for _, term := range roster.Terms {
			record := models.Term{}
			if err := tx.Where(models.Term{SchoolID: school.ID, Session: term.Session, Name: term.Name}).
				Assign(map[string]interface{}{"is_current": term.IsCurrent}).
				FirstOrCreate(&record).Error; err != nil {
				return err
			}
			if term.IsCurrent {
				if err := tx.Model(&models.Term{}).
					Where("school_id = ? AND id <> ?", school.ID, record.ID).
					Update("is_current", false).Error; err != nil {
					return err
				}
			}
			counts.Terms++
		}

		for _, subject := range roster.Subjects {
			record := models.Subject{}
			if err := tx.Where(models.Subject{SchoolID: school.ID, Name: subject.Name}).
				Assign(map[string]interface{}{"code": subject.Code}).
				FirstOrCreate(&record).Error; err != nil {
				return err
			}
			counts.Subjects++
		}

		for _, entry := range roster.Classes {
			class := models.Class{}
			if err := tx.Where(models.Class{SchoolID: school.ID, Name: entry.Class.Name}).
				Assign(map[string]interface{}{"teacher_id": entry.Class.TeacherID}).
				FirstOrCreate(&class).Error; err != nil {
				return err
			}
			counts.Classes++

			if len(entry.Students) == 0 {
				continue
			}

			students := make([]models.Student, 0, len(entry.Students))
			for _, student := range entry.Students {
				student.SchoolID = school.ID
				student.ClassID = class.ID
				if student.Status == "" {
					student.Status = models.StudentStatusActive
				}
				students = append(students, student)
			}

			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "school_id"}, {Name: "admission_no"}},
				DoUpdates: clause.AssignmentColumns([]string{"name", "class_id", "status", "user_id", "guardian_user_id", "updated_at"}),
			}).Create(&students).Error; err != nil {
				return err
			}
			counts.Students += len(students)
		}

		return nil
	})
	if err != nil {
		return models.School{}, RosterCounts{}, err
	}

	return school, counts, nil
}
