package repository

import (
	"context"
	"sort"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-school-api/internal/models"
)

// AssessmentFilter narrows assessment queries. Zero values match everything.
type AssessmentFilter struct {
	SchoolID  uint
	ClassID   uint
	SubjectID uint
	TermID    uint
	StudentID uint
}

// AssessmentRepository persists raw score entries.
type AssessmentRepository interface {
	Upsert(ctx context.Context, assessment models.Assessment) (models.Assessment, error)
	UpsertMany(ctx context.Context, assessments []models.Assessment) error
	List(ctx context.Context, filter AssessmentFilter) ([]models.Assessment, error)
	GetByID(ctx context.Context, id uint) (models.Assessment, error)
	Delete(ctx context.Context, id uint) error
}

type assessmentRepository struct {
	db *gorm.DB
}

// NewAssessmentRepository constructs an assessment repository.
func NewAssessmentRepository(db *gorm.DB) AssessmentRepository {
	return &assessmentRepository{db: db}
}

var assessmentConflict = clause.OnConflict{
	Columns: []clause.Column{{Name: "student_id"}, {Name: "subject_id"}, {Name: "term_id"}},
	DoUpdates: clause.AssignmentColumns([]string{
		"class_id", "ca1", "ca2", "ca3", "exam", "is_absent", "is_exempt", "recorded_by", "updated_at",
	}),
}

func (r *assessmentRepository) Upsert(ctx context.Context, assessment models.Assessment) (models.Assessment, error) {
	db := r.db.WithContext(ctx)
	assessment.ID = 0
	if err := db.Omit(clause.Associations).Clauses(assessmentConflict).Create(&assessment).Error; err != nil {
		return models.Assessment{}, err
	}

	var stored models.Assessment
	err := db.Preload("Student").Preload("Subject").
		Where("student_id = ? AND subject_id = ? AND term_id = ?", assessment.StudentID, assessment.SubjectID, assessment.TermID).
		First(&stored).Error
	if err != nil {
		return models.Assessment{}, err
	}
	return stored, nil
}

func (r *assessmentRepository) UpsertMany(ctx context.Context, assessments []models.Assessment) error {
	if len(assessments) == 0 {
		return nil
	}

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i := range assessments {
			assessments[i].ID = 0
			if err := tx.Omit(clause.Associations).Clauses(assessmentConflict).Create(&assessments[i]).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *assessmentRepository) List(ctx context.Context, filter AssessmentFilter) ([]models.Assessment, error) {
	query := r.db.WithContext(ctx).Model(&models.Assessment{}).
		Preload("Student").
		Preload("Subject")

	if filter.SchoolID > 0 {
		query = query.Where("school_id = ?", filter.SchoolID)
	}
	if filter.ClassID > 0 {
		query = query.Where("class_id = ?", filter.ClassID)
	}
	if filter.SubjectID > 0 {
		query = query.Where("subject_id = ?", filter.SubjectID)
	}
	if filter.TermID > 0 {
		query = query.Where("term_id = ?", filter.TermID)
	}
	if filter.StudentID > 0 {
		query = query.Where("student_id = ?", filter.StudentID)
	}

	var assessments []models.Assessment
	if err := query.Order("id ASC").Find(&assessments).Error; err != nil {
		return nil, err
	}

	sort.SliceStable(assessments, func(i, j int) bool {
		left := strings.ToLower(assessments[i].Student.Name)
		right := strings.ToLower(assessments[j].Student.Name)
		if left != right {
			return left < right
		}
		return strings.ToLower(assessments[i].Subject.Name) < strings.ToLower(assessments[j].Subject.Name)
	})

	return assessments, nil
}

func (r *assessmentRepository) GetByID(ctx context.Context, id uint) (models.Assessment, error) {
	var assessment models.Assessment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Subject").
		First(&assessment, id).Error
	if err != nil {
		return models.Assessment{}, err
	}
	return assessment, nil
}

func (r *assessmentRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Assessment{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
