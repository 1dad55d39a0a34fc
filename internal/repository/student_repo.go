package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-school-api/internal/models"
)

// StudentRepository provides access to student records.
type StudentRepository interface {
	GetByID(ctx context.Context, id uint) (models.Student, error)
	ListByClass(ctx context.Context, classID uint) ([]models.Student, error)
	FindByAdmissionNo(ctx context.Context, schoolID uint, admissionNo string) (models.Student, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository constructs a student repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) GetByID(ctx context.Context, id uint) (models.Student, error) {
	var student models.Student
	if err := r.db.WithContext(ctx).First(&student, id).Error; err != nil {
		return models.Student{}, err
	}

	return student, nil
}

func (r *studentRepository) ListByClass(ctx context.Context, classID uint) ([]models.Student, error) {
	var students []models.Student
	err := r.db.WithContext(ctx).
		Where("class_id = ? AND status = ?", classID, models.StudentStatusActive).
		Order("name ASC").
		Find(&students).Error
	return students, err
}

func (r *studentRepository) FindByAdmissionNo(ctx context.Context, schoolID uint, admissionNo string) (models.Student, error) {
	var student models.Student
	err := r.db.WithContext(ctx).
		Where("school_id = ? AND admission_no = ?", schoolID, admissionNo).
		First(&student).Error
	if err != nil {
		return models.Student{}, err
	}
	return student, nil
}
