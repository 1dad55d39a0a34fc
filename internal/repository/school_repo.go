package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-school-api/internal/models"
)

// SchoolRepository looks up the academic structure scores hang off.
type SchoolRepository interface {
	GetClass(ctx context.Context, id uint) (models.Class, error)
	GetTerm(ctx context.Context, id uint) (models.Term, error)
	GetSubject(ctx context.Context, id uint) (models.Subject, error)
	ListSubjects(ctx context.Context, schoolID uint) ([]models.Subject, error)
}

type schoolRepository struct {
	db *gorm.DB
}

// NewSchoolRepository constructs the school structure repository.
func NewSchoolRepository(db *gorm.DB) SchoolRepository {
	return &schoolRepository{db: db}
}

func (r *schoolRepository) GetClass(ctx context.Context, id uint) (models.Class, error) {
	var class models.Class
	if err := r.db.WithContext(ctx).First(&class, id).Error; err != nil {
		return models.Class{}, err
	}
	return class, nil
}

func (r *schoolRepository) GetTerm(ctx context.Context, id uint) (models.Term, error) {
	var term models.Term
	if err := r.db.WithContext(ctx).First(&term, id).Error; err != nil {
		return models.Term{}, err
	}
	return term, nil
}

func (r *schoolRepository) GetSubject(ctx context.Context, id uint) (models.Subject, error) {
	var subject models.Subject
	if err := r.db.WithContext(ctx).First(&subject, id).Error; err != nil {
		return models.Subject{}, err
	}
	return subject, nil
}

func (r *schoolRepository) ListSubjects(ctx context.Context, schoolID uint) ([]models.Subject, error) {
	var subjects []models.Subject
	err := r.db.WithContext(ctx).
		Where("school_id = ?", schoolID).
		Order("name ASC").
		Find(&subjects).Error
	return subjects, err
}
