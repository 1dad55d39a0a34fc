package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-school-api/internal/models"
)

// GradingSystemRepository persists school grading systems and their levels.
type GradingSystemRepository interface {
	Create(ctx context.Context, system *models.GradingSystem) error
	Update(ctx context.Context, system *models.GradingSystem) error
	GetByID(ctx context.Context, id uint) (models.GradingSystem, error)
	ListBySchool(ctx context.Context, schoolID uint) ([]models.GradingSystem, error)
	GetDefault(ctx context.Context, schoolID uint) (models.GradingSystem, error)
	SetDefault(ctx context.Context, schoolID, id uint) error
	Delete(ctx context.Context, id uint) error
}

type gradingSystemRepository struct {
	db *gorm.DB
}

// NewGradingSystemRepository constructs a grading system repository.
func NewGradingSystemRepository(db *gorm.DB) GradingSystemRepository {
	return &gradingSystemRepository{db: db}
}

func orderedLevels(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC, id ASC")
}

func (r *gradingSystemRepository) Create(ctx context.Context, system *models.GradingSystem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if system.IsDefault {
			if err := clearDefault(tx, system.SchoolID); err != nil {
				return err
			}
		}
		return tx.Create(system).Error
	})
}

func (r *gradingSystemRepository) Update(ctx context.Context, system *models.GradingSystem) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if system.IsDefault {
			if err := clearDefault(tx, system.SchoolID); err != nil {
				return err
			}
		}

		update := tx.Model(&models.GradingSystem{}).
			Where("id = ?", system.ID).
			Updates(map[string]interface{}{
				"name":       system.Name,
				"pass_mark":  system.PassMark,
				"is_default": system.IsDefault,
			})
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if err := tx.Where("grading_system_id = ?", system.ID).Delete(&models.GradingLevel{}).Error; err != nil {
			return err
		}

		for i := range system.Levels {
			system.Levels[i].ID = 0
			system.Levels[i].GradingSystemID = system.ID
		}
		if len(system.Levels) > 0 {
			if err := tx.Create(&system.Levels).Error; err != nil {
				return err
			}
		}

		return nil
	})
}

func (r *gradingSystemRepository) GetByID(ctx context.Context, id uint) (models.GradingSystem, error) {
	var system models.GradingSystem
	err := r.db.WithContext(ctx).
		Preload("Levels", orderedLevels).
		First(&system, id).Error
	if err != nil {
		return models.GradingSystem{}, err
	}
	return system, nil
}

func (r *gradingSystemRepository) ListBySchool(ctx context.Context, schoolID uint) ([]models.GradingSystem, error) {
	var systems []models.GradingSystem
	err := r.db.WithContext(ctx).
		Preload("Levels", orderedLevels).
		Where("school_id = ?", schoolID).
		Order("is_default DESC, name ASC").
		Find(&systems).Error
	return systems, err
}

func (r *gradingSystemRepository) GetDefault(ctx context.Context, schoolID uint) (models.GradingSystem, error) {
	var system models.GradingSystem
	err := r.db.WithContext(ctx).
		Preload("Levels", orderedLevels).
		Where("school_id = ? AND is_default = ?", schoolID, true).
		First(&system).Error
	if err != nil {
		return models.GradingSystem{}, err
	}
	return system, nil
}

func (r *gradingSystemRepository) SetDefault(ctx context.Context, schoolID, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearDefault(tx, schoolID); err != nil {
			return err
		}

		update := tx.Model(&models.GradingSystem{}).
			Where("id = ? AND school_id = ?", id, schoolID).
			Update("is_default", true)
		if update.Error != nil {
			return update.Error
		}
		if update.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *gradingSystemRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("grading_system_id = ?", id).Delete(&models.GradingLevel{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.GradingSystem{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func clearDefault(tx *gorm.DB, schoolID uint) error {
	return tx.Model(&models.GradingSystem{}).
		Where("school_id = ? AND is_default = ?", schoolID, true).
		Update("is_default", false).Error
}
