package repository

import (
	"starktol/internal/models"

	"gorm.io/gorm"
)

type DeadLetterRepository struct {
	db *gorm.DB
}

func NewDeadLetterRepository(db *gorm.DB) *DeadLetterRepository {
	return &DeadLetterRepository{db: db}
}

func (r *DeadLetterRepository) List(limit int) ([]models.DeadLetter, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var letters []models.DeadLetter
	err := r.db.Order("created_at DESC").Limit(limit).Find(&letters).Error
	return letters, err
}

func (r *DeadLetterRepository) GetByTxRef(txRef string) ([]models.DeadLetter, error) {
	var letters []models.DeadLetter
	err := r.db.Where("tx_ref = ?", txRef).Find(&letters).Error
	return letters, err
}

func (r *DeadLetterRepository) GetByID(id uint) (*models.DeadLetter, error) {
	var letter models.DeadLetter
	if err := r.db.First(&letter, id).Error; err != nil {
		return nil, err
	}
	return &letter, nil
}

func (r *DeadLetterRepository) Delete(id uint) error {
	return r.db.Delete(&models.DeadLetter{}, id).Error
}
