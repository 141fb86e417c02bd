package repository

import (
	"starktol/internal/models"

	"gorm.io/gorm"
)

type PaymentIntentRepository struct {
	db *gorm.DB
}

func NewPaymentIntentRepository(db *gorm.DB) *PaymentIntentRepository {
	return &PaymentIntentRepository{db: db}
}

func (r *PaymentIntentRepository) Create(p *models.PaymentIntent) error {
	return r.db.Create(p).Error
}

func (r *PaymentIntentRepository) GetByTxRef(txRef string) (*models.PaymentIntent, error) {
	var p models.PaymentIntent
	err := r.db.Where("tx_ref = ?", txRef).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PaymentIntentRepository) Update(p *models.PaymentIntent) error {
	return r.db.Save(p).Error
}

// ListFlagged returns intents held for manual review (amount/currency
// mismatch against a validly signed event).
func (r *PaymentIntentRepository) ListFlagged(limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var intents []models.PaymentIntent
	err := r.db.Where("flagged = ?", true).
		Order("updated_at DESC").
		Limit(limit).
		Find(&intents).Error
	return intents, err
}

func (r *PaymentIntentRepository) ListByUser(userID uint, limit int) ([]models.PaymentIntent, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var intents []models.PaymentIntent
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&intents).Error
	return intents, err
}
