package repository

import (
	"starktol/internal/models"

	"gorm.io/gorm"
)

type PurchaseRepository struct {
	db *gorm.DB
}

func NewPurchaseRepository(db *gorm.DB) *PurchaseRepository {
	return &PurchaseRepository{db: db}
}

// CreateWithWalletDebit commits the debit, the purchase row and the
// wallet-transaction record together. A crash between the writes can
// never leave the balance reduced without the order that spent it.
// Returns ErrInsufficientBalance when the guarded debit finds the
// balance short.
func (r *PurchaseRepository) CreateWithWalletDebit(p *models.Purchase) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Wallet{}).
			Where("user_id = ? AND balance_kobo >= ?", p.UserID, p.AmountKobo).
			Update("balance_kobo", gorm.Expr("balance_kobo - ?", p.AmountKobo))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		return tx.Create(&models.WalletTransaction{
			UserID:     p.UserID,
			AmountKobo: -p.AmountKobo,
			Type:       "PURCHASE",
			Reference:  p.Reference,
		}).Error
	})
}

func (r *PurchaseRepository) Create(p *models.Purchase) error {
	return r.db.Create(p).Error
}

func (r *PurchaseRepository) GetByReference(ref string) (*models.Purchase, error) {
	var p models.Purchase
	err := r.db.Where("reference = ?", ref).First(&p).Error
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PurchaseRepository) Update(p *models.Purchase) error {
	return r.db.Save(p).Error
}

func (r *PurchaseRepository) ListByUser(userID uint, limit int) ([]models.Purchase, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var purchases []models.Purchase
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").Limit(limit).Find(&purchases).Error
	return purchases, err
}
