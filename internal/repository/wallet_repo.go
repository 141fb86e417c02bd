package repository

import (
	"errors"

	"starktol/internal/models"

	"gorm.io/gorm"
)

var ErrInsufficientBalance = errors.New("insufficient wallet balance")

type WalletRepository struct {
	db *gorm.DB
}

func NewWalletRepository(db *gorm.DB) *WalletRepository {
	return &WalletRepository{db: db}
}

func (r *WalletRepository) GetByUserID(userID uint) (*models.Wallet, error) {
	var w models.Wallet
	err := r.db.Where("user_id = ?", userID).First(&w).Error
	if err != nil {
		return nil, err
	}
	return &w, nil
}

func (r *WalletRepository) GetOrCreate(userID uint) (*models.Wallet, error) {
	w, err := r.GetByUserID(userID)
	if err == nil {
		return w, nil
	}
	w = &models.Wallet{UserID: userID, BalanceKobo: 0, Currency: "NGN"}
	if err := r.db.Create(w).Error; err != nil {
		return nil, err
	}
	return w, nil
}

// Adjust applies a manual credit or debit (signed amount) and its
// wallet-transaction row in one transaction. Settlement credits ride the
// reconciliation transaction instead; this path is for support
// reversals and corrections, and fails rather than letting a debit take
// the balance negative.
func (r *WalletRepository) Adjust(userID uint, amountKobo int64, reference string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if amountKobo >= 0 {
			w := models.Wallet{UserID: userID, Currency: "NGN"}
			if err := tx.Where("user_id = ?", userID).FirstOrCreate(&w).Error; err != nil {
				return err
			}
			if err := tx.Model(&models.Wallet{}).
				Where("user_id = ?", userID).
				Update("balance_kobo", gorm.Expr("balance_kobo + ?", amountKobo)).Error; err != nil {
				return err
			}
		} else {
			res := tx.Model(&models.Wallet{}).
				Where("user_id = ? AND balance_kobo >= ?", userID, -amountKobo).
				Update("balance_kobo", gorm.Expr("balance_kobo + ?", amountKobo))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientBalance
			}
		}
		return tx.Create(&models.WalletTransaction{
			UserID:     userID,
			AmountKobo: amountKobo,
			Type:       "REVERSAL",
			Reference:  reference,
		}).Error
	})
}

func (r *WalletRepository) Transactions(userID uint, limit int) ([]models.WalletTransaction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var txs []models.WalletTransaction
	err := r.db.Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&txs).Error
	return txs, err
}
