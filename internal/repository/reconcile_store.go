package repository

import (
	"context"
	"errors"

	"starktol/internal/domain"
	"starktol/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReconcileStore is the gorm-backed persistence behind the reconciliation
// engine. The conditional insert on idempotency_records.tx_ref is the only
// serialization point; it works across stateless instances because the
// database enforces the unique key, not an in-process lock.
type ReconcileStore struct {
	db *gorm.DB
}

func NewReconcileStore(db *gorm.DB) *ReconcileStore {
	return &ReconcileStore{db: db}
}

func (s *ReconcileStore) IntentByTxRef(ctx context.Context, txRef string) (*models.PaymentIntent, error) {
	var p models.PaymentIntent
	err := s.db.WithContext(ctx).Where("tx_ref = ?", txRef).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ApplyOutcome commits one terminal transition atomically. The idempotency
// insert, intent update, local wallet credit and ledger-job enqueue share
// a transaction: a crash can never leave the marker without the effect.
// Returns applied=false when the tx_ref was already claimed.
func (s *ReconcileStore) ApplyOutcome(ctx context.Context, rec *models.IdempotencyRecord, intent *models.PaymentIntent, job *models.LedgerJob) (bool, error) {
	applied := false
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(rec)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return nil // duplicate delivery, someone else won
		}
		applied = true

		if err := tx.Save(intent).Error; err != nil {
			return err
		}

		if rec.Outcome == domain.IntentSettled {
			if err := creditWalletTx(tx, intent.UserID, intent.AmountKobo, intent.TxRef); err != nil {
				return err
			}
		}

		if job != nil {
			if err := tx.Create(job).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return false, err
	}
	return applied, nil
}

// TransitionIntent moves an intent to the target state only while it is
// still in one of the from states. RowsAffected 0 means a concurrent
// delivery transitioned it first; the caller re-reads and yields. Since
// terminal states are never listed in from, a terminal write can never
// be overwritten here.
func (s *ReconcileStore) TransitionIntent(ctx context.Context, txRef, to string, from ...string) (bool, error) {
	res := s.db.WithContext(ctx).Model(&models.PaymentIntent{}).
		Where("tx_ref = ? AND status IN ?", txRef, from).
		Update("status", to)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func creditWalletTx(tx *gorm.DB, userID uint, amountKobo int64, reference string) error {
	var w models.Wallet
	err := tx.Where("user_id = ?", userID).First(&w).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		w = models.Wallet{UserID: userID, Currency: "NGN"}
		if err := tx.Create(&w).Error; err != nil {
			return err
		}
	} else if err != nil {
		return err
	}
	if err := tx.Model(&models.Wallet{}).
		Where("user_id = ?", userID).
		Update("balance_kobo", gorm.Expr("balance_kobo + ?", amountKobo)).Error; err != nil {
		return err
	}
	return tx.Create(&models.WalletTransaction{
		UserID:     userID,
		AmountKobo: amountKobo,
		Type:       "FUNDING",
		Reference:  reference,
	}).Error
}
