package service

import (
	"fmt"

	"starktol/internal/models"
	"starktol/internal/repository"
	"starktol/internal/ws"
)

type NotificationService struct {
	repo *repository.NotificationRepository
	hub  *ws.PaymentHub
}

// NewNotificationService wires in-app notifications and the websocket
// push hub. hub may be nil (tests, CLI tools); pushes are then skipped.
func NewNotificationService(repo *repository.NotificationRepository, hub *ws.PaymentHub) *NotificationService {
	return &NotificationService{repo: repo, hub: hub}
}

func (s *NotificationService) Notify(userID uint, notifType, title, body string) error {
	err := s.repo.Create(&models.Notification{
		UserID: userID,
		Type:   notifType,
		Title:  title,
		Body:   body,
	})
	if err != nil {
		return err
	}
	if s.hub != nil {
		s.hub.PushToUser(userID, map[string]interface{}{
			"type":  notifType,
			"title": title,
			"body":  body,
		})
	}
	return nil
}

func (s *NotificationService) NotifyWalletFunded(userID uint, amountKobo int64, txRef string) error {
	return s.Notify(userID, "WALLET_FUNDED", "Wallet funded",
		fmt.Sprintf("Your wallet was credited with NGN %.2f (ref %s).", float64(amountKobo)/100, txRef))
}

func (s *NotificationService) NotifyPaymentFailed(userID uint, txRef string) error {
	return s.Notify(userID, "PAYMENT_FAILED", "Payment failed",
		fmt.Sprintf("Your wallet funding (ref %s) did not complete. You were not charged.", txRef))
}

func (s *NotificationService) NotifyPurchaseCompleted(userID uint, serviceType, recipient string, amountKobo int64) error {
	return s.Notify(userID, "PURCHASE_COMPLETED", "Purchase successful",
		fmt.Sprintf("%s purchase of NGN %.2f for %s completed.", serviceType, float64(amountKobo)/100, recipient))
}
