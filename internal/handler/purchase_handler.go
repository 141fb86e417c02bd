package handler

import (
	"errors"
	"fmt"
	"net/http"

	"starktol/internal/domain"
	"starktol/internal/middleware"
	"starktol/internal/models"
	"starktol/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

var validServices = map[string]bool{
	domain.ServiceAirtime:     true,
	domain.ServiceData:        true,
	domain.ServiceCableTV:     true,
	domain.ServiceElectricity: true,
}

// PurchaseStore persists an order and its wallet debit as one unit.
type PurchaseStore interface {
	CreateWithWalletDebit(p *models.Purchase) error
	ListByUser(userID uint, limit int) ([]models.Purchase, error)
}

// PurchaseNotifier tells the user their order went through.
type PurchaseNotifier interface {
	NotifyPurchaseCompleted(userID uint, serviceType, recipient string, amountKobo int64) error
}

type PurchaseHandler struct {
	store     PurchaseStore
	auditRepo AuditRecorder
	notifSvc  PurchaseNotifier
}

func NewPurchaseHandler(store PurchaseStore, auditRepo AuditRecorder, notifSvc PurchaseNotifier) *PurchaseHandler {
	return &PurchaseHandler{store: store, auditRepo: auditRepo, notifSvc: notifSvc}
}

// Create places a VTU order paid from the wallet. The debit, the order
// and the wallet-transaction row commit in one transaction; the guarded
// debit inside it is what prevents overspend under concurrent purchases.
func (h *PurchaseHandler) Create(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		ServiceType string `json:"service_type" binding:"required"`
		Provider    string `json:"provider" binding:"required"`
		Recipient   string `json:"recipient" binding:"required"`
		AmountKobo  int64  `json:"amount_kobo" binding:"required,min=1"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !validServices[req.ServiceType] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown service type"})
		return
	}

	p := &models.Purchase{
		UserID:      userID,
		Reference:   fmt.Sprintf("vtu_%s", uuid.New().String()),
		ServiceType: req.ServiceType,
		Provider:    req.Provider,
		Recipient:   req.Recipient,
		AmountKobo:  req.AmountKobo,
		Status:      "COMPLETED",
	}
	if err := h.store.CreateWithWalletDebit(p); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "insufficient wallet balance"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create purchase"})
		return
	}

	_ = h.auditRepo.Create(&models.AuditLog{
		UserID:     &userID,
		Action:     "purchase_completed",
		Resource:   "purchase",
		ResourceID: p.Reference,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	_ = h.notifSvc.NotifyPurchaseCompleted(userID, req.ServiceType, req.Recipient, req.AmountKobo)

	c.JSON(http.StatusOK, gin.H{"purchase": p})
}

func (h *PurchaseHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	purchases, err := h.store.ListByUser(userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load purchases"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"purchases": purchases})
}
