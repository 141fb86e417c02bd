package handler

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"starktol/config"
	"starktol/internal/domain"
	"starktol/internal/middleware"
	"starktol/internal/models"
	"starktol/internal/repository"
	"starktol/pkg/flutterwave"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// GatewayInitiator creates hosted checkout links.
type GatewayInitiator interface {
	InitiatePayment(ctx context.Context, req flutterwave.PaymentRequest) (*flutterwave.PaymentResponse, error)
}

type PaymentHandler struct {
	cfg        *config.Config
	intentRepo *repository.PaymentIntentRepository
	userRepo   *repository.UserRepository
	gateway    GatewayInitiator
}

func NewPaymentHandler(cfg *config.Config, intentRepo *repository.PaymentIntentRepository, userRepo *repository.UserRepository, gateway GatewayInitiator) *PaymentHandler {
	return &PaymentHandler{cfg: cfg, intentRepo: intentRepo, userRepo: userRepo, gateway: gateway}
}

// Initiate starts a wallet funding attempt: validates the amount server
// side, creates the PaymentIntent and returns the hosted payment link.
// The intent's terminal state is decided later by the reconciliation
// engine, never by this handler.
func (h *PaymentHandler) Initiate(c *gin.Context) {
	userID := middleware.GetUserID(c)
	var req struct {
		AmountKobo int64 `json:"amount_kobo" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "amount_kobo required"})
		return
	}
	if req.AmountKobo < h.cfg.Payment.MinAmountK || req.AmountKobo > h.cfg.Payment.MaxAmountK {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("amount must be between %d and %d kobo", h.cfg.Payment.MinAmountK, h.cfg.Payment.MaxAmountK)})
		return
	}

	user, err := h.userRepo.GetByID(userID)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	txRef := fmt.Sprintf("starktol_%d_%s", userID, uuid.New().String()[:8])
	intent := &models.PaymentIntent{
		UserID:     userID,
		TxRef:      txRef,
		AmountKobo: req.AmountKobo,
		Currency:   "NGN",
		Status:     domain.IntentCreated,
		ExpiresAt:  time.Now().Add(h.cfg.Payment.IntentExpiry),
	}
	if err := h.intentRepo.Create(intent); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create payment"})
		return
	}

	resp, err := h.gateway.InitiatePayment(c.Request.Context(), flutterwave.PaymentRequest{
		TxRef:       txRef,
		AmountKobo:  req.AmountKobo,
		Currency:    "NGN",
		RedirectURL: h.cfg.Flutterwave.RedirectURL,
		Customer: flutterwave.Customer{
			Email:       user.Email,
			PhoneNumber: user.PhoneNumber,
			Name:        user.FullName,
		},
		Title: "StarkTol wallet funding",
	})
	if err != nil {
		log.Printf("[Payment] gateway initiation failed for tx_ref=%s: %v", txRef, err)
		c.JSON(http.StatusBadGateway, gin.H{"error": "payment gateway unavailable"})
		return
	}

	intent.Status = domain.IntentAwaitingGateway
	intent.PaymentLink = resp.PaymentLink
	if err := h.intentRepo.Update(intent); err != nil {
		log.Printf("[Payment] could not persist payment link for tx_ref=%s: %v", txRef, err)
	}

	c.JSON(http.StatusOK, gin.H{
		"payment_link": resp.PaymentLink,
		"tx_ref":       txRef,
	})
}

// History lists the user's funding attempts.
func (h *PaymentHandler) History(c *gin.Context) {
	userID := middleware.GetUserID(c)
	intents, err := h.intentRepo.ListByUser(userID, 50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load payments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"payments": intents})
}
