package handler

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"starktol/internal/middleware"
	"starktol/internal/models"
	"starktol/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// AdminHandler exposes the operator views: dead-lettered ledger
// deliveries and payments flagged for manual review.
type AdminHandler struct {
	deadLetterRepo *repository.DeadLetterRepository
	intentRepo     *repository.PaymentIntentRepository
	jobRepo        *repository.LedgerJobRepository
	walletRepo     *repository.WalletRepository
	auditRepo      AuditRecorder
}

func NewAdminHandler(deadLetterRepo *repository.DeadLetterRepository, intentRepo *repository.PaymentIntentRepository, jobRepo *repository.LedgerJobRepository, walletRepo *repository.WalletRepository, auditRepo AuditRecorder) *AdminHandler {
	return &AdminHandler{deadLetterRepo: deadLetterRepo, intentRepo: intentRepo, jobRepo: jobRepo, walletRepo: walletRepo, auditRepo: auditRepo}
}

func (h *AdminHandler) ListDeadLetters(c *gin.Context) {
	letters, err := h.deadLetterRepo.List(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load dead letters"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"dead_letters": letters})
}

func (h *AdminHandler) ListFlagged(c *gin.Context) {
	intents, err := h.intentRepo.ListFlagged(50)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not load flagged payments"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"flagged": intents})
}

// RequeueDeadLetter puts an exhausted delivery back on the queue as a
// fresh job with a reset attempt count. Used after a ledger outage is
// fixed; the ledger dedupes on tx_ref, so a stray double delivery is
// harmless.
func (h *AdminHandler) RequeueDeadLetter(c *gin.Context) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dead letter id"})
		return
	}
	letter, err := h.deadLetterRepo.GetByID(uint(id))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "dead letter not found"})
		return
	}

	job := &models.LedgerJob{
		ID:        uuid.New().String(),
		TxRef:     letter.TxRef,
		Event:     letter.Event,
		Payload:   letter.Payload,
		Status:    models.JobPending,
		NextRunAt: time.Now(),
	}
	if err := h.jobRepo.Enqueue(job); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not requeue delivery"})
		return
	}
	if err := h.deadLetterRepo.Delete(letter.ID); err != nil {
		log.Printf("[Admin] requeued job=%s but could not delete dead letter %d: %v", job.ID, letter.ID, err)
	}
	log.Printf("[Admin] dead letter %d requeued as job=%s tx_ref=%s", letter.ID, job.ID, letter.TxRef)
	c.JSON(http.StatusOK, gin.H{"job_id": job.ID, "tx_ref": letter.TxRef})
}

// AdjustWallet applies a manual signed correction to a customer wallet,
// for support reversals after a disputed purchase or a gateway refund.
func (h *AdminHandler) AdjustWallet(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return
	}
	var req struct {
		AmountKobo int64  `json:"amount_kobo" binding:"required"`
		Reason     string `json:"reason" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ref := fmt.Sprintf("adj_%s", uuid.New().String())
	if err := h.walletRepo.Adjust(uint(userID), req.AmountKobo, ref); err != nil {
		if errors.Is(err, repository.ErrInsufficientBalance) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "adjustment would overdraw the wallet"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not adjust wallet"})
		return
	}
	adminID := middleware.GetUserID(c)
	_ = h.auditRepo.Create(&models.AuditLog{
		UserID:     &adminID,
		Action:     "wallet_adjusted",
		Resource:   "wallet",
		ResourceID: ref,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	log.Printf("[Admin] wallet user=%d adjusted by %d kobo ref=%s reason=%q", userID, req.AmountKobo, ref, req.Reason)
	c.JSON(http.StatusOK, gin.H{"reference": ref})
}
