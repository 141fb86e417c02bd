package handler

import (
	"errors"
	"io"
	"log"
	"net/http"

	"starktol/config"
	"starktol/internal/domain"
	"starktol/internal/models"
	"starktol/internal/reconcile"
	"starktol/pkg/flutterwave"

	"github.com/gin-gonic/gin"
)

// AuditRecorder persists audit trail entries.
type AuditRecorder interface {
	Create(a *models.AuditLog) error
}

// SettlementNotifier tells the user what happened to their payment.
type SettlementNotifier interface {
	NotifyWalletFunded(userID uint, amountKobo int64, txRef string) error
	NotifyPaymentFailed(userID uint, txRef string) error
}

type FlutterwaveWebhookHandler struct {
	engine    *reconcile.Engine
	auditRepo AuditRecorder
	notifSvc  SettlementNotifier
	cfg       *config.Config
}

func NewFlutterwaveWebhookHandler(engine *reconcile.Engine, auditRepo AuditRecorder, notifSvc SettlementNotifier, cfg *config.Config) *FlutterwaveWebhookHandler {
	return &FlutterwaveWebhookHandler{engine: engine, auditRepo: auditRepo, notifSvc: notifSvc, cfg: cfg}
}

// Handle processes a Flutterwave webhook delivery. The raw body is read
// before any parsing because the signature covers the exact wire bytes.
// Once the delivery is authentic and parseable the response is 200 no
// matter what happens downstream: rejecting an accepted payload would
// only make the gateway redeliver it.
func (h *FlutterwaveWebhookHandler) Handle(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<20))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "invalid body"})
		return
	}

	sig := c.GetHeader("verif-hash")
	if !flutterwave.VerifySignature(body, sig, h.cfg.Flutterwave.SecretHash) {
		// Payload size only: content of a forged delivery is untrusted.
		log.Printf("[Webhook] rejected unauthentic delivery (%d bytes)", len(body))
		c.JSON(http.StatusUnauthorized, gin.H{"status": "error", "message": "unauthorized"})
		return
	}

	evt, err := flutterwave.ParseWebhook(body)
	if err != nil {
		log.Printf("[Webhook] malformed payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"status": "error", "message": "malformed payload"})
		return
	}

	outcome, err := h.engine.Process(c.Request.Context(), evt)
	if err != nil {
		if errors.Is(err, reconcile.ErrUnknownIntent) {
			log.Printf("[Webhook] no intent for tx_ref=%s, acknowledging", evt.TxRef)
			c.JSON(http.StatusOK, gin.H{"status": "success", "message": "acknowledged"})
			return
		}
		// Authentic and well-formed: storage faults are ours to sort out,
		// the gateway still gets its ack.
		log.Printf("[Webhook] reconcile error for tx_ref=%s: %v", evt.TxRef, err)
		c.JSON(http.StatusOK, gin.H{"status": "success", "message": "acknowledged"})
		return
	}

	if outcome.Applied {
		recordTransition(c, h.auditRepo, h.notifSvc, outcome)
	}
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "webhook processed"})
}

// recordTransition writes the audit/notification side effects of a
// terminal transition. Both reporting channels call it, so a settlement
// looks the same in the audit trail whether the webhook or the poll got
// there first. Best effort: the transition itself is already durable.
func recordTransition(c *gin.Context, audit AuditRecorder, notif SettlementNotifier, outcome *reconcile.Outcome) {
	action := "payment_settled"
	switch {
	case outcome.Flagged:
		action = "payment_flagged"
	case outcome.Status == domain.IntentFailed:
		action = "payment_failed"
	}
	_ = audit.Create(&models.AuditLog{
		UserID:     &outcome.UserID,
		Action:     action,
		Resource:   "payment_intent",
		ResourceID: outcome.TxRef,
		IP:         c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	})
	switch outcome.Status {
	case domain.IntentSettled:
		_ = notif.NotifyWalletFunded(outcome.UserID, outcome.AmountKobo, outcome.TxRef)
	case domain.IntentFailed:
		_ = notif.NotifyPaymentFailed(outcome.UserID, outcome.TxRef)
	}
}
