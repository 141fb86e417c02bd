package handler

import (
	"context"
	"errors"
	"log"
	"net/http"

	"starktol/internal/domain"
	"starktol/internal/reconcile"
	"starktol/pkg/flutterwave"

	"github.com/gin-gonic/gin"
)

// GatewayVerifier is the synchronous lookup against the payment gateway.
type GatewayVerifier interface {
	VerifyByTxRef(ctx context.Context, txRef string) (*flutterwave.WebhookEvent, error)
}

// VerifyHandler backs the client-side poller and the redirect landing
// page. It asks the gateway for the transaction's current state and runs
// the answer through the same reconciliation engine as the webhook, so
// whichever channel reports first wins exactly once.
type VerifyHandler struct {
	engine    *reconcile.Engine
	gateway   GatewayVerifier
	auditRepo AuditRecorder
	notifSvc  SettlementNotifier
}

func NewVerifyHandler(engine *reconcile.Engine, gateway GatewayVerifier, auditRepo AuditRecorder, notifSvc SettlementNotifier) *VerifyHandler {
	return &VerifyHandler{engine: engine, gateway: gateway, auditRepo: auditRepo, notifSvc: notifSvc}
}

func (h *VerifyHandler) Verify(c *gin.Context) {
	var req struct {
		TxRef string `json:"tx_ref" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "tx_ref required"})
		return
	}

	evt, err := h.gateway.VerifyByTxRef(c.Request.Context(), req.TxRef)
	if err != nil {
		log.Printf("[Verify] gateway lookup failed for tx_ref=%s: %v", req.TxRef, err)
		c.JSON(http.StatusBadGateway, gin.H{"success": false, "status": "pending", "message": "verification unavailable, try again"})
		return
	}

	outcome, err := h.engine.Process(c.Request.Context(), evt)
	if err != nil {
		if errors.Is(err, reconcile.ErrUnknownIntent) {
			c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "unknown transaction reference"})
			return
		}
		log.Printf("[Verify] reconcile error for tx_ref=%s: %v", req.TxRef, err)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "status": "pending", "message": "verification failed, try again"})
		return
	}

	if outcome.Applied {
		recordTransition(c, h.auditRepo, h.notifSvc, outcome)
	}

	status, message := pollStatus(outcome.Status)
	c.JSON(http.StatusOK, gin.H{
		"success": outcome.Status == domain.IntentSettled,
		"status":  status,
		"amount":  outcome.AmountKobo,
		"message": message,
	})
}

// pollStatus maps intent states onto the three-valued poll response.
func pollStatus(intentStatus string) (string, string) {
	switch intentStatus {
	case domain.IntentSettled:
		return "successful", "payment confirmed, wallet credited"
	case domain.IntentFailed:
		return "failed", "payment did not complete"
	case domain.IntentExpired:
		return "failed", "payment window expired"
	default:
		return "pending", "payment not yet confirmed"
	}
}
