package flutterwave

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strconv"
	"time"
)

// Status is the closed set of payment outcomes the pipeline understands.
// Gateways grow new status strings over time; anything unrecognized
// normalizes to StatusPending rather than failing the whole delivery.
type Status string

const (
	StatusSuccessful Status = "successful"
	StatusFailed     Status = "failed"
	StatusPending    Status = "pending"
	StatusCancelled  Status = "cancelled"
)

var ErrMalformedPayload = errors.New("malformed webhook payload")

// Customer is the payer identity reported by the gateway.
type Customer struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	Name        string `json:"name"`
}

// WebhookEvent is one verified gateway notification, decoded and
// normalized at the boundary. Raw maps never travel past this point.
type WebhookEvent struct {
	Event          string
	EventType      string
	TxRef          string
	GatewayRef     string
	Status         Status
	AmountKobo     int64
	Currency       string
	Customer       Customer
	RawPayloadHash string
	ReceivedAt     time.Time
}

type webhookPayload struct {
	Event     string `json:"event"`
	EventType string `json:"event.type"`
	Data      struct {
		ID       json.Number `json:"id"`
		TxRef    string      `json:"tx_ref"`
		Status   string      `json:"status"`
		Amount   *float64    `json:"amount"`
		Currency string      `json:"currency"`
		Customer Customer    `json:"customer"`
	} `json:"data"`
}

// ParseWebhook decodes and validates a raw webhook body. Unknown extra
// fields are ignored for forward compatibility; missing required fields
// are ErrMalformedPayload.
func ParseWebhook(raw []byte) (*WebhookEvent, error) {
	var p webhookPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if p.Event == "" {
		return nil, fmt.Errorf("%w: missing event", ErrMalformedPayload)
	}
	if p.Data.TxRef == "" {
		return nil, fmt.Errorf("%w: missing data.tx_ref", ErrMalformedPayload)
	}
	if p.Data.Status == "" {
		return nil, fmt.Errorf("%w: missing data.status", ErrMalformedPayload)
	}
	if p.Data.Amount == nil {
		return nil, fmt.Errorf("%w: missing data.amount", ErrMalformedPayload)
	}
	if p.Data.Currency == "" {
		return nil, fmt.Errorf("%w: missing data.currency", ErrMalformedPayload)
	}
	if p.Data.ID.String() == "" {
		return nil, fmt.Errorf("%w: missing data.id", ErrMalformedPayload)
	}

	sum := sha256.Sum256(raw)
	return &WebhookEvent{
		Event:          p.Event,
		EventType:      p.EventType,
		TxRef:          p.Data.TxRef,
		GatewayRef:     p.Data.ID.String(),
		Status:         NormalizeStatus(p.Data.TxRef, p.Data.Status),
		AmountKobo:     ToKobo(*p.Data.Amount),
		Currency:       p.Data.Currency,
		Customer:       p.Data.Customer,
		RawPayloadHash: hex.EncodeToString(sum[:]),
		ReceivedAt:     time.Now(),
	}, nil
}

// NormalizeStatus maps a gateway status string into the closed Status set.
func NormalizeStatus(txRef, s string) Status {
	switch s {
	case "successful", "success", "completed":
		return StatusSuccessful
	case "failed", "error":
		return StatusFailed
	case "pending":
		return StatusPending
	case "cancelled", "canceled", "abandoned":
		return StatusCancelled
	default:
		log.Printf("[Flutterwave] unrecognized status %q for tx_ref=%s, treating as pending", s, txRef)
		return StatusPending
	}
}

// ToKobo converts a gateway-reported naira amount to minor units.
func ToKobo(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// FromKobo renders a minor-unit amount as the naira string the gateway
// API expects.
func FromKobo(kobo int64) string {
	if kobo%100 == 0 {
		return strconv.FormatInt(kobo/100, 10)
	}
	return strconv.FormatFloat(float64(kobo)/100, 'f', 2, 64)
}
