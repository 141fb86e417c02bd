package forwarder

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// LedgerClient posts reconciled outcomes to the wallet system of record.
// Non-2xx responses are retriable; the dispatcher owns the retry policy.
type LedgerClient struct {
	BaseURL string
	client  *http.Client
}

func NewLedgerClient(baseURL string, timeout time.Duration) *LedgerClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &LedgerClient{
		BaseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

type ledgerEnvelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Deliver forwards one event. The tx_ref inside the payload doubles as
// the downstream idempotency key, so redelivery after an ambiguous
// failure is safe.
func (c *LedgerClient) Deliver(ctx context.Context, event string, payload []byte) error {
	body, err := json.Marshal(ledgerEnvelope{Event: event, Data: payload})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/api/v1/ledger/events", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Webhook-Source", "flutterwave")
	req.Header.Set("X-Signature-Verified", "true")
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("ledger: %d %s", resp.StatusCode, string(respBody))
	}
	return nil
}
