// Package poller is the client-side companion to the verification
// endpoint: after a checkout redirect it polls until the payment reaches
// a terminal state or the attempt budget runs out. It never applies
// effects itself; every poll goes through the server's reconciliation
// path and its idempotency guard.
package poller

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrVerificationTimeout means the attempt budget ran out without a
// terminal status. Distinct from a failed payment: the money may still
// arrive via webhook, so the UI should say "pending verification, check
// transaction history" rather than "failed".
var ErrVerificationTimeout = errors.New("payment verification timed out")

type Result struct {
	Status     string `json:"status"` // pending | successful | failed
	Success    bool   `json:"success"`
	AmountKobo int64  `json:"amount"`
	Message    string `json:"message"`
}

type Poller struct {
	BaseURL     string
	Interval    time.Duration
	MaxAttempts int
	client      *http.Client
}

func New(baseURL string) *Poller {
	return &Poller{
		BaseURL:     baseURL,
		Interval:    5 * time.Second,
		MaxAttempts: 60,
		client:      &http.Client{Timeout: 15 * time.Second},
	}
}

// Poll verifies txRef until a terminal status, the attempt budget, or
// context cancellation. Cancelling (navigation away, unmount) has no
// server-side effect.
func (p *Poller) Poll(ctx context.Context, txRef string) (*Result, error) {
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		res, err := p.verifyOnce(ctx, txRef)
		if err == nil && (res.Status == "successful" || res.Status == "failed") {
			return res, nil
		}
		// Transport errors and pending both mean poll again.
		if attempt == p.MaxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(p.Interval):
		}
	}
	return nil, ErrVerificationTimeout
}

func (p *Poller) verifyOnce(ctx context.Context, txRef string) (*Result, error) {
	body, _ := json.Marshal(map[string]string{"tx_ref": txRef})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.BaseURL+"/api/v1/payments/verify", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusBadGateway {
		return nil, fmt.Errorf("verify: unexpected status %d", resp.StatusCode)
	}
	var out Result
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return &out, nil
}
