package flutterwave

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"
)

// Client talks to the Flutterwave v3 API for payment-link creation and
// synchronous transaction verification.
type Client struct {
	BaseURL   string
	SecretKey string
	client    *http.Client
}

func NewClient(baseURL, secretKey string) *Client {
	if baseURL == "" {
		baseURL = "https://api.flutterwave.com/v3"
	}
	return &Client{
		BaseURL:   baseURL,
		SecretKey: secretKey,
		client:    &http.Client{Timeout: 30 * time.Second},
	}
}

// PaymentRequest describes a hosted-checkout payment link to create.
type PaymentRequest struct {
	TxRef       string
	AmountKobo  int64
	Currency    string
	RedirectURL string
	Customer    Customer
	Title       string
}

// PaymentResponse carries the hosted checkout link for the browser.
type PaymentResponse struct {
	Status      string
	PaymentLink string
}

type initPaymentReq struct {
	TxRef         string            `json:"tx_ref"`
	Amount        string            `json:"amount"`
	Currency      string            `json:"currency"`
	RedirectURL   string            `json:"redirect_url"`
	Customer      map[string]string `json:"customer"`
	Customization map[string]string `json:"customizations,omitempty"`
}

type initPaymentResp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		Link string `json:"link"`
	} `json:"data"`
}

// InitiatePayment creates a hosted payment link for the given tx_ref.
func (c *Client) InitiatePayment(ctx context.Context, req PaymentRequest) (*PaymentResponse, error) {
	body := initPaymentReq{
		TxRef:       req.TxRef,
		Amount:      FromKobo(req.AmountKobo),
		Currency:    req.Currency,
		RedirectURL: req.RedirectURL,
		Customer: map[string]string{
			"email":       req.Customer.Email,
			"phonenumber": req.Customer.PhoneNumber,
			"name":        req.Customer.Name,
		},
	}
	if req.Title != "" {
		body.Customization = map[string]string{"title": req.Title}
	}
	bodyBytes, _ := json.Marshal(body)
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/payments", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Content-Type", "application/json")
	apiReq.Header.Set("Authorization", "Bearer "+c.SecretKey)
	log.Printf("[Flutterwave] POST /payments tx_ref=%s amount=%s", req.TxRef, body.Amount)
	resp, err := c.client.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flutterwave payments: %d %s", resp.StatusCode, string(respBody))
	}
	var out initPaymentResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if out.Status != "success" || out.Data.Link == "" {
		return nil, fmt.Errorf("flutterwave payments: %s", out.Message)
	}
	return &PaymentResponse{Status: out.Status, PaymentLink: out.Data.Link}, nil
}

type verifyResp struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		ID       json.Number `json:"id"`
		TxRef    string      `json:"tx_ref"`
		Status   string      `json:"status"`
		Amount   float64     `json:"amount"`
		Currency string      `json:"currency"`
		Customer Customer    `json:"customer"`
	} `json:"data"`
}

// VerifyByTxRef asks the gateway for the current state of a transaction.
// This is the synchronous path behind the client poller; its result feeds
// the same reconciliation engine as the webhook. The returned event has
// no EventID (verification responses carry none).
func (c *Client) VerifyByTxRef(ctx context.Context, txRef string) (*WebhookEvent, error) {
	u := c.BaseURL + "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(txRef)
	apiReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	apiReq.Header.Set("Authorization", "Bearer "+c.SecretKey)
	resp, err := c.client.Do(apiReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode == http.StatusNotFound {
		// No charge attempt yet for this tx_ref; still pending from our side.
		return &WebhookEvent{TxRef: txRef, Status: StatusPending, ReceivedAt: time.Now()}, nil
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("flutterwave verify: %d %s", resp.StatusCode, string(respBody))
	}
	var out verifyResp
	if err := json.Unmarshal(respBody, &out); err != nil {
		return nil, err
	}
	if out.Data.TxRef == "" {
		return nil, fmt.Errorf("flutterwave verify: %s", out.Message)
	}
	return &WebhookEvent{
		Event:      "transaction.verify",
		TxRef:      out.Data.TxRef,
		GatewayRef: out.Data.ID.String(),
		Status:     NormalizeStatus(out.Data.TxRef, out.Data.Status),
		AmountKobo: ToKobo(out.Data.Amount),
		Currency:   out.Data.Currency,
		Customer:   out.Data.Customer,
		ReceivedAt: time.Now(),
	}, nil
}
