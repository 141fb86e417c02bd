package handler_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"starktol/internal/handler"
	"starktol/internal/models"
	"starktol/internal/repository"

	"github.com/gin-gonic/gin"
)

// fakePurchaseStore mirrors the transactional contract: either the
// debit, the purchase and the transaction record all land, or none do.
type fakePurchaseStore struct {
	balanceKobo int64
	purchases   []*models.Purchase
	txRecords   int
	err         error
}

func (s *fakePurchaseStore) CreateWithWalletDebit(p *models.Purchase) error {
	if s.err != nil {
		return s.err
	}
	if s.balanceKobo < p.AmountKobo {
		return repository.ErrInsufficientBalance
	}
	s.balanceKobo -= p.AmountKobo
	s.purchases = append(s.purchases, p)
	s.txRecords++
	return nil
}

func (s *fakePurchaseStore) ListByUser(_ uint, _ int) ([]models.Purchase, error) {
	out := make([]models.Purchase, 0, len(s.purchases))
	for _, p := range s.purchases {
		out = append(out, *p)
	}
	return out, nil
}

type fakePurchaseNotifier struct{ completed int }

func (f *fakePurchaseNotifier) NotifyPurchaseCompleted(_ uint, _, _ string, _ int64) error {
	f.completed++
	return nil
}

func newPurchaseRouter(store *fakePurchaseStore, audit *fakeAudit, notif *fakePurchaseNotifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewPurchaseHandler(store, audit, notif)
	r := gin.New()
	asUser := func(c *gin.Context) { c.Set("user_id", uint(7)) }
	r.POST("/api/v1/purchases", asUser, h.Create)
	r.GET("/api/v1/purchases", asUser, h.History)
	return r
}

func placeOrder(r *gin.Engine, amountKobo int64, serviceType string) *httptest.ResponseRecorder {
	body, _ := json.Marshal(map[string]interface{}{
		"service_type": serviceType,
		"provider":     "MTN",
		"recipient":    "08030000000",
		"amount_kobo":  amountKobo,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/purchases", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestPurchase_DebitAndOrderCommitTogether(t *testing.T) {
	store := &fakePurchaseStore{balanceKobo: 100000}
	audit := &fakeAudit{}
	notif := &fakePurchaseNotifier{}
	r := newPurchaseRouter(store, audit, notif)

	w := placeOrder(r, 20000, "AIRTIME")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	if store.balanceKobo != 80000 {
		t.Fatalf("balance = %d, want 80000", store.balanceKobo)
	}
	if len(store.purchases) != 1 || store.txRecords != 1 {
		t.Fatalf("purchases=%d txRecords=%d, want 1/1", len(store.purchases), store.txRecords)
	}
	if len(audit.entries) != 1 || audit.entries[0].Action != "purchase_completed" {
		t.Fatalf("audit entries = %+v", audit.entries)
	}
	if notif.completed != 1 {
		t.Fatalf("completed notifications = %d", notif.completed)
	}
}

func TestPurchase_InsufficientBalanceLeavesNoTrace(t *testing.T) {
	store := &fakePurchaseStore{balanceKobo: 5000}
	audit := &fakeAudit{}
	notif := &fakePurchaseNotifier{}
	r := newPurchaseRouter(store, audit, notif)

	w := placeOrder(r, 20000, "DATA")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if store.balanceKobo != 5000 || len(store.purchases) != 0 || store.txRecords != 0 {
		t.Fatalf("partial writes: balance=%d purchases=%d txRecords=%d", store.balanceKobo, len(store.purchases), store.txRecords)
	}
	if len(audit.entries) != 0 || notif.completed != 0 {
		t.Fatal("side effects fired for a rejected order")
	}
}

func TestPurchase_StoreErrorRollsBackCleanly(t *testing.T) {
	store := &fakePurchaseStore{balanceKobo: 100000, err: errors.New("deadlock")}
	audit := &fakeAudit{}
	notif := &fakePurchaseNotifier{}
	r := newPurchaseRouter(store, audit, notif)

	w := placeOrder(r, 20000, "AIRTIME")
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
	if store.balanceKobo != 100000 {
		t.Fatalf("balance = %d: debit survived a failed order", store.balanceKobo)
	}
	if notif.completed != 0 || len(audit.entries) != 0 {
		t.Fatal("side effects fired for a failed order")
	}
}

func TestPurchase_UnknownServiceRejected(t *testing.T) {
	store := &fakePurchaseStore{balanceKobo: 100000}
	r := newPurchaseRouter(store, &fakeAudit{}, &fakePurchaseNotifier{})

	w := placeOrder(r, 20000, "LOTTERY")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if store.balanceKobo != 100000 {
		t.Fatal("invalid order debited the wallet")
	}
}
