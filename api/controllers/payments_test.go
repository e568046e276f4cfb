package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/advancehq/reconciliation-backend/internal/reconciliation"
	"github.com/advancehq/reconciliation-backend/pkg/db/models"
	"github.com/advancehq/reconciliation-backend/pkg/enums"
	pkgerrors "github.com/advancehq/reconciliation-backend/pkg/errors"
	"github.com/shopspring/decimal"
)

type stubReadService struct {
	overview *reconciliation.Overview
	detail   *reconciliation.PaymentDetail
	err      error
}

func (s *stubReadService) ListPayments(_ context.Context) (*reconciliation.Overview, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.overview, nil
}

func (s *stubReadService) GetPayment(_ context.Context, _ string) (*reconciliation.PaymentDetail, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.detail, nil
}

func sampleOverview() *reconciliation.Overview {
	mk := func(id string, status enums.PaymentStatus) reconciliation.PaymentDetail {
		return reconciliation.PaymentDetail{
			Payment: models.Payment{
				PaymentID:      id,
				ExpectedAmount: decimal.RequireFromString("1000.00"),
				Currency:       "USD",
			},
			Status: status,
		}
	}
	return &reconciliation.Overview{
		Payments: []reconciliation.PaymentDetail{
			mk("pay_1", enums.PaymentStatusFullyPaid),
			mk("pay_2", enums.PaymentStatusPending),
			mk("pay_3", enums.PaymentStatusPending),
		},
		Summary: reconciliation.Summary{PaymentCount: 3},
	}
}

func listPayments(t *testing.T, svc PaymentReadService, query string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/payments"+query, nil)
	rec := httptest.NewRecorder()
	PaymentList(svc, nil).ServeHTTP(rec, req)
	return rec
}

func decodeOverview(t *testing.T, body []byte) reconciliation.Overview {
	t.Helper()
	var envelope struct {
		Data reconciliation.Overview `json:"data"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil {
		t.Fatalf("decode overview: %v", err)
	}
	return envelope.Data
}

func TestPaymentListReturnsOverview(t *testing.T) {
	rec := listPayments(t, &stubReadService{overview: sampleOverview()}, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeOverview(t, rec.Body.Bytes())
	if len(got.Payments) != 3 {
		t.Fatalf("payments = %d, want 3", len(got.Payments))
	}
	if got.Summary.PaymentCount != 3 {
		t.Fatalf("summary count = %d, want 3", got.Summary.PaymentCount)
	}
}

func TestPaymentListFiltersByStatus(t *testing.T) {
	rec := listPayments(t, &stubReadService{overview: sampleOverview()}, "?status=PENDING")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeOverview(t, rec.Body.Bytes())
	if len(got.Payments) != 2 {
		t.Fatalf("payments = %d, want 2", len(got.Payments))
	}
	for _, detail := range got.Payments {
		if detail.Status != enums.PaymentStatusPending {
			t.Fatalf("status = %s, want PENDING", detail.Status)
		}
	}
	// The summary still reflects the whole run.
	if got.Summary.PaymentCount != 3 {
		t.Fatalf("summary count = %d, want 3", got.Summary.PaymentCount)
	}
}

func TestPaymentListRejectsUnknownStatus(t *testing.T) {
	rec := listPayments(t, &stubReadService{overview: sampleOverview()}, "?status=PAID")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestPaymentListAppliesLimit(t *testing.T) {
	rec := listPayments(t, &stubReadService{overview: sampleOverview()}, "?limit=1")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	got := decodeOverview(t, rec.Body.Bytes())
	if len(got.Payments) != 1 || got.Payments[0].Payment.PaymentID != "pay_1" {
		t.Fatalf("payments = %+v, want just pay_1", got.Payments)
	}
}

func TestPaymentDetailNotFound(t *testing.T) {
	svc := &stubReadService{err: pkgerrors.New(pkgerrors.CodeNotFound, "payment not found")}

	router := chi.NewRouter()
	router.Get("/payments/{paymentID}", PaymentDetail(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/payments/pay_missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestPaymentDetailReturnsPayment(t *testing.T) {
	svc := &stubReadService{detail: &reconciliation.PaymentDetail{
		Payment: models.Payment{PaymentID: "pay_1", Currency: "USD", ExpectedAmount: decimal.RequireFromString("1000.00")},
		Status:  enums.PaymentStatusPending,
	}}

	router := chi.NewRouter()
	router.Get("/payments/{paymentID}", PaymentDetail(svc, nil))

	req := httptest.NewRequest(http.MethodGet, "/payments/pay_1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var envelope struct {
		Data reconciliation.PaymentDetail `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode detail: %v", err)
	}
	if envelope.Data.Payment.PaymentID != "pay_1" {
		t.Fatalf("payment id = %s, want pay_1", envelope.Data.Payment.PaymentID)
	}
}
