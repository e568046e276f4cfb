package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/advancehq/reconciliation-backend/internal/events"
	"github.com/advancehq/reconciliation-backend/internal/webhooks"
	pkgerrors "github.com/advancehq/reconciliation-backend/pkg/errors"
	"github.com/advancehq/reconciliation-backend/pkg/logger"
)

const testSecret = "whsec_test"

type stubIngest struct {
	paymentResult     events.UpsertResult
	transactionResult events.UpsertResult
	err               error
	paymentCalls      int
	transactionCalls  int
}

func (s *stubIngest) IngestPayment(_ context.Context, _ webhooks.PaymentCreatedEvent, _ []byte) (events.UpsertResult, error) {
	s.paymentCalls++
	return s.paymentResult, s.err
}

func (s *stubIngest) IngestTransaction(_ context.Context, _ webhooks.TransactionSettledEvent, _ []byte) (events.UpsertResult, error) {
	s.transactionCalls++
	return s.transactionResult, s.err
}

type stubGuard struct {
	seen     map[string]bool
	deleted  []string
	checkErr error
}

func newStubGuard() *stubGuard {
	return &stubGuard{seen: map[string]bool{}}
}

func (g *stubGuard) CheckAndMark(_ context.Context, eventID string) (bool, error) {
	if g.checkErr != nil {
		return false, g.checkErr
	}
	if g.seen[eventID] {
		return true, nil
	}
	g.seen[eventID] = true
	return false, nil
}

func (g *stubGuard) Delete(_ context.Context, eventID string) error {
	g.deleted = append(g.deleted, eventID)
	delete(g.seen, eventID)
	return nil
}

func testParams(guard *stubGuard) Params {
	return Params{
		Secret:        testSecret,
		IngestTimeout: time.Second,
		Guard:         guard,
		Logger:        logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
	}
}

func signBody(t *testing.T, body []byte) string {
	t.Helper()
	canonical, err := webhooks.CanonicalJSON(body)
	if err != nil {
		t.Fatalf("canonicalize: %v", err)
	}
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write(canonical)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

func postSigned(handler http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/webhooks/payments", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set("X-Webhook-Signature", signature)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func paymentBody() []byte {
	return []byte(`{"event_type":"payment.created","payment_id":"pay_1","reference":"INV-1",` +
		`"expected_amount":1000.00,"currency":"USD","payer_name":"Acme Corp","sandbox_id":"sb_1"}`)
}

func TestPaymentCreatedAcceptsSignedEvent(t *testing.T) {
	svc := &stubIngest{paymentResult: events.ResultInserted}
	guard := newStubGuard()
	body := paymentBody()

	rec := postSigned(PaymentCreated(svc, testParams(guard)), body, signBody(t, body))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if svc.paymentCalls != 1 {
		t.Fatalf("ingest calls = %d, want 1", svc.paymentCalls)
	}
	var envelope struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data["result"] != string(events.ResultInserted) {
		t.Fatalf("result = %s, want %s", envelope.Data["result"], events.ResultInserted)
	}
}

func TestPaymentCreatedRejectsBadSignature(t *testing.T) {
	svc := &stubIngest{paymentResult: events.ResultInserted}
	guard := newStubGuard()
	body := paymentBody()

	for name, signature := range map[string]string{
		"missing header":  "",
		"wrong digest":    "sha256=" + hex.EncodeToString(make([]byte, 32)),
		"missing prefix":  hex.EncodeToString(make([]byte, 32)),
		"garbage payload": signBody(t, []byte(`{"other":true}`)),
	} {
		rec := postSigned(PaymentCreated(svc, testParams(guard)), body, signature)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: status = %d, want 401", name, rec.Code)
		}
	}
	if svc.paymentCalls != 0 {
		t.Fatalf("ingest calls = %d, want 0", svc.paymentCalls)
	}
}

func TestPaymentCreatedRejectsMalformedPayload(t *testing.T) {
	svc := &stubIngest{}
	body := []byte(`{"event_type":"payment.created","payment_id":""}`)

	rec := postSigned(PaymentCreated(svc, testParams(newStubGuard())), body, signBody(t, body))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400; body %s", rec.Code, rec.Body.String())
	}
	if svc.paymentCalls != 0 {
		t.Fatalf("ingest calls = %d, want 0", svc.paymentCalls)
	}
}

func TestPaymentCreatedShortCircuitsRedelivery(t *testing.T) {
	svc := &stubIngest{paymentResult: events.ResultInserted}
	guard := newStubGuard()
	body := paymentBody()
	handler := PaymentCreated(svc, testParams(guard))

	if rec := postSigned(handler, body, signBody(t, body)); rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", rec.Code)
	}
	rec := postSigned(handler, body, signBody(t, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("redelivery status = %d, want 200", rec.Code)
	}
	if svc.paymentCalls != 1 {
		t.Fatalf("ingest calls = %d, want 1 (redelivery must not reach the store)", svc.paymentCalls)
	}
}

func TestPaymentCreatedGuardAllowsConflictingPayloadThrough(t *testing.T) {
	svc := &stubIngest{paymentResult: events.ResultInserted}
	guard := newStubGuard()
	handler := PaymentCreated(svc, testParams(guard))

	body := paymentBody()
	if rec := postSigned(handler, body, signBody(t, body)); rec.Code != http.StatusOK {
		t.Fatalf("first delivery status = %d, want 200", rec.Code)
	}

	// Same payment id, different payload: must reach the event store so
	// it can report the conflict.
	svc.paymentResult = events.ResultConflict
	conflicting := []byte(`{"event_type":"payment.created","payment_id":"pay_1","reference":"INV-1",` +
		`"expected_amount":2500.00,"currency":"USD","payer_name":"Acme Corp"}`)
	rec := postSigned(handler, conflicting, signBody(t, conflicting))
	if rec.Code != http.StatusOK {
		t.Fatalf("conflicting delivery status = %d, want 200", rec.Code)
	}
	if svc.paymentCalls != 2 {
		t.Fatalf("ingest calls = %d, want 2", svc.paymentCalls)
	}
}

func TestPaymentCreatedIngestsWhenGuardUnavailable(t *testing.T) {
	svc := &stubIngest{paymentResult: events.ResultInserted}
	guard := newStubGuard()
	guard.checkErr = pkgerrors.New(pkgerrors.CodeDependency, "redis unavailable")
	body := paymentBody()

	rec := postSigned(PaymentCreated(svc, testParams(guard)), body, signBody(t, body))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; the store dedupes without the guard", rec.Code)
	}
	if svc.paymentCalls != 1 {
		t.Fatalf("ingest calls = %d, want 1", svc.paymentCalls)
	}
}

func TestPaymentCreatedClearsGuardOnIngestFailure(t *testing.T) {
	svc := &stubIngest{err: pkgerrors.New(pkgerrors.CodeDependency, "database unavailable")}
	guard := newStubGuard()
	body := paymentBody()

	rec := postSigned(PaymentCreated(svc, testParams(guard)), body, signBody(t, body))
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if len(guard.deleted) != 1 {
		t.Fatalf("guard deletes = %d, want 1 so the provider can retry", len(guard.deleted))
	}
}

func TestTransactionSettledAcceptsSignedEvent(t *testing.T) {
	svc := &stubIngest{transactionResult: events.ResultInserted}
	body := []byte(`{"event_type":"transaction.settled","transaction_id":"txn_1","reference":"INV-1",` +
		`"amount":-50.00,"currency":"USD","payer_name":"Acme Corp"}`)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/transactions", bytes.NewReader(body))
	req.Header.Set("X-Webhook-Signature", signBody(t, body))
	rec := httptest.NewRecorder()
	TransactionSettled(svc, testParams(newStubGuard())).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200; body %s", rec.Code, rec.Body.String())
	}
	if svc.transactionCalls != 1 {
		t.Fatalf("ingest calls = %d, want 1", svc.transactionCalls)
	}
}
