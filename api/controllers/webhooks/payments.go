// Package webhooks holds the controllers for the provider's webhook
// streams. Both streams share the same shape: verify the signature over
// the canonical payload, short-circuit redeliveries, then hand the
// event to the reconciliation service.
package webhooks

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/advancehq/reconciliation-backend/api/responses"
	"github.com/advancehq/reconciliation-backend/api/validators"
	"github.com/advancehq/reconciliation-backend/internal/events"
	"github.com/advancehq/reconciliation-backend/internal/webhooks"
	pkgerrors "github.com/advancehq/reconciliation-backend/pkg/errors"
	"github.com/advancehq/reconciliation-backend/pkg/logger"
	"github.com/advancehq/reconciliation-backend/pkg/metrics"
)

const signatureHeader = "X-Webhook-Signature"

type PaymentIngestService interface {
	IngestPayment(ctx context.Context, event webhooks.PaymentCreatedEvent, rawBody []byte) (events.UpsertResult, error)
}

type TransactionIngestService interface {
	IngestTransaction(ctx context.Context, event webhooks.TransactionSettledEvent, rawBody []byte) (events.UpsertResult, error)
}

type eventGuard interface {
	CheckAndMark(ctx context.Context, eventID string) (bool, error)
	Delete(ctx context.Context, eventID string) error
}

// Params carries the shared wiring for both webhook controllers.
type Params struct {
	Secret        string
	IngestTimeout time.Duration
	Guard         eventGuard
	Logger        *logger.Logger
	Metrics       *metrics.IngestMetrics
}

// PaymentCreated handles POST /webhooks/payments.
func PaymentCreated(svc PaymentIngestService, params Params) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logg := params.Logger

		if svc == nil || params.Guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			params.Metrics.ObserveRejection("payments", "read_body")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !webhooks.Verify(payload, r.Header.Get(signatureHeader), params.Secret) {
			params.Metrics.ObserveRejection("payments", "signature")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature verification failed"))
			return
		}

		var event webhooks.PaymentCreatedEvent
		if err := validators.DecodeJSON(payload, &event); err != nil {
			params.Metrics.ObserveRejection("payments", "payload")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		// The guard is a fast path only; if redis is down the event
		// store still dedupes, so a guard error never blocks ingest.
		guardKey := webhooks.EventKey(event.PaymentID, payload)
		alreadyProcessed, err := params.Guard.CheckAndMark(ctx, guardKey)
		if err != nil {
			if logg != nil {
				logg.Warn(ctx, "event guard unavailable, falling through to store: "+err.Error())
			}
			alreadyProcessed = false
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, map[string]string{"result": string(events.ResultDuplicate)})
			return
		}

		ingestCtx, cancel := context.WithTimeout(ctx, params.IngestTimeout)
		defer cancel()

		result, err := svc.IngestPayment(ingestCtx, event, payload)
		if err != nil {
			_ = params.Guard.Delete(ctx, guardKey)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithPaymentID(ctx, event.PaymentID)
			logg.Info(ctx, "payment event ingested: "+string(result))
		}
		responses.WriteSuccess(w, map[string]string{"result": string(result)})
	}
}

// TransactionSettled handles POST /webhooks/transactions.
func TransactionSettled(svc TransactionIngestService, params Params) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		logg := params.Logger

		if svc == nil || params.Guard == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "webhook pipeline unavailable"))
			return
		}

		payload, err := io.ReadAll(r.Body)
		if err != nil {
			params.Metrics.ObserveRejection("transactions", "read_body")
			responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read request body"))
			return
		}

		if !webhooks.Verify(payload, r.Header.Get(signatureHeader), params.Secret) {
			params.Metrics.ObserveRejection("transactions", "signature")
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "signature verification failed"))
			return
		}

		var event webhooks.TransactionSettledEvent
		if err := validators.DecodeJSON(payload, &event); err != nil {
			params.Metrics.ObserveRejection("transactions", "payload")
			responses.WriteError(ctx, logg, w, err)
			return
		}

		guardKey := webhooks.EventKey(event.TransactionID, payload)
		alreadyProcessed, err := params.Guard.CheckAndMark(ctx, guardKey)
		if err != nil {
			if logg != nil {
				logg.Warn(ctx, "event guard unavailable, falling through to store: "+err.Error())
			}
			alreadyProcessed = false
		}
		if alreadyProcessed {
			responses.WriteSuccess(w, map[string]string{"result": string(events.ResultDuplicate)})
			return
		}

		ingestCtx, cancel := context.WithTimeout(ctx, params.IngestTimeout)
		defer cancel()

		result, err := svc.IngestTransaction(ingestCtx, event, payload)
		if err != nil {
			_ = params.Guard.Delete(ctx, guardKey)
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if logg != nil {
			ctx = logg.WithTransactionID(ctx, event.TransactionID)
			logg.Info(ctx, "transaction event ingested: "+string(result))
		}
		responses.WriteSuccess(w, map[string]string{"result": string(result)})
	}
}
