package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/advancehq/reconciliation-backend/api/responses"
	"github.com/advancehq/reconciliation-backend/api/validators"
	"github.com/advancehq/reconciliation-backend/internal/reconciliation"
	"github.com/advancehq/reconciliation-backend/pkg/enums"
	pkgerrors "github.com/advancehq/reconciliation-backend/pkg/errors"
	"github.com/advancehq/reconciliation-backend/pkg/logger"
)

const maxPaymentPageSize = 1000

type PaymentReadService interface {
	ListPayments(ctx context.Context) (*reconciliation.Overview, error)
	GetPayment(ctx context.Context, paymentID string) (*reconciliation.PaymentDetail, error)
}

// PaymentList returns every payment with derived status, links and the
// run-wide summary. Supports `status` and `limit` query filters; the
// summary always covers the unfiltered run.
func PaymentList(svc PaymentReadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		var statusFilter enums.PaymentStatus
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			parsed, err := enums.ParsePaymentStatus(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter"))
				return
			}
			statusFilter = parsed
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxPaymentPageSize)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		overview, err := svc.ListPayments(ctx)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}

		if statusFilter != "" {
			filtered := make([]reconciliation.PaymentDetail, 0, len(overview.Payments))
			for _, detail := range overview.Payments {
				if detail.Status == statusFilter {
					filtered = append(filtered, detail)
				}
			}
			overview.Payments = filtered
		}
		if limit > 0 && len(overview.Payments) > limit {
			overview.Payments = overview.Payments[:limit]
		}

		responses.WriteSuccess(w, overview)
	}
}

// PaymentDetail returns one payment with its derived status and links.
func PaymentDetail(svc PaymentReadService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		if svc == nil {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reconciliation service unavailable"))
			return
		}

		paymentID := chi.URLParam(r, "paymentID")
		if paymentID == "" {
			responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, "payment id is required"))
			return
		}

		detail, err := svc.GetPayment(ctx, paymentID)
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, detail)
	}
}
