// Package reconciliation orchestrates the full pipeline: webhook events
// land in the event store, the matching engine recomputes the link set,
// and payment statuses are derived on read.
package reconciliation

import (
	"context"
	stdErrors "errors"
	"sync"
	"time"

	"github.com/advancehq/reconciliation-backend/internal/events"
	"github.com/advancehq/reconciliation-backend/internal/matching"
	"github.com/advancehq/reconciliation-backend/internal/status"
	"github.com/advancehq/reconciliation-backend/internal/webhooks"
	"github.com/advancehq/reconciliation-backend/pkg/db/models"
	"github.com/advancehq/reconciliation-backend/pkg/enums"
	"github.com/advancehq/reconciliation-backend/pkg/errors"
	"github.com/advancehq/reconciliation-backend/pkg/logger"
	"github.com/advancehq/reconciliation-backend/pkg/metrics"
	"github.com/shopspring/decimal"
)

// EventStore is the slice of the event store the orchestrator needs.
type EventStore interface {
	UpsertPayment(ctx context.Context, event webhooks.PaymentCreatedEvent, rawBody []byte) (events.UpsertResult, error)
	UpsertTransaction(ctx context.Context, event webhooks.TransactionSettledEvent, rawBody []byte) (events.UpsertResult, error)
	GetPayment(ctx context.Context, paymentID string) (*models.Payment, error)
	ListPayments(ctx context.Context) ([]models.Payment, error)
	ListTransactions(ctx context.Context) ([]models.Transaction, error)
}

type ServiceParams struct {
	Events   EventStore
	Links    Repository
	Matching matching.Config
	Logger   *logger.Logger
	Metrics  *metrics.IngestMetrics
}

// Service ties ingestion to link recomputation. Recomputes run under a
// single writer mutex: the engine derives the whole link set from the
// stored records, so two interleaved runs would only race to write the
// same result.
type Service struct {
	events   EventStore
	links    Repository
	matching matching.Config
	logg     *logger.Logger
	metrics  *metrics.IngestMetrics

	rematchMu sync.Mutex
	// rematchDirty is set while the persisted links lag the stored
	// events: an insert landed but its recompute never completed.
	// Guarded by rematchMu.
	rematchDirty bool
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Events == nil {
		return nil, stdErrors.New("reconciliation: event store is required")
	}
	if params.Links == nil {
		return nil, stdErrors.New("reconciliation: link repository is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("reconciliation: logger is required")
	}
	return &Service{
		events:   params.Events,
		links:    params.Links,
		matching: params.Matching,
		logg:     params.Logger,
		metrics:  params.Metrics,
	}, nil
}

// IngestPayment stores a payment.created event and, when it is new,
// recomputes the link set before returning.
func (s *Service) IngestPayment(ctx context.Context, event webhooks.PaymentCreatedEvent, rawBody []byte) (events.UpsertResult, error) {
	result, err := s.events.UpsertPayment(ctx, event, rawBody)
	if err != nil {
		return "", err
	}
	s.metrics.ObserveEvent("payments", string(result))
	if result != events.ResultInserted {
		// A redelivery of an already-stored event is the provider's
		// retry loop; use it to heal a recompute that failed last time.
		if s.rematchPending() {
			if err := s.Rematch(ctx); err != nil {
				return "", err
			}
		}
		return result, nil
	}

	ctx = s.logg.WithPaymentID(ctx, event.PaymentID)
	if err := s.Rematch(ctx); err != nil {
		return "", err
	}
	return result, nil
}

// IngestTransaction stores a transaction.settled event and, when it is
// new, recomputes the link set before returning.
func (s *Service) IngestTransaction(ctx context.Context, event webhooks.TransactionSettledEvent, rawBody []byte) (events.UpsertResult, error) {
	result, err := s.events.UpsertTransaction(ctx, event, rawBody)
	if err != nil {
		return "", err
	}
	s.metrics.ObserveEvent("transactions", string(result))
	if result != events.ResultInserted {
		if s.rematchPending() {
			if err := s.Rematch(ctx); err != nil {
				return "", err
			}
		}
		return result, nil
	}

	ctx = s.logg.WithTransactionID(ctx, event.TransactionID)
	if err := s.Rematch(ctx); err != nil {
		return "", err
	}
	return result, nil
}

// Rematch recomputes the link set from the stored records and persists
// it. Safe to call at any time; the result depends only on the records.
func (s *Service) Rematch(ctx context.Context) error {
	s.rematchMu.Lock()
	defer s.rematchMu.Unlock()
	start := time.Now()
	s.rematchDirty = true

	payments, err := s.events.ListPayments(ctx)
	if err != nil {
		return err
	}
	transactions, err := s.events.ListTransactions(ctx)
	if err != nil {
		return err
	}

	links, err := matching.ComputeLinks(payments, transactions, s.matching)
	if err != nil {
		return errors.Wrap(errors.CodeInternal, err, "compute reconciliation links")
	}
	if err := s.links.ReplaceAll(ctx, links); err != nil {
		return errors.Wrap(errors.CodeDependency, err, "persist reconciliation links")
	}
	s.rematchDirty = false

	s.metrics.ObserveRematch(time.Since(start))
	ctx = s.logg.WithFields(ctx, map[string]any{
		"payments":     len(payments),
		"transactions": len(transactions),
		"links":        len(links),
	})
	s.logg.Info(ctx, "reconciliation links recomputed")
	return nil
}

// rematchPending reports whether the persisted link set is behind the
// stored events because the last recompute failed.
func (s *Service) rematchPending() bool {
	s.rematchMu.Lock()
	defer s.rematchMu.Unlock()
	return s.rematchDirty
}

// GetPayment returns one payment with its derived status and links.
func (s *Service) GetPayment(ctx context.Context, paymentID string) (*PaymentDetail, error) {
	payment, err := s.events.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, err
	}

	links, err := s.links.ListByPaymentID(ctx, paymentID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list payment links")
	}

	detail := buildDetail(*payment, links, s.matching.Tolerance)
	return &detail, nil
}

// ListPayments returns every payment with derived state plus a summary
// of the whole reconciliation run.
func (s *Service) ListPayments(ctx context.Context) (*Overview, error) {
	payments, err := s.events.ListPayments(ctx)
	if err != nil {
		return nil, err
	}
	transactions, err := s.events.ListTransactions(ctx)
	if err != nil {
		return nil, err
	}
	links, err := s.links.List(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list links")
	}

	linksByPayment := map[string][]models.Link{}
	allocatedByTxn := map[string]decimal.Decimal{}
	totalAllocated := decimal.Zero
	for _, link := range links {
		linksByPayment[link.PaymentID] = append(linksByPayment[link.PaymentID], link)
		allocatedByTxn[link.TransactionID] = allocatedByTxn[link.TransactionID].Add(link.AllocatedAmount.Abs())
		totalAllocated = totalAllocated.Add(link.AllocatedAmount)
	}

	overview := &Overview{
		Payments: make([]PaymentDetail, 0, len(payments)),
		Summary: Summary{
			PaymentCount:          len(payments),
			TransactionCount:      len(transactions),
			StatusCounts:          map[enums.PaymentStatus]int{},
			TotalExpected:         decimal.Zero,
			TotalAllocated:        totalAllocated,
			UnmatchedTransactions: []string{},
		},
	}

	for _, payment := range payments {
		detail := buildDetail(payment, linksByPayment[payment.PaymentID], s.matching.Tolerance)
		overview.Payments = append(overview.Payments, detail)
		overview.Summary.StatusCounts[detail.Status]++
		overview.Summary.TotalExpected = overview.Summary.TotalExpected.Add(payment.ExpectedAmount)
	}

	for _, txn := range transactions {
		if allocatedByTxn[txn.TransactionID].LessThan(txn.Amount.Abs()) {
			overview.Summary.UnmatchedTransactions = append(overview.Summary.UnmatchedTransactions, txn.TransactionID)
		}
	}
	return overview, nil
}

func buildDetail(payment models.Payment, links []models.Link, tol status.Tolerance) PaymentDetail {
	total := decimal.Zero
	for _, link := range links {
		total = total.Add(link.AllocatedAmount)
	}
	res := status.Resolve(payment.ExpectedAmount, total, tol)
	return PaymentDetail{
		Payment:         payment,
		Status:          res.Status,
		AmountReceived:  res.Total,
		AmountRemaining: res.Remaining,
		Links:           linkViews(links),
	}
}
