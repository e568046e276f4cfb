package events

import (
	"bytes"
	"context"
	stdErrors "errors"
	"time"

	"github.com/advancehq/reconciliation-backend/internal/webhooks"
	"github.com/advancehq/reconciliation-backend/pkg/db/models"
	"github.com/advancehq/reconciliation-backend/pkg/errors"
	"github.com/advancehq/reconciliation-backend/pkg/locks"
	"github.com/advancehq/reconciliation-backend/pkg/logger"
	"github.com/shopspring/decimal"
)

// UpsertResult classifies what happened to an incoming event record.
type UpsertResult string

const (
	// ResultInserted means the record was stored for the first time.
	ResultInserted UpsertResult = "inserted"
	// ResultDuplicate means an identical record already existed. The
	// redelivery is acknowledged and discarded.
	ResultDuplicate UpsertResult = "duplicate"
	// ResultConflict means a record with the same id but a different
	// payload already existed. The original record wins.
	ResultConflict UpsertResult = "conflict"
)

const (
	lockScopePayment     = "payment:"
	lockScopeTransaction = "transaction:"
)

type ServiceParams struct {
	Repo   Repository
	Locks  *locks.Keyed
	Logger *logger.Logger
}

// Service is the event store. It is the single writer of payment and
// transaction rows and the source of truth for webhook idempotency:
// the same event id always resolves to the record stored first.
type Service struct {
	repo  Repository
	locks *locks.Keyed
	logg  *logger.Logger
	nowFn func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, stdErrors.New("events: repository is required")
	}
	if params.Logger == nil {
		return nil, stdErrors.New("events: logger is required")
	}
	keyed := params.Locks
	if keyed == nil {
		keyed = locks.NewKeyed(0)
	}
	return &Service{
		repo:  params.Repo,
		locks: keyed,
		logg:  params.Logger,
		nowFn: time.Now,
	}, nil
}

// UpsertPayment stores a payment.created event. rawBody is the webhook
// body as delivered; its canonical form is persisted so redeliveries can
// be told apart from conflicting reuses of the same payment id.
func (s *Service) UpsertPayment(ctx context.Context, event webhooks.PaymentCreatedEvent, rawBody []byte) (UpsertResult, error) {
	if event.ExpectedAmount.LessThanOrEqual(decimal.Zero) {
		return "", errors.New(errors.CodeValidation, "expected_amount must be positive")
	}

	canonical, err := webhooks.CanonicalJSON(rawBody)
	if err != nil {
		return "", errors.Wrap(errors.CodeValidation, err, "canonicalize payment payload")
	}

	key := lockScopePayment + event.PaymentID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	record := &models.Payment{
		PaymentID:      event.PaymentID,
		Reference:      event.Reference,
		ExpectedAmount: event.ExpectedAmount,
		Currency:       event.Currency,
		PayerName:      event.PayerName,
		PayerEmail:     event.PayerEmail,
		DueDate:        event.DueDate,
		Description:    event.Description,
		Payload:        canonical,
		ReceivedAt:     s.nowFn().UTC(),
	}

	inserted, err := s.repo.CreatePaymentIfAbsent(ctx, record)
	if err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "store payment event")
	}
	if inserted {
		return ResultInserted, nil
	}

	existing, err := s.repo.GetPayment(ctx, event.PaymentID)
	if err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "load stored payment event")
	}
	if existing == nil {
		return "", errors.New(errors.CodeInternal, "payment insert skipped but record missing")
	}
	if samePayload(existing.Payload, canonical) {
		return ResultDuplicate, nil
	}

	ctx = s.logg.WithPaymentID(ctx, event.PaymentID)
	s.logg.Warn(ctx, "payment id reused with a different payload, keeping original record")
	return ResultConflict, nil
}

// UpsertTransaction stores a transaction.settled event. Zero amounts are
// rejected; negative amounts are refunds and pass through unchanged.
func (s *Service) UpsertTransaction(ctx context.Context, event webhooks.TransactionSettledEvent, rawBody []byte) (UpsertResult, error) {
	if event.Amount.IsZero() {
		return "", errors.New(errors.CodeValidation, "amount must be non-zero")
	}

	canonical, err := webhooks.CanonicalJSON(rawBody)
	if err != nil {
		return "", errors.Wrap(errors.CodeValidation, err, "canonicalize transaction payload")
	}

	key := lockScopeTransaction + event.TransactionID
	s.locks.Lock(key)
	defer s.locks.Unlock(key)

	record := &models.Transaction{
		TransactionID:        event.TransactionID,
		Reference:            event.Reference,
		Amount:               event.Amount,
		Currency:             event.Currency,
		PayerName:            event.PayerName,
		PayerAccountLastFour: event.PayerAccountLastFour,
		SettledAt:            event.SettledAt,
		BankReference:        event.BankReference,
		Payload:              canonical,
		ReceivedAt:           s.nowFn().UTC(),
	}

	inserted, err := s.repo.CreateTransactionIfAbsent(ctx, record)
	if err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "store transaction event")
	}
	if inserted {
		return ResultInserted, nil
	}

	existing, err := s.repo.GetTransaction(ctx, event.TransactionID)
	if err != nil {
		return "", errors.Wrap(errors.CodeDependency, err, "load stored transaction event")
	}
	if existing == nil {
		return "", errors.New(errors.CodeInternal, "transaction insert skipped but record missing")
	}
	if samePayload(existing.Payload, canonical) {
		return ResultDuplicate, nil
	}

	ctx = s.logg.WithTransactionID(ctx, event.TransactionID)
	s.logg.Warn(ctx, "transaction id reused with a different payload, keeping original record")
	return ResultConflict, nil
}

// GetPayment returns the stored payment or a NOT_FOUND error.
func (s *Service) GetPayment(ctx context.Context, paymentID string) (*models.Payment, error) {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "load payment")
	}
	if payment == nil {
		return nil, errors.New(errors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

// ListPayments returns all stored payments ordered by payment id.
func (s *Service) ListPayments(ctx context.Context) ([]models.Payment, error) {
	payments, err := s.repo.ListPayments(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list payments")
	}
	return payments, nil
}

// ListTransactions returns all stored transactions ordered by
// transaction id.
func (s *Service) ListTransactions(ctx context.Context) ([]models.Transaction, error) {
	txns, err := s.repo.ListTransactions(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.CodeDependency, err, "list transactions")
	}
	return txns, nil
}

func samePayload(stored, incoming []byte) bool {
	if canonical, err := webhooks.CanonicalJSON(stored); err == nil {
		stored = canonical
	}
	return bytes.Equal(stored, incoming)
}
