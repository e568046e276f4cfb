package webhooks

import (
	"time"

	"github.com/shopspring/decimal"
)

// PaymentCreatedEvent is the payment.created webhook body. The provider
// signs every field except sandbox_id.
type PaymentCreatedEvent struct {
	EventType      string          `json:"event_type" validate:"required,eq=payment.created"`
	PaymentID      string          `json:"payment_id" validate:"required"`
	Reference      string          `json:"reference" validate:"required"`
	ExpectedAmount decimal.Decimal `json:"expected_amount"`
	Currency       string          `json:"currency" validate:"required"`
	PayerName      string          `json:"payer_name" validate:"required"`
	PayerEmail     string          `json:"payer_email" validate:"omitempty,email"`
	DueDate        string          `json:"due_date"`
	Description    *string         `json:"description"`
	Timestamp      time.Time       `json:"timestamp"`
	SandboxID      string          `json:"sandbox_id"`
}

// TransactionSettledEvent is the transaction.settled webhook body.
// Reference may be null and Amount may be negative (refund).
type TransactionSettledEvent struct {
	EventType            string          `json:"event_type" validate:"required,eq=transaction.settled"`
	TransactionID        string          `json:"transaction_id" validate:"required"`
	Reference            *string         `json:"reference"`
	Amount               decimal.Decimal `json:"amount"`
	Currency             string          `json:"currency" validate:"required"`
	PayerName            string          `json:"payer_name"`
	PayerAccountLastFour string          `json:"payer_account_last_four"`
	SettledAt            time.Time       `json:"settled_at"`
	BankReference        string          `json:"bank_reference"`
	Timestamp            time.Time       `json:"timestamp"`
	SandboxID            string          `json:"sandbox_id"`
}
