package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Payment is an expected money movement ingested from a payment.created
// webhook. Rows are immutable once written; everything derived (status,
// totals) is recomputed from links, never stored here.
type Payment struct {
	PaymentID      string          `gorm:"column:payment_id;primaryKey" json:"payment_id"`
	Reference      string          `gorm:"column:reference;index" json:"reference"`
	ExpectedAmount decimal.Decimal `gorm:"column:expected_amount;type:numeric(14,2);not null" json:"expected_amount"`
	Currency       string          `gorm:"column:currency;not null" json:"currency"`
	PayerName      string          `gorm:"column:payer_name;index" json:"payer_name"`
	PayerEmail     string          `gorm:"column:payer_email" json:"payer_email"`
	DueDate        string          `gorm:"column:due_date" json:"due_date"`
	Description    *string         `gorm:"column:description" json:"description,omitempty"`
	Payload        json.RawMessage `gorm:"column:payload;type:jsonb" json:"-"`
	ReceivedAt     time.Time       `gorm:"column:received_at;not null" json:"received_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (Payment) TableName() string {
	return "payments"
}
