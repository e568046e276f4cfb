package models

import (
	"time"

	"github.com/advancehq/reconciliation-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Link attributes a portion of a transaction's amount to a payment.
// Links are derived state: the matching engine replaces the whole set
// on recomputation, it never patches individual rows.
type Link struct {
	ID              uuid.UUID        `gorm:"column:id;type:uuid;primaryKey" json:"link_id"`
	TransactionID   string           `gorm:"column:transaction_id;index;not null" json:"transaction_id"`
	PaymentID       string           `gorm:"column:payment_id;index;not null" json:"payment_id"`
	AllocatedAmount decimal.Decimal  `gorm:"column:allocated_amount;type:numeric(14,2);not null" json:"allocated_amount"`
	MatchBasis      enums.MatchBasis `gorm:"column:match_basis;not null" json:"match_basis"`
	Confidence      float64          `gorm:"column:confidence;not null" json:"confidence"`
	Notes           *string          `gorm:"column:notes" json:"notes,omitempty"`
	CreatedAt       time.Time        `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (Link) TableName() string {
	return "reconciliation_links"
}
