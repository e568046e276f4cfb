package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is a settled bank movement ingested from a
// transaction.settled webhook. Amount is signed; negative means refund.
type Transaction struct {
	TransactionID        string          `gorm:"column:transaction_id;primaryKey" json:"transaction_id"`
	Reference            *string         `gorm:"column:reference;index" json:"reference"`
	Amount               decimal.Decimal `gorm:"column:amount;type:numeric(14,2);not null" json:"amount"`
	Currency             string          `gorm:"column:currency;not null" json:"currency"`
	PayerName            string          `gorm:"column:payer_name;index" json:"payer_name"`
	PayerAccountLastFour string          `gorm:"column:payer_account_last_four" json:"payer_account_last_four"`
	SettledAt            time.Time       `gorm:"column:settled_at" json:"settled_at"`
	BankReference        string          `gorm:"column:bank_reference" json:"bank_reference"`
	Payload              json.RawMessage `gorm:"column:payload;type:jsonb" json:"-"`
	ReceivedAt           time.Time       `gorm:"column:received_at;not null" json:"received_at"`
	CreatedAt            time.Time       `gorm:"column:created_at;autoCreateTime" json:"-"`
}

func (Transaction) TableName() string {
	return "transactions"
}
