package reconciliation

import (
	"github.com/advancehq/reconciliation-backend/pkg/db/models"
	"github.com/advancehq/reconciliation-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// LinkView is the API shape of a reconciliation link.
type LinkView struct {
	LinkID          string           `json:"link_id"`
	TransactionID   string           `json:"transaction_id"`
	PaymentID       string           `json:"payment_id"`
	AllocatedAmount decimal.Decimal  `json:"allocated_amount"`
	MatchBasis      enums.MatchBasis `json:"match_basis"`
	Confidence      float64          `json:"confidence"`
	Notes           *string          `json:"notes,omitempty"`
}

// PaymentDetail is a payment with its derived reconciliation state.
type PaymentDetail struct {
	Payment         models.Payment      `json:"payment"`
	Status          enums.PaymentStatus `json:"status"`
	AmountReceived  decimal.Decimal     `json:"amount_received"`
	AmountRemaining decimal.Decimal     `json:"amount_remaining"`
	Links           []LinkView          `json:"links"`
}

// Summary aggregates reconciliation state across all payments.
type Summary struct {
	PaymentCount          int                         `json:"payment_count"`
	TransactionCount      int                         `json:"transaction_count"`
	StatusCounts          map[enums.PaymentStatus]int `json:"status_counts"`
	TotalExpected         decimal.Decimal             `json:"total_expected"`
	TotalAllocated        decimal.Decimal             `json:"total_allocated"`
	UnmatchedTransactions []string                    `json:"unmatched_transactions"`
}

// Overview is the full reconciliation listing.
type Overview struct {
	Payments []PaymentDetail `json:"payments"`
	Summary  Summary         `json:"summary"`
}

func linkViews(links []models.Link) []LinkView {
	views := make([]LinkView, 0, len(links))
	for _, link := range links {
		views = append(views, LinkView{
			LinkID:          link.ID.String(),
			TransactionID:   link.TransactionID,
			PaymentID:       link.PaymentID,
			AllocatedAmount: link.AllocatedAmount,
			MatchBasis:      link.MatchBasis,
			Confidence:      link.Confidence,
			Notes:           link.Notes,
		})
	}
	return views
}
