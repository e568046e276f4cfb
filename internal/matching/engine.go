// Package matching turns the stored payment and transaction records
// into reconciliation links. The engine recomputes the full link set
// from scratch on every run: given the same records and config it
// produces the same links regardless of the order events arrived in.
package matching

import (
	"fmt"
	"sort"

	"github.com/advancehq/reconciliation-backend/pkg/db/models"
	"github.com/advancehq/reconciliation-backend/pkg/enums"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
)

type paymentState struct {
	payment *models.Payment
	nameKey string
	refKey  string
	net     decimal.Decimal
}

func (p *paymentState) remaining() decimal.Decimal {
	return p.payment.ExpectedAmount.Sub(p.net)
}

type candidate struct {
	state      *paymentState
	basis      enums.MatchBasis
	confidence float64
}

// ComputeLinks derives the complete link set for the given records.
// Settlements are processed before refunds; within each phase
// transactions are walked in id order and each one allocates greedily
// to its candidates, strongest first. The returned links are sorted by
// (transaction_id, payment_id).
func ComputeLinks(payments []models.Payment, transactions []models.Transaction, cfg Config) ([]models.Link, error) {
	states := make([]*paymentState, 0, len(payments))
	for i := range payments {
		states = append(states, &paymentState{
			payment: &payments[i],
			nameKey: NormalizePayerName(payments[i].PayerName),
			refKey:  NormalizeReference(payments[i].Reference),
		})
	}
	sort.Slice(states, func(i, j int) bool {
		return states[i].payment.PaymentID < states[j].payment.PaymentID
	})

	ordered := make([]*models.Transaction, 0, len(transactions))
	for i := range transactions {
		ordered = append(ordered, &transactions[i])
	}
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].TransactionID < ordered[j].TransactionID
	})

	var links []models.Link
	for _, txn := range ordered {
		if txn.Amount.IsPositive() {
			links = append(links, matchSettlement(txn, states, cfg)...)
		}
	}
	for _, txn := range ordered {
		if txn.Amount.IsNegative() {
			links = append(links, matchRefund(txn, states, cfg)...)
		}
	}

	sort.Slice(links, func(i, j int) bool {
		if links[i].TransactionID != links[j].TransactionID {
			return links[i].TransactionID < links[j].TransactionID
		}
		return links[i].PaymentID < links[j].PaymentID
	})

	if err := verifyLinks(payments, transactions, links); err != nil {
		return nil, err
	}
	return links, nil
}

// matchSettlement allocates a positive transaction across its candidate
// payments. When the transaction is reference-matched, any amount left
// after the open balances are exhausted is attributed to the strongest
// reference candidate so overpayments surface on the right payment
// instead of dangling unmatched.
func matchSettlement(txn *models.Transaction, states []*paymentState, cfg Config) []models.Link {
	candidates, referenced := candidatesForSettlement(txn, states, cfg)
	if len(candidates) == 0 {
		return nil
	}

	var links []models.Link
	linkIndexByPayment := map[string]int{}
	remaining := txn.Amount

	for _, cand := range candidates {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		open := cand.state.remaining()
		if open.LessThanOrEqual(decimal.Zero) {
			continue
		}
		alloc := decimal.Min(remaining, open)
		linkIndexByPayment[cand.state.payment.PaymentID] = len(links)
		links = append(links, newLink(txn, cand, alloc))
		cand.state.net = cand.state.net.Add(alloc)
		remaining = remaining.Sub(alloc)
	}

	if remaining.GreaterThan(decimal.Zero) && referenced {
		best := candidates[0]
		if idx, ok := linkIndexByPayment[best.state.payment.PaymentID]; ok {
			links[idx].AllocatedAmount = links[idx].AllocatedAmount.Add(remaining)
		} else {
			links = append(links, newLink(txn, best, remaining))
		}
		best.state.net = best.state.net.Add(remaining)
	}
	return links
}

// matchRefund allocates a negative transaction against payments that
// have settled money to give back. A refund never drives a payment's
// net below zero; anything it cannot place stays unmatched.
func matchRefund(txn *models.Transaction, states []*paymentState, cfg Config) []models.Link {
	candidates := candidatesForRefund(txn, states, cfg)

	var links []models.Link
	remaining := txn.Amount.Abs()
	note := "refund"

	for _, cand := range candidates {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		refundable := cand.state.net
		if refundable.LessThanOrEqual(decimal.Zero) {
			continue
		}
		alloc := decimal.Min(remaining, refundable)
		link := newLink(txn, cand, alloc.Neg())
		link.Notes = &note
		links = append(links, link)
		cand.state.net = cand.state.net.Sub(alloc)
		remaining = remaining.Sub(alloc)
	}
	return links
}

// candidatesForSettlement ranks payments for a positive transaction.
// Reference matches trump everything: when any exist, name matching is
// not consulted at all. The boolean reports whether the returned
// candidates are reference-based.
//
// The name tier gates on the payment's expected amount, never on its
// mutable balance: a transaction that qualified once keeps qualifying
// as other settlements land, so recomputing after a new event can only
// grow a payment's matched total. The allocation loop caps what a
// candidate actually receives by the open balance.
func candidatesForSettlement(txn *models.Transaction, states []*paymentState, cfg Config) ([]candidate, bool) {
	if cands := referenceCandidates(txn, states, cfg); len(cands) > 0 {
		return cands, true
	}

	nameKey := NormalizePayerName(txn.PayerName)
	if nameKey == "" {
		return nil, false
	}
	amount := txn.Amount.Abs()

	var cands []candidate
	for _, state := range states {
		if state.payment.Currency != txn.Currency || state.nameKey == "" {
			continue
		}
		nameScore := cfg.scorer()(nameKey, state.nameKey)
		if nameScore < cfg.NameSimilarityThreshold {
			continue
		}

		expected := state.payment.ExpectedAmount
		diff := expected.Sub(amount).Abs()
		if diff.GreaterThan(cfg.Tolerance.Amount(expected)) {
			continue
		}

		amountScore, _ := decimal.NewFromInt(1).Sub(diff.Div(expected)).Float64()
		cands = append(cands, candidate{
			state:      state,
			basis:      enums.MatchBasisNameAmount,
			confidence: nameScore * amountScore,
		})
	}
	sortCandidates(cands)
	return cands, false
}

// candidatesForRefund ranks payments for a negative transaction. Only
// payments holding settled money qualify; without an open balance the
// name tier falls back to comparing the refund against the net settled.
func candidatesForRefund(txn *models.Transaction, states []*paymentState, cfg Config) []candidate {
	cands := referenceCandidates(txn, states, cfg)
	if len(cands) == 0 {
		nameKey := NormalizePayerName(txn.PayerName)
		if nameKey == "" {
			return nil
		}
		amount := txn.Amount.Abs()
		for _, state := range states {
			if state.payment.Currency != txn.Currency || state.nameKey == "" {
				continue
			}
			nameScore := cfg.scorer()(nameKey, state.nameKey)
			if nameScore < cfg.NameSimilarityThreshold {
				continue
			}
			if state.net.LessThanOrEqual(decimal.Zero) {
				continue
			}
			diff := state.net.Sub(amount).Abs()
			if diff.GreaterThan(cfg.Tolerance.Amount(state.net)) {
				continue
			}
			amountScore, _ := decimal.NewFromInt(1).Sub(diff.Div(state.net)).Float64()
			cands = append(cands, candidate{
				state:      state,
				basis:      enums.MatchBasisNameAmount,
				confidence: nameScore * amountScore,
			})
		}
		sortCandidates(cands)
		return cands
	}

	filtered := cands[:0]
	for _, cand := range cands {
		if cand.state.net.GreaterThan(decimal.Zero) {
			filtered = append(filtered, cand)
		}
	}
	return filtered
}

// referenceCandidates matches on the payment reference. An exact match
// after normalization carries full confidence; anything at or above the
// similarity threshold qualifies as fuzzy with the score as confidence.
func referenceCandidates(txn *models.Transaction, states []*paymentState, cfg Config) []candidate {
	if txn.Reference == nil {
		return nil
	}
	refKey := NormalizeReference(*txn.Reference)
	if refKey == "" {
		return nil
	}

	var cands []candidate
	for _, state := range states {
		if state.payment.Currency != txn.Currency || state.refKey == "" {
			continue
		}
		if state.refKey == refKey {
			cands = append(cands, candidate{
				state:      state,
				basis:      enums.MatchBasisExactReference,
				confidence: 1.0,
			})
			continue
		}
		score := cfg.scorer()(refKey, state.refKey)
		if score >= cfg.RefSimilarityThreshold {
			cands = append(cands, candidate{
				state:      state,
				basis:      enums.MatchBasisFuzzyReference,
				confidence: score,
			})
		}
	}
	sortCandidates(cands)
	return cands
}

func sortCandidates(cands []candidate) {
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].confidence != cands[j].confidence {
			return cands[i].confidence > cands[j].confidence
		}
		return cands[i].state.payment.PaymentID < cands[j].state.payment.PaymentID
	})
}

func newLink(txn *models.Transaction, cand candidate, amount decimal.Decimal) models.Link {
	return models.Link{
		ID:              uuid.New(),
		TransactionID:   txn.TransactionID,
		PaymentID:       cand.state.payment.PaymentID,
		AllocatedAmount: amount,
		MatchBasis:      cand.basis,
		Confidence:      cand.confidence,
	}
}

// verifyLinks asserts the structural invariants of a computed link set.
// A violation is a bug in the engine, not bad input, so all failures
// are collected and returned at once.
func verifyLinks(payments []models.Payment, transactions []models.Transaction, links []models.Link) error {
	paymentIDs := make(map[string]struct{}, len(payments))
	for _, p := range payments {
		paymentIDs[p.PaymentID] = struct{}{}
	}
	txnAmounts := make(map[string]decimal.Decimal, len(transactions))
	for _, t := range transactions {
		txnAmounts[t.TransactionID] = t.Amount
	}

	var err error
	allocatedByTxn := map[string]decimal.Decimal{}
	for _, link := range links {
		if _, ok := paymentIDs[link.PaymentID]; !ok {
			err = multierr.Append(err, fmt.Errorf("link %s targets unknown payment %s", link.ID, link.PaymentID))
		}
		if _, ok := txnAmounts[link.TransactionID]; !ok {
			err = multierr.Append(err, fmt.Errorf("link %s targets unknown transaction %s", link.ID, link.TransactionID))
		}
		if link.AllocatedAmount.IsZero() {
			err = multierr.Append(err, fmt.Errorf("link %s carries a zero allocation", link.ID))
		}
		if link.MatchBasis == enums.MatchBasisManualTolerance || !link.MatchBasis.IsValid() {
			err = multierr.Append(err, fmt.Errorf("link %s carries illegal basis %s", link.ID, link.MatchBasis))
		}
		if link.Confidence < 0 || link.Confidence > 1 {
			err = multierr.Append(err, fmt.Errorf("link %s carries confidence %f outside [0, 1]", link.ID, link.Confidence))
		}
		allocatedByTxn[link.TransactionID] = allocatedByTxn[link.TransactionID].Add(link.AllocatedAmount.Abs())
	}

	for txnID, allocated := range allocatedByTxn {
		if amount, ok := txnAmounts[txnID]; ok && allocated.GreaterThan(amount.Abs()) {
			err = multierr.Append(err, fmt.Errorf(
				"transaction %s allocated %s beyond its amount %s", txnID, allocated, amount))
		}
	}
	return err
}
