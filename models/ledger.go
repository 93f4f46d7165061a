package models

import (
	"errors"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger balance rules shared by customers, wholesalers, bills, and the
// dashboard. Everything here is pure computation over immutable snapshots:
// no DB access, no retained state, safe to call concurrently.
//
// Sign convention: positive balance = the entity owes the shop ("they owe"),
// negative balance = the shop owes the entity (advance held).

var ErrBothBalanceFieldsSet = errors.New("only one of amount-they-owe / amount-i-owe may be positive")

// ComputeOpeningBalance nets a gross (sales, payments) opening pair.
// Missing values are passed as zero decimals by callers.
func ComputeOpeningBalance(sales, payments decimal.Decimal) decimal.Decimal {
	return sales.Sub(payments)
}

// OpeningBalance is the two-field (gross sales, gross payments) ledger form
// stored on an entity.
type OpeningBalance struct {
	Sales    decimal.Decimal `json:"sales"`
	Payments decimal.Decimal `json:"payments"`
}

func (o OpeningBalance) Net() decimal.Decimal {
	return ComputeOpeningBalance(o.Sales, o.Payments)
}

type BalanceKind string

const (
	BalanceOwes    BalanceKind = "owes"    // entity owes the shop
	BalanceAdvance BalanceKind = "advance" // shop owes the entity
	BalanceZero    BalanceKind = "zero"
)

// OpeningEntry is the validated simple-mode entry: exactly one of
// owes/advance may carry an amount. It cannot be constructed both-nonzero.
type OpeningEntry struct {
	kind   BalanceKind
	amount decimal.Decimal
}

// NewOpeningEntry reconciles the simple two-field entry mode into a tagged
// value. Both inputs must be >= 0 and at most one may be positive.
func NewOpeningEntry(amountTheyOwe, amountIOwe decimal.Decimal) (OpeningEntry, error) {
	if amountTheyOwe.IsNegative() || amountIOwe.IsNegative() {
		return OpeningEntry{}, errors.New("opening amounts must not be negative")
	}
	if amountTheyOwe.IsPositive() && amountIOwe.IsPositive() {
		return OpeningEntry{}, ErrBothBalanceFieldsSet
	}
	switch {
	case amountTheyOwe.IsPositive():
		return OpeningEntry{kind: BalanceOwes, amount: amountTheyOwe}, nil
	case amountIOwe.IsPositive():
		return OpeningEntry{kind: BalanceAdvance, amount: amountIOwe}, nil
	default:
		return OpeningEntry{kind: BalanceZero, amount: decimal.Zero}, nil
	}
}

func (e OpeningEntry) Kind() BalanceKind { return e.kind }

func (e OpeningEntry) Amount() decimal.Decimal { return e.amount }

// Detailed converts the tagged entry back to the backend's gross
// (sales, payments) contract.
func (e OpeningEntry) Detailed() OpeningBalance {
	switch e.kind {
	case BalanceOwes:
		return OpeningBalance{Sales: e.amount, Payments: decimal.Zero}
	case BalanceAdvance:
		return OpeningBalance{Sales: decimal.Zero, Payments: e.amount}
	default:
		return OpeningBalance{Sales: decimal.Zero, Payments: decimal.Zero}
	}
}

// ReconcileSimpleToDetailed is the function form of NewOpeningEntry for
// callers that only need the gross pair.
func ReconcileSimpleToDetailed(amountTheyOwe, amountIOwe decimal.Decimal) (OpeningBalance, error) {
	entry, err := NewOpeningEntry(amountTheyOwe, amountIOwe)
	if err != nil {
		return OpeningBalance{}, err
	}
	return entry.Detailed(), nil
}

// ApplyBillPayment derives a bill's due amount and payment status.
// due is clamped at zero; overpayment is handled separately via ExcessPayment.
func ApplyBillPayment(totalAmount, paidAmount decimal.Decimal) (due decimal.Decimal, status BillStatus) {
	due = totalAmount.Sub(paidAmount)
	if due.IsNegative() {
		due = decimal.Zero
	}
	status = BillStatusDue
	if due.IsZero() {
		status = BillStatusPaid
	}
	return due, status
}

// ExcessPayment is the portion of a bill's paid amount beyond its total.
func ExcessPayment(totalAmount, paidAmount decimal.Decimal) decimal.Decimal {
	excess := paidAmount.Sub(totalAmount)
	if excess.IsNegative() {
		return decimal.Zero
	}
	return excess
}

// ApplyExcessToOutstanding applies a bill's excess payment against the
// entity's prior outstanding balance. The result may go negative: that
// remainder is advance credit held by the shop.
func ApplyExcessToOutstanding(outstanding, excess decimal.Decimal) decimal.Decimal {
	return outstanding.Sub(excess)
}

// DueOwed reads a signed balance as "amount owed to the shop" (clamped at 0).
func DueOwed(balance decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return decimal.Zero
	}
	return balance
}

// AdvanceHeld reads a signed balance as "advance held by the shop".
func AdvanceHeld(balance decimal.Decimal) decimal.Decimal {
	if balance.IsNegative() {
		return balance.Neg()
	}
	return decimal.Zero
}

// PeriodRange is an inclusive [Start, End] window on local calendar time.
type PeriodRange struct {
	Start time.Time
	End   time.Time
}

func (r PeriodRange) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// DayRange expands a timestamp to its full local calendar day.
func DayRange(t time.Time) PeriodRange {
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
	end := time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
	return PeriodRange{Start: start, End: end}
}

// EntityPeriodTotals is the per-entity breakdown of a period aggregate.
type EntityPeriodTotals struct {
	EntityId       int             `json:"entityId"`
	EntityName     string          `json:"entityName"`
	TotalPurchased decimal.Decimal `json:"totalPurchased"`
	TotalPaid      decimal.Decimal `json:"totalPaid"`
	OutstandingDue decimal.Decimal `json:"outstandingDue"`
}

type PeriodAggregate struct {
	SalesTotal        decimal.Decimal      `json:"salesTotal"`
	BillsCollected    decimal.Decimal      `json:"billsCollected"`
	PaymentsCollected decimal.Decimal      `json:"paymentsCollected"`
	Collected         decimal.Decimal      `json:"collected"`
	Outstanding       decimal.Decimal      `json:"outstanding"`
	PerEntity         []EntityPeriodTotals `json:"perEntity"`
}

// AggregatePeriod computes period-scoped sales/collection/due figures from a
// snapshot of bills and standalone payments.
//
// collected = max(billsCollected, paymentsCollected): payments may be recorded
// both inside a bill and as an independent payment entry, and taking the max
// of the two sources avoids double-counting. The same reconciliation is
// applied per entity before computing each entity's period outstanding.
//
// PerEntity preserves first-encounter order for equal totals (stable sort by
// totalPurchased descending).
func AggregatePeriod(bills []Bill, payments []Payment, rng PeriodRange) PeriodAggregate {
	agg := PeriodAggregate{
		SalesTotal:        decimal.Zero,
		BillsCollected:    decimal.Zero,
		PaymentsCollected: decimal.Zero,
		Collected:         decimal.Zero,
		Outstanding:       decimal.Zero,
	}

	type entityAcc struct {
		totals      EntityPeriodTotals
		paymentPaid decimal.Decimal
	}
	var order []int
	perEntity := make(map[int]*entityAcc)

	accFor := func(entityId int, entityName string) *entityAcc {
		acc, ok := perEntity[entityId]
		if !ok {
			acc = &entityAcc{
				totals: EntityPeriodTotals{
					EntityId:       entityId,
					EntityName:     entityName,
					TotalPurchased: decimal.Zero,
					TotalPaid:      decimal.Zero,
					OutstandingDue: decimal.Zero,
				},
				paymentPaid: decimal.Zero,
			}
			perEntity[entityId] = acc
			order = append(order, entityId)
		}
		return acc
	}

	for _, bill := range bills {
		if !rng.Contains(bill.CreatedAt) {
			continue
		}
		agg.SalesTotal = agg.SalesTotal.Add(bill.TotalAmount)
		agg.BillsCollected = agg.BillsCollected.Add(bill.PaidAmount)

		acc := accFor(bill.EntityId, bill.EntityName)
		acc.totals.TotalPurchased = acc.totals.TotalPurchased.Add(bill.TotalAmount)
		acc.totals.TotalPaid = acc.totals.TotalPaid.Add(bill.PaidAmount)
	}

	for _, payment := range payments {
		if !rng.Contains(payment.PaymentDate) {
			continue
		}
		agg.PaymentsCollected = agg.PaymentsCollected.Add(payment.Amount)

		acc := accFor(payment.EntityId, payment.EntityName)
		acc.paymentPaid = acc.paymentPaid.Add(payment.Amount)
	}

	agg.Collected = decimal.Max(agg.BillsCollected, agg.PaymentsCollected)
	agg.Outstanding = agg.SalesTotal.Sub(agg.Collected)
	if agg.Outstanding.IsNegative() {
		agg.Outstanding = decimal.Zero
	}

	agg.PerEntity = make([]EntityPeriodTotals, 0, len(order))
	for _, entityId := range order {
		acc := perEntity[entityId]
		paid := decimal.Max(acc.totals.TotalPaid, acc.paymentPaid)
		acc.totals.TotalPaid = paid
		outstanding := acc.totals.TotalPurchased.Sub(paid)
		if outstanding.IsNegative() {
			outstanding = decimal.Zero
		}
		acc.totals.OutstandingDue = outstanding
		agg.PerEntity = append(agg.PerEntity, acc.totals)
	}

	sort.SliceStable(agg.PerEntity, func(i, j int) bool {
		return agg.PerEntity[i].TotalPurchased.GreaterThan(agg.PerEntity[j].TotalPurchased)
	})

	return agg
}

// TopEntities truncates a per-entity breakdown (already sorted) to n rows.
func TopEntities(perEntity []EntityPeriodTotals, n int) []EntityPeriodTotals {
	if n >= len(perEntity) {
		return perEntity
	}
	return perEntity[:n]
}
