package models_test

import (
	"errors"
	"testing"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/shopspring/decimal"
)

// NOTE: These tests are intentionally DB-free. They cover the pure balance
// rules that every posting path (bills, payments, opening edits) relies on.

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestComputeOpeningBalance(t *testing.T) {
	cases := []struct {
		name     string
		sales    string
		payments string
		want     string
	}{
		{"owes", "1500", "500", "1000"},
		{"advance", "200", "700", "-500"},
		{"settled", "300", "300", "0"},
		{"zero", "0", "0", "0"},
		{"fractional", "100.75", "0.25", "100.5"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := models.ComputeOpeningBalance(dec(tc.sales), dec(tc.payments))
			if !got.Equal(dec(tc.want)) {
				t.Fatalf("ComputeOpeningBalance(%s, %s) = %s, want %s", tc.sales, tc.payments, got, tc.want)
			}
		})
	}
}

func TestNewOpeningEntry_RejectsBothPositive(t *testing.T) {
	_, err := models.NewOpeningEntry(dec("100"), dec("50"))
	if !errors.Is(err, models.ErrBothBalanceFieldsSet) {
		t.Fatalf("expected ErrBothBalanceFieldsSet, got %v", err)
	}
}

func TestNewOpeningEntry_RejectsNegative(t *testing.T) {
	if _, err := models.NewOpeningEntry(dec("-1"), decimal.Zero); err == nil {
		t.Fatal("expected error for negative they-owe amount")
	}
	if _, err := models.NewOpeningEntry(decimal.Zero, dec("-1")); err == nil {
		t.Fatal("expected error for negative i-owe amount")
	}
}

func TestNewOpeningEntry_Tagging(t *testing.T) {
	owes, err := models.NewOpeningEntry(dec("250"), decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if owes.Kind() != models.BalanceOwes || !owes.Amount().Equal(dec("250")) {
		t.Fatalf("got kind=%s amount=%s, want owes/250", owes.Kind(), owes.Amount())
	}

	advance, err := models.NewOpeningEntry(decimal.Zero, dec("80"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if advance.Kind() != models.BalanceAdvance || !advance.Amount().Equal(dec("80")) {
		t.Fatalf("got kind=%s amount=%s, want advance/80", advance.Kind(), advance.Amount())
	}

	zero, err := models.NewOpeningEntry(decimal.Zero, decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if zero.Kind() != models.BalanceZero || !zero.Amount().IsZero() {
		t.Fatalf("got kind=%s amount=%s, want zero/0", zero.Kind(), zero.Amount())
	}
}

func TestReconcileSimpleToDetailed(t *testing.T) {
	owes, err := models.ReconcileSimpleToDetailed(dec("250"), decimal.Zero)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !owes.Sales.Equal(dec("250")) || !owes.Payments.IsZero() {
		t.Fatalf("owes mode: got sales=%s payments=%s", owes.Sales, owes.Payments)
	}
	if !owes.Net().Equal(dec("250")) {
		t.Fatalf("owes net = %s, want 250", owes.Net())
	}

	advance, err := models.ReconcileSimpleToDetailed(decimal.Zero, dec("80"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !advance.Sales.IsZero() || !advance.Payments.Equal(dec("80")) {
		t.Fatalf("advance mode: got sales=%s payments=%s", advance.Sales, advance.Payments)
	}
	if !advance.Net().Equal(dec("-80")) {
		t.Fatalf("advance net = %s, want -80", advance.Net())
	}
}

func TestApplyBillPayment(t *testing.T) {
	cases := []struct {
		name       string
		total      string
		paid       string
		wantDue    string
		wantStatus models.BillStatus
	}{
		{"unpaid", "1000", "0", "1000", models.BillStatusDue},
		{"partial", "1000", "400", "600", models.BillStatusDue},
		{"exact", "1000", "1000", "0", models.BillStatusPaid},
		{"overpaid clamps due", "1000", "1200", "0", models.BillStatusPaid},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			due, status := models.ApplyBillPayment(dec(tc.total), dec(tc.paid))
			if !due.Equal(dec(tc.wantDue)) {
				t.Fatalf("due = %s, want %s", due, tc.wantDue)
			}
			if status != tc.wantStatus {
				t.Fatalf("status = %s, want %s", status, tc.wantStatus)
			}
		})
	}
}

func TestExcessPayment(t *testing.T) {
	if got := models.ExcessPayment(dec("1000"), dec("1200")); !got.Equal(dec("200")) {
		t.Fatalf("excess = %s, want 200", got)
	}
	if got := models.ExcessPayment(dec("1000"), dec("700")); !got.IsZero() {
		t.Fatalf("excess = %s, want 0", got)
	}
	if got := models.ExcessPayment(dec("1000"), dec("1000")); !got.IsZero() {
		t.Fatalf("excess = %s, want 0", got)
	}
}

func TestApplyExcessToOutstanding(t *testing.T) {
	// Excess smaller than the prior due: due shrinks.
	balance := models.ApplyExcessToOutstanding(dec("500"), dec("200"))
	if !balance.Equal(dec("300")) {
		t.Fatalf("balance = %s, want 300", balance)
	}
	if !models.DueOwed(balance).Equal(dec("300")) || !models.AdvanceHeld(balance).IsZero() {
		t.Fatalf("due/advance split wrong for %s", balance)
	}

	// Excess larger than the prior due: balance goes negative (advance).
	balance = models.ApplyExcessToOutstanding(dec("150"), dec("200"))
	if !balance.Equal(dec("-50")) {
		t.Fatalf("balance = %s, want -50", balance)
	}
	if !models.DueOwed(balance).IsZero() {
		t.Fatalf("DueOwed(%s) = %s, want 0", balance, models.DueOwed(balance))
	}
	if !models.AdvanceHeld(balance).Equal(dec("50")) {
		t.Fatalf("AdvanceHeld(%s) = %s, want 50", balance, models.AdvanceHeld(balance))
	}
}

func TestDayRange_InclusiveBounds(t *testing.T) {
	loc := time.FixedZone("IST", int((5*time.Hour + 30*time.Minute).Seconds()))
	noon := time.Date(2025, 3, 14, 12, 30, 0, 0, loc)
	rng := models.DayRange(noon)

	if !rng.Contains(time.Date(2025, 3, 14, 0, 0, 0, 0, loc)) {
		t.Fatal("start of day should be inside the range")
	}
	if !rng.Contains(time.Date(2025, 3, 14, 23, 59, 59, 0, loc)) {
		t.Fatal("end of day should be inside the range")
	}
	if rng.Contains(time.Date(2025, 3, 13, 23, 59, 59, 0, loc)) {
		t.Fatal("previous day must be outside the range")
	}
	if rng.Contains(time.Date(2025, 3, 15, 0, 0, 0, 0, loc)) {
		t.Fatal("next day must be outside the range")
	}
}

func billAt(entityId int, name string, total, paid string, at time.Time) models.Bill {
	return models.Bill{
		EntityId:    entityId,
		EntityName:  name,
		TotalAmount: dec(total),
		PaidAmount:  dec(paid),
		CreatedAt:   at,
	}
}

func paymentAt(entityId int, name string, amount string, at time.Time) models.Payment {
	return models.Payment{
		EntityId:    entityId,
		EntityName:  name,
		Amount:      dec(amount),
		PaymentDate: at,
	}
}

func TestAggregatePeriod_CollectedTakesMaxOfSources(t *testing.T) {
	day := time.Date(2025, 6, 10, 10, 0, 0, 0, time.Local)
	rng := models.DayRange(day)

	// A paid bill also produces a payment row; both sources report the same
	// money. Collected must not double-count.
	bills := []models.Bill{billAt(1, "Aung", "1000", "600", day)}
	payments := []models.Payment{paymentAt(1, "Aung", "600", day)}

	agg := models.AggregatePeriod(bills, payments, rng)
	if !agg.SalesTotal.Equal(dec("1000")) {
		t.Fatalf("salesTotal = %s, want 1000", agg.SalesTotal)
	}
	if !agg.Collected.Equal(dec("600")) {
		t.Fatalf("collected = %s, want 600 (max of equal sources)", agg.Collected)
	}
	if !agg.Outstanding.Equal(dec("400")) {
		t.Fatalf("outstanding = %s, want 400", agg.Outstanding)
	}
}

func TestAggregatePeriod_StandalonePaymentsDominate(t *testing.T) {
	day := time.Date(2025, 6, 10, 10, 0, 0, 0, time.Local)
	rng := models.DayRange(day)

	// An unpaid bill plus a standalone settlement: payments side is larger.
	bills := []models.Bill{billAt(1, "Aung", "1000", "0", day)}
	payments := []models.Payment{paymentAt(1, "Aung", "250", day)}

	agg := models.AggregatePeriod(bills, payments, rng)
	if !agg.BillsCollected.IsZero() {
		t.Fatalf("billsCollected = %s, want 0", agg.BillsCollected)
	}
	if !agg.PaymentsCollected.Equal(dec("250")) {
		t.Fatalf("paymentsCollected = %s, want 250", agg.PaymentsCollected)
	}
	if !agg.Collected.Equal(dec("250")) {
		t.Fatalf("collected = %s, want 250", agg.Collected)
	}
	if !agg.Outstanding.Equal(dec("750")) {
		t.Fatalf("outstanding = %s, want 750", agg.Outstanding)
	}
}

func TestAggregatePeriod_OutstandingClampedAtZero(t *testing.T) {
	day := time.Date(2025, 6, 10, 10, 0, 0, 0, time.Local)
	rng := models.DayRange(day)

	// Collections exceeding the period's sales (dues recovered from earlier
	// periods) must not drive outstanding negative.
	bills := []models.Bill{billAt(1, "Aung", "100", "100", day)}
	payments := []models.Payment{paymentAt(1, "Aung", "500", day)}

	agg := models.AggregatePeriod(bills, payments, rng)
	if !agg.Collected.Equal(dec("500")) {
		t.Fatalf("collected = %s, want 500", agg.Collected)
	}
	if !agg.Outstanding.IsZero() {
		t.Fatalf("outstanding = %s, want 0", agg.Outstanding)
	}
}

func TestAggregatePeriod_IgnoresOutOfRange(t *testing.T) {
	day := time.Date(2025, 6, 10, 10, 0, 0, 0, time.Local)
	rng := models.DayRange(day)
	dayBefore := day.AddDate(0, 0, -1)

	bills := []models.Bill{
		billAt(1, "Aung", "1000", "1000", day),
		billAt(1, "Aung", "9999", "9999", dayBefore),
	}
	payments := []models.Payment{paymentAt(1, "Aung", "400", dayBefore)}

	agg := models.AggregatePeriod(bills, payments, rng)
	if !agg.SalesTotal.Equal(dec("1000")) {
		t.Fatalf("salesTotal = %s, want 1000 (out-of-range bill must be excluded)", agg.SalesTotal)
	}
	if !agg.PaymentsCollected.IsZero() {
		t.Fatalf("paymentsCollected = %s, want 0 (out-of-range payment must be excluded)", agg.PaymentsCollected)
	}
}

func TestAggregatePeriod_PerEntitySortAndReconciliation(t *testing.T) {
	day := time.Date(2025, 6, 10, 10, 0, 0, 0, time.Local)
	rng := models.DayRange(day)

	bills := []models.Bill{
		billAt(1, "Aung", "500", "100", day),
		billAt(2, "Hla", "800", "800", day),
		billAt(3, "Mya", "500", "0", day),
	}
	// Entity 1 also has a standalone payment larger than its bill-side paid.
	payments := []models.Payment{paymentAt(1, "Aung", "300", day)}

	agg := models.AggregatePeriod(bills, payments, rng)
	if len(agg.PerEntity) != 3 {
		t.Fatalf("perEntity len = %d, want 3", len(agg.PerEntity))
	}

	// Hla purchased the most; Aung and Mya tie at 500 and must keep
	// first-encounter order (Aung first).
	if agg.PerEntity[0].EntityName != "Hla" {
		t.Fatalf("perEntity[0] = %s, want Hla", agg.PerEntity[0].EntityName)
	}
	if agg.PerEntity[1].EntityName != "Aung" || agg.PerEntity[2].EntityName != "Mya" {
		t.Fatalf("tie order = [%s, %s], want [Aung, Mya]",
			agg.PerEntity[1].EntityName, agg.PerEntity[2].EntityName)
	}

	// Aung's paid reconciles to max(100, 300) = 300, due 200.
	aung := agg.PerEntity[1]
	if !aung.TotalPaid.Equal(dec("300")) {
		t.Fatalf("Aung totalPaid = %s, want 300", aung.TotalPaid)
	}
	if !aung.OutstandingDue.Equal(dec("200")) {
		t.Fatalf("Aung outstandingDue = %s, want 200", aung.OutstandingDue)
	}

	top := models.TopEntities(agg.PerEntity, 2)
	if len(top) != 2 || top[0].EntityName != "Hla" {
		t.Fatalf("TopEntities(2) = %+v", top)
	}
	if got := models.TopEntities(agg.PerEntity, 10); len(got) != 3 {
		t.Fatalf("TopEntities(10) len = %d, want 3", len(got))
	}
}
