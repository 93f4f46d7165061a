package models_test

import (
	"testing"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/shopspring/decimal"
)

func TestMergeWeeklyTrend_DenseSevenDays(t *testing.T) {
	now := time.Date(2025, 3, 15, 14, 30, 0, 0, time.UTC)
	sales := map[string]decimal.Decimal{
		"2025-03-09": dec("1000"),
		"2025-03-12": dec("250"),
		"2025-03-15": dec("75.5"),
	}
	purchases := map[string]decimal.Decimal{
		"2025-03-12": dec("400"),
	}
	collected := map[string]decimal.Decimal{
		"2025-03-12": dec("100"),
	}

	points := models.MergeWeeklyTrend(sales, purchases, collected, now)
	if len(points) != 7 {
		t.Fatalf("len(points) = %d, want 7", len(points))
	}
	if points[0].Date != "2025-03-09" {
		t.Fatalf("first point %q, want 2025-03-09", points[0].Date)
	}
	if points[6].Date != "2025-03-15" {
		t.Fatalf("last point %q, want 2025-03-15", points[6].Date)
	}
	for i := 1; i < len(points); i++ {
		if points[i].Date <= points[i-1].Date {
			t.Fatalf("points not in ascending day order: %q after %q", points[i].Date, points[i-1].Date)
		}
	}

	if !points[0].Sales.Equal(dec("1000")) {
		t.Fatalf("2025-03-09 sales = %s, want 1000", points[0].Sales)
	}
	mid := points[3]
	if !mid.Sales.Equal(dec("250")) || !mid.Purchases.Equal(dec("400")) || !mid.Collected.Equal(dec("100")) {
		t.Fatalf("2025-03-12 = %s/%s/%s, want 250/400/100", mid.Sales, mid.Purchases, mid.Collected)
	}
	if !points[6].Sales.Equal(dec("75.5")) {
		t.Fatalf("today sales = %s, want 75.5", points[6].Sales)
	}
	// Days with no activity still appear, zero-filled.
	if !points[1].Sales.IsZero() || !points[1].Purchases.IsZero() || !points[1].Collected.IsZero() {
		t.Fatalf("2025-03-10 should be zero-filled, got %+v", points[1])
	}
}

func TestMergeWeeklyTrend_EmptyInputs(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	points := models.MergeWeeklyTrend(nil, nil, nil, now)
	if len(points) != 7 {
		t.Fatalf("len(points) = %d, want 7", len(points))
	}
	for _, p := range points {
		if !p.Sales.IsZero() || !p.Purchases.IsZero() || !p.Collected.IsZero() {
			t.Fatalf("%s should be zero-filled, got %+v", p.Date, p)
		}
	}
	// Window crosses the month boundary back into May.
	if points[0].Date != "2025-05-26" {
		t.Fatalf("first point %q, want 2025-05-26", points[0].Date)
	}
}

func TestMergeWeeklyTrend_IgnoresDaysOutsideWindow(t *testing.T) {
	now := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	sales := map[string]decimal.Decimal{
		"2025-03-01": dec("9999"), // before the window
		"2025-03-16": dec("9999"), // after the window
	}
	points := models.MergeWeeklyTrend(sales, nil, nil, now)
	for _, p := range points {
		if !p.Sales.IsZero() {
			t.Fatalf("%s picked up out-of-window sales %s", p.Date, p.Sales)
		}
	}
}
