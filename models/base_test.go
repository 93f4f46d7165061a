package models_test

import (
	"regexp"
	"testing"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
)

func TestGenerateBillNumber_Format(t *testing.T) {
	at := time.Date(2025, 3, 14, 10, 0, 0, 0, time.Local)
	pattern := regexp.MustCompile(`^BILL-202503-[0-9A-Z]{6}$`)

	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		number := models.GenerateBillNumber(at)
		if !pattern.MatchString(number) {
			t.Fatalf("bill number %q does not match expected format", number)
		}
		seen[number] = true
	}
	// Not a uniqueness guarantee (the DB index is), but 100 draws of a
	// 36^6 space collapsing to a handful would mean the RNG is broken.
	if len(seen) < 90 {
		t.Fatalf("suspiciously many collisions: %d unique of 100", len(seen))
	}
}

func TestNextInvoiceNumber(t *testing.T) {
	march := time.Date(2025, 3, 14, 10, 0, 0, 0, time.Local)
	april := time.Date(2025, 4, 1, 0, 0, 0, 0, time.Local)

	cases := []struct {
		name string
		last string
		now  time.Time
		want string
	}{
		{"first ever", "", march, "INV-2025-03-0001"},
		{"same month continues", "INV-2025-03-0007", march, "INV-2025-03-0008"},
		{"new month restarts", "INV-2025-03-0042", april, "INV-2025-04-0001"},
		{"new year restarts", "INV-2024-03-0042", march, "INV-2025-03-0001"},
		{"garbage restarts", "not-a-number", march, "INV-2025-03-0001"},
		{"sequence grows past 4 digits", "INV-2025-03-9999", march, "INV-2025-03-10000"},
		{"whitespace tolerated", "  INV-2025-03-0002  ", march, "INV-2025-03-0003"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := models.NextInvoiceNumber(tc.last, tc.now)
			if got != tc.want {
				t.Fatalf("NextInvoiceNumber(%q) = %q, want %q", tc.last, got, tc.want)
			}
		})
	}
}

func TestInvoiceStatusTransitions(t *testing.T) {
	type transition struct {
		from, to models.InvoiceStatus
		allowed  bool
	}
	cases := []transition{
		{models.InvoiceStatusDraft, models.InvoiceStatusSent, true},
		{models.InvoiceStatusDraft, models.InvoiceStatusPaid, false},
		{models.InvoiceStatusDraft, models.InvoiceStatusCancelled, true},
		{models.InvoiceStatusSent, models.InvoiceStatusPaid, true},
		{models.InvoiceStatusSent, models.InvoiceStatusCancelled, true},
		{models.InvoiceStatusSent, models.InvoiceStatusDraft, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusCancelled, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusSent, false},
		{models.InvoiceStatusCancelled, models.InvoiceStatusDraft, false},
		{models.InvoiceStatusCancelled, models.InvoiceStatusSent, false},
		// Re-applying the current status is not a transition.
		{models.InvoiceStatusDraft, models.InvoiceStatusDraft, false},
		{models.InvoiceStatusPaid, models.InvoiceStatusPaid, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransitionTo(tc.to); got != tc.allowed {
			t.Errorf("%s -> %s: got %v, want %v", tc.from, tc.to, got, tc.allowed)
		}
	}
}
