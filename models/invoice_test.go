package models_test

import (
	"testing"

	"bitbucket.org/mmsoftdev/shopbooks_backend/models"
	"github.com/shopspring/decimal"
)

func items(pairs ...[2]string) []models.NewInvoiceItem {
	out := make([]models.NewInvoiceItem, 0, len(pairs))
	for i, p := range pairs {
		out = append(out, models.NewInvoiceItem{
			Name:     string(rune('A' + i)),
			Quantity: dec(p[0]),
			Price:    dec(p[1]),
		})
	}
	return out
}

func TestComputeInvoiceTotals_FixedDiscount(t *testing.T) {
	lineItems, subtotal, tax, discount, total := models.ComputeInvoiceTotals(
		items([2]string{"2", "150"}, [2]string{"1", "700"}),
		dec("5"), models.DiscountTypeFixed, dec("100"))

	if len(lineItems) != 2 {
		t.Fatalf("lineItems len = %d, want 2", len(lineItems))
	}
	if !lineItems[0].Amount.Equal(dec("300")) {
		t.Fatalf("line 0 amount = %s, want 300", lineItems[0].Amount)
	}
	if !subtotal.Equal(dec("1000")) {
		t.Fatalf("subtotal = %s, want 1000", subtotal)
	}
	if !tax.Equal(dec("50")) {
		t.Fatalf("tax = %s, want 50", tax)
	}
	if !discount.Equal(dec("100")) {
		t.Fatalf("discount = %s, want 100", discount)
	}
	if !total.Equal(dec("950")) {
		t.Fatalf("total = %s, want 950", total)
	}
}

func TestComputeInvoiceTotals_PercentageDiscount(t *testing.T) {
	// Percentage discount is taken from the subtotal, not subtotal+tax.
	_, subtotal, tax, discount, total := models.ComputeInvoiceTotals(
		items([2]string{"4", "250"}),
		dec("10"), models.DiscountTypePercentage, dec("20"))

	if !subtotal.Equal(dec("1000")) {
		t.Fatalf("subtotal = %s, want 1000", subtotal)
	}
	if !tax.Equal(dec("100")) {
		t.Fatalf("tax = %s, want 100", tax)
	}
	if !discount.Equal(dec("200")) {
		t.Fatalf("discount = %s, want 200 (20%% of subtotal)", discount)
	}
	if !total.Equal(dec("900")) {
		t.Fatalf("total = %s, want 900", total)
	}
}

func TestComputeInvoiceTotals_TotalFlooredAtZero(t *testing.T) {
	_, _, _, _, total := models.ComputeInvoiceTotals(
		items([2]string{"1", "50"}),
		decimal.Zero, models.DiscountTypeFixed, dec("500"))
	if !total.IsZero() {
		t.Fatalf("total = %s, want 0 when discount exceeds the invoice", total)
	}
}

func TestComputeInvoiceTotals_NoItems(t *testing.T) {
	lineItems, subtotal, tax, discount, total := models.ComputeInvoiceTotals(
		nil, dec("5"), models.DiscountTypeFixed, decimal.Zero)
	if len(lineItems) != 0 {
		t.Fatalf("lineItems len = %d, want 0", len(lineItems))
	}
	if !subtotal.IsZero() || !tax.IsZero() || !discount.IsZero() || !total.IsZero() {
		t.Fatalf("expected all-zero totals, got subtotal=%s tax=%s discount=%s total=%s",
			subtotal, tax, discount, total)
	}
}

func TestWhatsAppShareLink(t *testing.T) {
	invoice := models.Invoice{
		InvoiceNumber: "INV-2025-03-0001",
		ShopName:      "Mg Mg Store",
		CustomerName:  "Aung Aung",
		Total:         dec("1250.5"),
		Status:        models.InvoiceStatusSent,
	}
	link := invoice.WhatsAppShareLink()
	if link == "" {
		t.Fatal("empty share link")
	}
	const prefix = "https://wa.me/?text="
	if link[:len(prefix)] != prefix {
		t.Fatalf("link %q does not start with %q", link, prefix)
	}
	// The payload must be URL-encoded: no raw spaces or newlines survive.
	for _, ch := range link {
		if ch == ' ' || ch == '\n' {
			t.Fatalf("link contains unencoded whitespace: %q", link)
		}
	}
}
