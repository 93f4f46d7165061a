package models

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Invoice is a formatted customer-facing document, separate from the bill
// ledger. Its shop fields are snapshotted at issue time so later profile
// changes do not rewrite documents already sent out.
type Invoice struct {
	ID            int    `gorm:"primary_key" json:"id"`
	ShopkeeperId  int    `gorm:"index;not null;uniqueIndex:idx_invoice_number,priority:1" json:"shopkeeper_id"`
	InvoiceNumber string `gorm:"size:30;not null;uniqueIndex:idx_invoice_number,priority:2" json:"invoice_number"`

	CustomerName    string `gorm:"size:100;not null" json:"customer_name"`
	CustomerPhone   string `gorm:"size:20" json:"customer_phone"`
	CustomerAddress string `gorm:"size:255" json:"customer_address"`

	Items []InvoiceItem `gorm:"foreignKey:InvoiceId" json:"items"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"subtotal"`
	TaxRate        decimal.Decimal `gorm:"type:decimal(10,4);default:0" json:"tax_rate"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"tax_amount"`
	DiscountType   DiscountType    `gorm:"type:enum('percentage','fixed');default:'fixed'" json:"discount_type"`
	DiscountValue  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_value"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"discount_amount"`
	Total          decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total"`

	Status      InvoiceStatus   `gorm:"type:enum('draft','sent','paid','cancelled');default:'draft';index" json:"status"`
	IssuedDate  time.Time       `gorm:"not null" json:"issued_date"`
	DueDate     *time.Time      `json:"due_date"`
	Notes       string          `gorm:"size:500" json:"notes"`
	Template    InvoiceTemplate `gorm:"size:20;default:'classic'" json:"template"`
	ColorScheme ColorScheme     `gorm:"size:20;default:'blue'" json:"color_scheme"`

	ShopName      string `gorm:"size:100" json:"shop_name"`
	ShopAddress   string `gorm:"size:255" json:"shop_address"`
	ShopPhone     string `gorm:"size:20" json:"shop_phone"`
	Signature     string `gorm:"type:text" json:"signature"`
	SignatureName string `gorm:"size:100" json:"signature_name"`

	IsDeleted *bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt *time.Time `json:"deleted_at"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type InvoiceItem struct {
	ID        int             `gorm:"primary_key" json:"id"`
	InvoiceId int             `gorm:"index;not null" json:"invoice_id"`
	Name      string          `gorm:"size:100;not null" json:"name"`
	Quantity  decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"quantity"`
	Price     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"price"`
	Amount    decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
}

type NewInvoiceItem struct {
	Name     string          `json:"name" binding:"required"`
	Quantity decimal.Decimal `json:"quantity" binding:"required"`
	Price    decimal.Decimal `json:"price" binding:"required"`
}

type NewInvoice struct {
	InvoiceNumber   string           `json:"invoice_number"`
	CustomerName    string           `json:"customer_name" binding:"required"`
	CustomerPhone   string           `json:"customer_phone"`
	CustomerAddress string           `json:"customer_address"`
	Items           []NewInvoiceItem `json:"items" binding:"required,min=1,dive"`
	TaxRate         decimal.Decimal  `json:"tax_rate"`
	DiscountType    DiscountType     `json:"discount_type"`
	DiscountValue   decimal.Decimal  `json:"discount_value"`
	DueDate         *time.Time       `json:"due_date"`
	Notes           string           `json:"notes"`
	Template        InvoiceTemplate  `json:"template"`
	ColorScheme     ColorScheme      `json:"color_scheme"`
}

func (input *NewInvoice) validate() error {
	for _, item := range input.Items {
		if !item.Quantity.IsPositive() {
			return errors.New("item quantity must be greater than zero")
		}
		if item.Price.IsNegative() {
			return errors.New("item price must not be negative")
		}
	}
	if input.TaxRate.IsNegative() {
		return errors.New("tax rate must not be negative")
	}
	if input.DiscountValue.IsNegative() {
		return errors.New("discount value must not be negative")
	}
	if input.DiscountType != "" && !input.DiscountType.IsValid() {
		return errors.New("invalid discount type")
	}
	if input.Template != "" && !input.Template.IsValid() {
		return errors.New("invalid invoice template")
	}
	if input.ColorScheme != "" && !input.ColorScheme.IsValid() {
		return errors.New("invalid color scheme")
	}
	return nil
}

// ComputeInvoiceTotals derives line amounts, subtotal, tax and discount in
// order: subtotal, then tax on the subtotal, then the discount. A percentage
// discount is taken from the subtotal; a fixed discount is used as-is. The
// grand total is floored at zero.
func ComputeInvoiceTotals(items []NewInvoiceItem, taxRate decimal.Decimal, discountType DiscountType, discountValue decimal.Decimal) (lineItems []InvoiceItem, subtotal, taxAmount, discountAmount, total decimal.Decimal) {
	subtotal = decimal.Zero
	lineItems = make([]InvoiceItem, 0, len(items))
	for _, item := range items {
		amount := item.Quantity.Mul(item.Price)
		lineItems = append(lineItems, InvoiceItem{
			Name:     item.Name,
			Quantity: item.Quantity,
			Price:    item.Price,
			Amount:   amount,
		})
		subtotal = subtotal.Add(amount)
	}

	taxAmount = subtotal.Mul(taxRate).Div(decimal.NewFromInt(100))
	if discountType == DiscountTypePercentage {
		discountAmount = subtotal.Mul(discountValue).Div(decimal.NewFromInt(100))
	} else {
		discountAmount = discountValue
	}

	total = subtotal.Add(taxAmount).Sub(discountAmount)
	if total.IsNegative() {
		total = decimal.Zero
	}
	return lineItems, subtotal, taxAmount, discountAmount, total
}

// lastInvoiceNumber finds the most recently issued number for this shopkeeper,
// ignoring soft-deleted invoices so their numbers still never get reused.
func lastInvoiceNumber(ctx context.Context, db *gorm.DB, shopkeeperId int) string {
	var invoice Invoice
	err := db.WithContext(ctx).
		Where("shopkeeper_id = ?", shopkeeperId).
		Order("id DESC").
		Take(&invoice).Error
	if err != nil {
		return ""
	}
	return invoice.InvoiceNumber
}

// CreateInvoice issues a new invoice. When the input carries an invoice
// number that already exists, the existing invoice is updated instead, but
// only while it is still a draft.
func CreateInvoice(ctx context.Context, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()

	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	if err := input.validate(); err != nil {
		return nil, err
	}

	if input.InvoiceNumber != "" {
		var existing Invoice
		err := db.WithContext(ctx).
			Where("shopkeeper_id = ? AND invoice_number = ?", shopkeeperId, input.InvoiceNumber).
			Take(&existing).Error
		if err == nil {
			if existing.Status != InvoiceStatusDraft {
				return nil, errors.New("only draft invoices can be overwritten")
			}
			return updateDraftInvoice(ctx, &existing, input)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
	}

	lineItems, subtotal, taxAmount, discountAmount, total := ComputeInvoiceTotals(
		input.Items, input.TaxRate, input.DiscountType, input.DiscountValue)

	user, err := utils.FetchSingleModel[User](ctx, shopkeeperId)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	invoice := Invoice{
		ShopkeeperId:    shopkeeperId,
		CustomerName:    input.CustomerName,
		CustomerPhone:   input.CustomerPhone,
		CustomerAddress: input.CustomerAddress,
		Items:           lineItems,
		Subtotal:        subtotal,
		TaxRate:         input.TaxRate,
		TaxAmount:       taxAmount,
		DiscountType:    input.DiscountType,
		DiscountValue:   input.DiscountValue,
		DiscountAmount:  discountAmount,
		Total:           total,
		Status:          InvoiceStatusDraft,
		IssuedDate:      now,
		DueDate:         input.DueDate,
		Notes:           input.Notes,
		Template:        input.Template,
		ColorScheme:     input.ColorScheme,
		ShopName:        user.ShopName,
		ShopAddress:     user.ShopAddress,
		ShopPhone:       user.Phone,
		Signature:       user.Signature,
		SignatureName:   user.SignatureName,
		IsDeleted:       utils.NewFalse(),
	}
	if invoice.DiscountType == "" {
		invoice.DiscountType = DiscountTypeFixed
	}
	if invoice.Template == "" {
		invoice.Template = InvoiceTemplateClassic
	}
	if invoice.ColorScheme == "" {
		invoice.ColorScheme = ColorSchemeBlue
	}

	// Numbering restarts each month; a collision from a concurrent issue is
	// retried with the next sequence.
	for attempt := 0; attempt < 3; attempt++ {
		invoice.InvoiceNumber = NextInvoiceNumber(lastInvoiceNumber(ctx, db, shopkeeperId), now)
		err = db.WithContext(ctx).Create(&invoice).Error
		if err == nil || !utils.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		return nil, err
	}
	return &invoice, nil
}

func updateDraftInvoice(ctx context.Context, invoice *Invoice, input *NewInvoice) (*Invoice, error) {
	db := config.GetDB()

	lineItems, subtotal, taxAmount, discountAmount, total := ComputeInvoiceTotals(
		input.Items, input.TaxRate, input.DiscountType, input.DiscountValue)

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.WithContext(ctx).Where("invoice_id = ?", invoice.ID).Delete(&InvoiceItem{}).Error; err != nil {
			return err
		}
		for i := range lineItems {
			lineItems[i].InvoiceId = invoice.ID
		}
		if err := tx.WithContext(ctx).Create(&lineItems).Error; err != nil {
			return err
		}
		updates := map[string]interface{}{
			"CustomerName":    input.CustomerName,
			"CustomerPhone":   input.CustomerPhone,
			"CustomerAddress": input.CustomerAddress,
			"Subtotal":        subtotal,
			"TaxRate":         input.TaxRate,
			"TaxAmount":       taxAmount,
			"DiscountValue":   input.DiscountValue,
			"DiscountAmount":  discountAmount,
			"Total":           total,
			"Notes":           input.Notes,
		}
		if input.DiscountType != "" {
			updates["DiscountType"] = input.DiscountType
		}
		if input.Template != "" {
			updates["Template"] = input.Template
		}
		if input.ColorScheme != "" {
			updates["ColorScheme"] = input.ColorScheme
		}
		if input.DueDate != nil {
			updates["DueDate"] = input.DueDate
		}
		return tx.WithContext(ctx).Model(invoice).Updates(updates).Error
	})
	if err != nil {
		return nil, err
	}
	return GetInvoice(ctx, invoice.ID)
}

// GetInvoice returns the invoice with the shop profile fields overlaid from
// the current profile when the snapshot is empty (older rows).
func GetInvoice(ctx context.Context, id int) (*Invoice, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, shopkeeperId, id, "Items")
	if err != nil {
		return nil, err
	}

	if invoice.ShopName == "" {
		if user, err := utils.FetchSingleModel[User](ctx, shopkeeperId); err == nil {
			invoice.ShopName = user.ShopName
			invoice.ShopAddress = user.ShopAddress
			invoice.ShopPhone = user.Phone
			if invoice.Signature == "" {
				invoice.Signature = user.Signature
				invoice.SignatureName = user.SignatureName
			}
		}
	}
	return invoice, nil
}

// UpdateInvoiceStatus enforces the document lifecycle: draft to sent to paid,
// with cancellation allowed only before payment. Re-applying the current
// status is rejected.
func UpdateInvoiceStatus(ctx context.Context, id int, status InvoiceStatus) (*Invoice, error) {
	db := config.GetDB()

	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}
	if !status.IsValid() {
		return nil, errors.New("invalid invoice status")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, shopkeeperId, id)
	if err != nil {
		return nil, err
	}
	if invoice.IsDeleted != nil && *invoice.IsDeleted {
		return nil, utils.ErrorRecordNotFound
	}
	if !invoice.Status.CanTransitionTo(status) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidStatusTransition, invoice.Status, status)
	}

	if err := db.WithContext(ctx).Model(invoice).Update("Status", status).Error; err != nil {
		return nil, err
	}
	invoice.Status = status
	return invoice, nil
}

func DeleteInvoice(ctx context.Context, id int) error {
	db := config.GetDB()

	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return errors.New("shopkeeper id is required")
	}

	invoice, err := utils.FetchModel[Invoice](ctx, shopkeeperId, id)
	if err != nil {
		return err
	}
	if invoice.IsDeleted != nil && *invoice.IsDeleted {
		return nil
	}

	now := time.Now()
	return db.WithContext(ctx).Model(invoice).Updates(map[string]interface{}{
		"IsDeleted": utils.NewTrue(),
		"DeletedAt": &now,
	}).Error
}

type InvoiceFilter struct {
	Status     InvoiceStatus
	Search     string
	StartDate  *time.Time
	EndDate    *time.Time
	Pagination PaginationParams
}

func GetInvoices(ctx context.Context, filter InvoiceFilter) ([]*Invoice, Pagination, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, Pagination{}, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Invoice{}).
		Where("shopkeeper_id = ? AND is_deleted = false", shopkeeperId)

	if filter.Status != "" {
		dbCtx = dbCtx.Where("status = ?", filter.Status)
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		dbCtx = dbCtx.Where("invoice_number LIKE ? OR customer_name LIKE ?", pattern, pattern)
	}
	if filter.StartDate != nil {
		dbCtx = dbCtx.Where("issued_date >= ?", utils.StartOfDay(*filter.StartDate))
	}
	if filter.EndDate != nil {
		dbCtx = dbCtx.Where("issued_date <= ?", utils.EndOfDay(*filter.EndDate))
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var invoices []*Invoice
	err := dbCtx.Preload("Items").Order("created_at DESC").
		Offset(filter.Pagination.Offset()).Limit(filter.Pagination.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	return invoices, NewPagination(filter.Pagination, total), nil
}

type InvoiceStats struct {
	TotalInvoices  int64           `json:"totalInvoices"`
	DraftCount     int64           `json:"draftCount"`
	SentCount      int64           `json:"sentCount"`
	PaidCount      int64           `json:"paidCount"`
	CancelledCount int64           `json:"cancelledCount"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	PaidAmount     decimal.Decimal `json:"paidAmount"`
}

func GetInvoiceStats(ctx context.Context) (*InvoiceStats, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	var stats InvoiceStats
	err := db.WithContext(ctx).Model(&Invoice{}).
		Select(`COUNT(*) AS total_invoices,
			COUNT(CASE WHEN status = 'draft' THEN 1 END) AS draft_count,
			COUNT(CASE WHEN status = 'sent' THEN 1 END) AS sent_count,
			COUNT(CASE WHEN status = 'paid' THEN 1 END) AS paid_count,
			COUNT(CASE WHEN status = 'cancelled' THEN 1 END) AS cancelled_count,
			COALESCE(SUM(CASE WHEN status != 'cancelled' THEN total ELSE 0 END), 0) AS total_amount,
			COALESCE(SUM(CASE WHEN status = 'paid' THEN total ELSE 0 END), 0) AS paid_amount`).
		Where("shopkeeper_id = ? AND is_deleted = false", shopkeeperId).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// WhatsAppShareLink builds a wa.me deep link carrying a plain-text summary of
// the invoice.
func (invoice *Invoice) WhatsAppShareLink() string {
	text := fmt.Sprintf("Invoice %s from %s\nCustomer: %s\nTotal: %s\nStatus: %s",
		invoice.InvoiceNumber, invoice.ShopName, invoice.CustomerName,
		invoice.Total.StringFixed(2), invoice.Status)
	if invoice.DueDate != nil {
		text += fmt.Sprintf("\nDue: %s", invoice.DueDate.Format("2006-01-02"))
	}
	return "https://wa.me/?text=" + url.QueryEscape(text)
}
