package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Customer is a shop customer ledger head. Running totals follow the ledger
// sign convention: outstanding_due > 0 means the customer owes the shop,
// negative means the shop holds their advance.
type Customer struct {
	ID             int          `gorm:"primary_key" json:"id"`
	ShopkeeperId   int          `gorm:"index;not null" json:"shopkeeper_id"`
	Name           string       `gorm:"size:100;not null" json:"name"`
	Phone          string       `gorm:"size:20" json:"phone"`
	WhatsappNumber string       `gorm:"size:20" json:"whatsapp_number"`
	Address        string       `gorm:"size:255" json:"address"`
	Type           CustomerType `gorm:"type:enum('due','normal');not null;default:'normal'" json:"type"`

	OpeningSales    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_sales"`
	OpeningPayments decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_payments"`
	TotalSales      decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_sales"`
	TotalPaid       decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_paid"`
	OutstandingDue  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"outstanding_due"`

	LastPaymentDate *time.Time `json:"last_payment_date"`
	IsActive        *bool      `gorm:"not null;default:true" json:"is_active"`
	IsDeleted       *bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewCustomer struct {
	Name           string       `json:"name" binding:"required"`
	Phone          string       `json:"phone"`
	WhatsappNumber string       `json:"whatsapp_number"`
	Address        string       `json:"address"`
	Type           CustomerType `json:"type" binding:"omitempty,oneof=due normal"`

	// Detailed opening mode (gross pair). When both are zero, the legacy
	// signed InitialSales value is split by sign instead.
	OpeningSales    decimal.Decimal `json:"opening_sales"`
	OpeningPayments decimal.Decimal `json:"opening_payments"`
	InitialSales    decimal.Decimal `json:"initial_sales"`
}

// openingPair resolves the dual entry mode into the stored gross pair.
func (input *NewCustomer) openingPair() OpeningBalance {
	if !input.OpeningSales.IsZero() || !input.OpeningPayments.IsZero() {
		return OpeningBalance{Sales: input.OpeningSales, Payments: input.OpeningPayments}
	}
	if input.InitialSales.IsNegative() {
		return OpeningBalance{Sales: decimal.Zero, Payments: input.InitialSales.Neg()}
	}
	return OpeningBalance{Sales: input.InitialSales, Payments: decimal.Zero}
}

// validate input for both create & update. (id = 0 for create)
func (input *NewCustomer) validate(ctx context.Context, shopkeeperId int, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Customer](ctx, shopkeeperId, id); err != nil {
			return err
		}
	}
	if input.Type == "" {
		input.Type = CustomerTypeNormal
	}
	if input.Type == CustomerTypeDue {
		if input.Phone == "" {
			return errors.New("phone is required for due customers")
		}
		if input.Address == "" {
			return errors.New("address is required for due customers")
		}
	}
	if input.Phone != "" {
		if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
			return err
		}
		if err := validateEntityContactUnique[Customer](ctx, shopkeeperId, "phone", input.Phone, id, "phone number already exists"); err != nil {
			return err
		}
	}
	if input.WhatsappNumber != "" {
		if err := validateEntityContactUnique[Customer](ctx, shopkeeperId, "whatsapp_number", input.WhatsappNumber, id, "whatsapp number already exists"); err != nil {
			return err
		}
	}
	if input.OpeningSales.IsNegative() || input.OpeningPayments.IsNegative() {
		return errors.New("opening amounts must not be negative")
	}
	return nil
}

// uniqueness among non-deleted rows only; a deleted customer's phone can be reused.
func validateEntityContactUnique[T any](ctx context.Context, shopkeeperId int, column string, value string, exceptId int, message string) error {
	var count int64
	var err error
	if exceptId > 0 {
		count, err = utils.ResourceCountWhere[T](ctx, shopkeeperId, column+" = ? AND is_deleted = false AND NOT id = ?", value, exceptId)
	} else {
		count, err = utils.ResourceCountWhere[T](ctx, shopkeeperId, column+" = ? AND is_deleted = false", value)
	}
	if err != nil {
		return err
	}
	if count > 0 {
		return errors.New(message)
	}
	return nil
}

func CreateCustomer(ctx context.Context, input *NewCustomer) (*Customer, error) {
	db := config.GetDB()

	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	if err := input.validate(ctx, shopkeeperId, 0); err != nil {
		return nil, err
	}

	opening := input.openingPair()
	customer := Customer{
		ShopkeeperId:    shopkeeperId,
		Name:            input.Name,
		Phone:           input.Phone,
		WhatsappNumber:  input.WhatsappNumber,
		Address:         input.Address,
		Type:            input.Type,
		OpeningSales:    opening.Sales,
		OpeningPayments: opening.Payments,
		TotalSales:      opening.Sales,
		TotalPaid:       opening.Payments,
		OutstandingDue:  opening.Net(),
		IsActive:        utils.NewTrue(),
		IsDeleted:       utils.NewFalse(),
	}

	if err := db.WithContext(ctx).Create(&customer).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, errors.New("phone number already exists")
		}
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return &customer, nil
}

func GetCustomer(ctx context.Context, id int) (*Customer, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}
	return utils.FetchModel[Customer](ctx, shopkeeperId, id)
}

func UpdateCustomer(ctx context.Context, id int, input *NewCustomer) (*Customer, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	if err := input.validate(ctx, shopkeeperId, id); err != nil {
		return nil, err
	}

	customer, err := utils.FetchModel[Customer](ctx, shopkeeperId, id)
	if err != nil {
		return nil, err
	}
	if customer.IsDeleted != nil && *customer.IsDeleted {
		return nil, errors.New("cannot update a deleted customer")
	}

	opening := input.openingPair()
	// Opening-balance edits flow into the running totals as deltas so the
	// bill/payment history stays intact.
	salesDelta := opening.Sales.Sub(customer.OpeningSales)
	paymentsDelta := opening.Payments.Sub(customer.OpeningPayments)
	newTotalSales := customer.TotalSales.Add(salesDelta)
	newTotalPaid := customer.TotalPaid.Add(paymentsDelta)

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"Name":            input.Name,
		"Phone":           input.Phone,
		"WhatsappNumber":  input.WhatsappNumber,
		"Address":         input.Address,
		"Type":            input.Type,
		"OpeningSales":    opening.Sales,
		"OpeningPayments": opening.Payments,
		"TotalSales":      newTotalSales,
		"TotalPaid":       newTotalPaid,
		"OutstandingDue":  newTotalSales.Sub(newTotalPaid),
	}).Error
	if err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return utils.FetchModel[Customer](ctx, shopkeeperId, id)
}

// DeleteCustomer soft-deletes; the ledger history (bills, payments) is kept.
func DeleteCustomer(ctx context.Context, id int) (*Customer, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	customer, err := utils.FetchModel[Customer](ctx, shopkeeperId, id)
	if err != nil {
		return nil, err
	}
	if customer.IsDeleted != nil && *customer.IsDeleted {
		return customer, nil
	}

	db := config.GetDB()
	now := time.Now()
	err = db.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"IsDeleted": utils.NewTrue(),
		"IsActive":  utils.NewFalse(),
		"DeletedAt": &now,
	}).Error
	if err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return customer, nil
}

func RestoreCustomer(ctx context.Context, id int) (*Customer, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	customer, err := utils.FetchModel[Customer](ctx, shopkeeperId, id)
	if err != nil {
		return nil, err
	}
	if customer.IsDeleted == nil || !*customer.IsDeleted {
		return customer, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&customer).Updates(map[string]interface{}{
		"IsDeleted": utils.NewFalse(),
		"IsActive":  utils.NewTrue(),
		"DeletedAt": gorm.Expr("NULL"),
	}).Error
	if err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return utils.FetchModel[Customer](ctx, shopkeeperId, id)
}

// CustomerFilter narrows and orders GetCustomers.
type CustomerFilter struct {
	Search     string
	Type       CustomerType
	Status     EntityStatusFilter
	DuesFilter DuesFilter
	SortBy     string
	Pagination PaginationParams
}

func GetCustomers(ctx context.Context, filter CustomerFilter) ([]*Customer, Pagination, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, Pagination{}, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Customer{}).Where("shopkeeper_id = ?", shopkeeperId)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		dbCtx = dbCtx.Where("name LIKE ? OR phone LIKE ? OR address LIKE ?", pattern, pattern, pattern)
	}
	if filter.Type != "" {
		dbCtx = dbCtx.Where("type = ?", filter.Type)
	}
	switch filter.Status {
	case EntityStatusDeleted:
		dbCtx = dbCtx.Where("is_deleted = true")
	case EntityStatusInactive:
		dbCtx = dbCtx.Where("is_deleted = false AND is_active = false")
	case EntityStatusActive:
		dbCtx = dbCtx.Where("is_deleted = false AND is_active = true")
	default:
		dbCtx = dbCtx.Where("is_deleted = false")
	}
	switch filter.DuesFilter {
	case DuesFilterWithDues:
		dbCtx = dbCtx.Where("outstanding_due > 0")
	case DuesFilterClear:
		dbCtx = dbCtx.Where("outstanding_due <= 0")
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	switch filter.SortBy {
	case "name":
		dbCtx = dbCtx.Order("name ASC")
	case "totalSales":
		dbCtx = dbCtx.Order("total_sales DESC")
	case "outstandingDue":
		dbCtx = dbCtx.Order("outstanding_due DESC")
	default:
		dbCtx = dbCtx.Order("created_at DESC")
	}

	var customers []*Customer
	err := dbCtx.Offset(filter.Pagination.Offset()).Limit(filter.Pagination.Limit).Find(&customers).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	return customers, NewPagination(filter.Pagination, total), nil
}

type EntityStats struct {
	Total            int64           `json:"total"`
	Active           int64           `json:"active"`
	Inactive         int64           `json:"inactive"`
	Deleted          int64           `json:"deleted"`
	WithDues         int64           `json:"withDues"`
	TotalOutstanding decimal.Decimal `json:"totalOutstanding"`
	TotalSales       decimal.Decimal `json:"totalSales"`
	TotalPaid        decimal.Decimal `json:"totalPaid"`
}

func GetCustomerStats(ctx context.Context) (*EntityStats, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	var stats EntityStats
	err := db.WithContext(ctx).Model(&Customer{}).
		Select(`COUNT(CASE WHEN is_deleted = false THEN 1 END) AS total,
			COUNT(CASE WHEN is_deleted = false AND is_active = true THEN 1 END) AS active,
			COUNT(CASE WHEN is_deleted = false AND is_active = false THEN 1 END) AS inactive,
			COUNT(CASE WHEN is_deleted = true THEN 1 END) AS deleted,
			COUNT(CASE WHEN is_deleted = false AND outstanding_due > 0 THEN 1 END) AS with_dues,
			COALESCE(SUM(CASE WHEN is_deleted = false AND outstanding_due > 0 THEN outstanding_due ELSE 0 END), 0) AS total_outstanding,
			COALESCE(SUM(CASE WHEN is_deleted = false THEN total_sales ELSE 0 END), 0) AS total_sales,
			COALESCE(SUM(CASE WHEN is_deleted = false THEN total_paid ELSE 0 END), 0) AS total_paid`).
		Where("shopkeeper_id = ?", shopkeeperId).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// applyCustomerBalanceDelta posts a bill's effect onto the customer ledger
// head: totals move by the bill's gross amounts and outstanding by their
// difference (an overpaid bill therefore reduces prior outstanding, and any
// remainder goes negative as advance credit).
func applyCustomerBalanceDelta(tx *gorm.DB, ctx context.Context, customerId int, totalDelta, paidDelta decimal.Decimal) error {
	dueDelta := totalDelta.Sub(paidDelta)
	return tx.WithContext(ctx).Model(&Customer{}).Where("id = ?", customerId).
		Updates(map[string]interface{}{
			"total_sales":     gorm.Expr("total_sales + ?", totalDelta),
			"total_paid":      gorm.Expr("total_paid + ?", paidDelta),
			"outstanding_due": gorm.Expr("outstanding_due + ?", dueDelta),
		}).Error
}

// recordCustomerPayment posts a standalone payment: paid up, outstanding down.
func recordCustomerPayment(tx *gorm.DB, ctx context.Context, customerId int, amount decimal.Decimal, paidAt time.Time) error {
	return tx.WithContext(ctx).Model(&Customer{}).Where("id = ?", customerId).
		Updates(map[string]interface{}{
			"total_paid":        gorm.Expr("total_paid + ?", amount),
			"outstanding_due":   gorm.Expr("outstanding_due - ?", amount),
			"last_payment_date": paidAt,
		}).Error
}
