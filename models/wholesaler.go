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

// Wholesaler mirrors Customer on the purchase side of the ledger:
// outstanding_due > 0 means the shop owes the wholesaler.
type Wholesaler struct {
	ID             int    `gorm:"primary_key" json:"id"`
	ShopkeeperId   int    `gorm:"index;not null" json:"shopkeeper_id"`
	Name           string `gorm:"size:100;not null" json:"name"`
	Phone          string `gorm:"size:20" json:"phone"`
	WhatsappNumber string `gorm:"size:20" json:"whatsapp_number"`
	Address        string `gorm:"size:255" json:"address"`
	GstNumber      string `gorm:"size:30" json:"gst_number"`

	OpeningPurchases decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_purchases"`
	OpeningPayments  decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"opening_payments"`
	TotalPurchased   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_purchased"`
	TotalPaid        decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"total_paid"`
	OutstandingDue   decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"outstanding_due"`

	LastPaymentDate *time.Time `json:"last_payment_date"`
	IsActive        *bool      `gorm:"not null;default:true" json:"is_active"`
	IsDeleted       *bool      `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt       *time.Time `json:"deleted_at"`
	CreatedAt       time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWholesaler struct {
	Name           string `json:"name" binding:"required"`
	Phone          string `json:"phone" binding:"required"`
	WhatsappNumber string `json:"whatsapp_number"`
	Address        string `json:"address" binding:"required"`
	GstNumber      string `json:"gst_number"`

	OpeningPurchases decimal.Decimal `json:"opening_purchases"`
	OpeningPayments  decimal.Decimal `json:"opening_payments"`
	InitialPurchases decimal.Decimal `json:"initial_purchases"`
}

func (input *NewWholesaler) openingPair() OpeningBalance {
	if !input.OpeningPurchases.IsZero() || !input.OpeningPayments.IsZero() {
		return OpeningBalance{Sales: input.OpeningPurchases, Payments: input.OpeningPayments}
	}
	if input.InitialPurchases.IsNegative() {
		return OpeningBalance{Sales: decimal.Zero, Payments: input.InitialPurchases.Neg()}
	}
	return OpeningBalance{Sales: input.InitialPurchases, Payments: decimal.Zero}
}

// validate input for both create & update. (id = 0 for create)
func (input *NewWholesaler) validate(ctx context.Context, shopkeeperId int, id int) error {
	if id > 0 {
		if err := utils.ValidateResourceId[Wholesaler](ctx, shopkeeperId, id); err != nil {
			return err
		}
	}
	if err := utils.ValidatePhoneNumber(input.Phone, utils.CountryCode); err != nil {
		return err
	}
	if err := validateEntityContactUnique[Wholesaler](ctx, shopkeeperId, "phone", input.Phone, id, "phone number already exists"); err != nil {
		return err
	}
	if input.WhatsappNumber != "" {
		if err := validateEntityContactUnique[Wholesaler](ctx, shopkeeperId, "whatsapp_number", input.WhatsappNumber, id, "whatsapp number already exists"); err != nil {
			return err
		}
	}
	if input.OpeningPurchases.IsNegative() || input.OpeningPayments.IsNegative() {
		return errors.New("opening amounts must not be negative")
	}
	return nil
}

func CreateWholesaler(ctx context.Context, input *NewWholesaler) (*Wholesaler, error) {
	db := config.GetDB()

	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	if err := input.validate(ctx, shopkeeperId, 0); err != nil {
		return nil, err
	}

	opening := input.openingPair()
	wholesaler := Wholesaler{
		ShopkeeperId:     shopkeeperId,
		Name:             input.Name,
		Phone:            input.Phone,
		WhatsappNumber:   input.WhatsappNumber,
		Address:          input.Address,
		GstNumber:        input.GstNumber,
		OpeningPurchases: opening.Sales,
		OpeningPayments:  opening.Payments,
		TotalPurchased:   opening.Sales,
		TotalPaid:        opening.Payments,
		OutstandingDue:   opening.Net(),
		IsActive:         utils.NewTrue(),
		IsDeleted:        utils.NewFalse(),
	}

	if err := db.WithContext(ctx).Create(&wholesaler).Error; err != nil {
		if utils.IsDuplicateKeyError(err) {
			return nil, errors.New("phone number already exists")
		}
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return &wholesaler, nil
}

func GetWholesaler(ctx context.Context, id int) (*Wholesaler, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}
	return utils.FetchModel[Wholesaler](ctx, shopkeeperId, id)
}

func UpdateWholesaler(ctx context.Context, id int, input *NewWholesaler) (*Wholesaler, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	if err := input.validate(ctx, shopkeeperId, id); err != nil {
		return nil, err
	}

	wholesaler, err := utils.FetchModel[Wholesaler](ctx, shopkeeperId, id)
	if err != nil {
		return nil, err
	}
	if wholesaler.IsDeleted != nil && *wholesaler.IsDeleted {
		return nil, errors.New("cannot update a deleted wholesaler")
	}

	opening := input.openingPair()
	purchasesDelta := opening.Sales.Sub(wholesaler.OpeningPurchases)
	paymentsDelta := opening.Payments.Sub(wholesaler.OpeningPayments)
	newTotalPurchased := wholesaler.TotalPurchased.Add(purchasesDelta)
	newTotalPaid := wholesaler.TotalPaid.Add(paymentsDelta)

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&wholesaler).Updates(map[string]interface{}{
		"Name":             input.Name,
		"Phone":            input.Phone,
		"WhatsappNumber":   input.WhatsappNumber,
		"Address":          input.Address,
		"GstNumber":        input.GstNumber,
		"OpeningPurchases": opening.Sales,
		"OpeningPayments":  opening.Payments,
		"TotalPurchased":   newTotalPurchased,
		"TotalPaid":        newTotalPaid,
		"OutstandingDue":   newTotalPurchased.Sub(newTotalPaid),
	}).Error
	if err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return utils.FetchModel[Wholesaler](ctx, shopkeeperId, id)
}

func DeleteWholesaler(ctx context.Context, id int) (*Wholesaler, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	wholesaler, err := utils.FetchModel[Wholesaler](ctx, shopkeeperId, id)
	if err != nil {
		return nil, err
	}
	if wholesaler.IsDeleted != nil && *wholesaler.IsDeleted {
		return wholesaler, nil
	}

	db := config.GetDB()
	now := time.Now()
	err = db.WithContext(ctx).Model(&wholesaler).Updates(map[string]interface{}{
		"IsDeleted": utils.NewTrue(),
		"IsActive":  utils.NewFalse(),
		"DeletedAt": &now,
	}).Error
	if err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return wholesaler, nil
}

func RestoreWholesaler(ctx context.Context, id int) (*Wholesaler, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	wholesaler, err := utils.FetchModel[Wholesaler](ctx, shopkeeperId, id)
	if err != nil {
		return nil, err
	}
	if wholesaler.IsDeleted == nil || !*wholesaler.IsDeleted {
		return wholesaler, nil
	}

	db := config.GetDB()
	err = db.WithContext(ctx).Model(&wholesaler).Updates(map[string]interface{}{
		"IsDeleted": utils.NewFalse(),
		"IsActive":  utils.NewTrue(),
		"DeletedAt": gorm.Expr("NULL"),
	}).Error
	if err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return utils.FetchModel[Wholesaler](ctx, shopkeeperId, id)
}

type WholesalerFilter struct {
	Search     string
	Status     EntityStatusFilter
	DuesFilter DuesFilter
	SortBy     string
	Pagination PaginationParams
}

func GetWholesalers(ctx context.Context, filter WholesalerFilter) ([]*Wholesaler, Pagination, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, Pagination{}, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Wholesaler{}).Where("shopkeeper_id = ?", shopkeeperId)

	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		dbCtx = dbCtx.Where("name LIKE ? OR phone LIKE ? OR address LIKE ?", pattern, pattern, pattern)
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
	case "totalPurchased":
		dbCtx = dbCtx.Order("total_purchased DESC")
	case "outstandingDue":
		dbCtx = dbCtx.Order("outstanding_due DESC")
	default:
		dbCtx = dbCtx.Order("created_at DESC")
	}

	var wholesalers []*Wholesaler
	err := dbCtx.Offset(filter.Pagination.Offset()).Limit(filter.Pagination.Limit).Find(&wholesalers).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	return wholesalers, NewPagination(filter.Pagination, total), nil
}

func GetWholesalerStats(ctx context.Context) (*EntityStats, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	var stats EntityStats
	err := db.WithContext(ctx).Model(&Wholesaler{}).
		Select(`COUNT(CASE WHEN is_deleted = false THEN 1 END) AS total,
			COUNT(CASE WHEN is_deleted = false AND is_active = true THEN 1 END) AS active,
			COUNT(CASE WHEN is_deleted = false AND is_active = false THEN 1 END) AS inactive,
			COUNT(CASE WHEN is_deleted = true THEN 1 END) AS deleted,
			COUNT(CASE WHEN is_deleted = false AND outstanding_due > 0 THEN 1 END) AS with_dues,
			COALESCE(SUM(CASE WHEN is_deleted = false AND outstanding_due > 0 THEN outstanding_due ELSE 0 END), 0) AS total_outstanding,
			COALESCE(SUM(CASE WHEN is_deleted = false THEN total_purchased ELSE 0 END), 0) AS total_sales,
			COALESCE(SUM(CASE WHEN is_deleted = false THEN total_paid ELSE 0 END), 0) AS total_paid`).
		Where("shopkeeper_id = ?", shopkeeperId).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func applyWholesalerBalanceDelta(tx *gorm.DB, ctx context.Context, wholesalerId int, totalDelta, paidDelta decimal.Decimal) error {
	dueDelta := totalDelta.Sub(paidDelta)
	return tx.WithContext(ctx).Model(&Wholesaler{}).Where("id = ?", wholesalerId).
		Updates(map[string]interface{}{
			"total_purchased": gorm.Expr("total_purchased + ?", totalDelta),
			"total_paid":      gorm.Expr("total_paid + ?", paidDelta),
			"outstanding_due": gorm.Expr("outstanding_due + ?", dueDelta),
		}).Error
}

func recordWholesalerPayment(tx *gorm.DB, ctx context.Context, wholesalerId int, amount decimal.Decimal, paidAt time.Time) error {
	return tx.WithContext(ctx).Model(&Wholesaler{}).Where("id = ?", wholesalerId).
		Updates(map[string]interface{}{
			"total_paid":        gorm.Expr("total_paid + ?", amount),
			"outstanding_due":   gorm.Expr("outstanding_due - ?", amount),
			"last_payment_date": paidAt,
		}).Error
}
