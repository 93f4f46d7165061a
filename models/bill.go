package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Bill is a sale or purchase transaction. A bill's effect on its entity's
// running balance is posted at create time and reversed on edit/delete, so the
// entity head always equals opening + the surviving bill/payment history.
type Bill struct {
	ID           int        `gorm:"primary_key" json:"id"`
	ShopkeeperId int        `gorm:"index;not null;uniqueIndex:idx_bill_number,priority:1" json:"shopkeeper_id"`
	BillNumber   string     `gorm:"size:30;not null;uniqueIndex:idx_bill_number,priority:2" json:"bill_number"`
	BillType     BillType   `gorm:"type:enum('sale','purchase');not null" json:"bill_type"`
	EntityType   EntityType `gorm:"type:enum('wholesaler','due_customer','normal_customer');not null" json:"entity_type"`
	EntityId     int        `gorm:"index" json:"entity_id"`
	EntityName   string     `gorm:"size:100;not null" json:"entity_name"`

	TotalAmount   decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	PaidAmount    decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"paid_amount"`
	DueAmount     decimal.Decimal `gorm:"type:decimal(20,4);default:0" json:"due_amount"`
	PaymentMethod *PaymentMethod  `gorm:"type:enum('cash','card','online')" json:"payment_method"`
	Notes         string          `gorm:"size:255" json:"notes"`

	IsEdited    *bool             `gorm:"not null;default:false" json:"is_edited"`
	EditHistory []BillEditHistory `gorm:"foreignKey:BillId" json:"edit_history,omitempty"`
	IsDeleted   *bool             `gorm:"not null;default:false;index" json:"is_deleted"`
	DeletedAt   *time.Time        `json:"deleted_at"`
	CreatedAt   time.Time         `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime" json:"updated_at"`
}

// BillEditHistory snapshots a bill's money fields as they were before an edit.
type BillEditHistory struct {
	ID                int             `gorm:"primary_key" json:"id"`
	BillId            int             `gorm:"index;not null" json:"bill_id"`
	ModifiedAt        time.Time       `gorm:"not null" json:"modified_at"`
	PrevTotalAmount   decimal.Decimal `gorm:"type:decimal(20,4)" json:"prev_total_amount"`
	PrevPaidAmount    decimal.Decimal `gorm:"type:decimal(20,4)" json:"prev_paid_amount"`
	PrevDueAmount     decimal.Decimal `gorm:"type:decimal(20,4)" json:"prev_due_amount"`
	PrevPaymentMethod *PaymentMethod  `gorm:"type:enum('cash','card','online')" json:"prev_payment_method"`
	PrevNotes         string          `gorm:"size:255" json:"prev_notes"`
}

type NewBill struct {
	BillType      BillType        `json:"bill_type" binding:"required,oneof=sale purchase"`
	EntityType    EntityType      `json:"entity_type" binding:"required,oneof=wholesaler due_customer normal_customer"`
	EntityId      int             `json:"entity_id"`
	EntityName    string          `json:"entity_name"`
	TotalAmount   decimal.Decimal `json:"total_amount" binding:"required"`
	PaidAmount    decimal.Decimal `json:"paid_amount"`
	PaymentMethod *PaymentMethod  `json:"payment_method"`
	Notes         string          `json:"notes"`
	BillDate      *time.Time      `json:"bill_date"`
}

// validate input for both create & update. (id = 0 for create)
func (input *NewBill) validate(ctx context.Context, shopkeeperId int, id int) error {
	if !input.TotalAmount.IsPositive() {
		return errors.New("total amount must be greater than zero")
	}
	if input.PaidAmount.IsNegative() {
		return errors.New("paid amount must not be negative")
	}
	if input.BillType == BillTypeSale && input.EntityType == EntityTypeWholesaler {
		return errors.New("sale bills must target a customer")
	}
	if input.BillType == BillTypePurchase && input.EntityType != EntityTypeWholesaler {
		return errors.New("purchase bills must target a wholesaler")
	}
	if input.PaidAmount.IsPositive() {
		if input.PaymentMethod == nil || !input.PaymentMethod.IsValid() {
			return errors.New("payment method is required when paid amount is greater than zero")
		}
	}

	switch input.EntityType {
	case EntityTypeWholesaler:
		wholesaler, err := utils.FetchModel[Wholesaler](ctx, shopkeeperId, input.EntityId)
		if err != nil {
			return errors.New("wholesaler not found")
		}
		input.EntityName = wholesaler.Name
	case EntityTypeDueCustomer:
		customer, err := utils.FetchModel[Customer](ctx, shopkeeperId, input.EntityId)
		if err != nil {
			return errors.New("customer not found")
		}
		input.EntityName = customer.Name
	case EntityTypeNormalCustomer:
		// Walk-ins may be billed without a stored customer record.
		if input.EntityId > 0 {
			customer, err := utils.FetchModel[Customer](ctx, shopkeeperId, input.EntityId)
			if err != nil {
				return errors.New("customer not found")
			}
			input.EntityName = customer.Name
		} else if input.EntityName == "" {
			input.EntityName = "Walk-in Customer"
		}
	}
	return nil
}

// billTransactionFields maps a bill to its cash-book mirror row.
func (bill *Bill) transactionFields() (TransactionType, string, string) {
	if bill.BillType == BillTypeSale {
		return TransactionTypeIncome, "Sale", fmt.Sprintf("Sale to %s", bill.EntityName)
	}
	return TransactionTypeExpense, "Purchase", fmt.Sprintf("Purchase from %s", bill.EntityName)
}

func (bill *Bill) paymentEntityType() PaymentEntityType {
	if bill.BillType == BillTypeSale {
		return PaymentEntityCustomer
	}
	return PaymentEntityWholesaler
}

// skipBalancePosting: walk-in sales are always settled in full at the counter,
// so they never touch a ledger head.
func (bill *Bill) skipBalancePosting() bool {
	return bill.EntityType == EntityTypeNormalCustomer && bill.BillType == BillTypeSale
}

func (bill *Bill) applyBalance(tx *gorm.DB, ctx context.Context, totalDelta, paidDelta decimal.Decimal) error {
	if bill.skipBalancePosting() || bill.EntityId == 0 {
		return nil
	}
	if bill.EntityType == EntityTypeWholesaler {
		return applyWholesalerBalanceDelta(tx, ctx, bill.EntityId, totalDelta, paidDelta)
	}
	return applyCustomerBalanceDelta(tx, ctx, bill.EntityId, totalDelta, paidDelta)
}

func CreateBill(ctx context.Context, input *NewBill) (*Bill, error) {
	db := config.GetDB()

	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	if err := input.validate(ctx, shopkeeperId, 0); err != nil {
		return nil, err
	}

	billDate := time.Now()
	if input.BillDate != nil {
		billDate = *input.BillDate
	}

	// Walk-in sales are always fully paid at creation.
	paid := input.PaidAmount
	if input.EntityType == EntityTypeNormalCustomer && input.BillType == BillTypeSale {
		paid = input.TotalAmount
		if input.PaymentMethod == nil || !input.PaymentMethod.IsValid() {
			return nil, errors.New("payment method is required when paid amount is greater than zero")
		}
	}

	due, _ := ApplyBillPayment(input.TotalAmount, paid)

	bill := Bill{
		ShopkeeperId: shopkeeperId,
		BillType:     input.BillType,
		EntityType:   input.EntityType,
		EntityId:     input.EntityId,
		EntityName:   input.EntityName,
		TotalAmount:  input.TotalAmount,
		PaidAmount:   paid,
		DueAmount:    due,
		Notes:        input.Notes,
		IsEdited:     utils.NewFalse(),
		IsDeleted:    utils.NewFalse(),
		CreatedAt:    billDate,
	}
	if paid.IsPositive() {
		bill.PaymentMethod = input.PaymentMethod
	}

	releaseLock := acquireRedisPostingLock(ctx, shopkeeperId)
	defer releaseLock()

	tx := db.Begin()
	if err := AcquireShopkeeperPostingLock(tx, shopkeeperId); err != nil {
		tx.Rollback()
		return nil, err
	}
	// The advisory lock is connection-scoped, so it has to be released while
	// the transaction is still open on both the commit and rollback paths.
	rollback := func() {
		ReleaseShopkeeperPostingLock(tx, shopkeeperId)
		tx.Rollback()
	}

	// Retry the random suffix on the rare bill-number collision.
	var err error
	for attempt := 0; attempt < 3; attempt++ {
		bill.BillNumber = GenerateBillNumber(billDate)
		err = tx.WithContext(ctx).Create(&bill).Error
		if err == nil || !utils.IsDuplicateKeyError(err) {
			break
		}
	}
	if err != nil {
		rollback()
		return nil, err
	}

	if err := bill.applyBalance(tx, ctx, bill.TotalAmount, bill.PaidAmount); err != nil {
		rollback()
		return nil, err
	}

	if bill.PaidAmount.IsPositive() {
		if err := createBillSideRecords(tx, ctx, &bill); err != nil {
			rollback()
			return nil, err
		}
	}

	ReleaseShopkeeperPostingLock(tx, shopkeeperId)
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return &bill, nil
}

// createBillSideRecords mirrors a paid bill into the cash book and the
// payment history.
func createBillSideRecords(tx *gorm.DB, ctx context.Context, bill *Bill) error {
	txnType, category, description := bill.transactionFields()
	entityType := bill.paymentEntityType()

	transaction := CashTransaction{
		ShopkeeperId:    bill.ShopkeeperId,
		Type:            txnType,
		Category:        category,
		Amount:          bill.PaidAmount,
		PaymentMethod:   *bill.PaymentMethod,
		Reference:       bill.BillNumber,
		Description:     description,
		EntityType:      &entityType,
		EntityId:        utils.NilIfEmpty(bill.EntityId),
		TransactionDate: bill.CreatedAt,
	}
	if err := tx.WithContext(ctx).Create(&transaction).Error; err != nil {
		return err
	}

	payment := Payment{
		ShopkeeperId:  bill.ShopkeeperId,
		EntityType:    entityType,
		EntityId:      bill.EntityId,
		EntityName:    bill.EntityName,
		Amount:        bill.PaidAmount,
		PaymentMethod: *bill.PaymentMethod,
		Notes:         fmt.Sprintf("Payment for bill %s", bill.BillNumber),
		BillId:        &bill.ID,
		PaymentDate:   bill.CreatedAt,
	}
	return tx.WithContext(ctx).Create(&payment).Error
}

func GetBill(ctx context.Context, id int) (*Bill, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}
	return utils.FetchModel[Bill](ctx, shopkeeperId, id, "EditHistory")
}

func UpdateBill(ctx context.Context, id int, input *NewBill) (*Bill, error) {
	db := config.GetDB()

	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	bill, err := utils.FetchModel[Bill](ctx, shopkeeperId, id)
	if err != nil {
		return nil, err
	}
	if bill.IsDeleted != nil && *bill.IsDeleted {
		return nil, errors.New("cannot edit a deleted bill")
	}

	if err := input.validate(ctx, shopkeeperId, id); err != nil {
		return nil, err
	}
	if input.EntityType != bill.EntityType || (input.EntityId != 0 && input.EntityId != bill.EntityId) {
		return nil, errors.New("bill entity cannot be changed")
	}

	// Walk-in sales stay fully paid after an edit, so the forced paid amount
	// needs a payment method even when the input left it out.
	paid := input.PaidAmount
	if bill.EntityType == EntityTypeNormalCustomer && bill.BillType == BillTypeSale {
		paid = input.TotalAmount
		if input.PaymentMethod == nil || !input.PaymentMethod.IsValid() {
			return nil, errors.New("payment method is required when paid amount is greater than zero")
		}
	}
	due, _ := ApplyBillPayment(input.TotalAmount, paid)

	releaseLock := acquireRedisPostingLock(ctx, shopkeeperId)
	defer releaseLock()

	tx := db.Begin()
	if err := AcquireShopkeeperPostingLock(tx, shopkeeperId); err != nil {
		tx.Rollback()
		return nil, err
	}
	rollback := func() {
		ReleaseShopkeeperPostingLock(tx, shopkeeperId)
		tx.Rollback()
	}

	// Reverse the old posting, then apply the new amounts.
	if err := bill.applyBalance(tx, ctx, bill.TotalAmount.Neg(), bill.PaidAmount.Neg()); err != nil {
		rollback()
		return nil, err
	}

	history := BillEditHistory{
		BillId:            bill.ID,
		ModifiedAt:        time.Now(),
		PrevTotalAmount:   bill.TotalAmount,
		PrevPaidAmount:    bill.PaidAmount,
		PrevDueAmount:     bill.DueAmount,
		PrevPaymentMethod: bill.PaymentMethod,
		PrevNotes:         bill.Notes,
	}
	if err := tx.WithContext(ctx).Create(&history).Error; err != nil {
		rollback()
		return nil, err
	}

	updates := map[string]interface{}{
		"TotalAmount": input.TotalAmount,
		"PaidAmount":  paid,
		"DueAmount":   due,
		"Notes":       input.Notes,
		"IsEdited":    utils.NewTrue(),
	}
	if paid.IsPositive() {
		updates["PaymentMethod"] = input.PaymentMethod
	} else {
		updates["PaymentMethod"] = gorm.Expr("NULL")
	}
	if err := tx.WithContext(ctx).Model(&bill).Updates(updates).Error; err != nil {
		rollback()
		return nil, err
	}

	bill.TotalAmount = input.TotalAmount
	bill.PaidAmount = paid
	bill.DueAmount = due
	bill.Notes = input.Notes
	if paid.IsPositive() {
		bill.PaymentMethod = input.PaymentMethod
	} else {
		bill.PaymentMethod = nil
	}

	if err := bill.applyBalance(tx, ctx, bill.TotalAmount, bill.PaidAmount); err != nil {
		rollback()
		return nil, err
	}

	if err := upsertBillSideRecords(tx, ctx, bill); err != nil {
		rollback()
		return nil, err
	}

	ReleaseShopkeeperPostingLock(tx, shopkeeperId)
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return utils.FetchModel[Bill](ctx, shopkeeperId, id, "EditHistory")
}

// upsertBillSideRecords keeps the cash-book and payment mirrors in sync with
// an edited bill: updated while the bill stays paid, removed when payment is
// cleared.
func upsertBillSideRecords(tx *gorm.DB, ctx context.Context, bill *Bill) error {
	if !bill.PaidAmount.IsPositive() {
		if err := tx.WithContext(ctx).Where("shopkeeper_id = ? AND reference = ?", bill.ShopkeeperId, bill.BillNumber).Delete(&CashTransaction{}).Error; err != nil {
			return err
		}
		return tx.WithContext(ctx).Where("shopkeeper_id = ? AND bill_id = ?", bill.ShopkeeperId, bill.ID).Delete(&Payment{}).Error
	}

	txnType, category, description := bill.transactionFields()
	description = description + " (Updated)"
	entityType := bill.paymentEntityType()

	var transaction CashTransaction
	err := tx.WithContext(ctx).Where("shopkeeper_id = ? AND reference = ?", bill.ShopkeeperId, bill.BillNumber).Take(&transaction).Error
	switch {
	case err == nil:
		if err := tx.WithContext(ctx).Model(&transaction).Updates(map[string]interface{}{
			"Amount":        bill.PaidAmount,
			"PaymentMethod": *bill.PaymentMethod,
			"Description":   description,
		}).Error; err != nil {
			return err
		}
	case errors.Is(err, gorm.ErrRecordNotFound):
		transaction = CashTransaction{
			ShopkeeperId:    bill.ShopkeeperId,
			Type:            txnType,
			Category:        category,
			Amount:          bill.PaidAmount,
			PaymentMethod:   *bill.PaymentMethod,
			Reference:       bill.BillNumber,
			Description:     description,
			EntityType:      &entityType,
			EntityId:        utils.NilIfEmpty(bill.EntityId),
			TransactionDate: bill.CreatedAt,
		}
		if err := tx.WithContext(ctx).Create(&transaction).Error; err != nil {
			return err
		}
	default:
		return err
	}

	var payment Payment
	err = tx.WithContext(ctx).Where("shopkeeper_id = ? AND bill_id = ?", bill.ShopkeeperId, bill.ID).Take(&payment).Error
	switch {
	case err == nil:
		return tx.WithContext(ctx).Model(&payment).Updates(map[string]interface{}{
			"Amount":        bill.PaidAmount,
			"PaymentMethod": *bill.PaymentMethod,
		}).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		payment = Payment{
			ShopkeeperId:  bill.ShopkeeperId,
			EntityType:    entityType,
			EntityId:      bill.EntityId,
			EntityName:    bill.EntityName,
			Amount:        bill.PaidAmount,
			PaymentMethod: *bill.PaymentMethod,
			Notes:         fmt.Sprintf("Payment for bill %s", bill.BillNumber),
			BillId:        &bill.ID,
			PaymentDate:   bill.CreatedAt,
		}
		return tx.WithContext(ctx).Create(&payment).Error
	default:
		return err
	}
}

// DeleteBill soft-deletes the bill, reverses its balance posting, and removes
// the linked cash-book/payment mirrors. Deleting an already-deleted bill is a
// no-op.
func DeleteBill(ctx context.Context, id int) (*Bill, error) {
	db := config.GetDB()

	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	bill, err := utils.FetchModel[Bill](ctx, shopkeeperId, id)
	if err != nil {
		return nil, err
	}
	if bill.IsDeleted != nil && *bill.IsDeleted {
		return bill, nil
	}

	releaseLock := acquireRedisPostingLock(ctx, shopkeeperId)
	defer releaseLock()

	tx := db.Begin()
	if err := AcquireShopkeeperPostingLock(tx, shopkeeperId); err != nil {
		tx.Rollback()
		return nil, err
	}
	rollback := func() {
		ReleaseShopkeeperPostingLock(tx, shopkeeperId)
		tx.Rollback()
	}

	if err := bill.applyBalance(tx, ctx, bill.TotalAmount.Neg(), bill.PaidAmount.Neg()); err != nil {
		rollback()
		return nil, err
	}

	now := time.Now()
	if err := tx.WithContext(ctx).Model(&bill).Updates(map[string]interface{}{
		"IsDeleted": utils.NewTrue(),
		"DeletedAt": &now,
	}).Error; err != nil {
		rollback()
		return nil, err
	}

	if err := tx.WithContext(ctx).Where("shopkeeper_id = ? AND reference = ?", shopkeeperId, bill.BillNumber).Delete(&CashTransaction{}).Error; err != nil {
		rollback()
		return nil, err
	}
	if err := tx.WithContext(ctx).Where("shopkeeper_id = ? AND bill_id = ?", shopkeeperId, bill.ID).Delete(&Payment{}).Error; err != nil {
		rollback()
		return nil, err
	}

	ReleaseShopkeeperPostingLock(tx, shopkeeperId)
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return bill, nil
}

type BillFilter struct {
	BillType       BillType
	EntityType     EntityType
	EntityId       int
	PaymentMethod  PaymentMethod
	IsEdited       *bool
	IncludeDeleted bool
	StartDate      *time.Time
	EndDate        *time.Time
	Search         string
	Pagination     PaginationParams
}

func GetBills(ctx context.Context, filter BillFilter) ([]*Bill, Pagination, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, Pagination{}, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Bill{}).Where("shopkeeper_id = ?", shopkeeperId)

	if !filter.IncludeDeleted {
		dbCtx = dbCtx.Where("is_deleted = false")
	}
	if filter.BillType != "" {
		dbCtx = dbCtx.Where("bill_type = ?", filter.BillType)
	}
	if filter.EntityType != "" {
		dbCtx = dbCtx.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityId != 0 {
		dbCtx = dbCtx.Where("entity_id = ?", filter.EntityId)
	}
	if filter.PaymentMethod != "" {
		dbCtx = dbCtx.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.IsEdited != nil {
		dbCtx = dbCtx.Where("is_edited = ?", *filter.IsEdited)
	}
	if filter.StartDate != nil {
		dbCtx = dbCtx.Where("created_at >= ?", utils.StartOfDay(*filter.StartDate))
	}
	if filter.EndDate != nil {
		dbCtx = dbCtx.Where("created_at <= ?", utils.EndOfDay(*filter.EndDate))
	}
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		dbCtx = dbCtx.Where("bill_number LIKE ? OR entity_name LIKE ?", pattern, pattern)
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var bills []*Bill
	err := dbCtx.Order("created_at DESC").
		Offset(filter.Pagination.Offset()).Limit(filter.Pagination.Limit).
		Find(&bills).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	return bills, NewPagination(filter.Pagination, total), nil
}

type BillStats struct {
	TotalBills    int64           `json:"totalBills"`
	PaidBills     int64           `json:"paidBills"`
	DueBills      int64           `json:"dueBills"`
	TotalSales    decimal.Decimal `json:"totalSales"`
	TotalPurchase decimal.Decimal `json:"totalPurchase"`
	TotalDue      decimal.Decimal `json:"totalDue"`
}

func GetBillStats(ctx context.Context) (*BillStats, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	var stats BillStats
	err := db.WithContext(ctx).Model(&Bill{}).
		Select(`COUNT(*) AS total_bills,
			COUNT(CASE WHEN due_amount = 0 THEN 1 END) AS paid_bills,
			COUNT(CASE WHEN due_amount > 0 THEN 1 END) AS due_bills,
			COALESCE(SUM(CASE WHEN bill_type = 'sale' THEN total_amount ELSE 0 END), 0) AS total_sales,
			COALESCE(SUM(CASE WHEN bill_type = 'purchase' THEN total_amount ELSE 0 END), 0) AS total_purchase,
			COALESCE(SUM(due_amount), 0) AS total_due`).
		Where("shopkeeper_id = ? AND is_deleted = false", shopkeeperId).
		Scan(&stats).Error
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

// acquireRedisPostingLock is a best-effort cross-instance lock; reliability
// does not depend on it (posting also serializes via MySQL advisory locks).
func acquireRedisPostingLock(ctx context.Context, shopkeeperId int) func() {
	locker := config.GetRedisLock()
	if locker == nil {
		return func() {}
	}
	lock, err := locker.Obtain(ctx, fmt.Sprintf("lock:shopkeeper:%d", shopkeeperId), 30*time.Second, nil)
	if err != nil {
		logger := config.GetLogger()
		logger.Warn("could not obtain redis posting lock; proceeding: " + err.Error())
		return func() {}
	}
	return func() {
		if releaseErr := lock.Release(ctx); releaseErr != nil {
			config.GetLogger().Warn("failed to release redis posting lock: " + releaseErr.Error())
		}
	}
}
