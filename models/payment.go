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

// Payment is a standalone settlement against a customer's or wholesaler's
// running due, optionally linked to a specific bill.
type Payment struct {
	ID           int               `gorm:"primary_key" json:"id"`
	ShopkeeperId int               `gorm:"index;not null" json:"shopkeeper_id"`
	EntityType   PaymentEntityType `gorm:"type:enum('customer','wholesaler');not null" json:"entity_type"`
	EntityId     int               `gorm:"index;not null" json:"entity_id"`
	EntityName   string            `gorm:"size:100;not null" json:"entity_name"`

	Amount        decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentMethod PaymentMethod   `gorm:"type:enum('cash','card','online');not null" json:"payment_method"`
	Notes         string          `gorm:"size:255" json:"notes"`
	BillId        *int            `gorm:"index" json:"bill_id"`
	PaymentDate   time.Time       `gorm:"not null;index" json:"payment_date"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewPayment struct {
	EntityType    PaymentEntityType `json:"entity_type" binding:"required,oneof=customer wholesaler"`
	EntityId      int               `json:"entity_id" binding:"required"`
	Amount        decimal.Decimal   `json:"amount" binding:"required"`
	PaymentMethod PaymentMethod     `json:"payment_method" binding:"required,oneof=cash card online"`
	Notes         string            `json:"notes"`
	BillId        *int              `json:"bill_id"`
	PaymentDate   *time.Time        `json:"payment_date"`
}

func (input *NewPayment) validate(ctx context.Context, shopkeeperId int) (string, error) {
	if !input.Amount.IsPositive() {
		return "", errors.New("payment amount must be greater than zero")
	}

	var entityName string
	switch input.EntityType {
	case PaymentEntityCustomer:
		customer, err := utils.FetchModel[Customer](ctx, shopkeeperId, input.EntityId)
		if err != nil {
			return "", errors.New("customer not found")
		}
		if customer.IsDeleted != nil && *customer.IsDeleted {
			return "", errors.New("customer not found")
		}
		entityName = customer.Name
	case PaymentEntityWholesaler:
		wholesaler, err := utils.FetchModel[Wholesaler](ctx, shopkeeperId, input.EntityId)
		if err != nil {
			return "", errors.New("wholesaler not found")
		}
		if wholesaler.IsDeleted != nil && *wholesaler.IsDeleted {
			return "", errors.New("wholesaler not found")
		}
		entityName = wholesaler.Name
	default:
		return "", errors.New("invalid entity type")
	}

	if input.BillId != nil {
		bill, err := utils.FetchModel[Bill](ctx, shopkeeperId, *input.BillId)
		if err != nil {
			return "", errors.New("bill not found")
		}
		if bill.IsDeleted != nil && *bill.IsDeleted {
			return "", errors.New("bill not found")
		}
	}
	return entityName, nil
}

// paymentTransactionFields maps a settlement to its cash-book mirror row.
func (payment *Payment) transactionFields() (TransactionType, string, string) {
	if payment.EntityType == PaymentEntityCustomer {
		return TransactionTypeIncome, "Customer Payment", fmt.Sprintf("Payment from %s", payment.EntityName)
	}
	return TransactionTypeExpense, "Wholesaler Payment", fmt.Sprintf("Payment to %s", payment.EntityName)
}

// CreatePayment records a settlement: it bumps the entity's paid total, drops
// its outstanding due, mirrors into the cash book, and when linked to a bill
// also settles that bill's own paid/due columns.
func CreatePayment(ctx context.Context, input *NewPayment) (*Payment, error) {
	db := config.GetDB()

	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	entityName, err := input.validate(ctx, shopkeeperId)
	if err != nil {
		return nil, err
	}

	paymentDate := time.Now()
	if input.PaymentDate != nil {
		paymentDate = *input.PaymentDate
	}

	payment := Payment{
		ShopkeeperId:  shopkeeperId,
		EntityType:    input.EntityType,
		EntityId:      input.EntityId,
		EntityName:    entityName,
		Amount:        input.Amount,
		PaymentMethod: input.PaymentMethod,
		Notes:         input.Notes,
		BillId:        input.BillId,
		PaymentDate:   paymentDate,
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

	if err := tx.WithContext(ctx).Create(&payment).Error; err != nil {
		rollback()
		return nil, err
	}

	if payment.EntityType == PaymentEntityCustomer {
		err = recordCustomerPayment(tx, ctx, payment.EntityId, payment.Amount, paymentDate)
	} else {
		err = recordWholesalerPayment(tx, ctx, payment.EntityId, payment.Amount, paymentDate)
	}
	if err != nil {
		rollback()
		return nil, err
	}

	if payment.BillId != nil {
		if err := settleBillPayment(tx, ctx, shopkeeperId, *payment.BillId, payment.Amount); err != nil {
			rollback()
			return nil, err
		}
	}

	txnType, category, description := payment.transactionFields()
	entityType := payment.EntityType
	transaction := CashTransaction{
		ShopkeeperId:    shopkeeperId,
		Type:            txnType,
		Category:        category,
		Amount:          payment.Amount,
		PaymentMethod:   payment.PaymentMethod,
		Reference:       fmt.Sprintf("PAY-%d", payment.ID),
		Description:     description,
		EntityType:      &entityType,
		EntityId:        utils.NilIfEmpty(payment.EntityId),
		TransactionDate: paymentDate,
	}
	if err := tx.WithContext(ctx).Create(&transaction).Error; err != nil {
		rollback()
		return nil, err
	}

	ReleaseShopkeeperPostingLock(tx, shopkeeperId)
	if err := tx.Commit().Error; err != nil {
		return nil, err
	}

	InvalidateDashboardCache(shopkeeperId)
	return &payment, nil
}

// settleBillPayment moves a linked bill toward paid. The due never goes below
// zero; the surplus stays on the entity head as advance.
func settleBillPayment(tx *gorm.DB, ctx context.Context, shopkeeperId int, billId int, amount decimal.Decimal) error {
	var bill Bill
	if err := tx.WithContext(ctx).Where("shopkeeper_id = ?", shopkeeperId).Take(&bill, billId).Error; err != nil {
		return err
	}
	due, _ := ApplyBillPayment(bill.TotalAmount, bill.PaidAmount.Add(amount))
	return tx.WithContext(ctx).Model(&bill).Updates(map[string]interface{}{
		"PaidAmount": bill.PaidAmount.Add(amount),
		"DueAmount":  due,
	}).Error
}

func GetPayment(ctx context.Context, id int) (*Payment, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}
	return utils.FetchModel[Payment](ctx, shopkeeperId, id)
}

type PaymentFilter struct {
	EntityType    PaymentEntityType
	EntityId      int
	PaymentMethod PaymentMethod
	StartDate     *time.Time
	EndDate       *time.Time
	Pagination    PaginationParams
}

func GetPayments(ctx context.Context, filter PaymentFilter) ([]*Payment, Pagination, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, Pagination{}, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&Payment{}).Where("shopkeeper_id = ?", shopkeeperId)

	if filter.EntityType != "" {
		dbCtx = dbCtx.Where("entity_type = ?", filter.EntityType)
	}
	if filter.EntityId != 0 {
		dbCtx = dbCtx.Where("entity_id = ?", filter.EntityId)
	}
	if filter.PaymentMethod != "" {
		dbCtx = dbCtx.Where("payment_method = ?", filter.PaymentMethod)
	}
	if filter.StartDate != nil {
		dbCtx = dbCtx.Where("payment_date >= ?", utils.StartOfDay(*filter.StartDate))
	}
	if filter.EndDate != nil {
		dbCtx = dbCtx.Where("payment_date <= ?", utils.EndOfDay(*filter.EndDate))
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var payments []*Payment
	err := dbCtx.Order("payment_date DESC").
		Offset(filter.Pagination.Offset()).Limit(filter.Pagination.Limit).
		Find(&payments).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	return payments, NewPagination(filter.Pagination, total), nil
}
