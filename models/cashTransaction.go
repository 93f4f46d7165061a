package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/shopspring/decimal"
)

// CashTransaction is the shop's cash book: one row per money movement.
// Bill and payment posting create these as side records; the dashboard and
// daily/monthly reports read them back.
type CashTransaction struct {
	ID              int                `gorm:"primary_key" json:"id"`
	ShopkeeperId    int                `gorm:"index;not null" json:"shopkeeper_id"`
	Type            TransactionType    `gorm:"type:enum('income','expense');not null" json:"type"`
	Category        string             `gorm:"size:50;not null" json:"category"`
	Amount          decimal.Decimal    `gorm:"type:decimal(20,4);not null" json:"amount"`
	PaymentMethod   PaymentMethod      `gorm:"type:enum('cash','card','online');not null;default:'cash'" json:"payment_method"`
	Reference       string             `gorm:"size:50;index" json:"reference"`
	Description     string             `gorm:"size:255" json:"description"`
	EntityType      *PaymentEntityType `gorm:"type:enum('customer','wholesaler')" json:"entity_type"`
	EntityId        *int               `json:"entity_id"`
	TransactionDate time.Time          `gorm:"index;not null" json:"transaction_date"`
	CreatedAt       time.Time          `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time          `gorm:"autoUpdateTime" json:"updated_at"`
}

type TransactionFilter struct {
	Type       TransactionType
	Category   string
	StartDate  *time.Time
	EndDate    *time.Time
	Pagination PaginationParams
}

func GetTransactions(ctx context.Context, filter TransactionFilter) ([]*CashTransaction, Pagination, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, Pagination{}, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	dbCtx := db.WithContext(ctx).Model(&CashTransaction{}).Where("shopkeeper_id = ?", shopkeeperId)

	if filter.Type != "" {
		dbCtx = dbCtx.Where("type = ?", filter.Type)
	}
	if filter.Category != "" {
		dbCtx = dbCtx.Where("category = ?", filter.Category)
	}
	if filter.StartDate != nil {
		dbCtx = dbCtx.Where("transaction_date >= ?", utils.StartOfDay(*filter.StartDate))
	}
	if filter.EndDate != nil {
		dbCtx = dbCtx.Where("transaction_date <= ?", utils.EndOfDay(*filter.EndDate))
	}

	var total int64
	if err := dbCtx.Count(&total).Error; err != nil {
		return nil, Pagination{}, err
	}

	var transactions []*CashTransaction
	err := dbCtx.Order("transaction_date DESC").
		Offset(filter.Pagination.Offset()).Limit(filter.Pagination.Limit).
		Find(&transactions).Error
	if err != nil {
		return nil, Pagination{}, err
	}

	return transactions, NewPagination(filter.Pagination, total), nil
}
