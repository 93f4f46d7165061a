package models

import (
	"context"
	"errors"
	"fmt"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/shopspring/decimal"
)

const dashboardCacheTTL = 60 * time.Second

func dashboardCacheKey(shopkeeperId int) string {
	return fmt.Sprintf("Dashboard:%d", shopkeeperId)
}

// InvalidateDashboardCache drops the cached dashboard after any write that
// moves money. Best effort; the cache expires on its own within a minute.
func InvalidateDashboardCache(shopkeeperId int) {
	_ = config.RemoveRedisKey(dashboardCacheKey(shopkeeperId))
}

type PeriodSummary struct {
	Sales     decimal.Decimal `json:"sales"`
	Purchases decimal.Decimal `json:"purchases"`
	Collected decimal.Decimal `json:"collected"`
	BillCount int64           `json:"billCount"`
}

type TrendPoint struct {
	Date      string          `json:"date"`
	Sales     decimal.Decimal `json:"sales"`
	Purchases decimal.Decimal `json:"purchases"`
	Collected decimal.Decimal `json:"collected"`
}

type TopDueEntry struct {
	EntityId       int             `json:"entityId"`
	Name           string          `json:"name"`
	Phone          string          `json:"phone"`
	OutstandingDue decimal.Decimal `json:"outstandingDue"`
}

type DashboardAlert struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	EntityId int    `json:"entityId,omitempty"`
}

type PaymentMethodSplit struct {
	Cash   decimal.Decimal `json:"cash"`
	Card   decimal.Decimal `json:"card"`
	Online decimal.Decimal `json:"online"`
}

type Dashboard struct {
	Today     PeriodSummary `json:"today"`
	Yesterday PeriodSummary `json:"yesterday"`
	ThisWeek  PeriodSummary `json:"thisWeek"`
	ThisMonth PeriodSummary `json:"thisMonth"`

	TotalCustomerDues    decimal.Decimal `json:"totalCustomerDues"`
	TotalWholesalerDues  decimal.Decimal `json:"totalWholesalerDues"`
	TotalCustomerAdvance decimal.Decimal `json:"totalCustomerAdvance"`

	LifetimeSales     decimal.Decimal `json:"lifetimeSales"`
	LifetimePurchases decimal.Decimal `json:"lifetimePurchases"`
	LifetimeCollected decimal.Decimal `json:"lifetimeCollected"`

	OpeningCustomerSales       decimal.Decimal `json:"openingCustomerSales"`
	OpeningCustomerPayments    decimal.Decimal `json:"openingCustomerPayments"`
	OpeningWholesalerPurchases decimal.Decimal `json:"openingWholesalerPurchases"`
	OpeningWholesalerPayments  decimal.Decimal `json:"openingWholesalerPayments"`

	PaymentMethods    PaymentMethodSplit `json:"paymentMethods"`
	WeeklyTrend       []TrendPoint       `json:"weeklyTrend"`
	TopDues           []TopDueEntry      `json:"topDues"`
	TopWholesalerDues []TopDueEntry      `json:"topWholesalerDues"`
	Alerts            []DashboardAlert   `json:"alerts"`

	RecentTransactions []*CashTransaction `json:"recentTransactions"`
	RecentBills        []*Bill            `json:"recentBills"`

	GeneratedAt time.Time `json:"generatedAt"`
}

// GetDashboard assembles the shop overview. The result is cached in Redis for
// one minute and invalidated on every money-moving write.
func GetDashboard(ctx context.Context) (*Dashboard, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	var cached Dashboard
	if found, err := config.GetRedisObject(dashboardCacheKey(shopkeeperId), &cached); err == nil && found {
		return &cached, nil
	}

	now := time.Now()
	dashboard := Dashboard{GeneratedAt: now}

	var err error
	if dashboard.Today, err = periodSummary(ctx, shopkeeperId, DayRange(now)); err != nil {
		return nil, err
	}
	if dashboard.Yesterday, err = periodSummary(ctx, shopkeeperId, DayRange(now.AddDate(0, 0, -1))); err != nil {
		return nil, err
	}
	weekRange := PeriodRange{Start: utils.StartOfDay(now.AddDate(0, 0, -6)), End: utils.EndOfDay(now)}
	if dashboard.ThisWeek, err = periodSummary(ctx, shopkeeperId, weekRange); err != nil {
		return nil, err
	}
	monthRange := PeriodRange{Start: utils.StartOfMonth(now), End: utils.EndOfDay(now)}
	if dashboard.ThisMonth, err = periodSummary(ctx, shopkeeperId, monthRange); err != nil {
		return nil, err
	}

	if err = loadDuesTotals(ctx, shopkeeperId, &dashboard); err != nil {
		return nil, err
	}
	if err = loadLifetimeTotals(ctx, shopkeeperId, &dashboard); err != nil {
		return nil, err
	}
	if dashboard.PaymentMethods, err = paymentMethodSplit(ctx, shopkeeperId, monthRange); err != nil {
		return nil, err
	}
	if dashboard.WeeklyTrend, err = weeklyTrend(ctx, shopkeeperId, now); err != nil {
		return nil, err
	}
	if dashboard.TopDues, err = topCustomerDues(ctx, shopkeeperId, 5); err != nil {
		return nil, err
	}
	if dashboard.TopWholesalerDues, err = topWholesalerDues(ctx, shopkeeperId, 5); err != nil {
		return nil, err
	}
	if dashboard.Alerts, err = buildAlerts(ctx, shopkeeperId, now); err != nil {
		return nil, err
	}
	if err = loadRecentActivity(ctx, shopkeeperId, &dashboard); err != nil {
		return nil, err
	}

	_ = config.SetRedisObject(dashboardCacheKey(shopkeeperId), &dashboard, dashboardCacheTTL)
	return &dashboard, nil
}

func periodSummary(ctx context.Context, shopkeeperId int, rng PeriodRange) (PeriodSummary, error) {
	db := config.GetDB()

	var summary PeriodSummary
	err := db.WithContext(ctx).Model(&Bill{}).
		Select(`COALESCE(SUM(CASE WHEN bill_type = 'sale' THEN total_amount ELSE 0 END), 0) AS sales,
			COALESCE(SUM(CASE WHEN bill_type = 'purchase' THEN total_amount ELSE 0 END), 0) AS purchases,
			COUNT(*) AS bill_count`).
		Where("shopkeeper_id = ? AND is_deleted = false AND created_at BETWEEN ? AND ?",
			shopkeeperId, rng.Start, rng.End).
		Scan(&summary).Error
	if err != nil {
		return PeriodSummary{}, err
	}

	// A bill's paid amount already produces a payment row, so the payment sum
	// alone is the collected figure for the window.
	var collected decimal.Decimal
	err = db.WithContext(ctx).Model(&Payment{}).
		Select("COALESCE(SUM(CASE WHEN entity_type = 'customer' THEN amount ELSE 0 END), 0)").
		Where("shopkeeper_id = ? AND payment_date BETWEEN ? AND ?", shopkeeperId, rng.Start, rng.End).
		Scan(&collected).Error
	if err != nil {
		return PeriodSummary{}, err
	}
	summary.Collected = collected
	return summary, nil
}

func loadDuesTotals(ctx context.Context, shopkeeperId int, dashboard *Dashboard) error {
	db := config.GetDB()

	err := db.WithContext(ctx).Model(&Customer{}).
		Select(`COALESCE(SUM(CASE WHEN outstanding_due > 0 THEN outstanding_due ELSE 0 END), 0) AS total_customer_dues,
			COALESCE(SUM(CASE WHEN outstanding_due < 0 THEN -outstanding_due ELSE 0 END), 0) AS total_customer_advance`).
		Where("shopkeeper_id = ? AND is_deleted = false", shopkeeperId).
		Scan(dashboard).Error
	if err != nil {
		return err
	}

	return db.WithContext(ctx).Model(&Wholesaler{}).
		Select("COALESCE(SUM(CASE WHEN outstanding_due > 0 THEN outstanding_due ELSE 0 END), 0) AS total_wholesaler_dues").
		Where("shopkeeper_id = ? AND is_deleted = false", shopkeeperId).
		Scan(&dashboard.TotalWholesalerDues).Error
}

func loadLifetimeTotals(ctx context.Context, shopkeeperId int, dashboard *Dashboard) error {
	db := config.GetDB()

	err := db.WithContext(ctx).Model(&Customer{}).
		Select(`COALESCE(SUM(total_sales), 0) AS lifetime_sales,
			COALESCE(SUM(total_paid), 0) AS lifetime_collected,
			COALESCE(SUM(opening_sales), 0) AS opening_customer_sales,
			COALESCE(SUM(opening_payments), 0) AS opening_customer_payments`).
		Where("shopkeeper_id = ? AND is_deleted = false", shopkeeperId).
		Scan(dashboard).Error
	if err != nil {
		return err
	}

	type wholesalerTotals struct {
		LifetimePurchases          decimal.Decimal
		OpeningWholesalerPurchases decimal.Decimal
		OpeningWholesalerPayments  decimal.Decimal
	}
	var totals wholesalerTotals
	err = db.WithContext(ctx).Model(&Wholesaler{}).
		Select(`COALESCE(SUM(total_purchased), 0) AS lifetime_purchases,
			COALESCE(SUM(opening_purchases), 0) AS opening_wholesaler_purchases,
			COALESCE(SUM(opening_payments), 0) AS opening_wholesaler_payments`).
		Where("shopkeeper_id = ? AND is_deleted = false", shopkeeperId).
		Scan(&totals).Error
	if err != nil {
		return err
	}
	dashboard.LifetimePurchases = totals.LifetimePurchases
	dashboard.OpeningWholesalerPurchases = totals.OpeningWholesalerPurchases
	dashboard.OpeningWholesalerPayments = totals.OpeningWholesalerPayments
	return nil
}

func paymentMethodSplit(ctx context.Context, shopkeeperId int, rng PeriodRange) (PaymentMethodSplit, error) {
	db := config.GetDB()

	var split PaymentMethodSplit
	err := db.WithContext(ctx).Model(&CashTransaction{}).
		Select(`COALESCE(SUM(CASE WHEN payment_method = 'cash' THEN amount ELSE 0 END), 0) AS cash,
			COALESCE(SUM(CASE WHEN payment_method = 'card' THEN amount ELSE 0 END), 0) AS card,
			COALESCE(SUM(CASE WHEN payment_method = 'online' THEN amount ELSE 0 END), 0) AS online`).
		Where("shopkeeper_id = ? AND type = 'income' AND transaction_date BETWEEN ? AND ?",
			shopkeeperId, rng.Start, rng.End).
		Scan(&split).Error
	return split, err
}

type trendRow struct {
	Day       string
	Sales     decimal.Decimal
	Purchases decimal.Decimal
	Collected decimal.Decimal
}

func weeklyTrend(ctx context.Context, shopkeeperId int, now time.Time) ([]TrendPoint, error) {
	db := config.GetDB()
	start := utils.StartOfDay(now.AddDate(0, 0, -6))

	var billRows []trendRow
	err := db.WithContext(ctx).Model(&Bill{}).
		Select(`DATE_FORMAT(created_at, '%Y-%m-%d') AS day,
			COALESCE(SUM(CASE WHEN bill_type = 'sale' THEN total_amount ELSE 0 END), 0) AS sales,
			COALESCE(SUM(CASE WHEN bill_type = 'purchase' THEN total_amount ELSE 0 END), 0) AS purchases`).
		Where("shopkeeper_id = ? AND is_deleted = false AND created_at >= ?", shopkeeperId, start).
		Group("day").
		Scan(&billRows).Error
	if err != nil {
		return nil, err
	}

	var paymentRows []trendRow
	err = db.WithContext(ctx).Model(&Payment{}).
		Select(`DATE_FORMAT(payment_date, '%Y-%m-%d') AS day,
			COALESCE(SUM(CASE WHEN entity_type = 'customer' THEN amount ELSE 0 END), 0) AS collected`).
		Where("shopkeeper_id = ? AND payment_date >= ?", shopkeeperId, start).
		Group("day").
		Scan(&paymentRows).Error
	if err != nil {
		return nil, err
	}

	sales := make(map[string]decimal.Decimal, len(billRows))
	purchases := make(map[string]decimal.Decimal, len(billRows))
	for _, row := range billRows {
		sales[row.Day] = row.Sales
		purchases[row.Day] = row.Purchases
	}
	collected := make(map[string]decimal.Decimal, len(paymentRows))
	for _, row := range paymentRows {
		collected[row.Day] = row.Collected
	}
	return MergeWeeklyTrend(sales, purchases, collected, now), nil
}

// MergeWeeklyTrend builds a dense seven-day series ending today, filling days
// with no activity with zeros.
func MergeWeeklyTrend(sales, purchases, collected map[string]decimal.Decimal, now time.Time) []TrendPoint {
	points := make([]TrendPoint, 0, 7)
	for i := 6; i >= 0; i-- {
		day := now.AddDate(0, 0, -i).Format("2006-01-02")
		point := TrendPoint{
			Date:      day,
			Sales:     decimal.Zero,
			Purchases: decimal.Zero,
			Collected: decimal.Zero,
		}
		if v, ok := sales[day]; ok {
			point.Sales = v
		}
		if v, ok := purchases[day]; ok {
			point.Purchases = v
		}
		if v, ok := collected[day]; ok {
			point.Collected = v
		}
		points = append(points, point)
	}
	return points
}

func topCustomerDues(ctx context.Context, shopkeeperId int, limit int) ([]TopDueEntry, error) {
	db := config.GetDB()

	var entries []TopDueEntry
	err := db.WithContext(ctx).Model(&Customer{}).
		Select("id AS entity_id, name, phone, outstanding_due").
		Where("shopkeeper_id = ? AND is_deleted = false AND outstanding_due > 0", shopkeeperId).
		Order("outstanding_due DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}

func topWholesalerDues(ctx context.Context, shopkeeperId int, limit int) ([]TopDueEntry, error) {
	db := config.GetDB()

	var entries []TopDueEntry
	err := db.WithContext(ctx).Model(&Wholesaler{}).
		Select("id AS entity_id, name, phone, outstanding_due").
		Where("shopkeeper_id = ? AND is_deleted = false AND outstanding_due > 0", shopkeeperId).
		Order("outstanding_due DESC").
		Limit(limit).
		Scan(&entries).Error
	return entries, err
}

// buildAlerts flags customers whose dues have gone a week or more without a
// payment, plus wholesaler dues the shop itself owes.
func buildAlerts(ctx context.Context, shopkeeperId int, now time.Time) ([]DashboardAlert, error) {
	db := config.GetDB()
	cutoff := now.AddDate(0, 0, -7)

	var overdue []Customer
	err := db.WithContext(ctx).
		Where("shopkeeper_id = ? AND is_deleted = false AND outstanding_due > 0", shopkeeperId).
		Where("(last_payment_date IS NULL AND created_at <= ?) OR last_payment_date <= ?", cutoff, cutoff).
		Order("outstanding_due DESC").
		Limit(5).
		Find(&overdue).Error
	if err != nil {
		return nil, err
	}

	alerts := make([]DashboardAlert, 0, len(overdue)+2)
	for _, customer := range overdue {
		alerts = append(alerts, DashboardAlert{
			Type:     "overdue_customer",
			Severity: "error",
			Message: fmt.Sprintf("%s has %s due with no payment in over a week",
				customer.Name, customer.OutstandingDue.StringFixed(2)),
			EntityId: customer.ID,
		})
	}

	var customersWithDues int64
	err = db.WithContext(ctx).Model(&Customer{}).
		Where("shopkeeper_id = ? AND is_deleted = false AND outstanding_due > 0", shopkeeperId).
		Count(&customersWithDues).Error
	if err != nil {
		return nil, err
	}
	if customersWithDues > 0 {
		alerts = append(alerts, DashboardAlert{
			Type:     "customers_with_dues",
			Severity: "warning",
			Message:  fmt.Sprintf("%d customers have outstanding dues", customersWithDues),
		})
	}

	var wholesalerDue decimal.Decimal
	err = db.WithContext(ctx).Model(&Wholesaler{}).
		Select("COALESCE(SUM(CASE WHEN outstanding_due > 0 THEN outstanding_due ELSE 0 END), 0)").
		Where("shopkeeper_id = ? AND is_deleted = false", shopkeeperId).
		Scan(&wholesalerDue).Error
	if err != nil {
		return nil, err
	}
	if wholesalerDue.IsPositive() {
		alerts = append(alerts, DashboardAlert{
			Type:     "wholesaler_dues",
			Severity: "info",
			Message:  fmt.Sprintf("You owe %s to wholesalers", wholesalerDue.StringFixed(2)),
		})
	}
	return alerts, nil
}

func loadRecentActivity(ctx context.Context, shopkeeperId int, dashboard *Dashboard) error {
	db := config.GetDB()

	err := db.WithContext(ctx).
		Where("shopkeeper_id = ?", shopkeeperId).
		Order("transaction_date DESC").
		Limit(10).
		Find(&dashboard.RecentTransactions).Error
	if err != nil {
		return err
	}

	return db.WithContext(ctx).
		Where("shopkeeper_id = ? AND is_deleted = false", shopkeeperId).
		Order("created_at DESC").
		Limit(5).
		Find(&dashboard.RecentBills).Error
}
