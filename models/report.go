package models

import (
	"context"
	"errors"
	"time"

	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
	"bitbucket.org/mmsoftdev/shopbooks_backend/utils"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

type DailyReport struct {
	Date    string          `json:"date"`
	Summary PeriodAggregate `json:"summary"`

	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Net     decimal.Decimal `json:"net"`

	Bills        []*Bill            `json:"bills"`
	Payments     []*Payment         `json:"payments"`
	Transactions []*CashTransaction `json:"transactions"`
}

// GetDailyReport aggregates one local day of activity: bill/payment summary
// plus the cash book's income/expense totals for the day.
func GetDailyReport(ctx context.Context, day time.Time) (*DailyReport, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	rng := DayRange(day)
	bills, payments, err := fetchPeriodActivity(ctx, shopkeeperId, rng)
	if err != nil {
		return nil, err
	}

	report := DailyReport{
		Date:     day.Format("2006-01-02"),
		Summary:  AggregatePeriod(bills, payments, rng),
		Bills:    toPointers(bills),
		Payments: toPointers(payments),
	}

	db := config.GetDB()
	err = db.WithContext(ctx).
		Where("shopkeeper_id = ? AND transaction_date BETWEEN ? AND ?", shopkeeperId, rng.Start, rng.End).
		Order("transaction_date").
		Find(&report.Transactions).Error
	if err != nil {
		return nil, err
	}

	report.Income = decimal.Zero
	report.Expense = decimal.Zero
	for _, transaction := range report.Transactions {
		if transaction.Type == TransactionTypeIncome {
			report.Income = report.Income.Add(transaction.Amount)
		} else {
			report.Expense = report.Expense.Add(transaction.Amount)
		}
	}
	report.Net = report.Income.Sub(report.Expense)
	return &report, nil
}

type MonthlyReportDay struct {
	Date      string          `json:"date"`
	Sales     decimal.Decimal `json:"sales"`
	Collected decimal.Decimal `json:"collected"`
	BillCount int             `json:"billCount"`
}

type MonthlyReport struct {
	Month   string             `json:"month"`
	Summary PeriodAggregate    `json:"summary"`
	Days    []MonthlyReportDay `json:"days"`
}

// GetMonthlyReport aggregates a calendar month with a per-day breakdown.
func GetMonthlyReport(ctx context.Context, year int, month time.Month) (*MonthlyReport, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	start := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	end := utils.EndOfDay(start.AddDate(0, 1, -1))
	rng := PeriodRange{Start: start, End: end}

	bills, payments, err := fetchPeriodActivity(ctx, shopkeeperId, rng)
	if err != nil {
		return nil, err
	}

	report := MonthlyReport{
		Month:   start.Format("2006-01"),
		Summary: AggregatePeriod(bills, payments, rng),
	}

	daysInMonth := start.AddDate(0, 1, -1).Day()
	for dayNum := 1; dayNum <= daysInMonth; dayNum++ {
		day := time.Date(year, month, dayNum, 0, 0, 0, 0, time.Local)
		dayRng := DayRange(day)

		entry := MonthlyReportDay{
			Date:      day.Format("2006-01-02"),
			Sales:     decimal.Zero,
			Collected: decimal.Zero,
		}
		for _, bill := range bills {
			if !dayRng.Contains(bill.CreatedAt) {
				continue
			}
			entry.BillCount++
			if bill.BillType == BillTypeSale {
				entry.Sales = entry.Sales.Add(bill.TotalAmount)
			}
		}
		for _, payment := range payments {
			if dayRng.Contains(payment.PaymentDate) && payment.EntityType == PaymentEntityCustomer {
				entry.Collected = entry.Collected.Add(payment.Amount)
			}
		}
		report.Days = append(report.Days, entry)
	}
	return &report, nil
}

func fetchPeriodActivity(ctx context.Context, shopkeeperId int, rng PeriodRange) ([]Bill, []Payment, error) {
	db := config.GetDB()

	var bills []Bill
	err := db.WithContext(ctx).
		Where("shopkeeper_id = ? AND is_deleted = false AND created_at BETWEEN ? AND ?",
			shopkeeperId, rng.Start, rng.End).
		Order("created_at").
		Find(&bills).Error
	if err != nil {
		return nil, nil, err
	}

	var payments []Payment
	err = db.WithContext(ctx).
		Where("shopkeeper_id = ? AND payment_date BETWEEN ? AND ?", shopkeeperId, rng.Start, rng.End).
		Order("payment_date").
		Find(&payments).Error
	if err != nil {
		return nil, nil, err
	}
	return bills, payments, nil
}

func toPointers[T any](values []T) []*T {
	out := make([]*T, len(values))
	for i := range values {
		out[i] = &values[i]
	}
	return out
}

type OutstandingDueRow struct {
	EntityId        int             `json:"entityId"`
	EntityType      string          `json:"entityType"`
	Name            string          `json:"name"`
	Phone           string          `json:"phone"`
	OutstandingDue  decimal.Decimal `json:"outstandingDue"`
	LastPaymentDate *time.Time      `json:"lastPaymentDate"`
}

type OutstandingDuesReport struct {
	CustomerDues   []OutstandingDueRow `json:"customerDues"`
	WholesalerDues []OutstandingDueRow `json:"wholesalerDues"`
	TotalToCollect decimal.Decimal     `json:"totalToCollect"`
	TotalToPay     decimal.Decimal     `json:"totalToPay"`
}

func GetOutstandingDuesReport(ctx context.Context) (*OutstandingDuesReport, error) {
	shopkeeperId, ok := utils.GetShopkeeperIdFromContext(ctx)
	if !ok || shopkeeperId == 0 {
		return nil, errors.New("shopkeeper id is required")
	}

	db := config.GetDB()
	report := OutstandingDuesReport{
		TotalToCollect: decimal.Zero,
		TotalToPay:     decimal.Zero,
	}

	var customers []Customer
	err := db.WithContext(ctx).
		Where("shopkeeper_id = ? AND is_deleted = false AND outstanding_due > 0", shopkeeperId).
		Order("outstanding_due DESC").
		Find(&customers).Error
	if err != nil {
		return nil, err
	}
	for _, customer := range customers {
		report.CustomerDues = append(report.CustomerDues, OutstandingDueRow{
			EntityId:        customer.ID,
			EntityType:      "customer",
			Name:            customer.Name,
			Phone:           customer.Phone,
			OutstandingDue:  customer.OutstandingDue,
			LastPaymentDate: customer.LastPaymentDate,
		})
		report.TotalToCollect = report.TotalToCollect.Add(customer.OutstandingDue)
	}

	var wholesalers []Wholesaler
	err = db.WithContext(ctx).
		Where("shopkeeper_id = ? AND is_deleted = false AND outstanding_due > 0", shopkeeperId).
		Order("outstanding_due DESC").
		Find(&wholesalers).Error
	if err != nil {
		return nil, err
	}
	for _, wholesaler := range wholesalers {
		report.WholesalerDues = append(report.WholesalerDues, OutstandingDueRow{
			EntityId:        wholesaler.ID,
			EntityType:      "wholesaler",
			Name:            wholesaler.Name,
			Phone:           wholesaler.Phone,
			OutstandingDue:  wholesaler.OutstandingDue,
			LastPaymentDate: wholesaler.LastPaymentDate,
		})
		report.TotalToPay = report.TotalToPay.Add(wholesaler.OutstandingDue)
	}
	return &report, nil
}

// ExportOutstandingDuesExcel renders the dues report as a two-sheet workbook.
func ExportOutstandingDuesExcel(ctx context.Context) (*excelize.File, error) {
	report, err := GetOutstandingDuesReport(ctx)
	if err != nil {
		return nil, err
	}

	file := excelize.NewFile()

	writeDuesSheet := func(sheet string, rows []OutstandingDueRow, totalLabel string, total decimal.Decimal) error {
		if _, err := file.NewSheet(sheet); err != nil {
			return err
		}
		headers := []string{"Name", "Phone", "Outstanding Due", "Last Payment"}
		for col, header := range headers {
			cell, _ := excelize.CoordinatesToCellName(col+1, 1)
			if err := file.SetCellValue(sheet, cell, header); err != nil {
				return err
			}
		}
		for i, row := range rows {
			rowNum := i + 2
			lastPayment := ""
			if row.LastPaymentDate != nil {
				lastPayment = row.LastPaymentDate.Format("2006-01-02")
			}
			values := []interface{}{row.Name, row.Phone, row.OutstandingDue.StringFixed(2), lastPayment}
			for col, value := range values {
				cell, _ := excelize.CoordinatesToCellName(col+1, rowNum)
				if err := file.SetCellValue(sheet, cell, value); err != nil {
					return err
				}
			}
		}
		totalRow := len(rows) + 3
		cell, _ := excelize.CoordinatesToCellName(1, totalRow)
		if err := file.SetCellValue(sheet, cell, totalLabel); err != nil {
			return err
		}
		cell, _ = excelize.CoordinatesToCellName(3, totalRow)
		return file.SetCellValue(sheet, cell, total.StringFixed(2))
	}

	if err := writeDuesSheet("Customer Dues", report.CustomerDues, "Total to collect", report.TotalToCollect); err != nil {
		return nil, err
	}
	if err := writeDuesSheet("Wholesaler Dues", report.WholesalerDues, "Total to pay", report.TotalToPay); err != nil {
		return nil, err
	}

	if err := file.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	if index, err := file.GetSheetIndex("Customer Dues"); err == nil {
		file.SetActiveSheet(index)
	}
	return file, nil
}
