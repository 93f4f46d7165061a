package models

import (
	"bitbucket.org/mmsoftdev/shopbooks_backend/config"
)

// MigrateTable auto-migrates every table. Order matters only for readability;
// gorm resolves foreign keys itself.
func MigrateTable() error {
	db := config.GetDB()
	return db.AutoMigrate(
		&User{},
		&Customer{},
		&Wholesaler{},
		&Bill{},
		&BillEditHistory{},
		&Payment{},
		&CashTransaction{},
		&Invoice{},
		&InvoiceItem{},
	)
}
