package gormstore

import "time"

// Customer mirrors the customers table.
type Customer struct {
	CustomerID  string    `gorm:"primaryKey"`
	Name        string    `gorm:"not null"`
	TotalPoints int64     `gorm:"not null"`
	IsDeleted   bool      `gorm:"not null;index:idx_customers_is_deleted"`
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (Customer) TableName() string { return "customers" }

// LedgerEntry mirrors the points_ledger table.
type LedgerEntry struct {
	ID              int64     `gorm:"primaryKey;autoIncrement"`
	CustomerID      string    `gorm:"not null;index:idx_points_ledger_customer_created,priority:1"`
	ChangeType      string    `gorm:"not null"`
	PointChange     int64     `gorm:"not null"`
	TransactionID   string    `gorm:"not null;uniqueIndex:uniq_points_ledger_transaction_id"`
	CampaignApplied bool      `gorm:"not null"`
	CreatedAt       time.Time `gorm:"not null;index:idx_points_ledger_customer_created,priority:2"`
}

func (LedgerEntry) TableName() string { return "points_ledger" }
