package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/elagi/loyalty/pkg/loyalty"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	constraintTransactionID = "uniq_points_ledger_transaction_id"
	pgUniqueViolationCode   = "23505"
	sqliteConstraintCode    = 19
	dialectPostgres         = "postgres"
	errorOperationStore     = "store"
	errorSubjectCustomer    = "customer"
	errorSubjectEntry       = "entry"
	errorCodeDelete         = "delete"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeSave           = "save"
	errorCodeSumEarned      = "sum_earned"
)

// Store implements loyalty.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore loyalty.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

func (store *Store) GetActiveCustomer(ctx context.Context, customerID string) (loyalty.Customer, error) {
	return store.getCustomer(ctx, customerID, true)
}

func (store *Store) GetAnyCustomer(ctx context.Context, customerID string) (loyalty.Customer, error) {
	return store.getCustomer(ctx, customerID, false)
}

func (store *Store) getCustomer(ctx context.Context, customerID string, activeOnly bool) (loyalty.Customer, error) {
	query := store.db.WithContext(ctx).Where("customer_id = ?", customerID)
	if activeOnly {
		query = query.Where("is_deleted = ?", false)
	}
	// Row-level lock serializes concurrent read-modify-write on the same
	// customer. sqlite has no FOR UPDATE; its writer lock covers this.
	if store.db.Dialector.Name() == dialectPostgres {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var model Customer
	if err := query.Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return loyalty.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeGet, loyalty.ErrCustomerNotFound)
		}
		return loyalty.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeGet, err)
	}
	return mapCustomer(model), nil
}

func (store *Store) ListActiveCustomers(ctx context.Context) ([]loyalty.Customer, error) {
	var rows []Customer
	err := store.db.WithContext(ctx).
		Where("is_deleted = ?", false).
		Order("customer_id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectCustomer, errorCodeList, err)
	}
	customers := make([]loyalty.Customer, 0, len(rows))
	for _, row := range rows {
		customers = append(customers, mapCustomer(row))
	}
	return customers, nil
}

// SaveCustomer upserts by primary key, so re-registering a soft-deleted id
// replaces the old record with a fresh active one.
func (store *Store) SaveCustomer(ctx context.Context, customer loyalty.Customer) (loyalty.Customer, error) {
	model := Customer{
		CustomerID:  customer.CustomerID,
		Name:        customer.Name,
		TotalPoints: customer.TotalPoints,
		IsDeleted:   customer.Deleted,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "customer_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "total_points", "is_deleted", "updated_at"}),
		}).
		Create(&model).Error
	if err != nil {
		return loyalty.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeSave, err)
	}
	return mapCustomer(model), nil
}

func (store *Store) AppendEntry(ctx context.Context, entryInput loyalty.EntryInput) (loyalty.Entry, error) {
	model := LedgerEntry{
		CustomerID:      entryInput.CustomerID,
		ChangeType:      entryInput.ChangeType.String(),
		PointChange:     entryInput.PointChange,
		TransactionID:   entryInput.TransactionID,
		CampaignApplied: entryInput.CampaignApplied,
		CreatedAt:       time.Unix(entryInput.CreatedUnixUTC, 0).UTC(),
	}
	if entryInput.CreatedUnixUTC == 0 {
		model.CreatedAt = time.Now().UTC()
	}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isTransactionIDConflict(err) {
		return loyalty.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeDuplicate, loyalty.ErrDuplicateTransactionID)
	}
	if err != nil {
		return loyalty.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	entry, err := mapLedgerEntry(model)
	if err != nil {
		return loyalty.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInvalid, err)
	}
	return entry, nil
}

func (store *Store) SumEarnedInRange(ctx context.Context, customerID string, startUnixUTC int64, endUnixUTC int64) (int64, error) {
	start := time.Unix(startUnixUTC, 0).UTC()
	end := time.Unix(endUnixUTC, 0).UTC()
	var sum sqlSum
	err := store.db.WithContext(ctx).
		Model(&LedgerEntry{}).
		Select("coalesce(sum(point_change),0) as total").
		Where("customer_id = ?", customerID).
		Where("change_type = ?", loyalty.ChangeTypeEarn.String()).
		Where("created_at >= ? AND created_at < ?", start, end).
		Scan(&sum).Error
	if err != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeSumEarned, err)
	}
	return sum.Total, nil
}

func (store *Store) DeleteEntriesForCustomer(ctx context.Context, customerID string) error {
	err := store.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&LedgerEntry{}).Error
	if err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeDelete, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return loyalty.WrapError(errorOperationStore, subject, code, err)
}

type sqlSum struct {
	Total int64
}

func mapCustomer(model Customer) loyalty.Customer {
	return loyalty.Customer{
		CustomerID:  model.CustomerID,
		Name:        model.Name,
		TotalPoints: model.TotalPoints,
		Deleted:     model.IsDeleted,
	}
}

func mapLedgerEntry(model LedgerEntry) (loyalty.Entry, error) {
	changeType, err := loyalty.ParseChangeType(model.ChangeType)
	if err != nil {
		return loyalty.Entry{}, err
	}
	return loyalty.Entry{
		EntryID:         model.ID,
		CustomerID:      model.CustomerID,
		ChangeType:      changeType,
		PointChange:     model.PointChange,
		TransactionID:   model.TransactionID,
		CampaignApplied: model.CampaignApplied,
		CreatedUnixUTC:  model.CreatedAt.Unix(),
	}, nil
}

func isTransactionIDConflict(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintTransactionID
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
