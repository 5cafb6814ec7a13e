package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/elagi/loyalty/pkg/loyalty"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	constraintTransactionID = "uniq_points_ledger_transaction_id"
	pgUniqueViolationCode   = "23505"
	errorOperationStore     = "store"
	errorSubjectCustomer    = "customer"
	errorSubjectEntry       = "entry"
	errorSubjectTransaction = "transaction"
	errorCodeBegin          = "begin"
	errorCodeCommit         = "commit"
	errorCodeDelete         = "delete"
	errorCodeDuplicate      = "duplicate"
	errorCodeGet            = "get"
	errorCodeInsert         = "insert"
	errorCodeInvalid        = "invalid"
	errorCodeList           = "list"
	errorCodeSave           = "save"
	errorCodeSumEarned      = "sum_earned"

	sqlSelectActiveCustomer = `
		select customer_id, name, total_points, is_deleted
		from customers
		where customer_id = $1 and is_deleted = false
		for update
	`

	sqlSelectAnyCustomer = `
		select customer_id, name, total_points, is_deleted
		from customers
		where customer_id = $1
		for update
	`

	sqlListActiveCustomers = `
		select customer_id, name, total_points, is_deleted
		from customers
		where is_deleted = false
		order by customer_id
	`

	sqlUpsertCustomer = `
		insert into customers(customer_id, name, total_points, is_deleted, created_at, updated_at)
		values($1, $2, $3, $4, now(), now())
		on conflict (customer_id) do update
		set name = excluded.name, total_points = excluded.total_points,
			is_deleted = excluded.is_deleted, updated_at = now()
	`

	sqlInsertEntry = `
		insert into points_ledger(customer_id, change_type, point_change, transaction_id, campaign_applied, created_at)
		values($1, $2, $3, $4, $5, to_timestamp($6))
		returning id
	`

	sqlSumEarnedInRange = `
		select coalesce(sum(point_change),0) from points_ledger
		where customer_id = $1 and change_type = $2
		and created_at >= to_timestamp($3) and created_at < to_timestamp($4)
	`

	sqlDeleteEntries = `
		delete from points_ledger where customer_id = $1
	`
)

// querier is the subset of pgx shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store implements loyalty.Store using a pgx connection pool (autocommit).
type Store struct {
	pool *pgxpool.Pool
}

// TxStore implements loyalty.Store for an active transaction.
type TxStore struct {
	tx pgx.Tx
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore loyalty.Store) error) error {
	tx, err := store.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeBegin, err)
	}
	transactionStore := &TxStore{tx: tx}
	if err := fn(ctx, transactionStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTransaction, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) GetActiveCustomer(ctx context.Context, customerID string) (loyalty.Customer, error) {
	return getCustomer(ctx, store.pool, sqlSelectActiveCustomer, customerID)
}

func (store *Store) GetAnyCustomer(ctx context.Context, customerID string) (loyalty.Customer, error) {
	return getCustomer(ctx, store.pool, sqlSelectAnyCustomer, customerID)
}

func (store *Store) ListActiveCustomers(ctx context.Context) ([]loyalty.Customer, error) {
	return listActiveCustomers(ctx, store.pool)
}

func (store *Store) SaveCustomer(ctx context.Context, customer loyalty.Customer) (loyalty.Customer, error) {
	return saveCustomer(ctx, store.pool, customer)
}

func (store *Store) AppendEntry(ctx context.Context, entryInput loyalty.EntryInput) (loyalty.Entry, error) {
	return appendEntry(ctx, store.pool, entryInput)
}

func (store *Store) SumEarnedInRange(ctx context.Context, customerID string, startUnixUTC int64, endUnixUTC int64) (int64, error) {
	return sumEarnedInRange(ctx, store.pool, customerID, startUnixUTC, endUnixUTC)
}

func (store *Store) DeleteEntriesForCustomer(ctx context.Context, customerID string) error {
	return deleteEntriesForCustomer(ctx, store.pool, customerID)
}

func (store *TxStore) WithTx(ctx context.Context, fn func(ctx context.Context, txStore loyalty.Store) error) error {
	return fn(ctx, store)
}

func (store *TxStore) GetActiveCustomer(ctx context.Context, customerID string) (loyalty.Customer, error) {
	return getCustomer(ctx, store.tx, sqlSelectActiveCustomer, customerID)
}

func (store *TxStore) GetAnyCustomer(ctx context.Context, customerID string) (loyalty.Customer, error) {
	return getCustomer(ctx, store.tx, sqlSelectAnyCustomer, customerID)
}

func (store *TxStore) ListActiveCustomers(ctx context.Context) ([]loyalty.Customer, error) {
	return listActiveCustomers(ctx, store.tx)
}

func (store *TxStore) SaveCustomer(ctx context.Context, customer loyalty.Customer) (loyalty.Customer, error) {
	return saveCustomer(ctx, store.tx, customer)
}

func (store *TxStore) AppendEntry(ctx context.Context, entryInput loyalty.EntryInput) (loyalty.Entry, error) {
	return appendEntry(ctx, store.tx, entryInput)
}

func (store *TxStore) SumEarnedInRange(ctx context.Context, customerID string, startUnixUTC int64, endUnixUTC int64) (int64, error) {
	return sumEarnedInRange(ctx, store.tx, customerID, startUnixUTC, endUnixUTC)
}

func (store *TxStore) DeleteEntriesForCustomer(ctx context.Context, customerID string) error {
	return deleteEntriesForCustomer(ctx, store.tx, customerID)
}

func getCustomer(ctx context.Context, q querier, query string, customerID string) (loyalty.Customer, error) {
	var customer loyalty.Customer
	err := q.QueryRow(ctx, query, customerID).Scan(
		&customer.CustomerID,
		&customer.Name,
		&customer.TotalPoints,
		&customer.Deleted,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return loyalty.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeGet, loyalty.ErrCustomerNotFound)
		}
		return loyalty.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeGet, err)
	}
	return customer, nil
}

func listActiveCustomers(ctx context.Context, q querier) ([]loyalty.Customer, error) {
	rows, err := q.Query(ctx, sqlListActiveCustomers)
	if err != nil {
		return nil, wrapStoreError(errorSubjectCustomer, errorCodeList, err)
	}
	defer rows.Close()
	customers := make([]loyalty.Customer, 0, 32)
	for rows.Next() {
		var customer loyalty.Customer
		if err := rows.Scan(&customer.CustomerID, &customer.Name, &customer.TotalPoints, &customer.Deleted); err != nil {
			return nil, wrapStoreError(errorSubjectCustomer, errorCodeInvalid, err)
		}
		customers = append(customers, customer)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectCustomer, errorCodeList, err)
	}
	return customers, nil
}

func saveCustomer(ctx context.Context, q querier, customer loyalty.Customer) (loyalty.Customer, error) {
	_, err := q.Exec(ctx, sqlUpsertCustomer,
		customer.CustomerID,
		customer.Name,
		customer.TotalPoints,
		customer.Deleted,
	)
	if err != nil {
		return loyalty.Customer{}, wrapStoreError(errorSubjectCustomer, errorCodeSave, err)
	}
	return customer, nil
}

func appendEntry(ctx context.Context, q querier, entryInput loyalty.EntryInput) (loyalty.Entry, error) {
	createdUnixUTC := entryInput.CreatedUnixUTC
	if createdUnixUTC == 0 {
		createdUnixUTC = time.Now().UTC().Unix()
	}
	var entryID int64
	err := q.QueryRow(ctx, sqlInsertEntry,
		entryInput.CustomerID,
		entryInput.ChangeType.String(),
		entryInput.PointChange,
		entryInput.TransactionID,
		entryInput.CampaignApplied,
		createdUnixUTC,
	).Scan(&entryID)
	if isTransactionIDConflict(err) {
		return loyalty.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeDuplicate, loyalty.ErrDuplicateTransactionID)
	}
	if err != nil {
		return loyalty.Entry{}, wrapStoreError(errorSubjectEntry, errorCodeInsert, err)
	}
	return loyalty.Entry{
		EntryID:         entryID,
		CustomerID:      entryInput.CustomerID,
		ChangeType:      entryInput.ChangeType,
		PointChange:     entryInput.PointChange,
		TransactionID:   entryInput.TransactionID,
		CampaignApplied: entryInput.CampaignApplied,
		CreatedUnixUTC:  createdUnixUTC,
	}, nil
}

func sumEarnedInRange(ctx context.Context, q querier, customerID string, startUnixUTC int64, endUnixUTC int64) (int64, error) {
	var sum int64
	err := q.QueryRow(ctx, sqlSumEarnedInRange,
		customerID,
		loyalty.ChangeTypeEarn.String(),
		startUnixUTC,
		endUnixUTC,
	).Scan(&sum)
	if err != nil {
		return 0, wrapStoreError(errorSubjectEntry, errorCodeSumEarned, err)
	}
	return sum, nil
}

func deleteEntriesForCustomer(ctx context.Context, q querier, customerID string) error {
	if _, err := q.Exec(ctx, sqlDeleteEntries, customerID); err != nil {
		return wrapStoreError(errorSubjectEntry, errorCodeDelete, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return loyalty.WrapError(errorOperationStore, subject, code, err)
}

func isTransactionIDConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode && pgErr.ConstraintName == constraintTransactionID
	}
	return false
}
