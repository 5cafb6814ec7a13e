package loyalty

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// AmountCents is a monetary amount in integer cents.
type AmountCents int64

// CustomerID identifies a customer.
type CustomerID struct {
	value string
}

// CustomerName is a validated display name.
type CustomerName struct {
	value string
}

// TransactionID correlates a ledger entry to its originating request.
type TransactionID struct {
	value string
}

// RewardDescription names the reward a redemption pays for.
type RewardDescription struct {
	value string
}

// ChangeType enumerates ledger entry kinds.
type ChangeType string

const (
	ChangeTypeEarn   ChangeType = "Earn"
	ChangeTypeRedeem ChangeType = "Redeem"
)

// InitialPoints is a non-negative opening balance.
type InitialPoints int64

// PointsToRedeem is a strictly positive redemption amount.
type PointsToRedeem int64

// NewCustomerID validates and normalizes a customer id.
func NewCustomerID(raw string) (CustomerID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CustomerID{}, fmt.Errorf("%w: empty value", ErrInvalidCustomerID)
	}
	return CustomerID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id CustomerID) String() string {
	return id.value
}

// NewCustomerName validates and normalizes a customer name.
func NewCustomerName(raw string) (CustomerName, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CustomerName{}, fmt.Errorf("%w: empty value", ErrInvalidCustomerName)
	}
	return CustomerName{value: trimmed}, nil
}

// String returns the normalized name.
func (name CustomerName) String() string {
	return name.value
}

// NewTransactionID validates and normalizes a transaction id.
func NewTransactionID(raw string) (TransactionID, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return TransactionID{}, fmt.Errorf("%w: empty value", ErrInvalidTransactionID)
	}
	return TransactionID{value: trimmed}, nil
}

// String returns the normalized identifier.
func (id TransactionID) String() string {
	return id.value
}

// NewRewardDescription validates and normalizes a reward description.
func NewRewardDescription(raw string) (RewardDescription, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return RewardDescription{}, fmt.Errorf("%w: empty value", ErrInvalidRewardDescription)
	}
	return RewardDescription{value: trimmed}, nil
}

// String returns the normalized description.
func (description RewardDescription) String() string {
	return description.value
}

// NewAmountCents validates an amount and ensures it is strictly positive.
func NewAmountCents(raw int64) (AmountCents, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidAmountCents)
	}
	return AmountCents(raw), nil
}

// Int64 returns the raw cents value.
func (amount AmountCents) Int64() int64 {
	return int64(amount)
}

// NewInitialPoints validates a non-negative opening balance.
func NewInitialPoints(raw int64) (InitialPoints, error) {
	if raw < 0 {
		return 0, fmt.Errorf("%w: must not be negative", ErrInvalidInitialPoints)
	}
	return InitialPoints(raw), nil
}

// Int64 returns the raw points value.
func (points InitialPoints) Int64() int64 {
	return int64(points)
}

// NewPointsToRedeem validates a strictly positive redemption amount.
func NewPointsToRedeem(raw int64) (PointsToRedeem, error) {
	if raw <= 0 {
		return 0, fmt.Errorf("%w: must be greater than zero", ErrInvalidPointsToRedeem)
	}
	return PointsToRedeem(raw), nil
}

// Int64 returns the raw points value.
func (points PointsToRedeem) Int64() int64 {
	return int64(points)
}

// ParseChangeType validates a stored change type value.
func ParseChangeType(raw string) (ChangeType, error) {
	switch ChangeType(raw) {
	case ChangeTypeEarn, ChangeTypeRedeem:
		return ChangeType(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidChangeType, raw)
}

// String returns the stored representation.
func (changeType ChangeType) String() string {
	return string(changeType)
}

// DateRange is an inclusive pair of calendar days, normalized to UTC.
type DateRange struct {
	startDay time.Time
	endDay   time.Time
}

// NewDateRange validates that start does not fall after end. Both values are
// truncated to the start of their UTC day.
func NewDateRange(start time.Time, end time.Time) (DateRange, error) {
	startDay := startOfDayUTC(start)
	endDay := startOfDayUTC(end)
	if startDay.After(endDay) {
		return DateRange{}, fmt.Errorf("%w: start date %s is after end date %s", ErrInvalidDateRange, startDay.Format(dateLayout), endDay.Format(dateLayout))
	}
	return DateRange{startDay: startDay, endDay: endDay}, nil
}

// StartUnixUTC is the inclusive lower bound of the range.
func (dateRange DateRange) StartUnixUTC() int64 {
	return dateRange.startDay.Unix()
}

// EndExclusiveUnixUTC is the exclusive upper bound: start of the day after
// the inclusive end day.
func (dateRange DateRange) EndExclusiveUnixUTC() int64 {
	return dateRange.endDay.AddDate(0, 0, 1).Unix()
}

func startOfDayUTC(value time.Time) time.Time {
	utc := value.UTC()
	return time.Date(utc.Year(), utc.Month(), utc.Day(), 0, 0, 0, 0, time.UTC)
}

// Customer is the balance-carrying account record.
type Customer struct {
	CustomerID  string
	Name        string
	TotalPoints int64
	Deleted     bool
}

// Entry is a single immutable line in the points ledger.
type Entry struct {
	EntryID         int64
	CustomerID      string
	ChangeType      ChangeType
	PointChange     int64
	TransactionID   string
	CampaignApplied bool
	CreatedUnixUTC  int64
}

// EntryInput carries the fields of a ledger entry prior to insertion.
type EntryInput struct {
	CustomerID      string
	ChangeType      ChangeType
	PointChange     int64
	TransactionID   string
	CampaignApplied bool
	CreatedUnixUTC  int64
}

// Store is the persistence contract used by Service.
// (gormstore implements this already.)
type Store interface {
	WithTx(ctx context.Context, fn func(ctx context.Context, txStore Store) error) error
	GetActiveCustomer(ctx context.Context, customerID string) (Customer, error)
	GetAnyCustomer(ctx context.Context, customerID string) (Customer, error)
	ListActiveCustomers(ctx context.Context) ([]Customer, error)
	SaveCustomer(ctx context.Context, customer Customer) (Customer, error)
	AppendEntry(ctx context.Context, entry EntryInput) (Entry, error)
	SumEarnedInRange(ctx context.Context, customerID string, startUnixUTC int64, endUnixUTC int64) (int64, error)
	DeleteEntriesForCustomer(ctx context.Context, customerID string) error
}
