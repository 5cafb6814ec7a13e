package loyalty

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// Service contains the accounting logic over a Store.
type Service struct {
	store            Store
	nowFn            func() int64
	newTransactionID func() string
	logger           OperationLogger
}

// NewService wires a Service.
func NewService(store Store, now func() int64, options ...ServiceOption) (*Service, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: store dependency is nil", ErrInvalidServiceConfig)
	}
	if now == nil {
		return nil, fmt.Errorf("%w: clock dependency is nil", ErrInvalidServiceConfig)
	}
	service := &Service{store: store, nowFn: now, newTransactionID: uuid.NewString}
	for _, option := range options {
		if option != nil {
			option(service)
		}
	}
	return service, nil
}

// PurchaseResult reports the outcome of a purchase.
type PurchaseResult struct {
	Customer      Customer
	PointsEarned  int64
	TransactionID string
}

// RedeemResult reports the outcome of a redemption.
type RedeemResult struct {
	Customer       Customer
	PointsRedeemed int64
	Reward         string
	TransactionID  string
}

// RecordEvent applies a point delta to an active customer and appends the
// matching ledger entry. Both writes happen inside one store transaction so
// no reader observes a balance without its ledger row. The delta is applied
// as given; redemption capping is the caller's concern.
func (service *Service) RecordEvent(ctx context.Context, customerID CustomerID, changeType ChangeType, pointChange int64, transactionID TransactionID, campaignApplied bool) (Customer, error) {
	if _, err := ParseChangeType(changeType.String()); err != nil {
		return Customer{}, err
	}
	var updated Customer
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		customer, err := transactionStore.GetActiveCustomer(ctx, customerID.String())
		if err != nil {
			return err
		}
		customer.TotalPoints += pointChange
		updated, err = transactionStore.SaveCustomer(ctx, customer)
		if err != nil {
			return err
		}
		_, err = transactionStore.AppendEntry(ctx, EntryInput{
			CustomerID:      customerID.String(),
			ChangeType:      changeType,
			PointChange:     pointChange,
			TransactionID:   transactionID.String(),
			CampaignApplied: campaignApplied,
			CreatedUnixUTC:  service.nowFn(),
		})
		return err
	})
	if operationError != nil {
		return Customer{}, operationError
	}
	return updated, nil
}

// Purchase awards points for a monetary amount. Amounts below the points
// unit leave the customer and the ledger untouched.
func (service *Service) Purchase(ctx context.Context, customerID CustomerID, amount AmountCents) (PurchaseResult, error) {
	result, operationError := service.purchase(ctx, customerID, amount)
	service.logOperation(ctx, OperationLog{
		Operation:     operationPurchase,
		CustomerID:    customerID,
		ChangeType:    ChangeTypeEarn,
		PointChange:   result.PointsEarned,
		TransactionID: result.TransactionID,
		Error:         operationError,
	})
	return result, operationError
}

func (service *Service) purchase(ctx context.Context, customerID CustomerID, amount AmountCents) (PurchaseResult, error) {
	customer, err := service.store.GetActiveCustomer(ctx, customerID.String())
	if err != nil {
		return PurchaseResult{}, err
	}
	pointsEarned := PointsForAmount(amount.Int64())
	if pointsEarned == 0 {
		return PurchaseResult{Customer: customer}, nil
	}
	transactionID, err := NewTransactionID(service.newTransactionID())
	if err != nil {
		return PurchaseResult{}, err
	}
	updated, err := service.RecordEvent(ctx, customerID, ChangeTypeEarn, pointsEarned, transactionID, false)
	if err != nil {
		return PurchaseResult{}, err
	}
	return PurchaseResult{
		Customer:      updated,
		PointsEarned:  pointsEarned,
		TransactionID: transactionID.String(),
	}, nil
}

// Redeem debits points in exchange for a reward. The debit is rejected when
// it exceeds the current balance, leaving balance and ledger unchanged.
func (service *Service) Redeem(ctx context.Context, customerID CustomerID, points PointsToRedeem, reward RewardDescription) (RedeemResult, error) {
	result, operationError := service.redeem(ctx, customerID, points, reward)
	service.logOperation(ctx, OperationLog{
		Operation:     operationRedeem,
		CustomerID:    customerID,
		ChangeType:    ChangeTypeRedeem,
		PointChange:   -points.Int64(),
		TransactionID: result.TransactionID,
		Error:         operationError,
	})
	return result, operationError
}

func (service *Service) redeem(ctx context.Context, customerID CustomerID, points PointsToRedeem, reward RewardDescription) (RedeemResult, error) {
	customer, err := service.store.GetActiveCustomer(ctx, customerID.String())
	if err != nil {
		return RedeemResult{}, err
	}
	if points.Int64() > customer.TotalPoints {
		return RedeemResult{}, fmt.Errorf("%w: customer has %d points but tried to redeem %d", ErrInsufficientBalance, customer.TotalPoints, points.Int64())
	}
	transactionID, err := NewTransactionID(service.newTransactionID())
	if err != nil {
		return RedeemResult{}, err
	}
	updated, err := service.RecordEvent(ctx, customerID, ChangeTypeRedeem, -points.Int64(), transactionID, true)
	if err != nil {
		return RedeemResult{}, err
	}
	return RedeemResult{
		Customer:       updated,
		PointsRedeemed: points.Int64(),
		Reward:         reward.String(),
		TransactionID:  transactionID.String(),
	}, nil
}

// PointsEarnedInPeriod sums Earn entries for the customer over the inclusive
// date range. Redeem entries never contribute; an empty window yields zero.
func (service *Service) PointsEarnedInPeriod(ctx context.Context, customerID CustomerID, dateRange DateRange) (int64, error) {
	if _, err := service.store.GetActiveCustomer(ctx, customerID.String()); err != nil {
		return 0, err
	}
	return service.store.SumEarnedInRange(ctx, customerID.String(), dateRange.StartUnixUTC(), dateRange.EndExclusiveUnixUTC())
}

func (service *Service) logOperation(ctx context.Context, entry OperationLog) {
	if service.logger == nil {
		return
	}
	if entry.Status == "" {
		if entry.Error != nil {
			entry.Status = operationStatusError
		} else {
			entry.Status = operationStatusOK
		}
	}
	service.logger.LogOperation(ctx, entry)
}
