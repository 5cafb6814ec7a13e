package loyalty

import (
	"context"
	"errors"
	"fmt"
)

// CustomerUpdate carries the optional fields of a partial profile update.
type CustomerUpdate struct {
	Name        *string
	TotalPoints *int64
}

// Register creates an active customer with the supplied opening balance.
// An active duplicate is a conflict; a soft-deleted id is reusable and
// yields a fresh active record.
func (service *Service) Register(ctx context.Context, customerID CustomerID, name CustomerName, initialPoints InitialPoints) (Customer, error) {
	var created Customer
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		_, err := transactionStore.GetActiveCustomer(ctx, customerID.String())
		if err == nil {
			return fmt.Errorf("%w: customer id %q is already active", ErrCustomerExists, customerID.String())
		}
		if !errors.Is(err, ErrCustomerNotFound) {
			return err
		}
		created, err = transactionStore.SaveCustomer(ctx, Customer{
			CustomerID:  customerID.String(),
			Name:        name.String(),
			TotalPoints: initialPoints.Int64(),
			Deleted:     false,
		})
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:   operationRegister,
		CustomerID:  customerID,
		PointChange: initialPoints.Int64(),
		Error:       operationError,
	})
	if operationError != nil {
		return Customer{}, operationError
	}
	return created, nil
}

// Update applies a partial update of name and/or balance to an active
// customer. At least one field must be supplied.
func (service *Service) Update(ctx context.Context, customerID CustomerID, update CustomerUpdate) (Customer, error) {
	if update.Name == nil && update.TotalPoints == nil {
		return Customer{}, fmt.Errorf("%w: supply name and/or totalPoints", ErrNoUpdateFields)
	}
	var updated Customer
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		customer, err := transactionStore.GetActiveCustomer(ctx, customerID.String())
		if err != nil {
			return err
		}
		if update.Name != nil {
			customer.Name = *update.Name
		}
		if update.TotalPoints != nil {
			customer.TotalPoints = *update.TotalPoints
		}
		updated, err = transactionStore.SaveCustomer(ctx, customer)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationUpdate,
		CustomerID: customerID,
		Error:      operationError,
	})
	if operationError != nil {
		return Customer{}, operationError
	}
	return updated, nil
}

// SoftDelete flips the customer's deletion flag. Ledger history is retained.
// Deleting an already deleted customer is a conflict, not a no-op.
func (service *Service) SoftDelete(ctx context.Context, customerID CustomerID) error {
	operationError := service.store.WithTx(ctx, func(ctx context.Context, transactionStore Store) error {
		customer, err := transactionStore.GetAnyCustomer(ctx, customerID.String())
		if err != nil {
			return err
		}
		if customer.Deleted {
			return fmt.Errorf("%w: customer id %q", ErrCustomerDeleted, customerID.String())
		}
		customer.Deleted = true
		_, err = transactionStore.SaveCustomer(ctx, customer)
		return err
	})
	service.logOperation(ctx, OperationLog{
		Operation:  operationDelete,
		CustomerID: customerID,
		Error:      operationError,
	})
	return operationError
}

// Get returns an active customer. Deleted customers are indistinguishable
// from absent ones.
func (service *Service) Get(ctx context.Context, customerID CustomerID) (Customer, error) {
	return service.store.GetActiveCustomer(ctx, customerID.String())
}

// List returns all active customers.
func (service *Service) List(ctx context.Context) ([]Customer, error) {
	return service.store.ListActiveCustomers(ctx)
}
