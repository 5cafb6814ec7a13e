package loyalty

import (
	"errors"
	"fmt"
)

// Domain-level error values returned by the loyalty service.
var (
	ErrCustomerNotFound         = errors.New("customer not found")
	ErrCustomerExists           = errors.New("customer already exists")
	ErrCustomerDeleted          = errors.New("customer already deleted")
	ErrInsufficientBalance      = errors.New("insufficient points")
	ErrDuplicateTransactionID   = errors.New("duplicate transaction id")
	ErrNoUpdateFields           = errors.New("no update fields")
	ErrInvalidCustomerID        = errors.New("invalid customer id")
	ErrInvalidCustomerName      = errors.New("invalid customer name")
	ErrInvalidAmountCents       = errors.New("invalid amount cents")
	ErrInvalidInitialPoints     = errors.New("invalid initial points")
	ErrInvalidPointsToRedeem    = errors.New("invalid points to redeem")
	ErrInvalidRewardDescription = errors.New("invalid reward description")
	ErrInvalidTransactionID     = errors.New("invalid transaction id")
	ErrInvalidChangeType        = errors.New("invalid change type")
	ErrInvalidDateRange         = errors.New("invalid date range")
	ErrInvalidServiceConfig     = errors.New("invalid service config")
)

// OperationError wraps a failure with a stable operation code.
type OperationError struct {
	operation string
	subject   string
	code      string
	err       error
}

// Error returns the formatted error message.
func (operationError OperationError) Error() string {
	return fmt.Sprintf("%s.%s.%s: %v", operationError.operation, operationError.subject, operationError.code, operationError.err)
}

// Unwrap returns the underlying error.
func (operationError OperationError) Unwrap() error {
	return operationError.err
}

// Operation returns the operation segment.
func (operationError OperationError) Operation() string {
	return operationError.operation
}

// Subject returns the subject segment.
func (operationError OperationError) Subject() string {
	return operationError.subject
}

// Code returns the stable error code segment.
func (operationError OperationError) Code() string {
	return operationError.code
}

// WrapError wraps an error with operation, subject, and code metadata.
func WrapError(operation string, subject string, code string, err error) error {
	if err == nil {
		return nil
	}
	return OperationError{
		operation: operation,
		subject:   subject,
		code:      code,
		err:       err,
	}
}
