package httpapi

import (
	"errors"
	"net/http"

	"github.com/elagi/loyalty/pkg/loyalty"
)

const (
	errorCodeNotFound             = "customer_not_found"
	errorCodeCustomerExists       = "customer_exists"
	errorCodeCustomerDeleted      = "customer_deleted"
	errorCodeInsufficientPoints   = "insufficient_points"
	errorCodeNoUpdateFields       = "no_update_fields"
	errorCodeInvalidDateRange     = "invalid_date_range"
	errorCodeInvalidInput         = "invalid_input"
	errorCodeDuplicateTransaction = "duplicate_transaction"
	errorCodeInternal             = "internal_error"
)

var invalidInputSentinels = []error{
	loyalty.ErrInvalidCustomerID,
	loyalty.ErrInvalidCustomerName,
	loyalty.ErrInvalidAmountCents,
	loyalty.ErrInvalidInitialPoints,
	loyalty.ErrInvalidPointsToRedeem,
	loyalty.ErrInvalidRewardDescription,
	loyalty.ErrInvalidTransactionID,
	loyalty.ErrInvalidChangeType,
}

// statusForError maps a domain error onto an HTTP status and a stable code.
// Anything unrecognized is treated as an infrastructure fault.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, loyalty.ErrCustomerNotFound):
		return http.StatusNotFound, errorCodeNotFound
	case errors.Is(err, loyalty.ErrCustomerExists):
		return http.StatusBadRequest, errorCodeCustomerExists
	case errors.Is(err, loyalty.ErrCustomerDeleted):
		return http.StatusBadRequest, errorCodeCustomerDeleted
	case errors.Is(err, loyalty.ErrInsufficientBalance):
		return http.StatusBadRequest, errorCodeInsufficientPoints
	case errors.Is(err, loyalty.ErrNoUpdateFields):
		return http.StatusBadRequest, errorCodeNoUpdateFields
	case errors.Is(err, loyalty.ErrInvalidDateRange):
		return http.StatusBadRequest, errorCodeInvalidDateRange
	case errors.Is(err, loyalty.ErrDuplicateTransactionID):
		return http.StatusBadRequest, errorCodeDuplicateTransaction
	}
	for _, sentinel := range invalidInputSentinels {
		if errors.Is(err, sentinel) {
			return http.StatusBadRequest, errorCodeInvalidInput
		}
	}
	return http.StatusInternalServerError, errorCodeInternal
}
