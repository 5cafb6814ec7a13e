package httpapi

import (
	"github.com/elagi/loyalty/pkg/loyalty"
	"github.com/shopspring/decimal"
)

// The JSON field names mirror the upstream API contract consumed by
// existing clients, hence camelCase rather than snake_case.

type registerRequest struct {
	CustomerID    string `json:"customerId" binding:"required"`
	Name          string `json:"name" binding:"required"`
	InitialPoints int64  `json:"initialPoints"`
}

type updateRequest struct {
	Name        *string `json:"name"`
	TotalPoints *int64  `json:"totalPoints"`
}

type purchaseRequest struct {
	CustomerID string          `json:"customerId" binding:"required"`
	Amount     decimal.Decimal `json:"amount"`
}

type redeemRequest struct {
	CustomerID        string `json:"customerId" binding:"required"`
	PointsToRedeem    int64  `json:"pointsToRedeem"`
	RewardDescription string `json:"rewardDescription" binding:"required"`
}

type customerPayload struct {
	CustomerID  string `json:"customerId"`
	Name        string `json:"name"`
	TotalPoints int64  `json:"totalPoints"`
}

func customerPayloadFrom(customer loyalty.Customer) customerPayload {
	return customerPayload{
		CustomerID:  customer.CustomerID,
		Name:        customer.Name,
		TotalPoints: customer.TotalPoints,
	}
}

type statusPayload struct {
	Message        string `json:"message"`
	CustomerID     string `json:"customerId"`
	NewTotalPoints int64  `json:"newTotalPoints"`
}

type pointsByTimePayload struct {
	CustomerID   string `json:"customerId"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
	PointsEarned int64  `json:"pointsEarned"`
}

type errorEnvelope struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func errorResponse(code string, message string) errorEnvelope {
	return errorEnvelope{Error: errorPayload{Code: code, Message: message}}
}

// amountToCents converts a decimal currency amount to integer cents,
// truncating sub-cent precision toward zero.
func amountToCents(amount decimal.Decimal) (loyalty.AmountCents, error) {
	return loyalty.NewAmountCents(amount.Mul(decimal.NewFromInt(100)).IntPart())
}
