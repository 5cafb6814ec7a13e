package loyalty

const (
	operationPurchase = "purchase"
	operationRedeem   = "redeem"
	operationRegister = "register"
	operationUpdate   = "update"
	operationDelete   = "delete"

	operationStatusOK    = "ok"
	operationStatusError = "error"

	dateLayout = "2006-01-02"

	// PointsUnitCents is the spend required to earn one point: one point
	// per whole 50 currency units.
	PointsUnitCents int64 = 5000
)
