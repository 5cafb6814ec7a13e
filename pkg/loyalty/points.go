package loyalty

// PointsForAmount computes the points earned for a purchase amount in cents:
// one point per whole PointsUnitCents spent, truncating toward zero. Amounts
// below one unit, including zero and negative amounts, earn nothing.
func PointsForAmount(amountCents int64) int64 {
	if amountCents < PointsUnitCents {
		return 0
	}
	return amountCents / PointsUnitCents
}
