package stats

import "github.com/shopspring/decimal"

const ratioPlaces = 2

var hundred = decimal.NewFromInt(100)

// Percent returns part/whole*100 rounded to two places, or 0 when whole is 0.
func Percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(part)).
		Mul(hundred).
		DivRound(decimal.NewFromInt(int64(whole)), ratioPlaces).
		InexactFloat64()
}

// Ratio returns num/den rounded to two places, or 0 when den is 0.
func Ratio(num, den int) float64 {
	if den == 0 {
		return 0
	}
	return decimal.NewFromInt(int64(num)).
		DivRound(decimal.NewFromInt(int64(den)), ratioPlaces).
		InexactFloat64()
}

// Round2 rounds f to two decimal places.
func Round2(f float64) float64 {
	return decimal.NewFromFloat(f).Round(ratioPlaces).InexactFloat64()
}
