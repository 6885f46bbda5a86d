package domain

import (
	"fmt"

	"marketplace_backend/platform/apperr"
)

// ManagementFeePercent is the platform fee added on top of the quoted price.
const ManagementFeePercent = 2

// TotalPriceCents returns quoted * (1 + fee) rounded half-up to the cent.
func TotalPriceCents(quotedCents int64) int64 {
	return (quotedCents*(100+ManagementFeePercent) + 50) / 100
}

// Rating is an average stored with two decimals, held as hundredths.
type Rating int64

// NextRating folds one more review into a running average, rounding the new
// average half-up to two decimals.
func NextRating(current Rating, count int, rating int) (Rating, int, error) {
	if rating < 1 || rating > 5 {
		return current, count, apperr.Validation("rating must be between 1 and 5")
	}
	if count < 0 {
		count = 0
	}
	num := int64(current)*int64(count) + int64(rating)*100
	den := int64(count + 1)
	return Rating((num*2 + den) / (2 * den)), count + 1, nil
}

// FormatCents renders cents as a decimal amount with two places.
func FormatCents(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}

// String renders the rating with two decimals.
func (r Rating) String() string {
	return FormatCents(int64(r))
}
