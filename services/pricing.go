package services

import (
	"time"

	"github.com/malwarebo/rentops/models"
)

const basisPointsScale = 10000

// PricingPolicy is the per-organization input to pricing that is not on the vehicle.
type PricingPolicy struct {
	DepositCents       int64
	TaxRateBasisPoints int64
}

func DefaultPricingPolicy() PricingPolicy {
	return PricingPolicy{
		DepositCents:       models.DefaultDepositCents,
		TaxRateBasisPoints: models.DefaultTaxRateBasisPoints,
	}
}

func PricingPolicyFor(org *models.Organization) PricingPolicy {
	policy := DefaultPricingPolicy()
	if org == nil {
		return policy
	}
	settings := org.Settings.Data()
	if settings.DefaultDepositCents > 0 {
		policy.DepositCents = settings.DefaultDepositCents
	}
	if settings.TaxRateBasisPoints > 0 {
		policy.TaxRateBasisPoints = settings.TaxRateBasisPoints
	}
	return policy
}

// RentalDays charges every started 24 hour period, with a minimum of one day.
func RentalDays(pickup, dropoff time.Time) int {
	elapsed := dropoff.Sub(pickup)
	days := int(elapsed / (24 * time.Hour))
	if elapsed%(24*time.Hour) != 0 {
		days++
	}
	if days < 1 {
		days = 1
	}
	return days
}

// TaxCents rounds half up in integer arithmetic.
func TaxCents(subtotalCents, rateBasisPoints int64) int64 {
	if rateBasisPoints <= 0 {
		return 0
	}
	return (subtotalCents*rateBasisPoints + basisPointsScale/2) / basisPointsScale
}

func PriceRental(dailyRateCents int64, pickup, dropoff time.Time, policy PricingPolicy, depositOverride *int64) models.Quote {
	numDays := RentalDays(pickup, dropoff)
	subtotal := int64(numDays) * dailyRateCents
	tax := TaxCents(subtotal, policy.TaxRateBasisPoints)

	deposit := policy.DepositCents
	if depositOverride != nil {
		deposit = *depositOverride
	}

	return models.Quote{
		NumDays:        numDays,
		DailyRateCents: dailyRateCents,
		SubtotalCents:  subtotal,
		TaxCents:       tax,
		TotalCents:     subtotal + tax,
		DepositCents:   deposit,
	}
}

func applyQuote(booking *models.Booking, quote models.Quote) {
	booking.DailyRateCents = quote.DailyRateCents
	booking.NumDays = quote.NumDays
	booking.SubtotalCents = quote.SubtotalCents
	booking.TaxCents = quote.TaxCents
	booking.TotalCents = quote.TotalCents
	booking.DepositCents = quote.DepositCents
}
