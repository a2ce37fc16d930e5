package services

import (
	"testing"
	"time"

	"github.com/malwarebo/rentops/models"
	"gorm.io/datatypes"
)

func TestRentalDays(t *testing.T) {
	start := time.Date(2025, time.January, 1, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		elapsed time.Duration
		want    int
	}{
		{"one hour", time.Hour, 1},
		{"exactly one day", 24 * time.Hour, 1},
		{"one day and an hour", 25 * time.Hour, 2},
		{"one day and a minute", 24*time.Hour + time.Minute, 2},
		{"four days", 96 * time.Hour, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RentalDays(start, start.Add(tt.elapsed)); got != tt.want {
				t.Errorf("RentalDays() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestTaxCents(t *testing.T) {
	tests := []struct {
		subtotal, bps, want int64
	}{
		{40000, 0, 0},
		{40000, 825, 3300},
		{999, 825, 82},
		{1000, 5, 1},
		{1000, 4, 0},
	}

	for _, tt := range tests {
		if got := TaxCents(tt.subtotal, tt.bps); got != tt.want {
			t.Errorf("TaxCents(%d, %d) = %d, want %d", tt.subtotal, tt.bps, got, tt.want)
		}
	}
}

func TestPriceRental_Invariant(t *testing.T) {
	start := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	rates := []int64{1, 999, 4500, 10000, 123457}
	taxes := []int64{0, 1, 825, 2000}

	for _, rate := range rates {
		for _, bps := range taxes {
			for hours := 1; hours <= 24*15; hours += 7 {
				policy := PricingPolicy{DepositCents: 50000, TaxRateBasisPoints: bps}
				q := PriceRental(rate, start, start.Add(time.Duration(hours)*time.Hour), policy, nil)

				if q.TotalCents != q.SubtotalCents+q.TaxCents {
					t.Fatalf("rate=%d bps=%d hours=%d: total %d != subtotal %d + tax %d", rate, bps, hours, q.TotalCents, q.SubtotalCents, q.TaxCents)
				}
				if q.SubtotalCents != int64(q.NumDays)*rate {
					t.Fatalf("rate=%d hours=%d: subtotal %d != %d days * rate", rate, hours, q.SubtotalCents, q.NumDays)
				}
			}
		}
	}
}

func TestPriceRental_Deposit(t *testing.T) {
	start := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	q := PriceRental(10000, start, end, DefaultPricingPolicy(), nil)
	if q.DepositCents != models.DefaultDepositCents {
		t.Errorf("DepositCents = %d, want default %d", q.DepositCents, models.DefaultDepositCents)
	}

	override := int64(0)
	q = PriceRental(10000, start, end, DefaultPricingPolicy(), &override)
	if q.DepositCents != 0 {
		t.Errorf("DepositCents = %d, want override 0", q.DepositCents)
	}
}

func TestPricingPolicyFor(t *testing.T) {
	if got := PricingPolicyFor(nil); got != DefaultPricingPolicy() {
		t.Errorf("PricingPolicyFor(nil) = %+v", got)
	}

	org := &models.Organization{
		Settings: datatypes.NewJSONType(models.OrganizationSettings{DefaultDepositCents: 20000, TaxRateBasisPoints: 700}),
	}
	got := PricingPolicyFor(org)
	if got.DepositCents != 20000 || got.TaxRateBasisPoints != 700 {
		t.Errorf("PricingPolicyFor() = %+v", got)
	}
}
