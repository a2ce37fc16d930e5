package testutil

import (
	"context"
	"time"

	"github.com/malwarebo/rentops/models"
	"gorm.io/datatypes"
)

// Fleet is a seeded tenant with one of everything a booking needs.
type Fleet struct {
	Organization *models.Organization
	Vehicle      *models.Vehicle
	Customer     *models.Customer
	Location     *models.Location
}

func SeedFleet(m *MemoryStore, slug string, dailyRateCents int64) *Fleet {
	ctx := context.Background()

	org := &models.Organization{Name: slug, Slug: slug, IsActive: true}
	_ = m.Organizations().Create(ctx, org)

	vehicle := &models.Vehicle{
		OrganizationID:     org.ID,
		Make:               "Toyota",
		Model:              "Corolla",
		Year:               2023,
		LicensePlate:       slug + "-001",
		DailyRateCents:     dailyRateCents,
		IsAvailableForRent: true,
	}
	_ = m.Vehicles().Create(ctx, vehicle)

	customer := &models.Customer{
		OrganizationID: org.ID,
		FirstName:      "Ada",
		LastName:       "Lovelace",
		Email:          "ada@" + slug + ".test",
	}
	_ = m.Customers().Create(ctx, customer)

	location := &models.Location{OrganizationID: org.ID, Name: "Downtown", City: "Lisbon"}
	_ = m.Locations().Create(ctx, location)

	return &Fleet{Organization: org, Vehicle: vehicle, Customer: customer, Location: location}
}

func (f *Fleet) SetSettings(m *MemoryStore, settings models.OrganizationSettings) {
	f.Organization.Settings = datatypes.NewJSONType(settings)
	_ = m.Organizations().Update(context.Background(), f.Organization)
}

func (f *Fleet) AddVehicle(m *MemoryStore, plate string, dailyRateCents int64, rentable bool) *models.Vehicle {
	vehicle := &models.Vehicle{
		OrganizationID:     f.Organization.ID,
		Make:               "Honda",
		Model:              "Civic",
		LicensePlate:       plate,
		DailyRateCents:     dailyRateCents,
		IsAvailableForRent: rentable,
	}
	_ = m.Vehicles().Create(context.Background(), vehicle)
	return vehicle
}

// BookingRequest books the fleet's vehicle for [from, to).
func (f *Fleet) BookingRequest(from, to time.Time) *models.CreateBookingRequest {
	return &models.CreateBookingRequest{
		CustomerID:        f.Customer.ID,
		VehicleID:         f.Vehicle.ID,
		PickupLocationID:  f.Location.ID,
		DropoffLocationID: f.Location.ID,
		PickupDatetime:    from,
		DropoffDatetime:   to,
	}
}

// Day returns midnight UTC of the given day in January 2025.
func Day(d int) time.Time {
	return time.Date(2025, time.January, d, 0, 0, 0, 0, time.UTC)
}

// FixedClock returns a clock frozen at t.
func FixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
