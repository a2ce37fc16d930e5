package services

import (
	"context"
	"testing"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/testutil"
	"github.com/malwarebo/rentops/utils"
)

func TestVehicleService(t *testing.T) {
	m := testutil.NewMemoryStore()
	acme := testutil.SeedFleet(m, "acme", 10000)
	rival := testutil.SeedFleet(m, "rival", 10000)
	svc := CreateVehicleService(m.Vehicles())
	ctx := context.Background()

	parked := false
	vehicle, err := svc.Create(ctx, acme.Organization.ID, &models.CreateVehicleRequest{
		Make:               "Ford",
		Model:              "Transit",
		LicensePlate:       "VAN-42",
		DailyRateCents:     12000,
		IsAvailableForRent: &parked,
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if vehicle.IsAvailableForRent {
		t.Error("IsAvailableForRent = true, want false from request")
	}

	_, err = svc.Create(ctx, acme.Organization.ID, &models.CreateVehicleRequest{Make: "Ford", Model: "Focus", LicensePlate: "VAN-42", DailyRateCents: 5000})
	if !utils.IsConflict(err) {
		t.Errorf("duplicate plate error = %v, want conflict", err)
	}

	rate := int64(13000)
	updated, err := svc.Update(ctx, acme.Organization.ID, vehicle.ID, &models.UpdateVehicleRequest{DailyRateCents: &rate})
	if err != nil || updated.DailyRateCents != 13000 {
		t.Errorf("Update() = %v, %v", updated, err)
	}

	if _, err := svc.Get(ctx, rival.Organization.ID, vehicle.ID); !utils.IsNotFound(err) {
		t.Errorf("Get() from other tenant error = %v, want not found", err)
	}

	vehicles, total, err := svc.List(ctx, acme.Organization.ID, 0, 0)
	if err != nil || total != 2 || len(vehicles) != 2 {
		t.Errorf("List() = %d vehicles (total %d), %v", len(vehicles), total, err)
	}
}

func TestCustomerService(t *testing.T) {
	m := testutil.NewMemoryStore()
	acme := testutil.SeedFleet(m, "acme", 10000)
	svc := CreateCustomerService(m.Customers())
	ctx := context.Background()

	customer, err := svc.Create(ctx, acme.Organization.ID, &models.CreateCustomerRequest{
		FirstName: "Grace",
		LastName:  "Hopper",
		Email:     "Grace@Example.com",
	})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if customer.Email != "grace@example.com" {
		t.Errorf("Email = %s, want lowercased", customer.Email)
	}

	_, err = svc.Create(ctx, acme.Organization.ID, &models.CreateCustomerRequest{FirstName: "G", LastName: "H", Email: "grace@example.com"})
	if !utils.IsConflict(err) {
		t.Errorf("duplicate email error = %v, want conflict", err)
	}

	phone := "+351 555 0100"
	updated, err := svc.Update(ctx, acme.Organization.ID, customer.ID, &models.UpdateCustomerRequest{Phone: &phone})
	if err != nil || updated.Phone != phone {
		t.Errorf("Update() = %v, %v", updated, err)
	}
}

func TestLocationService(t *testing.T) {
	m := testutil.NewMemoryStore()
	acme := testutil.SeedFleet(m, "acme", 10000)
	rival := testutil.SeedFleet(m, "rival", 10000)
	svc := CreateLocationService(m.Locations())
	ctx := context.Background()

	location, err := svc.Create(ctx, acme.Organization.ID, &models.CreateLocationRequest{Name: "Airport", City: "Porto"})
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	city := "Faro"
	if _, err := svc.Update(ctx, rival.Organization.ID, location.ID, &models.UpdateLocationRequest{City: &city}); !utils.IsNotFound(err) {
		t.Errorf("Update() from other tenant error = %v, want not found", err)
	}

	locations, total, err := svc.List(ctx, acme.Organization.ID, 10, 0)
	if err != nil || total != 2 || len(locations) != 2 {
		t.Errorf("List() = %d locations (total %d), %v", len(locations), total, err)
	}
}
