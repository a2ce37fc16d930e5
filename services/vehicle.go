package services

import (
	"context"
	"fmt"

	"github.com/malwarebo/rentops/models"
)

type VehicleService struct {
	store VehicleRepository
}

func CreateVehicleService(store VehicleRepository) *VehicleService {
	return &VehicleService{store: store}
}

func (s *VehicleService) Create(ctx context.Context, orgID string, req *models.CreateVehicleRequest) (*models.Vehicle, error) {
	vehicle := &models.Vehicle{
		OrganizationID:     orgID,
		Make:               req.Make,
		Model:              req.Model,
		Year:               req.Year,
		LicensePlate:       req.LicensePlate,
		DailyRateCents:     req.DailyRateCents,
		IsAvailableForRent: true,
	}
	if req.IsAvailableForRent != nil {
		vehicle.IsAvailableForRent = *req.IsAvailableForRent
	}

	if err := s.store.Create(ctx, vehicle); err != nil {
		return nil, duplicateError(err, "a vehicle with this license plate already exists")
	}
	return vehicle, nil
}

func (s *VehicleService) Get(ctx context.Context, orgID, id string) (*models.Vehicle, error) {
	vehicle, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, notFoundError(err, "vehicle")
	}
	return vehicle, nil
}

func (s *VehicleService) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Vehicle, int64, error) {
	limit, offset = NormalizePage(limit, offset)
	vehicles, total, err := s.store.List(ctx, orgID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list vehicles: %w", err)
	}
	return vehicles, total, nil
}

// Update changes the fleet record only. Existing bookings keep their rate snapshot.
func (s *VehicleService) Update(ctx context.Context, orgID, id string, req *models.UpdateVehicleRequest) (*models.Vehicle, error) {
	vehicle, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Make != nil {
		vehicle.Make = *req.Make
	}
	if req.Model != nil {
		vehicle.Model = *req.Model
	}
	if req.Year != nil {
		vehicle.Year = *req.Year
	}
	if req.LicensePlate != nil {
		vehicle.LicensePlate = *req.LicensePlate
	}
	if req.DailyRateCents != nil {
		vehicle.DailyRateCents = *req.DailyRateCents
	}
	if req.IsAvailableForRent != nil {
		vehicle.IsAvailableForRent = *req.IsAvailableForRent
	}

	if err := s.store.Update(ctx, vehicle); err != nil {
		return nil, duplicateError(err, "a vehicle with this license plate already exists")
	}
	return vehicle, nil
}
