package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/utils"
)

func validateWindow(pickup, dropoff time.Time) error {
	if pickup.IsZero() || dropoff.IsZero() {
		return utils.NewValidationError(utils.ReasonInvalidDateRange, "pickup_datetime and dropoff_datetime are required")
	}
	if !pickup.Before(dropoff) {
		return utils.NewValidationError(utils.ReasonInvalidDateRange, "pickup_datetime must be before dropoff_datetime")
	}
	return nil
}

// lockRentableVehicle locks the vehicle row for the rest of the transaction in ctx.
func (s *BookingService) lockRentableVehicle(ctx context.Context, orgID, vehicleID string) (*models.Vehicle, error) {
	vehicle, err := s.vehicles.GetForUpdate(ctx, orgID, vehicleID)
	if err != nil {
		return nil, referenceError(err, "vehicle")
	}
	if !vehicle.IsAvailableForRent {
		return nil, utils.NewValidationError(utils.ReasonVehicleNotRentable, "vehicle is not available for rent")
	}
	return vehicle, nil
}

// ensureAvailable must run after the vehicle row is locked.
func (s *BookingService) ensureAvailable(ctx context.Context, orgID, vehicleID string, pickup, dropoff time.Time, excludeID string) error {
	conflicts, err := s.bookings.FindConflicts(ctx, orgID, vehicleID, pickup, dropoff, excludeID)
	if err != nil {
		return fmt.Errorf("check availability: %w", err)
	}
	if len(conflicts) == 0 {
		return nil
	}

	numbers := make([]string, len(conflicts))
	for i, b := range conflicts {
		numbers[i] = b.BookingNumber
	}
	return utils.NewAPIErrorWithDetails(
		utils.ErrVehicleUnavailable.Code,
		utils.ErrVehicleUnavailable.Reason,
		utils.ErrVehicleUnavailable.Message,
		"overlaps "+strings.Join(numbers, ", "),
	)
}

// CheckAvailability reports whether a vehicle is free for the window without reserving it.
func (s *BookingService) CheckAvailability(ctx context.Context, orgID, vehicleID string, pickup, dropoff time.Time) (*models.Availability, error) {
	if err := validateWindow(pickup, dropoff); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicles.GetByID(ctx, orgID, vehicleID)
	if err != nil {
		return nil, notFoundError(err, "vehicle")
	}

	bookings, err := s.bookings.FindConflicts(ctx, orgID, vehicleID, pickup, dropoff, "")
	if err != nil {
		return nil, fmt.Errorf("check availability: %w", err)
	}

	conflicts := make([]models.BookingConflict, 0, len(bookings))
	for _, b := range bookings {
		conflicts = append(conflicts, models.BookingConflict{
			BookingID:       b.ID,
			BookingNumber:   b.BookingNumber,
			Status:          b.Status,
			PickupDatetime:  b.PickupDatetime,
			DropoffDatetime: b.DropoffDatetime,
		})
	}

	return &models.Availability{
		VehicleID:       vehicle.ID,
		PickupDatetime:  pickup,
		DropoffDatetime: dropoff,
		Available:       vehicle.IsAvailableForRent && len(conflicts) == 0,
		Conflicts:       conflicts,
	}, nil
}
