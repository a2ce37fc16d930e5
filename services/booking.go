package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/stores"
	"github.com/malwarebo/rentops/utils"
)

type BookingService struct {
	bookings      BookingRepository
	vehicles      VehicleRepository
	customers     CustomerRepository
	locations     LocationRepository
	organizations OrganizationRepository
	numbers       *BookingNumberGenerator
	now           func() time.Time
}

type BookingOption func(*BookingService)

func WithClock(now func() time.Time) BookingOption {
	return func(s *BookingService) {
		s.now = now
	}
}

// WithNumberAttempts bounds how often a booking number collision is retried.
func WithNumberAttempts(attempts int) BookingOption {
	return func(s *BookingService) {
		s.numbers = CreateBookingNumberGenerator(s.bookings, attempts)
	}
}

func CreateBookingService(
	bookings BookingRepository,
	vehicles VehicleRepository,
	customers CustomerRepository,
	locations LocationRepository,
	organizations OrganizationRepository,
	opts ...BookingOption,
) *BookingService {
	s := &BookingService{
		bookings:      bookings,
		vehicles:      vehicles,
		customers:     customers,
		locations:     locations,
		organizations: organizations,
		now:           time.Now,
	}
	s.numbers = CreateBookingNumberGenerator(bookings, 0)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *BookingService) Create(ctx context.Context, orgID string, req *models.CreateBookingRequest) (*models.Booking, error) {
	if err := validateWindow(req.PickupDatetime, req.DropoffDatetime); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, orgID, req.CustomerID, req.PickupLocationID, req.DropoffLocationID); err != nil {
		return nil, err
	}

	policy, err := s.pricingPolicy(ctx, orgID)
	if err != nil {
		return nil, err
	}

	booking := &models.Booking{
		OrganizationID:    orgID,
		CustomerID:        req.CustomerID,
		VehicleID:         req.VehicleID,
		PickupLocationID:  req.PickupLocationID,
		DropoffLocationID: req.DropoffLocationID,
		PickupDatetime:    req.PickupDatetime.UTC(),
		DropoffDatetime:   req.DropoffDatetime.UTC(),
		Notes:             req.Notes,
		Status:            models.BookingStatusPending,
	}

	err = s.bookings.WithTransaction(ctx, func(txCtx context.Context) error {
		vehicle, err := s.lockRentableVehicle(txCtx, orgID, req.VehicleID)
		if err != nil {
			return err
		}
		if err := s.ensureAvailable(txCtx, orgID, vehicle.ID, booking.PickupDatetime, booking.DropoffDatetime, ""); err != nil {
			return err
		}

		applyQuote(booking, PriceRental(vehicle.DailyRateCents, booking.PickupDatetime, booking.DropoffDatetime, policy, req.DepositCents))

		return s.numbers.Insert(txCtx, booking, s.now())
	})
	if err != nil {
		return nil, err
	}

	utils.Info(ctx, "booking created", map[string]interface{}{
		"booking_id":     booking.ID,
		"booking_number": booking.BookingNumber,
		"vehicle_id":     booking.VehicleID,
		"total_cents":    booking.TotalCents,
	})
	return booking, nil
}

func (s *BookingService) Get(ctx context.Context, orgID, id string) (*models.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, notFoundError(err, "booking")
	}
	return booking, nil
}

func (s *BookingService) List(ctx context.Context, filter models.BookingFilter) (*models.BookingListResponse, error) {
	if filter.Status != "" && !filter.Status.IsValid() {
		return nil, utils.NewValidationError(utils.ReasonValidationFailed, fmt.Sprintf("unknown booking status %q", filter.Status))
	}
	filter.Limit, filter.Offset = NormalizePage(filter.Limit, filter.Offset)

	bookings, total, err := s.bookings.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return &models.BookingListResponse{
		Bookings: bookings,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// Update applies a partial patch. Date or vehicle changes re-check availability
// against the locked vehicle and reprice the booking in the same transaction.
func (s *BookingService) Update(ctx context.Context, orgID, id string, req *models.UpdateBookingRequest) (*models.Booking, error) {
	var booking *models.Booking

	err := s.bookings.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		booking, err = s.bookings.GetByIDForUpdate(txCtx, orgID, id)
		if err != nil {
			return notFoundError(err, "booking")
		}
		if booking.Status.IsTerminal() {
			return utils.NewValidationError(utils.ReasonBookingLocked, fmt.Sprintf("%s bookings cannot be modified", booking.Status))
		}

		if req.Status != nil && *req.Status != booking.Status {
			next, err := booking.Status.TransitionTo(*req.Status)
			if err != nil {
				return transitionError(err)
			}
			booking.Status = next
		}

		if err := s.applyReferenceChanges(txCtx, orgID, booking, req); err != nil {
			return err
		}

		vehicleChanged := req.VehicleID != nil && *req.VehicleID != booking.VehicleID
		datesChanged := (req.PickupDatetime != nil && !req.PickupDatetime.Equal(booking.PickupDatetime)) ||
			(req.DropoffDatetime != nil && !req.DropoffDatetime.Equal(booking.DropoffDatetime))

		if req.PickupDatetime != nil {
			booking.PickupDatetime = req.PickupDatetime.UTC()
		}
		if req.DropoffDatetime != nil {
			booking.DropoffDatetime = req.DropoffDatetime.UTC()
		}
		if req.Notes != nil {
			booking.Notes = *req.Notes
		}
		if req.DepositCents != nil {
			booking.DepositCents = *req.DepositCents
		}

		if vehicleChanged || datesChanged {
			if err := validateWindow(booking.PickupDatetime, booking.DropoffDatetime); err != nil {
				return err
			}
			if err := s.reprice(txCtx, orgID, booking, req, vehicleChanged); err != nil {
				return err
			}
		}

		return s.bookings.Update(txCtx, booking)
	})
	if err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) reprice(ctx context.Context, orgID string, booking *models.Booking, req *models.UpdateBookingRequest, vehicleChanged bool) error {
	if vehicleChanged {
		booking.VehicleID = *req.VehicleID
	}

	vehicle, err := s.vehicles.GetForUpdate(ctx, orgID, booking.VehicleID)
	if err != nil {
		return referenceError(err, "vehicle")
	}
	if vehicleChanged {
		if !vehicle.IsAvailableForRent {
			return utils.NewValidationError(utils.ReasonVehicleNotRentable, "vehicle is not available for rent")
		}
		booking.DailyRateCents = vehicle.DailyRateCents
	}

	if booking.Status.BlocksAvailability() {
		if err := s.ensureAvailable(ctx, orgID, booking.VehicleID, booking.PickupDatetime, booking.DropoffDatetime, booking.ID); err != nil {
			return err
		}
	}

	policy, err := s.pricingPolicy(ctx, orgID)
	if err != nil {
		return err
	}
	deposit := booking.DepositCents
	applyQuote(booking, PriceRental(booking.DailyRateCents, booking.PickupDatetime, booking.DropoffDatetime, policy, &deposit))
	return nil
}

func (s *BookingService) applyReferenceChanges(ctx context.Context, orgID string, booking *models.Booking, req *models.UpdateBookingRequest) error {
	if req.CustomerID != nil && *req.CustomerID != booking.CustomerID {
		if _, err := s.customers.GetByID(ctx, orgID, *req.CustomerID); err != nil {
			return referenceError(err, "customer")
		}
		booking.CustomerID = *req.CustomerID
	}
	if req.PickupLocationID != nil && *req.PickupLocationID != booking.PickupLocationID {
		if _, err := s.locations.GetByID(ctx, orgID, *req.PickupLocationID); err != nil {
			return referenceError(err, "pickup location")
		}
		booking.PickupLocationID = *req.PickupLocationID
	}
	if req.DropoffLocationID != nil && *req.DropoffLocationID != booking.DropoffLocationID {
		if _, err := s.locations.GetByID(ctx, orgID, *req.DropoffLocationID); err != nil {
			return referenceError(err, "dropoff location")
		}
		booking.DropoffLocationID = *req.DropoffLocationID
	}
	return nil
}

func (s *BookingService) Confirm(ctx context.Context, orgID, id string) (*models.Booking, error) {
	return s.transition(ctx, orgID, id, models.BookingActionConfirm)
}

func (s *BookingService) Activate(ctx context.Context, orgID, id string) (*models.Booking, error) {
	return s.transition(ctx, orgID, id, models.BookingActionActivate)
}

func (s *BookingService) Complete(ctx context.Context, orgID, id string) (*models.Booking, error) {
	return s.transition(ctx, orgID, id, models.BookingActionComplete)
}

func (s *BookingService) Cancel(ctx context.Context, orgID, id string) (*models.Booking, error) {
	return s.transition(ctx, orgID, id, models.BookingActionCancel)
}

func (s *BookingService) transition(ctx context.Context, orgID, id string, action models.BookingAction) (*models.Booking, error) {
	var booking *models.Booking

	err := s.bookings.WithTransaction(ctx, func(txCtx context.Context) error {
		var err error
		booking, err = s.bookings.GetByIDForUpdate(txCtx, orgID, id)
		if err != nil {
			return notFoundError(err, "booking")
		}

		next, err := booking.Status.Apply(action)
		if err != nil {
			return transitionError(err)
		}
		booking.Status = next
		return s.bookings.Update(txCtx, booking)
	})
	if err != nil {
		return nil, err
	}

	utils.Info(ctx, "booking status changed", map[string]interface{}{
		"booking_id": booking.ID,
		"action":     string(action),
		"status":     string(booking.Status),
	})
	return booking, nil
}

// Delete removes a booking that never held the vehicle or was cancelled.
func (s *BookingService) Delete(ctx context.Context, orgID, id string) error {
	return s.bookings.WithTransaction(ctx, func(txCtx context.Context) error {
		booking, err := s.bookings.GetByIDForUpdate(txCtx, orgID, id)
		if err != nil {
			return notFoundError(err, "booking")
		}
		if booking.Status != models.BookingStatusPending && booking.Status != models.BookingStatusCancelled {
			return utils.NewValidationError(utils.ReasonBookingLocked, "only pending or cancelled bookings can be deleted")
		}
		if err := s.bookings.Delete(txCtx, orgID, id); err != nil {
			return notFoundError(err, "booking")
		}
		return nil
	})
}

// Quote prices a prospective rental with the same rules Create uses.
func (s *BookingService) Quote(ctx context.Context, orgID string, req *models.QuoteRequest) (*models.Quote, error) {
	if err := validateWindow(req.PickupDatetime, req.DropoffDatetime); err != nil {
		return nil, err
	}

	vehicle, err := s.vehicles.GetByID(ctx, orgID, req.VehicleID)
	if err != nil {
		return nil, referenceError(err, "vehicle")
	}

	policy, err := s.pricingPolicy(ctx, orgID)
	if err != nil {
		return nil, err
	}

	quote := PriceRental(vehicle.DailyRateCents, req.PickupDatetime, req.DropoffDatetime, policy, req.DepositCents)
	return &quote, nil
}

func (s *BookingService) checkReferences(ctx context.Context, orgID, customerID, pickupLocationID, dropoffLocationID string) error {
	if _, err := s.customers.GetByID(ctx, orgID, customerID); err != nil {
		return referenceError(err, "customer")
	}
	if _, err := s.locations.GetByID(ctx, orgID, pickupLocationID); err != nil {
		return referenceError(err, "pickup location")
	}
	if dropoffLocationID != pickupLocationID {
		if _, err := s.locations.GetByID(ctx, orgID, dropoffLocationID); err != nil {
			return referenceError(err, "dropoff location")
		}
	}
	return nil
}

func (s *BookingService) pricingPolicy(ctx context.Context, orgID string) (PricingPolicy, error) {
	org, err := s.organizations.GetByID(ctx, orgID)
	if errors.Is(err, stores.ErrNotFound) {
		return DefaultPricingPolicy(), nil
	}
	if err != nil {
		return PricingPolicy{}, fmt.Errorf("load organization: %w", err)
	}
	return PricingPolicyFor(org), nil
}

func transitionError(err error) error {
	var terr *models.TransitionError
	if errors.As(err, &terr) {
		return utils.NewValidationError(utils.ReasonIllegalTransition, terr.Error())
	}
	return utils.NewValidationError(utils.ReasonValidationFailed, err.Error())
}
