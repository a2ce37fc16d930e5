package stores

import (
	"context"
	"time"

	"github.com/malwarebo/rentops/models"
	"gorm.io/gorm"
)

type BookingStore struct {
	BaseStore
}

func CreateBookingStore(db *gorm.DB) *BookingStore {
	return &BookingStore{BaseStore: BaseStore{db: db}}
}

func (s *BookingStore) Create(ctx context.Context, booking *models.Booking) error {
	return translateError(s.GetDB(ctx).Create(booking).Error)
}

func (s *BookingStore) Update(ctx context.Context, booking *models.Booking) error {
	return translateError(s.GetDB(ctx).Save(booking).Error)
}

func (s *BookingStore) GetByID(ctx context.Context, orgID, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.GetDB(ctx).First(&booking, "organization_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &booking, nil
}

func (s *BookingStore) GetByIDForUpdate(ctx context.Context, orgID, id string) (*models.Booking, error) {
	var booking models.Booking
	if err := s.forUpdate(ctx).First(&booking, "organization_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &booking, nil
}

func (s *BookingStore) List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int64, error) {
	var bookings []*models.Booking
	var total int64

	query := s.GetDB(ctx).Model(&models.Booking{}).Where("organization_id = ?", filter.OrganizationID)
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.VehicleID != "" {
		query = query.Where("vehicle_id = ?", filter.VehicleID)
	}
	if filter.CustomerID != "" {
		query = query.Where("customer_id = ?", filter.CustomerID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := applyPage(query, filter.Limit, filter.Offset).Order("pickup_datetime DESC").Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (s *BookingStore) Delete(ctx context.Context, orgID, id string) error {
	result := s.GetDB(ctx).Delete(&models.Booking{}, "organization_id = ? AND id = ?", orgID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// FindConflicts returns the vehicle's blocking bookings whose window overlaps
// [pickup, dropoff). excludeID, when set, leaves that booking out.
func (s *BookingStore) FindConflicts(ctx context.Context, orgID, vehicleID string, pickup, dropoff time.Time, excludeID string) ([]*models.Booking, error) {
	var bookings []*models.Booking

	query := s.GetDB(ctx).
		Where("organization_id = ? AND vehicle_id = ?", orgID, vehicleID).
		Where("status IN ?", models.BlockingBookingStatuses).
		Where("pickup_datetime < ? AND dropoff_datetime > ?", dropoff, pickup)
	if excludeID != "" {
		query = query.Where("id <> ?", excludeID)
	}

	if err := query.Order("pickup_datetime").Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

// LastBookingNumber returns the highest booking number starting with prefix, or ""
// when none exists. The unique index spans all tenants, so the lookup does too.
func (s *BookingStore) LastBookingNumber(ctx context.Context, prefix string) (string, error) {
	var numbers []string
	err := s.GetDB(ctx).Model(&models.Booking{}).
		Where("booking_number LIKE ?", prefix+"%").
		Order("booking_number DESC").
		Limit(1).
		Pluck("booking_number", &numbers).Error
	if err != nil {
		return "", err
	}
	if len(numbers) == 0 {
		return "", nil
	}
	return numbers[0], nil
}
