package services

import (
	"context"
	"time"

	"github.com/malwarebo/rentops/models"
)

// Transactor runs fn inside a store transaction carried by the context passed to fn.
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(context.Context) error) error
}

type BookingRepository interface {
	Transactor
	Create(ctx context.Context, booking *models.Booking) error
	Update(ctx context.Context, booking *models.Booking) error
	GetByID(ctx context.Context, orgID, id string) (*models.Booking, error)
	GetByIDForUpdate(ctx context.Context, orgID, id string) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]*models.Booking, int64, error)
	Delete(ctx context.Context, orgID, id string) error
	FindConflicts(ctx context.Context, orgID, vehicleID string, pickup, dropoff time.Time, excludeID string) ([]*models.Booking, error)
	LastBookingNumber(ctx context.Context, prefix string) (string, error)
}

type VehicleRepository interface {
	Create(ctx context.Context, vehicle *models.Vehicle) error
	Update(ctx context.Context, vehicle *models.Vehicle) error
	GetByID(ctx context.Context, orgID, id string) (*models.Vehicle, error)
	GetForUpdate(ctx context.Context, orgID, id string) (*models.Vehicle, error)
	List(ctx context.Context, orgID string, limit, offset int) ([]*models.Vehicle, int64, error)
}

type CustomerRepository interface {
	Create(ctx context.Context, customer *models.Customer) error
	Update(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, orgID, id string) (*models.Customer, error)
	List(ctx context.Context, orgID string, limit, offset int) ([]*models.Customer, int64, error)
}

type LocationRepository interface {
	Create(ctx context.Context, location *models.Location) error
	Update(ctx context.Context, location *models.Location) error
	GetByID(ctx context.Context, orgID, id string) (*models.Location, error)
	List(ctx context.Context, orgID string, limit, offset int) ([]*models.Location, int64, error)
}

type OrganizationRepository interface {
	Create(ctx context.Context, org *models.Organization) error
	Update(ctx context.Context, org *models.Organization) error
	GetByID(ctx context.Context, id string) (*models.Organization, error)
	Deactivate(ctx context.Context, id string) error
}
