package models

import (
	"time"

	"gorm.io/gorm"
)

type Booking struct {
	ID                string        `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID    string        `json:"organization_id" gorm:"type:uuid;not null;index"`
	BookingNumber     string        `json:"booking_number" gorm:"uniqueIndex;not null"`
	CustomerID        string        `json:"customer_id" gorm:"type:uuid;not null;index"`
	VehicleID         string        `json:"vehicle_id" gorm:"type:uuid;not null;index:idx_bookings_vehicle_window"`
	PickupLocationID  string        `json:"pickup_location_id" gorm:"type:uuid;not null"`
	DropoffLocationID string        `json:"dropoff_location_id" gorm:"type:uuid;not null"`
	PickupDatetime    time.Time     `json:"pickup_datetime" gorm:"not null;index:idx_bookings_vehicle_window"`
	DropoffDatetime   time.Time     `json:"dropoff_datetime" gorm:"not null;index:idx_bookings_vehicle_window"`
	DailyRateCents    int64         `json:"daily_rate_cents" gorm:"not null"`
	NumDays           int           `json:"num_days" gorm:"not null"`
	SubtotalCents     int64         `json:"subtotal_cents" gorm:"not null"`
	TaxCents          int64         `json:"tax_cents" gorm:"not null"`
	TotalCents        int64         `json:"total_cents" gorm:"not null"`
	DepositCents      int64         `json:"deposit_cents" gorm:"not null"`
	Notes             string        `json:"notes"`
	Status            BookingStatus `json:"status" gorm:"not null;default:'pending';index"`
	CreatedAt         time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt         time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

func (b *Booking) BeforeCreate(tx *gorm.DB) error {
	assignID(&b.ID)
	return nil
}

// Overlaps reports whether the booking's window intersects [pickup, dropoff).
func (b *Booking) Overlaps(pickup, dropoff time.Time) bool {
	return IntervalsOverlap(b.PickupDatetime, b.DropoffDatetime, pickup, dropoff)
}

// IntervalsOverlap treats both ranges as half-open, so back-to-back rentals do not collide.
func IntervalsOverlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

type CreateBookingRequest struct {
	CustomerID        string    `json:"customer_id" validate:"required,uuid"`
	VehicleID         string    `json:"vehicle_id" validate:"required,uuid"`
	PickupLocationID  string    `json:"pickup_location_id" validate:"required,uuid"`
	DropoffLocationID string    `json:"dropoff_location_id" validate:"required,uuid"`
	PickupDatetime    time.Time `json:"pickup_datetime" validate:"required"`
	DropoffDatetime   time.Time `json:"dropoff_datetime" validate:"required"`
	DepositCents      *int64    `json:"deposit_cents,omitempty" validate:"omitempty,gte=0"`
	Notes             string    `json:"notes,omitempty" validate:"omitempty,max=2000"`
}

type UpdateBookingRequest struct {
	CustomerID        *string        `json:"customer_id,omitempty" validate:"omitempty,uuid"`
	VehicleID         *string        `json:"vehicle_id,omitempty" validate:"omitempty,uuid"`
	PickupLocationID  *string        `json:"pickup_location_id,omitempty" validate:"omitempty,uuid"`
	DropoffLocationID *string        `json:"dropoff_location_id,omitempty" validate:"omitempty,uuid"`
	PickupDatetime    *time.Time     `json:"pickup_datetime,omitempty"`
	DropoffDatetime   *time.Time     `json:"dropoff_datetime,omitempty"`
	DepositCents      *int64         `json:"deposit_cents,omitempty" validate:"omitempty,gte=0"`
	Notes             *string        `json:"notes,omitempty" validate:"omitempty,max=2000"`
	Status            *BookingStatus `json:"status,omitempty"`
}

// QuoteRequest prices a rental without reserving anything.
type QuoteRequest struct {
	VehicleID       string    `json:"vehicle_id" validate:"required,uuid"`
	PickupDatetime  time.Time `json:"pickup_datetime" validate:"required"`
	DropoffDatetime time.Time `json:"dropoff_datetime" validate:"required"`
	DepositCents    *int64    `json:"deposit_cents,omitempty" validate:"omitempty,gte=0"`
}

type Quote struct {
	NumDays        int   `json:"num_days"`
	DailyRateCents int64 `json:"daily_rate_cents"`
	SubtotalCents  int64 `json:"subtotal_cents"`
	TaxCents       int64 `json:"tax_cents"`
	TotalCents     int64 `json:"total_cents"`
	DepositCents   int64 `json:"deposit_cents"`
}

type BookingFilter struct {
	OrganizationID string
	Status         BookingStatus
	VehicleID      string
	CustomerID     string
	Limit          int
	Offset         int
}

type BookingListResponse struct {
	Bookings []*Booking `json:"bookings"`
	Total    int64      `json:"total"`
	Limit    int        `json:"limit"`
	Offset   int        `json:"offset"`
}
