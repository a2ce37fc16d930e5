package models

import (
	"time"

	"gorm.io/gorm"
)

type Vehicle struct {
	ID                 string    `json:"id" gorm:"primaryKey;type:uuid"`
	OrganizationID     string    `json:"organization_id" gorm:"type:uuid;not null;index;uniqueIndex:idx_vehicles_org_plate"`
	Make               string    `json:"make" gorm:"not null"`
	Model              string    `json:"model" gorm:"not null"`
	Year               int       `json:"year"`
	LicensePlate       string    `json:"license_plate" gorm:"not null;uniqueIndex:idx_vehicles_org_plate"`
	DailyRateCents     int64     `json:"daily_rate_cents" gorm:"not null"`
	IsAvailableForRent bool      `json:"is_available_for_rent" gorm:"not null"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (v *Vehicle) BeforeCreate(tx *gorm.DB) error {
	assignID(&v.ID)
	return nil
}

type CreateVehicleRequest struct {
	Make               string `json:"make" validate:"required,max=100"`
	Model              string `json:"model" validate:"required,max=100"`
	Year               int    `json:"year" validate:"omitempty,min=1900,max=2100"`
	LicensePlate       string `json:"license_plate" validate:"required,max=32"`
	DailyRateCents     int64  `json:"daily_rate_cents" validate:"required,gt=0"`
	IsAvailableForRent *bool  `json:"is_available_for_rent,omitempty"`
}

type UpdateVehicleRequest struct {
	Make               *string `json:"make,omitempty" validate:"omitempty,max=100"`
	Model              *string `json:"model,omitempty" validate:"omitempty,max=100"`
	Year               *int    `json:"year,omitempty" validate:"omitempty,min=1900,max=2100"`
	LicensePlate       *string `json:"license_plate,omitempty" validate:"omitempty,max=32"`
	DailyRateCents     *int64  `json:"daily_rate_cents,omitempty" validate:"omitempty,gt=0"`
	IsAvailableForRent *bool   `json:"is_available_for_rent,omitempty"`
}

// Availability answers whether a vehicle is free for a date range.
type Availability struct {
	VehicleID       string            `json:"vehicle_id"`
	PickupDatetime  time.Time         `json:"pickup_datetime"`
	DropoffDatetime time.Time         `json:"dropoff_datetime"`
	Available       bool              `json:"available"`
	Conflicts       []BookingConflict `json:"conflicts"`
}

type BookingConflict struct {
	BookingID       string        `json:"booking_id"`
	BookingNumber   string        `json:"booking_number"`
	Status          BookingStatus `json:"status"`
	PickupDatetime  time.Time     `json:"pickup_datetime"`
	DropoffDatetime time.Time     `json:"dropoff_datetime"`
}
