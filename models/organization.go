package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	DefaultDepositCents       int64 = 50000
	DefaultTaxRateBasisPoints int64 = 0
)

type Organization struct {
	ID        string                                   `json:"id" gorm:"primaryKey;type:uuid"`
	Name      string                                   `json:"name" gorm:"not null"`
	Slug      string                                   `json:"slug" gorm:"uniqueIndex;not null"`
	IsActive  bool                                     `json:"is_active" gorm:"not null"`
	Settings  datatypes.JSONType[OrganizationSettings] `json:"settings"`
	CreatedAt time.Time                                `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time                                `json:"updated_at" gorm:"autoUpdateTime"`
}

// OrganizationSettings holds per-tenant booking defaults. Zero values fall
// back to the service-wide policy.
type OrganizationSettings struct {
	DefaultDepositCents int64 `json:"default_deposit_cents,omitempty"`
	TaxRateBasisPoints  int64 `json:"tax_rate_basis_points,omitempty"`
}

func (o *Organization) BeforeCreate(tx *gorm.DB) error {
	assignID(&o.ID)
	return nil
}

type CreateOrganizationRequest struct {
	Name     string                `json:"name" validate:"required,max=255"`
	Slug     string                `json:"slug" validate:"required,min=3,max=63,lowercase"`
	Settings *OrganizationSettings `json:"settings,omitempty"`
}

type UpdateOrganizationRequest struct {
	Name     *string               `json:"name,omitempty" validate:"omitempty,max=255"`
	Settings *OrganizationSettings `json:"settings,omitempty"`
}

type OrganizationResponse struct {
	Organization *Organization `json:"organization"`
	AccessToken  string        `json:"access_token,omitempty"`
}

func assignID(id *string) {
	if *id == "" {
		*id = uuid.NewString()
	}
}
