package stores

import (
	"context"

	"github.com/malwarebo/rentops/models"
	"gorm.io/gorm"
)

type OrganizationStore struct {
	BaseStore
}

func CreateOrganizationStore(db *gorm.DB) *OrganizationStore {
	return &OrganizationStore{BaseStore: BaseStore{db: db}}
}

func (s *OrganizationStore) Create(ctx context.Context, org *models.Organization) error {
	return translateError(s.GetDB(ctx).Create(org).Error)
}

func (s *OrganizationStore) Update(ctx context.Context, org *models.Organization) error {
	return translateError(s.GetDB(ctx).Save(org).Error)
}

func (s *OrganizationStore) GetByID(ctx context.Context, id string) (*models.Organization, error) {
	var org models.Organization
	if err := s.GetDB(ctx).First(&org, "id = ?", id).Error; err != nil {
		return nil, translateError(err)
	}
	return &org, nil
}

func (s *OrganizationStore) Deactivate(ctx context.Context, id string) error {
	result := s.GetDB(ctx).Model(&models.Organization{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
