package stores

import (
	"context"

	"github.com/malwarebo/rentops/models"
	"gorm.io/gorm"
)

type LocationStore struct {
	BaseStore
}

func CreateLocationStore(db *gorm.DB) *LocationStore {
	return &LocationStore{BaseStore: BaseStore{db: db}}
}

func (s *LocationStore) Create(ctx context.Context, location *models.Location) error {
	return translateError(s.GetDB(ctx).Create(location).Error)
}

func (s *LocationStore) Update(ctx context.Context, location *models.Location) error {
	return translateError(s.GetDB(ctx).Save(location).Error)
}

func (s *LocationStore) GetByID(ctx context.Context, orgID, id string) (*models.Location, error) {
	var location models.Location
	if err := s.GetDB(ctx).First(&location, "organization_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &location, nil
}

func (s *LocationStore) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Location, int64, error) {
	var locations []*models.Location
	var total int64

	query := s.GetDB(ctx).Model(&models.Location{}).Where("organization_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := applyPage(query, limit, offset).Order("name").Find(&locations).Error; err != nil {
		return nil, 0, err
	}
	return locations, total, nil
}
