package stores

import (
	"context"

	"github.com/malwarebo/rentops/models"
	"gorm.io/gorm"
)

type VehicleStore struct {
	BaseStore
}

func CreateVehicleStore(db *gorm.DB) *VehicleStore {
	return &VehicleStore{BaseStore: BaseStore{db: db}}
}

func (s *VehicleStore) Create(ctx context.Context, vehicle *models.Vehicle) error {
	return translateError(s.GetDB(ctx).Create(vehicle).Error)
}

func (s *VehicleStore) Update(ctx context.Context, vehicle *models.Vehicle) error {
	return translateError(s.GetDB(ctx).Save(vehicle).Error)
}

func (s *VehicleStore) GetByID(ctx context.Context, orgID, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := s.GetDB(ctx).First(&vehicle, "organization_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &vehicle, nil
}

// GetForUpdate loads the vehicle and locks its row until the surrounding transaction ends.
// Booking writes for the same vehicle serialize on this lock.
func (s *VehicleStore) GetForUpdate(ctx context.Context, orgID, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := s.forUpdate(ctx).First(&vehicle, "organization_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &vehicle, nil
}

func (s *VehicleStore) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Vehicle, int64, error) {
	var vehicles []*models.Vehicle
	var total int64

	query := s.GetDB(ctx).Model(&models.Vehicle{}).Where("organization_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := applyPage(query, limit, offset).Order("created_at DESC").Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}
