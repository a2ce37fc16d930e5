package stores

import (
	"context"

	"github.com/malwarebo/rentops/models"
	"gorm.io/gorm"
)

type CustomerStore struct {
	BaseStore
}

func CreateCustomerStore(db *gorm.DB) *CustomerStore {
	return &CustomerStore{BaseStore: BaseStore{db: db}}
}

func (s *CustomerStore) Create(ctx context.Context, customer *models.Customer) error {
	return translateError(s.GetDB(ctx).Create(customer).Error)
}

func (s *CustomerStore) Update(ctx context.Context, customer *models.Customer) error {
	return translateError(s.GetDB(ctx).Save(customer).Error)
}

func (s *CustomerStore) GetByID(ctx context.Context, orgID, id string) (*models.Customer, error) {
	var customer models.Customer
	if err := s.GetDB(ctx).First(&customer, "organization_id = ? AND id = ?", orgID, id).Error; err != nil {
		return nil, translateError(err)
	}
	return &customer, nil
}

func (s *CustomerStore) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Customer, int64, error) {
	var customers []*models.Customer
	var total int64

	query := s.GetDB(ctx).Model(&models.Customer{}).Where("organization_id = ?", orgID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := applyPage(query, limit, offset).Order("last_name, first_name").Find(&customers).Error; err != nil {
		return nil, 0, err
	}
	return customers, total, nil
}
