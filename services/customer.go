package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/malwarebo/rentops/models"
)

type CustomerService struct {
	store CustomerRepository
}

func CreateCustomerService(store CustomerRepository) *CustomerService {
	return &CustomerService{store: store}
}

func (s *CustomerService) Create(ctx context.Context, orgID string, req *models.CreateCustomerRequest) (*models.Customer, error) {
	customer := &models.Customer{
		OrganizationID: orgID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Email:          strings.ToLower(req.Email),
		Phone:          req.Phone,
	}

	if err := s.store.Create(ctx, customer); err != nil {
		return nil, duplicateError(err, "a customer with this email already exists")
	}
	return customer, nil
}

func (s *CustomerService) Get(ctx context.Context, orgID, id string) (*models.Customer, error) {
	customer, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, notFoundError(err, "customer")
	}
	return customer, nil
}

func (s *CustomerService) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Customer, int64, error) {
	limit, offset = NormalizePage(limit, offset)
	customers, total, err := s.store.List(ctx, orgID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list customers: %w", err)
	}
	return customers, total, nil
}

func (s *CustomerService) Update(ctx context.Context, orgID, id string, req *models.UpdateCustomerRequest) (*models.Customer, error) {
	customer, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.FirstName != nil {
		customer.FirstName = *req.FirstName
	}
	if req.LastName != nil {
		customer.LastName = *req.LastName
	}
	if req.Email != nil {
		customer.Email = strings.ToLower(*req.Email)
	}
	if req.Phone != nil {
		customer.Phone = *req.Phone
	}

	if err := s.store.Update(ctx, customer); err != nil {
		return nil, duplicateError(err, "a customer with this email already exists")
	}
	return customer, nil
}
