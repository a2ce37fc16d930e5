package services

import (
	"context"
	"fmt"

	"github.com/malwarebo/rentops/models"
)

type LocationService struct {
	store LocationRepository
}

func CreateLocationService(store LocationRepository) *LocationService {
	return &LocationService{store: store}
}

func (s *LocationService) Create(ctx context.Context, orgID string, req *models.CreateLocationRequest) (*models.Location, error) {
	location := &models.Location{
		OrganizationID: orgID,
		Name:           req.Name,
		Address:        req.Address,
		City:           req.City,
	}

	if err := s.store.Create(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}

func (s *LocationService) Get(ctx context.Context, orgID, id string) (*models.Location, error) {
	location, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, notFoundError(err, "location")
	}
	return location, nil
}

func (s *LocationService) List(ctx context.Context, orgID string, limit, offset int) ([]*models.Location, int64, error) {
	limit, offset = NormalizePage(limit, offset)
	locations, total, err := s.store.List(ctx, orgID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list locations: %w", err)
	}
	return locations, total, nil
}

func (s *LocationService) Update(ctx context.Context, orgID, id string, req *models.UpdateLocationRequest) (*models.Location, error) {
	location, err := s.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		location.Name = *req.Name
	}
	if req.Address != nil {
		location.Address = *req.Address
	}
	if req.City != nil {
		location.City = *req.City
	}

	if err := s.store.Update(ctx, location); err != nil {
		return nil, err
	}
	return location, nil
}
