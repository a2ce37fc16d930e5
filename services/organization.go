package services

import (
	"context"
	"fmt"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/utils"
	"gorm.io/datatypes"
)

const OwnerRole = "owner"

// TokenIssuer mints access tokens bound to an organization.
type TokenIssuer interface {
	GenerateToken(orgID, subject string, roles []string) (string, error)
}

type OrganizationService struct {
	store  OrganizationRepository
	tokens TokenIssuer
}

func CreateOrganizationService(store OrganizationRepository, tokens TokenIssuer) *OrganizationService {
	return &OrganizationService{store: store, tokens: tokens}
}

// Create registers a tenant and returns an owner token for it.
func (s *OrganizationService) Create(ctx context.Context, req *models.CreateOrganizationRequest) (*models.OrganizationResponse, error) {
	org := &models.Organization{
		Name:     req.Name,
		Slug:     req.Slug,
		IsActive: true,
	}
	if req.Settings != nil {
		org.Settings = datatypes.NewJSONType(*req.Settings)
	}

	if err := s.store.Create(ctx, org); err != nil {
		return nil, duplicateError(err, "an organization with this slug already exists")
	}

	token, err := s.tokens.GenerateToken(org.ID, org.Slug, []string{OwnerRole})
	if err != nil {
		return nil, fmt.Errorf("issue organization token: %w", err)
	}

	utils.Info(ctx, "organization created", map[string]interface{}{
		"organization_id": org.ID,
		"slug":            org.Slug,
	})
	return &models.OrganizationResponse{Organization: org, AccessToken: token}, nil
}

func (s *OrganizationService) Get(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundError(err, "organization")
	}
	return org, nil
}

// GetActive is used on every authenticated request; inactive tenants look unauthorized.
func (s *OrganizationService) GetActive(ctx context.Context, id string) (*models.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		if utils.IsNotFound(err) {
			return nil, utils.ErrUnauthorized
		}
		return nil, err
	}
	if !org.IsActive {
		return nil, utils.ErrUnauthorized
	}
	return org, nil
}

func (s *OrganizationService) Update(ctx context.Context, id string, req *models.UpdateOrganizationRequest) (*models.Organization, error) {
	org, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		org.Name = *req.Name
	}
	if req.Settings != nil {
		org.Settings = datatypes.NewJSONType(*req.Settings)
	}

	if err := s.store.Update(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *OrganizationService) Deactivate(ctx context.Context, id string) error {
	if err := s.store.Deactivate(ctx, id); err != nil {
		return notFoundError(err, "organization")
	}
	return nil
}
