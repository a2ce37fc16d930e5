package stores

import (
	"context"
	"errors"
	"testing"

	"github.com/malwarebo/rentops/models"
	"gorm.io/datatypes"
)

func TestOrganizationStore_SettingsRoundTrip(t *testing.T) {
	s := CreateOrganizationStore(newTestDB(t))
	ctx := context.Background()

	org := &models.Organization{
		Name:     "Harbor Rentals",
		Slug:     "harbor",
		IsActive: true,
		Settings: datatypes.NewJSONType(models.OrganizationSettings{
			DefaultDepositCents: 25000,
			TaxRateBasisPoints:  825,
		}),
	}
	if err := s.Create(ctx, org); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	got, err := s.GetByID(ctx, org.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	settings := got.Settings.Data()
	if settings.DefaultDepositCents != 25000 || settings.TaxRateBasisPoints != 825 {
		t.Errorf("settings = %+v", settings)
	}

	dup := &models.Organization{Name: "Other", Slug: "harbor", IsActive: true}
	if err := s.Create(ctx, dup); !errors.Is(err, ErrDuplicate) {
		t.Errorf("Create() with taken slug error = %v, want ErrDuplicate", err)
	}

	if err := s.Deactivate(ctx, org.ID); err != nil {
		t.Fatalf("Deactivate() error = %v", err)
	}
	got, _ = s.GetByID(ctx, org.ID)
	if got.IsActive {
		t.Error("organization still active after Deactivate()")
	}
}
