package testutil

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/malwarebo/rentops/models"
)

func TestMemoryStore_VehicleLockHeldUntilCommit(t *testing.T) {
	m := NewMemoryStore()
	fleet := SeedFleet(m, "acme", 10000)
	orgID, vehicleID := fleet.Organization.ID, fleet.Vehicle.ID

	locked := make(chan struct{})
	release := make(chan struct{})
	var order []string
	var mu sync.Mutex
	record := func(s string) {
		mu.Lock()
		order = append(order, s)
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		_ = m.WithTransaction(context.Background(), func(ctx context.Context) error {
			if _, err := m.Vehicles().GetForUpdate(ctx, orgID, vehicleID); err != nil {
				t.Errorf("GetForUpdate() error = %v", err)
			}
			close(locked)
			<-release
			record("first commit")
			return nil
		})
	}()
	go func() {
		defer wg.Done()
		<-locked
		_ = m.WithTransaction(context.Background(), func(ctx context.Context) error {
			if _, err := m.Vehicles().GetForUpdate(ctx, orgID, vehicleID); err != nil {
				t.Errorf("GetForUpdate() error = %v", err)
			}
			record("second locked")
			return nil
		})
	}()

	<-locked
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if len(order) != 2 || order[0] != "first commit" {
		t.Errorf("order = %v, want the second lock to wait for the first commit", order)
	}
}

func TestMemoryStore_OtherVehiclesDoNotWait(t *testing.T) {
	m := NewMemoryStore()
	fleet := SeedFleet(m, "acme", 10000)
	other := fleet.AddVehicle(m, "ACME-LOCK", 10000, true)

	release := make(chan struct{})
	locked := make(chan struct{})
	go func() {
		_ = m.WithTransaction(context.Background(), func(ctx context.Context) error {
			_, _ = m.Vehicles().GetForUpdate(ctx, fleet.Organization.ID, fleet.Vehicle.ID)
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked
	defer close(release)

	done := make(chan struct{})
	go func() {
		_ = m.WithTransaction(context.Background(), func(ctx context.Context) error {
			_, err := m.Vehicles().GetForUpdate(ctx, fleet.Organization.ID, other.ID)
			return err
		})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("locking a different vehicle blocked")
	}
}

func TestMemoryStore_RollbackAndSavepoints(t *testing.T) {
	m := NewMemoryStore()
	fleet := SeedFleet(m, "acme", 10000)
	boom := errors.New("boom")

	newBooking := func(number string) *models.Booking {
		return &models.Booking{
			OrganizationID: fleet.Organization.ID,
			VehicleID:      fleet.Vehicle.ID,
			BookingNumber:  number,
			Status:         models.BookingStatusPending,
		}
	}

	err := m.WithTransaction(context.Background(), func(ctx context.Context) error {
		if err := m.Bookings().Create(ctx, newBooking("BP-2025-000001")); err != nil {
			return err
		}
		// A failed savepoint undoes only its own writes.
		_ = m.WithTransaction(ctx, func(ctx context.Context) error {
			_ = m.Bookings().Create(ctx, newBooking("BP-2025-000002"))
			return boom
		})
		if got := m.BookingCount(); got != 1 {
			t.Errorf("after savepoint rollback count = %d, want 1", got)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("WithTransaction() error = %v", err)
	}

	err = m.WithTransaction(context.Background(), func(ctx context.Context) error {
		if err := m.Bookings().Create(ctx, newBooking("BP-2025-000003")); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("WithTransaction() error = %v, want boom", err)
	}
	if got := m.BookingCount(); got != 1 {
		t.Errorf("after rollback count = %d, want 1", got)
	}
}
