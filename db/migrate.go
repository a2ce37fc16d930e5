package db

import (
	"context"
	"fmt"
	"time"

	"github.com/malwarebo/rentops/models"
	"github.com/malwarebo/rentops/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Migration struct {
	Version string
	Name    string
	Up      func(*gorm.DB) error
	Down    func(*gorm.DB) error
}

type MigrationStatus struct {
	Version   string
	Name      string
	Applied   bool
	AppliedAt *time.Time
}

type schemaMigration struct {
	Version   string    `gorm:"primaryKey;size:255"`
	Name      string    `gorm:"size:255;not null"`
	AppliedAt time.Time `gorm:"autoCreateTime"`
}

func (schemaMigration) TableName() string {
	return "schema_migrations"
}

type Migrator struct {
	db         *gorm.DB
	migrations []Migration
}

func CreateNewMigrator(db *gorm.DB) *Migrator {
	return &Migrator{
		db:         db,
		migrations: make([]Migration, 0),
	}
}

// CreateSchemaMigrator returns a migrator loaded with the rental schema.
func CreateSchemaMigrator(db *gorm.DB) *Migrator {
	m := CreateNewMigrator(db)
	for _, migration := range SchemaMigrations() {
		m.AddMigration(migration.Version, migration.Name, migration.Up, migration.Down)
	}
	return m
}

func (m *Migrator) AddMigration(version, name string, up, down func(*gorm.DB) error) {
	m.migrations = append(m.migrations, Migration{
		Version: version,
		Name:    name,
		Up:      up,
		Down:    down,
	})
}

// Up applies pending migrations in order. Each one commits together with its
// schema_migrations row.
func (m *Migrator) Up(ctx context.Context) error {
	if err := m.createMigrationsTable(ctx); err != nil {
		return err
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for _, migration := range m.migrations {
		if _, ok := applied[migration.Version]; ok {
			continue
		}

		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := migration.Up(tx); err != nil {
				return err
			}
			return tx.Clauses(clause.OnConflict{DoNothing: true}).
				Create(&schemaMigration{Version: migration.Version, Name: migration.Name}).Error
		})
		if err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", migration.Version, err)
		}

		utils.Info(ctx, "applied migration", map[string]interface{}{
			"version": migration.Version,
			"name":    migration.Name,
		})
	}

	return nil
}

// Down rolls back applied migrations newer than version.
func (m *Migrator) Down(ctx context.Context, version string) error {
	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return err
	}

	for i := len(m.migrations) - 1; i >= 0; i-- {
		migration := m.migrations[i]
		if migration.Version == version {
			break
		}

		if _, ok := applied[migration.Version]; !ok {
			continue
		}

		err := m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if migration.Down != nil {
				if err := migration.Down(tx); err != nil {
					return err
				}
			}
			return tx.Delete(&schemaMigration{}, "version = ?", migration.Version).Error
		})
		if err != nil {
			return fmt.Errorf("failed to rollback migration %s: %w", migration.Version, err)
		}
	}

	return nil
}

func (m *Migrator) Status(ctx context.Context) ([]MigrationStatus, error) {
	if err := m.createMigrationsTable(ctx); err != nil {
		return nil, err
	}

	applied, err := m.getAppliedMigrations(ctx)
	if err != nil {
		return nil, err
	}

	statuses := make([]MigrationStatus, 0, len(m.migrations))
	for _, migration := range m.migrations {
		status := MigrationStatus{Version: migration.Version, Name: migration.Name}
		if at, ok := applied[migration.Version]; ok {
			at := at
			status.Applied = true
			status.AppliedAt = &at
		}
		statuses = append(statuses, status)
	}
	return statuses, nil
}

func (m *Migrator) createMigrationsTable(ctx context.Context) error {
	return m.db.WithContext(ctx).AutoMigrate(&schemaMigration{})
}

func (m *Migrator) getAppliedMigrations(ctx context.Context) (map[string]time.Time, error) {
	var rows []schemaMigration
	if err := m.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}

	applied := make(map[string]time.Time, len(rows))
	for _, row := range rows {
		applied[row.Version] = row.AppliedAt
	}
	return applied, nil
}

func SchemaMigrations() []Migration {
	return []Migration{
		{
			Version: "0001",
			Name:    "create_rental_tables",
			Up: func(tx *gorm.DB) error {
				return tx.AutoMigrate(
					&models.Organization{},
					&models.Location{},
					&models.Customer{},
					&models.Vehicle{},
					&models.Booking{},
				)
			},
			Down: func(tx *gorm.DB) error {
				return tx.Migrator().DropTable(
					&models.Booking{},
					&models.Vehicle{},
					&models.Customer{},
					&models.Location{},
					&models.Organization{},
				)
			},
		},
		{
			Version: "0002",
			Name:    "booking_blocking_index",
			Up: func(tx *gorm.DB) error {
				return tx.Exec(`CREATE INDEX IF NOT EXISTS idx_bookings_blocking
					ON bookings (organization_id, vehicle_id, pickup_datetime, dropoff_datetime)
					WHERE status IN ('pending', 'confirmed', 'active')`).Error
			},
			Down: func(tx *gorm.DB) error {
				return tx.Exec(`DROP INDEX IF EXISTS idx_bookings_blocking`).Error
			},
		},
		{
			Version: "0003",
			Name:    "booking_check_constraints",
			Up: func(tx *gorm.DB) error {
				if tx.Dialector.Name() != "postgres" {
					return nil
				}
				return tx.Exec(`ALTER TABLE bookings
					ADD CONSTRAINT chk_bookings_window CHECK (pickup_datetime < dropoff_datetime),
					ADD CONSTRAINT chk_bookings_amounts CHECK (
						num_days >= 1 AND subtotal_cents >= 0 AND tax_cents >= 0
						AND deposit_cents >= 0 AND total_cents = subtotal_cents + tax_cents
					)`).Error
			},
			Down: func(tx *gorm.DB) error {
				if tx.Dialector.Name() != "postgres" {
					return nil
				}
				return tx.Exec(`ALTER TABLE bookings
					DROP CONSTRAINT IF EXISTS chk_bookings_window,
					DROP CONSTRAINT IF EXISTS chk_bookings_amounts`).Error
			},
		},
	}
}
