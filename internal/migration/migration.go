package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	acldomain "github.com/bell24h/bell24h/internal/acl/domain"
	auditdomain "github.com/bell24h/bell24h/internal/audit/domain"
	orgdomain "github.com/bell24h/bell24h/internal/organization/domain"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"
)

const migrationsDir = "migrations"

//go:embed migrations/*.sql
var embeddedMigrations embed.FS

// Models lists every table owned by the service, in creation order.
func Models() []any {
	return []any{
		&orgdomain.Organization{},
		&orgdomain.Team{},
		&orgdomain.OrganizationMember{},
		&orgdomain.TeamMember{},
		&acldomain.AccessControlList{},
		&acldomain.AclRule{},
		&acldomain.AclAssignment{},
		&auditdomain.AuditLog{},
	}
}

// Run applies the embedded SQL migrations on postgres and falls back to
// gorm AutoMigrate for the other dialects.
func Run(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if conn.Dialector.Name() != "postgres" {
		return conn.AutoMigrate(Models()...)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	return RunMigrations(sqlDB)
}

func RunMigrations(db *sql.DB) error {
	if db == nil {
		return errors.New("migration database handle is required")
	}

	sub, err := fs.Sub(embeddedMigrations, migrationsDir)
	if err != nil {
		return fmt.Errorf("open migrations: %w", err)
	}

	source, err := iofs.New(sub, ".")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration driver: %w", err)
	}

	migrator, err := migrate.NewWithInstance("iofs", source, "postgres", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	upErr := migrator.Up()
	if upErr != nil && !errors.Is(upErr, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", upErr)
	}
	// Closing the migrator would close the shared *sql.DB.
	return nil
}
