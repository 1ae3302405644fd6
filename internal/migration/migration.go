package migration

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	auditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/audit/domain"
	authdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/auth/domain"
	creditdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/credit/domain"
	feedbackdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/feedback/domain"
	itcheckdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/itcheck/domain"
	licensedomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/license/domain"
	"github.com/vebinua/it-staff-check-2.0-sub001/internal/sequence"
	ticketdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/ticket/domain"
	vaultdomain "github.com/vebinua/it-staff-check-2.0-sub001/internal/vault/domain"
	"gorm.io/gorm"
)

const migrationsDir = "sql"

//go:embed sql/*.sql
var embeddedMigrations embed.FS

// Models lists every table for dialects that are not migrated from SQL files.
func Models() []any {
	return []any{
		&authdomain.User{},
		&authdomain.UserPermission{},
		&auditdomain.AuditLog{},
		&sequence.TicketSequence{},
		&itcheckdomain.Entry{},
		&itcheckdomain.SpeedTest{},
		&itcheckdomain.InstalledApp{},
		&licensedomain.License{},
		&licensedomain.Addon{},
		&vaultdomain.Entry{},
		&vaultdomain.CustomField{},
		&ticketdomain.Ticket{},
		&ticketdomain.Comment{},
		&ticketdomain.Attachment{},
		&creditdomain.Block{},
		&creditdomain.LogEntry{},
		&feedbackdomain.Link{},
		&feedbackdomain.Response{},
	}
}

// Migrate applies the versioned SQL schema on postgres and falls back to
// AutoMigrate for mysql and sqlite.
func Migrate(conn *gorm.DB, dbType string) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	if dbType != "postgres" {
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
	// Do not call migrator.Close here because it would close the shared *sql.DB.

	return nil
}
