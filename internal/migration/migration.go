package migration

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"gorm.io/gorm"

	alarmdomain "github.com/arusnet/arus/internal/alarm/domain"
	auditdomain "github.com/arusnet/arus/internal/audit/domain"
	customerdomain "github.com/arusnet/arus/internal/customer/domain"
	devicedomain "github.com/arusnet/arus/internal/device/domain"
	identitydomain "github.com/arusnet/arus/internal/identity/domain"
	packagedomain "github.com/arusnet/arus/internal/internetpackage/domain"
	invoicedomain "github.com/arusnet/arus/internal/invoice/domain"
	notificationdomain "github.com/arusnet/arus/internal/notification/domain"
	paymentdomain "github.com/arusnet/arus/internal/payment/domain"
	sessiondomain "github.com/arusnet/arus/internal/session/domain"
	subscriptiondomain "github.com/arusnet/arus/internal/subscription/domain"
	sysconfigdomain "github.com/arusnet/arus/internal/sysconfig/domain"
	systemlogdomain "github.com/arusnet/arus/internal/systemlog/domain"
	trafficdomain "github.com/arusnet/arus/internal/traffic/domain"
)

// This migration package makes the platform usable out of the box:
// every table is created automatically on startup, so a fresh deploy
// needs nothing beyond a reachable database.
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

// AutoMigrate creates the schema through gorm for the dialects the
// embedded SQL does not target. MySQL and SQLite deployments land here,
// as do the in-memory test databases. The partial unique indexes on
// active sessions exist only under postgres; those dialects fall back
// to the application-level checks in the session service.
func AutoMigrate(conn *gorm.DB) error {
	if conn == nil {
		return errors.New("migration database handle is required")
	}
	return conn.AutoMigrate(
		&identitydomain.User{},
		&identitydomain.JWTToken{},
		&auditdomain.ActivityLog{},
		&customerdomain.Customer{},
		&packagedomain.InternetPackage{},
		&subscriptiondomain.CustomerSubscription{},
		&invoicedomain.Invoice{},
		&invoicedomain.InvoiceSequence{},
		&paymentdomain.Payment{},
		&paymentdomain.WebhookLog{},
		&devicedomain.NetworkDevice{},
		&devicedomain.DeviceConnection{},
		&alarmdomain.DeviceAlarm{},
		&trafficdomain.TrafficMonitor{},
		&sessiondomain.PPPoESession{},
		&sessiondomain.HotspotSession{},
		&notificationdomain.NotificationTemplate{},
		&notificationdomain.NotificationQueue{},
		&sysconfigdomain.SystemConfiguration{},
		&systemlogdomain.SystemLog{},
	)
}
