package migrations

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mongodb"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	mongodriver "go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

type Migrator interface {
	// Up runs all available migrations from the specified path
	Up(collectionName string, migrationsPath string) error
	// UpFromFS runs all available migrations from an embedded filesystem
	UpFromFS(collectionName string, fsys fs.FS, dirPath string) error
	// Down rolls back all migrations from the specified path
	Down(collectionName string, migrationsPath string) error
}

type migrator struct {
	database       *mongodriver.Database
	log            *zap.Logger
	lockingTimeout int
}

func newMigrator(database *mongodriver.Database, log *zap.Logger, lockingTimeout int) Migrator {
	return &migrator{
		database:       database,
		log:            log,
		lockingTimeout: lockingTimeout,
	}
}

func (m *migrator) driver(collectionName string) (database.Driver, error) {
	if collectionName == "" {
		return nil, fmt.Errorf("collection name is required")
	}

	driver, err := mongodb.WithInstance(m.database.Client(), &mongodb.Config{
		DatabaseName:         m.database.Name(),
		MigrationsCollection: collectionName,
		Locking: mongodb.Locking{
			Enabled: true,
			Timeout: m.lockingTimeout, // timeout in minutes
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create mongodb driver: %w", err)
	}
	return driver, nil
}

func (m *migrator) createMigrateInstance(collectionName string, migrationsPath string) (*migrate.Migrate, error) {
	if migrationsPath == "" {
		return nil, fmt.Errorf("migrations path is required")
	}

	driver, err := m.driver(collectionName)
	if err != nil {
		return nil, err
	}

	sourceURL := fmt.Sprintf("file://%s", migrationsPath)
	mi, err := migrate.NewWithDatabaseInstance(sourceURL, m.database.Name(), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance: %w", err)
	}

	return mi, nil
}

func (m *migrator) createMigrateInstanceFromFS(collectionName string, fsys fs.FS, dirPath string) (*migrate.Migrate, error) {
	if fsys == nil {
		return nil, fmt.Errorf("filesystem is required")
	}

	driver, err := m.driver(collectionName)
	if err != nil {
		return nil, err
	}

	sourceDriver, err := iofs.New(fsys, dirPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create iofs source: %w", err)
	}

	mi, err := migrate.NewWithInstance("iofs", sourceDriver, m.database.Name(), driver)
	if err != nil {
		return nil, fmt.Errorf("failed to create migrate instance with source: %w", err)
	}

	return mi, nil
}

func (m *migrator) Up(collectionName string, migrationsPath string) error {
	m.log.Info("running migrations up",
		zap.String("collection", collectionName),
		zap.String("path", migrationsPath))

	mi, err := m.createMigrateInstance(collectionName, migrationsPath)
	if err != nil {
		return err
	}

	return m.up(mi)
}

func (m *migrator) UpFromFS(collectionName string, fsys fs.FS, dirPath string) error {
	m.log.Info("running embedded migrations up",
		zap.String("collection", collectionName),
		zap.String("dir", dirPath))

	mi, err := m.createMigrateInstanceFromFS(collectionName, fsys, dirPath)
	if err != nil {
		return err
	}

	return m.up(mi)
}

func (m *migrator) up(mi *migrate.Migrate) error {
	err := mi.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.log.Info("no migration changes to apply")
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to run migrations up: %w", err)
	}
	m.log.Info("migrations applied")
	return nil
}

func (m *migrator) Down(collectionName string, migrationsPath string) error {
	m.log.Info("running migrations down",
		zap.String("collection", collectionName),
		zap.String("path", migrationsPath))

	mi, err := m.createMigrateInstance(collectionName, migrationsPath)
	if err != nil {
		return err
	}

	err = mi.Down()
	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations down: %w", err)
	}
	return nil
}
