package database

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	pkgerrors "github.com/pkg/errors"
)

// MigrationLogger adapts ectologger to migrate.Logger.
type MigrationLogger struct {
	ectologger.Logger
}

func (l MigrationLogger) Verbose() bool {
	return true
}

func (l MigrationLogger) Printf(format string, v ...any) {
	l.Infof(strings.TrimSuffix(format, "\n"), v...)
}

type MigrationConfig struct {
	// MigrationFolderPath is a folder of *.up.sql/*.down.sql files. When it does
	// not exist, Embedded is used instead.
	MigrationFolderPath string
	// Embedded holds migrations compiled into the binary.
	Embedded fs.FS
	// EmbeddedPath is the directory inside Embedded.
	EmbeddedPath string
	Version      uint
	Force        int
	// AutoRollback forces a dirty database back to the version it had before the failed run.
	AutoRollback bool
}

type MigrationService struct {
	config *MigrationConfig
	logger ectologger.Logger
}

func NewMigrationService(logger ectologger.Logger, config *MigrationConfig) *MigrationService {
	return &MigrationService{
		config: config,
		logger: logger,
	}
}

func (ms *MigrationService) resolveMigrationFolder() (string, bool) {
	folder := ms.config.MigrationFolderPath
	if folder == "" {
		return "", false
	}
	if _, err := os.Stat(folder); err == nil {
		return folder, true
	}
	wd, _ := os.Getwd()
	folder = filepath.Join(wd, ms.config.MigrationFolderPath)
	if _, err := os.Stat(folder); err == nil {
		return folder, true
	}
	return folder, false
}

// Migrate applies pending migrations to the postgres database behind db.
func (ms *MigrationService) Migrate(db *sql.DB, databaseName string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{DatabaseName: databaseName})
	if err != nil {
		return pkgerrors.Wrap(err, "failed to create postgres migration driver")
	}

	var m *migrate.Migrate
	if folder, ok := ms.resolveMigrationFolder(); ok {
		ms.logger.Infof("Running migrations from folder %s", folder)
		m, err = migrate.NewWithDatabaseInstance("file://"+folder, databaseName, driver)
	} else if ms.config.Embedded != nil {
		ms.logger.Info("Running embedded migrations")
		source, srcErr := iofs.New(ms.config.Embedded, ms.config.EmbeddedPath)
		if srcErr != nil {
			return pkgerrors.Wrap(srcErr, "failed to open embedded migrations")
		}
		m, err = migrate.NewWithInstance("iofs", source, databaseName, driver)
	} else {
		return pkgerrors.New(fmt.Sprintf("migration folder %s does not exist", ms.config.MigrationFolderPath))
	}
	if err != nil {
		ms.logger.WithError(err).Error("Failed to create migrate instance")
		return err
	}

	m.Log = MigrationLogger{Logger: ms.logger}

	return ms.run(m)
}

func (ms *MigrationService) run(m *migrate.Migrate) error {
	if ms.config.Force != 0 {
		if err := m.Force(ms.config.Force); err != nil {
			ms.logger.WithError(err).Errorf("Failed to force database to version %d", ms.config.Force)
			return err
		}
	}

	previous, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		ms.logger.WithError(err).Error("Failed to get current migration version")
	}

	start := time.Now()
	if ms.config.Version != 0 {
		err = m.Migrate(ms.config.Version)
	} else {
		err = m.Up()
	}
	ms.logger.Infof("Database migrations completed in %v", time.Since(start))

	return ms.handleError(m, err, previous)
}

func (ms *MigrationService) handleError(m *migrate.Migrate, err error, previous uint) error {
	if err == nil {
		ms.logger.Info("Successfully applied migrations")
		return nil
	}
	if errors.Is(err, migrate.ErrNoChange) {
		ms.logger.Info("No new migrations to apply")
		return nil
	}

	ms.logger.WithError(err).Errorf("Migration failed with error: %v", err)

	version, dirty, versionErr := m.Version()
	if versionErr != nil && !errors.Is(versionErr, migrate.ErrNilVersion) {
		ms.logger.WithError(versionErr).Error("Failed to get current migration version")
		return err
	}

	if ms.config.AutoRollback && dirty {
		if previous == 0 && version > 0 {
			previous = version - 1
		}
		ms.logger.Warnf("Database is dirty at version %d. Reverting to version %d", version, previous)
		if forceErr := m.Force(int(previous)); forceErr != nil {
			ms.logger.WithError(forceErr).Errorf("Failed to force database to version %d", previous)
			return forceErr
		}
	}

	// the failure is returned even after a rollback so the service does not start
	return pkgerrors.Wrapf(err, "failed to apply migrations (version=%d dirty=%t)", version, dirty)
}
