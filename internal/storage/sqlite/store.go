package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/migration"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/storage/sqlstore"
	"github.com/julianstephens/studyplan/migrations"
)

// ErrNotInitialized is returned by Load before init has created the file
var ErrNotInitialized = errors.New("storage not initialized, run 'studyplan init' first")

var _ storage.Provider = (*Store)(nil)

type Store struct {
	*sqlstore.Store
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Init() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := s.open(); err != nil {
		return err
	}
	if err := s.runMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if _, err := s.GetSettings(); err != nil {
		if err := s.SaveSettings(models.DefaultSettings()); err != nil {
			return fmt.Errorf("failed to save default settings: %w", err)
		}
	}
	return nil
}

func (s *Store) Load() error {
	if s.Store != nil {
		return nil
	}
	if _, err := os.Stat(s.path); os.IsNotExist(err) {
		return ErrNotInitialized
	}
	if err := s.open(); err != nil {
		return err
	}
	return s.validateSchemaVersion()
}

func (s *Store) open() error {
	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	// one writer at a time; the watch daemon and the CLI share the file
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return fmt.Errorf("failed to configure database: %w", err)
	}
	s.Store = sqlstore.New(db, sqlstore.SQLite)
	return nil
}

func (s *Store) Close() error {
	if s.Store == nil {
		return nil
	}
	err := s.DB().Close()
	s.Store = nil
	return err
}

func (s *Store) runner() (*migration.Runner, error) {
	sub, err := fs.Sub(migrations.FS, "sqlite")
	if err != nil {
		return nil, fmt.Errorf("failed to access sqlite migrations: %w", err)
	}
	return migration.NewRunner(s.DB(), sub), nil
}

func (s *Store) runMigrations() error {
	_, err := s.Migrate(func(msg string) { logger.Info(msg) })
	return err
}

// Migrate applies pending migrations to an already initialized database
func (s *Store) Migrate(logFn func(string)) (int, error) {
	if s.Store == nil {
		if _, err := os.Stat(s.path); os.IsNotExist(err) {
			return 0, ErrNotInitialized
		}
		if err := s.open(); err != nil {
			return 0, err
		}
	}
	r, err := s.runner()
	if err != nil {
		return 0, err
	}
	return r.ApplyMigrations(logFn)
}

// PendingMigrations counts the migrations newer than the open database
func (s *Store) PendingMigrations() (int, error) {
	if s.Store == nil {
		return 0, errors.New("database is not open")
	}
	r, err := s.runner()
	if err != nil {
		return 0, err
	}
	pending, err := r.Pending()
	return len(pending), err
}

func (s *Store) validateSchemaVersion() error {
	r, err := s.runner()
	if err != nil {
		return err
	}
	return r.ValidateVersion()
}

func (s *Store) GetConfigPath() string {
	return s.path
}
