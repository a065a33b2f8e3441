package system

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/storage/postgres"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

type InitCmd struct {
	Force  bool   `help:"Force reset by deleting existing database before initialization."`
	Source string `help:"Source database path or connection string to migrate data from."`
}

func (c *InitCmd) Run(ctx *cli.Context) error {
	if c.Force {
		if _, ok := ctx.Store.(*sqlite.Store); !ok {
			return errors.New("--force only supports SQLite storage")
		}
		dbPath := ctx.Store.GetConfigPath()
		if abs, err := filepath.Abs(dbPath); err == nil {
			dbPath = abs
		}
		if c.Source != "" {
			if absSource, err := filepath.Abs(c.Source); err == nil && absSource == dbPath {
				return fmt.Errorf("cannot use --force when source and destination are the same: %s", dbPath)
			}
		}
		if _, err := os.Stat(dbPath); err == nil {
			if err := ctx.Store.Close(); err != nil {
				return fmt.Errorf("failed to close existing database: %w", err)
			}
			if err := os.Remove(dbPath); err != nil {
				return fmt.Errorf("failed to delete existing database: %w", err)
			}
			fmt.Printf("Deleted existing database at: %s\n", dbPath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("failed to access existing database: %w", err)
		}
	}

	if err := ctx.Store.Init(); err != nil {
		return err
	}
	fmt.Printf("Initialized studyplan storage at: %s\n", ctx.Store.GetConfigPath())

	if c.Source != "" {
		fmt.Printf("Migrating data from: %s\n", c.Source)
		source, err := openSource(c.Source)
		if err != nil {
			return err
		}
		defer source.Close()
		if err := copyStore(source, ctx.Store); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		fmt.Println("Migration completed successfully!")
	}
	return nil
}

func openSource(src string) (storage.Provider, error) {
	var store storage.Provider
	if postgres.IsConnString(src) {
		if err := postgres.ValidateConnString(src); err != nil {
			if errors.Is(err, postgres.ErrEmbeddedCredentials) {
				return nil, errors.New("PostgreSQL source connection string contains embedded credentials. Use environment variables or .pgpass instead")
			}
			return nil, err
		}
		store = postgres.New(src)
	} else {
		store = sqlite.NewStore(src)
	}
	if err := store.Load(); err != nil {
		return nil, fmt.Errorf("failed to load source database: %w", err)
	}
	return store, nil
}

// copyStore moves every record from src into a freshly initialized dst
func copyStore(src, dst storage.Provider) error {
	fmt.Println("  Migrating settings...")
	settings, err := src.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings from source: %w", err)
	}
	if err := dst.SaveSettings(settings); err != nil {
		return fmt.Errorf("failed to save settings to destination: %w", err)
	}
	energy, err := src.GetEnergyProfile()
	if err != nil {
		return fmt.Errorf("failed to get energy profile from source: %w", err)
	}
	if err := dst.SaveEnergyProfile(energy); err != nil {
		return fmt.Errorf("failed to save energy profile to destination: %w", err)
	}

	fmt.Println("  Migrating tasks...")
	tasks, err := src.GetAllTasksIncludingDeleted()
	if err != nil {
		return fmt.Errorf("failed to get tasks from source: %w", err)
	}
	for _, task := range tasks {
		if err := dst.AddTask(task); err != nil {
			return fmt.Errorf("failed to add task %s: %w", task.ID, err)
		}
	}
	fmt.Printf("    Migrated %d tasks\n", len(tasks))

	fmt.Println("  Migrating blocks...")
	blocks, err := src.GetAllBlocks()
	if err != nil {
		return fmt.Errorf("failed to get blocks from source: %w", err)
	}
	overflow, err := src.GetOverflow()
	if err != nil {
		return fmt.Errorf("failed to get overflow from source: %w", err)
	}
	if err := dst.ApplySchedule(models.ScheduleUpdate{Upsert: blocks, Overflow: overflow}); err != nil {
		return fmt.Errorf("failed to save blocks to destination: %w", err)
	}
	fmt.Printf("    Migrated %d blocks and %d overflow entries\n", len(blocks), len(overflow))
	return nil
}
