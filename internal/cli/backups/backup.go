package backups

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/julianstephens/studyplan/internal/backup"
	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
)

var errNotSQLite = errors.New("backups are only supported for SQLite storage")

type BackupCreateCmd struct{}

func (c *BackupCreateCmd) Run(ctx *cli.Context) error {
	mgr := ctx.Backups()
	if mgr == nil {
		return errNotSQLite
	}
	path, err := mgr.Create()
	if err != nil {
		return fmt.Errorf("backup failed: %w", err)
	}

	fmt.Printf("✓ Backup created: %s\n", filepath.Base(path))
	return nil
}

type BackupListCmd struct{}

func (c *BackupListCmd) Run(ctx *cli.Context) error {
	mgr := ctx.Backups()
	if mgr == nil {
		return errNotSQLite
	}
	list, err := mgr.List()
	if err != nil {
		return fmt.Errorf("failed to list backups: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No backups found.")
		fmt.Printf("Backups are stored in: %s\n", mgr.Dir())
		return nil
	}

	fmt.Printf("Available backups (%d total, keeping most recent %d):\n\n", len(list), constants.MaxBackups)
	for _, b := range list {
		fmt.Printf("  %s  %s  (%.1f KB)\n", b.Timestamp.Format("2006-01-02 15:04:05"), filepath.Base(b.Path), float64(b.Size)/1024.0)
	}
	fmt.Printf("\nBackup directory: %s\n", mgr.Dir())
	return nil
}

type BackupRestoreCmd struct {
	BackupFile string `arg:"" help:"Path or filename of the backup to restore."`
	Yes        bool   `short:"y" help:"Restore without asking for confirmation."`
}

func (c *BackupRestoreCmd) Run(ctx *cli.Context) error {
	mgr := ctx.Backups()
	if mgr == nil {
		return errNotSQLite
	}
	path, err := resolve(mgr, c.BackupFile)
	if err != nil {
		return err
	}

	if !c.Yes {
		ok, err := cli.Confirm(
			"Replace the current database with "+filepath.Base(path)+"?",
			"Stop 'studyplan watch' first. The current database is backed up before restoring.",
		)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Restore cancelled.")
			return nil
		}
	}

	if err := ctx.Store.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to close database connection: %v\n", err)
	}
	if err := mgr.Restore(path); err != nil {
		return fmt.Errorf("restore failed: %w", err)
	}
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to reopen restored database: %w", err)
	}

	fmt.Printf("✓ Database restored from: %s\n", filepath.Base(path))
	return nil
}

// resolve accepts an absolute path, a path relative to the working
// directory, or a file name inside the backup directory
func resolve(mgr *backup.Manager, name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("backup file not found: %s", name)
		}
		return name, nil
	}
	if _, err := os.Stat(name); err == nil {
		return filepath.Abs(name)
	}
	candidate := filepath.Join(mgr.Dir(), name)
	if _, err := os.Stat(candidate); err == nil {
		return candidate, nil
	}
	return "", fmt.Errorf("backup file not found: tried current directory and %s", mgr.Dir())
}
