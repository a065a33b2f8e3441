package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/cli/backups"
	"github.com/julianstephens/studyplan/internal/cli/plans"
	"github.com/julianstephens/studyplan/internal/cli/settings"
	"github.com/julianstephens/studyplan/internal/cli/system"
	"github.com/julianstephens/studyplan/internal/cli/tasks"
	"github.com/julianstephens/studyplan/internal/config"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/errors"
	"github.com/julianstephens/studyplan/internal/keyring"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/storage/postgres"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

var CLI struct {
	Version kong.VersionFlag
	Config  string `help:"Config file path. Defaults to ~/.config/studyplan/config.yaml." type:"path"`
	DB      string `name:"db" help:"SQLite database path. Overrides database.path from the config file." type:"path"`

	Init    system.InitCmd    `cmd:"" help:"Initialize studyplan storage."`
	Migrate system.MigrateCmd `cmd:"" help:"Run database migrations."`
	Doctor  system.DoctorCmd  `cmd:"" help:"Run health checks and diagnostics."`
	Keyring struct {
		Set    system.KeyringSetCmd    `cmd:"" help:"Store a connection string or calendar token in the OS keyring."`
		Get    system.KeyringGetCmd    `cmd:"" help:"Show the stored connection string with the password masked."`
		Delete system.KeyringDeleteCmd `cmd:"" help:"Remove a secret from the OS keyring."`
		Status system.KeyringStatusCmd `cmd:"" help:"Report keyring availability and stored secrets." default:"1"`
	} `cmd:"" help:"Manage secrets in the OS keyring."`
	Task struct {
		Add      tasks.TaskAddCmd      `cmd:"" help:"Add a new task."`
		List     tasks.TaskListCmd     `cmd:"" help:"List tasks." default:"1"`
		Edit     tasks.TaskEditCmd     `cmd:"" help:"Edit an existing task."`
		Complete tasks.TaskCompleteCmd `cmd:"" help:"Mark a task complete."`
		Release  tasks.TaskReleaseCmd  `cmd:"" help:"Let the planner move blocks of an edited task again."`
		Delete   tasks.TaskDeleteCmd   `cmd:"" help:"Delete a task."`
		Restore  tasks.TaskRestoreCmd  `cmd:"" help:"Restore a deleted task."`
	} `cmd:"" help:"Manage tasks."`
	Plan       plans.PlanCmd        `cmd:"" help:"Propose and apply a full schedule."`
	Show       plans.ShowCmd        `cmd:"" help:"Show scheduled blocks."`
	Overflow   plans.OverflowCmd    `cmd:"" help:"Show sessions that could not be placed."`
	Reschedule plans.RescheduleCmd  `cmd:"" help:"Repair missed blocks once."`
	Watch      plans.WatchCmd       `cmd:"" help:"Repair missed blocks periodically until interrupted."`
	Validate   plans.ValidateCmd    `cmd:"" help:"Validate tasks and the schedule for conflicts."`
	Settings   settings.SettingsCmd `cmd:"" help:"Show or change planning settings."`
	Energy     struct {
		Set  settings.EnergySetCmd  `cmd:"" help:"Set hourly energy scores, e.g. 9-12=0.9."`
		Show settings.EnergyShowCmd `cmd:"" help:"Show the energy profile." default:"1"`
	} `cmd:"" help:"Manage the hourly energy profile."`
	Backup struct {
		Create  backups.BackupCreateCmd  `cmd:"" help:"Create a manual backup." default:"1"`
		List    backups.BackupListCmd    `cmd:"" help:"List available backups."`
		Restore backups.BackupRestoreCmd `cmd:"" help:"Restore from a backup."`
	} `cmd:"" help:"Manage database backups."`
}

func main() {
	ctx := kong.Parse(&CLI,
		kong.Name("studyplan"),
		kong.Description("Study-session auto-scheduler"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact:             true,
			NoExpandSubcommands: true,
		}),
		kong.Vars{"version": constants.Version},
	)

	cfg, err := config.Load(CLI.Config)
	if err != nil {
		errors.Fatal(err)
	}
	if CLI.DB != "" {
		cfg.Database.Driver = config.DriverSQLite
		cfg.Database.Path = CLI.DB
	}

	command := ctx.Command()
	if err := logger.Init(logger.Config{
		Debug:     cfg.Debug,
		ConfigDir: cfg.ConfigDir(),
		Stderr:    command == "watch",
	}); err != nil {
		errors.Fatalf("failed to initialize logger: %v", err)
	}

	// keyring commands provide the connection string, so they run without a store
	if strings.HasPrefix(command, "keyring") {
		if err := ctx.Run(cli.New(nil, cfg)); err != nil {
			errors.Fatal(err)
		}
		return
	}

	store, err := openStore(cfg)
	if err != nil {
		errors.Fatal(err)
	}
	defer store.Close()

	appCtx := cli.New(store, cfg)

	// these manage or inspect the schema themselves
	switch command {
	case "init", "migrate", "doctor":
	default:
		if err := store.Load(); err != nil {
			errors.Fatal(err)
		}
		if err := appCtx.Wire(context.Background()); err != nil {
			errors.Fatal(err)
		}
	}

	if err := ctx.Run(appCtx); err != nil {
		store.Close()
		errors.Fatal(err)
	}
}

func openStore(cfg *config.Config) (storage.Provider, error) {
	if cfg.Database.Driver != config.DriverPostgres {
		return sqlite.NewStore(cfg.Database.Path), nil
	}
	connStr := cfg.Database.URL
	if connStr == "" {
		s, err := keyring.GetConnectionString()
		if err != nil {
			return nil, fmt.Errorf("no database.url configured and no connection string in the keyring: %w", err)
		}
		connStr = s
	}
	if err := postgres.ValidateConnString(connStr); err != nil {
		return nil, err
	}
	return postgres.New(connStr), nil
}
