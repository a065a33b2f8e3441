package system

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/cli/plans"
	"github.com/julianstephens/studyplan/internal/lockfile"
)

// errWarning marks a check result that is reported but does not fail doctor
var errWarning = errors.New("warning")

type check struct {
	name    string
	needsDB bool
	run     func(*cli.Context) error
}

var checks = []check{
	{"Database reachable", false, checkDBReachable},
	{"Schema version", true, checkSchemaVersion},
	{"Settings", true, checkSettings},
	{"Backups present", false, checkBackupsPresent},
	{"Schedule validation", true, checkValidation},
	{"Clock", false, checkClock},
	{"Watch daemon", false, checkWatch},
}

type DoctorCmd struct{}

func (cmd *DoctorCmd) Run(ctx *cli.Context) error {
	fmt.Println("Running diagnostics...")
	fmt.Println()

	failed := false
	dbReachable := true
	for _, c := range checks {
		if c.needsDB && !dbReachable {
			fmt.Printf("⊘ %s: SKIPPED (database not reachable)\n", c.name)
			continue
		}
		err := c.run(ctx)
		switch {
		case err == nil:
			fmt.Printf("✓ %s: OK\n", c.name)
		case errors.Is(err, errWarning):
			fmt.Printf("⚠ %s: WARNING\n   %v\n", c.name, err)
		default:
			fmt.Printf("❌ %s: FAIL\n   Error: %v\n", c.name, err)
			failed = true
			if c.name == "Database reachable" {
				dbReachable = false
			}
		}
	}

	fmt.Println()
	if failed {
		fmt.Println("Diagnostics completed with errors.")
		return fmt.Errorf("one or more health checks failed")
	}
	fmt.Println("All diagnostics passed!")
	return nil
}

func checkDBReachable(ctx *cli.Context) error {
	if err := ctx.Store.Load(); err != nil {
		return fmt.Errorf("failed to load database: %w", err)
	}
	return nil
}

type pendingCounter interface {
	PendingMigrations() (int, error)
}

func checkSchemaVersion(ctx *cli.Context) error {
	p, ok := ctx.Store.(pendingCounter)
	if !ok {
		return nil
	}
	n, err := p.PendingMigrations()
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%d pending migration(s), run 'studyplan migrate'", n)
	}
	return nil
}

func checkSettings(ctx *cli.Context) error {
	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return err
	}
	return settings.Validate()
}

func checkBackupsPresent(ctx *cli.Context) error {
	mgr := ctx.Backups()
	if mgr == nil {
		return fmt.Errorf("%w: backups are only kept for sqlite storage", errWarning)
	}
	list, err := mgr.List()
	if err != nil {
		return fmt.Errorf("%w: failed to list backups: %v", errWarning, err)
	}
	if len(list) == 0 {
		return fmt.Errorf("%w: no backups found in %s", errWarning, mgr.Dir())
	}
	return nil
}

func checkValidation(ctx *cli.Context) error {
	if ctx.Planner == nil {
		if err := ctx.Wire(context.Background()); err != nil {
			return err
		}
	}
	opCtx, cancel := ctx.OperationContext()
	defer cancel()
	res, err := ctx.Planner.Validate(opCtx)
	if err != nil {
		return err
	}
	if res.HasConflicts() {
		return fmt.Errorf("found %d conflict(s), run 'studyplan validate' for details", len(res.Conflicts))
	}
	return nil
}

func checkClock(ctx *cli.Context) error {
	now := ctx.Now()
	if now.Year() < 2000 {
		return fmt.Errorf("system clock looks wrong: %s", now.Format(time.RFC3339))
	}
	return nil
}

func checkWatch(ctx *cli.Context) error {
	info, ok := lockfile.Holder(plans.LockPath(ctx.Config))
	if !ok {
		return fmt.Errorf("%w: not running, missed blocks are only repaired by 'studyplan reschedule'", errWarning)
	}
	fmt.Printf("   pid %d since %s\n", info.PID, info.Started.Local().Format(time.DateTime))
	return nil
}
