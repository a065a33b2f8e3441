package plans

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/config"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/lockfile"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/planner"
	"github.com/julianstephens/studyplan/internal/rescheduler"
)

// RescheduleCmd runs one repair tick
type RescheduleCmd struct{}

func (c *RescheduleCmd) Run(ctx *cli.Context) error {
	opCtx, cancel := ctx.OperationContext()
	defer cancel()
	res, err := ctx.Rescheduler.Tick(opCtx)
	if err != nil {
		if errors.Is(err, planner.ErrPassInProgress) {
			return fmt.Errorf("%w, try again in a moment", err)
		}
		return fmt.Errorf("repair failed: %w", err)
	}
	if !res.Settings.PushMissedTasks && len(res.Candidates) > 0 {
		fmt.Println("Pushing missed tasks is disabled; nothing was moved.")
	}
	fmt.Println(cli.RenderTick(res))
	return nil
}

// WatchCmd runs the repair loop until interrupted. Only one watch process
// may run per config directory.
type WatchCmd struct{}

func (c *WatchCmd) Run(ctx *cli.Context) error {
	lock, err := lockfile.Acquire(LockPath(ctx.Config))
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("failed to release lock file", "error", err)
		}
	}()

	settings, err := ctx.Store.GetSettings()
	if err != nil {
		return fmt.Errorf("failed to get settings: %w", err)
	}
	if !settings.AutoRescheduleEnabled {
		return errors.New("auto-reschedule is disabled. Enable it with 'studyplan settings --auto-reschedule'")
	}

	sigCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report := func(res rescheduler.TickResult, err error) {
		if err != nil || len(res.Candidates) == 0 {
			return
		}
		logger.Info("repair tick", "candidates", len(res.Candidates), "rescheduled", len(res.Rescheduled),
			"overflowed", len(res.Overflowed), "skipped", len(res.Skipped), "failed", len(res.Failed))
		fmt.Println(cli.RenderTick(res))
	}

	// catch up on anything missed while no watch was running
	report(ctx.Rescheduler.Tick(sigCtx))

	loop := rescheduler.NewLoop(sigCtx, ctx.Rescheduler)
	loop.OnTick(report)
	loop.Apply(settings)
	done := loop.Done()

	fmt.Printf("Watching for missed tasks every %s. Press Ctrl+C to stop.\n", settings.CheckInterval())
	select {
	case <-sigCtx.Done():
		fmt.Println("\nStopping...")
	case <-done:
		fmt.Println("Auto-reschedule was disabled, stopping.")
	}
	loop.Stop()
	return nil
}

// LockPath is where the watch daemon keeps its lock file
func LockPath(cfg *config.Config) string {
	dir := config.ExpandHome(constants.DefaultConfigDir)
	if cfg != nil {
		dir = cfg.ConfigDir()
	}
	return filepath.Join(dir, constants.WatchLockfileName)
}
