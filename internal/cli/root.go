package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/julianstephens/studyplan/internal/backup"
	"github.com/julianstephens/studyplan/internal/calendar"
	"github.com/julianstephens/studyplan/internal/calendar/gcal"
	"github.com/julianstephens/studyplan/internal/config"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/keyring"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/planner"
	"github.com/julianstephens/studyplan/internal/recurrence"
	"github.com/julianstephens/studyplan/internal/rescheduler"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/storage/sqlite"
)

type Context struct {
	Store       storage.Provider
	Config      *config.Config
	Engine      *scheduler.Engine
	Planner     *planner.Service
	Rescheduler *rescheduler.Rescheduler
	Calendar    calendar.Source
	// Now is swapped in tests
	Now func() time.Time
}

// New returns a context with only the store and config set. Call Wire once
// the store is loaded.
func New(store storage.Provider, cfg *config.Config) *Context {
	return &Context{Store: store, Config: cfg, Calendar: calendar.None{}, Now: time.Now}
}

// Wire builds the engine, the planning service and the rescheduler. They
// share one gate so a repair tick never runs during a full pass.
func (c *Context) Wire(ctx context.Context) error {
	cfg := c.Config
	if cfg == nil {
		cfg = &config.Config{}
	}
	holidays := recurrence.AnyHoliday{cfg.HolidaySet()}

	var exporter calendar.Exporter
	if cfg.Calendar.Enabled {
		client, err := c.calendarClient(ctx)
		if err != nil {
			return fmt.Errorf("failed to connect calendar: %w", err)
		}
		c.Calendar = client
		if cfg.Calendar.Export {
			exporter = client
		}
		if id := cfg.Calendar.HolidayCalendar; id != "" {
			hs, err := gcal.NewHolidaySource(client, id, c.Location())
			if err != nil {
				return err
			}
			holidays = append(holidays, hs)
		}
	}

	engineOpts := []scheduler.Option{scheduler.WithExpander(recurrence.NewExpander(holidays))}
	if c.Config != nil {
		engineOpts = append(engineOpts,
			scheduler.WithWeights(cfg.Scheduler.Weights),
			scheduler.WithBumpBudget(cfg.Scheduler.BumpBudget),
			scheduler.WithLookaheadDays(cfg.Scheduler.LookaheadDays),
		)
	}
	c.Engine = scheduler.NewEngine(engineOpts...)

	gate := planner.NewGate("")
	if c.Config != nil {
		gate = planner.NewGate(filepath.Join(c.Config.ConfigDir(), constants.PassLockfileName))
	}
	plannerOpts := []planner.Option{
		planner.WithCalendar(c.Calendar),
		planner.WithGate(gate),
		planner.WithLookaheadDays(cfg.Scheduler.LookaheadDays),
		planner.WithClock(c.Now),
	}
	if exporter != nil {
		plannerOpts = append(plannerOpts, planner.WithExporter(exporter))
	}
	if m := c.Backups(); m != nil {
		plannerOpts = append(plannerOpts, planner.WithBackups(m))
	}
	c.Planner = planner.NewService(c.Store, c.Engine, plannerOpts...)
	c.Rescheduler = rescheduler.New(c.Store, c.Engine,
		rescheduler.WithCalendar(c.Calendar),
		rescheduler.WithGate(gate),
		rescheduler.WithLookaheadDays(cfg.Scheduler.LookaheadDays),
		rescheduler.WithClock(c.Now),
	)
	return nil
}

// calendarClient prefers an OAuth token stored in the keyring over the
// token file.
func (c *Context) calendarClient(ctx context.Context) (*gcal.Client, error) {
	cal := c.Config.Calendar
	opts := []gcal.Option{gcal.WithCalendarID(cal.CalendarID), gcal.WithRateLimit(cal.RateLimit)}
	if tok, err := keyring.Get(keyring.CalendarToken); err == nil {
		creds, err := os.ReadFile(cal.CredentialsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read credentials file: %w", err)
		}
		return gcal.NewClientWithToken(ctx, creds, []byte(tok), opts...)
	}
	return gcal.NewClientFromCredentialsFile(ctx, cal.CredentialsPath, cal.TokenPath, opts...)
}

// Backups returns the backup manager, or nil when the store is not a local
// SQLite file
func (c *Context) Backups() *backup.Manager {
	if _, ok := c.Store.(*sqlite.Store); !ok {
		return nil
	}
	return backup.NewManager(c.Store.GetConfigPath())
}

// PerformAutomaticBackup creates an automatic backup and silently handles errors
func (c *Context) PerformAutomaticBackup() {
	mgr := c.Backups()
	if mgr == nil {
		return
	}
	if _, err := mgr.Create(); err != nil {
		logger.Warn("Automatic backup failed", "error", err)
	}
}

// Location is the timezone from the stored settings
func (c *Context) Location() *time.Location {
	settings, err := c.Store.GetSettings()
	if err != nil {
		return time.Local
	}
	return settings.Location()
}

// OperationContext bounds one store-and-calendar operation
func (c *Context) OperationContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), constants.DefaultOperationTimeout)
}
