// Package planner runs full planning passes against the store: load a
// snapshot, run the engine, apply the result in one transaction and
// optionally mirror blocks to a calendar.
package planner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/backup"
	"github.com/julianstephens/studyplan/internal/calendar"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
	"github.com/julianstephens/studyplan/internal/validation"
)

// ErrStaleProposal is returned by Apply when the stored schedule changed
// after the proposal was computed, for example by a repair tick
var ErrStaleProposal = errors.New("stale proposal, re-plan")

type Service struct {
	store         storage.Provider
	engine        *scheduler.Engine
	source        calendar.Source
	exporter      calendar.Exporter
	backups       *backup.Manager
	gate          *Gate
	lookaheadDays int
	now           func() time.Time
}

type Option func(*Service)

func WithCalendar(source calendar.Source) Option {
	return func(s *Service) {
		if source != nil {
			s.source = source
		}
	}
}

// WithExporter mirrors applied blocks to a calendar
func WithExporter(exp calendar.Exporter) Option {
	return func(s *Service) { s.exporter = exp }
}

// WithBackups snapshots the database before each applied pass
func WithBackups(m *backup.Manager) Option {
	return func(s *Service) { s.backups = m }
}

// WithGate shares a gate with other pass runners, such as the repair loop
func WithGate(g *Gate) Option {
	return func(s *Service) {
		if g != nil {
			s.gate = g
		}
	}
}

func WithLookaheadDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.lookaheadDays = days
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func NewService(store storage.Provider, engine *scheduler.Engine, opts ...Option) *Service {
	s := &Service{
		store:         store,
		engine:        engine,
		source:        calendar.None{},
		gate:          &Gate{},
		lookaheadDays: constants.MaxLookaheadDays,
		now:           time.Now,
	}
	if s.engine == nil {
		s.engine = scheduler.NewEngine()
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) Gate() *Gate {
	return s.gate
}

// Proposal is a computed but not yet applied pass
type Proposal struct {
	Snapshot Snapshot
	Result   scheduler.Result
	Update   models.ScheduleUpdate
	// Moved holds prior blocks whose position changed
	Moved []models.SessionKey
}

// Outcome reports what Apply did
type Outcome struct {
	Backup       string
	Exported     int
	ExportFailed int
	Conflicts    validation.ValidationResult
}

// Propose loads a snapshot and runs the engine without writing anything
func (s *Service) Propose(ctx context.Context) (Proposal, error) {
	snap, err := LoadSnapshot(ctx, s.store, s.source, s.now(), s.lookaheadDays)
	if err != nil {
		return Proposal{}, err
	}

	res, err := s.engine.Schedule(ctx, scheduler.Input{
		Now:      snap.Now,
		Tasks:    snap.Tasks,
		Settings: snap.Settings,
		Energy:   snap.Energy,
		Occupied: snap.Occupied(),
	})
	if err != nil {
		return Proposal{}, err
	}

	update := updateFor(res)
	update.Base, update.CheckBase = snap.Blocks, true
	return Proposal{
		Snapshot: snap,
		Result:   res,
		Update:   update,
		Moved:    movedKeys(snap.Blocks, res.Placed),
	}, nil
}

// updateFor turns a pass result into a store write set. Displaced keys that
// were placed again are upserts, not deletes.
func updateFor(res scheduler.Result) models.ScheduleUpdate {
	placed := make(map[models.SessionKey]bool, len(res.Placed))
	for _, b := range res.Placed {
		placed[b.Key()] = true
	}
	u := models.ScheduleUpdate{Upsert: res.Placed, Overflow: res.Overflow}
	for _, k := range res.Displaced {
		if !placed[k] {
			u.Delete = append(u.Delete, k)
		}
	}
	return u
}

func movedKeys(prior, placed []models.ScheduledBlock) []models.SessionKey {
	before := make(map[models.SessionKey]models.ScheduledBlock, len(prior))
	for _, b := range prior {
		before[b.Key()] = b
	}
	var out []models.SessionKey
	for _, b := range placed {
		if p, ok := before[b.Key()]; ok && (!p.Start.Equal(b.Start) || !p.End.Equal(b.End)) {
			out = append(out, b.Key())
		}
	}
	return out
}

// Apply writes a proposal. The database is backed up first when a backup
// manager is configured; a failed backup is logged and does not stop the pass.
// A proposal whose snapshot no longer matches the stored blocks is refused
// with ErrStaleProposal and nothing is written.
func (s *Service) Apply(ctx context.Context, p Proposal) (Outcome, error) {
	var out Outcome
	err := s.gate.Do(func() error {
		var err error
		out, err = s.apply(ctx, p)
		return err
	})
	return out, err
}

// Run proposes and applies a pass while holding the gate
func (s *Service) Run(ctx context.Context) (Proposal, Outcome, error) {
	var (
		p   Proposal
		out Outcome
	)
	err := s.gate.Do(func() error {
		var err error
		if p, err = s.Propose(ctx); err != nil {
			return err
		}
		out, err = s.apply(ctx, p)
		return err
	})
	return p, out, err
}

func (s *Service) apply(ctx context.Context, p Proposal) (Outcome, error) {
	var out Outcome
	if s.backups != nil {
		path, err := s.backups.Create()
		if err != nil {
			logger.Warn("Automatic backup failed", "error", err)
		} else {
			out.Backup = path
		}
	}

	if err := s.store.ApplySchedule(p.Update); err != nil {
		if errors.Is(err, storage.ErrStaleSchedule) {
			logger.Warn("discarding stale proposal", "read_at", p.Snapshot.Now)
			return out, ErrStaleProposal
		}
		return out, fmt.Errorf("failed to apply schedule: %w", err)
	}
	logger.Info("schedule applied",
		"placed", len(p.Update.Upsert),
		"removed", len(p.Update.Delete),
		"overflow", len(p.Update.Overflow),
		"strategy", p.Result.Strategy)

	s.markScheduled(p)

	if s.exporter != nil {
		out.Exported, out.ExportFailed = s.export(ctx, p)
	}

	out.Conflicts = s.check(p)
	if out.Conflicts.HasConflicts() {
		logger.Warn("applied schedule has conflicts", "count", len(out.Conflicts.Conflicts))
	}
	return out, nil
}

// markScheduled stamps tasks whose blocks were created or moved
func (s *Service) markScheduled(p Proposal) {
	touched := make(map[string]bool)
	prior := make(map[models.SessionKey]bool, len(p.Snapshot.Blocks))
	for _, b := range p.Snapshot.Blocks {
		prior[b.Key()] = true
	}
	for _, b := range p.Update.Upsert {
		if !prior[b.Key()] {
			touched[b.TaskID] = true
		}
	}
	for _, k := range p.Moved {
		touched[k.TaskID] = true
	}

	for id := range touched {
		if err := s.store.SetTaskScheduled(id, p.Snapshot.Now); err != nil {
			logger.Warn("failed to stamp scheduled task", "task", id, "error", err)
		}
	}
}

// export creates calendar events for new blocks, recreates events of moved
// blocks and removes events of deleted ones. Failures are per block.
func (s *Service) export(ctx context.Context, p Proposal) (exported, failed int) {
	events := make(map[models.SessionKey]string, len(p.Snapshot.Blocks))
	for _, b := range p.Snapshot.Blocks {
		if b.CalendarEventID != "" {
			events[b.Key()] = b.CalendarEventID
		}
	}
	moved := make(map[models.SessionKey]bool, len(p.Moved))
	for _, k := range p.Moved {
		moved[k] = true
	}

	for _, k := range p.Update.Delete {
		if id, ok := events[k]; ok {
			if err := s.exporter.DeleteEvent(ctx, id); err != nil {
				logger.Warn("failed to delete calendar event", "task", k.TaskID, "session", k.Index, "error", err)
			}
		}
	}

	titles := make(map[string]string, len(p.Snapshot.Tasks))
	for _, t := range p.Snapshot.Tasks {
		titles[t.ID] = t.Title
	}
	for _, b := range p.Update.Upsert {
		key := b.Key()
		id, has := events[key]
		if has && !moved[key] {
			continue
		}
		if has {
			if err := s.exporter.DeleteEvent(ctx, id); err != nil {
				logger.Warn("failed to delete calendar event", "task", key.TaskID, "session", key.Index, "error", err)
			}
			// forget the old event so a failed create is retried next pass
			if err := s.store.SetBlockEvent(key, ""); err != nil {
				logger.Warn("failed to clear calendar event", "task", key.TaskID, "session", key.Index, "error", err)
			}
		}
		newID, err := s.exporter.CreateEvent(ctx, b, eventTitle(titles[b.TaskID], b))
		if err == nil {
			err = s.store.SetBlockEvent(key, newID)
		}
		if err != nil {
			logger.Warn("failed to export block", "task", key.TaskID, "occurrence", key.Occurrence, "session", key.Index, "error", err)
			failed++
			continue
		}
		exported++
	}
	return exported, failed
}

func eventTitle(title string, b models.ScheduledBlock) string {
	if title == "" {
		title = b.TaskID
	}
	return fmt.Sprintf("Study: %s", title)
}

func (s *Service) check(p Proposal) validation.ValidationResult {
	bounds, err := validation.BoundsFromSettings(p.Snapshot.Settings)
	if err != nil {
		return validation.ValidationResult{}
	}
	return validation.New(bounds).ValidateBlocks(p.Result.Placed, p.Snapshot.LockedIntervals(), p.Snapshot.Tasks)
}

// Validate checks the stored schedule against the current calendar
func (s *Service) Validate(ctx context.Context) (validation.ValidationResult, error) {
	snap, err := LoadSnapshot(ctx, s.store, s.source, s.now(), s.lookaheadDays)
	if err != nil {
		return validation.ValidationResult{}, err
	}
	bounds, err := validation.BoundsFromSettings(snap.Settings)
	if err != nil {
		return validation.ValidationResult{}, err
	}
	v := validation.New(bounds)

	var upcoming []models.ScheduledBlock
	for _, b := range snap.Blocks {
		if b.End.After(snap.Now) {
			upcoming = append(upcoming, b)
		}
	}
	result := v.ValidateTasks(snap.Tasks)
	blocks := v.ValidateBlocks(upcoming, calendar.Intervals(snap.Events), snap.Tasks)
	result.Conflicts = append(result.Conflicts, blocks.Conflicts...)
	return result, nil
}
