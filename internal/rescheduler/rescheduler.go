// Package rescheduler repairs tasks whose blocks all lie in the past without
// being done, one task at a time, between full planning passes.
package rescheduler

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/studyplan/internal/calendar"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/planner"
	"github.com/julianstephens/studyplan/internal/scheduler"
	"github.com/julianstephens/studyplan/internal/storage"
)

type Rescheduler struct {
	store         storage.Provider
	engine        *scheduler.Engine
	source        calendar.Source
	gate          *planner.Gate
	lookaheadDays int
	now           func() time.Time
}

type Option func(*Rescheduler)

func WithCalendar(source calendar.Source) Option {
	return func(r *Rescheduler) {
		if source != nil {
			r.source = source
		}
	}
}

// WithGate shares the gate of the planning service
func WithGate(g *planner.Gate) Option {
	return func(r *Rescheduler) {
		if g != nil {
			r.gate = g
		}
	}
}

func WithLookaheadDays(days int) Option {
	return func(r *Rescheduler) {
		if days > 0 {
			r.lookaheadDays = days
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(r *Rescheduler) {
		if now != nil {
			r.now = now
		}
	}
}

func New(store storage.Provider, engine *scheduler.Engine, opts ...Option) *Rescheduler {
	r := &Rescheduler{
		store:         store,
		engine:        engine,
		source:        calendar.None{},
		gate:          &planner.Gate{},
		lookaheadDays: constants.MaxLookaheadDays,
		now:           time.Now,
	}
	if r.engine == nil {
		r.engine = scheduler.NewEngine()
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// TickResult summarizes one repair tick
type TickResult struct {
	Settings    models.Settings
	Candidates  []string
	Rescheduled []string
	Overflowed  []string
	// Skipped candidates exceeded MaxTasksToPush or pushing is disabled
	Skipped []string
	Failed  []string
	// Mutations counts store writes
	Mutations int
}

// Tick runs one repair pass. It returns planner.ErrPassInProgress when a
// full pass or another tick holds the gate.
func (r *Rescheduler) Tick(ctx context.Context) (TickResult, error) {
	var res TickResult
	err := r.gate.Do(func() error {
		var err error
		res, err = r.tick(ctx)
		return err
	})
	return res, err
}

func (r *Rescheduler) tick(ctx context.Context) (TickResult, error) {
	snap, err := planner.LoadSnapshot(ctx, r.store, r.source, r.now(), r.lookaheadDays)
	if err != nil {
		return TickResult{}, err
	}
	res := TickResult{Settings: snap.Settings}

	candidates := Candidates(snap.Tasks, snap.Blocks, snap.Now)
	for _, t := range candidates {
		res.Candidates = append(res.Candidates, t.ID)
	}
	if len(candidates) == 0 {
		return res, nil
	}
	if !snap.Settings.PushMissedTasks {
		res.Skipped = res.Candidates
		logger.Info("missed tasks found, pushing disabled", "count", len(candidates))
		return res, nil
	}

	limit := min(len(candidates), snap.Settings.MaxTasksToPush)
	for _, t := range candidates[limit:] {
		res.Skipped = append(res.Skipped, t.ID)
	}

	busy := r.busy(snap)
	for _, task := range candidates[:limit] {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		placed, outcome, writes, err := r.repair(ctx, snap, task, busy)
		res.Mutations += writes
		if err != nil {
			logger.Error("failed to reschedule missed task", "task", task.ID, "error", err)
			res.Failed = append(res.Failed, task.ID)
			continue
		}
		switch outcome {
		case outcomeRescheduled:
			res.Rescheduled = append(res.Rescheduled, task.ID)
			for _, b := range placed {
				busy = append(busy, models.BlockInterval(b, constants.IntervalLocked))
			}
		case outcomeOverflowed:
			res.Overflowed = append(res.Overflowed, task.ID)
		}
	}

	logger.Info("repair tick finished",
		"candidates", len(res.Candidates),
		"rescheduled", len(res.Rescheduled),
		"overflowed", len(res.Overflowed),
		"skipped", len(res.Skipped),
		"failed", len(res.Failed))
	return res, nil
}

// Candidates returns the tasks to repair at now, ordered by due then id: the
// task is active, unlocked and not manually edited, it has at least one
// block that is not done, and its latest block ended before now.
func Candidates(tasks []models.Task, blocks []models.ScheduledBlock, now time.Time) []models.Task {
	type summary struct {
		latest  time.Time
		pending bool
	}
	byTask := make(map[string]*summary)
	for _, b := range blocks {
		s, ok := byTask[b.TaskID]
		if !ok {
			s = &summary{}
			byTask[b.TaskID] = s
		}
		if b.End.After(s.latest) {
			s.latest = b.End
		}
		if b.Status != constants.BlockDone {
			s.pending = true
		}
	}

	var out []models.Task
	for _, t := range tasks {
		if t.Completed || t.Locked || t.Edited || t.IsDeleted() || t.Due == nil {
			continue
		}
		s, ok := byTask[t.ID]
		if !ok || !s.pending || !s.latest.Before(now) {
			continue
		}
		out = append(out, t)
	}
	slices.SortFunc(out, func(a, b models.Task) int {
		if c := a.Due.Compare(*b.Due); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	return out
}

// busy is the calendar time plus every future block; all of it is locked
// for repairs.
func (r *Rescheduler) busy(snap planner.Snapshot) []models.OccupiedInterval {
	busy := calendar.Intervals(snap.Events)
	for _, b := range snap.Blocks {
		if b.End.After(snap.Now) {
			busy = append(busy, models.BlockInterval(b, constants.IntervalLocked))
		}
	}
	return busy
}

type outcome int

const (
	outcomeRescheduled outcome = iota + 1
	outcomeOverflowed
)

// repair re-places the stale sessions of one task. On failure the stale
// blocks are kept as missed so the task stays a candidate.
func (r *Rescheduler) repair(ctx context.Context, snap planner.Snapshot, task models.Task, busy []models.OccupiedInterval) ([]models.ScheduledBlock, outcome, int, error) {
	stale := staleBlocks(snap.TaskBlocks(task.ID))
	sessions := r.sessions(task, stale, snap.Settings, snap.Now)

	placed, overflow, err := r.engine.Place(ctx, snap.Now, snap.Settings, sessions, busy)
	if err != nil {
		return nil, 0, 0, err
	}

	writes := 0
	if len(overflow) == 0 && len(placed) == len(sessions) {
		if err := r.store.ReplaceTaskBlocks(task.ID, placed); err != nil {
			return nil, 0, writes, fmt.Errorf("failed to replace blocks: %w", err)
		}
		writes++
		if len(snap.TaskOverflow(task.ID)) > 0 {
			if err := r.store.ClearTaskOverflow(task.ID); err != nil {
				return placed, outcomeRescheduled, writes, fmt.Errorf("failed to clear overflow: %w", err)
			}
			writes++
		}
		logger.Info("missed task rescheduled", "task", task.ID, "sessions", len(placed))
		return placed, outcomeRescheduled, writes, nil
	}

	for _, b := range stale {
		if b.Status != constants.BlockPlanned {
			continue
		}
		if err := r.store.SetBlockStatus(b.Key(), constants.BlockMissed); err != nil {
			return nil, 0, writes, fmt.Errorf("failed to mark block missed: %w", err)
		}
		writes++
	}

	entries := make([]models.Overflow, len(sessions))
	for i, s := range sessions {
		entries[i] = models.Overflow{Session: s, Reason: constants.OverflowMissed, RecordedAt: snap.Now}
	}
	if !sameOverflow(snap.TaskOverflow(task.ID), entries) {
		if err := r.store.SaveTaskOverflow(task.ID, entries); err != nil {
			return nil, 0, writes, fmt.Errorf("failed to record overflow: %w", err)
		}
		writes++
	}
	logger.Warn("missed task could not be rescheduled", "task", task.ID, "reason", constants.OverflowMissed)
	return nil, outcomeOverflowed, writes, nil
}

func staleBlocks(blocks []models.ScheduledBlock) []models.ScheduledBlock {
	var out []models.ScheduledBlock
	for _, b := range blocks {
		if b.Status != constants.BlockDone {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b models.ScheduledBlock) int {
		if a.Occurrence != b.Occurrence {
			return a.Occurrence - b.Occurrence
		}
		return a.SessionIndex - b.SessionIndex
	})
	return out
}

// sessions rebuilds one session per stale block with the block's key and
// length. Everything may start from now.
func (r *Rescheduler) sessions(task models.Task, stale []models.ScheduledBlock, settings models.Settings, now time.Time) []models.PlannerSession {
	task.Normalize()
	weights := r.engine.Weights()
	out := make([]models.PlannerSession, len(stale))
	for i, b := range stale {
		due := b.Due
		if due.IsZero() {
			due = *task.Due
		}
		out[i] = models.PlannerSession{
			TaskID:        task.ID,
			Occurrence:    b.Occurrence,
			Index:         b.SessionIndex,
			Count:         len(stale),
			Minutes:       b.Minutes(),
			Priority:      weights.Score(task, due, now),
			Urgency:       task.Urgency,
			Difficulty:    task.Difficulty,
			Importance:    task.Importance,
			Due:           due,
			EarliestStart: now,
		}
	}
	return out
}

// sameOverflow compares entries by session key, length and reason
func sameOverflow(a, b []models.Overflow) bool {
	type entry struct {
		key     models.SessionKey
		minutes int
		reason  constants.OverflowReason
	}
	set := func(list []models.Overflow) map[entry]bool {
		m := make(map[entry]bool, len(list))
		for _, o := range list {
			m[entry{o.Session.Key(), o.Session.Minutes, o.Reason}] = true
		}
		return m
	}
	sa, sb := set(a), set(b)
	if len(sa) != len(sb) {
		return false
	}
	for k := range sa {
		if !sb[k] {
			return false
		}
	}
	return true
}
