// Package scheduler places study sessions into free time. Everything here is
// a pure function of its inputs; persistence and clocks live in the callers.
package scheduler

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/recurrence"
	"github.com/julianstephens/studyplan/internal/validation"
)

// Input is the snapshot one pass runs against
type Input struct {
	Now      time.Time
	Tasks    []models.Task
	Settings models.Settings
	Energy   models.EnergyProfile
	// Occupied holds locked calendar intervals and the persisted blocks of
	// every task as flexible intervals keyed by session.
	Occupied []models.OccupiedInterval
}

// Result of a pass
type Result struct {
	// Placed is the complete set of flexible blocks for schedulable tasks,
	// including prior blocks that kept their position.
	Placed []models.ScheduledBlock
	// Displaced lists prior blocks that were bumped or no longer correspond
	// to a session. Keys that reappear in Placed were moved.
	Displaced []models.SessionKey
	Overflow  []models.Overflow
	Breaks    []models.Break
	Strategy  string
}

type Engine struct {
	weights       Weights
	bumpBudget    int
	lookaheadDays int
	expander      *recurrence.Expander
	strategy      Strategy
}

type Option func(*Engine)

func WithWeights(w Weights) Option {
	return func(e *Engine) { e.weights = w.orDefault() }
}

// WithBumpBudget sets how often one session may be displaced in a pass
func WithBumpBudget(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.bumpBudget = n
		}
	}
}

// WithLookaheadDays caps how far past now a session may be placed
func WithLookaheadDays(days int) Option {
	return func(e *Engine) {
		if days > 0 {
			e.lookaheadDays = days
		}
	}
}

func WithExpander(x *recurrence.Expander) Option {
	return func(e *Engine) {
		if x != nil {
			e.expander = x
		}
	}
}

func WithStrategy(s Strategy) Option {
	return func(e *Engine) { e.strategy = s }
}

func NewEngine(opts ...Option) *Engine {
	e := &Engine{
		weights:       DefaultWeights(),
		bumpBudget:    constants.DefaultBumpBudget,
		lookaheadDays: constants.MaxLookaheadDays,
		expander:      recurrence.NewExpander(nil),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Weights returns the coefficients the engine scores with
func (e *Engine) Weights() Weights {
	return e.weights
}

// Schedule runs a full pass. It only fails on unusable settings or a
// cancelled context; sessions that cannot be placed come back as overflow.
func (e *Engine) Schedule(ctx context.Context, in Input) (Result, error) {
	window, err := WindowFromSettings(in.Settings)
	if err != nil {
		return Result{}, fmt.Errorf("invalid workday settings: %w", err)
	}
	now := in.Now.In(window.location())

	sessions := e.sessions(in.Tasks, in.Settings, now)

	if e.strategy != nil {
		if res, ok := e.tryStrategy(ctx, in, window, sessions); ok {
			return res, nil
		}
	}

	p := e.newPass(now, window, in.Settings)
	p.load(in.Tasks, sessions, in.Occupied)
	if err := p.run(ctx); err != nil {
		return Result{}, err
	}

	// placedBlocks is in (start, key) order, which fixes the order swaps are tried in
	placed := p.placedBlocks()
	balanceEnergy(placed, p.fresh, p.sessions, in.Energy)
	sortBlocks(placed)

	return Result{
		Placed:    placed,
		Displaced: p.displacedKeys(),
		Overflow:  p.overflow,
		Breaks:    insertBreaks(placed, in.Settings, window),
		Strategy:  constants.StrategyDeterministic,
	}, nil
}

// Place puts the given sessions into free time around occupied, treating
// every occupied interval as locked. Used to repair individual tasks.
func (e *Engine) Place(ctx context.Context, now time.Time, settings models.Settings, sessions []models.PlannerSession, occupied []models.OccupiedInterval) ([]models.ScheduledBlock, []models.Overflow, error) {
	window, err := WindowFromSettings(settings)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid workday settings: %w", err)
	}
	now = now.In(window.location())

	p := e.newPass(now, window, settings)
	for _, iv := range occupied {
		if iv.End.After(now) {
			iv.Kind = constants.IntervalLocked
			p.occupied = append(p.occupied, iv)
		}
	}
	for _, s := range sessions {
		p.sessions[s.Key()] = s
		p.queue.push(workItem{session: s})
	}
	if err := p.run(ctx); err != nil {
		return nil, nil, err
	}

	return p.placedBlocks(), p.overflow, nil
}

// Sessions decomposes every schedulable task for a pass at now
func (e *Engine) Sessions(tasks []models.Task, settings models.Settings, now time.Time) []models.PlannerSession {
	return e.sessions(tasks, settings, now)
}

// Schedulable reports whether the engine may create or move sessions for
// task. Locked tasks only qualify when they recur, and then only for
// occurrences that have no block yet.
func Schedulable(task models.Task) bool {
	if task.Completed || task.IsDeleted() || task.Due == nil || task.Edited {
		return false
	}
	return !task.Locked || task.IsRecurring()
}

func (e *Engine) sessions(tasks []models.Task, settings models.Settings, now time.Time) []models.PlannerSession {
	d := NewDecomposer(e.weights, settings)
	horizonEnd := now.AddDate(0, 0, max(settings.PlanningHorizonDays, 1))

	var out []models.PlannerSession
	for _, task := range tasks {
		if !Schedulable(task) {
			continue
		}
		task.Normalize()

		if !task.IsRecurring() {
			out = append(out, d.Decompose(task, now)...)
			continue
		}

		var prevDue time.Time
		k := 0
		for due := range e.expander.Expand(*task.Recurrence, *task.Due, horizonEnd) {
			occ := Occurrence{Index: k, Due: due, EarliestStart: prevDue}
			prevDue = due
			k++
			if due.Before(now) {
				continue
			}
			out = append(out, d.DecomposeOccurrence(task, occ, now)...)
		}
	}
	return out
}

func (e *Engine) tryStrategy(ctx context.Context, in Input, window Window, sessions []models.PlannerSession) (Result, bool) {
	name := e.strategy.Name()
	if !e.strategy.Available(ctx) {
		logger.Debug("strategy unavailable, using deterministic placement", "strategy", name)
		return Result{}, false
	}

	proposal, err := e.strategy.Propose(ctx, in, sessions)
	if err != nil {
		logger.Warn("strategy failed, using deterministic placement", "strategy", name, "error", err)
		return Result{}, false
	}
	if len(proposal) == 0 {
		logger.Debug("strategy returned no blocks, using deterministic placement", "strategy", name)
		return Result{}, false
	}

	byKey := make(map[models.SessionKey]models.PlannerSession, len(sessions))
	for _, s := range sessions {
		byKey[s.Key()] = s
	}
	seen := make(map[models.SessionKey]bool, len(proposal))
	blocks := make([]models.ScheduledBlock, 0, len(proposal))
	for _, b := range proposal {
		s, ok := byKey[b.Key()]
		if !ok || seen[b.Key()] || b.Minutes() != s.Minutes || b.Start.Before(in.Now) {
			logger.Warn("strategy proposed an unknown or malformed block", "strategy", name, "task", b.TaskID, "session", b.SessionIndex)
			return Result{}, false
		}
		seen[b.Key()] = true
		b.Due = s.Due
		b.Status = constants.BlockPlanned
		blocks = append(blocks, b)
	}

	var locked []models.OccupiedInterval
	for _, iv := range in.Occupied {
		if iv.TaskID == "" || !seen[iv.Key()] {
			iv.Kind = constants.IntervalLocked
			locked = append(locked, iv)
		}
	}
	check := validation.New(window.Bounds()).ValidateBlocks(blocks, locked, in.Tasks)
	if check.HasConflicts() {
		logger.Warn("strategy proposal failed validation", "strategy", name, "conflicts", len(check.Conflicts))
		return Result{}, false
	}

	sortBlocks(blocks)
	var displaced []models.SessionKey
	for _, iv := range in.Occupied {
		if iv.TaskID != "" && !iv.IsLocked() && iv.End.After(in.Now) && !seen[iv.Key()] {
			displaced = append(displaced, iv.Key())
		}
	}
	var overflow []models.Overflow
	for _, s := range sessions {
		if !seen[s.Key()] {
			overflow = append(overflow, models.Overflow{Session: s, Reason: constants.OverflowNoSlot, RecordedAt: in.Now})
		}
	}
	return Result{
		Placed:    blocks,
		Displaced: displaced,
		Overflow:  overflow,
		Breaks:    insertBreaks(blocks, in.Settings, window),
		Strategy:  name,
	}, true
}

func sortBlocks(blocks []models.ScheduledBlock) {
	slices.SortFunc(blocks, func(a, b models.ScheduledBlock) int {
		if c := a.Start.Compare(b.Start); c != 0 {
			return c
		}
		return compareKeys(a.Key(), b.Key())
	})
}

func compareKeys(a, b models.SessionKey) int {
	switch {
	case a.TaskID != b.TaskID:
		if a.TaskID < b.TaskID {
			return -1
		}
		return 1
	case a.Occurrence != b.Occurrence:
		return a.Occurrence - b.Occurrence
	default:
		return a.Index - b.Index
	}
}
