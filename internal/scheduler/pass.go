package scheduler

import (
	"context"
	"slices"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
)

// pass is the mutable state of one placement run. It never outlives the
// Schedule or Place call that created it.
type pass struct {
	now        time.Time
	window     Window
	horizonCap time.Time
	pad        time.Duration
	bumpBudget int

	occupied  []models.OccupiedInterval
	sessions  map[models.SessionKey]models.PlannerSession
	placed    map[models.SessionKey]models.ScheduledBlock
	fresh     map[models.SessionKey]bool
	prior     map[models.SessionKey]bool
	displaced map[models.SessionKey]bool
	budget    map[models.SessionKey]int
	queue     *workQueue
	overflow  []models.Overflow
}

func (e *Engine) newPass(now time.Time, w Window, s models.Settings) *pass {
	var pad time.Duration
	if s.BreaksEnabled && s.ShortBreakMin > 0 {
		pad = time.Duration(s.ShortBreakMin) * time.Minute
	}
	return &pass{
		now:        now,
		window:     w,
		horizonCap: now.AddDate(0, 0, e.lookaheadDays),
		pad:        pad,
		bumpBudget: e.bumpBudget,
		sessions:   make(map[models.SessionKey]models.PlannerSession),
		placed:     make(map[models.SessionKey]models.ScheduledBlock),
		fresh:      make(map[models.SessionKey]bool),
		prior:      make(map[models.SessionKey]bool),
		displaced:  make(map[models.SessionKey]bool),
		budget:     make(map[models.SessionKey]int),
		queue:      newWorkQueue(nil),
	}
}

// load classifies the prior occupied intervals and queues every session that
// has no block yet.
//
// Intervals without a task are calendar commitments and always block.
// Intervals that ended before now are history: their sessions count as done
// for this pass and they take no further part. A future flexible interval of
// a schedulable, unlocked task keeps its session in place but stays
// bumpable. Intervals of completed or deleted tasks are freed. Everything
// else (locked, edited or undated tasks, done blocks) blocks like a locked
// commitment.
func (p *pass) load(tasks []models.Task, sessions []models.PlannerSession, occupied []models.OccupiedInterval) {
	taskByID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		taskByID[t.ID] = t
	}
	for _, s := range sessions {
		p.sessions[s.Key()] = s
	}

	satisfied := make(map[models.SessionKey]bool)
	for _, iv := range occupied {
		if iv.TaskID == "" {
			iv.Kind = constants.IntervalLocked
			p.occupied = append(p.occupied, iv)
			continue
		}

		key := iv.Key()
		if !iv.End.After(p.now) {
			satisfied[key] = true
			continue
		}

		task, known := taskByID[iv.TaskID]
		if !known || task.IsDeleted() || (task.Completed && !task.Locked) {
			if !iv.IsLocked() {
				p.displaced[key] = true
			}
			continue
		}

		session, wanted := p.sessions[key]
		switch {
		case wanted && !iv.IsLocked() && !task.Locked:
			satisfied[key] = true
			p.prior[key] = true
			p.reserve(session, iv.Start, iv.End)
		case wanted:
			satisfied[key] = true
			iv.Kind = constants.IntervalLocked
			p.occupied = append(p.occupied, iv)
		case Schedulable(task) && !task.Locked && !iv.IsLocked():
			// the task no longer produces this session, e.g. its estimate shrank
			p.displaced[key] = true
		default:
			iv.Kind = constants.IntervalLocked
			p.occupied = append(p.occupied, iv)
		}
	}

	for key := range p.prior {
		if b := p.placed[key]; p.stale(b, p.sessions[key]) {
			logger.Debug("prior block no longer fits", "task", key.TaskID, "occurrence", key.Occurrence, "session", key.Index)
			p.release(key)
			p.displaced[key] = true
			delete(satisfied, key)
		}
	}

	for _, s := range sessions {
		if !satisfied[s.Key()] {
			p.queue.push(workItem{session: s})
		}
	}
}

// stale reports whether a kept prior block became invalid: it overlaps a
// locked interval, left the work window, ends after its due time or has a
// different length than its session.
func (p *pass) stale(b models.ScheduledBlock, s models.PlannerSession) bool {
	if b.Minutes() != s.Minutes || b.End.After(s.Due) {
		return true
	}
	if !p.window.Bounds().Contains(b.Start, b.End) {
		return true
	}
	for _, iv := range p.occupied {
		if iv.IsLocked() && iv.Overlaps(b.Start, b.End) {
			return true
		}
	}
	return false
}

// release drops the reservation for key without touching its bump budget
func (p *pass) release(key models.SessionKey) {
	p.occupied = slices.DeleteFunc(p.occupied, func(iv models.OccupiedInterval) bool {
		return !iv.IsLocked() && iv.TaskID != "" && iv.Key() == key
	})
	delete(p.placed, key)
	delete(p.fresh, key)
	delete(p.prior, key)
}

// run drains the work list
func (p *pass) run(ctx context.Context) error {
	for p.queue.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		p.placeNext(p.queue.pop())
	}
	return nil
}

func (p *pass) placeNext(item workItem) {
	s := item.session
	key := s.Key()

	earliest := p.now
	if s.EarliestStart.After(earliest) {
		earliest = s.EarliestStart
	}
	if s.Index > 0 {
		prev := models.SessionKey{TaskID: s.TaskID, Occurrence: s.Occurrence, Index: s.Index - 1}
		if b, ok := p.placed[prev]; ok && b.End.After(earliest) {
			earliest = b.End
		}
	}
	horizon := s.Due
	if horizon.After(p.horizonCap) {
		horizon = p.horizonCap
	}

	slot, ok := FindSlot(SlotRequest{
		Duration:      s.Duration(),
		EarliestStart: earliest,
		Window:        p.window,
		Horizon:       horizon,
		Priority:      s.Priority,
	}, p.occupied)
	if !ok {
		logger.Debug("no slot before due", "task", s.TaskID, "occurrence", s.Occurrence, "session", s.Index)
		p.overflowSession(s, constants.OverflowNoSlot)
		return
	}

	for _, iv := range slot.Bumped {
		p.bump(iv.Key())
	}
	p.reserve(s, slot.Start, slot.End)
	p.fresh[key] = true
}

// reserve records s at [start, end) and marks the time as occupied by a
// flexible interval of s's priority, with break padding after it.
func (p *pass) reserve(s models.PlannerSession, start, end time.Time) {
	key := s.Key()
	p.placed[key] = models.ScheduledBlock{
		TaskID:       s.TaskID,
		Occurrence:   s.Occurrence,
		SessionIndex: s.Index,
		Start:        start,
		End:          end,
		Due:          s.Due,
		Status:       constants.BlockPlanned,
	}
	p.occupied = append(p.occupied, models.OccupiedInterval{
		Start:        start,
		End:          end,
		Padding:      p.pad,
		Kind:         constants.IntervalFlexible,
		TaskID:       s.TaskID,
		Occurrence:   s.Occurrence,
		SessionIndex: s.Index,
		Priority:     s.Priority,
		Source:       constants.SourceBlock,
	})
}

// bump releases the reservation for key and re-queues its session with one
// less unit of budget, or overflows it when the budget is spent.
func (p *pass) bump(key models.SessionKey) {
	if p.prior[key] {
		p.displaced[key] = true
	}
	p.release(key)

	s, ok := p.sessions[key]
	if !ok {
		return
	}
	budget, ok := p.budget[key]
	if !ok {
		budget = p.bumpBudget
	}
	if budget <= 0 {
		logger.Debug("bump budget exceeded", "task", s.TaskID, "occurrence", s.Occurrence, "session", s.Index)
		p.overflowSession(s, constants.OverflowBumpBudgetExceeded)
		return
	}
	p.budget[key] = budget - 1
	p.queue.push(workItem{session: s})
}

func (p *pass) overflowSession(s models.PlannerSession, reason constants.OverflowReason) {
	p.overflow = append(p.overflow, models.Overflow{Session: s, Reason: reason, RecordedAt: p.now})
}

// placedBlocks returns the reservations ordered by start, then key
func (p *pass) placedBlocks() []models.ScheduledBlock {
	out := make([]models.ScheduledBlock, 0, len(p.placed))
	for _, b := range p.placed {
		out = append(out, b)
	}
	sortBlocks(out)
	return out
}

func (p *pass) displacedKeys() []models.SessionKey {
	out := make([]models.SessionKey, 0, len(p.displaced))
	for k := range p.displaced {
		out = append(out, k)
	}
	slices.SortFunc(out, compareKeys)
	return out
}
