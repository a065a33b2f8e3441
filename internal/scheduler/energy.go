package scheduler

import (
	"time"

	"github.com/julianstephens/studyplan/internal/models"
)

// balanceEnergy swaps equal-length fresh blocks within an urgency band so
// harder sessions sit in higher-energy hours. A swap is kept only when both
// sessions stay inside their earliest-start and due bounds and each task's
// sessions remain in index order. Only start and end times change.
func balanceEnergy(blocks []models.ScheduledBlock, fresh map[models.SessionKey]bool, sessions map[models.SessionKey]models.PlannerSession, profile models.EnergyProfile) {
	if profile.IsZero() {
		profile = models.DefaultEnergyProfile()
	}

	var idx []int
	for i, b := range blocks {
		if fresh[b.Key()] {
			idx = append(idx, i)
		}
	}

	maxRounds := len(idx)*len(idx) + 1
	for range maxRounds {
		swapped := false
		for x := 0; x < len(idx); x++ {
			for y := x + 1; y < len(idx); y++ {
				a, b := &blocks[idx[x]], &blocks[idx[y]]
				if trySwap(a, b, blocks, sessions, profile) {
					swapped = true
				}
			}
		}
		if !swapped {
			return
		}
	}
}

func trySwap(a, b *models.ScheduledBlock, all []models.ScheduledBlock, sessions map[models.SessionKey]models.PlannerSession, profile models.EnergyProfile) bool {
	if a.TaskID == b.TaskID || a.Minutes() != b.Minutes() {
		return false
	}
	sa, okA := sessions[a.Key()]
	sb, okB := sessions[b.Key()]
	if !okA || !okB || sa.Urgency != sb.Urgency {
		return false
	}

	gain := (sa.Difficulty - sb.Difficulty) * (profile.At(b.Start) - profile.At(a.Start))
	if gain <= 1e-9 {
		return false
	}
	if !fits(sa, b.Start, b.End) || !fits(sb, a.Start, a.End) {
		return false
	}
	if !keepsOrder(all, *a, b.Start) || !keepsOrder(all, *b, a.Start) {
		return false
	}

	a.Start, b.Start = b.Start, a.Start
	a.End, b.End = b.End, a.End
	return true
}

func fits(s models.PlannerSession, start, end time.Time) bool {
	return !start.Before(s.EarliestStart) && !end.After(s.Due)
}

// keepsOrder reports whether moving blk to newStart keeps its task's
// sessions ordered by index.
func keepsOrder(all []models.ScheduledBlock, blk models.ScheduledBlock, newStart time.Time) bool {
	for _, c := range all {
		if c.TaskID != blk.TaskID || c.Occurrence != blk.Occurrence || c.SessionIndex == blk.SessionIndex {
			continue
		}
		if c.SessionIndex < blk.SessionIndex && !c.Start.Before(newStart) {
			return false
		}
		if c.SessionIndex > blk.SessionIndex && !newStart.Before(c.Start) {
			return false
		}
	}
	return true
}
