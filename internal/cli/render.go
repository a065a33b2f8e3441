package cli

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/planner"
	"github.com/julianstephens/studyplan/internal/rescheduler"
)

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Bold(true)

	dayStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("69")).
			Bold(true).
			MarginTop(1)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Strikethrough(true)

	missedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Italic(true)

	dangerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

// TitleLookup resolves a task id to its title
type TitleLookup func(taskID string) string

// TitlesFrom builds a lookup over tasks. Unknown ids render as the id.
func TitlesFrom(tasks []models.Task) TitleLookup {
	titles := make(map[string]string, len(tasks))
	for _, t := range tasks {
		titles[t.ID] = t.Title
	}
	return func(id string) string {
		if title, ok := titles[id]; ok {
			return title
		}
		return id
	}
}

// RenderBlocks groups blocks by day in loc
func RenderBlocks(blocks []models.ScheduledBlock, title TitleLookup, loc *time.Location) string {
	if len(blocks) == 0 {
		return mutedStyle.Render("No blocks scheduled.")
	}
	sorted := slices.Clone(blocks)
	slices.SortFunc(sorted, func(a, b models.ScheduledBlock) int { return a.Start.Compare(b.Start) })

	var b strings.Builder
	var day string
	for _, blk := range sorted {
		start, end := blk.Start.In(loc), blk.End.In(loc)
		if d := start.Format("Mon " + constants.DateFormat); d != day {
			day = d
			b.WriteString(dayStyle.Render(day))
			b.WriteString("\n")
		}
		line := fmt.Sprintf("  %s-%s  %s (%d/%d)",
			start.Format(constants.TimeFormat), end.Format(constants.TimeFormat),
			title(blk.TaskID), blk.SessionIndex+1, blk.Occurrence+1)
		switch blk.Status {
		case constants.BlockDone:
			line = doneStyle.Render(line)
		case constants.BlockMissed:
			line = missedStyle.Render(line + " missed")
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

func RenderOverflow(overflow []models.Overflow, title TitleLookup, loc *time.Location) string {
	if len(overflow) == 0 {
		return mutedStyle.Render("Nothing overflowed.")
	}
	var b strings.Builder
	b.WriteString(dangerStyle.Render(fmt.Sprintf("%d session(s) could not be placed:", len(overflow))))
	for _, o := range overflow {
		fmt.Fprintf(&b, "\n  %s session %d: %d min due %s (%s)",
			title(o.Session.TaskID), o.Session.Index+1, o.Session.Minutes,
			o.Session.Due.In(loc).Format(constants.DateTimeFormat), o.Reason)
	}
	return b.String()
}

// RenderProposal summarizes what applying p would change
func RenderProposal(p planner.Proposal, loc *time.Location) string {
	title := TitlesFrom(p.Snapshot.Tasks)
	prior := make(map[models.SessionKey]bool, len(p.Snapshot.Blocks))
	for _, blk := range p.Snapshot.Blocks {
		prior[blk.Key()] = true
	}
	var added int
	for _, blk := range p.Result.Placed {
		if !prior[blk.Key()] {
			added++
		}
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render("Proposed schedule"))
	b.WriteString("\n")
	b.WriteString(RenderBlocks(p.Result.Placed, title, loc))
	fmt.Fprintf(&b, "\n\n%d new, %d moved, %d removed", added, len(p.Moved), len(p.Update.Delete)-countIn(p.Update.Delete, p.Moved))
	if len(p.Result.Breaks) > 0 {
		fmt.Fprintf(&b, ", %d break(s)", len(p.Result.Breaks))
	}
	if len(p.Update.Overflow) > 0 {
		b.WriteString("\n\n")
		b.WriteString(RenderOverflow(p.Update.Overflow, title, loc))
	}
	return b.String()
}

func countIn(keys, set []models.SessionKey) int {
	n := 0
	for _, k := range keys {
		if slices.Contains(set, k) {
			n++
		}
	}
	return n
}

func RenderOutcome(o planner.Outcome) string {
	var parts []string
	if o.Backup != "" {
		parts = append(parts, mutedStyle.Render("backup: "+o.Backup))
	}
	if o.Exported > 0 || o.ExportFailed > 0 {
		parts = append(parts, fmt.Sprintf("exported %d event(s)", o.Exported))
	}
	if o.ExportFailed > 0 {
		parts = append(parts, dangerStyle.Render(fmt.Sprintf("%d export(s) failed", o.ExportFailed)))
	}
	if o.Conflicts.HasConflicts() {
		parts = append(parts, dangerStyle.Render(o.Conflicts.FormatReport()))
	}
	return strings.Join(parts, "\n")
}

func RenderTick(res rescheduler.TickResult) string {
	if len(res.Candidates) == 0 {
		return mutedStyle.Render("No missed tasks.")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%d missed task(s): %d rescheduled, %d overflowed, %d skipped",
		len(res.Candidates), len(res.Rescheduled), len(res.Overflowed), len(res.Skipped))
	if len(res.Failed) > 0 {
		b.WriteString("\n")
		b.WriteString(dangerStyle.Render(fmt.Sprintf("%d failed: %s", len(res.Failed), strings.Join(res.Failed, ", "))))
	}
	return b.String()
}
