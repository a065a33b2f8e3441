package tasks

import (
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/logger"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

// TaskEditCmd changes a task by hand. Any edit marks the task edited, which
// keeps the scheduler off it until `task release`.
type TaskEditCmd struct {
	ID          string   `arg:"" help:"Task ID."`
	Title       *string  `help:"New title."`
	Minutes     *int     `short:"m" help:"New estimated effort in minutes."`
	Due         *string  `short:"d" help:"New due date. Pass an empty string to clear it."`
	Urgency     *string  `short:"u" help:"New urgency (low|medium|high|critical)."`
	Importance  *float64 `short:"i" help:"New importance score in [0,1]."`
	Difficulty  *float64 `help:"New difficulty score in [0,1]."`
	MinBlock    *int     `help:"New minimum session length in minutes."`
	MaxBlock    *int     `help:"New maximum session length in minutes."`
	Course      *string  `short:"c" help:"New course."`
	Locked      *bool    `help:"Lock or unlock the task's blocks."`
	ClearRepeat bool     `help:"Remove the recurrence rule."`

	RecurrenceFlags `embed:""`
}

func (c *TaskEditCmd) Validate() error {
	if c.ClearRepeat && c.Repeat != "" {
		return fmt.Errorf("--clear-repeat and --repeat are mutually exclusive")
	}
	return c.RecurrenceFlags.Validate()
}

func (c *TaskEditCmd) Run(ctx *cli.Context) error {
	task, err := ctx.Store.GetTask(c.ID)
	if err != nil {
		return fmt.Errorf("failed to find task: %w", err)
	}
	loc := ctx.Location()
	lockOnly := c.Locked != nil

	if c.Title != nil {
		task.Title = *c.Title
		lockOnly = false
	}
	if c.Minutes != nil {
		task.EstimatedMin = *c.Minutes
		lockOnly = false
	}
	if c.Due != nil {
		lockOnly = false
		if *c.Due == "" {
			task.Due = nil
		} else {
			due, err := utils.ParseDue(*c.Due, loc)
			if err != nil {
				return err
			}
			task.Due = &due
		}
	}
	if c.Urgency != nil {
		u, err := models.ParseUrgency(*c.Urgency)
		if err != nil {
			return err
		}
		task.Urgency = u
		lockOnly = false
	}
	if c.Importance != nil {
		task.Importance = *c.Importance
		lockOnly = false
	}
	if c.Difficulty != nil {
		task.Difficulty = *c.Difficulty
		lockOnly = false
	}
	if c.MinBlock != nil {
		task.MinBlockMin = *c.MinBlock
		lockOnly = false
	}
	if c.MaxBlock != nil {
		task.MaxBlockMin = *c.MaxBlock
		lockOnly = false
	}
	if c.Course != nil {
		task.CourseID = *c.Course
		lockOnly = false
	}
	if c.ClearRepeat {
		task.Recurrence = nil
		lockOnly = false
	}
	if c.Repeat != "" {
		rule, err := c.Rule(loc)
		if err != nil {
			return err
		}
		task.Recurrence = rule
		lockOnly = false
	}
	if c.Locked != nil {
		task.Locked = *c.Locked
	}

	// locking is not a content edit
	if !lockOnly {
		task.Edited = true
	}
	task.UpdatedAt = ctx.Now()
	task.Normalize()
	if err := task.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.UpdateTask(task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	fmt.Printf("Updated task: %s\n", task.Title)
	if task.Edited {
		fmt.Println("  Marked as edited: run 'studyplan task release' to let the scheduler move it again.")
	}
	return nil
}

type TaskReleaseCmd struct {
	ID string `arg:"" help:"Task ID."`
}

func (c *TaskReleaseCmd) Run(ctx *cli.Context) error {
	task, err := ctx.Store.GetTask(c.ID)
	if err != nil {
		return fmt.Errorf("failed to find task: %w", err)
	}
	if !task.Edited {
		fmt.Printf("Task %s is not marked as edited.\n", task.Title)
		return nil
	}
	task.Edited = false
	task.UpdatedAt = ctx.Now()
	if err := ctx.Store.UpdateTask(task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}
	fmt.Printf("Released task: %s\n", task.Title)
	return nil
}

// TaskCompleteCmd toggles completion. Completed tasks are never scheduled or
// repaired again.
type TaskCompleteCmd struct {
	ID   string `arg:"" help:"Task ID."`
	Undo bool   `help:"Mark the task as not completed."`
}

func (c *TaskCompleteCmd) Run(ctx *cli.Context) error {
	task, err := ctx.Store.GetTask(c.ID)
	if err != nil {
		return fmt.Errorf("failed to find task: %w", err)
	}
	task.Completed = !c.Undo
	task.UpdatedAt = ctx.Now()
	if err := ctx.Store.UpdateTask(task); err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	if task.Completed {
		markPastBlocksDone(ctx, task.ID, ctx.Now())
		fmt.Printf("Completed task: %s\n", task.Title)
	} else {
		fmt.Printf("Reopened task: %s\n", task.Title)
	}
	return nil
}

// markPastBlocksDone records the work already behind the user as done so a
// reopened task does not plan it again
func markPastBlocksDone(ctx *cli.Context, taskID string, now time.Time) {
	blocks, err := ctx.Store.GetTaskBlocks(taskID)
	if err != nil {
		logger.Warn("failed to load blocks", "task", taskID, "error", err)
		return
	}
	for _, b := range blocks {
		if b.Status == constants.BlockDone || b.Start.After(now) {
			continue
		}
		if err := ctx.Store.SetBlockStatus(b.Key(), constants.BlockDone); err != nil {
			logger.Warn("failed to mark block done", "task", taskID, "session", b.SessionIndex, "error", err)
		}
	}
}
