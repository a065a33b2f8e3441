package tasks

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

type TaskAddCmd struct {
	Title      string  `arg:"" help:"Task title."`
	Minutes    int     `short:"m" help:"Estimated effort in minutes." required:""`
	Due        string  `short:"d" help:"Due date (YYYY-MM-DD or 'YYYY-MM-DD HH:MM'). Undated tasks are never auto-scheduled."`
	Urgency    string  `short:"u" help:"Urgency (low|medium|high|critical)." default:"medium"`
	Importance float64 `short:"i" help:"Importance score in [0,1]." default:"0.5"`
	Difficulty float64 `help:"Difficulty score in [0,1]." default:"0.5"`
	MinBlock   int     `help:"Minimum session length in minutes (0 uses settings)."`
	MaxBlock   int     `help:"Maximum session length in minutes (0 uses settings)."`
	NotBefore  string  `help:"Do not schedule before this date."`
	Course     string  `short:"c" help:"Course the task belongs to."`
	Locked     bool    `help:"Never move this task's blocks."`

	RecurrenceFlags `embed:""`
}

func (c *TaskAddCmd) Validate() error {
	if c.Minutes <= 0 {
		return fmt.Errorf("minutes must be greater than zero")
	}
	if c.Importance < 0 || c.Importance > 1 || c.Difficulty < 0 || c.Difficulty > 1 {
		return fmt.Errorf("importance and difficulty must be within [0,1]")
	}
	if _, err := models.ParseUrgency(c.Urgency); err != nil {
		return err
	}
	if c.Repeat != "" && c.Due == "" {
		return fmt.Errorf("--repeat needs --due to seed the recurrence")
	}
	return c.RecurrenceFlags.Validate()
}

func (c *TaskAddCmd) Run(ctx *cli.Context) error {
	loc := ctx.Location()
	urgency, _ := models.ParseUrgency(c.Urgency)
	now := ctx.Now()

	task := models.Task{
		ID:           uuid.New().String(),
		Title:        c.Title,
		EstimatedMin: c.Minutes,
		MinBlockMin:  c.MinBlock,
		MaxBlockMin:  c.MaxBlock,
		Difficulty:   c.Difficulty,
		Importance:   c.Importance,
		Urgency:      urgency,
		Locked:       c.Locked,
		CourseID:     c.Course,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if c.Due != "" {
		due, err := utils.ParseDue(c.Due, loc)
		if err != nil {
			return err
		}
		task.Due = &due
	}
	if c.NotBefore != "" {
		nb, err := time.ParseInLocation(constants.DateFormat, c.NotBefore, loc)
		if err != nil {
			return fmt.Errorf("invalid --not-before %q: expected %s", c.NotBefore, constants.DateFormat)
		}
		task.NotBefore = &nb
	}
	rule, err := c.Rule(loc)
	if err != nil {
		return err
	}
	task.Recurrence = rule

	task.Normalize()
	if err := task.Validate(); err != nil {
		return err
	}
	if err := ctx.Store.AddTask(task); err != nil {
		return fmt.Errorf("failed to add task: %w", err)
	}

	fmt.Printf("Added task: %s (ID: %s)\n", task.Title, task.ID)
	if task.Due == nil {
		fmt.Println("  No due date: the task will not be scheduled automatically.")
	}
	return nil
}
