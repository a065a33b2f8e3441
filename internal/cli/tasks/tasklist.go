package tasks

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

type TaskListCmd struct {
	All     bool   `short:"a" help:"Include completed and deleted tasks."`
	Course  string `short:"c" help:"Only show tasks of this course."`
	ShowIDs bool   `help:"Show task IDs." name:"show-ids"`
}

func (c *TaskListCmd) Run(ctx *cli.Context) error {
	var (
		tasks []models.Task
		err   error
	)
	if c.All {
		tasks, err = ctx.Store.GetAllTasksIncludingDeleted()
	} else {
		tasks, err = ctx.Store.GetAllTasks()
	}
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}

	loc := ctx.Location()
	shown := 0
	for _, task := range tasks {
		if c.Course != "" && task.CourseID != c.Course {
			continue
		}
		if !c.All && task.Completed {
			continue
		}
		if shown == 0 {
			fmt.Println("Tasks:")
		}
		shown++
		fmt.Println(formatTask(task, c.ShowIDs, loc))
	}
	if shown == 0 {
		fmt.Println("No tasks found")
	}
	return nil
}

func formatTask(task models.Task, showID bool, loc *time.Location) string {
	var flags []string
	switch {
	case task.IsDeleted():
		flags = append(flags, "deleted")
	case task.Completed:
		flags = append(flags, "done")
	}
	if task.Locked {
		flags = append(flags, "locked")
	}
	if task.Edited {
		flags = append(flags, "edited")
	}

	var b strings.Builder
	b.WriteString("  ")
	if len(flags) > 0 {
		fmt.Fprintf(&b, "[%s] ", strings.Join(flags, ","))
	}
	b.WriteString(task.Title)
	if showID {
		fmt.Fprintf(&b, " (ID: %s)", task.ID)
	}
	due := "no due date"
	if task.Due != nil {
		due = "due " + task.Due.In(loc).Format(constants.DateTimeFormat)
	}
	fmt.Fprintf(&b, " - %dm, %s, %s urgency", task.EstimatedMin, due, task.Urgency)
	if task.CourseID != "" {
		fmt.Fprintf(&b, ", course %s", task.CourseID)
	}
	if task.Recurrence != nil {
		fmt.Fprintf(&b, "\n      Repeats %s", task.Recurrence.Describe())
	}
	return b.String()
}
