package plans

import (
	"fmt"
	"time"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/models"
	"github.com/julianstephens/studyplan/internal/utils"
)

type ShowCmd struct {
	Days int  `short:"n" help:"Number of days to show, starting today." default:"7"`
	All  bool `short:"a" help:"Show every stored block, past ones included."`
}

func (c *ShowCmd) Validate() error {
	if c.Days < 1 {
		return fmt.Errorf("--days must be at least 1")
	}
	return nil
}

func (c *ShowCmd) Run(ctx *cli.Context) error {
	blocks, err := ctx.Store.GetAllBlocks()
	if err != nil {
		return fmt.Errorf("failed to get blocks: %w", err)
	}
	tasks, err := ctx.Store.GetAllTasksIncludingDeleted()
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}

	loc := ctx.Location()
	if !c.All {
		blocks = window(blocks, utils.StartOfDay(ctx.Now().In(loc)), c.Days)
	}
	fmt.Println(cli.RenderBlocks(blocks, cli.TitlesFrom(tasks), loc))
	return nil
}

// window keeps blocks that overlap the days starting at from
func window(blocks []models.ScheduledBlock, from time.Time, days int) []models.ScheduledBlock {
	to := from.AddDate(0, 0, days)
	var out []models.ScheduledBlock
	for _, b := range blocks {
		if b.Overlaps(from, to) {
			out = append(out, b)
		}
	}
	return out
}

type OverflowCmd struct{}

func (c *OverflowCmd) Run(ctx *cli.Context) error {
	overflow, err := ctx.Store.GetOverflow()
	if err != nil {
		return fmt.Errorf("failed to get overflow: %w", err)
	}
	tasks, err := ctx.Store.GetAllTasksIncludingDeleted()
	if err != nil {
		return fmt.Errorf("failed to get tasks: %w", err)
	}
	fmt.Println(cli.RenderOverflow(overflow, cli.TitlesFrom(tasks), ctx.Location()))
	return nil
}
