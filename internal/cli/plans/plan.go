package plans

import (
	"errors"
	"fmt"

	"github.com/julianstephens/studyplan/internal/cli"
	"github.com/julianstephens/studyplan/internal/planner"
)

// PlanCmd runs a full planning pass: propose, confirm, apply
type PlanCmd struct {
	Yes    bool `short:"y" help:"Apply without asking for confirmation."`
	DryRun bool `help:"Show the proposed schedule without applying it."`
}

func (c *PlanCmd) Validate() error {
	if c.Yes && c.DryRun {
		return errors.New("--yes and --dry-run are mutually exclusive")
	}
	return nil
}

func (c *PlanCmd) Run(ctx *cli.Context) error {
	opCtx, cancel := ctx.OperationContext()
	proposal, err := ctx.Planner.Propose(opCtx)
	cancel()
	if err != nil {
		return fmt.Errorf("failed to plan: %w", err)
	}

	loc := proposal.Snapshot.Settings.Location()
	fmt.Println(cli.RenderProposal(proposal, loc))
	if c.DryRun {
		return nil
	}

	if !c.Yes {
		ok, err := cli.Confirm("Apply this schedule?", "Done blocks are never changed.")
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Schedule discarded.")
			return nil
		}
	}

	opCtx, cancel = ctx.OperationContext()
	defer cancel()
	outcome, err := ctx.Planner.Apply(opCtx, proposal)
	if err != nil {
		if errors.Is(err, planner.ErrPassInProgress) {
			return fmt.Errorf("%w, try again in a moment", err)
		}
		if errors.Is(err, planner.ErrStaleProposal) {
			return fmt.Errorf("%w: the stored schedule changed while this one was computed, run 'studyplan plan' again", err)
		}
		return fmt.Errorf("failed to apply schedule: %w", err)
	}

	fmt.Printf("✓ Schedule applied: %d block(s)\n", len(proposal.Update.Upsert))
	if summary := cli.RenderOutcome(outcome); summary != "" {
		fmt.Println(summary)
	}
	return nil
}
