package plans

import (
	"fmt"

	"github.com/julianstephens/studyplan/internal/cli"
)

// ValidateCmd checks tasks and stored blocks against the scheduling invariants
type ValidateCmd struct{}

func (c *ValidateCmd) Run(ctx *cli.Context) error {
	opCtx, cancel := ctx.OperationContext()
	defer cancel()
	result, err := ctx.Planner.Validate(opCtx)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if !result.HasConflicts() {
		fmt.Println("✓ No conflicts found.")
		return nil
	}
	fmt.Println(result.FormatReport())
	return fmt.Errorf("found %d conflict(s)", len(result.Conflicts))
}
