package scheduler

import (
	"context"

	"github.com/julianstephens/studyplan/internal/models"
)

// Strategy is an optional enhanced placement policy, such as a model-backed
// planner. Its proposal is only used when it is non-empty, covers known
// sessions with their exact lengths and passes block validation.
type Strategy interface {
	Name() string
	Available(ctx context.Context) bool
	Propose(ctx context.Context, in Input, sessions []models.PlannerSession) ([]models.ScheduledBlock, error)
}
