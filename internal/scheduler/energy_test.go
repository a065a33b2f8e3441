package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/julianstephens/studyplan/internal/constants"
	"github.com/julianstephens/studyplan/internal/models"
)

func TestBalanceEnergy(t *testing.T) {
	session := func(id string, difficulty float64, urgency constants.Urgency, due time.Time) models.PlannerSession {
		return models.PlannerSession{TaskID: id, Minutes: 60, Difficulty: difficulty, Urgency: urgency, Due: due}
	}

	tests := []struct {
		name     string
		easy     models.PlannerSession
		hard     models.PlannerSession
		wantSwap bool
	}{
		{
			name:     "hard session moves into the morning peak",
			easy:     session("easy", 0.1, constants.UrgencyMedium, on(0, 17, 0)),
			hard:     session("hard", 0.9, constants.UrgencyMedium, on(0, 17, 0)),
			wantSwap: true,
		},
		{
			name: "swap would break the easy session's due date",
			easy: session("easy", 0.1, constants.UrgencyMedium, on(0, 12, 0)),
			hard: session("hard", 0.9, constants.UrgencyMedium, on(0, 17, 0)),
		},
		{
			name: "different urgency bands never swap",
			easy: session("easy", 0.1, constants.UrgencyHigh, on(0, 17, 0)),
			hard: session("hard", 0.9, constants.UrgencyMedium, on(0, 17, 0)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks := []models.ScheduledBlock{
				blockAt("easy", on(0, 10, 0), on(0, 11, 0)),
				blockAt("hard", on(0, 15, 0), on(0, 16, 0)),
			}
			sessions := map[models.SessionKey]models.PlannerSession{
				tt.easy.Key(): tt.easy,
				tt.hard.Key(): tt.hard,
			}
			fresh := map[models.SessionKey]bool{tt.easy.Key(): true, tt.hard.Key(): true}

			balanceEnergy(blocks, fresh, sessions, models.EnergyProfile{})

			if tt.wantSwap {
				assert.Equal(t, on(0, 15, 0), blocks[0].Start)
				assert.Equal(t, on(0, 10, 0), blocks[1].Start)
				return
			}
			assert.Equal(t, on(0, 10, 0), blocks[0].Start)
			assert.Equal(t, on(0, 15, 0), blocks[1].Start)
		})
	}
}

func TestBalanceEnergyLeavesPriorBlocksAlone(t *testing.T) {
	easy := models.PlannerSession{TaskID: "easy", Minutes: 60, Difficulty: 0.1, Due: on(0, 17, 0)}
	hard := models.PlannerSession{TaskID: "hard", Minutes: 60, Difficulty: 0.9, Due: on(0, 17, 0)}
	blocks := []models.ScheduledBlock{
		blockAt("easy", on(0, 10, 0), on(0, 11, 0)),
		blockAt("hard", on(0, 15, 0), on(0, 16, 0)),
	}
	sessions := map[models.SessionKey]models.PlannerSession{easy.Key(): easy, hard.Key(): hard}

	balanceEnergy(blocks, map[models.SessionKey]bool{hard.Key(): true}, sessions, models.DefaultEnergyProfile())
	assert.Equal(t, on(0, 10, 0), blocks[0].Start)
}

func TestKeepsOrder(t *testing.T) {
	first := models.ScheduledBlock{TaskID: "t", SessionIndex: 0, Start: on(0, 9, 0), End: on(0, 10, 0)}
	second := models.ScheduledBlock{TaskID: "t", SessionIndex: 1, Start: on(0, 11, 0), End: on(0, 12, 0)}
	all := []models.ScheduledBlock{first, second}

	assert.True(t, keepsOrder(all, second, on(0, 10, 0)))
	assert.False(t, keepsOrder(all, second, on(0, 8, 0)))
	assert.False(t, keepsOrder(all, first, on(0, 13, 0)))
}
