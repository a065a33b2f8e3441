package constants

import "math"

const (
	// Priority weight defaults. The four coefficients are tunable through the
	// config file; the defaults must sum to 1.0 so scores stay in [0,1].
	DefaultWeightUrgency    = 0.40
	DefaultWeightImportance = 0.25
	DefaultWeightDifficulty = 0.15
	DefaultWeightDueSoon    = 0.20

	// Urgency category values fed into the weighted score
	UrgencyValueLow      = 0.25
	UrgencyValueMedium   = 0.50
	UrgencyValueHigh     = 0.75
	UrgencyValueCritical = 1.00

	// DefaultBumpBudget is how many times one session may be displaced in a pass
	DefaultBumpBudget = 3
)

func init() {
	sum := DefaultWeightUrgency + DefaultWeightImportance + DefaultWeightDifficulty + DefaultWeightDueSoon
	if math.Abs(sum-1.0) > 1e-9 {
		panic("default priority weights must sum to 1.0")
	}
}
