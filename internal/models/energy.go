package models

import (
	"fmt"
	"time"
)

// EnergyProfile maps hour of day to a productivity score in [0,1]
type EnergyProfile [24]float64

// DefaultEnergyProfile peaks mid-morning, dips after lunch and recovers
// slightly in the late afternoon.
func DefaultEnergyProfile() EnergyProfile {
	return EnergyProfile{
		0.10, 0.05, 0.05, 0.05, 0.05, 0.10, // 00-05
		0.30, 0.50, 0.70, 0.90, 1.00, 0.95, // 06-11
		0.75, 0.60, 0.65, 0.75, 0.70, 0.60, // 12-17
		0.50, 0.45, 0.40, 0.30, 0.20, 0.15, // 18-23
	}
}

// At returns the score for t's hour
func (p EnergyProfile) At(t time.Time) float64 {
	return p[t.Hour()]
}

// Validate checks every score lies in [0,1]
func (p EnergyProfile) Validate() error {
	for h, v := range p {
		if v < 0 || v > 1 {
			return fmt.Errorf("energy score for hour %02d must be within [0,1], got %.2f", h, v)
		}
	}
	return nil
}

// IsZero reports whether no score has been set
func (p EnergyProfile) IsZero() bool {
	return p == EnergyProfile{}
}
