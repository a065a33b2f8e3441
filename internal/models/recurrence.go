package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/julianstephens/studyplan/internal/constants"
)

// RecurrenceEnd terminates a recurrence rule. Until is only read for
// EndUntil and Count only for EndAfterOccurrences.
type RecurrenceEnd struct {
	Kind  constants.EndKind `json:"kind"`
	Until time.Time         `json:"until,omitzero"`
	Count int               `json:"count,omitempty"`
}

// SkipPolicy moves occurrences off weekends and holidays
type SkipPolicy struct {
	Weekends   bool                 `json:"weekends"`
	Holidays   bool                 `json:"holidays"`
	Adjustment constants.Adjustment `json:"adjustment"`
}

type RecurrenceRule struct {
	Frequency constants.Frequency `json:"frequency"`
	Interval  int                 `json:"interval"`
	End       RecurrenceEnd       `json:"end"`
	Skip      SkipPolicy          `json:"skip"`
}

// NewRule builds a normalized rule. Malformed values are clamped, never rejected.
func NewRule(freq constants.Frequency, interval int, end RecurrenceEnd, skip SkipPolicy) RecurrenceRule {
	r := RecurrenceRule{Frequency: freq, Interval: interval, End: end, Skip: skip}
	r.Normalize()
	return r
}

// Normalize clamps interval and occurrence count to at least 1 and fills
// defaults for an unset end kind, frequency and adjustment.
func (r *RecurrenceRule) Normalize() {
	if r.Interval < 1 {
		r.Interval = 1
	}
	if r.Frequency == "" {
		r.Frequency = constants.FrequencyWeekly
	}
	if r.End.Kind == "" {
		r.End.Kind = constants.EndNever
	}
	if r.End.Kind == constants.EndAfterOccurrences && r.End.Count < 1 {
		r.End.Count = 1
	}
	if r.Skip.Adjustment == "" {
		r.Skip.Adjustment = constants.AdjustForward
	}
}

// Describe renders the rule for humans, e.g. "every 2 weeks, 5 times".
func (r RecurrenceRule) Describe() string {
	unit := strings.TrimSuffix(string(r.Frequency), "ly")
	if r.Frequency == constants.FrequencyDaily {
		unit = "day"
	}
	var b strings.Builder
	if r.Interval == 1 {
		fmt.Fprintf(&b, "every %s", unit)
	} else {
		fmt.Fprintf(&b, "every %d %ss", r.Interval, unit)
	}
	switch r.End.Kind {
	case constants.EndUntil:
		fmt.Fprintf(&b, " until %s", r.End.Until.Format(constants.DateFormat))
	case constants.EndAfterOccurrences:
		fmt.Fprintf(&b, ", %d times", r.End.Count)
	}
	if r.Skip.Weekends {
		b.WriteString(", skip weekends")
	}
	if r.Skip.Holidays {
		b.WriteString(", skip holidays")
	}
	return b.String()
}

// ParseFrequency validates a frequency name
func ParseFrequency(s string) (constants.Frequency, error) {
	switch f := constants.Frequency(strings.ToLower(strings.TrimSpace(s))); f {
	case constants.FrequencyDaily, constants.FrequencyWeekly, constants.FrequencyMonthly, constants.FrequencyYearly:
		return f, nil
	default:
		return "", fmt.Errorf("invalid frequency %q (expected daily, weekly, monthly or yearly)", s)
	}
}
