package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/julianstephens/studyplan/internal/constants"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		name          string
		total, lo, hi int
		want          []int
	}{
		{name: "fits in one block", total: 60, lo: 25, hi: 90, want: []int{60}},
		{name: "exactly max", total: 90, lo: 25, hi: 90, want: []int{90}},
		{name: "remainder goes first", total: 200, lo: 25, hi: 90, want: []int{67, 67, 66}},
		{name: "even split", total: 180, lo: 25, hi: 90, want: []int{90, 90}},
		{name: "tight bounds", total: 100, lo: 30, hi: 45, want: []int{34, 33, 33}},
		{name: "infeasible bounds keep the minimum", total: 100, lo: 60, hi: 70, want: []int{100}},
		{name: "min above max is clamped", total: 100, lo: 80, hi: 50, want: []int{50, 50}},
		{name: "no estimate", total: 0, lo: 25, hi: 90, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Split(tt.total, tt.lo, tt.hi))
		})
	}
}

func TestSplitSumAndBounds(t *testing.T) {
	for _, lo := range []int{15, 25, 30} {
		for _, hi := range []int{45, 60, 90} {
			for total := 1; total <= 600; total++ {
				got := Split(total, lo, hi)

				sum := 0
				for i, m := range got {
					sum += m
					if i > 0 {
						assert.LessOrEqual(t, m, got[i-1], "remainder must go to the first sessions")
					}
				}
				require.Equal(t, total, sum, "total=%d lo=%d hi=%d", total, lo, hi)

				n := (total + hi - 1) / hi
				feasible := total > hi && total/n >= lo
				if !feasible {
					continue
				}
				for _, m := range got {
					assert.GreaterOrEqual(t, m, lo, "total=%d lo=%d hi=%d", total, lo, hi)
					assert.LessOrEqual(t, m, hi, "total=%d lo=%d hi=%d", total, lo, hi)
				}
				assert.Len(t, got, n, "minimum number of sessions")
			}
		}
	}
}

func TestDecompose(t *testing.T) {
	s := testSettings()
	d := NewDecomposer(DefaultWeights(), s)
	now := on(0, 8, 0)
	notBefore := on(1, 12, 0)

	tk := task("essay", 200, on(3, 17, 0), constants.UrgencyHigh)
	tk.NotBefore = &notBefore
	tk.Locked = true

	sessions := d.Decompose(tk, now)
	require.Len(t, sessions, 3)
	for i, sess := range sessions {
		assert.Equal(t, "essay", sess.TaskID)
		assert.Equal(t, i, sess.Index)
		assert.Equal(t, 3, sess.Count)
		assert.Equal(t, on(3, 17, 0), sess.Due)
		assert.Equal(t, notBefore, sess.EarliestStart)
		assert.Equal(t, constants.UrgencyHigh, sess.Urgency)
		assert.True(t, sess.Locked)
		assert.Equal(t, sessions[0].Priority, sess.Priority)
	}
	assert.Equal(t, 67, sessions[0].Minutes)

	t.Run("task block sizes override defaults", func(t *testing.T) {
		tk := task("lab", 120, on(2, 17, 0), constants.UrgencyLow)
		tk.MaxBlockMin = 40
		tk.MinBlockMin = 30
		assert.Len(t, d.Decompose(tk, now), 3)
	})

	t.Run("undated tasks produce nothing", func(t *testing.T) {
		tk := task("someday", 60, time.Time{}, constants.UrgencyLow)
		tk.Due = nil
		assert.Empty(t, d.Decompose(tk, now))
	})
}
