/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffController(t *testing.T) {
	const (
		fast = 10 * time.Millisecond
		slow = 100 * time.Millisecond
	)

	tests := []struct {
		name        string
		threshold   time.Duration
		step        time.Duration
		minStreak   int
		elapsed     []time.Duration
		wantBackoff []time.Duration // after each observation
	}{
		{
			name:        "throttling disabled",
			threshold:   0,
			step:        time.Second,
			minStreak:   1,
			elapsed:     []time.Duration{slow, slow, fast},
			wantBackoff: []time.Duration{0, 0, 0},
		},
		{
			name:        "fast responses without backoff change nothing",
			threshold:   50 * time.Millisecond,
			step:        time.Second,
			minStreak:   1,
			elapsed:     []time.Duration{fast, fast},
			wantBackoff: []time.Duration{0, 0},
		},
		{
			name:        "each slow response adds a step, no ceiling",
			threshold:   50 * time.Millisecond,
			step:        200 * time.Millisecond,
			minStreak:   2,
			elapsed:     []time.Duration{slow, slow, slow, slow, slow},
			wantBackoff: []time.Duration{200 * time.Millisecond, 400 * time.Millisecond, 600 * time.Millisecond, 800 * time.Millisecond, time.Second},
		},
		{
			name:        "elapsed equal to threshold is not slow",
			threshold:   50 * time.Millisecond,
			step:        time.Second,
			minStreak:   1,
			elapsed:     []time.Duration{50 * time.Millisecond},
			wantBackoff: []time.Duration{0},
		},
		{
			name:      "decrease after streak of fast responses",
			threshold: 50 * time.Millisecond,
			step:      time.Second,
			minStreak: 3,
			elapsed:   []time.Duration{slow, slow, fast, fast, fast, fast, fast, fast, fast},
			wantBackoff: []time.Duration{
				time.Second, 2 * time.Second,
				2 * time.Second, 2 * time.Second, time.Second,
				time.Second, time.Second, 0,
				0,
			},
		},
		{
			name:        "slow response resets the streak",
			threshold:   50 * time.Millisecond,
			step:        time.Second,
			minStreak:   2,
			elapsed:     []time.Duration{slow, fast, slow, fast, fast},
			wantBackoff: []time.Duration{time.Second, time.Second, 2 * time.Second, 2 * time.Second, time.Second},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bc := newBackoffController(&Options{
				TimeoutBeforeThrottle:                      tt.threshold,
				ThrottlingRequestBackoff:                   tt.step,
				MinSequentialSuccessesToMinimiseThrottling: tt.minStreak,
			})
			for i, elapsed := range tt.elapsed {
				prev := bc.current()
				changed := bc.observe(elapsed)
				require.Equal(t, tt.wantBackoff[i], bc.current(), "observation #%d", i)
				require.Equal(t, prev != bc.current(), changed)
				require.GreaterOrEqual(t, bc.current(), time.Duration(0))
			}
		})
	}
}

func TestBackoffController_FloorAtZero(t *testing.T) {
	bc := newBackoffController(&Options{
		TimeoutBeforeThrottle:                      time.Millisecond,
		ThrottlingRequestBackoff:                   time.Second,
		MinSequentialSuccessesToMinimiseThrottling: 1,
	})
	bc.backoff = 300 * time.Millisecond
	require.True(t, bc.observe(0))
	require.Equal(t, time.Duration(0), bc.current())
	require.Equal(t, 0, bc.fastStreak)
}
