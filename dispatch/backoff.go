/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

package dispatch

import "time"

// backoffController tracks the extra delay added before new requests.
// A slow response increases it by one step immediately,
// minStreak sequential fast responses decrease it by one step.
// There is no upper bound.
// It's owned by a single run and is not safe for concurrent use.
type backoffController struct {
	threshold time.Duration // 0 disables throttling
	step      time.Duration
	minStreak int

	backoff    time.Duration
	fastStreak int
}

func newBackoffController(opts *Options) *backoffController {
	return &backoffController{
		threshold: opts.TimeoutBeforeThrottle,
		step:      opts.ThrottlingRequestBackoff,
		minStreak: opts.MinSequentialSuccessesToMinimiseThrottling,
	}
}

func (bc *backoffController) current() time.Duration {
	return bc.backoff
}

// observe updates the state with the elapsed time of a delivered result and reports whether the backoff is changed.
func (bc *backoffController) observe(elapsed time.Duration) bool {
	prev := bc.backoff
	switch {
	case bc.threshold > 0 && elapsed > bc.threshold:
		bc.fastStreak = 0
		bc.backoff += bc.step
	case bc.backoff > 0:
		bc.fastStreak++
		if bc.fastStreak >= bc.minStreak {
			bc.fastStreak = 0
			bc.backoff -= bc.step
			if bc.backoff < 0 {
				bc.backoff = 0
			}
		}
	}
	return bc.backoff != prev
}
