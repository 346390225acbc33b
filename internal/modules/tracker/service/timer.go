package service

import (
	"time"

	"notegenius/internal/modules/tracker/domain"
	"notegenius/internal/platform/clock"
)

// ticker holds at most one scheduled tick. Stopping bumps the generation so
// a tick that already fired but is still queued is discarded.
type ticker struct {
	handle clock.Timer
	gen    uint64
}

func (tk *ticker) stop() {
	if tk.handle != nil {
		tk.handle.Stop()
		tk.handle = nil
	}
	tk.gen++
}

func (t *Tracker) startTimer(now time.Time) {
	t.timer.stop()
	t.recompute(now)
	t.scheduleTick(now)
}

// scheduleTick aligns the next tick to the next whole second since the
// start time, so elapsed seconds never drift from wall clock.
func (t *Tracker) scheduleTick(now time.Time) {
	delay := time.Second
	if start := t.state.StartTime; start != nil {
		if since := now.Sub(*start); since >= 0 {
			delay = time.Second - since%time.Second
		}
	}
	gen := t.timer.gen
	t.timer.handle = t.clock.AfterFunc(delay, func() {
		_ = t.post(tickEvent{gen: gen})
	})
}

func (t *Tracker) onTick(gen uint64) {
	if gen != t.timer.gen || t.phase != domain.PhaseRunning {
		return
	}
	t.timer.handle = nil
	now := t.clock.Now()
	t.recompute(now)
	t.persist()
	if len(t.followUps) > 0 {
		return
	}
	t.scheduleTick(now)
}
