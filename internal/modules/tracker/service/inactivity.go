package service

import (
	"time"

	"notegenius/internal/modules/tracker/domain"
	"notegenius/internal/platform/clock"
)

type idleStage int

const (
	stageWarn idleStage = iota
	stagePause
	stageEnd
	stageCount
)

var stageEvents = [stageCount]domain.Event{
	stageWarn:  domain.EventIdleWarn,
	stagePause: domain.EventIdlePause,
	stageEnd:   domain.EventIdleEnd,
}

// idleDetector keeps the three inactivity deadlines measured from the last
// input. Deadlines only exist while the user is on a study route with the
// window visible.
type idleDetector struct {
	handles [stageCount]clock.Timer
	gen     uint64
}

func (d *idleDetector) disarm() {
	for i, h := range d.handles {
		if h != nil {
			h.Stop()
			d.handles[i] = nil
		}
	}
	d.gen++
}

func (d *idleDetector) current(gen uint64) bool {
	return gen == d.gen
}

func (t *Tracker) armIdle() {
	t.idle.disarm()
	if !t.visible || !t.nav.onStudy() {
		return
	}
	gen := t.idle.gen
	for i, after := range [stageCount]time.Duration{t.opts.Idle.Warn, t.opts.Idle.Pause, t.opts.Idle.End} {
		if after <= 0 {
			continue
		}
		stage := idleStage(i)
		t.idle.handles[stage] = t.clock.AfterFunc(after, func() {
			_ = t.post(deadlineEvent{stage: stage, gen: gen})
		})
	}
}

func (t *Tracker) onDeadline(stage idleStage, gen uint64) {
	if !t.idle.current(gen) || stage < 0 || stage >= stageCount {
		return
	}
	t.idle.handles[stage] = nil
	t.log.Debug("inactivity deadline", int(stage), t.phase.String())
	t.fire(stageEvents[stage])
}
