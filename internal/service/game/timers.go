package game

import (
	"fmt"
	"time"

	"github.com/coder/quartz"

	"github.com/iamasit07/four-in-a-row/internal/domain"
)

const (
	timerMatchmaking = "matchmaking"
	timerBotMove     = "bot_move"
)

func graceTimerKey(slot domain.Slot) string {
	return fmt.Sprintf("grace_%d", slot)
}

type pendingTimer struct {
	id    uint64
	timer *quartz.Timer
}

// timerSet tracks every pending callback owned by a session.
// It is not safe for concurrent use; the owning session's lock guards it.
type timerSet struct {
	clock  quartz.Clock
	seq    uint64
	timers map[string]pendingTimer
}

func newTimerSet(clock quartz.Clock) *timerSet {
	return &timerSet{
		clock:  clock,
		timers: make(map[string]pendingTimer),
	}
}

// schedule runs fn after d, replacing any timer already held under key.
// fn receives the id it must pass to claim.
func (ts *timerSet) schedule(key string, d time.Duration, fn func(id uint64)) {
	ts.cancel(key)
	ts.seq++
	id := ts.seq
	ts.timers[key] = pendingTimer{
		id:    id,
		timer: ts.clock.AfterFunc(d, func() { fn(id) }),
	}
}

// claim is called by a firing callback while holding the session lock.
// It returns false when the timer was cancelled or replaced after it fired,
// in which case the callback must do nothing.
func (ts *timerSet) claim(key string, id uint64) bool {
	p, ok := ts.timers[key]
	if !ok || p.id != id {
		return false
	}
	delete(ts.timers, key)
	return true
}

// cancel stops the timer under key. It reports whether one was pending.
func (ts *timerSet) cancel(key string) bool {
	p, ok := ts.timers[key]
	if !ok {
		return false
	}
	delete(ts.timers, key)
	p.timer.Stop()
	return true
}

func (ts *timerSet) cancelAll() {
	for key := range ts.timers {
		ts.cancel(key)
	}
}

func (ts *timerSet) pending(key string) bool {
	_, ok := ts.timers[key]
	return ok
}

func (ts *timerSet) len() int {
	return len(ts.timers)
}
