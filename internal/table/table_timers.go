package table

import (
	"errors"
	"time"

	"github.com/coder/quartz"
)

type timerKind int

const (
	timerReadyUp timerKind = iota
	timerCountdown
	timerTurn
	timerShowdown
	timerBlinds
	numTimerKinds
)

var timerNames = [numTimerKinds]string{"ready_up", "countdown", "turn", "showdown", "blinds"}

// arm schedules fn on the table clock, replacing any timer of the same kind.
// The callback runs as a normal mutation and is dropped when the table has
// been reset or closed since it was armed.
func (t *Table) arm(kind timerKind, d time.Duration, fn func() error) {
	t.cancelTimer(kind)
	t.timers[kind] = t.schedule(timerNames[kind], d, fn)
}

func (t *Table) schedule(name string, d time.Duration, fn func() error) *quartz.Timer {
	gen := t.generation
	return t.clock.AfterFunc(d, func() {
		err := t.mutate(func() error {
			if t.generation != gen {
				return errStale
			}
			return fn()
		})
		switch {
		case err == nil:
		case errors.Is(err, errStale), errors.Is(err, ErrTableClosed):
			t.logger.Debug().Str("timer", name).Msg("Ignoring stale timer")
		default:
			t.logger.Error().Err(err).Str("timer", name).Msg("Timer callback failed")
		}
	}, "table", name)
}

func (t *Table) cancelTimer(kind timerKind) {
	if tm := t.timers[kind]; tm != nil {
		tm.Stop()
		t.timers[kind] = nil
	}
}

func (t *Table) cancelAllTimers() {
	for k := range t.timers {
		t.cancelTimer(timerKind(k))
	}
	for id := range t.grace {
		t.cancelGrace(id)
	}
}

// armGrace removes a disconnected player who has not come back in time.
func (t *Table) armGrace(playerID string, grace time.Duration) {
	t.cancelGrace(playerID)
	t.graceSeq[playerID]++
	seq := t.graceSeq[playerID]
	t.grace[playerID] = t.schedule("disconnect_grace", grace, func() error {
		idx := t.seatOf(playerID)
		if idx < 0 || t.seats[idx].Connected || t.graceSeq[playerID] != seq {
			return errStale
		}
		delete(t.grace, playerID)
		t.logger.Info().Str("player_id", playerID).Msg("Disconnect grace expired, removing player")
		return t.leave(playerID, "disconnected")
	})
}

func (t *Table) cancelGrace(playerID string) {
	if tm, ok := t.grace[playerID]; ok {
		tm.Stop()
		delete(t.grace, playerID)
	}
	t.graceSeq[playerID]++
}

// armBlindIncrease doubles the blinds every interval. The new level waits
// for the next hand to start, and the big blind never doubles past the
// chips on the table.
func (t *Table) armBlindIncrease() {
	t.arm(timerBlinds, t.cfg.BlindIncreaseInterval, func() error {
		sb, bb := t.smallBlind, t.bigBlind
		if t.nextBlinds[1] > 0 {
			sb, bb = t.nextBlinds[0], t.nextBlinds[1]
		}
		if bb*2 <= t.tableChips() {
			t.nextBlinds = [2]int{sb * 2, bb * 2}
			t.logger.Debug().Int("small_blind", sb*2).Int("big_blind", bb*2).Msg("Blind increase scheduled")
		}
		t.armBlindIncrease()
		return nil
	})
}

// stopBlindsIfIdle halts the blind clock once no game can continue. The
// next hand dealt starts it again.
func (t *Table) stopBlindsIfIdle() {
	if t.phase.IsBetting() {
		return
	}
	if t.gameOver || t.playingCount() < 2 {
		t.cancelTimer(timerBlinds)
	}
}

// tableChips counts every chip at the table, including the pot.
func (t *Table) tableChips() int {
	n := t.pot
	for _, s := range t.seats {
		if s != nil {
			n += s.Chips
		}
	}
	return n
}
