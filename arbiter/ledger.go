package arbiter

import "github.com/nstehr/vimy/hivemind/model"

// RequestLedger records, per building type, when a request was last granted.
// Entries are overwritten in place; it never grows.
type RequestLedger struct {
	at  [model.NumUnitTypes]float64
	set [model.NumUnitTypes]bool
}

func (l *RequestLedger) record(t model.UnitType, now float64) {
	if !t.Known() {
		return
	}
	l.at[t] = now
	l.set[t] = true
}

// LastGrant returns the game time of the last grant for t.
func (l *RequestLedger) LastGrant(t model.UnitType) (float64, bool) {
	if !t.Known() {
		return 0, false
	}
	return l.at[t], l.set[t]
}

// within reports whether t was granted less than window seconds before now.
// A grant stamped in the future (clock rewound) does not count.
func (l *RequestLedger) within(t model.UnitType, now, window float64) bool {
	at, ok := l.LastGrant(t)
	if !ok {
		return false
	}
	d := now - at
	return d >= 0 && d < window
}

func (l *RequestLedger) reset() { *l = RequestLedger{} }
