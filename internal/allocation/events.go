package allocation

import "github.com/mmynk/splitledger/internal/money"

// Event is a user action on an allocation.
type Event interface {
	apply(State) State
}

// Apply returns the state that results from ev. s is not modified.
// Events that reference an entry out of range leave the state unchanged.
func Apply(s State, ev Event) State {
	next := s.clone()
	if ev == nil {
		return next
	}
	return ev.apply(next)
}

// SetAmount is an explicit edit of one entry. A nil Value means the input
// was cleared and counts as zero. The entry becomes locked.
type SetAmount struct {
	Index int
	Value *money.Cents
}

func (e SetAmount) apply(s State) State {
	if !s.inRange(e.Index) {
		return s
	}
	var v money.Cents
	if e.Value != nil && *e.Value > 0 {
		v = *e.Value
	}
	s.Entries[e.Index] = Entry{Amount: v, Locked: true}
	return settle(s)
}

// ToggleLock flips an entry between locked and unlocked, keeping its
// amount, and rebalances the unlocked entries around it.
type ToggleLock struct {
	Index int
}

func (e ToggleLock) apply(s State) State {
	if !s.inRange(e.Index) {
		return s
	}
	s.Entries[e.Index].Locked = !s.Entries[e.Index].Locked
	return settle(s)
}

// Blur is sent when an entry's input loses focus. An empty unlocked entry
// is handed back to redistribution; anything else is already stored in
// whole cents and stays as it is.
type Blur struct {
	Index int
}

func (e Blur) apply(s State) State {
	if !s.inRange(e.Index) {
		return s
	}
	entry := s.Entries[e.Index]
	if entry.Locked || entry.Amount != 0 {
		return s
	}
	s.Entries[e.Index] = Entry{}
	return settle(s)
}

// SetTotal changes the amount being split. Locked entries keep their
// values; the new remainder is spread over the unlocked ones.
// A negative total is ignored.
type SetTotal struct {
	Total money.Cents
}

func (e SetTotal) apply(s State) State {
	if e.Total < 0 {
		return s
	}
	s.Total = e.Total
	return settle(s)
}
