// Package allocation divides a monetary total among participants while the
// user pins some shares by hand.
//
// The engine is a small state machine: Apply takes a State and an Event and
// returns a new State. It never mutates its input and never notifies
// anyone; callers decide what to do with the result. After every event the
// entries add up to the total exactly, unless State.Err reports an
// over-allocation or an under-allocation.
package allocation

import (
	"fmt"

	"github.com/mmynk/splitledger/internal/money"
)

// Entry is one participant's share.
type Entry struct {
	Amount money.Cents `json:"amount"`

	// Locked is true when the user typed Amount. Redistribution never
	// overwrites a locked entry.
	Locked bool `json:"locked"`
}

// State is the allocation of Total across Entries, in participant order.
type State struct {
	Total   money.Cents `json:"total"`
	Entries []Entry     `json:"entries"`
}

// OverAllocationError reports locked amounts that add up to more than the
// total.
type OverAllocationError struct {
	Excess money.Cents
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("exceeds by %s", e.Excess)
}

// UnderAllocationError reports that every entry is locked and their sum
// falls short of the total, so nothing is left to absorb the difference.
type UnderAllocationError struct {
	Missing money.Cents
}

func (e *UnderAllocationError) Error() string {
	return fmt.Sprintf("%s left to assign", e.Missing)
}

// Initialize spreads total evenly over n unlocked entries.
// It returns an empty state for n <= 0 or a negative total; both are
// ordinary transient states while a form is being edited.
func Initialize(total money.Cents, n int) State {
	if n <= 0 || total < 0 {
		return State{}
	}
	s := State{Total: total, Entries: make([]Entry, n)}
	for i, share := range money.Split(total, n) {
		s.Entries[i] = Entry{Amount: share}
	}
	return s
}

// Err returns the validation state of s: nil when the entries reconcile,
// *OverAllocationError or *UnderAllocationError otherwise.
func (s State) Err() error {
	if len(s.Entries) == 0 {
		return nil
	}
	locked := s.LockedTotal()
	if locked > s.Total {
		return &OverAllocationError{Excess: locked - s.Total}
	}
	if len(s.unlocked()) == 0 && locked < s.Total {
		return &UnderAllocationError{Missing: s.Total - locked}
	}
	return nil
}

// Sum returns the sum of all entry amounts.
func (s State) Sum() money.Cents {
	return money.Sum(s.Amounts()...)
}

// LockedTotal returns the sum of locked entry amounts.
func (s State) LockedTotal() money.Cents {
	var sum money.Cents
	for _, e := range s.Entries {
		if e.Locked {
			sum += e.Amount
		}
	}
	return sum
}

// Amounts returns the entry amounts in order.
func (s State) Amounts() []money.Cents {
	out := make([]money.Cents, len(s.Entries))
	for i, e := range s.Entries {
		out[i] = e.Amount
	}
	return out
}

func (s State) clone() State {
	entries := make([]Entry, len(s.Entries))
	copy(entries, s.Entries)
	return State{Total: s.Total, Entries: entries}
}

func (s State) unlocked() []int {
	var idx []int
	for i, e := range s.Entries {
		if !e.Locked {
			idx = append(idx, i)
		}
	}
	return idx
}

func (s State) inRange(i int) bool {
	return i >= 0 && i < len(s.Entries)
}

// Redistribute recomputes every unlocked entry so the state adds up to the
// total. The remainder after locked entries is split with money.Split: the
// earliest unlocked entries get the extra cents. A single unlocked entry
// takes the whole remainder. When every entry is locked nothing changes.
func Redistribute(s State) State {
	next := s.clone()
	unlocked := next.unlocked()
	if len(unlocked) == 0 {
		return next
	}

	remaining := next.Total - next.LockedTotal()
	if remaining < 0 {
		remaining = 0
	}

	if len(unlocked) == 1 {
		next.Entries[unlocked[0]].Amount = remaining
		return next
	}

	for j, share := range money.Split(remaining, len(unlocked)) {
		next.Entries[unlocked[j]].Amount = share
	}
	return next
}

// settle either zeroes the unlocked entries when the locked ones overflow
// the total, or redistributes.
func settle(s State) State {
	if s.LockedTotal() > s.Total {
		for i := range s.Entries {
			if !s.Entries[i].Locked {
				s.Entries[i].Amount = 0
			}
		}
		return s
	}
	return Redistribute(s)
}
