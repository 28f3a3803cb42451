package models

import "fmt"

// RemoveParticipant deletes the participant at index and rewrites every
// index reference in the document so it keeps pointing at the same people.
// References to the removed participant are dropped, including their split
// records; the remaining splits of affected items no longer reconcile with
// the item amount and must be recomputed by the caller.
func (e *Expense) RemoveParticipant(index int) error {
	if index < 0 || index >= len(e.Participants) {
		return fmt.Errorf("participant index %d out of range", index)
	}

	e.Participants = append(e.Participants[:index:index], e.Participants[index+1:]...)
	e.PaidBy = shiftIndices(e.PaidBy, index)
	e.Splits = shiftSplits(e.Splits, index)

	for i := range e.Items {
		item := &e.Items[i]
		item.SelectedConsumers = shiftIndices(item.SelectedConsumers, index)
		item.SelectedPayers = shiftIndices(item.SelectedPayers, index)
		item.Splits = shiftSplits(item.Splits, index)
	}
	for i := range e.Fees {
		fee := &e.Fees[i]
		fee.SelectedConsumers = shiftIndices(fee.SelectedConsumers, index)
		fee.SelectedPayers = shiftIndices(fee.SelectedPayers, index)
		fee.Splits = shiftSplits(fee.Splits, index)
	}
	return nil
}

// shiftIndices drops removed and moves every later index down by one.
func shiftIndices(indices []int, removed int) []int {
	if indices == nil {
		return nil
	}
	out := make([]int, 0, len(indices))
	for _, idx := range indices {
		switch {
		case idx == removed:
			continue
		case idx > removed:
			out = append(out, idx-1)
		default:
			out = append(out, idx)
		}
	}
	return out
}

func shiftSplits(splits []SplitRecord, removed int) []SplitRecord {
	if splits == nil {
		return nil
	}
	out := make([]SplitRecord, 0, len(splits))
	for _, s := range splits {
		switch {
		case s.ParticipantIndex == removed:
			continue
		case s.ParticipantIndex > removed:
			s.ParticipantIndex--
		}
		out = append(out, s)
	}
	return out
}
