package allocation

import (
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// ToSplitRecords converts s into persisted split records.
//
// Entries live in the local index space of consumers: entry i belongs to
// participant consumers[i]. A nil consumers slice means the entries cover
// every participant in order. Entries with no matching consumer are not
// emitted.
func ToSplitRecords(s State, consumers []int) []models.SplitRecord {
	records := make([]models.SplitRecord, 0, len(s.Entries))
	for i, e := range s.Entries {
		global := i
		if consumers != nil {
			if i >= len(consumers) {
				break
			}
			global = consumers[i]
		}
		records = append(records, models.SplitRecord{
			ParticipantIndex: global,
			Amount:           e.Amount.Float64(),
			Percentage:       money.Percent(e.Amount, s.Total),
		})
	}
	return records
}

// LocalIndex maps a participant index to its position in consumers.
func LocalIndex(consumers []int, global int) (int, bool) {
	for i, c := range consumers {
		if c == global {
			return i, true
		}
	}
	return -1, false
}

// AllParticipants returns the consumer list 0..n-1.
func AllParticipants(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// Restore rebuilds an editable state from persisted records, for example
// when an existing expense is opened again. Records are matched to
// consumers by participant index; records for anyone else are ignored.
// All entries come back unlocked. When the records do not add up to total
// the state starts over from an even split.
func Restore(total money.Cents, consumers []int, records []models.SplitRecord) State {
	s := Initialize(total, len(consumers))
	if len(s.Entries) == 0 || len(records) == 0 {
		return s
	}

	restored := s.clone()
	for i := range restored.Entries {
		restored.Entries[i].Amount = 0
	}
	for _, r := range records {
		local, ok := LocalIndex(consumers, r.ParticipantIndex)
		if !ok {
			continue
		}
		amount, ok := money.FromFloat(r.Amount)
		if !ok || amount < 0 {
			return s
		}
		restored.Entries[local].Amount += amount
	}
	if restored.Sum() != total {
		return s
	}
	return restored
}
