package allocation

import (
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// EvenSplit divides amount equally among consumers, giving the extra cents
// to the earliest consumers in list order. A single consumer gets the whole
// amount without going through the engine. It returns nil when there is
// nobody to split with or nothing to split.
func EvenSplit(amount money.Cents, consumers []int) []models.SplitRecord {
	if len(consumers) == 0 || amount <= 0 {
		return nil
	}
	if len(consumers) == 1 {
		return []models.SplitRecord{{
			ParticipantIndex: consumers[0],
			Amount:           amount.Float64(),
			Percentage:       100,
		}}
	}
	return ToSplitRecords(Initialize(amount, len(consumers)), consumers)
}

// ProportionalSplit divides amount in proportion to weights.
//
// Each share is amount × weight / sum(weights), floored to the cent; the
// cents lost to flooring go one at a time to positive weights in list
// order. This is how a tax or tip follows what each person ordered:
// person_total = person_subtotal × (1 + fee / subtotal). When every weight
// is zero the amount is split evenly.
func ProportionalSplit(amount money.Cents, weights []money.Cents) []money.Cents {
	if len(weights) == 0 {
		return nil
	}
	var total money.Cents
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total == 0 {
		return money.Split(amount, len(weights))
	}

	shares := make([]money.Cents, len(weights))
	var assigned money.Cents
	for i, w := range weights {
		if w <= 0 {
			continue
		}
		shares[i] = amount * w / total
		assigned += shares[i]
	}
	for leftover := amount - assigned; leftover > 0; {
		for i, w := range weights {
			if leftover == 0 {
				break
			}
			if w > 0 {
				shares[i]++
				leftover--
			}
		}
	}
	return shares
}

// FeeSplits computes the split records for a fee on exp.
// Equal fees are split evenly across the fee's consumers (every participant
// when none are selected). Proportional fees follow each consumer's share
// of the item splits.
func FeeSplits(fee models.Fee, exp *models.Expense) []models.SplitRecord {
	subtotal, ok := money.FromFloat(exp.Subtotal())
	if !ok {
		return nil
	}
	amount, ok := fee.AmountCents(subtotal)
	if !ok || amount <= 0 {
		return nil
	}

	consumers := fee.SelectedConsumers
	if len(consumers) == 0 {
		consumers = AllParticipants(len(exp.Participants))
	}
	if fee.SplitType.IsEven() || len(consumers) == 1 {
		return EvenSplit(amount, consumers)
	}

	weights := make([]money.Cents, len(consumers))
	for _, item := range exp.Items {
		for _, rec := range item.Splits {
			local, ok := LocalIndex(consumers, rec.ParticipantIndex)
			if !ok {
				continue
			}
			if c, ok := money.FromFloat(rec.Amount); ok && c > 0 {
				weights[local] += c
			}
		}
	}

	shares := ProportionalSplit(amount, weights)
	records := make([]models.SplitRecord, 0, len(shares))
	for i, share := range shares {
		records = append(records, models.SplitRecord{
			ParticipantIndex: consumers[i],
			Amount:           share.Float64(),
			Percentage:       money.Percent(share, amount),
		})
	}
	return records
}

// FillSplits recomputes every split array in exp that no longer reconciles
// with its amount and consumers: missing splits on a new item, splits left
// behind by a consumer change, or splits orphaned by a removed
// participant. Recomputed splits start from an even split; prior locks are
// not carried over. Fee amounts are resolved against the current items and
// stored on the fee. Proportional fee splits are replaced whenever the item
// splits they follow have changed. It returns the number of split arrays
// it replaced.
func FillSplits(exp *models.Expense) int {
	replaced := 0
	for i := range exp.Items {
		item := &exp.Items[i]
		amount, ok := money.FromFloat(item.Amount)
		if !ok {
			continue
		}
		if !reconciles(item.Splits, amount, item.SelectedConsumers) {
			item.Splits = EvenSplit(amount, item.SelectedConsumers)
			replaced++
		}
	}

	subtotal, _ := money.FromFloat(exp.Subtotal())
	for i := range exp.Fees {
		fee := &exp.Fees[i]
		amount, ok := fee.AmountCents(subtotal)
		if !ok {
			continue
		}
		fee.Amount = amount.Float64()
		consumers := fee.SelectedConsumers
		if len(consumers) == 0 {
			consumers = AllParticipants(len(exp.Participants))
		}
		if fee.SplitType.IsEven() {
			if !reconciles(fee.Splits, amount, consumers) {
				fee.Splits = FeeSplits(*fee, exp)
				replaced++
			}
			continue
		}
		if want := FeeSplits(*fee, exp); !sameSplits(fee.Splits, want) {
			fee.Splits = want
			replaced++
		}
	}

	if len(exp.Items) == 0 {
		total, ok := money.FromFloat(exp.Total)
		all := AllParticipants(len(exp.Participants))
		if ok && !reconciles(exp.Splits, total, all) {
			exp.Splits = EvenSplit(total, all)
			replaced++
		}
	}
	return replaced
}

// reconciles reports whether splits cover amount exactly and only name
// consumers, each at most once.
func reconciles(splits []models.SplitRecord, amount money.Cents, consumers []int) bool {
	if amount <= 0 || len(consumers) == 0 {
		return len(splits) == 0
	}
	seen := make(map[int]bool, len(splits))
	var sum money.Cents
	for _, s := range splits {
		if _, ok := LocalIndex(consumers, s.ParticipantIndex); !ok || seen[s.ParticipantIndex] {
			return false
		}
		seen[s.ParticipantIndex] = true
		c, ok := money.FromFloat(s.Amount)
		if !ok || c < 0 {
			return false
		}
		sum += c
	}
	return sum == amount
}

// sameSplits compares participants and cent amounts in order.
func sameSplits(a, b []models.SplitRecord) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ParticipantIndex != b[i].ParticipantIndex {
			return false
		}
		x, okX := money.FromFloat(a[i].Amount)
		y, okY := money.FromFloat(b[i].Amount)
		if !okX || !okY || x != y {
			return false
		}
	}
	return true
}
