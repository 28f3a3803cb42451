package ledger

import (
	"fmt"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// obligation is debtor owing creditor amount, both participant indices.
type obligation struct {
	debtor   int
	creditor int
	amount   money.Cents
}

// share is one participant's part of an item, fee or expense total.
type share struct {
	participant int
	amount      money.Cents
}

// part is one item, fee or itemless expense total with its resolved payers.
type part struct {
	payers []int
	shares []share
}

func (p part) paidBy(i int) bool {
	for _, payer := range p.payers {
		if payer == i {
			return true
		}
	}
	return false
}

// parts resolves the payers and shares of every usable part of exp.
// Parts with a bad amount, index or payer list are reported instead.
func (c *Calculator) parts(exp *models.Expense) ([]part, []Issue) {
	var (
		out    []part
		issues []Issue
	)
	n := len(exp.Participants)
	if n == 0 {
		return nil, []Issue{{ExpenseID: exp.ID, Part: "expense", Reason: "no participants"}}
	}

	add := func(name string, payers []int, shares []share, err error) {
		if err == nil {
			payers, err = resolvePayers(payers, exp.PaidBy, n)
		}
		if err != nil {
			issues = append(issues, Issue{ExpenseID: exp.ID, Part: name, Reason: err.Error()})
			return
		}
		out = append(out, part{payers: payers, shares: shares})
	}

	if len(exp.Items) == 0 {
		total, ok := money.FromFloat(exp.Total)
		shares, err := c.shares(total, ok, nil, exp.Splits, exp.SplitType.IsEven(), n)
		add("expense", nil, shares, err)
	}

	for i, item := range exp.Items {
		amount, ok := money.FromFloat(item.Amount)
		shares, err := c.shares(amount, ok, item.SelectedConsumers, item.Splits, exp.SplitType.IsEven(), n)
		add(fmt.Sprintf("item %d", i), item.SelectedPayers, shares, err)
	}

	subtotal, subtotalOK := money.FromFloat(exp.Subtotal())
	for i, fee := range exp.Fees {
		amount, ok := fee.AmountCents(subtotal)
		shares, err := c.shares(amount, ok && subtotalOK, fee.SelectedConsumers, fee.Splits, fee.SplitType.IsEven(), n)
		add(fmt.Sprintf("fee %d", i), fee.SelectedPayers, shares, err)
	}

	return out, issues
}

// settle turns a part into who-owes-whom records by dividing every share
// among the payers in payer order. A payer never owes themself, so the
// records of one expense always net to zero across its participants.
func settle(p part) []obligation {
	var out []obligation
	for _, sh := range p.shares {
		for j, portion := range money.Split(sh.amount, len(p.payers)) {
			if p.payers[j] == sh.participant || portion <= 0 {
				continue
			}
			out = append(out, obligation{debtor: sh.participant, creditor: p.payers[j], amount: portion})
		}
	}
	return out
}

// settleFor is the current participant's view of a part. When cur paid,
// every other participant owes cur their whole share. Otherwise cur owes
// their own share to the first payer.
func settleFor(p part, cur int) []obligation {
	var out []obligation
	if p.paidBy(cur) {
		for _, sh := range p.shares {
			if sh.participant != cur && sh.amount > 0 {
				out = append(out, obligation{debtor: sh.participant, creditor: cur, amount: sh.amount})
			}
		}
		return out
	}
	for _, sh := range p.shares {
		if sh.participant == cur && sh.amount > 0 {
			out = append(out, obligation{debtor: cur, creditor: p.payers[0], amount: sh.amount})
		}
	}
	return out
}

// shares resolves who carries how much of one part.
// Even parts are divided with money.Split over the divisor group; custom
// and proportional parts use their persisted split records. Any bad index
// or amount invalidates the whole part.
func (c *Calculator) shares(amount money.Cents, amountOK bool, consumers []int, splits []models.SplitRecord, even bool, n int) ([]share, error) {
	if !even {
		out := make([]share, 0, len(splits))
		for _, rec := range splits {
			if rec.ParticipantIndex < 0 || rec.ParticipantIndex >= n {
				return nil, fmt.Errorf("split participant index %d out of range", rec.ParticipantIndex)
			}
			a, ok := money.FromFloat(rec.Amount)
			if !ok || a < 0 {
				return nil, fmt.Errorf("split amount %v is not a valid amount", rec.Amount)
			}
			out = append(out, share{participant: rec.ParticipantIndex, amount: a})
		}
		return out, nil
	}

	if !amountOK || amount < 0 {
		return nil, fmt.Errorf("amount is not a valid amount")
	}
	group := consumers
	if c.divisor == DivideByParticipants || len(group) == 0 {
		group = make([]int, n)
		for i := range group {
			group[i] = i
		}
	}
	out := make([]share, 0, len(group))
	for i, a := range money.Split(amount, len(group)) {
		if group[i] < 0 || group[i] >= n {
			return nil, fmt.Errorf("consumer index %d out of range", group[i])
		}
		out = append(out, share{participant: group[i], amount: a})
	}
	return out, nil
}

// resolvePayers picks the part's own payers, falling back to the expense
// payers, and checks them.
func resolvePayers(own, expense []int, n int) ([]int, error) {
	payers := own
	if len(payers) == 0 {
		payers = expense
	}
	if len(payers) == 0 {
		return nil, fmt.Errorf("no payer")
	}
	for _, p := range payers {
		if p < 0 || p >= n {
			return nil, fmt.Errorf("payer index %d out of range", p)
		}
	}
	return payers, nil
}
