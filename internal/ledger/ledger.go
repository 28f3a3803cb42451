// Package ledger reduces finalized expenses to what people owe each other.
//
// Every computation here is a pure reduction over the expense documents it
// is given: nothing is mutated, nothing is cached between calls, and a
// malformed item, fee or expense is skipped and reported in Balance.Skipped
// instead of failing the whole result.
package ledger

import (
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// Divisor selects who shares an even-split item or fee.
type Divisor int

const (
	// DivideByParticipants divides even amounts by the size of the whole
	// participant list, regardless of the consumers recorded on the item.
	// This matches how existing balances have always been computed.
	DivideByParticipants Divisor = iota

	// DivideByConsumers divides even amounts among the item's or fee's
	// selected consumers, the same group the split was created for.
	DivideByConsumers
)

// String returns the config spelling of d.
func (d Divisor) String() string {
	if d == DivideByConsumers {
		return "consumers"
	}
	return "participants"
}

// ParseDivisor reads "participants" or "consumers".
func ParseDivisor(s string) (Divisor, bool) {
	switch s {
	case "participants", "":
		return DivideByParticipants, true
	case "consumers":
		return DivideByConsumers, true
	default:
		return DivideByParticipants, false
	}
}

// PayerRule selects how a part paid by several people is attributed in
// the current participant's balance.
type PayerRule int

const (
	// PayerMembership credits a paying current participant with every
	// other participant's whole share, and debits a non-paying current
	// participant their own share against the first payer.
	PayerMembership PayerRule = iota

	// SplitAmongPayers divides every share among the payers in payer
	// order, the same way group balances are computed.
	SplitAmongPayers
)

// String returns the config spelling of r.
func (r PayerRule) String() string {
	if r == SplitAmongPayers {
		return "split"
	}
	return "membership"
}

// ParsePayerRule reads "membership" or "split".
func ParsePayerRule(s string) (PayerRule, bool) {
	switch s {
	case "membership", "":
		return PayerMembership, true
	case "split":
		return SplitAmongPayers, true
	default:
		return PayerMembership, false
	}
}

// Option configures a Calculator.
type Option func(*Calculator)

// WithEvenDivisor sets how even splits are divided.
func WithEvenDivisor(d Divisor) Option {
	return func(c *Calculator) {
		c.divisor = d
	}
}

// WithPayerRule sets how multi-payer parts are attributed.
func WithPayerRule(r PayerRule) Option {
	return func(c *Calculator) {
		c.payerRule = r
	}
}

// Calculator computes balances. The zero value divides even splits by
// participants and attributes parts by payer membership.
type Calculator struct {
	divisor   Divisor
	payerRule PayerRule
}

// New returns a Calculator with the given options applied.
func New(opts ...Option) *Calculator {
	c := &Calculator{}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Issue describes one part of an expense the ledger could not use.
type Issue struct {
	ExpenseID string
	Part      string // "expense", "item 2", "fee 0"
	Reason    string
}

// Balance is the current user's position across a set of expenses.
type Balance struct {
	// TotalOwed is what others owe the current user.
	TotalOwed money.Cents

	// TotalOwes is what the current user owes others.
	TotalOwes money.Cents

	// NetBalance is TotalOwed - TotalOwes.
	NetBalance money.Cents

	// DebtBreakdown maps counterparty name to a signed amount: positive
	// means they owe the current user. Settled counterparties are left out.
	DebtBreakdown map[string]money.Cents

	// Skipped lists the malformed parts that were left out.
	Skipped []Issue
}

// ComputeBalances uses a default Calculator.
func ComputeBalances(expenses []models.Expense, currentKey string) Balance {
	return New().ComputeBalances(expenses, currentKey)
}

// ComputeBalances sums, over every expense the current participant takes
// part in, what they are owed and what they owe. currentKey is matched
// against each participant's user reference, name or ID.
func (c *Calculator) ComputeBalances(expenses []models.Expense, currentKey string) Balance {
	return c.compute(expenses, currentKey, "")
}

// ComputeFriendBalance is ComputeBalances restricted to one counterparty.
// Expenses that do not include both participants are ignored.
func (c *Calculator) ComputeFriendBalance(expenses []models.Expense, currentKey, friendKey string) Balance {
	if friendKey == "" {
		return Balance{DebtBreakdown: map[string]money.Cents{}}
	}
	return c.compute(expenses, currentKey, friendKey)
}

func (c *Calculator) attribute(p part, cur int) []obligation {
	if c.payerRule == SplitAmongPayers {
		return settle(p)
	}
	return settleFor(p, cur)
}

func (c *Calculator) compute(expenses []models.Expense, currentKey, friendKey string) Balance {
	bal := Balance{DebtBreakdown: make(map[string]money.Cents)}

	for i := range expenses {
		exp := &expenses[i]
		cur := exp.ParticipantIndex(currentKey)
		if cur < 0 {
			continue
		}
		friend := -1
		if friendKey != "" {
			friend = exp.ParticipantIndex(friendKey)
			if friend < 0 || friend == cur {
				continue
			}
		}

		parts, issues := c.parts(exp)
		bal.Skipped = append(bal.Skipped, issues...)

		for _, p := range parts {
			for _, ob := range c.attribute(p, cur) {
				switch {
				case ob.creditor == cur && (friend < 0 || ob.debtor == friend):
					bal.TotalOwed += ob.amount
					bal.DebtBreakdown[exp.Participants[ob.debtor].Name] += ob.amount
				case ob.debtor == cur && (friend < 0 || ob.creditor == friend):
					bal.TotalOwes += ob.amount
					bal.DebtBreakdown[exp.Participants[ob.creditor].Name] -= ob.amount
				}
			}
		}
	}

	for name, amount := range bal.DebtBreakdown {
		if amount == 0 {
			delete(bal.DebtBreakdown, name)
		}
	}
	bal.NetBalance = bal.TotalOwed - bal.TotalOwes
	return bal
}
