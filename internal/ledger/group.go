package ledger

import (
	"sort"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/money"
)

// MemberBalance is one person's position across a set of expenses.
type MemberBalance struct {
	Key        string // participant user reference, or name
	Name       string
	Owed       money.Cents // what others owe this member
	Owes       money.Cents // what this member owes others
	NetBalance money.Cents // Positive = owed money, Negative = owes money
}

// DebtEdge represents a debt from one person to another.
type DebtEdge struct {
	From   string // Person who owes (member key)
	To     string // Person who is owed (member key)
	Amount money.Cents
}

// GroupBalances uses a default Calculator.
func GroupBalances(expenses []models.Expense) ([]MemberBalance, []DebtEdge, []Issue) {
	return New().GroupBalances(expenses)
}

// GroupBalances computes every member's balance across expenses and a
// simplified list of payments that would settle them.
//
// Members are identified by Participant.Key so the same person is merged
// across expenses. Balances are returned sorted by key.
//
// Algorithm:
//   - For each expense: every share is divided among its payers; each portion
//     credits the payer and debits the share's owner
//   - Aggregate: net_balance = owed - owes
//   - Debt edges: simplified using greedy matching of the largest debtors
//     against the largest creditors
func (c *Calculator) GroupBalances(expenses []models.Expense) ([]MemberBalance, []DebtEdge, []Issue) {
	balances := make(map[string]*MemberBalance)
	var issues []Issue

	member := func(p models.Participant) *MemberBalance {
		key := p.Key()
		if _, exists := balances[key]; !exists {
			balances[key] = &MemberBalance{Key: key, Name: p.Name}
		}
		return balances[key]
	}

	for i := range expenses {
		exp := &expenses[i]
		parts, expIssues := c.parts(exp)
		issues = append(issues, expIssues...)

		for _, p := range exp.Participants {
			member(p)
		}
		for _, p := range parts {
			for _, ob := range settle(p) {
				debtor := member(exp.Participants[ob.debtor])
				creditor := member(exp.Participants[ob.creditor])
				if debtor == creditor {
					continue
				}
				debtor.Owes += ob.amount
				creditor.Owed += ob.amount
			}
		}
	}

	memberBalances := make([]MemberBalance, 0, len(balances))
	for _, bal := range balances {
		bal.NetBalance = bal.Owed - bal.Owes
		memberBalances = append(memberBalances, *bal)
	}
	sort.Slice(memberBalances, func(i, j int) bool {
		return memberBalances[i].Key < memberBalances[j].Key
	})

	return memberBalances, SimplifyDebts(memberBalances), issues
}

// SimplifyDebts matches debtors with creditors to minimize the number of
// payments. Both sides are processed largest first, ties broken by key, so
// the result is deterministic.
func SimplifyDebts(members []MemberBalance) []DebtEdge {
	var creditors, debtors []MemberBalance
	for _, bal := range members {
		if bal.NetBalance > 0 {
			creditors = append(creditors, bal)
		} else if bal.NetBalance < 0 {
			debtors = append(debtors, bal)
		}
	}
	sort.Slice(creditors, func(i, j int) bool {
		if creditors[i].NetBalance != creditors[j].NetBalance {
			return creditors[i].NetBalance > creditors[j].NetBalance
		}
		return creditors[i].Key < creditors[j].Key
	})
	sort.Slice(debtors, func(i, j int) bool {
		if debtors[i].NetBalance != debtors[j].NetBalance {
			return debtors[i].NetBalance < debtors[j].NetBalance
		}
		return debtors[i].Key < debtors[j].Key
	})

	debtorBalance := make([]money.Cents, len(debtors))
	for i, d := range debtors {
		debtorBalance[i] = -d.NetBalance // Make positive
	}
	creditorBalance := make([]money.Cents, len(creditors))
	for j, cr := range creditors {
		creditorBalance[j] = cr.NetBalance
	}

	var edges []DebtEdge
	i, j := 0, 0
	for i < len(debtors) && j < len(creditors) {
		// Amount to settle is minimum of what debtor owes and creditor is owed
		amount := debtorBalance[i]
		if creditorBalance[j] < amount {
			amount = creditorBalance[j]
		}
		if amount > 0 {
			edges = append(edges, DebtEdge{
				From:   debtors[i].Key,
				To:     creditors[j].Key,
				Amount: amount,
			})
		}

		debtorBalance[i] -= amount
		creditorBalance[j] -= amount

		// Move to next debtor/creditor if fully settled
		if debtorBalance[i] == 0 {
			i++
		}
		if creditorBalance[j] == 0 {
			j++
		}
	}
	return edges
}
