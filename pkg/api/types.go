// Package api defines the request and response messages of the
// splitledger.v1 services. Messages travel as JSON; see apiconnect.
package api

import "github.com/mmynk/splitledger/internal/models"

// Expense documents travel as stored.
type (
	Expense     = models.Expense
	Participant = models.Participant
	Item        = models.Item
	Fee         = models.Fee
	SplitRecord = models.SplitRecord
)

// User is the public view of an account.
type User struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	CreatedAt   int64  `json:"createdAt,omitempty"`
}

type RegisterRequest struct {
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Password    string `json:"password"`
}

type RegisterResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type GetCurrentUserRequest struct{}

type GetCurrentUserResponse struct {
	User *User `json:"user"`
}

type CreateExpenseRequest struct {
	Expense *Expense `json:"expense"`
}

type CreateExpenseResponse struct {
	Expense *Expense `json:"expense"`

	// FilledSplits counts split arrays computed by the server because the
	// submitted ones were missing or did not add up.
	FilledSplits int `json:"filledSplits"`
}

type GetExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type GetExpenseResponse struct {
	Expense *Expense `json:"expense"`
}

type UpdateExpenseRequest struct {
	Expense *Expense `json:"expense"`
}

type UpdateExpenseResponse struct {
	Expense      *Expense `json:"expense"`
	FilledSplits int      `json:"filledSplits"`
}

type DeleteExpenseRequest struct {
	ExpenseID string `json:"expenseId"`
}

type DeleteExpenseResponse struct{}

type ListExpensesRequest struct{}

type ListExpensesResponse struct {
	Expenses []*Expense `json:"expenses"`
}

type RemoveParticipantRequest struct {
	ExpenseID        string `json:"expenseId"`
	ParticipantIndex int    `json:"participantIndex"`
}

type RemoveParticipantResponse struct {
	Expense *Expense `json:"expense"`
}

// SkippedPart is an expense part left out of a balance.
type SkippedPart struct {
	ExpenseID string `json:"expenseId"`
	Part      string `json:"part"`
	Reason    string `json:"reason"`
}

// Balance amounts are in currency units, rounded to the cent.
type Balance struct {
	TotalOwed     float64            `json:"totalOwed"`
	TotalOwes     float64            `json:"totalOwes"`
	NetBalance    float64            `json:"netBalance"`
	DebtBreakdown map[string]float64 `json:"debtBreakdown"`
	Skipped       []SkippedPart      `json:"skipped,omitempty"`
}

type GetBalancesRequest struct{}

type GetBalancesResponse struct {
	Balance *Balance `json:"balance"`
}

type GetFriendBalanceRequest struct {
	// FriendKey is the friend's user ID or, for participants without an
	// account, their name.
	FriendKey string `json:"friendKey"`
}

type GetFriendBalanceResponse struct {
	Balance *Balance `json:"balance"`
}

type MemberBalance struct {
	Key        string  `json:"key"`
	Name       string  `json:"name"`
	Owed       float64 `json:"owed"`
	Owes       float64 `json:"owes"`
	NetBalance float64 `json:"netBalance"`
}

type Debt struct {
	From   string  `json:"from"`
	To     string  `json:"to"`
	Amount float64 `json:"amount"`
}

type GetGroupBalancesRequest struct {
	// ExpenseIDs narrows the computation; empty means every expense of
	// the caller.
	ExpenseIDs []string `json:"expenseIds,omitempty"`
}

type GetGroupBalancesResponse struct {
	Members []MemberBalance `json:"members"`
	Debts   []Debt          `json:"debts"`
	Skipped []SkippedPart   `json:"skipped,omitempty"`
}

// AllocationEntry is one participant's share in an allocation state.
type AllocationEntry struct {
	Amount float64 `json:"amount"`
	Locked bool    `json:"locked"`
}

type AllocationState struct {
	Total   float64           `json:"total"`
	Entries []AllocationEntry `json:"entries"`
}

// Event kinds accepted by AllocationService.Apply.
const (
	EventSetAmount  = "set_amount"
	EventToggleLock = "toggle_lock"
	EventBlur       = "blur"
	EventSetTotal   = "set_total"
)

// AllocationEvent is one user action. Index is local to the state's
// entries. Value is the typed amount for set_amount (null clears the
// field) and the new total for set_total.
type AllocationEvent struct {
	Kind  string   `json:"kind"`
	Index int      `json:"index"`
	Value *float64 `json:"value"`
}

type InitializeRequest struct {
	Total float64 `json:"total"`

	// Consumers are the global participant indices sharing the amount.
	Consumers []int `json:"consumers"`

	// InitialSplits restores a previously saved allocation.
	InitialSplits []SplitRecord `json:"initialSplits,omitempty"`
}

type InitializeResponse struct {
	State  *AllocationState `json:"state"`
	Splits []SplitRecord    `json:"splits"`
	Error  string           `json:"error,omitempty"`
}

type ApplyRequest struct {
	State     *AllocationState `json:"state"`
	Event     *AllocationEvent `json:"event"`
	Consumers []int            `json:"consumers"`
}

type ApplyResponse struct {
	State  *AllocationState `json:"state"`
	Splits []SplitRecord    `json:"splits"`

	// Error is the validation message for an unbalanced state, empty when
	// the shares add up to the total.
	Error string `json:"error,omitempty"`
}

type EvenSplitRequest struct {
	Amount    float64 `json:"amount"`
	Consumers []int   `json:"consumers"`
}

type EvenSplitResponse struct {
	Splits []SplitRecord `json:"splits"`
}
