package models

import (
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/mmynk/splitledger/internal/money"
)

// SplitType selects how an expense's items or a fee are divided.
type SplitType string

const (
	// SplitEven divides an amount equally.
	SplitEven SplitType = "even"
	// SplitCustom uses the persisted split records as-is.
	SplitCustom SplitType = "custom"
	// SplitEqual is the fee spelling of SplitEven.
	SplitEqual SplitType = "equal"
	// SplitProportional divides a fee in proportion to item consumption,
	// using the persisted split records.
	SplitProportional SplitType = "proportional"
)

// IsEven reports whether t divides amounts equally.
// An unset split type is treated as even.
func (t SplitType) IsEven() bool {
	return t == SplitEven || t == SplitEqual || t == ""
}

// FeeType says how a fee's amount is derived.
type FeeType string

const (
	FeePercentage FeeType = "percentage"
	FeeFixed      FeeType = "fixed"
)

// Participant is one member of an expense's split group.
type Participant struct {
	// ID is a stable identifier (UUID format) for this participant within
	// the expense. It does not change when other participants are removed.
	ID string `json:"id"`

	// Name is the display name.
	Name string `json:"name"`

	// UserRef optionally links the participant to a registered User.ID.
	UserRef string `json:"userRef,omitempty"`

	// Contact is an optional phone number or payment handle.
	Contact string `json:"contact,omitempty"`

	// Avatar is an optional avatar reference.
	Avatar string `json:"avatar,omitempty"`
}

// Key returns the identifier the ledger groups balances by:
// the user reference when present, the name otherwise.
func (p Participant) Key() string {
	if p.UserRef != "" {
		return p.UserRef
	}
	return p.Name
}

// NewParticipant returns a participant with a fresh stable ID.
func NewParticipant(name, userRef string) Participant {
	return Participant{ID: uuid.New().String(), Name: name, UserRef: userRef}
}

// SplitRecord is one participant's share of an item, fee or expense.
type SplitRecord struct {
	ParticipantIndex int     `json:"participantIndex"`
	Amount           float64 `json:"amount"`
	Percentage       float64 `json:"percentage,omitempty"`
}

// Item is a single line on an expense.
type Item struct {
	Name              string        `json:"name,omitempty"`
	Amount            float64       `json:"amount"`
	SelectedConsumers []int         `json:"selectedConsumers"`
	SelectedPayers    []int         `json:"selectedPayers,omitempty"`
	Splits            []SplitRecord `json:"splits"`
}

// Fee is a tax, tip or service charge applied on top of the items.
type Fee struct {
	Name              string        `json:"name,omitempty"`
	Type              FeeType       `json:"type"`
	Value             float64       `json:"value"`
	Amount            float64       `json:"amount"`
	SplitType         SplitType     `json:"splitType"`
	SelectedConsumers []int         `json:"selectedConsumers,omitempty"`
	SelectedPayers    []int         `json:"selectedPayers,omitempty"`
	Splits            []SplitRecord `json:"splits"`
}

// Expense is a shared bill.
type Expense struct {
	// ID is the unique identifier for the expense (UUID format).
	ID string `json:"id"`

	Title string  `json:"title"`
	Total float64 `json:"total"`

	// Participants is the ordered split group. All index references in
	// the document point into this slice.
	Participants []Participant `json:"participants"`

	// PaidBy lists the participants who paid. Items and fees may override
	// it with SelectedPayers.
	PaidBy []int `json:"paidBy"`

	// SplitType applies to the items: even or custom.
	SplitType SplitType `json:"splitType"`

	Items []Item `json:"items"`
	Fees  []Fee  `json:"fees"`

	// Splits divides Total directly when the expense has no items.
	Splits []SplitRecord `json:"splits,omitempty"`

	// CreatedBy is the user ID that created the expense.
	CreatedBy string `json:"createdBy,omitempty"`

	// CreatedAt and UpdatedAt are Unix timestamps.
	CreatedAt int64 `json:"createdAt"`
	UpdatedAt int64 `json:"updatedAt"`
}

// ParticipantIndex returns the index of the participant whose Key or ID
// matches key, or -1.
func (e *Expense) ParticipantIndex(key string) int {
	if key == "" {
		return -1
	}
	for i, p := range e.Participants {
		if p.Key() == key || p.ID == key {
			return i
		}
	}
	return -1
}

// Subtotal returns the sum of item amounts.
func (e *Expense) Subtotal() float64 {
	var sum float64
	for _, item := range e.Items {
		sum += item.Amount
	}
	return sum
}

// Validate checks that every index reference in the document points at a
// participant. The ledger tolerates broken documents; the service layer
// rejects them on write.
func (e *Expense) Validate() error {
	n := len(e.Participants)
	if n == 0 {
		return fmt.Errorf("expense must have at least one participant")
	}
	if err := checkIndices("paidBy", e.PaidBy, n); err != nil {
		return err
	}
	if err := checkSplits("expense splits", e.Splits, n); err != nil {
		return err
	}
	for i, item := range e.Items {
		if err := checkIndices(fmt.Sprintf("item %d consumers", i), item.SelectedConsumers, n); err != nil {
			return err
		}
		if err := checkIndices(fmt.Sprintf("item %d payers", i), item.SelectedPayers, n); err != nil {
			return err
		}
		if err := checkSplits(fmt.Sprintf("item %d splits", i), item.Splits, n); err != nil {
			return err
		}
		if item.Amount < 0 {
			return fmt.Errorf("item %d: amount cannot be negative", i)
		}
	}
	for i, fee := range e.Fees {
		if err := checkIndices(fmt.Sprintf("fee %d consumers", i), fee.SelectedConsumers, n); err != nil {
			return err
		}
		if err := checkIndices(fmt.Sprintf("fee %d payers", i), fee.SelectedPayers, n); err != nil {
			return err
		}
		if err := checkSplits(fmt.Sprintf("fee %d splits", i), fee.Splits, n); err != nil {
			return err
		}
		if fee.Type != FeePercentage && fee.Type != FeeFixed {
			return fmt.Errorf("fee %d: unknown fee type %q", i, fee.Type)
		}
	}
	return nil
}

func checkIndices(field string, indices []int, n int) error {
	for _, idx := range indices {
		if idx < 0 || idx >= n {
			return fmt.Errorf("%s: participant index %d out of range", field, idx)
		}
	}
	return nil
}

func checkSplits(field string, splits []SplitRecord, n int) error {
	for _, s := range splits {
		if s.ParticipantIndex < 0 || s.ParticipantIndex >= n {
			return fmt.Errorf("%s: participant index %d out of range", field, s.ParticipantIndex)
		}
		if s.Amount < 0 {
			return fmt.Errorf("%s: amount cannot be negative", field)
		}
	}
	return nil
}

// AmountCents resolves the fee's amount against the items subtotal.
// Fixed fees use Value and percentage fees take Value percent of subtotal,
// so a percentage fee follows every change to the items. A stored Amount
// is only used when Value is unset. It reports false for non-numeric input.
func (f Fee) AmountCents(subtotal money.Cents) (money.Cents, bool) {
	if f.Value == 0 && f.Amount != 0 {
		return money.FromFloat(f.Amount)
	}
	switch f.Type {
	case FeeFixed:
		return money.FromFloat(f.Value)
	case FeePercentage:
		if math.IsNaN(f.Value) || math.IsInf(f.Value, 0) {
			return 0, false
		}
		pct := decimal.NewFromFloat(f.Value)
		return money.FromDecimal(subtotal.Decimal().Mul(pct).Div(decimal.NewFromInt(100))), true
	default:
		return 0, false
	}
}
