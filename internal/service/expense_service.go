package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"connectrpc.com/connect"
	"github.com/mmynk/splitledger/internal/allocation"
	"github.com/mmynk/splitledger/internal/ledger"
	"github.com/mmynk/splitledger/internal/metrics"
	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/internal/storage"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

var errAuthRequired = errors.New("authentication required")

// ExpenseService implements the Connect ExpenseService.
type ExpenseService struct {
	store   storage.Store
	calc    *ledger.Calculator
	metrics *metrics.Metrics
}

var _ apiconnect.ExpenseServiceHandler = (*ExpenseService)(nil)

// NewExpenseService creates a new ExpenseService with the given storage
// backend. A nil calc uses the default ledger settings; nil m records
// into unregistered metrics.
func NewExpenseService(store storage.Store, calc *ledger.Calculator, m *metrics.Metrics) *ExpenseService {
	if calc == nil {
		calc = ledger.New()
	}
	if m == nil {
		m = metrics.New(nil)
	}
	return &ExpenseService{store: store, calc: calc, metrics: m}
}

// isParticipant reports whether the user is linked to one of the expense's
// participants.
func isParticipant(userID string, participants []models.Participant) bool {
	for _, p := range participants {
		if p.UserRef == userID {
			return true
		}
	}
	return false
}

// storeError maps a storage error to a connect error.
func storeError(err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return connect.NewError(connect.CodeNotFound, err)
	}
	return connect.NewError(connect.CodeInternal, err)
}

func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errAuthRequired)
	}
	return userID, nil
}

// prepare validates an incoming expense and fills in any split arrays that
// are missing or no longer add up.
func (s *ExpenseService) prepare(userID string, exp *models.Expense) (int, error) {
	if err := exp.Validate(); err != nil {
		return 0, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if !isParticipant(userID, exp.Participants) {
		return 0, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you must be a participant in this expense"))
	}
	filled := allocation.FillSplits(exp)
	s.metrics.SplitsFilled.Add(float64(filled))
	return filled, nil
}

// loadOwned fetches an expense the caller takes part in.
func (s *ExpenseService) loadOwned(ctx context.Context, userID, expenseID string) (*models.Expense, error) {
	if expenseID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("expense_id required"))
	}
	exp, err := s.store.GetExpense(ctx, expenseID)
	if err != nil {
		slog.Error("failed to get expense", "expense_id", expenseID, "error", err)
		return nil, storeError(err)
	}
	if !isParticipant(userID, exp.Participants) {
		return nil, connect.NewError(connect.CodePermissionDenied, fmt.Errorf("you must be a participant in this expense"))
	}
	return exp, nil
}

// CreateExpense validates and stores a new expense.
func (s *ExpenseService) CreateExpense(ctx context.Context, req *connect.Request[api.CreateExpenseRequest]) (*connect.Response[api.CreateExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.Expense == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("expense required"))
	}

	exp := *req.Msg.Expense
	exp.ID = ""
	exp.CreatedAt = 0
	filled, err := s.prepare(userID, &exp)
	if err != nil {
		slog.Warn("CreateExpense rejected", "user_id", userID, "error", err)
		return nil, err
	}
	exp.CreatedBy = userID

	if err := s.store.CreateExpense(ctx, &exp); err != nil {
		slog.Error("CreateExpense failed", "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	s.metrics.ExpenseWrites.WithLabelValues("create").Inc()

	slog.Debug("expense created", "expense_id", exp.ID, "participants", len(exp.Participants), "filled_splits", filled)
	return connect.NewResponse(&api.CreateExpenseResponse{Expense: &exp, FilledSplits: filled}), nil
}

// GetExpense retrieves an expense by ID.
func (s *ExpenseService) GetExpense(ctx context.Context, req *connect.Request[api.GetExpenseRequest]) (*connect.Response[api.GetExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	exp, err := s.loadOwned(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}
	return connect.NewResponse(&api.GetExpenseResponse{Expense: exp}), nil
}

// UpdateExpense replaces an expense document.
func (s *ExpenseService) UpdateExpense(ctx context.Context, req *connect.Request[api.UpdateExpenseRequest]) (*connect.Response[api.UpdateExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.Expense == nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("expense required"))
	}

	// The caller must be in the stored version, not just the submitted one
	if _, err := s.loadOwned(ctx, userID, req.Msg.Expense.ID); err != nil {
		return nil, err
	}

	exp := *req.Msg.Expense
	filled, err := s.prepare(userID, &exp)
	if err != nil {
		slog.Warn("UpdateExpense rejected", "expense_id", exp.ID, "error", err)
		return nil, err
	}

	if err := s.store.UpdateExpense(ctx, &exp); err != nil {
		slog.Error("UpdateExpense failed", "expense_id", exp.ID, "error", err)
		return nil, storeError(err)
	}
	s.metrics.ExpenseWrites.WithLabelValues("update").Inc()

	return connect.NewResponse(&api.UpdateExpenseResponse{Expense: &exp, FilledSplits: filled}), nil
}

// DeleteExpense deletes an expense.
func (s *ExpenseService) DeleteExpense(ctx context.Context, req *connect.Request[api.DeleteExpenseRequest]) (*connect.Response[api.DeleteExpenseResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if _, err := s.loadOwned(ctx, userID, req.Msg.ExpenseID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteExpense(ctx, req.Msg.ExpenseID); err != nil {
		slog.Error("DeleteExpense failed", "error", err)
		return nil, storeError(err)
	}
	s.metrics.ExpenseWrites.WithLabelValues("delete").Inc()

	return connect.NewResponse(&api.DeleteExpenseResponse{}), nil
}

// ListExpenses returns every expense the caller takes part in.
func (s *ExpenseService) ListExpenses(ctx context.Context, req *connect.Request[api.ListExpensesRequest]) (*connect.Response[api.ListExpensesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		slog.Error("ListExpenses failed", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	if expenses == nil {
		expenses = []*models.Expense{}
	}
	return connect.NewResponse(&api.ListExpensesResponse{Expenses: expenses}), nil
}

// RemoveParticipant drops one participant from an expense, reindexes the
// document and recomputes the splits that no longer add up.
func (s *ExpenseService) RemoveParticipant(ctx context.Context, req *connect.Request[api.RemoveParticipantRequest]) (*connect.Response[api.RemoveParticipantResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	exp, err := s.loadOwned(ctx, userID, req.Msg.ExpenseID)
	if err != nil {
		return nil, err
	}
	if len(exp.Participants) == 1 {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("cannot remove the last participant"))
	}

	if err := exp.RemoveParticipant(req.Msg.ParticipantIndex); err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	if !isParticipant(userID, exp.Participants) {
		return nil, connect.NewError(connect.CodeFailedPrecondition, fmt.Errorf("cannot remove yourself from an expense"))
	}
	filled := allocation.FillSplits(exp)
	s.metrics.SplitsFilled.Add(float64(filled))

	if err := s.store.UpdateExpense(ctx, exp); err != nil {
		slog.Error("RemoveParticipant failed", "expense_id", exp.ID, "error", err)
		return nil, storeError(err)
	}
	s.metrics.ExpenseWrites.WithLabelValues("remove_participant").Inc()

	return connect.NewResponse(&api.RemoveParticipantResponse{Expense: exp}), nil
}

// expensesFor loads the caller's expenses for a balance computation.
func (s *ExpenseService) expensesFor(ctx context.Context, userID string) ([]models.Expense, error) {
	stored, err := s.store.ListExpensesByUser(ctx, userID)
	if err != nil {
		slog.Error("failed to list expenses", "user_id", userID, "error", err)
		return nil, connect.NewError(connect.CodeInternal, err)
	}
	expenses := make([]models.Expense, len(stored))
	for i, exp := range stored {
		expenses[i] = *exp
	}
	return expenses, nil
}

// GetBalances returns what the caller is owed and owes across all of their
// expenses.
func (s *ExpenseService) GetBalances(ctx context.Context, req *connect.Request[api.GetBalancesRequest]) (*connect.Response[api.GetBalancesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expensesFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	bal := s.calc.ComputeBalances(expenses, userID)
	s.metrics.ObserveBalance("user", len(expenses), start)
	s.reportSkipped(userID, bal.Skipped)

	return connect.NewResponse(&api.GetBalancesResponse{Balance: toWireBalance(bal)}), nil
}

// GetFriendBalance returns the caller's balance with one other person.
func (s *ExpenseService) GetFriendBalance(ctx context.Context, req *connect.Request[api.GetFriendBalanceRequest]) (*connect.Response[api.GetFriendBalanceResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.FriendKey == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("friend_key required"))
	}
	expenses, err := s.expensesFor(ctx, userID)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	bal := s.calc.ComputeFriendBalance(expenses, userID, req.Msg.FriendKey)
	s.metrics.ObserveBalance("friend", len(expenses), start)
	s.reportSkipped(userID, bal.Skipped)

	return connect.NewResponse(&api.GetFriendBalanceResponse{Balance: toWireBalance(bal)}), nil
}

// GetGroupBalances returns every member's balance across the caller's
// expenses, or the listed subset, with a simplified settlement plan.
func (s *ExpenseService) GetGroupBalances(ctx context.Context, req *connect.Request[api.GetGroupBalancesRequest]) (*connect.Response[api.GetGroupBalancesResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	expenses, err := s.expensesFor(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(req.Msg.ExpenseIDs) > 0 {
		expenses = filterExpenses(expenses, req.Msg.ExpenseIDs)
	}

	start := time.Now()
	members, debts, skipped := s.calc.GroupBalances(expenses)
	s.metrics.ObserveBalance("group", len(expenses), start)
	s.reportSkipped(userID, skipped)

	resp := &api.GetGroupBalancesResponse{
		Members: make([]api.MemberBalance, len(members)),
		Debts:   make([]api.Debt, len(debts)),
		Skipped: toWireSkipped(skipped),
	}
	for i, m := range members {
		resp.Members[i] = api.MemberBalance{
			Key:        m.Key,
			Name:       m.Name,
			Owed:       m.Owed.Float64(),
			Owes:       m.Owes.Float64(),
			NetBalance: m.NetBalance.Float64(),
		}
	}
	for i, d := range debts {
		resp.Debts[i] = api.Debt{From: d.From, To: d.To, Amount: d.Amount.Float64()}
	}
	return connect.NewResponse(resp), nil
}

func filterExpenses(expenses []models.Expense, ids []string) []models.Expense {
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Expense
	for _, exp := range expenses {
		if want[exp.ID] {
			out = append(out, exp)
		}
	}
	return out
}

// reportSkipped logs and counts the expense parts a balance left out.
func (s *ExpenseService) reportSkipped(userID string, issues []ledger.Issue) {
	for _, issue := range issues {
		kind, _, _ := strings.Cut(issue.Part, " ")
		s.metrics.SkippedParts.WithLabelValues(kind).Inc()
		slog.Warn("skipped malformed expense part",
			"user_id", userID,
			"expense_id", issue.ExpenseID,
			"part", issue.Part,
			"reason", issue.Reason,
		)
	}
}

func toWireBalance(bal ledger.Balance) *api.Balance {
	out := &api.Balance{
		TotalOwed:     bal.TotalOwed.Float64(),
		TotalOwes:     bal.TotalOwes.Float64(),
		NetBalance:    bal.NetBalance.Float64(),
		DebtBreakdown: make(map[string]float64, len(bal.DebtBreakdown)),
		Skipped:       toWireSkipped(bal.Skipped),
	}
	for name, amount := range bal.DebtBreakdown {
		out.DebtBreakdown[name] = amount.Float64()
	}
	return out
}

func toWireSkipped(issues []ledger.Issue) []api.SkippedPart {
	if len(issues) == 0 {
		return nil
	}
	out := make([]api.SkippedPart, len(issues))
	for i, issue := range issues {
		out[i] = api.SkippedPart{ExpenseID: issue.ExpenseID, Part: issue.Part, Reason: issue.Reason}
	}
	return out
}
