package service

import (
	"context"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/models"
	"github.com/mmynk/splitledger/pkg/api"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

// dinner is paid by Alice and shared by Alice, Bob and Carol (no account).
func dinner() *api.Expense {
	return &api.Expense{
		Title: "Dinner",
		Total: 44,
		Participants: []api.Participant{
			{Name: "Alice", UserRef: aliceID},
			{Name: "Bob", UserRef: bobID},
			{Name: "Carol"},
		},
		PaidBy:    []int{0},
		SplitType: models.SplitEven,
		Items: []api.Item{
			{Name: "Pizza", Amount: 30, SelectedConsumers: []int{0, 1, 2}},
			{
				Name: "Drinks", Amount: 10, SelectedConsumers: []int{0, 1},
				Splits: []api.SplitRecord{
					{ParticipantIndex: 0, Amount: 5, Percentage: 50},
					{ParticipantIndex: 1, Amount: 5, Percentage: 50},
				},
			},
		},
		Fees: []api.Fee{
			{Name: "Tip", Type: models.FeePercentage, Value: 10, SplitType: models.SplitEven},
		},
	}
}

// pizzaNight is an even 30.00 split three ways, paid by Alice.
func pizzaNight() *api.Expense {
	return &api.Expense{
		Title: "Pizza night",
		Total: 30,
		Participants: []api.Participant{
			{Name: "Alice", UserRef: aliceID},
			{Name: "Bob", UserRef: bobID},
			{Name: "Carol"},
		},
		PaidBy:    []int{0},
		SplitType: models.SplitEven,
		Items: []api.Item{
			{Name: "Pizza", Amount: 30, SelectedConsumers: []int{0, 1, 2}},
		},
	}
}

func createExpense(t *testing.T, client apiconnect.ExpenseServiceClient, exp *api.Expense) *api.Expense {
	t.Helper()
	resp, err := client.CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{Expense: exp}))
	require.NoError(t, err, "CreateExpense failed")
	return resp.Msg.Expense
}

func splitAmounts(splits []api.SplitRecord) map[int]float64 {
	out := make(map[int]float64, len(splits))
	for _, s := range splits {
		out[s.ParticipantIndex] = s.Amount
	}
	return out
}

func TestCreateExpense_And_GetExpense(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	createResp, err := client.CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{
		Expense: dinner(),
	}))
	require.NoError(t, err)

	created := createResp.Msg.Expense
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, aliceID, created.CreatedBy)
	// Pizza and the tip had no splits; the drinks splits already add up
	assert.Equal(t, 2, createResp.Msg.FilledSplits)

	getResp, err := client.GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{
		ExpenseID: created.ID,
	}))
	require.NoError(t, err)

	got := getResp.Msg.Expense
	assert.Equal(t, "Dinner", got.Title)
	require.Len(t, got.Participants, 3)
	for i, p := range got.Participants {
		assert.NotEmpty(t, p.ID, "participant %d has no stable ID", i)
	}

	assert.Equal(t, map[int]float64{0: 10, 1: 10, 2: 10}, splitAmounts(got.Items[0].Splits))

	tip := got.Fees[0]
	assert.Equal(t, 4.0, tip.Amount)
	assert.Equal(t, map[int]float64{0: 1.34, 1: 1.33, 2: 1.33}, splitAmounts(tip.Splits))
}

func TestCreateExpense_Rejected(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	tests := []struct {
		name   string
		user   string
		mutate func(*api.Expense)
		code   connect.Code
	}{
		{
			name:   "caller not a participant",
			user:   "mallory-id",
			mutate: func(e *api.Expense) {},
			code:   connect.CodePermissionDenied,
		},
		{
			name:   "consumer index out of range",
			user:   aliceID,
			mutate: func(e *api.Expense) { e.Items[0].SelectedConsumers = []int{0, 7} },
			code:   connect.CodeInvalidArgument,
		},
		{
			name:   "no participants",
			user:   aliceID,
			mutate: func(e *api.Expense) { e.Participants = nil },
			code:   connect.CodeInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exp := dinner()
			tt.mutate(exp)
			_, err := client.CreateExpense(context.Background(), as(tt.user, &api.CreateExpenseRequest{Expense: exp}))
			assert.Equal(t, tt.code, errorCode(t, err))
		})
	}

	_, err := client.CreateExpense(context.Background(), connect.NewRequest(&api.CreateExpenseRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, errorCode(t, err), "missing expense")
}

func TestGetExpense_NotFound(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	_, err := client.GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{
		ExpenseID: "nonexistent-id",
	}))
	assert.Equal(t, connect.CodeNotFound, errorCode(t, err))
}

func TestGetExpense_NotParticipant(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	created := createExpense(t, client, dinner())

	_, err := client.GetExpense(context.Background(), as("mallory-id", &api.GetExpenseRequest{ExpenseID: created.ID}))
	assert.Equal(t, connect.CodePermissionDenied, errorCode(t, err))

	// Bob is linked to a participant and can read it
	_, err = client.GetExpense(context.Background(), as(bobID, &api.GetExpenseRequest{ExpenseID: created.ID}))
	assert.NoError(t, err, "participant should read expense")
}

func TestUpdateExpense(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	created := createExpense(t, client, dinner())

	// Raise the pizza price; its stored splits no longer add up and the
	// 10% tip grows with the subtotal
	created.Items[0].Amount = 36
	created.Total = 50
	created.Title = "Late dinner"

	updateResp, err := client.UpdateExpense(context.Background(), connect.NewRequest(&api.UpdateExpenseRequest{
		Expense: created,
	}))
	require.NoError(t, err)
	assert.Equal(t, 2, updateResp.Msg.FilledSplits)

	getResp, err := client.GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{ExpenseID: created.ID}))
	require.NoError(t, err)
	got := getResp.Msg.Expense
	assert.Equal(t, "Late dinner", got.Title)
	assert.Equal(t, map[int]float64{0: 12, 1: 12, 2: 12}, splitAmounts(got.Items[0].Splits))
	assert.Equal(t, 4.6, got.Fees[0].Amount)
	assert.Equal(t, map[int]float64{0: 1.54, 1: 1.53, 2: 1.53}, splitAmounts(got.Fees[0].Splits))
	assert.Equal(t, aliceID, got.CreatedBy, "createdBy should be kept")
}

func TestUpdateExpense_NotFound(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	exp := dinner()
	exp.ID = "nonexistent-id"
	_, err := client.UpdateExpense(context.Background(), connect.NewRequest(&api.UpdateExpenseRequest{Expense: exp}))
	assert.Equal(t, connect.CodeNotFound, errorCode(t, err))
}

func TestDeleteExpense(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	created := createExpense(t, client, dinner())

	_, err := client.DeleteExpense(context.Background(), as("mallory-id", &api.DeleteExpenseRequest{ExpenseID: created.ID}))
	assert.Equal(t, connect.CodePermissionDenied, errorCode(t, err), "non-participant delete")

	_, err = client.DeleteExpense(context.Background(), connect.NewRequest(&api.DeleteExpenseRequest{ExpenseID: created.ID}))
	require.NoError(t, err)

	_, err = client.GetExpense(context.Background(), connect.NewRequest(&api.GetExpenseRequest{ExpenseID: created.ID}))
	assert.Equal(t, connect.CodeNotFound, errorCode(t, err), "after delete")
}

func TestListExpenses(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	createExpense(t, client, dinner())
	createExpense(t, client, pizzaNight())

	// An expense between Bob and Carol only
	bobOnly := pizzaNight()
	bobOnly.Participants = []api.Participant{{Name: "Bob", UserRef: bobID}, {Name: "Carol"}}
	bobOnly.Items[0].SelectedConsumers = []int{0, 1}
	_, err := client.CreateExpense(context.Background(), as(bobID, &api.CreateExpenseRequest{Expense: bobOnly}))
	require.NoError(t, err)

	aliceResp, err := client.ListExpenses(context.Background(), connect.NewRequest(&api.ListExpensesRequest{}))
	require.NoError(t, err)
	assert.Len(t, aliceResp.Msg.Expenses, 2)

	bobResp, err := client.ListExpenses(context.Background(), as(bobID, &api.ListExpensesRequest{}))
	require.NoError(t, err)
	assert.Len(t, bobResp.Msg.Expenses, 3)

	emptyResp, err := client.ListExpenses(context.Background(), as("nobody-id", &api.ListExpensesRequest{}))
	require.NoError(t, err)
	assert.NotNil(t, emptyResp.Msg.Expenses)
	assert.Empty(t, emptyResp.Msg.Expenses)
}

func TestRemoveParticipant(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	created := createExpense(t, client, dinner())
	bobStableID := created.Participants[1].ID

	resp, err := client.RemoveParticipant(context.Background(), connect.NewRequest(&api.RemoveParticipantRequest{
		ExpenseID:        created.ID,
		ParticipantIndex: 2, // Carol
	}))
	require.NoError(t, err)

	got := resp.Msg.Expense
	require.Len(t, got.Participants, 2)
	assert.Equal(t, bobStableID, got.Participants[1].ID, "bob's stable ID changed")

	assert.Equal(t, map[int]float64{0: 15, 1: 15}, splitAmounts(got.Items[0].Splits))
	assert.Equal(t, map[int]float64{0: 5, 1: 5}, splitAmounts(got.Items[1].Splits), "drinks splits should be untouched")
	assert.Equal(t, map[int]float64{0: 2, 1: 2}, splitAmounts(got.Fees[0].Splits))
}

func TestRemoveParticipant_Rejected(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	created := createExpense(t, client, dinner())

	_, err := client.RemoveParticipant(context.Background(), connect.NewRequest(&api.RemoveParticipantRequest{
		ExpenseID: created.ID, ParticipantIndex: 9,
	}))
	assert.Equal(t, connect.CodeInvalidArgument, errorCode(t, err), "out of range")

	_, err = client.RemoveParticipant(context.Background(), connect.NewRequest(&api.RemoveParticipantRequest{
		ExpenseID: created.ID, ParticipantIndex: 0,
	}))
	assert.Equal(t, connect.CodeFailedPrecondition, errorCode(t, err), "removing self")
}

func TestGetBalances(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	createExpense(t, client, pizzaNight())

	aliceResp, err := client.GetBalances(context.Background(), connect.NewRequest(&api.GetBalancesRequest{}))
	require.NoError(t, err)
	alice := aliceResp.Msg.Balance
	assert.Equal(t, 20.0, alice.TotalOwed)
	assert.Equal(t, 0.0, alice.TotalOwes)
	assert.Equal(t, 20.0, alice.NetBalance)
	assert.Equal(t, map[string]float64{"Bob": 10, "Carol": 10}, alice.DebtBreakdown)

	bobResp, err := client.GetBalances(context.Background(), as(bobID, &api.GetBalancesRequest{}))
	require.NoError(t, err)
	bob := bobResp.Msg.Balance
	assert.Equal(t, 10.0, bob.TotalOwes)
	assert.Equal(t, -10.0, bob.NetBalance)
	assert.Equal(t, map[string]float64{"Alice": -10}, bob.DebtBreakdown)
}

func TestGetBalances_MultiplePayers(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	shared := pizzaNight()
	shared.PaidBy = []int{0, 1}
	createExpense(t, client, shared)

	// Both payers are owed every other participant's full share.
	aliceResp, err := client.GetBalances(context.Background(), connect.NewRequest(&api.GetBalancesRequest{}))
	require.NoError(t, err)
	alice := aliceResp.Msg.Balance
	assert.Equal(t, 20.0, alice.TotalOwed)
	assert.Equal(t, 0.0, alice.TotalOwes)
	assert.Equal(t, map[string]float64{"Bob": 10, "Carol": 10}, alice.DebtBreakdown)

	bobResp, err := client.GetBalances(context.Background(), as(bobID, &api.GetBalancesRequest{}))
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"Alice": 10, "Carol": 10}, bobResp.Msg.Balance.DebtBreakdown)
}

func TestGetBalances_ReportsSkippedParts(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	createExpense(t, client, pizzaNight())

	// Nobody paid for this one, so none of it can be attributed
	unpaid := pizzaNight()
	unpaid.PaidBy = nil
	createExpense(t, client, unpaid)

	resp, err := client.GetBalances(context.Background(), connect.NewRequest(&api.GetBalancesRequest{}))
	require.NoError(t, err)
	bal := resp.Msg.Balance
	assert.Equal(t, 20.0, bal.TotalOwed, "valid expense should still count")
	require.Len(t, bal.Skipped, 1)
	assert.Equal(t, "item 0", bal.Skipped[0].Part)
}

func TestGetFriendBalance(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	createExpense(t, client, pizzaNight())

	resp, err := client.GetFriendBalance(context.Background(), connect.NewRequest(&api.GetFriendBalanceRequest{
		FriendKey: bobID,
	}))
	require.NoError(t, err)
	bal := resp.Msg.Balance
	assert.Equal(t, 10.0, bal.TotalOwed)
	assert.Equal(t, 10.0, bal.NetBalance)
	assert.NotContains(t, bal.DebtBreakdown, "Carol", "friend balance should only include bob")

	_, err = client.GetFriendBalance(context.Background(), connect.NewRequest(&api.GetFriendBalanceRequest{}))
	assert.Equal(t, connect.CodeInvalidArgument, errorCode(t, err), "missing friend")
}

func TestGetGroupBalances(t *testing.T) {
	client, _, cleanup := setupTestServer(t)
	defer cleanup()

	first := createExpense(t, client, pizzaNight())

	// Bob pays for the second round
	second := pizzaNight()
	second.PaidBy = []int{1}
	createExpense(t, client, second)

	resp, err := client.GetGroupBalances(context.Background(), connect.NewRequest(&api.GetGroupBalancesRequest{}))
	require.NoError(t, err)

	net := make(map[string]float64)
	for _, m := range resp.Msg.Members {
		net[m.Key] = m.NetBalance
	}
	// Alice and Bob each paid 30 and owe 20; Carol owes 20
	assert.Equal(t, map[string]float64{aliceID: 10, bobID: 10, "Carol": -20}, net)

	var settled float64
	for _, d := range resp.Msg.Debts {
		assert.Equal(t, "Carol", d.From, "only Carol should pay")
		settled += d.Amount
	}
	assert.Equal(t, 20.0, settled)

	// Restricting to the first expense
	resp, err = client.GetGroupBalances(context.Background(), connect.NewRequest(&api.GetGroupBalancesRequest{
		ExpenseIDs: []string{first.ID},
	}))
	require.NoError(t, err)
	assert.Len(t, resp.Msg.Debts, 2)
}
