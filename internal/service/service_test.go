package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/middleware"
	"github.com/mmynk/splitledger/internal/storage/sqlite"
	"github.com/mmynk/splitledger/pkg/api/apiconnect"
)

const (
	aliceID = "alice-id"
	bobID   = "bob-id"
)

// testUserHeader selects the caller in tests; the default is Alice.
const testUserHeader = "X-Test-User"

// testAuthInterceptor returns a Connect interceptor that sets a test user ID in the context.
func testAuthInterceptor() connect.UnaryInterceptorFunc {
	return func(next connect.UnaryFunc) connect.UnaryFunc {
		return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
			userID := req.Header().Get(testUserHeader)
			if userID == "" {
				userID = aliceID
			}
			ctx = context.WithValue(ctx, middleware.UserIDKey, userID)
			return next(ctx, req)
		}
	}
}

// setupTestServer creates a test server backed by a temporary SQLite database.
func setupTestServer(t *testing.T) (apiconnect.ExpenseServiceClient, apiconnect.AllocationServiceClient, func()) {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err, "failed to create store")

	authInterceptor := connect.WithInterceptors(testAuthInterceptor())
	expensePath, expenseHandler := apiconnect.NewExpenseServiceHandler(NewExpenseService(store, nil, nil), authInterceptor)
	allocationPath, allocationHandler := apiconnect.NewAllocationServiceHandler(NewAllocationService(nil))

	mux := http.NewServeMux()
	mux.Handle(expensePath, expenseHandler)
	mux.Handle(allocationPath, allocationHandler)

	server := httptest.NewServer(mux)

	expenseClient := apiconnect.NewExpenseServiceClient(http.DefaultClient, server.URL)
	allocationClient := apiconnect.NewAllocationServiceClient(http.DefaultClient, server.URL)

	cleanup := func() {
		server.Close()
		store.Close()
	}
	return expenseClient, allocationClient, cleanup
}

func as[T any](userID string, msg *T) *connect.Request[T] {
	req := connect.NewRequest(msg)
	req.Header().Set(testUserHeader, userID)
	return req
}

func errorCode(t *testing.T, err error) connect.Code {
	t.Helper()
	var connectErr *connect.Error
	require.ErrorAs(t, err, &connectErr)
	return connectErr.Code()
}
