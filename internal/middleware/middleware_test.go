package middleware

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"connectrpc.com/connect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/splitledger/internal/auth"
	"github.com/mmynk/splitledger/internal/models"
)

type ping struct{}

// capture is a handler that records the context it was called with.
func capture(got *context.Context) connect.UnaryFunc {
	return func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		*got = ctx
		return connect.NewResponse(&ping{}), nil
	}
}

func request(authHeader string) *connect.Request[ping] {
	req := connect.NewRequest(&ping{})
	if authHeader != "" {
		req.Header().Set("Authorization", authHeader)
	}
	return req
}

func TestRequireAuth(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)
	user := models.NewUser("alice@example.com", "Alice", "hash")
	token, err := manager.Generate(user)
	require.NoError(t, err)

	var got context.Context
	handler := RequireAuth(manager)(capture(&got))

	_, err = handler(context.Background(), request("Bearer "+token))
	require.NoError(t, err, "valid token rejected")
	assert.Equal(t, user.ID, GetUserID(got))
	assert.Equal(t, user.Email, GetEmail(got))
	assert.Equal(t, "Alice", GetDisplayName(got))

	for _, header := range []string{"", "Bearer", "Basic abc", "Bearer not-a-token"} {
		_, err := handler(context.Background(), request(header))
		var connectErr *connect.Error
		require.ErrorAs(t, err, &connectErr, "header %q", header)
		assert.Equal(t, connect.CodeUnauthenticated, connectErr.Code(), "header %q", header)
	}
}

func TestOptionalAuth(t *testing.T) {
	manager := auth.NewJWTManager("secret", time.Hour)

	var got context.Context
	handler := OptionalAuth(manager)(capture(&got))

	_, err := handler(context.Background(), request("Bearer garbage"))
	require.NoError(t, err, "optional auth should not fail")
	assert.Empty(t, GetUserID(got), "invalid token should not set a user")
}

func TestLoggingInterceptor(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	failing := func(ctx context.Context, req connect.AnyRequest) (connect.AnyResponse, error) {
		return nil, connect.NewError(connect.CodeNotFound, errors.New("missing"))
	}
	_, err := LoggingInterceptor(logger, nil)(failing)(context.Background(), request(""))
	require.Error(t, err, "error should pass through")

	out := buf.String()
	assert.Contains(t, out, "RPC error")
	assert.Contains(t, out, "not_found")
}
