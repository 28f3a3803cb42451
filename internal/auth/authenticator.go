package auth

import (
	"context"

	"github.com/mmynk/splitledger/internal/models"
)

// Authenticator registers and signs in users. The service layer only sees
// this interface, so password login can sit next to other methods later.
type Authenticator interface {
	// Register creates an account. The credential's format depends on the
	// implementation; for PasswordAuthenticator it is the plain password.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the user the credential belongs to, or
	// ErrInvalidCredentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential checks a credential before it is stored.
	ValidateCredential(credential string) error
}

var _ Authenticator = (*PasswordAuthenticator)(nil)
