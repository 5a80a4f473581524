package entity

import (
	"time"

	"github.com/google/uuid"
)

// User is an account inside a single tenant. Email is unique per tenant.
type User struct {
	ID            uuid.UUID // The Global Unique Identifier (GUID) for the user.
	TenantID      uuid.UUID // The tenant this account belongs to.
	Email         string    // Login identifier, stored lowercase.
	PasswordHash  *string   // bcrypt hash; nil for accounts created through OAuth only.
	FullName      string    // Display name.
	IsActive      bool      // Inactive accounts cannot log in or refresh.
	IsSuperuser   bool      // Bypasses permission gates inside its own tenant.
	OAuthProvider *string   // Linked provider name, e.g. "google".
	OAuthID       *string   // The user's identifier at OAuthProvider.
	CreatedAt     time.Time // Timestamp of when this user account was created.
	UpdatedAt     time.Time // Timestamp of the last modification to this user's data.
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// LinkOAuth attaches an external identity to the account.
func (u *User) LinkOAuth(provider, providerUserID string) {
	u.OAuthProvider = &provider
	u.OAuthID = &providerUserID
}
