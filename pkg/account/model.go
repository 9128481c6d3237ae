// Package account maps login credentials and federated identities to
// local account records, creating accounts on registration or first
// federated sign-in.
//
// The package separates persistence from policy: [Store] is the
// persistence interface (implemented for PostgreSQL by [PgxStore]), and
// [Resolver] implements registration, credential authentication, and
// federated sign-in with account linking on top of it.
package account

import (
	"time"

	"github.com/google/uuid"
)

// ---------------------------------------------------------------------------
// Account
// ---------------------------------------------------------------------------

// Account is a unique identity record. Optional fields use pointers so
// that "absent" is distinguishable from an empty value: a federation-only
// account has a nil PasswordHash, not an empty string.
type Account struct {
	// ID is the opaque, globally unique account identifier.
	ID uuid.UUID `json:"id"`

	// Email is the account's unique email address.
	Email string `json:"email"`

	// Username is the optional unique username. Nil when the account was
	// created through federated sign-in and never chose one.
	Username *string `json:"username,omitempty"`

	// PasswordHash is the bcrypt hash of the account's password. Nil for
	// federation-only accounts.
	PasswordHash *string `json:"-"`

	// FederatedID is the external provider's subject identifier, unique
	// when present. Nil until the account links a federated identity.
	FederatedID *string `json:"federated_id,omitempty"`

	// DisplayName is the optional human-readable name.
	DisplayName *string `json:"display_name,omitempty"`

	// Active reports whether the account may authenticate.
	Active bool `json:"active"`

	// EmailVerified reports whether the email address has been confirmed,
	// either locally or by a federated provider's assertion.
	EmailVerified bool `json:"email_verified"`

	// CreatedAt and UpdatedAt track the record's lifecycle.
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// LastLoginAt is the instant of the most recent successful
	// authentication. Nil before the first login.
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
}

// HasPassword reports whether the account can authenticate with a
// password. Federation-only accounts report false.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != nil && *a.PasswordHash != ""
}

// ---------------------------------------------------------------------------
// Settings
// ---------------------------------------------------------------------------

// DefaultPrivacy is the privacy level assigned to new accounts.
const DefaultPrivacy = "private"

// DefaultTimezone is the timezone assigned to new accounts.
const DefaultTimezone = "UTC"

// Settings is the per-account preferences record created together with
// the account. Creation is transactional with account creation: an
// account without settings must never be observable.
type Settings struct {
	// AccountID links the settings to their account.
	AccountID uuid.UUID `json:"account_id"`

	// Privacy controls default visibility of the account's archive.
	Privacy string `json:"privacy"`

	// Notification preferences, all enabled by default.
	NotifyNewMail       bool `json:"notify_new_mail"`
	NotifyComments      bool `json:"notify_comments"`
	NotifyBuddyRequests bool `json:"notify_buddy_requests"`
	NotifyNewsletter    bool `json:"notify_newsletter"`

	// Timezone is the account's preferred timezone name.
	Timezone string `json:"timezone"`
}

// DefaultSettings returns the preferences record created for a new
// account: private archive, all notifications on, UTC.
func DefaultSettings(accountID uuid.UUID) Settings {
	return Settings{
		AccountID:           accountID,
		Privacy:             DefaultPrivacy,
		NotifyNewMail:       true,
		NotifyComments:      true,
		NotifyBuddyRequests: true,
		NotifyNewsletter:    true,
		Timezone:            DefaultTimezone,
	}
}
