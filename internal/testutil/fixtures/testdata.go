// Package fixtures provides shared test data constants and schema
// definitions for the LetterVault Core test suite.
//
// Using common constants for test account identities prevents magic
// strings in tests and ensures consistency across packages.
package fixtures

// Standard account identity values used across account and integration
// tests.
const (
	// Email is the default account email for tests.
	Email = "alice@lettervault.test"

	// Username is the default account username for tests.
	Username = "alice"

	// Password is the default plaintext password for tests. This is a
	// deliberately weak value suitable only for test accounts.
	Password = "correct-horse-battery"

	// AltEmail is an alternative email for tests requiring two accounts.
	AltEmail = "bob@lettervault.test"

	// AltUsername is an alternative username for tests requiring two
	// accounts.
	AltUsername = "bob"

	// GoogleSubject is the default federated subject identifier for
	// federation tests.
	GoogleSubject = "google-subject-1001"

	// DisplayName is the default display name asserted by the federation
	// provider in tests.
	DisplayName = "Alice Example"
)

// Standard token values used in auth tests.
const (
	// SigningKey is a 32-byte HMAC signing key for test token services.
	// This value is suitable only for tests.
	SigningKey = "0123456789abcdef0123456789abcdef"
)

// AccountsSchema creates the accounts and account_settings tables used by
// the account store. Integration tests apply it against an ephemeral
// PostgreSQL container before exercising the store.
const AccountsSchema = `
CREATE TABLE IF NOT EXISTS accounts (
	id              UUID PRIMARY KEY,
	email           TEXT NOT NULL,
	username        TEXT,
	password_hash   TEXT,
	federated_id    TEXT,
	display_name    TEXT,
	active          BOOLEAN NOT NULL DEFAULT TRUE,
	email_verified  BOOLEAN NOT NULL DEFAULT FALSE,
	created_at      TIMESTAMPTZ NOT NULL,
	updated_at      TIMESTAMPTZ NOT NULL,
	last_login_at   TIMESTAMPTZ,
	CONSTRAINT accounts_email_key UNIQUE (email),
	CONSTRAINT accounts_username_key UNIQUE (username),
	CONSTRAINT accounts_federated_id_key UNIQUE (federated_id)
);

CREATE TABLE IF NOT EXISTS account_settings (
	account_id             UUID PRIMARY KEY REFERENCES accounts(id) ON DELETE CASCADE,
	privacy                TEXT NOT NULL,
	notify_new_mail        BOOLEAN NOT NULL,
	notify_comments        BOOLEAN NOT NULL,
	notify_buddy_requests  BOOLEAN NOT NULL,
	notify_newsletter      BOOLEAN NOT NULL,
	timezone               TEXT NOT NULL
);
`

// LettersSchema creates the letters table used by the resource store.
const LettersSchema = `
CREATE TABLE IF NOT EXISTS letters (
	id            UUID PRIMARY KEY,
	owner_id      UUID NOT NULL,
	object_key    TEXT NOT NULL,
	content_type  TEXT NOT NULL,
	direction     TEXT NOT NULL,
	title         TEXT,
	notes         TEXT,
	mail_date     TIMESTAMPTZ,
	created_at    TIMESTAMPTZ NOT NULL
);
`
