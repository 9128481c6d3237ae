package account

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/LetterVault/lettervault-core/pkg/clients/postgres"
	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// ---------------------------------------------------------------------------
// Store interface
// ---------------------------------------------------------------------------

// Store is the persistence interface for accounts and their settings.
// [PgxStore] is the PostgreSQL implementation; tests substitute fakes.
//
// Lookup methods return a *[lverr.Error] with code
// [lverr.CodeNotFoundAccount] when no account matches.
type Store interface {
	// FindByEmail returns the account with the given email.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// FindByUsername returns the account with the given username.
	FindByUsername(ctx context.Context, username string) (*Account, error)

	// FindByIdentifier returns the account whose email or username equals
	// the given identifier.
	FindByIdentifier(ctx context.Context, identifier string) (*Account, error)

	// FindByFederatedID returns the account linked to the given external
	// provider subject identifier.
	FindByFederatedID(ctx context.Context, subjectID string) (*Account, error)

	// Create inserts the account and its settings in one transaction.
	// A unique violation maps to [lverr.CodeConflictEmail] or
	// [lverr.CodeConflictUsername].
	Create(ctx context.Context, acct *Account, settings *Settings) error

	// Update persists changes to an existing account.
	Update(ctx context.Context, acct *Account) error
}

// ---------------------------------------------------------------------------
// PgxStore
// ---------------------------------------------------------------------------

// PgxStore is the PostgreSQL-backed [Store], built on the shared
// [postgres.Client] so every statement carries tracing and error
// classification.
type PgxStore struct {
	db *postgres.Client
}

// Compile-time assertion that PgxStore implements Store.
var _ Store = (*PgxStore)(nil)

// NewPgxStore creates a Store backed by the given PostgreSQL client.
func NewPgxStore(db *postgres.Client) *PgxStore {
	return &PgxStore{db: db}
}

// accountColumns is the column list shared by all account queries, in
// scanAccount order.
const accountColumns = `id, email, username, password_hash, federated_id, display_name,
	active, email_verified, created_at, updated_at, last_login_at`

const (
	sqlFindByEmail = `SELECT ` + accountColumns + `
		FROM accounts WHERE email = $1`

	sqlFindByUsername = `SELECT ` + accountColumns + `
		FROM accounts WHERE username = $1`

	sqlFindByIdentifier = `SELECT ` + accountColumns + `
		FROM accounts WHERE email = lower($1) OR username = $1`

	sqlFindByFederatedID = `SELECT ` + accountColumns + `
		FROM accounts WHERE federated_id = $1`

	sqlInsertAccount = `INSERT INTO accounts
		(id, email, username, password_hash, federated_id, display_name,
		 active, email_verified, created_at, updated_at, last_login_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	sqlInsertSettings = `INSERT INTO account_settings
		(account_id, privacy, notify_new_mail, notify_comments,
		 notify_buddy_requests, notify_newsletter, timezone)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	sqlUpdateAccount = `UPDATE accounts SET
		email = $2, username = $3, password_hash = $4, federated_id = $5,
		display_name = $6, active = $7, email_verified = $8,
		updated_at = $9, last_login_at = $10
		WHERE id = $1`
)

// FindByEmail returns the account with the given email.
func (s *PgxStore) FindByEmail(ctx context.Context, email string) (*Account, error) {
	return s.findOne(ctx, sqlFindByEmail, email)
}

// FindByUsername returns the account with the given username.
func (s *PgxStore) FindByUsername(ctx context.Context, username string) (*Account, error) {
	return s.findOne(ctx, sqlFindByUsername, username)
}

// FindByIdentifier returns the account whose email or username equals the
// given identifier. A single query covers both branches of the login
// lookup. Stored emails are normalized to lowercase, so the email branch
// lowercases the identifier to match however the caller cased it; the
// username branch stays exact.
func (s *PgxStore) FindByIdentifier(ctx context.Context, identifier string) (*Account, error) {
	return s.findOne(ctx, sqlFindByIdentifier, identifier)
}

// FindByFederatedID returns the account linked to the given provider
// subject identifier.
func (s *PgxStore) FindByFederatedID(ctx context.Context, subjectID string) (*Account, error) {
	return s.findOne(ctx, sqlFindByFederatedID, subjectID)
}

// findOne runs a single-row account query and scans the result.
func (s *PgxStore) findOne(ctx context.Context, sql string, arg any) (*Account, error) {
	row := s.db.QueryRow(ctx, sql, arg)

	var acct Account
	err := row.Scan(
		&acct.ID, &acct.Email, &acct.Username, &acct.PasswordHash,
		&acct.FederatedID, &acct.DisplayName, &acct.Active, &acct.EmailVerified,
		&acct.CreatedAt, &acct.UpdatedAt, &acct.LastLoginAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, lverr.New(lverr.CodeNotFoundAccount, "account: not found")
		}
		return nil, mapStoreError(err, "account: lookup failed")
	}
	return &acct, nil
}

// Create inserts the account and its default settings atomically. A
// failure of either insert rolls back the whole operation, so an account
// without settings is never observable.
func (s *PgxStore) Create(ctx context.Context, acct *Account, settings *Settings) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, sqlInsertAccount,
		acct.ID, acct.Email, acct.Username, acct.PasswordHash,
		acct.FederatedID, acct.DisplayName, acct.Active, acct.EmailVerified,
		acct.CreatedAt, acct.UpdatedAt, acct.LastLoginAt,
	)
	if err != nil {
		return mapStoreError(err, "account: failed to insert account")
	}

	_, err = tx.Exec(ctx, sqlInsertSettings,
		settings.AccountID, settings.Privacy, settings.NotifyNewMail,
		settings.NotifyComments, settings.NotifyBuddyRequests,
		settings.NotifyNewsletter, settings.Timezone,
	)
	if err != nil {
		return mapStoreError(err, "account: failed to insert settings")
	}

	if err := tx.Commit(ctx); err != nil {
		return mapStoreError(err, "account: failed to commit creation")
	}
	return nil
}

// Update persists changes to an existing account.
func (s *PgxStore) Update(ctx context.Context, acct *Account) error {
	tag, err := s.db.Exec(ctx, sqlUpdateAccount,
		acct.ID, acct.Email, acct.Username, acct.PasswordHash,
		acct.FederatedID, acct.DisplayName, acct.Active, acct.EmailVerified,
		acct.UpdatedAt, acct.LastLoginAt,
	)
	if err != nil {
		return mapStoreError(err, "account: failed to update account")
	}
	if tag.RowsAffected() == 0 {
		return lverr.New(lverr.CodeNotFoundAccount, "account: not found")
	}
	return nil
}

// mapStoreError classifies a database error. Unique violations on the
// email, username, and federated-id constraints become the matching
// conflict codes; platform errors pass through unchanged; anything else
// wraps as a database failure.
func mapStoreError(err error, message string) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch {
		case strings.Contains(pgErr.ConstraintName, "email"):
			return lverr.Wrap(err, lverr.CodeConflictEmail,
				"account: email already registered")
		case strings.Contains(pgErr.ConstraintName, "username"):
			return lverr.Wrap(err, lverr.CodeConflictUsername,
				"account: username already taken")
		default:
			return lverr.Wrap(err, lverr.CodeConflict,
				"account: unique constraint violated")
		}
	}

	var lvErr *lverr.Error
	if errors.As(err, &lvErr) {
		return lvErr
	}
	return lverr.Wrap(err, lverr.CodeInternalDatabase, message)
}
