package account

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LetterVault/lettervault-core/pkg/auth"
	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
	"github.com/LetterVault/lettervault-core/pkg/federation"
)

// tracerName is the OpenTelemetry instrumentation scope name for account
// spans.
const tracerName = "github.com/LetterVault/lettervault-core/pkg/account"

// ---------------------------------------------------------------------------
// Resolver
// ---------------------------------------------------------------------------

// Resolver maps credentials and federated identities to local accounts.
// It implements registration, credential authentication with anti-
// enumeration semantics, and federated sign-in with account linking.
//
// Resolver is safe for concurrent use by multiple goroutines.
type Resolver struct {
	store  Store
	hasher *auth.Hasher
	tracer trace.Tracer
	now    func() time.Time
}

// ResolverOption customizes a [Resolver].
type ResolverOption func(*Resolver)

// WithClock overrides the time source used for record timestamps.
// Intended for tests.
func WithClock(now func() time.Time) ResolverOption {
	return func(r *Resolver) { r.now = now }
}

// NewResolver creates a Resolver over the given store and hasher.
func NewResolver(store Store, hasher *auth.Hasher, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		store:  store,
		hasher: hasher,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register creates a new password-backed account together with its
// default settings. The email must be unused; the username, when given,
// must be unused as well.
//
// Error codes:
//   - [lverr.CodeConflictEmail]: email already registered
//   - [lverr.CodeConflictUsername]: username already taken
//   - [lverr.CodeValidation]: empty email or unusable password
func (r *Resolver) Register(ctx context.Context, email string, username *string, password string) (*Account, error) {
	ctx, span := r.tracer.Start(ctx, "account.Register")
	defer span.End()

	email = normalizeEmail(email)
	if email == "" {
		err := lverr.New(lverr.CodeValidation, "account: email must not be empty")
		recordSpanError(span, err)
		return nil, err
	}

	// Pre-checks give friendly conflict errors; the unique constraints
	// in Create remain the authority under concurrent registration.
	if err := r.checkEmailFree(ctx, email); err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if username != nil {
		if err := r.checkUsernameFree(ctx, *username); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
	}

	hash, err := r.hasher.Hash(password)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	now := r.now()
	acct := &Account{
		ID:            uuid.New(),
		Email:         email,
		Username:      username,
		PasswordHash:  &hash,
		Active:        true,
		EmailVerified: false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	settings := DefaultSettings(acct.ID)

	if err := r.store.Create(ctx, acct, &settings); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("account.id", acct.ID.String()))
	return acct, nil
}

// Authenticate verifies the given identifier (email or username) and
// password. An unknown identifier, a federation-only account, an
// inactive account, and a wrong password all fail identically with
// [lverr.CodeAuthenticationCredentials] so that responses cannot be used
// to enumerate registered accounts. On success the last-authenticated
// timestamp is recorded.
func (r *Resolver) Authenticate(ctx context.Context, identifier, password string) (*Account, error) {
	ctx, span := r.tracer.Start(ctx, "account.Authenticate")
	defer span.End()

	invalid := lverr.New(lverr.CodeAuthenticationCredentials, "account: invalid credentials")

	acct, err := r.store.FindByIdentifier(ctx, strings.TrimSpace(identifier))
	if err != nil {
		if lverr.IsNotFound(err) {
			recordSpanError(span, invalid)
			return nil, invalid
		}
		recordSpanError(span, err)
		return nil, err
	}

	if !acct.Active || !acct.HasPassword() || !r.hasher.Verify(password, *acct.PasswordHash) {
		recordSpanError(span, invalid)
		return nil, invalid
	}

	if err := r.touchLogin(ctx, acct); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("account.id", acct.ID.String()))
	return acct, nil
}

// ResolveFederated maps a verified federated identity to a local
// account, creating or linking one as needed:
//
//   - an account already linked to the subject ID is returned directly;
//   - otherwise an account with the same email is linked to the subject
//     ID, keeping its password untouched and upgrading email-verified
//     when the provider asserts it;
//   - otherwise a new federation-only account (no password) is created
//     together with default settings.
//
// Every path records the last-authenticated timestamp.
func (r *Resolver) ResolveFederated(ctx context.Context, identity federation.Identity) (*Account, error) {
	ctx, span := r.tracer.Start(ctx, "account.ResolveFederated")
	defer span.End()

	if identity.SubjectID == "" || identity.Email == "" {
		err := lverr.New(lverr.CodeFederationMalformed,
			"account: federated identity missing subject or email")
		recordSpanError(span, err)
		return nil, err
	}

	// Already linked?
	acct, err := r.store.FindByFederatedID(ctx, identity.SubjectID)
	if err == nil {
		if identity.EmailVerified && !acct.EmailVerified {
			acct.EmailVerified = true
		}
		if err := r.touchLogin(ctx, acct); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		span.SetAttributes(attribute.String("account.id", acct.ID.String()))
		return acct, nil
	}
	if !lverr.IsNotFound(err) {
		recordSpanError(span, err)
		return nil, err
	}

	// Link by email.
	acct, err = r.store.FindByEmail(ctx, normalizeEmail(identity.Email))
	if err == nil {
		subjectID := identity.SubjectID
		acct.FederatedID = &subjectID
		if acct.DisplayName == nil && identity.DisplayName != "" {
			displayName := identity.DisplayName
			acct.DisplayName = &displayName
		}
		if identity.EmailVerified && !acct.EmailVerified {
			acct.EmailVerified = true
		}
		if err := r.touchLogin(ctx, acct); err != nil {
			recordSpanError(span, err)
			return nil, err
		}
		span.SetAttributes(
			attribute.String("account.id", acct.ID.String()),
			attribute.Bool("account.federation_linked", true),
		)
		return acct, nil
	}
	if !lverr.IsNotFound(err) {
		recordSpanError(span, err)
		return nil, err
	}

	// First federated sign-in: create a federation-only account.
	now := r.now()
	subjectID := identity.SubjectID
	acct = &Account{
		ID:            uuid.New(),
		Email:         normalizeEmail(identity.Email),
		FederatedID:   &subjectID,
		Active:        true,
		EmailVerified: identity.EmailVerified,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastLoginAt:   &now,
	}
	if identity.DisplayName != "" {
		displayName := identity.DisplayName
		acct.DisplayName = &displayName
	}
	settings := DefaultSettings(acct.ID)

	if err := r.store.Create(ctx, acct, &settings); err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String("account.id", acct.ID.String()),
		attribute.Bool("account.federation_created", true),
	)
	return acct, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// checkEmailFree fails with a conflict error when the email is taken.
func (r *Resolver) checkEmailFree(ctx context.Context, email string) error {
	_, err := r.store.FindByEmail(ctx, email)
	if err == nil {
		return lverr.New(lverr.CodeConflictEmail, "account: email already registered")
	}
	if lverr.IsNotFound(err) {
		return nil
	}
	return err
}

// checkUsernameFree fails with a conflict error when the username is taken.
func (r *Resolver) checkUsernameFree(ctx context.Context, username string) error {
	if username == "" {
		return lverr.New(lverr.CodeValidation, "account: username must not be empty when provided")
	}
	_, err := r.store.FindByUsername(ctx, username)
	if err == nil {
		return lverr.New(lverr.CodeConflictUsername, "account: username already taken")
	}
	if lverr.IsNotFound(err) {
		return nil
	}
	return err
}

// touchLogin records a successful authentication on the account and
// persists any accumulated field changes.
func (r *Resolver) touchLogin(ctx context.Context, acct *Account) error {
	now := r.now()
	acct.LastLoginAt = &now
	acct.UpdatedAt = now
	return r.store.Update(ctx, acct)
}

// normalizeEmail lowercases and trims an email address so lookups and
// uniqueness behave case-insensitively.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// recordSpanError records an error on the span if err is non-nil and sets
// the span status to Error.
func recordSpanError(span trace.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
