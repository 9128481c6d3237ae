// Package service is the outward-facing façade of the LetterVault core.
// It binds token issuance, account resolution, federated sign-in, rate
// limiting, and resource authorization into one surface that transport
// handlers (HTTP, gRPC) call.
package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/LetterVault/lettervault-core/pkg/account"
	"github.com/LetterVault/lettervault-core/pkg/auth"
	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
	"github.com/LetterVault/lettervault-core/pkg/federation"
	"github.com/LetterVault/lettervault-core/pkg/ratelimit"
	"github.com/LetterVault/lettervault-core/pkg/resource"
)

// tracerName is the OpenTelemetry instrumentation scope name for service
// spans.
const tracerName = "github.com/LetterVault/lettervault-core/pkg/service"

// ---------------------------------------------------------------------------
// Collaborator interfaces
// ---------------------------------------------------------------------------

// TokenIssuer issues, validates, and revokes access tokens.
// [*auth.TokenService] is the production implementation.
type TokenIssuer interface {
	Issue(ctx context.Context, accountID, email string) (string, error)
	Validate(ctx context.Context, tokenStr string) (auth.Identity, error)
	Revoke(ctx context.Context, tokenStr string) error
}

// AccountResolver maps credentials and federated identities to accounts.
// [*account.Resolver] is the production implementation.
type AccountResolver interface {
	Register(ctx context.Context, email string, username *string, password string) (*account.Account, error)
	Authenticate(ctx context.Context, identifier, password string) (*account.Account, error)
	ResolveFederated(ctx context.Context, identity federation.Identity) (*account.Account, error)
}

// FederationVerifier verifies provider-issued identity tokens.
// [*federation.Verifier] is the production implementation.
type FederationVerifier interface {
	Verify(ctx context.Context, rawToken string) (federation.Identity, error)
}

// RateAdmitter admits or rejects a request against per-client quotas.
// [*ratelimit.Limiter] is the production implementation.
type RateAdmitter interface {
	Admit(clientKey, route string) error
}

// ResourceAuthorizer resolves ownership-checked resources.
// [*resource.Vault] is the production implementation.
type ResourceAuthorizer interface {
	Authorize(ctx context.Context, accountID, resourceID uuid.UUID) (*resource.Resource, error)
}

// Compile-time assertions that the production types satisfy the
// collaborator interfaces.
var (
	_ TokenIssuer        = (*auth.TokenService)(nil)
	_ AccountResolver    = (*account.Resolver)(nil)
	_ FederationVerifier = (*federation.Verifier)(nil)
	_ RateAdmitter       = (*ratelimit.Limiter)(nil)
	_ ResourceAuthorizer = (*resource.Vault)(nil)
)

// ---------------------------------------------------------------------------
// Session types
// ---------------------------------------------------------------------------

// AccountSummary is the caller-facing projection of an account. It never
// carries the password hash or federation subject.
type AccountSummary struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	Username    *string   `json:"username,omitempty"`
	DisplayName *string   `json:"display_name,omitempty"`
}

// Session is the result of a successful sign-in or registration.
type Session struct {
	Token   string         `json:"token"`
	Account AccountSummary `json:"account"`
}

// summarize projects an account into its caller-facing summary.
func summarize(acct *account.Account) AccountSummary {
	return AccountSummary{
		ID:          acct.ID,
		Email:       acct.Email,
		Username:    acct.Username,
		DisplayName: acct.DisplayName,
	}
}

// ---------------------------------------------------------------------------
// Service
// ---------------------------------------------------------------------------

// Service binds the core security components behind one API. The
// federation verifier is optional; when absent, federated sign-in fails
// with a configuration error while every other operation works normally.
//
// Service is safe for concurrent use by multiple goroutines.
type Service struct {
	tokens   TokenIssuer
	accounts AccountResolver
	verifier FederationVerifier
	limiter  RateAdmitter
	vault    ResourceAuthorizer
	tracer   trace.Tracer
}

// NewService creates a Service over the given collaborators. verifier may
// be nil to disable federated sign-in.
func NewService(tokens TokenIssuer, accounts AccountResolver, verifier FederationVerifier, limiter RateAdmitter, vault ResourceAuthorizer) *Service {
	return &Service{
		tokens:   tokens,
		accounts: accounts,
		verifier: verifier,
		limiter:  limiter,
		vault:    vault,
		tracer:   otel.Tracer(tracerName),
	}
}

// Register creates a new password-backed account and signs it in.
func (s *Service) Register(ctx context.Context, email string, username *string, password string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "service.Register")
	defer span.End()

	acct, err := s.accounts.Register(ctx, email, username, password)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return s.startSession(ctx, span, acct)
}

// Login authenticates the identifier (email or username) and password
// and returns a fresh session.
func (s *Service) Login(ctx context.Context, identifier, password string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "service.Login")
	defer span.End()

	acct, err := s.accounts.Authenticate(ctx, identifier, password)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return s.startSession(ctx, span, acct)
}

// LoginFederated verifies a provider-issued identity token, resolves it
// to a local account (creating or linking one as needed), and returns a
// fresh session.
func (s *Service) LoginFederated(ctx context.Context, rawToken string) (*Session, error) {
	ctx, span := s.tracer.Start(ctx, "service.LoginFederated")
	defer span.End()

	if s.verifier == nil {
		err := lverr.New(lverr.CodeInternalConfiguration,
			"service: federated sign-in is not configured")
		recordSpanError(span, err)
		return nil, err
	}

	identity, err := s.verifier.Verify(ctx, rawToken)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	acct, err := s.accounts.ResolveFederated(ctx, identity)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return s.startSession(ctx, span, acct)
}

// Logout revokes the session token so it fails validation for the rest
// of its lifetime.
func (s *Service) Logout(ctx context.Context, tokenStr string) error {
	ctx, span := s.tracer.Start(ctx, "service.Logout")
	defer span.End()

	if err := s.tokens.Revoke(ctx, tokenStr); err != nil {
		recordSpanError(span, err)
		return err
	}
	return nil
}

// ValidateBearer extracts and validates the token from an Authorization
// header value. A missing or blank header fails with
// [lverr.CodeAuthenticationMissing].
func (s *Service) ValidateBearer(ctx context.Context, authorizationHeader string) (auth.Identity, error) {
	ctx, span := s.tracer.Start(ctx, "service.ValidateBearer")
	defer span.End()

	tokenStr := auth.ExtractBearerToken(authorizationHeader)
	if strings.TrimSpace(tokenStr) == "" {
		err := lverr.New(lverr.CodeAuthenticationMissing,
			"service: missing bearer token")
		recordSpanError(span, err)
		return auth.Identity{}, err
	}

	identity, err := s.tokens.Validate(ctx, tokenStr)
	if err != nil {
		recordSpanError(span, err)
		return auth.Identity{}, err
	}
	return identity, nil
}

// CheckRate admits or rejects a request against the configured quotas.
func (s *Service) CheckRate(clientKey, route string) error {
	return s.limiter.Admit(clientKey, route)
}

// AuthorizeResource returns the resource if it belongs to the account,
// with the Vault's indistinguishable not-found semantics.
func (s *Service) AuthorizeResource(ctx context.Context, accountID, resourceID uuid.UUID) (*resource.Resource, error) {
	ctx, span := s.tracer.Start(ctx, "service.AuthorizeResource")
	defer span.End()

	res, err := s.vault.Authorize(ctx, accountID, resourceID)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return res, nil
}

// startSession issues a token for the account and assembles the session.
func (s *Service) startSession(ctx context.Context, span trace.Span, acct *account.Account) (*Session, error) {
	token, err := s.tokens.Issue(ctx, acct.ID.String(), acct.Email)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.String("account.id", acct.ID.String()))
	return &Session{Token: token, Account: summarize(acct)}, nil
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
