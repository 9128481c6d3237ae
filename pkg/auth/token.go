package auth

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for auth spans.
const tracerName = "github.com/LetterVault/lettervault-core/pkg/auth"

// maxTokenSize is the maximum accepted size for a session token string (8 KB).
// Tokens larger than this are rejected to prevent resource exhaustion.
const maxTokenSize = 8192

// DefaultIssuer is the "iss" claim stamped into issued tokens and
// required of validated tokens.
const DefaultIssuer = "lettervault"

// DefaultTokenTTL is the lifetime of an issued session token.
const DefaultTokenTTL = 60 * time.Minute

// DefaultClockSkew is the leeway allowed when checking a token's
// expiration and issued-at times, absorbing clock drift between the
// issuing and validating instances.
const DefaultClockSkew = 30 * time.Second

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

// Identity is the authenticated principal extracted from a validated
// session token.
type Identity struct {
	// AccountID is the account identifier from the token's "sub" claim.
	AccountID string

	// Email is the account's email address at issuance time.
	Email string

	// TokenID is the unique token identifier from the "jti" claim. It is
	// the key under which a revoked token is recorded in a [Denylist].
	TokenID string

	// ExpiresAt is the token's absolute expiry instant.
	ExpiresAt time.Time
}

// TokenValidator validates a bearer token string and returns the Identity
// it represents. [TokenService] is the production implementation; tests
// substitute fakes.
type TokenValidator interface {
	Validate(ctx context.Context, tokenStr string) (Identity, error)
}

// ---------------------------------------------------------------------------
// TokenConfig
// ---------------------------------------------------------------------------

// TokenConfig holds the configuration for [TokenService].
type TokenConfig struct {
	// SigningKey is the HMAC key used to sign and verify session tokens.
	// Must be at least 32 bytes. The Secret type prevents accidental
	// logging of the key value.
	SigningKey Secret `json:"-" env:"AUTH_SIGNING_KEY"`

	// Issuer is the "iss" claim stamped into issued tokens; validation
	// rejects tokens carrying a different issuer. Defaults to
	// [DefaultIssuer].
	Issuer string `json:"issuer" env:"AUTH_ISSUER" envDefault:"lettervault"`

	// TTL is the lifetime of issued tokens. Must be positive.
	// Defaults to [DefaultTokenTTL].
	TTL time.Duration `json:"ttl" env:"AUTH_TOKEN_TTL" envDefault:"60m"`

	// ClockSkew is the maximum allowed clock difference between the
	// issuing and validating instances. Must be non-negative.
	// Defaults to [DefaultClockSkew].
	ClockSkew time.Duration `json:"clock_skew" env:"AUTH_CLOCK_SKEW" envDefault:"30s"`
}

// Validate checks the configuration for logical correctness and returns
// a *[lverr.Error] with code [lverr.CodeValidation] if any field is invalid.
func (c *TokenConfig) Validate() *lverr.Error {
	if len(c.SigningKey.Value()) < 32 {
		return lverr.New(lverr.CodeValidation, "auth: signing key must be at least 32 bytes")
	}
	if c.TTL < 0 {
		return lverr.New(lverr.CodeValidation, "auth: token TTL must be non-negative")
	}
	if c.ClockSkew < 0 {
		return lverr.New(lverr.CodeValidation, "auth: clock skew must be non-negative")
	}
	return nil
}

// DefaultTokenConfig returns a TokenConfig with production defaults.
// The signing key must still be supplied by the caller.
func DefaultTokenConfig() TokenConfig {
	return TokenConfig{
		Issuer:    DefaultIssuer,
		TTL:       DefaultTokenTTL,
		ClockSkew: DefaultClockSkew,
	}
}

// ---------------------------------------------------------------------------
// TokenService
// ---------------------------------------------------------------------------

// TokenService issues and validates HS256-signed session tokens. Validity
// is fully determined by the signature and the embedded expiry; no state
// is persisted unless a [Denylist] is attached, in which case revoked
// token IDs are additionally rejected during validation.
//
// TokenService is safe for concurrent use by multiple goroutines.
type TokenService struct {
	config   TokenConfig
	tracer   trace.Tracer
	denylist Denylist
	now      func() time.Time
}

// Compile-time assertion that TokenService implements TokenValidator.
var _ TokenValidator = (*TokenService)(nil)

// TokenOption customizes a [TokenService] beyond its configuration.
type TokenOption func(*TokenService)

// WithDenylist attaches a revocation denylist. When set, Validate
// rejects tokens whose ID has been recorded via [TokenService.Revoke],
// and Revoke becomes available.
func WithDenylist(d Denylist) TokenOption {
	return func(s *TokenService) { s.denylist = d }
}

// WithClock overrides the time source used for issuance and expiry
// checks. Intended for tests.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

// NewTokenService creates a TokenService with the given configuration.
// Zero-valued Issuer, TTL, and ClockSkew fields fall back to their
// defaults before validation.
func NewTokenService(cfg TokenConfig, opts ...TokenOption) (*TokenService, error) {
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	if cfg.TTL == 0 {
		cfg.TTL = DefaultTokenTTL
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &TokenService{
		config: cfg,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue creates a signed session token for the given account. The token
// carries the account ID as "sub", the email, the configured issuer, a
// unique token ID, and an expiry of now + TTL.
func (s *TokenService) Issue(ctx context.Context, accountID, email string) (string, error) {
	_, span := s.tracer.Start(ctx, "auth.Issue")
	defer span.End()

	if accountID == "" {
		err := lverr.New(lverr.CodeValidation, "auth: account ID must not be empty")
		recordSpanError(span, err)
		return "", err
	}

	now := s.now()
	claims := jwt.MapClaims{
		"sub":   accountID,
		"email": email,
		"iss":   s.config.Issuer,
		"iat":   jwt.NewNumericDate(now),
		"exp":   jwt.NewNumericDate(now.Add(s.config.TTL)),
		"jti":   uuid.NewString(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).
		SignedString([]byte(s.config.SigningKey.Value()))
	if err != nil {
		wrapped := lverr.Wrap(err, lverr.CodeInternal, "auth: failed to sign token")
		recordSpanError(span, wrapped)
		return "", wrapped
	}

	span.SetAttributes(attribute.String("auth.account_id", accountID))
	return signed, nil
}

// Validate verifies the given session token and returns the Identity it
// represents. Only HS256 signatures from the configured issuer are
// accepted; expired tokens fail with [lverr.CodeAuthenticationExpired]
// and all other defects (malformed input, bad signature, wrong issuer,
// revoked token ID) fail with [lverr.CodeAuthenticationInvalid].
func (s *TokenService) Validate(ctx context.Context, tokenStr string) (Identity, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Validate")
	defer span.End()

	identity, err := s.parseIdentity(tokenStr)
	if err != nil {
		recordSpanError(span, err)
		return Identity{}, err
	}

	// Consult the revocation denylist, when one is attached.
	if s.denylist != nil && identity.TokenID != "" {
		revoked, dlErr := s.denylist.IsRevoked(ctx, identity.TokenID)
		if dlErr != nil {
			wrapped := lverr.Wrap(dlErr, lverr.CodeUnavailableDependency,
				"auth: revocation check failed")
			recordSpanError(span, wrapped)
			return Identity{}, wrapped
		}
		if revoked {
			err := lverr.New(lverr.CodeAuthenticationInvalid, "auth: token has been revoked")
			recordSpanError(span, err)
			return Identity{}, err
		}
	}

	span.SetAttributes(attribute.String("auth.account_id", identity.AccountID))
	return identity, nil
}

// parseIdentity verifies the token's signature, issuer, and expiry and
// extracts the embedded identity. It does not consult the denylist.
func (s *TokenService) parseIdentity(tokenStr string) (Identity, error) {
	if tokenStr == "" {
		return Identity{}, lverr.New(lverr.CodeAuthenticationInvalid, "auth: token must not be empty")
	}
	if len(tokenStr) > maxTokenSize {
		return Identity{}, lverr.New(lverr.CodeAuthenticationInvalid, "auth: token exceeds maximum size")
	}

	// WithValidMethods restricts accepted algorithms to HS256 only,
	// preventing algorithm confusion attacks (including alg "none").
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		return []byte(s.config.SigningKey.Value()), nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.config.Issuer),
		jwt.WithLeeway(s.config.ClockSkew),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, classifyTokenError(err)
	}

	mc, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return Identity{}, lverr.New(lverr.CodeAuthenticationInvalid, "auth: invalid token claims")
	}

	sub, _ := mc["sub"].(string)
	if sub == "" {
		return Identity{}, lverr.New(lverr.CodeAuthenticationInvalid, "auth: token missing subject claim")
	}
	email, _ := mc["email"].(string)
	jti, _ := mc["jti"].(string)

	identity := Identity{
		AccountID: sub,
		Email:     email,
		TokenID:   jti,
	}
	if exp, expErr := mc.GetExpirationTime(); expErr == nil && exp != nil {
		identity.ExpiresAt = exp.Time
	}
	return identity, nil
}

// Revoke records the given token's ID in the attached denylist so that
// subsequent Validate calls reject it. The denylist entry's lifetime is
// the token's remaining life, so entries expire together with the tokens
// they block. The token's signature and expiry must verify; revoking a
// malformed or expired token fails with the corresponding validation
// error. Revoking a token that is already on the denylist succeeds, so a
// repeated logout is idempotent.
//
// Revoke fails with [lverr.CodeInternalConfiguration] if no denylist is
// attached.
func (s *TokenService) Revoke(ctx context.Context, tokenStr string) error {
	ctx, span := s.tracer.Start(ctx, "auth.Revoke")
	defer span.End()

	if s.denylist == nil {
		err := lverr.New(lverr.CodeInternalConfiguration,
			"auth: revocation requires a denylist")
		recordSpanError(span, err)
		return err
	}

	identity, err := s.parseIdentity(tokenStr)
	if err != nil {
		recordSpanError(span, err)
		return err
	}
	if identity.TokenID == "" {
		err := lverr.New(lverr.CodeAuthenticationInvalid, "auth: token missing token ID claim")
		recordSpanError(span, err)
		return err
	}

	remaining := identity.ExpiresAt.Sub(s.now()) + s.config.ClockSkew
	if remaining <= 0 {
		return nil // Already past expiry; nothing to record.
	}

	if err := s.denylist.Revoke(ctx, identity.TokenID, remaining); err != nil {
		wrapped := lverr.Wrap(err, lverr.CodeUnavailableDependency,
			"auth: failed to record token revocation")
		recordSpanError(span, wrapped)
		return wrapped
	}

	span.SetAttributes(attribute.String("auth.account_id", identity.AccountID))
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// classifyTokenError converts a JWT library error to an appropriate
// *lverr.Error. Expired tokens get their own code; every other defect
// collapses to CodeAuthenticationInvalid so the response does not leak
// which check failed.
func classifyTokenError(err error) *lverr.Error {
	if err == nil {
		return nil
	}

	var lvError *lverr.Error
	if errors.As(err, &lvError) {
		return lvError
	}

	if errors.Is(err, jwt.ErrTokenExpired) {
		return lverr.Wrap(err, lverr.CodeAuthenticationExpired, "auth: token has expired")
	}
	return lverr.Wrap(err, lverr.CodeAuthenticationInvalid, "auth: token validation failed")
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
