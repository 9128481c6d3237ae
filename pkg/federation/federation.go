// Package federation exchanges an external OAuth identity token for a
// verified identity by calling the provider's token-introspection
// endpoint. The default provider is Google's tokeninfo endpoint.
//
// The adapter distinguishes three failure classes so callers can decide
// between rejecting and retrying:
//
//   - the provider rejected the token (permanent)
//   - the token is for a different audience or missing identity fields
//     (permanent)
//   - the provider could not be reached (retryable)
package federation

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// tracerName is the OpenTelemetry instrumentation scope name for
// federation spans.
const tracerName = "github.com/LetterVault/lettervault-core/pkg/federation"

// DefaultIntrospectionURL is Google's ID-token introspection endpoint.
const DefaultIntrospectionURL = "https://oauth2.googleapis.com/tokeninfo"

// DefaultTimeout bounds the introspection HTTP call.
const DefaultTimeout = 10 * time.Second

// maxResponseSize limits the introspection response body (1 MB).
const maxResponseSize = 1 << 20

// ---------------------------------------------------------------------------
// Identity
// ---------------------------------------------------------------------------

// Identity is the verified identity extracted from a provider token.
type Identity struct {
	// SubjectID is the provider's stable identifier for the user.
	SubjectID string

	// Email is the user's email address as asserted by the provider.
	Email string

	// EmailVerified reports whether the provider has verified the email.
	EmailVerified bool

	// DisplayName is the user's display name, when the provider supplies one.
	DisplayName string
}

// HTTPClient abstracts the HTTP client used for introspection calls.
// The standard [http.Client] satisfies this interface; tests substitute
// stubs.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

// Config holds the configuration for [Verifier].
type Config struct {
	// IntrospectionURL is the provider's token-introspection endpoint.
	// Defaults to [DefaultIntrospectionURL].
	IntrospectionURL string `json:"introspection_url" env:"FEDERATION_INTROSPECTION_URL" envDefault:"https://oauth2.googleapis.com/tokeninfo"`

	// ClientID is this service's registered OAuth client identifier.
	// When set, tokens whose audience does not match are rejected.
	// When empty, the audience check is skipped.
	ClientID string `json:"client_id,omitempty" env:"FEDERATION_CLIENT_ID"`

	// Timeout bounds the introspection HTTP call. Must be non-negative.
	// Defaults to [DefaultTimeout]. Ignored when a custom HTTPClient is
	// supplied.
	Timeout time.Duration `json:"timeout" env:"FEDERATION_TIMEOUT" envDefault:"10s"`

	// HTTPClient is the HTTP client used for introspection calls. If nil,
	// a default [http.Client] with the configured Timeout is used.
	HTTPClient HTTPClient `json:"-"`
}

// Validate checks the configuration and returns a *[lverr.Error] with
// code [lverr.CodeValidation] if any field is invalid.
func (c *Config) Validate() *lverr.Error {
	if c.IntrospectionURL == "" {
		return lverr.New(lverr.CodeValidation, "federation: introspection URL must not be empty")
	}
	if c.Timeout < 0 {
		return lverr.New(lverr.CodeValidation, "federation: timeout must be non-negative")
	}
	return nil
}

// DefaultConfig returns a Config targeting Google's tokeninfo endpoint
// with no audience restriction.
func DefaultConfig() Config {
	return Config{
		IntrospectionURL: DefaultIntrospectionURL,
		Timeout:          DefaultTimeout,
	}
}

// ---------------------------------------------------------------------------
// Verifier
// ---------------------------------------------------------------------------

// Verifier verifies external provider tokens via introspection.
// It is safe for concurrent use by multiple goroutines.
type Verifier struct {
	config Config
	client HTTPClient
	tracer trace.Tracer
}

// NewVerifier creates a Verifier with the given configuration. A zero
// IntrospectionURL or Timeout falls back to the default before
// validation.
func NewVerifier(cfg Config) (*Verifier, error) {
	if cfg.IntrospectionURL == "" {
		cfg.IntrospectionURL = DefaultIntrospectionURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}

	return &Verifier{
		config: cfg,
		client: client,
		tracer: otel.Tracer(tracerName),
	}, nil
}

// introspectionResponse holds the fields this adapter reads from the
// provider's tokeninfo payload. Google returns email_verified as the
// string "true"/"false" on this endpoint; the custom type absorbs both
// encodings.
type introspectionResponse struct {
	Subject       string     `json:"sub"`
	Email         string     `json:"email"`
	EmailVerified stringBool `json:"email_verified"`
	Audience      string     `json:"aud"`
	Name          string     `json:"name"`
}

// stringBool unmarshals from a JSON bool or the strings "true"/"false".
type stringBool bool

func (b *stringBool) UnmarshalJSON(data []byte) error {
	switch string(data) {
	case "true", `"true"`:
		*b = true
	case "false", `"false"`, "null":
		*b = false
	default:
		// Unknown encodings read as false rather than failing the whole
		// introspection result.
		*b = false
	}
	return nil
}

// Verify introspects the given provider token and returns the verified
// Identity.
//
// Failure modes:
//   - [lverr.CodeFederationRejected]: the provider returned a non-2xx status
//   - [lverr.CodeFederationAudience]: the token's audience does not match
//     the configured ClientID
//   - [lverr.CodeFederationMalformed]: the provider accepted the token but
//     the payload is missing the subject or email
//   - [lverr.CodeUnavailableDependency]: the provider could not be reached
//     (timeout, DNS, TLS); safe to retry
func (v *Verifier) Verify(ctx context.Context, rawToken string) (Identity, error) {
	_, span := v.tracer.Start(ctx, "federation.Verify")
	defer span.End()

	if rawToken == "" {
		err := lverr.New(lverr.CodeFederationRejected, "federation: token must not be empty")
		recordSpanError(span, err)
		return Identity{}, err
	}

	endpoint := v.config.IntrospectionURL + "?id_token=" + url.QueryEscape(rawToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		wrapped := lverr.Wrap(err, lverr.CodeInternal,
			"federation: failed to build introspection request")
		recordSpanError(span, wrapped)
		return Identity{}, wrapped
	}

	resp, err := v.client.Do(req)
	if err != nil {
		wrapped := lverr.Wrap(err, lverr.CodeUnavailableDependency,
			"federation: identity provider unreachable")
		recordSpanError(span, wrapped)
		return Identity{}, wrapped
	}
	defer func() { _ = resp.Body.Close() }()

	span.SetAttributes(attribute.Int("federation.status_code", resp.StatusCode))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		err := lverr.Newf(lverr.CodeFederationRejected,
			"federation: provider rejected token (status %d)", resp.StatusCode)
		recordSpanError(span, err)
		return Identity{}, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		wrapped := lverr.Wrap(err, lverr.CodeUnavailableDependency,
			"federation: failed to read introspection response")
		recordSpanError(span, wrapped)
		return Identity{}, wrapped
	}

	var payload introspectionResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		wrapped := lverr.Wrap(err, lverr.CodeFederationMalformed,
			"federation: failed to parse introspection response")
		recordSpanError(span, wrapped)
		return Identity{}, wrapped
	}

	// Audience check applies only when a client ID is configured.
	if v.config.ClientID != "" && payload.Audience != v.config.ClientID {
		err := lverr.New(lverr.CodeFederationAudience,
			"federation: token audience does not match registered client")
		recordSpanError(span, err)
		return Identity{}, err
	}

	if payload.Subject == "" || payload.Email == "" {
		err := lverr.New(lverr.CodeFederationMalformed,
			"federation: introspection response missing subject or email")
		recordSpanError(span, err)
		return Identity{}, err
	}

	span.SetAttributes(attribute.Bool("federation.email_verified", bool(payload.EmailVerified)))
	return Identity{
		SubjectID:     payload.Subject,
		Email:         payload.Email,
		EmailVerified: bool(payload.EmailVerified),
		DisplayName:   payload.Name,
	}, nil
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
