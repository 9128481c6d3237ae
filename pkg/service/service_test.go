package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LetterVault/lettervault-core/internal/testutil"
	"github.com/LetterVault/lettervault-core/pkg/account"
	"github.com/LetterVault/lettervault-core/pkg/auth"
	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
	"github.com/LetterVault/lettervault-core/pkg/federation"
	"github.com/LetterVault/lettervault-core/pkg/resource"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type fakeTokens struct {
	issueErr    error
	validateErr error
	identity    auth.Identity
	revoked     []string
	revokeErr   error
}

func (f *fakeTokens) Issue(_ context.Context, accountID, _ string) (string, error) {
	if f.issueErr != nil {
		return "", f.issueErr
	}
	return "token-" + accountID, nil
}

func (f *fakeTokens) Validate(_ context.Context, _ string) (auth.Identity, error) {
	if f.validateErr != nil {
		return auth.Identity{}, f.validateErr
	}
	return f.identity, nil
}

func (f *fakeTokens) Revoke(_ context.Context, tokenStr string) error {
	if f.revokeErr != nil {
		return f.revokeErr
	}
	f.revoked = append(f.revoked, tokenStr)
	return nil
}

type fakeAccounts struct {
	acct *account.Account
	err  error

	gotIdentity federation.Identity
}

func (f *fakeAccounts) Register(_ context.Context, _ string, _ *string, _ string) (*account.Account, error) {
	return f.acct, f.err
}

func (f *fakeAccounts) Authenticate(_ context.Context, _, _ string) (*account.Account, error) {
	return f.acct, f.err
}

func (f *fakeAccounts) ResolveFederated(_ context.Context, identity federation.Identity) (*account.Account, error) {
	f.gotIdentity = identity
	return f.acct, f.err
}

type fakeVerifier struct {
	identity federation.Identity
	err      error
}

func (f *fakeVerifier) Verify(_ context.Context, _ string) (federation.Identity, error) {
	return f.identity, f.err
}

type fakeLimiter struct{ err error }

func (f *fakeLimiter) Admit(_, _ string) error { return f.err }

type fakeVault struct {
	res *resource.Resource
	err error
}

func (f *fakeVault) Authorize(_ context.Context, _, _ uuid.UUID) (*resource.Resource, error) {
	return f.res, f.err
}

func testAccount() *account.Account {
	username := "alice"
	return &account.Account{
		ID:       uuid.New(),
		Email:    "alice@lettervault.io",
		Username: &username,
		Active:   true,
	}
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func TestService_Register(t *testing.T) {
	t.Parallel()
	acct := testAccount()
	svc := NewService(&fakeTokens{}, &fakeAccounts{acct: acct}, nil, &fakeLimiter{}, &fakeVault{})

	session, err := svc.Register(context.Background(), acct.Email, acct.Username, "s3cret-pass")
	require.NoError(t, err)

	assert.Equal(t, "token-"+acct.ID.String(), session.Token)
	assert.Equal(t, acct.ID, session.Account.ID)
	assert.Equal(t, acct.Email, session.Account.Email)
	require.NotNil(t, session.Account.Username)
	assert.Equal(t, "alice", *session.Account.Username)
}

func TestService_Register_ConflictPassesThrough(t *testing.T) {
	t.Parallel()
	accounts := &fakeAccounts{err: lverr.New(lverr.CodeConflictEmail, "account: email already registered")}
	svc := NewService(&fakeTokens{}, accounts, nil, &fakeLimiter{}, &fakeVault{})

	_, err := svc.Register(context.Background(), "taken@lettervault.io", nil, "s3cret-pass")
	testutil.RequireErrorCode(t, err, lverr.CodeConflictEmail)
}

func TestService_Login(t *testing.T) {
	t.Parallel()
	acct := testAccount()
	svc := NewService(&fakeTokens{}, &fakeAccounts{acct: acct}, nil, &fakeLimiter{}, &fakeVault{})

	session, err := svc.Login(context.Background(), "alice", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, acct.ID, session.Account.ID)
}

func TestService_Login_BadCredentials(t *testing.T) {
	t.Parallel()
	accounts := &fakeAccounts{err: lverr.New(lverr.CodeAuthenticationCredentials, "account: invalid credentials")}
	svc := NewService(&fakeTokens{}, accounts, nil, &fakeLimiter{}, &fakeVault{})

	_, err := svc.Login(context.Background(), "alice", "wrong")
	testutil.RequireErrorCode(t, err, lverr.CodeAuthenticationCredentials)
}

func TestService_Login_IssueFailure(t *testing.T) {
	t.Parallel()
	tokens := &fakeTokens{issueErr: lverr.New(lverr.CodeInternal, "auth: signing failed")}
	svc := NewService(tokens, &fakeAccounts{acct: testAccount()}, nil, &fakeLimiter{}, &fakeVault{})

	_, err := svc.Login(context.Background(), "alice", "s3cret-pass")
	testutil.RequireErrorCode(t, err, lverr.CodeInternal)
}

// ---------------------------------------------------------------------------
// Federated sign-in
// ---------------------------------------------------------------------------

func TestService_LoginFederated(t *testing.T) {
	t.Parallel()
	acct := testAccount()
	accounts := &fakeAccounts{acct: acct}
	verifier := &fakeVerifier{identity: federation.Identity{
		SubjectID:     "g-1001",
		Email:         acct.Email,
		EmailVerified: true,
	}}
	svc := NewService(&fakeTokens{}, accounts, verifier, &fakeLimiter{}, &fakeVault{})

	session, err := svc.LoginFederated(context.Background(), "provider-token")
	require.NoError(t, err)

	assert.Equal(t, acct.ID, session.Account.ID)
	assert.Equal(t, "g-1001", accounts.gotIdentity.SubjectID,
		"the verified identity should reach the resolver")
}

func TestService_LoginFederated_NotConfigured(t *testing.T) {
	t.Parallel()
	svc := NewService(&fakeTokens{}, &fakeAccounts{}, nil, &fakeLimiter{}, &fakeVault{})

	_, err := svc.LoginFederated(context.Background(), "provider-token")
	testutil.RequireErrorCode(t, err, lverr.CodeInternalConfiguration)
}

func TestService_LoginFederated_RejectedToken(t *testing.T) {
	t.Parallel()
	verifier := &fakeVerifier{err: lverr.New(lverr.CodeFederationRejected, "federation: token rejected")}
	svc := NewService(&fakeTokens{}, &fakeAccounts{}, verifier, &fakeLimiter{}, &fakeVault{})

	_, err := svc.LoginFederated(context.Background(), "bad-token")
	testutil.RequireErrorCode(t, err, lverr.CodeFederationRejected)
}

// ---------------------------------------------------------------------------
// Logout / ValidateBearer
// ---------------------------------------------------------------------------

func TestService_Logout(t *testing.T) {
	t.Parallel()
	tokens := &fakeTokens{}
	svc := NewService(tokens, &fakeAccounts{}, nil, &fakeLimiter{}, &fakeVault{})

	require.NoError(t, svc.Logout(context.Background(), "session-token"))
	assert.Equal(t, []string{"session-token"}, tokens.revoked)
}

func TestService_ValidateBearer(t *testing.T) {
	t.Parallel()
	identity := auth.Identity{AccountID: uuid.NewString(), Email: "alice@lettervault.io"}
	tokens := &fakeTokens{identity: identity}
	svc := NewService(tokens, &fakeAccounts{}, nil, &fakeLimiter{}, &fakeVault{})

	got, err := svc.ValidateBearer(context.Background(), "Bearer session-token")
	require.NoError(t, err)
	assert.Equal(t, identity.AccountID, got.AccountID)
}

func TestService_ValidateBearer_MissingHeader(t *testing.T) {
	t.Parallel()
	svc := NewService(&fakeTokens{}, &fakeAccounts{}, nil, &fakeLimiter{}, &fakeVault{})

	tests := []struct {
		name   string
		header string
	}{
		{"empty header", ""},
		{"scheme only", "Bearer "},
		{"wrong scheme", "Basic dXNlcjpwYXNz"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := svc.ValidateBearer(context.Background(), tt.header)
			testutil.RequireErrorCode(t, err, lverr.CodeAuthenticationMissing)
		})
	}
}

func TestService_ValidateBearer_InvalidToken(t *testing.T) {
	t.Parallel()
	tokens := &fakeTokens{validateErr: lverr.New(lverr.CodeAuthenticationInvalid, "auth: invalid token")}
	svc := NewService(tokens, &fakeAccounts{}, nil, &fakeLimiter{}, &fakeVault{})

	_, err := svc.ValidateBearer(context.Background(), "Bearer tampered")
	testutil.RequireErrorCode(t, err, lverr.CodeAuthenticationInvalid)
}

// ---------------------------------------------------------------------------
// CheckRate / AuthorizeResource
// ---------------------------------------------------------------------------

func TestService_CheckRate(t *testing.T) {
	t.Parallel()
	limiter := &fakeLimiter{err: lverr.New(lverr.CodeRateLimited, "ratelimit: quota exhausted")}
	svc := NewService(&fakeTokens{}, &fakeAccounts{}, nil, limiter, &fakeVault{})

	testutil.RequireErrorCode(t, svc.CheckRate("ip1", "/auth/login"), lverr.CodeRateLimited)

	svc = NewService(&fakeTokens{}, &fakeAccounts{}, nil, &fakeLimiter{}, &fakeVault{})
	require.NoError(t, svc.CheckRate("ip1", "/auth/login"))
}

func TestService_AuthorizeResource(t *testing.T) {
	t.Parallel()
	res := &resource.Resource{ID: uuid.New(), OwnerID: uuid.New()}
	svc := NewService(&fakeTokens{}, &fakeAccounts{}, nil, &fakeLimiter{}, &fakeVault{res: res})

	got, err := svc.AuthorizeResource(context.Background(), res.OwnerID, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, got.ID)
}

func TestService_AuthorizeResource_NotFound(t *testing.T) {
	t.Parallel()
	vault := &fakeVault{err: lverr.New(lverr.CodeNotFoundResource, "resource: not found")}
	svc := NewService(&fakeTokens{}, &fakeAccounts{}, nil, &fakeLimiter{}, vault)

	_, err := svc.AuthorizeResource(context.Background(), uuid.New(), uuid.New())
	testutil.RequireErrorCode(t, err, lverr.CodeNotFoundResource)
}
