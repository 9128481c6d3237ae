package auth

import (
	"golang.org/x/crypto/bcrypt"

	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// ---------------------------------------------------------------------------
// Hasher
// ---------------------------------------------------------------------------

// maxPasswordLength is the longest accepted password in bytes. bcrypt
// silently truncates input beyond 72 bytes, so longer passwords are
// rejected outright rather than hashed with an invisible truncation.
const maxPasswordLength = 72

// HasherConfig holds the configuration for [Hasher].
type HasherConfig struct {
	// Cost is the bcrypt work factor. Higher values make hashing (and
	// brute-force attacks) exponentially slower. Must be between
	// bcrypt.MinCost (4) and bcrypt.MaxCost (31), or zero to use
	// bcrypt.DefaultCost (10).
	Cost int `json:"cost" env:"AUTH_BCRYPT_COST" envDefault:"0"`
}

// Validate checks the configuration and returns a *[lverr.Error] with
// code [lverr.CodeValidation] if the cost is outside the accepted range.
func (c *HasherConfig) Validate() *lverr.Error {
	if c.Cost == 0 {
		return nil
	}
	if c.Cost < bcrypt.MinCost || c.Cost > bcrypt.MaxCost {
		return lverr.Newf(lverr.CodeValidation,
			"auth: bcrypt cost must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	return nil
}

// Hasher hashes and verifies passwords using bcrypt. Each hash embeds a
// random per-hash salt, so two hashes of the same plaintext differ.
// Verification is constant-time with respect to match/mismatch.
//
// Hasher is stateless and safe for concurrent use.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher from the given configuration. A zero Cost
// selects bcrypt.DefaultCost.
func NewHasher(cfg HasherConfig) (*Hasher, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cost := cfg.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}, nil
}

// Hash returns the bcrypt hash of the given plaintext password. Empty
// passwords and passwords longer than 72 bytes are rejected with a
// validation error.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if plaintext == "" {
		return "", lverr.New(lverr.CodeValidation, "auth: password must not be empty")
	}
	if len(plaintext) > maxPasswordLength {
		return "", lverr.Newf(lverr.CodeValidation,
			"auth: password must not exceed %d bytes", maxPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", lverr.Wrap(err, lverr.CodeInternal, "auth: failed to hash password")
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the given bcrypt hash.
// Any failure (wrong password, malformed hash, empty input) reports
// false; the distinction is deliberately not exposed to callers.
func (h *Hasher) Verify(plaintext, hash string) bool {
	if plaintext == "" || hash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}
