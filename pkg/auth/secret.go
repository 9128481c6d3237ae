// Package auth implements credential handling for the LetterVault
// platform: one-way password hashing, issuance and validation of signed
// session tokens, optional server-side token revocation, and the HTTP
// and gRPC plumbing that carries an authenticated identity through a
// request.
//
// The package is organized around three cooperating pieces:
//
//   - [Hasher] hashes and verifies passwords with bcrypt.
//   - [TokenService] issues and validates HS256-signed session tokens.
//   - [Denylist] (optional) records revoked token IDs so that logout can
//     be enforced server-side.
//
// [HTTPMiddleware], [UnaryServerInterceptor], and [StreamServerInterceptor]
// adapt a [TokenValidator] to the two transports, storing the validated
// [Identity] in the request context where handlers retrieve it with
// [IdentityFromContext].
package auth

// Secret is a string type that redacts its value in String(), GoString(), and
// MarshalText() to prevent accidental exposure in logs, JSON output, or
// fmt.Printf. The actual value is only accessible via the [Secret.Value]
// method, which should be called only where the raw value is truly needed
// (e.g., passing to a cryptographic function).
type Secret string

// secretRedacted is the placeholder text shown instead of the actual secret
// value when the secret is printed, formatted, or serialized.
const secretRedacted = "[REDACTED]"

// String returns the redacted placeholder, preventing the secret from being
// printed via fmt.Println, log.Printf, or similar functions.
func (s Secret) String() string { return secretRedacted }

// GoString returns the redacted placeholder, preventing the secret from being
// printed via fmt.Printf("%#v", secret).
func (s Secret) GoString() string { return secretRedacted }

// Value returns the actual secret string. This is the only way to access the
// underlying value and should be used only where the raw secret is required
// (e.g., passing to a cryptographic signing or verification function).
func (s Secret) Value() string { return string(s) }

// MarshalText implements [encoding.TextMarshaler], returning the redacted
// placeholder. This prevents the secret from leaking into JSON, YAML, or
// any other text-based serialization format.
func (s Secret) MarshalText() ([]byte, error) { return []byte(secretRedacted), nil }
