package auth

import (
	"net/http"
	"strings"

	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// HeaderAuthorization is the header carrying the bearer token. The
// lowercase form works for both HTTP headers (matched case-insensitively)
// and gRPC metadata keys (always lowercase).
const HeaderAuthorization = "authorization"

// bearerPrefix is the expected prefix of an authorization header value,
// matched case-insensitively per RFC 6750.
const bearerPrefix = "Bearer "

// ExtractBearerToken extracts the token from an authorization header value.
// Returns the token string, or "" if the header is empty or does not carry
// a bearer credential.
func ExtractBearerToken(authHeader string) string {
	if len(authHeader) <= len(bearerPrefix) {
		return ""
	}
	if !strings.EqualFold(authHeader[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(authHeader[len(bearerPrefix):])
}

// HTTPMiddleware returns an HTTP middleware that authenticates requests
// with the given validator.
//
// The middleware performs the following steps:
//  1. Extracts the "Authorization" header (bearer token)
//  2. Validates the token using the provided [TokenValidator]
//  3. Stores the resulting [Identity] in the request context
//  4. Passes the enriched request to the next handler
//
// A missing bearer credential and a failed validation both produce an
// HTTP 401 with the same generic body; the split into distinct error
// codes exists for logging, not for clients.
//
// Example:
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/mail", handleMail)
//	handler := auth.HTTPMiddleware(tokenService)(mux)
//	http.ListenAndServe(":8080", handler)
func HTTPMiddleware(validator TokenValidator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := ExtractBearerToken(r.Header.Get(HeaderAuthorization))
			if token == "" {
				err := lverr.New(lverr.CodeAuthenticationMissing,
					"auth: missing bearer credential")
				http.Error(w, http.StatusText(err.HTTPStatus()), err.HTTPStatus())
				return
			}

			ctx := r.Context()
			identity, err := validator.Validate(ctx, token)
			if err != nil {
				status := http.StatusUnauthorized
				if e, ok := lverr.AsError(err); ok && lverr.IsServerError(e) {
					status = e.HTTPStatus()
				}
				http.Error(w, http.StatusText(status), status)
				return
			}

			ctx = ContextWithIdentity(ctx, identity)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
