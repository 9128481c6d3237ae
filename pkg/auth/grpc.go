package auth

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	lverr "github.com/LetterVault/lettervault-core/pkg/errors"
)

// UnaryServerInterceptor returns a gRPC unary server interceptor that
// authenticates requests with the given validator.
//
// The interceptor performs the following steps:
//  1. Extracts the "authorization" metadata value (bearer token)
//  2. Validates the token using the provided [TokenValidator]
//  3. Stores the resulting [Identity] in the request context
//  4. Passes the enriched context to the handler
//
// A missing credential and a failed validation both return a gRPC
// Unauthenticated error with a generic message; a validation failure
// caused by an unreachable dependency returns Unavailable instead so
// clients know the request is safe to retry.
func UnaryServerInterceptor(validator TokenValidator) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := authenticateGRPC(ctx, validator)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor returns a gRPC stream server interceptor that
// authenticates streams with the given validator. It performs the same
// steps as [UnaryServerInterceptor] but wraps the stream to carry the
// enriched context.
func StreamServerInterceptor(validator TokenValidator) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authenticateGRPC(ss.Context(), validator)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

// authenticateGRPC extracts the bearer token from incoming gRPC metadata,
// validates it, and returns a context carrying the resulting Identity.
func authenticateGRPC(ctx context.Context, validator TokenValidator) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}

	var token string
	if values := md.Get(HeaderAuthorization); len(values) > 0 {
		token = ExtractBearerToken(values[0])
	}
	if token == "" {
		return ctx, status.Error(codes.Unauthenticated, "missing bearer credential")
	}

	identity, err := validator.Validate(ctx, token)
	if err != nil {
		if lverr.IsUnavailable(err) || lverr.IsTimeout(err) {
			return ctx, status.Error(codes.Unavailable, "authentication temporarily unavailable")
		}
		return ctx, status.Error(codes.Unauthenticated, "token validation failed")
	}

	return ContextWithIdentity(ctx, identity), nil
}

// wrappedServerStream wraps a grpc.ServerStream to override its context
// with one carrying the authenticated Identity.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the enriched context carrying the Identity.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
