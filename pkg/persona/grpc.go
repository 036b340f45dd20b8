package persona

import (
	"context"
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
)

// UnaryServerInterceptor admits only calls whose "authorization" metadata
// carries a token that validates for scope. Rejected calls fail with
// codes.Unauthenticated; on success the token is stored in the context,
// see [TokenFromContext].
func UnaryServerInterceptor(validator TokenValidator, scope string) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		ctx, err := authenticateGRPC(ctx, validator, scope)
		if err != nil {
			return nil, err
		}
		return handler(ctx, req)
	}
}

// StreamServerInterceptor is the streaming form of
// [UnaryServerInterceptor].
func StreamServerInterceptor(validator TokenValidator, scope string) grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		ctx, err := authenticateGRPC(ss.Context(), validator, scope)
		if err != nil {
			return err
		}
		return handler(srv, &wrappedServerStream{ServerStream: ss, ctx: ctx})
	}
}

func authenticateGRPC(ctx context.Context, validator TokenValidator, scope string) (context.Context, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ctx, status.Error(codes.Unauthenticated, "missing metadata")
	}

	token, err := ExtractTokenFromMetadata(md)
	if err != nil {
		return ctx, status.Error(codes.Unauthenticated, err.Error())
	}

	result, err := validator.ValidateToken(ctx, token, scope)
	if err != nil {
		slog.WarnContext(ctx, "persona: token validation failed",
			"error", err,
			"scope", scope,
		)
		return ctx, status.Error(codes.Unavailable, "token validation unavailable")
	}
	if !result.OK() {
		return ctx, status.Error(codes.Unauthenticated, "token validation failed")
	}

	return ContextWithToken(ctx, token), nil
}

// wrappedServerStream overrides Context so handlers see the token.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
