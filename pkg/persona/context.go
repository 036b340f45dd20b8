package persona

import "context"

type contextKey int

const tokenKey contextKey = iota

// ContextWithToken returns a copy of ctx carrying a validated token.
func ContextWithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

// TokenFromContext returns the token stored by [Middleware] or the gRPC
// interceptors.
func TokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(tokenKey).(string)
	return token, ok
}
