package persona

import (
	"log/slog"
	"net/http"

	pserr "github.com/techfromsage/persona-go/pkg/errors"
)

// Middleware returns HTTP middleware admitting only requests whose token
// validates for scope. An empty scope only checks the token.
//
// A malformed Authorization header is answered with 400, a missing or
// rejected token with 401, and a failure to reach the authority with the
// error's own status (503 for an unavailable certificate). On success the
// token is stored in the request context, see [TokenFromContext].
//
//	mux := http.NewServeMux()
//	mux.HandleFunc("/reports", handleReports)
//	http.ListenAndServe(":8080", persona.Middleware(client, "reports:read")(mux))
func Middleware(validator TokenValidator, scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, err := ExtractToken(r)
			if err != nil {
				if pserr.HasCode(err, pserr.CodeMalformedAuthHeader) {
					http.Error(w, "malformed authorization header", http.StatusBadRequest)
					return
				}
				http.Error(w, "missing bearer token", http.StatusUnauthorized)
				return
			}

			result, err := validator.ValidateToken(ctx, token, scope)
			if err != nil {
				slog.WarnContext(ctx, "persona: token validation failed",
					"error", err,
					"scope", scope,
				)
				status := http.StatusServiceUnavailable
				if pe, ok := pserr.AsError(err); ok {
					status = pe.HTTPStatus()
				}
				http.Error(w, http.StatusText(status), status)
				return
			}
			if !result.OK() {
				http.Error(w, "token validation failed", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r.WithContext(ContextWithToken(ctx, token)))
		})
	}
}
