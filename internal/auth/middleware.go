package auth

import (
	"context"
	"net/http"

	"ms-festbuzz/internal/apperr"
	"ms-festbuzz/internal/logger"
	"ms-festbuzz/internal/utils"
)

type contextKey string

const principalKey contextKey = "principal"

// Middleware rejects requests without a valid bearer token and stores the
// Principal in the request context.
func Middleware(verifier Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				utils.WriteError(w, apperr.Unauthenticated("%s", err.Error()))
				return
			}

			p, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", err.Error())
				utils.WriteError(w, apperr.Unauthenticated("invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

// OptionalMiddleware stores the Principal when a valid bearer token is sent
// and lets anonymous requests through.
func OptionalMiddleware(verifier Verifier, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rawToken, err := ExtractTokenFromRequest(r)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			p, err := verifier.Verify(r.Context(), rawToken)
			if err != nil {
				log.LogSecurity("INVALID_TOKEN", err.Error())
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFrom returns the caller stored by Middleware.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != ""
}
