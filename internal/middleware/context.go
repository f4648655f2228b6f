package middleware

import (
	"context"
	"net/http"

	"matchmaker/internal/models"
)

type ctxKey string

const (
	ctxRequestID ctxKey = "request_id"
	ctxAccount   ctxKey = "account"
)

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestID, id)
}

func RequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestID).(string)
	return v
}

func WithAccount(ctx context.Context, a models.Account) context.Context {
	return context.WithValue(ctx, ctxAccount, a)
}

// Account returns the account bound to the request, or nil when anonymous.
func Account(ctx context.Context) *models.Account {
	a, ok := ctx.Value(ctxAccount).(models.Account)
	if !ok {
		return nil
	}
	return &a
}

func SecurityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "same-origin")
		w.Header().Set(
			"Content-Security-Policy",
			"default-src 'self'; img-src 'self' data:; style-src 'self' 'unsafe-inline'; "+
				"form-action 'self'; frame-ancestors 'none'; base-uri 'self'",
		)
		next.ServeHTTP(w, r)
	})
}
