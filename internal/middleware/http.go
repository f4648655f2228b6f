package middleware

import (
	"context"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"matchmaker/internal/models"
	"matchmaker/internal/service"
)

// Resolver maps a raw session token to its account.
type Resolver interface {
	Resolve(ctx context.Context, rawToken string) (models.Account, error)
}

func RequestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := uuid.NewString()
		r = r.WithContext(WithRequestID(r.Context(), rid))
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r)
	})
}

// Session binds the cookie's account to the request context when the token
// is valid. Requests without a valid session continue anonymously.
func Session(res Resolver, cookieName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			c, err := r.Cookie(cookieName)
			if err == nil && c.Value != "" {
				if a, err := res.Resolve(r.Context(), c.Value); err == nil {
					r = r.WithContext(WithAccount(r.Context(), a))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireApproved lets approved members and admins through. Everyone else is
// sent to the login page; the dashboard is itself gated here, so a pending
// account must not bounce back to it.
func RequireApproved(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := Account(r.Context())
		if !service.RequireApproved(a) {
			logDenied(r, a)
			http.Redirect(w, r, "/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin sends anonymous requests to /login and other accounts to
// /dashboard.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		a := Account(r.Context())
		if !service.RequireAdmin(a) {
			logDenied(r, a)
			target := "/dashboard"
			if a == nil {
				target = "/login"
			}
			http.Redirect(w, r, target, http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func logDenied(r *http.Request, a *models.Account) {
	log.Printf("access denied method=%s path=%s state=%s request_id=%s",
		r.Method, r.URL.Path, service.StateOf(a), RequestID(r.Context()))
}

func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			parts := strings.Split(xff, ",")
			return strings.TrimSpace(parts[0])
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func RequestLogger(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sr, r)
			log.Printf("request method=%s path=%s status=%d duration_ms=%d request_id=%s remote_ip=%s",
				r.Method, r.URL.Path, sr.status, time.Since(start).Milliseconds(), RequestID(r.Context()), ClientIP(r, trustProxy))
		})
	}
}
