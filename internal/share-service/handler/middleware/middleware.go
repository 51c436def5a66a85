package middleware

import (
	"context"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"

	"github.com/konorlevich/file_share/internal/share-service/access"
)

type ctxKey struct{}

type TokenVerifier interface {
	UserID(raw string) (string, error)
}

// Identify resolves the bearer token into a caller. Requests without a valid
// token go through as anonymous; each operation decides what that means.
func Identify(v TokenVerifier, l *log.Entry) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
			raw := bearer(r.Header.Get("Authorization"))
			if raw == "" {
				next.ServeHTTP(rw, r)
				return
			}
			userID, err := v.UserID(raw)
			if err != nil {
				l.WithField("client", r.RemoteAddr).WithError(err).Debug("token rejected")
				next.ServeHTTP(rw, r)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKey{}, access.Caller(userID))
			next.ServeHTTP(rw, r.WithContext(ctx))
		})
	}
}

// CallerFrom returns the caller set by Identify, or access.Anonymous.
func CallerFrom(ctx context.Context) access.Caller {
	c, _ := ctx.Value(ctxKey{}).(access.Caller)
	return c
}

func bearer(h string) string {
	if len(h) > 7 && strings.EqualFold(h[:7], "Bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}
