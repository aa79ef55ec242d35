package authn

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	resp "notehd/internal/lib/api/response"
	"notehd/internal/session"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type accountIDKeyType struct{}

var accountIDKey = accountIDKeyType{}

type Authenticator interface {
	Authenticate(rawToken string) (string, error)
}

// AccountID returns the id the bearer token was issued for.
func AccountID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(accountIDKey).(string)
	return id, ok && id != ""
}

// WithAccountID is how the middleware marks a request as authenticated. Exposed for handler tests.
func WithAccountID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, accountIDKey, id)
}

// * New rejects requests without a valid bearer token and passes the account id on through the context
func New(log *slog.Logger, sessions Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			const op = "middleware.authn"

			log := log.With(
				slog.String("op", op),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)

			id, err := sessions.Authenticate(bearerToken(r))
			if err != nil {
				msg := session.ErrInvalidToken.Error()
				if errors.Is(err, session.ErrMissingToken) {
					msg = session.ErrMissingToken.Error()
				}

				log.Debug("request not authenticated", slog.String("reason", msg))

				render.Status(r, http.StatusUnauthorized)
				render.JSON(w, r, resp.Error(msg))

				return
			}

			next.ServeHTTP(w, r.WithContext(WithAccountID(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) string {
	header := strings.TrimSpace(r.Header.Get("Authorization"))

	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}

	return strings.TrimSpace(token)
}
