package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	resp "notehd/internal/lib/api/response"
	"notehd/internal/lib/logger/sl"
	"notehd/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type Provider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*models.ExternalIdentity, error)
}

type StateStore interface {
	SaveState(ctx context.Context, state string, ttl time.Duration) error
	ConsumeState(ctx context.Context, state string) error
}

type IdentityLinker interface {
	LinkExternalIdentity(ctx context.Context, ident models.ExternalIdentity) (string, models.Account, error)
}

// * Login sends the browser to the Google consent screen with a fresh single use state
func Login(
	log *slog.Logger,
	provider Provider,
	states StateStore,
	stateTTL time.Duration,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.google.Login"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		state, err := newState()
		if err != nil {
			log.Error("failed to generate state", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if err := states.SaveState(ctx, state, stateTTL); err != nil {
			log.Error("failed to store state", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		http.Redirect(w, r, provider.AuthCodeURL(state), http.StatusFound)
	}
}

// * Callback finishes the flow and redirects to the frontend with a session token, or to the failure page
func Callback(
	log *slog.Logger,
	provider Provider,
	states StateStore,
	linker IdentityLinker,
	successURL, failureURL string,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.google.Callback"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		fail := func(reason string, attrs ...any) {
			log.Warn(reason, attrs...)
			http.Redirect(w, r, failureURL, http.StatusFound)
		}

		q := r.URL.Query()

		if providerErr := q.Get("error"); providerErr != "" {
			fail("provider returned error", slog.String("error", providerErr))
			return
		}

		state, code := q.Get("state"), q.Get("code")
		if state == "" || code == "" {
			fail("missing state or code")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		if err := states.ConsumeState(ctx, state); err != nil {
			fail("unknown or expired state", sl.Err(err))
			return
		}

		ident, err := provider.Exchange(ctx, code)
		if err != nil {
			fail("code exchange failed", sl.Err(err))
			return
		}

		token, acc, err := linker.LinkExternalIdentity(ctx, *ident)
		if err != nil {
			fail("failed to link identity", sl.Err(err))
			return
		}

		target, err := withToken(successURL, token)
		if err != nil {
			log.Error("invalid success url", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		log.Info("google login completed", slog.String("uid", acc.ID))

		http.Redirect(w, r, target, http.StatusFound)
	}
}

func newState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func withToken(rawURL, token string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()

	return u.String(), nil
}
