package me

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"notehd/internal/auth"
	resp "notehd/internal/lib/api/response"
	"notehd/internal/lib/logger/sl"
	"notehd/internal/middleware/authn"
	"notehd/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type AccountProvider interface {
	Account(ctx context.Context, id string) (models.Account, error)
}

func New(log *slog.Logger, accounts AccountProvider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.me.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		id, ok := authn.AccountID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Not authorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		acc, err := accounts.Account(ctx, id)
		if err != nil {
			if errors.Is(err, auth.ErrAccountNotFound) {
				render.Status(r, http.StatusNotFound)
				render.JSON(w, r, resp.Error("User not found in database"))

				return
			}

			log.Error("failed to load account", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, acc)
	}
}
