package list

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	resp "notehd/internal/lib/api/response"
	"notehd/internal/lib/logger/sl"
	"notehd/internal/middleware/authn"
	"notehd/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type NoteLister interface {
	List(ctx context.Context, ownerID string) ([]models.Note, error)
}

func New(log *slog.Logger, notes NoteLister) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.list.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		ownerID, ok := authn.AccountID(r.Context())
		if !ok {
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Not authorized"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		res, err := notes.List(ctx, ownerID)
		if err != nil {
			log.Error("failed to list notes", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, res)
	}
}
