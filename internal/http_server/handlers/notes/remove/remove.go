package remove

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "notehd/internal/lib/api/response"
	"notehd/internal/lib/logger/sl"
	"notehd/internal/middleware/authn"
	"notehd/internal/notes"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
)

type NoteRemover interface {
	Delete(ctx context.Context, ownerID, noteID string) error
}

func New(log *slog.Logger, remover NoteRemover) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.remove.New"

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

		noteID := chi.URLParam(r, "id")
		if noteID == "" {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("note id is required"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err := remover.Delete(ctx, ownerID, noteID)
		switch {
		case err == nil:
		case errors.Is(err, notes.ErrNoteNotFound):
			render.Status(r, http.StatusNotFound)
			render.JSON(w, r, resp.Error("Note not found"))

			return
		case errors.Is(err, notes.ErrNotOwner):
			render.Status(r, http.StatusUnauthorized)
			render.JSON(w, r, resp.Error("Not authorized"))

			return
		default:
			log.Error("failed to delete note", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.JSON(w, r, resp.Message("Note removed"))
	}
}
