package create

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	resp "notehd/internal/lib/api/response"
	"notehd/internal/lib/logger/sl"
	"notehd/internal/middleware/authn"
	"notehd/internal/models"
	"notehd/internal/notes"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Content string `json:"content" validate:"required,max=10000"`
}

type NoteCreator interface {
	Create(ctx context.Context, ownerID, content string) (models.Note, error)
}

func New(log *slog.Logger, validate *validator.Validate, creator NoteCreator) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.notes.create.New"

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

		var req Request

		if err := render.DecodeJSON(r.Body, &req); err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		note, err := creator.Create(ctx, ownerID, req.Content)
		if err != nil {
			if errors.Is(err, notes.ErrValidation) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, resp.Error(notes.ErrValidation.Error()))

				return
			}

			log.Error("failed to create note", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, note)
	}
}
