package signin

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"notehd/internal/auth"
	resp "notehd/internal/lib/api/response"
	"notehd/internal/lib/logger/sl"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
}

type SigninStarter interface {
	BeginSignin(ctx context.Context, email string) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	signins SigninStarter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signin.New"

		log := log.With(
			slog.String("op", op),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)

		var req Request

		err := render.DecodeJSON(r.Body, &req)
		if err != nil {
			log.Error("Failed to decode request body", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Failed to decode request"))

			return
		}

		if err := validate.Struct(req); err != nil {
			var validateErr validator.ValidationErrors
			errors.As(err, &validateErr)

			log.Info("Invalid request", sl.Err(err))

			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.ValidationError(validateErr))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err = signins.BeginSignin(ctx, req.Email)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrValidation):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Email is required"))

			return
		case errors.Is(err, auth.ErrAccountNotFound):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("User not found. Please sign up."))

			return
		case errors.Is(err, auth.ErrDeliveryFailed):
			log.Error("failed to deliver passcode", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Could not send OTP email"))

			return
		default:
			log.Error("failed to start signin", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, resp.Message("OTP sent to your email for login."))
}
