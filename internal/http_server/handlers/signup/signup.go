package signup

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

const dateLayout = "2006-01-02"

type Request struct {
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email"`
	DateOfBirth string `json:"dateOfBirth" validate:"required,datetime=2006-01-02"`
}

type SignupStarter interface {
	BeginSignup(ctx context.Context, name, email string, dateOfBirth time.Time) error
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	signups SignupStarter,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.signup.New"

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

		dob, err := time.Parse(dateLayout, req.DateOfBirth)
		if err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("field DateOfBirth must be a date in 2006-01-02 format"))

			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		err = signups.BeginSignup(ctx, req.Name, req.Email, dob)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrValidation):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Name, email and date of birth are required"))

			return
		case errors.Is(err, auth.ErrDuplicateAccount):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("User already exists"))

			return
		case errors.Is(err, auth.ErrDeliveryFailed):
			log.Error("failed to deliver passcode", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Could not send OTP email"))

			return
		default:
			log.Error("failed to start signup", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Internal error"))

			return
		}

		ResponseOK(w, r)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, resp.Message("OTP sent to your email. Please verify."))
}
