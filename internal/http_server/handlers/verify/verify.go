package verify

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"notehd/internal/auth"
	resp "notehd/internal/lib/api/response"
	"notehd/internal/lib/logger/sl"
	"notehd/internal/models"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Request struct {
	Email string `json:"email" validate:"required,email"`
	OTP   string `json:"otp" validate:"required,len=6,numeric"`
}

type Response struct {
	resp.Response
	Token string         `json:"token"`
	User  models.Summary `json:"user"`
}

type ChallengeVerifier interface {
	VerifyChallenge(ctx context.Context, email, code string) (string, models.Account, error)
}

func New(
	log *slog.Logger,
	validate *validator.Validate,
	verifier ChallengeVerifier,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		const op = "handlers.verify.New"

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

		token, acc, err := verifier.VerifyChallenge(ctx, req.Email, req.OTP)
		switch {
		case err == nil:
		case errors.Is(err, auth.ErrAccountNotFound):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("User not found."))

			return
		case errors.Is(err, auth.ErrInvalidOrExpiredChallenge), errors.Is(err, auth.ErrValidation):
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, resp.Error("Invalid or expired OTP."))

			return
		default:
			log.Error("failed to verify passcode", sl.Err(err))

			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, resp.Error("Server error during OTP verification."))

			return
		}

		log.Info("passcode verified", slog.String("uid", acc.ID))

		ResponseOK(w, r, token, acc)
	}
}

func ResponseOK(w http.ResponseWriter, r *http.Request, token string, acc models.Account) {
	render.Status(r, http.StatusCreated)
	render.JSON(w, r, Response{
		Response: resp.OK(),
		Token:    token,
		User:     acc.Summary(),
	})
}
