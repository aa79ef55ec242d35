package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"notehd/internal/lib/logger/sl"
	"notehd/internal/models"
	"notehd/internal/storage"

	"github.com/google/uuid"
)

// * LinkExternalIdentity signs in the account behind a verified provider identity, linking or creating it as needed
func (a *Auth) LinkExternalIdentity(
	ctx context.Context,
	ident models.ExternalIdentity,
) (string, models.Account, error) {
	const op = "auth.LinkExternalIdentity"

	log := a.log.With(
		slog.String("op", op),
	)

	ident.Subject = strings.TrimSpace(ident.Subject)
	ident.Name = displayName(ident)
	ident.Email = normalizeEmail(ident.Email)

	if ident.Subject == "" || ident.Email == "" {
		log.Warn("incomplete identity assertion")

		return "", models.Account{}, fmt.Errorf("%s: %w", op, ErrIdentityAssertionIncomplete)
	}

	acc, err := a.resolveExternal(ctx, log, ident)
	if err != nil {
		return "", models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.tokens.Issue(acc.ID)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return "", models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return token, acc, nil
}

func (a *Auth) resolveExternal(
	ctx context.Context,
	log *slog.Logger,
	ident models.ExternalIdentity,
) (models.Account, error) {
	acc, err := a.accProvider.AccountByExternalID(ctx, ident.Subject)
	if err == nil {
		log.Info("user logged in with linked identity", slog.String("uid", acc.ID))

		return acc, nil
	}
	if !errors.Is(err, storage.ErrAccountNotFound) {
		log.Error("failed to look up user by subject", sl.Err(err))

		return models.Account{}, err
	}

	acc, err = a.linkByEmail(ctx, log, ident)
	if !errors.Is(err, ErrAccountNotFound) {
		return acc, err
	}

	now := a.now()

	acc = models.Account{
		ID:          uuid.NewString(),
		Name:        ident.Name,
		Email:       ident.Email,
		DateOfBirth: placeholderBirthDate(now),
		ExternalID:  &ident.Subject,
		ConfirmedAt: &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err = a.accSaver.SaveAccount(ctx, acc)
	switch {
	case err == nil:
		log.Info("user created from identity provider", slog.String("uid", acc.ID))

		return acc, nil
	case errors.Is(err, storage.ErrAccountExists):
		// another first login for the same email won the insert
		log.Warn("user appeared concurrently, linking instead")

		return a.linkByEmail(ctx, log, ident)
	default:
		log.Error("failed to save user", sl.Err(err))

		return models.Account{}, err
	}
}

func (a *Auth) linkByEmail(
	ctx context.Context,
	log *slog.Logger,
	ident models.ExternalIdentity,
) (models.Account, error) {
	acc, err := a.accountByEmail(ctx, ident.Email)
	if err != nil {
		if !errors.Is(err, ErrAccountNotFound) {
			log.Error("failed to look up user by email", sl.Err(err))
		}

		return models.Account{}, err
	}

	now := a.now()

	subject := ident.Subject
	acc.ExternalID = &subject
	markConfirmed(&acc, now)
	acc.UpdatedAt = now

	if err := a.updateAccount(ctx, acc); err != nil {
		log.Error("failed to link identity", sl.Err(err))

		return models.Account{}, err
	}

	log.Info("identity linked to existing user", slog.String("uid", acc.ID))

	return acc, nil
}

// displayName falls back to the local part of the email as the provider sent it, case kept.
func displayName(ident models.ExternalIdentity) string {
	if name := strings.TrimSpace(ident.Name); name != "" {
		return name
	}

	local, _, _ := strings.Cut(strings.TrimSpace(ident.Email), "@")

	return local
}

func placeholderBirthDate(now time.Time) time.Time {
	y, m, d := now.UTC().Date()

	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
