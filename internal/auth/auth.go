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
	"golang.org/x/crypto/bcrypt"
)

const DefaultChallengeTTL = 10 * time.Minute

var (
	ErrValidation                  = errors.New("validation failed")
	ErrDuplicateAccount            = errors.New("user already exists")
	ErrAccountNotFound             = errors.New("user not found")
	ErrInvalidOrExpiredChallenge   = errors.New("invalid or expired OTP")
	ErrDeliveryFailed              = errors.New("failed to send OTP")
	ErrIdentityAssertionIncomplete = errors.New("identity provider did not return email and subject")
)

type Auth struct {
	log          *slog.Logger
	accSaver     AccountSaver
	accProvider  AccountProvider
	notifier     Notifier
	tokens       TokenIssuer
	challengeTTL time.Duration
	hashCost     int
	now          func() time.Time
}

type AccountSaver interface {
	SaveAccount(ctx context.Context, acc models.Account) error
	UpdateAccount(ctx context.Context, acc models.Account) error
	ClearChallenge(ctx context.Context, acc models.Account, pendingHash []byte) error
	DeleteUnconfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type AccountProvider interface {
	AccountByID(ctx context.Context, id string) (models.Account, error)
	AccountByEmail(ctx context.Context, email string) (models.Account, error)
	AccountByExternalID(ctx context.Context, subject string) (models.Account, error)
}

// Notifier delivers a freshly issued passcode to the account owner.
type Notifier interface {
	SendChallenge(ctx context.Context, email, code string) error
}

type TokenIssuer interface {
	Issue(accountID string) (string, error)
}

type Option func(*Auth)

func WithClock(now func() time.Time) Option {
	return func(a *Auth) {
		a.now = now
	}
}

// WithPasscodeCost overrides the bcrypt cost used for stored passcodes.
func WithPasscodeCost(cost int) Option {
	return func(a *Auth) {
		a.hashCost = cost
	}
}

func New(
	log *slog.Logger,
	accSaver AccountSaver,
	accProvider AccountProvider,
	notifier Notifier,
	tokens TokenIssuer,
	challengeTTL time.Duration,
	opts ...Option,
) *Auth {
	if challengeTTL <= 0 {
		challengeTTL = DefaultChallengeTTL
	}

	a := &Auth{
		log:          log,
		accSaver:     accSaver,
		accProvider:  accProvider,
		notifier:     notifier,
		tokens:       tokens,
		challengeTTL: challengeTTL,
		hashCost:     bcrypt.DefaultCost,
		now:          time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// * BeginSignup creates a pending account and emails it a passcode
func (a *Auth) BeginSignup(
	ctx context.Context,
	name, email string,
	dateOfBirth time.Time,
) error {
	const op = "auth.BeginSignup"

	log := a.log.With(
		slog.String("op", op),
	)

	name = strings.TrimSpace(name)
	email = normalizeEmail(email)

	if name == "" || email == "" || dateOfBirth.IsZero() {
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}

	_, err := a.accProvider.AccountByEmail(ctx, email)
	switch {
	case err == nil:
		log.Warn("user already exists")

		return fmt.Errorf("%s: %w", op, ErrDuplicateAccount)
	case !errors.Is(err, storage.ErrAccountNotFound):
		log.Error("failed to look up user", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	now := a.now()

	acc := models.Account{
		ID:          uuid.NewString(),
		Name:        name,
		Email:       email,
		DateOfBirth: dateOfBirth,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	code, err := a.issueChallenge(&acc, now)
	if err != nil {
		log.Error("failed to issue passcode", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.accSaver.SaveAccount(ctx, acc); err != nil {
		if errors.Is(err, storage.ErrAccountExists) {
			log.Warn("user already exists")

			return fmt.Errorf("%s: %w", op, ErrDuplicateAccount)
		}

		log.Error("failed to save user", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.dispatch(ctx, acc.Email, code); err != nil {
		log.Error("failed to send passcode", slog.String("uid", acc.ID), sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("signup started", slog.String("uid", acc.ID))

	return nil
}

// * BeginSignin replaces any pending passcode of an existing account with a fresh one
func (a *Auth) BeginSignin(ctx context.Context, email string) error {
	const op = "auth.BeginSignin"

	log := a.log.With(
		slog.String("op", op),
	)

	email = normalizeEmail(email)
	if email == "" {
		return fmt.Errorf("%s: %w", op, ErrValidation)
	}

	acc, err := a.accountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			log.Warn("user not found")
		} else {
			log.Error("failed to look up user", sl.Err(err))
		}

		return fmt.Errorf("%s: %w", op, err)
	}

	now := a.now()

	code, err := a.issueChallenge(&acc, now)
	if err != nil {
		log.Error("failed to issue passcode", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	acc.UpdatedAt = now

	if err := a.updateAccount(ctx, acc); err != nil {
		log.Error("failed to store passcode", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if err := a.dispatch(ctx, acc.Email, code); err != nil {
		log.Error("failed to send passcode", slog.String("uid", acc.ID), sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("signin started", slog.String("uid", acc.ID))

	return nil
}

// * VerifyChallenge consumes the pending passcode and issues a session token
func (a *Auth) VerifyChallenge(
	ctx context.Context,
	email, code string,
) (string, models.Account, error) {
	const op = "auth.VerifyChallenge"

	log := a.log.With(
		slog.String("op", op),
	)

	email = normalizeEmail(email)
	if email == "" || code == "" {
		return "", models.Account{}, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	acc, err := a.accountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrAccountNotFound) {
			log.Warn("user not found")
		} else {
			log.Error("failed to look up user", sl.Err(err))
		}

		return "", models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	pendingHash := acc.OTPHash

	if err := consumeChallenge(&acc, code, a.now()); err != nil {
		log.Info("passcode rejected", slog.String("uid", acc.ID))

		return "", models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := a.accSaver.ClearChallenge(ctx, acc, pendingHash); err != nil {
		switch {
		case errors.Is(err, storage.ErrChallengeChanged):
			log.Info("passcode consumed concurrently", slog.String("uid", acc.ID))
			err = ErrInvalidOrExpiredChallenge
		case errors.Is(err, storage.ErrAccountNotFound):
			err = ErrAccountNotFound
		default:
			log.Error("failed to clear passcode", sl.Err(err))
		}

		return "", models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	token, err := a.tokens.Issue(acc.ID)
	if err != nil {
		log.Error("failed to generate token", sl.Err(err))

		return "", models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("user logged in successfully", slog.String("uid", acc.ID))

	return token, acc, nil
}

// * Account loads an account by id for an already authenticated caller
func (a *Auth) Account(ctx context.Context, id string) (models.Account, error) {
	const op = "auth.Account"

	acc, err := a.accProvider.AccountByID(ctx, id)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return models.Account{}, fmt.Errorf("%s: %w", op, ErrAccountNotFound)
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

func (a *Auth) accountByEmail(ctx context.Context, email string) (models.Account, error) {
	acc, err := a.accProvider.AccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, storage.ErrAccountNotFound) {
			return models.Account{}, ErrAccountNotFound
		}

		return models.Account{}, err
	}

	return acc, nil
}

func (a *Auth) updateAccount(ctx context.Context, acc models.Account) error {
	err := a.accSaver.UpdateAccount(ctx, acc)
	if errors.Is(err, storage.ErrAccountNotFound) {
		return ErrAccountNotFound
	}

	return err
}

func (a *Auth) dispatch(ctx context.Context, email, code string) error {
	if err := a.notifier.SendChallenge(ctx, email, code); err != nil {
		return fmt.Errorf("%w: %v", ErrDeliveryFailed, err)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
