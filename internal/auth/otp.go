package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"notehd/internal/models"

	"golang.org/x/crypto/bcrypt"
)

const (
	passcodeMin  = 100000
	passcodeSpan = 900000
)

// generatePasscode returns a uniformly random six digit code in [100000, 999999].
func generatePasscode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(passcodeSpan))
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%d", n.Int64()+passcodeMin), nil
}

// issueChallenge puts a fresh passcode on acc and returns the plain code for delivery.
// Any previous challenge is overwritten.
func (a *Auth) issueChallenge(acc *models.Account, now time.Time) (string, error) {
	code, err := generatePasscode()
	if err != nil {
		return "", fmt.Errorf("generate passcode: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(code), a.hashCost)
	if err != nil {
		return "", fmt.Errorf("hash passcode: %w", err)
	}

	acc.SetChallenge(hash, now.Add(a.challengeTTL))

	return code, nil
}

// consumeChallenge is the single transition from a pending challenge to an authenticated account.
// On failure acc is left untouched.
func consumeChallenge(acc *models.Account, code string, now time.Time) error {
	if !acc.HasPendingChallenge() {
		return ErrInvalidOrExpiredChallenge
	}

	if !acc.OTPExpiresAt.After(now) {
		return ErrInvalidOrExpiredChallenge
	}

	if err := bcrypt.CompareHashAndPassword(acc.OTPHash, []byte(code)); err != nil {
		return ErrInvalidOrExpiredChallenge
	}

	acc.ClearChallenge()
	markConfirmed(acc, now)
	acc.UpdatedAt = now

	return nil
}

func markConfirmed(acc *models.Account, now time.Time) {
	if acc.ConfirmedAt == nil {
		acc.ConfirmedAt = &now
	}
}
