package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"notehd/internal/models"
	"notehd/internal/storage"

	"github.com/jackc/pgx/v5"
)

const accountColumns = `id, name, email, date_of_birth, external_id, otp_hash, otp_expires_at, confirmed_at, created_at, updated_at`

func (r *PostgresRepo) SaveAccount(ctx context.Context, acc models.Account) error {
	const op = "storage.postgres.SaveAccount"

	query := `
		INSERT INTO accounts (` + accountColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
	`

	_, err := r.db.Exec(ctx, query,
		acc.ID,
		acc.Name,
		acc.Email,
		acc.DateOfBirth,
		acc.ExternalID,
		acc.OTPHash,
		acc.OTPExpiresAt,
		acc.ConfirmedAt,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAccountExists
		}

		return fmt.Errorf("%s: failed to save account: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) UpdateAccount(ctx context.Context, acc models.Account) error {
	const op = "storage.postgres.UpdateAccount"

	query := `
		UPDATE accounts
		SET name = $2, email = $3, date_of_birth = $4, external_id = $5,
		    otp_hash = $6, otp_expires_at = $7, confirmed_at = $8, updated_at = $9
		WHERE id = $1;
	`

	tag, err := r.db.Exec(ctx, query,
		acc.ID,
		acc.Name,
		acc.Email,
		acc.DateOfBirth,
		acc.ExternalID,
		acc.OTPHash,
		acc.OTPExpiresAt,
		acc.ConfirmedAt,
		acc.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAccountExists
		}

		return fmt.Errorf("%s: failed to update account: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrAccountNotFound
	}

	return nil
}

// ClearChallenge writes the consumed challenge only if the stored passcode hash is still pendingHash.
// A missing row and a changed hash both report storage.ErrChallengeChanged.
func (r *PostgresRepo) ClearChallenge(ctx context.Context, acc models.Account, pendingHash []byte) error {
	const op = "storage.postgres.ClearChallenge"

	query := `
		UPDATE accounts
		SET otp_hash = NULL, otp_expires_at = NULL, confirmed_at = $2, updated_at = $3
		WHERE id = $1 AND otp_hash = $4;
	`

	tag, err := r.db.Exec(ctx, query,
		acc.ID,
		acc.ConfirmedAt,
		acc.UpdatedAt,
		pendingHash,
	)
	if err != nil {
		return fmt.Errorf("%s: failed to clear passcode: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrChallengeChanged
	}

	return nil
}

func (r *PostgresRepo) AccountByID(ctx context.Context, id string) (models.Account, error) {
	return r.accountBy(ctx, "storage.postgres.AccountByID", "id", id)
}

func (r *PostgresRepo) AccountByEmail(ctx context.Context, email string) (models.Account, error) {
	return r.accountBy(ctx, "storage.postgres.AccountByEmail", "email", email)
}

func (r *PostgresRepo) AccountByExternalID(ctx context.Context, subject string) (models.Account, error) {
	return r.accountBy(ctx, "storage.postgres.AccountByExternalID", "external_id", subject)
}

// column is always one of the fixed names above, never user input.
func (r *PostgresRepo) accountBy(ctx context.Context, op, column, value string) (models.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE ` + column + ` = $1;`

	var acc models.Account

	err := r.db.QueryRow(ctx, query, value).Scan(
		&acc.ID,
		&acc.Name,
		&acc.Email,
		&acc.DateOfBirth,
		&acc.ExternalID,
		&acc.OTPHash,
		&acc.OTPExpiresAt,
		&acc.ConfirmedAt,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Account{}, storage.ErrAccountNotFound
		}

		return models.Account{}, fmt.Errorf("%s: %w", op, err)
	}

	return acc, nil
}

// * DeleteUnconfirmedBefore drops never confirmed, unlinked accounts whose passcode expired before cutoff
func (r *PostgresRepo) DeleteUnconfirmedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	const op = "storage.postgres.DeleteUnconfirmedBefore"

	query := `
		DELETE FROM accounts
		WHERE confirmed_at IS NULL
		  AND external_id IS NULL
		  AND otp_expires_at < $1;
	`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	return tag.RowsAffected(), nil
}
