package postgres

import (
	"context"
	"errors"
	"fmt"

	"notehd/internal/models"
	"notehd/internal/storage"

	"github.com/jackc/pgx/v5"
)

func (r *PostgresRepo) SaveNote(ctx context.Context, note models.Note) error {
	const op = "storage.postgres.SaveNote"

	query := `
		INSERT INTO notes (id, owner_id, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5);
	`

	_, err := r.db.Exec(ctx, query, note.ID, note.OwnerID, note.Content, note.CreatedAt, note.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%s: failed to save note: %w", op, err)
	}

	return nil
}

func (r *PostgresRepo) Note(ctx context.Context, id string) (models.Note, error) {
	const op = "storage.postgres.Note"

	query := `
		SELECT id, owner_id, content, created_at, updated_at
		FROM notes
		WHERE id = $1;
	`

	var n models.Note

	err := r.db.QueryRow(ctx, query, id).Scan(&n.ID, &n.OwnerID, &n.Content, &n.CreatedAt, &n.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Note{}, storage.ErrNoteNotFound
		}

		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}

	return n, nil
}

func (r *PostgresRepo) NotesByOwner(ctx context.Context, ownerID string) ([]models.Note, error) {
	const op = "storage.postgres.NotesByOwner"

	query := `
		SELECT id, owner_id, content, created_at, updated_at
		FROM notes
		WHERE owner_id = $1
		ORDER BY created_at DESC, id DESC;
	`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	notes := make([]models.Note, 0)

	for rows.Next() {
		var n models.Note

		if err := rows.Scan(&n.ID, &n.OwnerID, &n.Content, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return notes, nil
}

func (r *PostgresRepo) DeleteNote(ctx context.Context, id string) error {
	const op = "storage.postgres.DeleteNote"

	tag, err := r.db.Exec(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if tag.RowsAffected() == 0 {
		return storage.ErrNoteNotFound
	}

	return nil
}
