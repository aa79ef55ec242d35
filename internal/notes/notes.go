package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"notehd/internal/lib/logger/sl"
	"notehd/internal/models"
	"notehd/internal/storage"

	"github.com/google/uuid"
)

const MaxContentLength = 10000

var (
	ErrValidation   = errors.New("note content is required and limited to 10000 characters")
	ErrNoteNotFound = errors.New("note not found")
	ErrNotOwner     = errors.New("not authorized")
)

type Storage interface {
	SaveNote(ctx context.Context, note models.Note) error
	Note(ctx context.Context, id string) (models.Note, error)
	NotesByOwner(ctx context.Context, ownerID string) ([]models.Note, error)
	DeleteNote(ctx context.Context, id string) error
}

type Service struct {
	log     *slog.Logger
	storage Storage
	now     func() time.Time
}

func New(log *slog.Logger, storage Storage) *Service {
	return &Service{
		log:     log,
		storage: storage,
		now:     time.Now,
	}
}

func (s *Service) List(ctx context.Context, ownerID string) ([]models.Note, error) {
	const op = "notes.List"

	notes, err := s.storage.NotesByOwner(ctx, ownerID)
	if err != nil {
		s.log.Error("failed to list notes", slog.String("op", op), sl.Err(err))

		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return notes, nil
}

func (s *Service) Create(ctx context.Context, ownerID, content string) (models.Note, error) {
	const op = "notes.Create"

	log := s.log.With(
		slog.String("op", op),
		slog.String("uid", ownerID),
	)

	if strings.TrimSpace(content) == "" || utf8.RuneCountInString(content) > MaxContentLength {
		return models.Note{}, fmt.Errorf("%s: %w", op, ErrValidation)
	}

	now := s.now()

	note := models.Note{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Content:   content,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.storage.SaveNote(ctx, note); err != nil {
		log.Error("failed to save note", sl.Err(err))

		return models.Note{}, fmt.Errorf("%s: %w", op, err)
	}

	log.Info("note created", slog.String("note_id", note.ID))

	return note, nil
}

// * Delete removes a note owned by ownerID
func (s *Service) Delete(ctx context.Context, ownerID, noteID string) error {
	const op = "notes.Delete"

	log := s.log.With(
		slog.String("op", op),
		slog.String("uid", ownerID),
		slog.String("note_id", noteID),
	)

	note, err := s.storage.Note(ctx, noteID)
	if err != nil {
		if errors.Is(err, storage.ErrNoteNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNoteNotFound)
		}

		log.Error("failed to load note", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	if note.OwnerID != ownerID {
		log.Warn("attempt to delete a foreign note")

		return fmt.Errorf("%s: %w", op, ErrNotOwner)
	}

	if err := s.storage.DeleteNote(ctx, noteID); err != nil {
		if errors.Is(err, storage.ErrNoteNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNoteNotFound)
		}

		log.Error("failed to delete note", sl.Err(err))

		return fmt.Errorf("%s: %w", op, err)
	}

	log.Info("note removed")

	return nil
}
