package memory

import (
	"context"
	"testing"
	"time"

	"notehd/internal/models"
	"notehd/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccounts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	acc := models.Account{ID: "a1", Name: "Jonas", Email: "jonas@example.com"}
	require.NoError(t, s.SaveAccount(ctx, acc))

	err := s.SaveAccount(ctx, models.Account{ID: "a2", Email: "jonas@example.com"})
	assert.ErrorIs(t, err, storage.ErrAccountExists)

	got, err := s.AccountByEmail(ctx, "jonas@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	_, err = s.AccountByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	sub := "google-sub"
	got.ExternalID = &sub
	require.NoError(t, s.UpdateAccount(ctx, got))

	byExt, err := s.AccountByExternalID(ctx, "google-sub")
	require.NoError(t, err)
	assert.Equal(t, "a1", byExt.ID)

	err = s.UpdateAccount(ctx, models.Account{ID: "missing"})
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)
}

func TestAccountsAreCopied(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()

	exp := time.Now().Add(time.Minute)
	acc := models.Account{ID: "a1", Email: "a@example.com"}
	acc.SetChallenge([]byte("hash"), exp)
	require.NoError(t, s.SaveAccount(ctx, acc))

	got, err := s.AccountByID(ctx, "a1")
	require.NoError(t, err)

	got.ClearChallenge()
	got.Email = "changed@example.com"

	again, err := s.AccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.True(t, again.HasPendingChallenge())
	assert.Equal(t, "a@example.com", again.Email)
}

func TestDeleteUnconfirmedBefore(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	stale := models.Account{ID: "stale", Email: "stale@example.com"}
	stale.SetChallenge([]byte("h"), now.Add(-48*time.Hour))

	fresh := models.Account{ID: "fresh", Email: "fresh@example.com"}
	fresh.SetChallenge([]byte("h"), now.Add(-time.Hour))

	confirmed := models.Account{ID: "confirmed", Email: "confirmed@example.com", ConfirmedAt: &now}
	confirmed.SetChallenge([]byte("h"), now.Add(-48*time.Hour))

	for _, acc := range []models.Account{stale, fresh, confirmed} {
		require.NoError(t, s.SaveAccount(ctx, acc))
	}

	n, err := s.DeleteUnconfirmedBefore(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	_, err = s.AccountByEmail(ctx, "stale@example.com")
	assert.ErrorIs(t, err, storage.ErrAccountNotFound)

	// the email is free again
	require.NoError(t, s.SaveAccount(ctx, models.Account{ID: "again", Email: "stale@example.com"}))

	_, err = s.AccountByID(ctx, "fresh")
	assert.NoError(t, err)
	_, err = s.AccountByID(ctx, "confirmed")
	assert.NoError(t, err)
}

func TestNotes(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveNote(ctx, models.Note{ID: "n1", OwnerID: "u1", Content: "first", CreatedAt: base}))
	require.NoError(t, s.SaveNote(ctx, models.Note{ID: "n2", OwnerID: "u1", Content: "second", CreatedAt: base.Add(time.Minute)}))
	require.NoError(t, s.SaveNote(ctx, models.Note{ID: "n3", OwnerID: "u2", Content: "other", CreatedAt: base}))

	notes, err := s.NotesByOwner(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, "n2", notes[0].ID)
	assert.Equal(t, "n1", notes[1].ID)

	empty, err := s.NotesByOwner(ctx, "u3")
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	require.NoError(t, s.DeleteNote(ctx, "n1"))
	assert.ErrorIs(t, s.DeleteNote(ctx, "n1"), storage.ErrNoteNotFound)

	_, err = s.Note(ctx, "n1")
	assert.ErrorIs(t, err, storage.ErrNoteNotFound)
}

func TestStates(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	require.NoError(t, s.SaveState(ctx, "abc", 5*time.Minute))
	require.NoError(t, s.ConsumeState(ctx, "abc"))
	assert.ErrorIs(t, s.ConsumeState(ctx, "abc"), storage.ErrStateNotFound)

	require.NoError(t, s.SaveState(ctx, "late", 5*time.Minute))
	now = now.Add(5 * time.Minute)
	assert.ErrorIs(t, s.ConsumeState(ctx, "late"), storage.ErrStateNotFound)
}

func TestStatesExpiredAreSwept(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	for _, st := range []string{"a", "b", "c"} {
		require.NoError(t, s.SaveState(ctx, st, time.Minute))
	}

	now = now.Add(2 * time.Minute)
	require.NoError(t, s.SaveState(ctx, "d", time.Minute))

	assert.Len(t, s.states, 1)
	assert.NoError(t, s.ConsumeState(ctx, "d"))
}

func TestClearChallenge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := New()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	acc := models.Account{ID: "a1", Email: "a@example.com"}
	acc.SetChallenge([]byte("hash-1"), now.Add(10*time.Minute))
	require.NoError(t, s.SaveAccount(ctx, acc))

	cleared := acc
	cleared.ClearChallenge()
	cleared.ConfirmedAt = &now

	assert.ErrorIs(t, s.ClearChallenge(ctx, cleared, []byte("hash-0")), storage.ErrChallengeChanged)

	require.NoError(t, s.ClearChallenge(ctx, cleared, []byte("hash-1")))
	assert.ErrorIs(t, s.ClearChallenge(ctx, cleared, []byte("hash-1")), storage.ErrChallengeChanged)

	got, err := s.AccountByID(ctx, "a1")
	require.NoError(t, err)
	assert.False(t, got.HasPendingChallenge())
	assert.True(t, got.IsConfirmed())

	assert.ErrorIs(t, s.ClearChallenge(ctx, models.Account{ID: "missing"}, []byte("x")), storage.ErrAccountNotFound)
}
