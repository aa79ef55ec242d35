// Package memory is a process-local storage driver. Everything is lost on restart;
// it backs local runs and tests.
package memory

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"notehd/internal/models"
	"notehd/internal/storage"
)

type Storage struct {
	mu       sync.RWMutex
	accounts map[string]models.Account
	emailIDs map[string]string // email to account id
	notes    map[string]models.Note
	states   map[string]time.Time // state to expiry
	now      func() time.Time
}

func New() *Storage {
	return &Storage{
		accounts: make(map[string]models.Account),
		emailIDs: make(map[string]string),
		notes:    make(map[string]models.Note),
		states:   make(map[string]time.Time),
		now:      time.Now,
	}
}

func (s *Storage) SaveAccount(_ context.Context, acc models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.emailIDs[acc.Email]; ok {
		return storage.ErrAccountExists
	}
	if _, ok := s.accounts[acc.ID]; ok {
		return storage.ErrAccountExists
	}

	s.accounts[acc.ID] = cloneAccount(acc)
	s.emailIDs[acc.Email] = acc.ID

	return nil
}

func (s *Storage) UpdateAccount(_ context.Context, acc models.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.accounts[acc.ID]
	if !ok {
		return storage.ErrAccountNotFound
	}

	if prev.Email != acc.Email {
		if _, taken := s.emailIDs[acc.Email]; taken {
			return storage.ErrAccountExists
		}
		delete(s.emailIDs, prev.Email)
		s.emailIDs[acc.Email] = acc.ID
	}

	s.accounts[acc.ID] = cloneAccount(acc)

	return nil
}

// ClearChallenge stores acc only while the stored passcode hash still equals pendingHash.
func (s *Storage) ClearChallenge(_ context.Context, acc models.Account, pendingHash []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev, ok := s.accounts[acc.ID]
	if !ok {
		return storage.ErrAccountNotFound
	}

	if len(prev.OTPHash) == 0 || !bytes.Equal(prev.OTPHash, pendingHash) {
		return storage.ErrChallengeChanged
	}

	s.accounts[acc.ID] = cloneAccount(acc)

	return nil
}

func (s *Storage) AccountByID(_ context.Context, id string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	acc, ok := s.accounts[id]
	if !ok {
		return models.Account{}, storage.ErrAccountNotFound
	}

	return cloneAccount(acc), nil
}

func (s *Storage) AccountByEmail(_ context.Context, email string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.emailIDs[email]
	if !ok {
		return models.Account{}, storage.ErrAccountNotFound
	}

	return cloneAccount(s.accounts[id]), nil
}

func (s *Storage) AccountByExternalID(_ context.Context, subject string) (models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, acc := range s.accounts {
		if acc.ExternalID != nil && *acc.ExternalID == subject {
			return cloneAccount(acc), nil
		}
	}

	return models.Account{}, storage.ErrAccountNotFound
}

// DeleteUnconfirmedBefore drops accounts that never confirmed and whose passcode expired before cutoff.
func (s *Storage) DeleteUnconfirmedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64

	for id, acc := range s.accounts {
		if acc.ConfirmedAt != nil || acc.ExternalID != nil || acc.OTPExpiresAt == nil {
			continue
		}
		if !acc.OTPExpiresAt.Before(cutoff) {
			continue
		}

		delete(s.emailIDs, acc.Email)
		delete(s.accounts, id)
		n++
	}

	return n, nil
}

func (s *Storage) SaveNote(_ context.Context, note models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.notes[note.ID] = note

	return nil
}

func (s *Storage) Note(_ context.Context, id string) (models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	note, ok := s.notes[id]
	if !ok {
		return models.Note{}, storage.ErrNoteNotFound
	}

	return note, nil
}

// NotesByOwner returns the owner's notes, newest first.
func (s *Storage) NotesByOwner(_ context.Context, ownerID string) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	res := make([]models.Note, 0)
	for _, note := range s.notes {
		if note.OwnerID == ownerID {
			res = append(res, note)
		}
	}

	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})

	return res, nil
}

func (s *Storage) DeleteNote(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.notes[id]; !ok {
		return storage.ErrNoteNotFound
	}

	delete(s.notes, id)

	return nil
}

func (s *Storage) SaveState(_ context.Context, state string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()

	for st, expiresAt := range s.states {
		if !expiresAt.After(now) {
			delete(s.states, st)
		}
	}

	s.states[state] = now.Add(ttl)

	return nil
}

// ConsumeState removes the state and reports storage.ErrStateNotFound if it was unknown or expired.
func (s *Storage) ConsumeState(_ context.Context, state string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiresAt, ok := s.states[state]
	if !ok {
		return storage.ErrStateNotFound
	}

	delete(s.states, state)

	if !expiresAt.After(s.now()) {
		return storage.ErrStateNotFound
	}

	return nil
}

func (s *Storage) Close() {}

func cloneAccount(acc models.Account) models.Account {
	if acc.ExternalID != nil {
		v := *acc.ExternalID
		acc.ExternalID = &v
	}
	if acc.OTPExpiresAt != nil {
		v := *acc.OTPExpiresAt
		acc.OTPExpiresAt = &v
	}
	if acc.ConfirmedAt != nil {
		v := *acc.ConfirmedAt
		acc.ConfirmedAt = &v
	}
	if acc.OTPHash != nil {
		acc.OTPHash = append([]byte(nil), acc.OTPHash...)
	}

	return acc
}
