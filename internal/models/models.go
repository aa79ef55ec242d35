package models

import "time"

type Account struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Email        string     `json:"email"`
	DateOfBirth  time.Time  `json:"dateOfBirth"`
	ExternalID   *string    `json:"googleId,omitempty"`
	OTPHash      []byte     `json:"-"`
	OTPExpiresAt *time.Time `json:"-"`
	ConfirmedAt  *time.Time `json:"confirmedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// * SetChallenge stores a pending passcode hash together with its expiry
func (a *Account) SetChallenge(hash []byte, expiresAt time.Time) {
	a.OTPHash = hash
	a.OTPExpiresAt = &expiresAt
}

// * ClearChallenge drops the pending passcode, both fields at once
func (a *Account) ClearChallenge() {
	a.OTPHash = nil
	a.OTPExpiresAt = nil
}

// * HasPendingChallenge reports whether a passcode is waiting for verification
func (a *Account) HasPendingChallenge() bool {
	return len(a.OTPHash) > 0 && a.OTPExpiresAt != nil
}

func (a *Account) IsConfirmed() bool {
	return a.ConfirmedAt != nil
}

// Summary is the minimal profile returned together with a session token.
type Summary struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (a *Account) Summary() Summary {
	return Summary{
		ID:    a.ID,
		Name:  a.Name,
		Email: a.Email,
	}
}

// ExternalIdentity is what an identity provider vouches for after its own login flow.
type ExternalIdentity struct {
	Subject string
	Email   string
	Name    string
}

type Note struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"user"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type EmailMessage struct {
	Email    string `json:"to"`
	From     string `json:"from"`
	Subject  string `json:"subject"`
	Text     string `json:"text"`
	HTML     string `json:"html,omitempty"`
	Purpose  string `json:"purpose"`
	QueuedAt int64  `json:"queued_at,omitempty"`
}
