package domain

import "time"

// User is the built-in Identity stored by the bundled user stores.
type User struct {
	ID           int64
	Username     string
	PasswordHash string
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (u *User) GetID() int64        { return u.ID }
func (u *User) GetUsername() string { return u.Username }
func (u *User) GetPassword() string { return u.PasswordHash }
func (u *User) IsActive() bool      { return u.Active }

var _ Identity = (*User)(nil)
