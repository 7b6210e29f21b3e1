package domain

import "time"

// User is an account known to the user directory.
type User struct {
	ID           int64
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Identity returns the token identity for the user.
func (u *User) Identity() Identity {
	return Identity{SubjectID: u.ID, Role: u.Role}
}
