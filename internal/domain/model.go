package domain

import "time"

// Model is a user-owned ML model record.
type Model struct {
	ID        int64
	UserID    int64
	Detail    string
	CreatedAt time.Time
	UpdatedAt time.Time
}
