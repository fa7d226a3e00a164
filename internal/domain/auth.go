package domain

import "time"

// Session is a refresh session held in Redis.
type Session struct {
	Token     string
	UserID    string
	ExpiresAt time.Time
}
