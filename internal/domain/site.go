package domain

import "time"

// Site is a physical location hosting surveillance assets.
type Site struct {
	ID           string
	Code         string
	Name         string
	Region       string
	Address      string
	IsHeadOffice bool
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
