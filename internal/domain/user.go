package domain

import "time"

// Role enumerates operator roles.
type Role string

const (
	RoleAdmin      Role = "ADMIN"
	RoleSupervisor Role = "SUPERVISOR"
	RoleDispatcher Role = "DISPATCHER"
	RoleEngineer   Role = "ENGINEER"
	RoleViewer     Role = "VIEWER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleSupervisor, RoleDispatcher, RoleEngineer, RoleViewer:
		return true
	}
	return false
}

// SiteRight grants extra actions on a single site.
type SiteRight struct {
	SiteID  string   `json:"site_id"`
	Actions []string `json:"actions"`
}

// User is a staff member operating the desk.
type User struct {
	ID             string
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	EscalationTier int
	SiteIDs        []string
	SiteRights     []SiteRight
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasRole reports whether the user holds any of roles.
func (u *User) HasRole(roles ...Role) bool {
	if u == nil {
		return false
	}
	for _, role := range roles {
		if u.Role == role {
			return true
		}
	}
	return false
}

// HasSiteRight reports whether a site grant covers action on siteID.
func (u *User) HasSiteRight(siteID, action string) bool {
	if u == nil {
		return false
	}
	for _, right := range u.SiteRights {
		if right.SiteID != siteID {
			continue
		}
		for _, granted := range right.Actions {
			if granted == action {
				return true
			}
		}
	}
	return false
}
