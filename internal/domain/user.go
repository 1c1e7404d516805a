package domain

import "time"

// Role enumerates the access levels a helpdesk account can hold.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleAgent Role = "AGENT"
	RoleUser  Role = "USER"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAgent, RoleUser:
		return true
	}
	return false
}

// User is an account that can sign in. The ID never changes; name, role and
// password are only changed by an admin.
type User struct {
	ID           string
	Email        string
	Name         string
	Role         Role
	PasswordHash string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Actor returns the identity used for policy decisions and audit entries.
func (u *User) Actor() Actor {
	return Actor{ID: u.ID, Role: u.Role}
}

// Ref returns the public projection of the user.
func (u *User) Ref() *UserRef {
	if u == nil {
		return nil
	}
	return &UserRef{ID: u.ID, Email: u.Email, Name: u.Name, Role: u.Role}
}

// UserRef is the public projection of a user embedded in other views.
type UserRef struct {
	ID    string
	Email string
	Name  string
	Role  Role
}

// Actor is the authenticated caller of an operation. It is resolved once per
// request and passed explicitly into every service call.
type Actor struct {
	ID   string
	Role Role
}

// IsAdmin reports whether the actor holds the ADMIN role.
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}
