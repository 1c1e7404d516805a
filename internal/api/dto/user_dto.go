package dto

import (
	"net/mail"
	"strings"
	"time"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

// CreateUserRequest is the admin payload for a new account.
type CreateUserRequest struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     domain.Role `json:"role"`
}

// Validate checks the request shape.
func (r CreateUserRequest) Validate() error {
	errs := fieldErrors{}
	if _, err := mail.ParseAddress(strings.TrimSpace(r.Email)); err != nil {
		errs["email"] = "must be an email address"
	}
	errs.trimmedLength("name", r.Name, 1, 100)
	errs.length("password", r.Password, 8, 100)
	if !r.Role.Valid() {
		errs["role"] = "must be one of ADMIN, AGENT, USER"
	}
	return errs.err()
}

// UpdateUserRequest is the admin payload for account changes.
type UpdateUserRequest struct {
	Name     *string      `json:"name"`
	Role     *domain.Role `json:"role"`
	Password *string      `json:"password"`
}

// Validate checks the request shape.
func (r UpdateUserRequest) Validate() error {
	errs := fieldErrors{}
	if r.Name != nil {
		errs.trimmedLength("name", *r.Name, 1, 100)
	}
	if r.Role != nil && !r.Role.Valid() {
		errs["role"] = "must be one of ADMIN, AGENT, USER"
	}
	if r.Password != nil {
		errs.length("password", *r.Password, 8, 100)
	}
	return errs.err()
}

// UpdateUserResponse reports the outcome of an account update.
type UpdateUserResponse struct {
	OK      bool          `json:"ok"`
	Changed bool          `json:"changed"`
	User    *UserResponse `json:"user,omitempty"`
}

// CreateTagRequest is the admin payload for a new tag.
type CreateTagRequest struct {
	Name string `json:"name"`
}

// Validate checks the request shape.
func (r CreateTagRequest) Validate() error {
	errs := fieldErrors{}
	errs.trimmedLength("name", r.Name, 1, 50)
	return errs.err()
}

// TagResponse is the public tag view.
type TagResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// NewTagResponse maps a domain tag.
func NewTagResponse(t *domain.Tag) *TagResponse {
	return &TagResponse{ID: t.ID, Name: t.Name, CreatedAt: t.CreatedAt}
}
