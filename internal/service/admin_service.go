package service

import (
	"context"
	"errors"
	"strings"

	"github.com/spec-kit/helpdesk-service/internal/audit"
	"github.com/spec-kit/helpdesk-service/internal/auth"
	"github.com/spec-kit/helpdesk-service/internal/clock"
	"github.com/spec-kit/helpdesk-service/internal/domain"
	"github.com/spec-kit/helpdesk-service/internal/events"
	"github.com/spec-kit/helpdesk-service/internal/repository"
	apperrors "github.com/spec-kit/helpdesk-service/pkg/util"
)

// AdminService manages accounts and tags. Every operation requires ADMIN.
type AdminService struct {
	store      repository.Store
	recorder   *audit.Recorder
	events     eventPublisher
	bcryptCost int
}

// AdminDependencies bundles collaborators for the admin service.
type AdminDependencies struct {
	Store      repository.Store
	Recorder   *audit.Recorder
	Dispatcher events.Dispatcher
	Clock      clock.Clock
	BcryptCost int
}

// CreateUserInput describes a new account.
type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     domain.Role
}

// UpdateUserInput lists the mutable account fields; nil means unchanged.
type UpdateUserInput struct {
	Name     *string
	Role     *domain.Role
	Password *string
}

// UserUpdateResult reports whether an account update changed anything.
type UserUpdateResult struct {
	Changed bool
	User    *domain.User
}

// NewAdminService constructs the admin service.
func NewAdminService(deps AdminDependencies) *AdminService {
	if deps.Recorder == nil {
		deps.Recorder = audit.NewRecorder()
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	return &AdminService{
		store:      deps.Store,
		recorder:   deps.Recorder,
		events:     eventPublisher{dispatcher: deps.Dispatcher, clock: deps.Clock},
		bcryptCost: deps.BcryptCost,
	}
}

// CreateUser registers an account. A taken email yields Conflict and leaves
// no trace, audit entry included.
func (s *AdminService) CreateUser(ctx context.Context, actor domain.Actor, input CreateUserInput) (user *domain.User, err error) {
	ctx, span := startSpan(ctx, "AdminService.CreateUser", actor)
	defer func() { endSpan(span, err) }()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	email := strings.TrimSpace(input.Email)
	name := strings.TrimSpace(input.Name)
	if email == "" || name == "" || input.Password == "" {
		return nil, apperrors.NewValidationError("email, name and password are required", nil)
	}
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
	}
	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user = &domain.User{Email: email, Name: name, Role: input.Role, PasswordHash: hash}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Users().Create(ctx, user); err != nil {
			return err
		}
		meta := map[string]any{"userId": user.ID, "email": user.Email, "role": user.Role}
		_, err := s.recorder.Record(ctx, tx.AuditLogs(), actor.ID, audit.ActionUserCreate, meta, nil)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, apperrors.NewConflict("email already exists", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:    events.EventUserCreated,
		Actor:   events.ActorFrom(actor),
		Payload: events.UserPayload{UserID: user.ID, Email: user.Email, Role: user.Role},
	})
	return user, nil
}

// UpdateUser changes name, role or password. A password change is audited as
// a reset without the value.
func (s *AdminService) UpdateUser(ctx context.Context, actor domain.Actor, userID string, input UpdateUserInput) (result *UserUpdateResult, err error) {
	ctx, span := startSpan(ctx, "AdminService.UpdateUser", actor)
	defer func() { endSpan(span, err) }()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if input.Role != nil && !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"field": "role"})
	}
	var newHash string
	if input.Password != nil {
		if *input.Password == "" {
			return nil, apperrors.NewValidationError("password must not be empty", map[string]any{"field": "password"})
		}
		if newHash, err = auth.HashPassword(*input.Password, s.bcryptCost); err != nil {
			return nil, apperrors.NewInternalError(err)
		}
	}

	result = &UserUpdateResult{}
	changed := []string{}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, userID)
		if err != nil {
			return notFound(err, "user")
		}

		changes := map[string]any{}
		if input.Name != nil {
			if name := strings.TrimSpace(*input.Name); name != "" && name != user.Name {
				changes["name"] = domain.FieldChange{From: user.Name, To: name}
				user.Name = name
			}
		}
		if input.Role != nil && *input.Role != user.Role {
			changes["role"] = domain.FieldChange{From: string(user.Role), To: string(*input.Role)}
			user.Role = *input.Role
		}
		if newHash != "" {
			changes["password"] = map[string]bool{"reset": true}
			user.PasswordHash = newHash
		}
		if len(changes) == 0 {
			return nil
		}

		if err := tx.Users().Update(ctx, user); err != nil {
			return err
		}
		meta := map[string]any{"userId": user.ID, "changes": changes}
		if _, err := s.recorder.Record(ctx, tx.AuditLogs(), actor.ID, audit.ActionUserUpdate, meta, nil); err != nil {
			return err
		}
		for field := range changes {
			changed = append(changed, field)
		}
		result.Changed = true
		result.User = user
		return nil
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	if result.Changed {
		s.events.publish(ctx, events.Event{
			Type:    events.EventUserUpdated,
			Actor:   events.ActorFrom(actor),
			Payload: events.UserPayload{UserID: result.User.ID, Email: result.User.Email, Role: result.User.Role, Changed: changed},
		})
	}
	return result, nil
}

// ListUsers returns accounts matching filter.
func (s *AdminService) ListUsers(ctx context.Context, actor domain.Actor, filter repository.UserFilter) ([]domain.User, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	filter.Query = strings.TrimSpace(filter.Query)
	users, err := s.store.Users().List(ctx, filter)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if users == nil {
		users = []domain.User{}
	}
	return users, nil
}

// CreateTag adds a tag to the global namespace. Names are exact and
// case-sensitive; a duplicate yields Conflict.
func (s *AdminService) CreateTag(ctx context.Context, actor domain.Actor, name string) (tag *domain.Tag, err error) {
	ctx, span := startSpan(ctx, "AdminService.CreateTag", actor)
	defer func() { endSpan(span, err) }()

	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("tag name is required", map[string]any{"field": "name"})
	}

	tag = &domain.Tag{Name: name}
	err = s.store.WithinTx(ctx, func(tx repository.Store) error {
		if err := tx.Tags().Create(ctx, tag); err != nil {
			return err
		}
		_, err := s.recorder.Record(ctx, tx.AuditLogs(), actor.ID, audit.ActionTagCreate, map[string]any{"name": name}, nil)
		return err
	})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, apperrors.NewConflict("tag already exists", map[string]any{"name": name})
		}
		return nil, apperrors.MapError(err)
	}

	s.events.publish(ctx, events.Event{
		Type:    events.EventTagCreated,
		Actor:   events.ActorFrom(actor),
		Payload: events.TagCreatedPayload{TagID: tag.ID, Name: tag.Name},
	})
	return tag, nil
}
