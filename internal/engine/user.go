package engine

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kixxpy/markethire/internal/domain"
	"github.com/kixxpy/markethire/internal/events"
	"github.com/kixxpy/markethire/internal/repo"
)

const minPasswordLen = 8

// RegisterOptions are parameters for creating an account.
type RegisterOptions struct {
	Email    string
	Password string
	Name     string
	Role     string
}

func (e Engine) Register(ctx context.Context, opts RegisterOptions) (domain.User, error) {
	email := strings.ToLower(strings.TrimSpace(opts.Email))
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, domain.Invalid("a valid email is required")
	}
	if len(opts.Password) < minPasswordLen {
		return domain.User{}, domain.Invalid("password must be at least 8 characters")
	}
	if strings.TrimSpace(opts.Name) == "" {
		return domain.User{}, domain.Invalid("name is required")
	}
	if opts.Role == "" {
		opts.Role = domain.RolePerformer
	}
	if !domain.ValidRole(opts.Role) {
		return domain.User{}, domain.Invalid("unknown role " + opts.Role)
	}
	if _, err := e.Repo.GetUserByEmail(ctx, email); err == nil {
		return domain.User{}, domain.Conflict("email already registered")
	} else if !errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.User{}, err
	}
	now := e.stamp()
	u := domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		Name:         strings.TrimSpace(opts.Name),
		Role:         opts.Role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if err := e.Repo.InsertUser(ctx, tx, u); err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(ctx, tx, "user.registered", "user", u.ID, u.ID, events.EventPayload{"role": u.Role}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// Login checks credentials and returns the account. Token minting happens at
// the HTTP layer.
func (e Engine) Login(ctx context.Context, email, password string) (domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	u, err := e.Repo.GetUserByEmail(ctx, email)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, domain.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return domain.User{}, err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return domain.User{}, domain.Unauthenticated("invalid email or password")
	}
	return u, nil
}

// GetUser returns the authenticated account's own record, private fields
// included.
func (e Engine) GetUser(ctx context.Context, requesterID string) (domain.User, error) {
	return e.requireUser(ctx, requesterID)
}

func (e Engine) GetProfile(ctx context.Context, id string) (domain.Profile, error) {
	u, err := e.Repo.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.Profile{}, domain.NotFound("user not found")
	}
	if err != nil {
		return domain.Profile{}, err
	}
	return u.Profile(), nil
}

// ProfilePatch carries the optional profile fields an update may overwrite.
type ProfilePatch struct {
	Name      *string
	About     *string
	AvatarURL *string
}

func (e Engine) UpdateProfile(ctx context.Context, id, requesterID string, patch ProfilePatch) (domain.User, error) {
	actor, err := e.requireUser(ctx, requesterID)
	if err != nil {
		return domain.User{}, err
	}
	if id != actor.ID && !actor.IsAdmin() {
		return domain.User{}, domain.Forbidden("insufficient rights to update profile")
	}
	u, err := e.Repo.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, domain.NotFound("user not found")
	}
	if err != nil {
		return domain.User{}, err
	}
	if patch.Name != nil {
		if strings.TrimSpace(*patch.Name) == "" {
			return domain.User{}, domain.Invalid("name is required")
		}
		u.Name = strings.TrimSpace(*patch.Name)
	}
	if patch.About != nil {
		u.About = *patch.About
	}
	if patch.AvatarURL != nil {
		u.AvatarURL = *patch.AvatarURL
	}
	u.UpdatedAt = e.stamp()
	if err := e.Repo.UpdateUser(ctx, u); err != nil {
		return domain.User{}, err
	}
	return u, nil
}

// requireUser resolves the acting account from the identity the auth layer
// verified. A valid token for a deleted account is treated as no credential.
func (e Engine) requireUser(ctx context.Context, id string) (domain.User, error) {
	if id == "" {
		return domain.User{}, domain.Unauthenticated("authentication required")
	}
	u, err := e.Repo.GetUser(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return domain.User{}, domain.Unauthenticated("unknown account")
	}
	return u, err
}
