package auth

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/geocoder89/eduai/internal/domain/user"
	"github.com/geocoder89/eduai/internal/security"
	"github.com/google/uuid"
)

const (
	minPasswordLength = 6
	// bcrypt only reads the first 72 bytes and rejects anything longer
	maxPasswordBytes = 72
)

// UserRepository is the persistence the gate needs. Implementations return
// user.ErrNotFound and user.ErrEmailTaken; emails arrive already normalized.
type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (user.User, error)
	GetByID(ctx context.Context, id string) (user.User, error)
	Create(ctx context.Context, u user.User) error
	Update(ctx context.Context, u user.User) error
	List(ctx context.Context) ([]user.User, error)
}

// Session is what a successful register or login hands back.
type Session struct {
	User  user.Public `json:"user"`
	Token string      `json:"token"`
}

// ProfileUpdate holds optional profile changes. A nil field is left alone;
// an empty Avatar clears it.
type ProfileUpdate struct {
	Name   *string
	Avatar *string
}

type Gate struct {
	users        UserRepository
	tokens       *Manager
	passwordCost int
	now          func() time.Time

	dummyOnce sync.Once
	dummyHash string
}

type GateOption func(*Gate)

func WithPasswordCost(cost int) GateOption {
	return func(g *Gate) { g.passwordCost = cost }
}

func WithClock(now func() time.Time) GateOption {
	return func(g *Gate) { g.now = now }
}

func NewGate(users UserRepository, tokens *Manager, opts ...GateOption) *Gate {
	g := &Gate{
		users:        users,
		tokens:       tokens,
		passwordCost: security.PasswordCost,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *Gate) Register(ctx context.Context, email, password, name string, role user.Role) (Session, error) {
	email = user.NormalizeEmail(email)

	if email != "" {
		_, err := g.users.GetByEmail(ctx, email)
		if err == nil {
			return Session{}, ErrDuplicateUser
		}
		if !errors.Is(err, user.ErrNotFound) {
			return Session{}, fmt.Errorf("lookup user: %w", err)
		}
	}

	name = strings.TrimSpace(name)
	if email == "" || password == "" || name == "" {
		return Session{}, invalid("All fields are required")
	}

	if utf8.RuneCountInString(password) < minPasswordLength {
		return Session{}, invalid("Password must be at least 6 characters long")
	}
	if len(password) > maxPasswordBytes {
		return Session{}, invalid("Password must be at most 72 bytes long")
	}

	if role == "" {
		role = user.RoleStudent
	}
	if !role.IsValid() {
		return Session{}, invalid("Invalid role specified")
	}

	hash, err := security.HashPasswordWithCost(password, g.passwordCost)
	if err != nil {
		return Session{}, fmt.Errorf("hash password: %w", err)
	}

	now := g.now().UTC()
	u := user.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := g.users.Create(ctx, u); err != nil {
		if errors.Is(err, user.ErrEmailTaken) {
			return Session{}, ErrDuplicateUser
		}
		return Session{}, fmt.Errorf("create user: %w", err)
	}

	return g.issue(u)
}

func (g *Gate) Login(ctx context.Context, email, password string) (Session, error) {
	email = user.NormalizeEmail(email)
	if email == "" || password == "" {
		return Session{}, invalid("Email and password are required")
	}

	found, err := g.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			// burn the same bcrypt time as a real comparison
			_ = security.CheckPassword(g.dummy(), password)
			return Session{}, ErrInvalidCredentials
		}
		return Session{}, fmt.Errorf("lookup user: %w", err)
	}

	if err := security.CheckPassword(found.PasswordHash, password); err != nil {
		return Session{}, ErrInvalidCredentials
	}

	return g.issue(found)
}

// VerifyToken checks signature and expiry, then resolves the token's email
// against the store so the caller sees the current role and name.
func (g *Gate) VerifyToken(ctx context.Context, token string) (user.Public, error) {
	claims, err := g.tokens.ParseAndValidate(token)
	if err != nil {
		return user.Public{}, ErrInvalidOrExpiredToken
	}

	u, err := g.users.GetByEmail(ctx, user.NormalizeEmail(claims.Email))
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.Public{}, ErrUserNotFound
		}
		return user.Public{}, fmt.Errorf("lookup user: %w", err)
	}

	return u.Public(), nil
}

func (g *Gate) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	u, err := g.getByID(ctx, userID)
	if err != nil {
		return err
	}

	if err := security.CheckPassword(u.PasswordHash, currentPassword); err != nil {
		return ErrIncorrectPassword
	}

	if utf8.RuneCountInString(newPassword) < minPasswordLength {
		return invalid("New password must be at least 6 characters long")
	}
	if len(newPassword) > maxPasswordBytes {
		return invalid("New password must be at most 72 bytes long")
	}

	hash, err := security.HashPasswordWithCost(newPassword, g.passwordCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	u.PasswordHash = hash
	u.UpdatedAt = g.now().UTC()

	return g.update(ctx, u)
}

func (g *Gate) UpdateUser(ctx context.Context, userID string, in ProfileUpdate) (user.Public, error) {
	u, err := g.getByID(ctx, userID)
	if err != nil {
		return user.Public{}, err
	}

	if in.Name != nil && strings.TrimSpace(*in.Name) != "" {
		u.Name = strings.TrimSpace(*in.Name)
	}
	if in.Avatar != nil {
		if *in.Avatar == "" {
			u.Avatar = nil
		} else {
			avatar := *in.Avatar
			u.Avatar = &avatar
		}
	}
	u.UpdatedAt = g.now().UTC()

	if err := g.update(ctx, u); err != nil {
		return user.Public{}, err
	}

	return u.Public(), nil
}

func (g *Gate) GetAllUsers(ctx context.Context) ([]user.Public, error) {
	all, err := g.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.Before(all[j].CreatedAt)
	})

	out := make([]user.Public, 0, len(all))
	for _, u := range all {
		out = append(out, u.Public())
	}
	return out, nil
}

func (g *Gate) GetUserByID(ctx context.Context, id string) (user.Public, error) {
	u, err := g.getByID(ctx, id)
	if err != nil {
		return user.Public{}, err
	}
	return u.Public(), nil
}

func (g *Gate) getByID(ctx context.Context, id string) (user.User, error) {
	u, err := g.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return user.User{}, ErrUserNotFound
		}
		return user.User{}, fmt.Errorf("lookup user: %w", err)
	}
	return u, nil
}

func (g *Gate) update(ctx context.Context, u user.User) error {
	if err := g.users.Update(ctx, u); err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return ErrUserNotFound
		}
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (g *Gate) issue(u user.User) (Session, error) {
	token, err := g.tokens.GenerateToken(u.ID, u.Email, string(u.Role))
	if err != nil {
		return Session{}, fmt.Errorf("sign token: %w", err)
	}

	return Session{User: u.Public(), Token: token}, nil
}

func (g *Gate) dummy() string {
	g.dummyOnce.Do(func() {
		h, err := security.HashPasswordWithCost(uuid.NewString(), g.passwordCost)
		if err == nil {
			g.dummyHash = h
		}
	})
	return g.dummyHash
}
