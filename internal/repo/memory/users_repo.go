package memory

import (
	"context"
	"sync"

	"github.com/geocoder89/eduai/internal/domain/user"
)

// UsersRepo keeps users in process memory, keyed by normalized email.
// Nothing survives a restart.
type UsersRepo struct {
	mu      sync.RWMutex
	byEmail map[string]user.User
	emailOf map[string]string // id -> email
}

func NewUsersRepo() *UsersRepo {
	return &UsersRepo{
		byEmail: make(map[string]user.User),
		emailOf: make(map[string]string),
	}
}

func (r *UsersRepo) GetByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byEmail[user.NormalizeEmail(email)]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return u, nil
}

func (r *UsersRepo) GetByID(_ context.Context, id string) (user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email, ok := r.emailOf[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	return r.byEmail[email], nil
}

func (r *UsersRepo) Create(_ context.Context, u user.User) error {
	key := user.NormalizeEmail(u.Email)

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byEmail[key]; exists {
		return user.ErrEmailTaken
	}

	u.Email = key
	r.byEmail[key] = u
	r.emailOf[u.ID] = key
	return nil
}

// Update replaces the stored record with the same id. Email is immutable here.
func (r *UsersRepo) Update(_ context.Context, u user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email, ok := r.emailOf[u.ID]
	if !ok {
		return user.ErrNotFound
	}

	u.Email = email
	r.byEmail[email] = u
	return nil
}

func (r *UsersRepo) List(_ context.Context) ([]user.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]user.User, 0, len(r.byEmail))
	for _, u := range r.byEmail {
		out = append(out, u)
	}
	return out, nil
}
