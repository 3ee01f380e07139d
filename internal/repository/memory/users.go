package memory

import (
	"context"

	"github.com/google/uuid"

	"github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/internal/domain/user"
	pumpkin_errors "github.com/MridulSingh17/Team-Pumpkin-Assignment-sub000/pkg/errors"
)

type UserRepository struct {
	s *Store
}

func (r *UserRepository) Create(_ context.Context, u *user.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.users[u.ID]; ok {
		return pumpkin_errors.ErrAlreadyExists
	}
	for _, existing := range r.s.users {
		if existing.Username == u.Username || equalFoldTrim(existing.Email, u.Email) {
			return pumpkin_errors.ErrAlreadyExists
		}
	}
	r.s.users[u.ID] = *u
	return nil
}

func (r *UserRepository) GetUserByID(_ context.Context, id uuid.UUID) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[id]
	if !ok {
		return user.User{}, pumpkin_errors.ErrNotFound
	}
	return u, nil
}

func (r *UserRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	return r.find(func(u user.User) bool { return equalFoldTrim(u.Email, email) })
}

func (r *UserRepository) GetUserByUsername(_ context.Context, username string) (user.User, error) {
	return r.find(func(u user.User) bool { return u.Username == username })
}

func (r *UserRepository) find(match func(user.User) bool) (user.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, u := range r.s.users {
		if match(u) {
			return u, nil
		}
	}
	return user.User{}, pumpkin_errors.ErrNotFound
}
