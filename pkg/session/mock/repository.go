package sessionmock

import (
	"context"
	"sync"

	"github.com/fishshop/storefront-bot/internal/serviceerr"
	"github.com/fishshop/storefront-bot/pkg/session"
)

type Repository struct {
	mu       sync.Mutex
	Sessions map[string]session.Session

	loadSessionErr, storeSessionErr error
	stores                          int
}

func NewInMemRepository(loadSessionErr, storeSessionErr error) *Repository {
	return &Repository{
		Sessions:        make(map[string]session.Session),
		loadSessionErr:  loadSessionErr,
		storeSessionErr: storeSessionErr,
	}
}

func (r *Repository) LoadSession(_ context.Context, userID string) (session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.loadSessionErr != nil {
		return session.Session{}, r.loadSessionErr
	}

	if s, ok := r.Sessions[userID]; ok {
		return s, nil
	}

	return session.Session{}, serviceerr.ErrNotFound
}

func (r *Repository) StoreSession(_ context.Context, s session.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.storeSessionErr != nil {
		return r.storeSessionErr
	}

	r.Sessions[s.UserID] = s
	r.stores++

	return nil
}

// State returns the stored state name for a user, or "" when none is stored.
func (r *Repository) State(userID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.Sessions[userID].State
}

// Stores returns how many sessions were written successfully.
func (r *Repository) Stores() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.stores
}
