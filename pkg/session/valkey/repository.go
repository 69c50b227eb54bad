package sessionvalkey

import (
	"context"
	"errors"
	"time"

	"github.com/valkey-io/valkey-go"

	"github.com/fishshop/storefront-bot/pkg/session"
)

type ObjectType string

const objectTypeSession ObjectType = "session"

var (
	ErrGetSession   = errors.New("getting session from store")
	ErrStoreSession = errors.New("setting session into storage")
)

type Repository struct {
	store *store
	ttl   time.Duration
}

var _ = session.Repository(&Repository{})

// NewRepository returns a session repository storing JSON encoded sessions
// under "<prefix>:session:<user id>". Sessions expire after ttl when it is positive.
func NewRepository(valkeyClient valkey.Client, prefix string, ttl time.Duration) *Repository {
	return &Repository{
		store: newStore(valkeyClient, prefix),
		ttl:   ttl,
	}
}

func (r *Repository) LoadSession(ctx context.Context, userID string) (session.Session, error) {
	var s session.Session
	err := r.store.Get(ctx, objectTypeSession, userID, &s)
	switch {
	case errors.Is(err, errDecode):
		return session.Session{}, errors.Join(ErrGetSession, session.ErrDecodeSession, err)
	case err != nil:
		return session.Session{}, errors.Join(ErrGetSession, err)
	}

	return s, nil
}

func (r *Repository) StoreSession(ctx context.Context, s session.Session) error {
	if err := r.store.Set(ctx, objectTypeSession, s.UserID, s, r.ttl); err != nil {
		return errors.Join(ErrStoreSession, err)
	}

	return nil
}
