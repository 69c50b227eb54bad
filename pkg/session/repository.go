package session

import (
	"context"
	"errors"
)

// ErrDecodeSession is returned by LoadSession when a stored session exists but cannot be read.
var ErrDecodeSession = errors.New("stored session cannot be decoded")

// Repository persists sessions keyed by user. LoadSession returns an error
// matching serviceerr.ErrNotFound when the user has no stored session and one
// matching ErrDecodeSession when the stored value is corrupt.
type Repository interface {
	LoadSession(ctx context.Context, userID string) (Session, error)
	StoreSession(ctx context.Context, s Session) error
}
