package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/rickgao/nakama-client/internal/session"
)

// Errors
var (
	ErrNotFound   = errors.New("session not found")
	ErrExpired    = errors.New("stored session expired")
	ErrInvalidKey = errors.New("invalid session key")
)

var validKey = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.@-]{0,127}$`)

// Record is a persisted token pair.
type Record struct {
	AuthToken    string    `cbor:"1,keyasint"`
	RefreshToken string    `cbor:"2,keyasint,omitempty"`
	SavedAt      time.Time `cbor:"3,keyasint"`
}

// Store saves and loads records by key. Keys are usually a device or
// account identifier.
type Store interface {
	Save(ctx context.Context, key string, rec Record) error
	Load(ctx context.Context, key string) (Record, error)
	Delete(ctx context.Context, key string) error
}

// ValidateKey rejects keys that cannot be used as a file name or row key.
func ValidateKey(key string) error {
	if !validKey.MatchString(key) {
		return fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}
	return nil
}

// FromSession snapshots the tokens held by sess.
func FromSession(sess *session.Session, now time.Time) Record {
	refresh, _ := sess.RefreshToken()
	return Record{
		AuthToken:    sess.AuthToken(),
		RefreshToken: refresh,
		SavedAt:      now.UTC(),
	}
}

// Save is shorthand for store.Save with a snapshot of sess.
func Save(ctx context.Context, store Store, key string, sess *session.Session) error {
	return store.Save(ctx, key, FromSession(sess, time.Now()))
}

// Restore loads the record stored under key and rebuilds a session from it.
// It returns ErrExpired when the session can no longer be used or refreshed;
// a caller should authenticate again in that case.
func Restore(ctx context.Context, store Store, key string, opts ...session.Option) (*session.Session, error) {
	rec, err := store.Load(ctx, key)
	if err != nil {
		return nil, err
	}

	sess, err := session.New(rec.AuthToken, rec.RefreshToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("restore session %q: %w", key, err)
	}

	if _, ok := sess.RefreshToken(); ok {
		if sess.IsRefreshExpired() {
			return nil, ErrExpired
		}
	} else if sess.IsExpired() {
		return nil, ErrExpired
	}
	return sess, nil
}
