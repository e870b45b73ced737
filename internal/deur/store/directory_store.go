package store

import (
	"context"
	"errors"
)

// Directory error kinds. These are the only failures that cross the store
// boundary for expected conditions; anything else is an infrastructure error.
var (
	ErrUserNotFound       = errors.New("user_not_found")
	ErrUserAlreadyHasPass = errors.New("user_already_has_a_pass")
	ErrPassExists         = errors.New("pass_exists")
	ErrNoPass             = errors.New("no_pass")
)

// UserRecord is a full directory entry. PassSerial is empty when the user
// holds no pass.
type UserRecord struct {
	UID        string
	Name       string
	Access     bool
	PassSerial string
}

func (u UserRecord) HasPass() bool { return u.PassSerial != "" }

// DirectoryStore is the identity/access/pass directory.
//
// Invariants enforced by every implementation:
//   - a user holds at most one pass;
//   - a pass serial is bound to at most one user, globally;
//   - ambiguous lookups (zero or more than one match) read as not found.
//
// AttachPass checks in order: user exists, user has no pass, serial unused
// anywhere. The checks and the write are atomic with respect to concurrent
// AttachPass calls.
type DirectoryStore interface {
	FindUser(ctx context.Context, uid string) (UserRecord, error)
	FindUserByPass(ctx context.Context, serial string) (UserRecord, error)
	ListUsers(ctx context.Context) ([]UserRecord, error)

	AttachPass(ctx context.Context, uid, serial string) error
	DetachPass(ctx context.Context, uid string) error

	// GrantAccess and DenyAccess are idempotent: repeating either is a no-op
	// success.
	GrantAccess(ctx context.Context, uid string) error
	DenyAccess(ctx context.Context, uid string) error
}
