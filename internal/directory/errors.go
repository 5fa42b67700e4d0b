// ABOUTME: Error taxonomy for directory backend operations
// ABOUTME: Tagged sentinels so callers never match on backend message strings

package directory

import (
	"errors"
	"fmt"
)

// Directory errors
var (
	// ErrAuth means the backend rejected a login attempt.
	ErrAuth = errors.New("authentication failed")

	// ErrNotAuthenticated means no login has ever succeeded for this session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNotFound means a single-entity query matched nothing. The backend
	// conveys this inside its error payload; classification happens once at
	// the transport boundary and callers test with errors.Is.
	ErrNotFound = errors.New("entity not found")
)

// GroupAddError reports a group attachment the backend explicitly refused.
// This is a backend-level rejection (ok:false), not a transport failure.
type GroupAddError struct {
	UserID  string
	GroupID int
}

func (e *GroupAddError) Error() string {
	return fmt.Sprintf("adding user %q to group %d: backend refused", e.UserID, e.GroupID)
}
