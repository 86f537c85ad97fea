// internal/errors/errors.go
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// ErrSyncInProgress is returned when a sync for the same login is already running.
var ErrSyncInProgress = errors.New("sync already in progress for this user")

// ErrInvalidLogin is returned when a user login is not a valid GitHub login.
type ErrInvalidLogin struct {
	Login string
}

func (e *ErrInvalidLogin) Error() string {
	return fmt.Sprintf("invalid GitHub login: %q", e.Login)
}

// ErrUserNotFound is returned when the GraphQL API does not know the login.
type ErrUserNotFound struct {
	Login string
}

func (e *ErrUserNotFound) Error() string {
	return fmt.Sprintf("GitHub user %q not found", e.Login)
}

// ErrUnknownStorageDriver is returned for a STORAGE_DRIVER value no backend handles.
type ErrUnknownStorageDriver struct {
	Driver string
}

func (e *ErrUnknownStorageDriver) Error() string {
	return fmt.Sprintf("unknown storage driver: %q, expected one of postgres, redis, sqlite, memory", e.Driver)
}

// GraphQLError carries the errors array of a GraphQL response.
type GraphQLError struct {
	Messages []string
	Types    []string
}

func (e *GraphQLError) Error() string {
	return "graphql: " + strings.Join(e.Messages, "; ")
}
