package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrNotFound = errors.New("not found")

	ErrInvalidInput = errors.New("invalid input")

	// ErrNoLinkedEntities aborts a patch whose association-id list resolved
	// to nothing. The whole update is rolled back.
	ErrNoLinkedEntities = errors.New("none of the referenced ids could be resolved")

	ErrSigningKeyNotFound = errors.New("unable to find the appropriate key")
)

// AuthError carries the failure code and HTTP status produced by the token
// verification pipeline.
type AuthError struct {
	Code        string
	Description string
	Status      int
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Description)
}

// ErrSchemaViolation is returned when a request body does not conform to the
// endpoint's JSON schema. The Errors field contains machine-readable details.
type ErrSchemaViolation struct {
	Errors []string
}

func (e *ErrSchemaViolation) Error() string {
	return fmt.Sprintf("schema validation failed: %s", strings.Join(e.Errors, "; "))
}
