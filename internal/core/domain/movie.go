package domain

import (
	"fmt"
	"time"
)

type Movie struct {
	ID          int64
	Title       string
	ReleaseDate time.Time
	Actors      []Actor
}

func (m Movie) Validate() error {
	if m.Title == "" {
		return fmt.Errorf("%w: title must not be empty", ErrInvalidInput)
	}
	if m.ReleaseDate.IsZero() {
		return fmt.Errorf("%w: release date must be set", ErrInvalidInput)
	}
	return nil
}

// MoviePatch describes a partial update. Nil pointers mean the field was
// omitted from the request; a nil ActorIDs leaves associations untouched.
type MoviePatch struct {
	Title       *string
	ReleaseDate *time.Time
	ActorIDs    *[]int64
}
