package domain

import "fmt"

type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
)

// TODO: widen the gender enumeration beyond M/F.
func (g Gender) Valid() bool {
	return g == GenderMale || g == GenderFemale
}

type Actor struct {
	ID     int64
	Name   string
	Age    int
	Gender Gender
	Movies []Movie
}

func (a Actor) Validate() error {
	if a.Name == "" {
		return fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
	}
	if !a.Gender.Valid() {
		return fmt.Errorf("%w: gender must be M or F", ErrInvalidInput)
	}
	return nil
}

// ActorPatch describes a partial update. Nil pointers mean the field was
// omitted from the request; a nil MovieIDs leaves associations untouched.
type ActorPatch struct {
	Name     *string
	Age      *int
	Gender   *Gender
	MovieIDs *[]int64
}
