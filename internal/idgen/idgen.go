package idgen

import "github.com/google/uuid"

// NewFunc returns a new globally unique identifier as string. It is a
// variable so tests can stub it.
var NewFunc = func() string { return uuid.New().String() }

// New returns a new process identifier.
func New() string { return NewFunc() }

// Valid reports whether id looks like an identifier produced by New.
func Valid(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
