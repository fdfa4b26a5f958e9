package dao

import "errors"

// Sentinel errors returned by stores; match them with errors.Is.
var (
	ErrNotFound  = errors.New("dao: not found")
	ErrInvalidID = errors.New("dao: invalid id")
	ErrNilEntity = errors.New("dao: nil entity")
	// ErrExists is returned by inserts whose id is taken.
	ErrExists = errors.New("dao: already exists")
)
