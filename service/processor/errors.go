package processor

import (
	"errors"

	"github.com/viant/procflux/service/dao"
)

var (
	// ErrNotFound is returned when a process or ledger entry does not exist.
	ErrNotFound = dao.ErrNotFound

	// ErrValidation is returned for illegal transitions and malformed input.
	ErrValidation = errors.New("processor: validation error")

	// ErrResource is returned when admission control rejects a request.
	ErrResource = errors.New("processor: insufficient resources")

	// ErrShutdown is returned by Submit once workers are shut down.
	ErrShutdown = errors.New("processor: shut down")
)
