package executor

import "errors"

var (
	ErrShutdown       = errors.New("executor: shut down")
	ErrInvalidTimeout = errors.New("executor: invalid duration")
)
