package admin

import "errors"

var (
	ErrUnknownFormat = errors.New("unknown output format")
	ErrUnknownTask   = errors.New("unknown task name or not supported")
)
