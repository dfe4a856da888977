package viewer

import "errors"

var (
	ErrUnknownMode   = errors.New("unknown mode")
	ErrUnknownTarget = errors.New("unknown target")
	ErrUnknownAction = errors.New("unknown action")
	ErrNoImages      = errors.New("no stereo images configured")
	ErrInvalidLayout = errors.New("invalid layout")
)
