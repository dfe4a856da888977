package protocol

import "errors"

var (
	ErrInvalidMessage   = errors.New("invalid message")
	ErrUnknownType      = errors.New("unknown message type")
	ErrConnectionClosed = errors.New("connection is closed")
)
