package protocol

import "errors"

var (
	// ErrMissingType is returned when a message has no type field.
	ErrMissingType = errors.New("protocol: message type missing")

	// ErrNoLandmarks is returned when a frame carries neither landmarks nor a mesh.
	ErrNoLandmarks = errors.New("protocol: frame has no landmarks")
)
