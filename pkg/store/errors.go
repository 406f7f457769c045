package store

import "errors"

var (
	// ErrCorrupt indicates the stored document could not be decoded.
	ErrCorrupt = errors.New("store: corrupt document")

	// ErrClosed is returned when writing to a closed AsyncWriter.
	ErrClosed = errors.New("store: writer closed")
)
