package registry

import "errors"

var (
	// ErrUnknownGeometry is returned when an instance references a geometry id never loaded.
	ErrUnknownGeometry = errors.New("registry: unknown geometry")
	// ErrEmptyGeometry is returned by LoadGeometry for a primitive without vertices or indices.
	ErrEmptyGeometry = errors.New("registry: empty geometry")
	// ErrIndexOutOfRange is returned by LoadGeometry when an index points past the primitive's vertices.
	ErrIndexOutOfRange = errors.New("registry: index out of range")
	// ErrClosed is returned by operations on a closed registry.
	ErrClosed = errors.New("registry: closed")
)
