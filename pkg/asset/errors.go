package asset

import "errors"

// Pipeline errors.
var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrImportFailed      = errors.New("scene import failed")
	ErrUnsupportedFormat = errors.New("unsupported model format")
	ErrMalformedMesh     = errors.New("malformed mesh")
)
