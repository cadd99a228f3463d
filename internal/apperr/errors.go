package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrInvalidName   = errors.New("invalid name")

	// ErrDecode marks a frame that could not be decoded as an image.
	ErrDecode = errors.New("decode frame")
	// ErrEncoder marks a missing encoder binary or a failed encode.
	ErrEncoder = errors.New("encoder failure")
	// ErrUpload marks an upload rejected by the archive or a sink.
	ErrUpload = errors.New("upload failed")
	// ErrEmptyBatch is returned when there is nothing to assemble.
	ErrEmptyBatch = errors.New("empty batch")
)
