package reel

import "errors"

// Sentinel errors for the catalogue domain.
var (
	ErrNotFound   = errors.New("not found")
	ErrBadRequest = errors.New("bad request")
	ErrConflict   = errors.New("conflict")
)
