package domain

import "errors"

var (
	ErrNotFound             = errors.New("resource not found")
	ErrMalformedRequest     = errors.New("malformed request")
	ErrPipelineConstruction = errors.New("pipeline construction failed")
	ErrSessionNotFound      = errors.New("session not found")
)
