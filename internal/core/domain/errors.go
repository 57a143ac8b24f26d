package domain

import "errors"

var (
	ErrCredentialNotFound = errors.New("credential not found")
	ErrContentNotFound    = errors.New("content not found")
	ErrNoPlayableStream   = errors.New("no playable stream")
	ErrStoreUnavailable   = errors.New("credential store unavailable")
)
