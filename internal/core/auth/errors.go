package auth

import "errors"

// Missing and invalid keys stay indistinguishable to the caller (401
// without confirming the key exists); a revoked key confirms existence and
// gets 403.
var (
	ErrMissingKey       = errors.New("API key required in X-Api-Key header")
	ErrInvalidKeyFormat = errors.New("invalid API key format")
	ErrUnknownKey       = errors.New("unknown secret ID")
	ErrInvalidKey       = errors.New("invalid API key")
	ErrKeyRevoked       = errors.New("API key has been revoked")
)
