package token

import "errors"

var (
	// ErrInvalidToken is returned when the token cannot be parsed or verified.
	ErrInvalidToken = errors.New("invalid token")
	// ErrInvalidPublicKey is returned when the configured public key is unusable.
	ErrInvalidPublicKey = errors.New("invalid public key")
)
