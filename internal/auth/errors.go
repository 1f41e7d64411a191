package auth

import "errors"

var (
	// ErrTokenInvalid is returned when a presented token fails signature or claim validation.
	ErrTokenInvalid = errors.New("token is invalid or expired")

	// ErrWrongTokenUse is returned when an access token is presented where a refresh
	// token is expected, or the other way round.
	ErrWrongTokenUse = errors.New("token presented for the wrong use")

	// ErrNoSubject is returned when a token carries no subject claim.
	ErrNoSubject = errors.New("token has no subject")
)
