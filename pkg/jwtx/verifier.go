package jwtx

import (
	"errors"
	"fmt"
)

// AccessVerifier is the narrow interface HTTP middleware needs.
type AccessVerifier interface {
	VerifyAccess(token string) (Claims, error)
}

var (
	// ErrInvalidToken covers every way a token can be unusable other than
	// having expired: malformed, bad signature, wrong algorithm, bad claims.
	ErrInvalidToken = errors.New("jwtx: invalid token")

	// ErrExpired is returned for an authentic token past its exp claim.
	ErrExpired = errors.New("jwtx: token expired")

	ErrWrongPurpose = fmt.Errorf("%w: wrong token purpose", ErrInvalidToken)
	ErrMissingClaim = fmt.Errorf("%w: missing required claim", ErrInvalidToken)
	ErrWeakSecret   = errors.New("jwtx: signing secret must be at least 32 bytes")
)
