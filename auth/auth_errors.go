package auth

import "github.com/pkg/errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNoRefreshToken     = errors.New("no refresh token")
	ErrNetwork            = errors.New("network error")
)
