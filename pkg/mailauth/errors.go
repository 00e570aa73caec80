package mailauth

import "errors"

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrVerificationFailed = errors.New("credential verification failed")
	ErrEmptyPassword      = errors.New("password is required")
)
