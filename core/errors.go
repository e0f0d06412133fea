package core

import "errors"

var (
	// ErrUserNotFound is returned when no credential record exists for a username.
	ErrUserNotFound = errors.New("user not found")
	// ErrBadCredentials is returned when the password digest does not match.
	ErrBadCredentials = errors.New("incorrect username or password")
	// ErrUserDisabled is returned for accounts that may not sign in.
	ErrUserDisabled = errors.New("user is disabled")
	// ErrLoggingFailure tags errors raised while building or dispatching an
	// operate/access log. These are only ever logged.
	ErrLoggingFailure = errors.New("unable to save log")
)
