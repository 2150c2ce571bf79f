package syncer

import "errors"

var (
	// ErrDisabled is returned by passes of an account whose credentials
	// were rejected, until Reauthenticate is called.
	ErrDisabled = errors.New("sync disabled until reauthentication")

	// ErrUnknownAccount is returned for accounts the scheduler does not own.
	ErrUnknownAccount = errors.New("unknown sync account")
)
