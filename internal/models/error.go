package models

import "errors"

// Sentinel errors for local precondition failures. These are raised before
// any network call is made, and their text is shown to users verbatim, which
// is why the messages are capitalized display strings rather than the usual
// lowercase error fragments.
var (
	ErrNoPhonePending        = errors.New("No phone number pending verification")
	ErrNoTwoFactorPending    = errors.New("No 2FA verification pending")
	ErrNoPendingVerification = errors.New("No pending verification")
	ErrOAuthNotSupported     = errors.New("OAuth login is not yet implemented in the backend")
)
