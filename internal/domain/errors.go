package domain

import "errors"

var (
	// ErrUnauthenticated means no valid session exists for the caller.
	ErrUnauthenticated = errors.New("not authenticated")
	// ErrEmptyDraft is returned for a blank title or url. Callers treat it as a no-op.
	ErrEmptyDraft = errors.New("title and url are required")
	// ErrMalformedRecord flags a remote row that does not fit the Bookmark shape.
	ErrMalformedRecord = errors.New("malformed bookmark record")
	// ErrFlowNotFound means the OAuth flow is unknown or expired.
	ErrFlowNotFound = errors.New("sign-in flow not found or expired")
)
