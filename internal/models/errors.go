package models

import "errors"

// Failure classes shared by the pipeline stages. Components wrap these with
// context; callers match with errors.Is.
var (
	ErrUpstreamUnavailable     = errors.New("upstream unavailable")
	ErrMalformedFeed           = errors.New("malformed feed")
	ErrUnexpectedResponseShape = errors.New("unexpected response shape")
	ErrEmptyInput              = errors.New("no titles to summarize")
)
