package client

import "errors"

// Sentinel kinds for client errors. Transport errors returned by the verb
// functions are passed through as the transport produced them and are not
// wrapped in any of these.
var (
	ErrInvalidBaseURL = errors.New("invalid base url")
	ErrEncodeBody     = errors.New("encode request body")
	ErrDecodeBody     = errors.New("decode response body")
)
