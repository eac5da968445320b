package api

import "errors"

// ErrUnavailable covers transport failures and non-JSON responses. Callers
// treat it as a transient condition, the local cache stays authoritative.
var ErrUnavailable = errors.New("server unavailable")
