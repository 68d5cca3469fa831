package catalog

import "fmt"

// ValidationError reports input that was rejected before any remote call
// was made, such as a malformed API key.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Message)
}

// RemoteError reports a storefront API call that failed with a non-2xx
// response. Body holds a truncated copy of the response for diagnostics.
type RemoteError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("storefront %s returned %d: %s", e.Op, e.StatusCode, e.Body)
}

// KeyRejected reports whether the remote refused the API key itself, as
// opposed to a transient or server-side failure.
func (e *RemoteError) KeyRejected() bool {
	return e.StatusCode == 401 || e.StatusCode == 403
}
