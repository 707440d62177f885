package coach

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates input failed validation before submission.
	ErrValidation = errors.New("validation error")

	// ErrInvalidCredentials indicates the service rejected an auth request
	// with a non-success status. Wrong passwords and server errors are not
	// distinguished.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrNetwork indicates an auth request failed in transport.
	ErrNetwork = errors.New("network error")

	// ErrNoRefreshToken indicates a refresh was attempted without a stored
	// refresh token.
	ErrNoRefreshToken = errors.New("no refresh token")

	// ErrNoSession indicates the session store holds no token pair.
	ErrNoSession = errors.New("no stored session")

	// ErrFetchFailed indicates a transcript could not be loaded.
	ErrFetchFailed = errors.New("transcript fetch failed")

	// ErrSendFailed indicates a message send did not produce a reply.
	ErrSendFailed = errors.New("message send failed")

	// ErrSendInProgress indicates a send was rejected because another send
	// is outstanding for the same transcript.
	ErrSendInProgress = errors.New("send already in progress")
)

// HTTPError is returned by service clients when the remote service answers
// with a non-success status.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Body)
}

// IsUnauthorized reports whether err carries an HTTP 401 from the service.
func IsUnauthorized(err error) bool {
	var he *HTTPError
	return errors.As(err, &he) && he.StatusCode == http.StatusUnauthorized
}
