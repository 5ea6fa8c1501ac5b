package etsy

import (
	"fmt"
	"net/http"
)

// Failure is returned for every unsuccessful call to the Etsy API: transport
// errors (StatusCode 0), non-2xx responses and unparsable bodies.
type Failure struct {
	StatusCode int
	Body       string
	Err        error
}

func (f *Failure) Error() string {
	if f.StatusCode == 0 {
		return fmt.Sprintf("etsy: %v", f.Err)
	}
	return fmt.Sprintf("etsy: status %d: %v", f.StatusCode, f.Err)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// Retryable reports whether repeating the call may succeed: transport errors,
// timeouts, throttling and server errors. Client errors and decode failures
// are final.
func (f *Failure) Retryable() bool {
	if f.StatusCode == 0 {
		return true
	}
	return f.StatusCode == http.StatusTooManyRequests || f.StatusCode >= http.StatusInternalServerError
}
