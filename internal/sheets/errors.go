package sheets

import "fmt"

// FetchError means the request never produced a response: DNS, connect,
// timeout or transport failure.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetching %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// NetworkError means the upstream answered with a non-success status.
type NetworkError struct {
	URL        string
	StatusCode int
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("fetching %s: unexpected status %d", e.URL, e.StatusCode)
}

// ParseError means the body could not be read as a table at all.
// Individual bad rows are warnings, not ParseErrors.
type ParseError struct {
	Reason string
	Err    error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parsing sheet: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("parsing sheet: %s", e.Reason)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
