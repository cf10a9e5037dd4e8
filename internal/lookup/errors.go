package lookup

import "fmt"

// ValidationError reports query input that fails shape constraints. Callers
// surface it as a 4xx-class rejection; it is never cached.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "lookup: invalid request: " + e.Reason
}

// UpstreamError reports storage being unavailable at query time. Callers
// surface it as a 5xx-class rejection; it is never cached.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("lookup: store unavailable: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }
