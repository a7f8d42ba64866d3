package engine

// ValidationError reports a question rejected before any I/O happens.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "invalid question: " + e.Reason
}

// AuthorizationError reports a missing caller identity. Every datastore
// query is owner-scoped, so a request without an owner cannot proceed.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	return "unauthorized: " + e.Reason
}
