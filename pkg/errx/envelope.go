package errx

// Envelope is the uniform failure body every client sees:
// {"success": false, "message": "...", "errors": ["..."]}.
type Envelope struct {
	Success bool     `json:"success"`
	Message string   `json:"message"`
	Errors  []string `json:"errors"`
}

// ToEnvelope renders the error for the client boundary. Only the registered
// message crosses the boundary; codes, details, and causes stay server-side.
func (e *Error) ToEnvelope() Envelope {
	return Envelope{
		Success: false,
		Message: e.Message,
		Errors:  []string{e.Message},
	}
}

// InternalEnvelope is the fixed body for unexpected failures. It never
// carries the underlying error text.
func InternalEnvelope() Envelope {
	return Envelope{
		Success: false,
		Message: "An unexpected error occurred",
		Errors:  []string{"An unexpected error occurred"},
	}
}
