// ABOUTME: The uniform HTTP response envelope for the bootstrap API surface.
// ABOUTME: Every handler returns {success, data?, error?}.

package protocol

// Envelope wraps every HTTP API response.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// OK builds a success envelope.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Fail builds an error envelope.
func Fail(msg string) Envelope {
	return Envelope{Success: false, Error: msg}
}
