package dto

// WebNotiError is the failure envelope of the webhook and notification
// proxy endpoints. Those endpoints answer {ok:...} instead of the standard
// Response so the notification provider can parse them.
type WebNotiError struct {
	OK      bool   `json:"ok"`
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// NewWebNotiError builds a failure envelope
func NewWebNotiError(message string) WebNotiError {
	return WebNotiError{Error: message}
}

// NewWebNotiErrorWithDetails builds a failure envelope for upstream or
// persistence failures
func NewWebNotiErrorWithDetails(message, details string) WebNotiError {
	return WebNotiError{Error: message, Details: details}
}

// NewWebNotiSuccess merges fields into an {ok:true} body
func NewWebNotiSuccess(fields map[string]any) map[string]any {
	body := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		body[k] = v
	}
	body["ok"] = true
	return body
}
