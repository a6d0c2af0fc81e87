package entity

// GatewayResponse is the processor JSON payload as returned to the caller.
type GatewayResponse struct {
	StatusCode int
	Body       map[string]any
}

// Rejection returns the processor's own error text when the payload reports one.
func (r *GatewayResponse) Rejection() (string, bool) {
	if r == nil || r.Body == nil {
		return "", false
	}
	for _, key := range []string{"error", "errorMessage", "errorDescription"} {
		if value, ok := r.Body[key]; ok && value != nil && value != "" {
			if text, isText := value.(string); isText {
				return text, true
			}
			return key, true
		}
	}
	return "", false
}
