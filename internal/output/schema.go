package output

// ErrorResponse is the standard structured error format
type ErrorResponse struct {
	Error   string `json:"error" yaml:"error"`
	Code    string `json:"code,omitempty" yaml:"code,omitempty"`
	Details string `json:"details,omitempty" yaml:"details,omitempty"`
	Hint    string `json:"hint,omitempty" yaml:"hint,omitempty"` // Remediation hint (suggested fix command)
}

// MutationResponse reports the outcome of a state change.
type MutationResponse struct {
	Success bool     `json:"success" yaml:"success"`
	Agent   string   `json:"agent" yaml:"agent"`
	Action  string   `json:"action" yaml:"action"`
	IDs     []string `json:"ids" yaml:"ids"`
	Unread  int      `json:"unread" yaml:"unread"`
}
