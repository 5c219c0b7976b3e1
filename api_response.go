package cloudbalance

import "encoding/json"

// APIResponse is the envelope the API server wraps around most response
// bodies, successful or not.
type APIResponse struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message,omitempty"`
	Data      json.RawMessage `json:"data,omitempty"`
	Timestamp *Timestamp      `json:"timestamp,omitempty"`
}

// hasData returns true if the envelope carries a non-null payload.
func (a APIResponse) hasData() bool {
	return len(a.Data) > 0 && string(a.Data) != "null"
}
