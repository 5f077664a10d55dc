package harness

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Envelope is the standard response body shape of the target API.
type Envelope struct {
	Status  string          `json:"status"`
	Code    int             `json:"code"`
	Return  int             `json:"return"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Response is the outcome of one request: the raw status and body, plus the
// parsed envelope when the body carries one.
type Response struct {
	Status int
	Body   []byte
	// Envelope is nil when the body is not the standard JSON envelope.
	Envelope *Envelope
}

// Success reports a 2xx status.
func (r *Response) Success() bool {
	return r.Status >= 200 && r.Status < 300
}

// Denied reports an authorization-layer rejection. The target answers 401 for
// a missing or invalid identity and 403 for an insufficient one.
func (r *Response) Denied() bool {
	return r.Status == http.StatusUnauthorized || r.Status == http.StatusForbidden
}

// Summary renders the response compactly for expected-versus-actual output.
func (r *Response) Summary() string {
	if r.Envelope != nil {
		return fmt.Sprintf("HTTP %d (return %d: %s)", r.Status, r.Envelope.Return, r.Envelope.Message)
	}
	body := strings.TrimSpace(string(r.Body))
	const maxLen = 120
	if len(body) > maxLen {
		body = body[:maxLen] + "..."
	}
	if body == "" {
		return fmt.Sprintf("HTTP %d (empty body)", r.Status)
	}
	return fmt.Sprintf("HTTP %d: %s", r.Status, body)
}

func parseResponse(status int, body []byte) *Response {
	resp := &Response{Status: status, Body: body}
	var env Envelope
	if len(body) > 0 && json.Unmarshal(body, &env) == nil && env.Status != "" {
		resp.Envelope = &env
	}
	return resp
}
