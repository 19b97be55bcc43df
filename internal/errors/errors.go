// Package errors defines the licensing error surface shared by the HTTP
// handlers: sentinel errors for programmatic checks and RFC 7807 problem
// details for responses.
package errors

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/render"
)

// Sentinel errors for license operations.
var (
	ErrLicenseNotValidated = errors.New("license not validated")
	ErrLicenseRejected     = errors.New("license rejected")
	ErrOfflineGraceExpired = errors.New("offline grace period expired")
	ErrRateLimited         = errors.New("rate limited")
)

// ProblemDetails implements RFC 7807 Problem Details for HTTP APIs.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	Extensions map[string]interface{} `json:"-"`
}

// NewProblemDetails creates a problem details response.
func NewProblemDetails(status int, problemType, title, detail, instance string) *ProblemDetails {
	return &ProblemDetails{
		Type:     problemType,
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	}
}

// WithExtension adds an extension member to the problem details.
func (pd *ProblemDetails) WithExtension(key string, value interface{}) *ProblemDetails {
	if pd.Extensions == nil {
		pd.Extensions = make(map[string]interface{})
	}
	pd.Extensions[key] = value
	return pd
}

// Render implements the render.Renderer interface.
func (pd *ProblemDetails) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, pd.Status)
	return nil
}

// MarshalJSON flattens extension members into the top-level object.
func (pd *ProblemDetails) MarshalJSON() ([]byte, error) {
	data := map[string]interface{}{
		"type":   pd.Type,
		"title":  pd.Title,
		"status": pd.Status,
	}
	if pd.Detail != "" {
		data["detail"] = pd.Detail
	}
	if pd.Instance != "" {
		data["instance"] = pd.Instance
	}
	for k, v := range pd.Extensions {
		data[k] = v
	}
	return json.Marshal(data)
}

// RateLimitProblem is the canonical 429 response for the forced
// revalidation endpoint.
func RateLimitProblem(instance string) *ProblemDetails {
	return NewProblemDetails(
		http.StatusTooManyRequests,
		"/errors/rate-limited",
		"Too Many Requests",
		"Too many forced validation attempts. Please try again later.",
		instance,
	)
}
