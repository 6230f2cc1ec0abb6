// internal/models/principal.go
package models

// Principal is the authenticated caller identity injected per request by the
// upstream auth layer. It is consumed, never issued, here.
type Principal struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"` // "venue", "professional", "admin"
}
