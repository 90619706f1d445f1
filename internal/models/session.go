package models

import "time"

// SessionCookie is a transport-agnostic cookie snapshot. Domain may be empty
// when the source transport does not report one; it is never guessed.
type SessionCookie struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Domain string `json:"domain,omitempty"`
}

// SessionState is the persisted form of a bridged session, keyed by site so a
// still-valid session can be reused across process restarts.
type SessionState struct {
	ID        string          `json:"id"` // site key, e.g. "amazon:de"
	SiteRoot  string          `json:"site_root"`
	Cookies   []SessionCookie `json:"cookies"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}
