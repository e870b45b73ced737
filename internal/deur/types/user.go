package types

// User is the directory projection returned to API clients.
type User struct {
	UID    string `json:"uid"`
	Name   string `json:"name"`
	Pass   bool   `json:"pass"`
	Access bool   `json:"access"`
}

// CheckResponse reports the outcome of a checkpass dry run. Check is one of
// the scan-validation codes, or "pass_okay".
type CheckResponse struct {
	Check string `json:"check"`
}

// LastSeenResponse maps usernames to a coarse recency bucket for their most
// recent successful entry.
type LastSeenResponse map[string]string
