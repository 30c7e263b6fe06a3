package model

import "fmt"

// Identity correlates partial checkout writes to one logical cart. A non-zero
// UserID always wins over SessionID.
type Identity struct {
	UserID    uint   `json:"user_id"`
	SessionID string `json:"session_id"`
}

// IsEmpty reports whether neither a user nor a session is known.
func (i Identity) IsEmpty() bool {
	return i.UserID == 0 && i.SessionID == ""
}

// IsUser reports whether lookups key on the user rather than the session.
func (i Identity) IsUser() bool {
	return i.UserID != 0
}

// OwnerSessionID is the session id stored on rows owned by this identity.
// Rows keyed by a user carry no session, so a guest sharing the browser
// cannot reach them.
func (i Identity) OwnerSessionID() string {
	if i.IsUser() {
		return ""
	}
	return i.SessionID
}

// LogFields renders the identity for structured logs.
func (i Identity) LogFields() map[string]interface{} {
	return map[string]interface{}{
		"user_id":    i.UserID,
		"session_id": i.SessionID,
	}
}

func (i Identity) String() string {
	if i.IsUser() {
		return fmt.Sprintf("user:%d", i.UserID)
	}
	if i.SessionID != "" {
		return "session:" + i.SessionID
	}
	return "anonymous"
}
