package domain

import "time"

// Routes the session core navigates between.
const (
	PublicEntryPath = "/"
	LoginPath       = "/login"
	RegisterPath    = "/register"
	DashboardPath   = "/dashboard"
)

// CredentialTTL is how long a persisted credential survives without a new login.
const CredentialTTL = 7 * 24 * time.Hour

// Session is the in-process record of authentication state.
// An empty Credential means none is held. Revision grows by one with every
// mutation, so observers can tell a stale state from a newer one.
type Session struct {
	User            *User  `json:"user"`
	Credential      string `json:"-"`
	IsAuthenticated bool   `json:"is_authenticated"`
	IsInitialized   bool   `json:"is_initialized"`
	Revision        uint64 `json:"-"`
}

// Clone deep-copies the session so readers never share the User pointer.
func (s Session) Clone() Session {
	s.User = s.User.Clone()
	return s
}

// SessionEventKind names a session lifecycle transition.
type SessionEventKind string

const (
	EventLoginSucceeded   SessionEventKind = "login_succeeded"
	EventLoginFailed      SessionEventKind = "login_failed"
	EventRegistered       SessionEventKind = "registered"
	EventRegisterFailed   SessionEventKind = "register_failed"
	EventLogout           SessionEventKind = "logout"
	EventSessionDiscarded SessionEventKind = "session_discarded"
)

// SessionEvent is an audit record of one lifecycle transition.
type SessionEvent struct {
	ID         string           `json:"id" bson:"_id"`
	Kind       SessionEventKind `json:"kind" bson:"kind"`
	Subject    string           `json:"subject,omitempty" bson:"subject,omitempty"`
	Email      string           `json:"email,omitempty" bson:"email,omitempty"`
	TenantID   string           `json:"tenant_id,omitempty" bson:"tenant_id,omitempty"`
	Role       Role             `json:"role,omitempty" bson:"role,omitempty"`
	Reason     string           `json:"reason,omitempty" bson:"reason,omitempty"`
	OccurredAt time.Time        `json:"occurred_at" bson:"occurred_at"`
}
