package domain

// SessionStore persists upload sessions between runs so that an interrupted
// upload can be resumed against the same server session.
// Keys identify the local source (see store.Fingerprint).
type SessionStore interface {
	GetSession(key string) (UploadSession, bool)
	SaveSession(key string, session UploadSession) error
	DeleteSession(key string) error
	ListSessions() (map[string]UploadSession, error)

	// === Lifecycle ===
	Close() error
}
