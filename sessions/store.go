package sessions

import (
	"encoding/json"

	"github.com/developersupreme/supreme-ai-sdk-sub000/storage"
	"github.com/pkg/errors"
)

const sessionKey = "session"

// Store reads and writes the single Session record of an SDK instance.
type Store struct {
	kv storage.KeyValue
}

// NewStore creates a session store over the given (already prefixed)
// key-value store.
func NewStore(kv storage.KeyValue) *Store {
	return &Store{kv: kv}
}

// Load returns the persisted session, or nil when none exists. A corrupt
// record is removed and reported as an error.
func (s *Store) Load() (*Session, error) {
	raw, ok := s.kv.Get(sessionKey)
	if !ok || raw == "" {
		return nil, nil
	}
	var session Session
	if err := json.Unmarshal([]byte(raw), &session); err != nil {
		s.kv.Remove(sessionKey)
		return nil, errors.Wrap(err, "[Store.Load] corrupt session record")
	}
	return &session, nil
}

// Save persists the session, replacing any previous record.
func (s *Store) Save(session *Session) error {
	raw, err := json.Marshal(session)
	if err != nil {
		return errors.Wrap(err, "[Store.Save] marshal session")
	}
	s.kv.Set(sessionKey, string(raw))
	return nil
}

// UpdateTokens replaces the access token and, only when newRefreshToken is
// non-empty, the refresh token. The backend may intentionally reuse a refresh
// token, in which case the stored one must survive the cycle.
func (s *Store) UpdateTokens(accessToken, newRefreshToken string) (*Session, error) {
	session, err := s.Load()
	if err != nil {
		return nil, errors.Wrap(err, "[Store.UpdateTokens] load")
	}
	if session == nil {
		session = &Session{}
	}
	session.Token = accessToken
	if newRefreshToken != "" {
		session.RefreshToken = newRefreshToken
	}
	if err := s.Save(session); err != nil {
		return nil, errors.Wrap(err, "[Store.UpdateTokens] save")
	}
	return session, nil
}

// Clear removes the persisted session.
func (s *Store) Clear() {
	s.kv.Remove(sessionKey)
}
