package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"chatsync/internal/api"
	"chatsync/internal/kv"
	"chatsync/internal/model"
)

// SessionKey is the single key the signed-in user is persisted under.
const SessionKey = "chatsync.session"

// SessionStore owns the authenticated user. The persisted record is the source
// of truth for whether anyone is signed in.
type SessionStore struct {
	auth   AuthService
	store  kv.Store
	logger zerolog.Logger

	mu      sync.RWMutex
	current *model.Session
}

func NewSessionStore(auth AuthService, store kv.Store, logger zerolog.Logger) *SessionStore {
	return &SessionStore{auth: auth, store: store, logger: logger}
}

// Restore loads the persisted session. Missing or malformed data restores as
// no session.
func (s *SessionStore) Restore(ctx context.Context) (model.Session, bool) {
	data, err := s.store.Get(ctx, SessionKey)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			s.logger.Warn().Err(err).Msg("session restore: read failed")
		}
		return model.Session{}, false
	}

	var sess model.Session
	if err := json.Unmarshal(data, &sess); err != nil || sess.ID == 0 {
		s.logger.Warn().Err(err).Msg("session restore: discarding malformed record")
		return model.Session{}, false
	}

	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()
	return sess, true
}

func (s *SessionStore) Current() (model.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.current == nil {
		return model.Session{}, false
	}
	return *s.current, true
}

func (s *SessionStore) Login(ctx context.Context, username, password string) (model.Session, error) {
	return s.authenticate(ctx, api.ActionLogin, username, password)
}

func (s *SessionStore) Register(ctx context.Context, username, password string) (model.Session, error) {
	return s.authenticate(ctx, api.ActionRegister, username, password)
}

func (s *SessionStore) authenticate(ctx context.Context, action, username, password string) (model.Session, error) {
	if strings.TrimSpace(username) == "" {
		return model.Session{}, ErrBlankUsername
	}
	if password == "" {
		return model.Session{}, ErrBlankPassword
	}

	sess, err := s.auth.Authenticate(ctx, api.AuthRequest{Action: action, Username: username, Password: password})
	if err != nil {
		return model.Session{}, err
	}
	s.replace(ctx, sess)
	return sess, nil
}

// UpdateProfile sends the full editable field set and replaces the current
// session with the server's answer.
func (s *SessionStore) UpdateProfile(ctx context.Context, fields model.ProfileFields) (model.Session, error) {
	cur, ok := s.Current()
	if !ok {
		return model.Session{}, ErrNoSession
	}

	req := api.AuthRequest{
		Action:    api.ActionUpdateProfile,
		UserID:    cur.ID,
		Nickname:  fields.Nickname,
		Bio:       fields.Bio,
		AvatarURL: fields.AvatarURL,
	}
	sess, err := s.auth.AuthenticateAs(ctx, cur.Identity(), req)
	if err != nil {
		return model.Session{}, err
	}
	if sess.Token == "" {
		sess.Token = cur.Token
	}
	s.replace(ctx, sess)
	return sess, nil
}

// Logout forgets the session locally. No request is made.
func (s *SessionStore) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	return s.store.Delete(ctx, SessionKey)
}

func (s *SessionStore) replace(ctx context.Context, sess model.Session) {
	s.mu.Lock()
	s.current = &sess
	s.mu.Unlock()

	data, err := json.Marshal(sess)
	if err == nil {
		err = s.store.Set(ctx, SessionKey, data)
	}
	if err != nil {
		s.logger.Error().Err(err).Int64("user_id", sess.ID).Msg("session persist failed")
	}
}
