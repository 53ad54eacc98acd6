package chat

import (
	"context"

	"chatsync/internal/model"
)

// ProfileEditor seeds and saves the profile form.
type ProfileEditor struct {
	sessions *SessionStore
}

func NewProfileEditor(sessions *SessionStore) *ProfileEditor {
	return &ProfileEditor{sessions: sessions}
}

// Open returns fresh fields from the current session. Every call discards
// whatever a previous open left behind.
func (p *ProfileEditor) Open() (model.ProfileFields, error) {
	sess, ok := p.sessions.Current()
	if !ok {
		return model.ProfileFields{}, ErrNoSession
	}
	return sess.Profile(), nil
}

func (p *ProfileEditor) Save(ctx context.Context, fields model.ProfileFields) (model.Session, error) {
	return p.sessions.UpdateProfile(ctx, fields)
}
