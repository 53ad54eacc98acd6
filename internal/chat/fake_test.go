package chat

import (
	"context"
	"errors"
	"sync"
	"time"

	"chatsync/internal/api"
	"chatsync/internal/model"
)

var errDown = errors.New("connection refused")

type fakeService struct {
	mu sync.Mutex

	users   map[string]model.Session
	authErr error

	chats     []model.ConversationSummary
	groups    []model.ConversationSummary
	chatsErr  error
	groupsErr error

	history map[model.ConversationKey][]model.Message
	// gates holds ListMessages for a key until the channel is closed.
	gates map[model.ConversationKey]chan struct{}
	// ignoreCancel makes gated loads wait for their gate even when cancelled.
	ignoreCancel bool
	// readFirst makes ListMessages copy the history before waiting on its
	// gate and report the copy on fetched.
	readFirst bool
	fetched   chan model.ConversationKey
	loadErr   error

	sendErr error
	sent    []sentMessage
	nextID  int64

	createErr error
	created   []GroupDraft
	added     [][2]int64

	authRequests []api.AuthRequest
	listChats    int
}

type sentMessage struct {
	who  model.Identity
	key  model.ConversationKey
	text string
}

func newFakeService() *fakeService {
	return &fakeService{
		users:   map[string]model.Session{},
		history: map[model.ConversationKey][]model.Message{},
		gates:   map[model.ConversationKey]chan struct{}{},
		nextID:  100,
	}
}

func (f *fakeService) Authenticate(ctx context.Context, req api.AuthRequest) (model.Session, error) {
	return f.AuthenticateAs(ctx, model.Identity{UserID: req.UserID}, req)
}

func (f *fakeService) AuthenticateAs(_ context.Context, who model.Identity, req api.AuthRequest) (model.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.authRequests = append(f.authRequests, req)
	if f.authErr != nil {
		return model.Session{}, f.authErr
	}
	switch req.Action {
	case api.ActionRegister:
		if _, taken := f.users[req.Username]; taken {
			return model.Session{}, &api.AuthError{Status: 409, Message: "Username already taken"}
		}
		f.nextID++
		s := model.Session{ID: f.nextID, Username: req.Username, Nickname: req.Username}
		f.users[req.Username] = s
		return s, nil
	case api.ActionLogin:
		s, ok := f.users[req.Username]
		if !ok {
			return model.Session{}, &api.AuthError{Status: 401, Message: "Invalid credentials"}
		}
		return s, nil
	case api.ActionUpdateProfile:
		for name, s := range f.users {
			if s.ID == who.UserID {
				s.Nickname, s.Bio, s.AvatarURL = req.Nickname, req.Bio, req.AvatarURL
				f.users[name] = s
				return s, nil
			}
		}
		return model.Session{}, &api.AuthError{Status: 404, Message: "User not found"}
	}
	return model.Session{}, &api.AuthError{Status: 400, Message: "Invalid action"}
}

func (f *fakeService) ListChats(context.Context, model.Identity) ([]model.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listChats++
	if f.chatsErr != nil {
		return nil, f.chatsErr
	}
	return append([]model.ConversationSummary(nil), f.chats...), nil
}

func (f *fakeService) ListGroups(context.Context, model.Identity) ([]model.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.groupsErr != nil {
		return nil, f.groupsErr
	}
	return append([]model.ConversationSummary(nil), f.groups...), nil
}

func (f *fakeService) ListMessages(ctx context.Context, _ model.Identity, key model.ConversationKey) ([]model.Message, error) {
	f.mu.Lock()
	gate := f.gates[key]
	ignoreCancel := f.ignoreCancel
	var early []model.Message
	if f.readFirst {
		early = append([]model.Message(nil), f.history[key]...)
	}
	readFirst, fetched := f.readFirst, f.fetched
	f.mu.Unlock()

	if readFirst && fetched != nil {
		fetched <- key
	}
	if gate != nil {
		if ignoreCancel {
			<-gate
		} else {
			select {
			case <-gate:
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	if readFirst {
		return early, nil
	}
	return append([]model.Message(nil), f.history[key]...), nil
}

func (f *fakeService) SendMessage(_ context.Context, who model.Identity, key model.ConversationKey, text string) (model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.sendErr != nil {
		return model.Message{}, f.sendErr
	}
	f.sent = append(f.sent, sentMessage{who: who, key: key, text: text})
	f.nextID++
	msg := model.Message{ID: f.nextID, SenderID: who.UserID, Text: text, Timestamp: time.Now()}
	if key.IsGroup() {
		msg.GroupID = key.ID
	} else {
		msg.ReceiverID = key.ID
	}
	f.history[key] = append(f.history[key], msg)
	return msg, nil
}

func (f *fakeService) CreateGroup(_ context.Context, _ model.Identity, name, description string) (model.ConversationSummary, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.createErr != nil {
		return model.ConversationSummary{}, f.createErr
	}
	f.created = append(f.created, GroupDraft{Name: name, Description: description})
	f.nextID++
	return model.ConversationSummary{ID: f.nextID, Name: name, Description: description}, nil
}

func (f *fakeService) AddMember(_ context.Context, _ model.Identity, groupID, memberID int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added = append(f.added, [2]int64{groupID, memberID})
	return nil
}

func (f *fakeService) hold(key model.ConversationKey) chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{})
	f.gates[key] = ch
	return ch
}

func (f *fakeService) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}
