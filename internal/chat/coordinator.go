package chat

import (
	"context"
	"sync"

	"github.com/rs/zerolog"

	"chatsync/internal/hub"
	"chatsync/internal/kv"
	"chatsync/internal/model"
)

type State int

const (
	StateUnauthenticated State = iota
	StateAuthenticated
)

func (s State) String() string {
	if s == StateAuthenticated {
		return "authenticated"
	}
	return "unauthenticated"
}

type Options struct {
	Service Service
	Store   kv.Store
	Hub     *hub.Hub
	Logger  zerolog.Logger
}

// Coordinator owns the session, the directory, the active selection and its
// messages. All of them are guarded by mu; network calls run without it.
type Coordinator struct {
	sessions  *SessionStore
	directory *Directory
	loader    *Loader
	composer  *Composer
	groups    *GroupCreator
	profile   *ProfileEditor
	hub       *hub.Hub
	logger    zerolog.Logger
	gate      Gate

	mu             sync.Mutex
	direct         []model.ConversationSummary
	groupChats     []model.ConversationSummary
	createdGroups  []createdGroup
	selection      *model.ConversationSummary
	stale          bool
	loading        bool
	messages       []model.Message
	// sentDuringLoad holds messages confirmed while a history load for the
	// selection was in flight; they are re-applied on top of its result.
	sentDuringLoad []model.Message
	refreshSeq     uint64
	refreshApplied uint64
	groupDraft     GroupDraft
	profileDraft   *model.ProfileFields

	bg sync.WaitGroup
}

// createdGroup is a locally inserted group that refreshes started before its
// creation cannot know about yet.
type createdGroup struct {
	summary  model.ConversationSummary
	afterSeq uint64
}

func NewCoordinator(opts Options) *Coordinator {
	store := opts.Store
	if store == nil {
		store = kv.NewMemoryStore()
	}
	sessions := NewSessionStore(opts.Service, store, opts.Logger)
	return &Coordinator{
		sessions:  sessions,
		directory: NewDirectory(opts.Service, opts.Logger),
		loader:    NewLoader(opts.Service, opts.Logger),
		composer:  NewComposer(opts.Service, opts.Logger),
		groups:    NewGroupCreator(opts.Service),
		profile:   NewProfileEditor(sessions),
		hub:       opts.Hub,
		logger:    opts.Logger,
	}
}

// Start restores a persisted session and, when there is one, loads the directory.
func (c *Coordinator) Start(ctx context.Context) State {
	sess, ok := c.sessions.Restore(ctx)
	if !ok {
		return StateUnauthenticated
	}
	c.logger.Info().Int64("user_id", sess.ID).Msg("session restored")
	c.publish(hub.Event{Kind: hub.KindSession, Payload: sess})
	c.Refresh(ctx)
	return StateAuthenticated
}

func (c *Coordinator) State() State {
	if _, ok := c.sessions.Current(); ok {
		return StateAuthenticated
	}
	return StateUnauthenticated
}

func (c *Coordinator) Session() (model.Session, bool) {
	return c.sessions.Current()
}

func (c *Coordinator) Login(ctx context.Context, username, password string) (model.Session, error) {
	sess, err := c.sessions.Login(ctx, username, password)
	if err != nil {
		return model.Session{}, c.fail("sign in", err)
	}
	c.signedIn(ctx, sess)
	return sess, nil
}

func (c *Coordinator) Register(ctx context.Context, username, password string) (model.Session, error) {
	sess, err := c.sessions.Register(ctx, username, password)
	if err != nil {
		return model.Session{}, c.fail("register", err)
	}
	c.signedIn(ctx, sess)
	return sess, nil
}

func (c *Coordinator) signedIn(ctx context.Context, sess model.Session) {
	c.reset()
	c.logger.Info().Int64("user_id", sess.ID).Str("username", sess.Username).Msg("signed in")
	c.publish(hub.Event{Kind: hub.KindSession, Payload: sess})
	c.Refresh(ctx)
}

// Logout drops the session and everything scoped to it. The local state is
// cleared even when the persisted record could not be erased.
func (c *Coordinator) Logout(ctx context.Context) error {
	err := c.sessions.Logout(ctx)
	c.reset()
	c.publish(hub.Event{Kind: hub.KindSession})
	if err != nil {
		c.logger.Error().Err(err).Msg("logout: erase persisted session failed")
		return err
	}
	return nil
}

func (c *Coordinator) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gate.Invalidate()
	c.direct = nil
	c.groupChats = nil
	c.createdGroups = nil
	c.selection = nil
	c.stale = false
	c.loading = false
	c.messages = nil
	c.sentDuringLoad = nil
	c.refreshApplied = c.refreshSeq
	c.groupDraft = GroupDraft{}
	c.profileDraft = nil
}

// Refresh re-fetches the directory and returns the merged list. A refresh that
// finishes after a newer one, or after the session changed, is dropped.
func (c *Coordinator) Refresh(ctx context.Context) []model.ConversationSummary {
	sess, ok := c.sessions.Current()
	if !ok {
		return nil
	}

	c.mu.Lock()
	c.refreshSeq++
	seq := c.refreshSeq
	c.mu.Unlock()

	listing := c.directory.Refresh(ctx, sess.Identity())

	c.mu.Lock()
	if cur, ok := c.sessions.Current(); !ok || cur.ID != sess.ID || seq <= c.refreshApplied {
		merged := Merge(c.direct, c.groupChats)
		c.mu.Unlock()
		return merged
	}
	c.refreshApplied = seq
	c.direct = listing.Direct
	c.groupChats = c.keepCreatedGroups(listing.Groups, seq)
	merged := Merge(c.direct, c.groupChats)
	c.reconcileSelection(merged)
	c.mu.Unlock()

	c.publish(hub.Event{Kind: hub.KindDirectory, Payload: merged})
	return merged
}

// keepCreatedGroups re-adds groups created while the refresh numbered seq was
// in flight. Called with mu held.
func (c *Coordinator) keepCreatedGroups(groups []model.ConversationSummary, seq uint64) []model.ConversationSummary {
	kept := c.createdGroups[:0]
	for _, cg := range c.createdGroups {
		if cg.afterSeq < seq {
			continue
		}
		kept = append(kept, cg)
		if _, found := Find(groups, cg.summary.Key()); !found {
			groups = append(groups, cg.summary)
		}
	}
	c.createdGroups = kept
	return groups
}

// reconcileSelection keeps the selection across refreshes. A selection missing
// from the new directory stays selected and is marked stale. Called with mu held.
func (c *Coordinator) reconcileSelection(merged []model.ConversationSummary) {
	if c.selection == nil {
		return
	}
	fresh, found := Find(merged, c.selection.Key())
	if !found {
		c.stale = true
		return
	}
	c.selection = &fresh
	c.stale = false
}

// Chats returns the merged directory filtered by query.
func (c *Coordinator) Chats(query string) []model.ConversationSummary {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Filter(Merge(c.direct, c.groupChats), query)
}

// Select makes key the active conversation and starts loading its history in
// the background. Selecting the active conversation again does nothing.
func (c *Coordinator) Select(ctx context.Context, key model.ConversationKey) error {
	sess, ok := c.sessions.Current()
	if !ok {
		return ErrNoSession
	}

	c.mu.Lock()
	if c.selection != nil && c.selection.Key() == key {
		c.mu.Unlock()
		return nil
	}
	conv, found := Find(Merge(c.direct, c.groupChats), key)
	if !found {
		conv = model.ConversationSummary{ID: key.ID, IsGroup: key.IsGroup()}
	}
	c.selection = &conv
	c.stale = !found
	c.messages = nil
	c.sentDuringLoad = nil
	c.loading = true
	loadCtx, ticket := c.gate.Begin(context.WithoutCancel(ctx), key)
	c.bg.Add(1)
	c.mu.Unlock()

	c.publish(hub.Event{Kind: hub.KindSelection, Payload: conv})
	go c.load(loadCtx, ticket, conv, sess.Identity())
	return nil
}

// ReloadMessages fetches the active conversation's history again.
func (c *Coordinator) ReloadMessages(ctx context.Context) error {
	sess, ok := c.sessions.Current()
	if !ok {
		return ErrNoSession
	}

	c.mu.Lock()
	if c.selection == nil {
		c.mu.Unlock()
		return ErrNoSelection
	}
	conv := *c.selection
	c.loading = true
	loadCtx, ticket := c.gate.Begin(context.WithoutCancel(ctx), conv.Key())
	c.bg.Add(1)
	c.mu.Unlock()

	go c.load(loadCtx, ticket, conv, sess.Identity())
	return nil
}

func (c *Coordinator) load(ctx context.Context, ticket Ticket, conv model.ConversationSummary, who model.Identity) {
	defer c.bg.Done()

	msgs, err := c.loader.Load(ctx, conv, who)

	c.mu.Lock()
	if !c.gate.Current(ticket) {
		c.mu.Unlock()
		c.logger.Debug().Str("conversation", ticket.Key.String()).Msg("discarding superseded load")
		return
	}
	c.loading = false
	sent := c.sentDuringLoad
	c.sentDuringLoad = nil
	if err != nil {
		c.mu.Unlock()
		return
	}
	for _, m := range sent {
		msgs = AppendMessage(msgs, m)
	}
	c.messages = msgs
	snapshot := append([]model.Message(nil), msgs...)
	c.mu.Unlock()

	c.publish(hub.Event{Kind: hub.KindMessages, Payload: snapshot})
}

func (c *Coordinator) ClearSelection() {
	c.mu.Lock()
	c.gate.Invalidate()
	c.selection = nil
	c.stale = false
	c.loading = false
	c.messages = nil
	c.sentDuringLoad = nil
	c.mu.Unlock()

	c.publish(hub.Event{Kind: hub.KindSelection})
}

func (c *Coordinator) Selection() (model.ConversationSummary, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.selection == nil {
		return model.ConversationSummary{}, false
	}
	return *c.selection, true
}

// SelectionStale reports whether the selection was missing from the latest directory.
func (c *Coordinator) SelectionStale() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.selection != nil && c.stale
}

func (c *Coordinator) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading
}

func (c *Coordinator) Messages() []model.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Message(nil), c.messages...)
}

// Send submits text to the active conversation and appends the confirmed
// message. If the selection changed while the request was in flight the
// message is not appended to the new conversation.
func (c *Coordinator) Send(ctx context.Context, text string) (model.Message, error) {
	var sessPtr *model.Session
	sess, ok := c.sessions.Current()
	if ok {
		sessPtr = &sess
	}

	c.mu.Lock()
	var conv *model.ConversationSummary
	if c.selection != nil {
		sel := *c.selection
		conv = &sel
	}
	current := append([]model.Message(nil), c.messages...)
	c.mu.Unlock()

	_, msg, err := c.composer.Send(ctx, text, conv, sessPtr, current)
	if err != nil {
		return model.Message{}, c.fail("send message", err)
	}

	c.mu.Lock()
	applied := false
	if cur, ok := c.sessions.Current(); ok && cur.ID == sess.ID && c.selection != nil && c.selection.Key() == conv.Key() {
		c.messages = AppendMessage(c.messages, msg)
		if c.loading {
			c.sentDuringLoad = append(c.sentDuringLoad, msg)
		}
		applied = true
	}
	snapshot := append([]model.Message(nil), c.messages...)
	c.mu.Unlock()

	if applied {
		c.publish(hub.Event{Kind: hub.KindMessages, Payload: snapshot})
	}
	c.refreshInBackground(ctx)
	return msg, nil
}

func (c *Coordinator) refreshInBackground(ctx context.Context) {
	c.bg.Add(1)
	go func() {
		defer c.bg.Done()
		c.Refresh(context.WithoutCancel(ctx))
	}()
}

func (c *Coordinator) SetGroupDraft(d GroupDraft) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupDraft = d
}

func (c *Coordinator) GroupDraft() GroupDraft {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.groupDraft
}

// CreateGroup creates a group from the current draft and inserts it into the
// directory without a full refresh. The draft is cleared on success.
func (c *Coordinator) CreateGroup(ctx context.Context) (model.ConversationSummary, error) {
	sess, _ := c.sessions.Current()

	c.mu.Lock()
	draft := c.groupDraft
	c.mu.Unlock()

	summary, err := c.groups.Create(ctx, draft, sess.Identity())
	if err != nil {
		return model.ConversationSummary{}, c.fail("create group", err)
	}

	c.mu.Lock()
	if cur, ok := c.sessions.Current(); !ok || cur.ID != sess.ID {
		c.mu.Unlock()
		return summary, nil
	}
	if _, found := Find(c.groupChats, summary.Key()); !found {
		groups := make([]model.ConversationSummary, 0, len(c.groupChats)+1)
		groups = append(groups, c.groupChats...)
		c.groupChats = append(groups, summary)
	}
	c.createdGroups = append(c.createdGroups, createdGroup{summary: summary, afterSeq: c.refreshSeq})
	c.groupDraft = GroupDraft{}
	merged := Merge(c.direct, c.groupChats)
	c.mu.Unlock()

	c.publish(hub.Event{Kind: hub.KindDirectory, Payload: merged})
	return summary, nil
}

// AddGroupMember adds memberID to groupID and refreshes the directory in the
// background so member counts follow.
func (c *Coordinator) AddGroupMember(ctx context.Context, groupID, memberID int64) error {
	sess, _ := c.sessions.Current()
	if err := c.groups.AddMember(ctx, sess.Identity(), groupID, memberID); err != nil {
		return c.fail("add member", err)
	}
	c.refreshInBackground(ctx)
	return nil
}

// OpenProfile seeds the profile form from the current session.
func (c *Coordinator) OpenProfile() (model.ProfileFields, error) {
	fields, err := c.profile.Open()
	if err != nil {
		return model.ProfileFields{}, err
	}
	c.mu.Lock()
	draft := fields
	c.profileDraft = &draft
	c.mu.Unlock()
	return fields, nil
}

func (c *Coordinator) SetProfileDraft(fields model.ProfileFields) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profileDraft == nil {
		return ErrProfileClosed
	}
	c.profileDraft = &fields
	return nil
}

func (c *Coordinator) ProfileDraft() (model.ProfileFields, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.profileDraft == nil {
		return model.ProfileFields{}, false
	}
	return *c.profileDraft, true
}

func (c *Coordinator) CloseProfile() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.profileDraft = nil
}

// SaveProfile persists the open profile form and closes it on success.
func (c *Coordinator) SaveProfile(ctx context.Context) (model.Session, error) {
	c.mu.Lock()
	if c.profileDraft == nil {
		c.mu.Unlock()
		return model.Session{}, ErrProfileClosed
	}
	fields := *c.profileDraft
	c.mu.Unlock()

	sess, err := c.profile.Save(ctx, fields)
	if err != nil {
		return model.Session{}, c.fail("save profile", err)
	}

	c.mu.Lock()
	c.profileDraft = nil
	c.mu.Unlock()

	c.publish(hub.Event{Kind: hub.KindSession, Payload: sess})
	return sess, nil
}

// Wait blocks until background loads and refreshes have finished.
func (c *Coordinator) Wait() {
	c.bg.Wait()
}

func (c *Coordinator) fail(action string, err error) error {
	text, ok := noticeText(err)
	if !ok {
		return err
	}
	c.logger.Warn().Err(err).Str("action", action).Msg("action failed")
	c.publish(hub.Event{Kind: hub.KindNotice, Level: hub.LevelError, Message: text})
	return err
}

func (c *Coordinator) publish(ev hub.Event) {
	c.hub.Publish(ev)
}
