package model

import (
	"strconv"
	"strings"
	"time"
)

type ConversationKind string

const (
	KindDirect ConversationKind = "direct"
	KindGroup  ConversationKind = "group"
)

// ConversationKey identifies a conversation. A direct chat and a group may
// share a numeric ID, so the kind is always part of the identity.
type ConversationKey struct {
	Kind ConversationKind
	ID   int64
}

func DirectKey(peerID int64) ConversationKey { return ConversationKey{Kind: KindDirect, ID: peerID} }

func GroupKey(groupID int64) ConversationKey { return ConversationKey{Kind: KindGroup, ID: groupID} }

func (k ConversationKey) IsGroup() bool { return k.Kind == KindGroup }

func (k ConversationKey) String() string {
	return string(k.Kind) + ":" + strconv.FormatInt(k.ID, 10)
}

type Session struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	Bio       string `json:"bio,omitempty"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Token     string `json:"token,omitempty"`
}

func (s Session) DisplayName() string {
	if strings.TrimSpace(s.Nickname) != "" {
		return s.Nickname
	}
	return s.Username
}

// ProfileFields is the editable subset of a Session.
type ProfileFields struct {
	Nickname  string
	Bio       string
	AvatarURL string
}

func (s Session) Profile() ProfileFields {
	return ProfileFields{Nickname: s.Nickname, Bio: s.Bio, AvatarURL: s.AvatarURL}
}

type ConversationSummary struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	LastMessage string `json:"lastMessage,omitempty"`
	LastTime    string `json:"time,omitempty"`
	UnreadCount int    `json:"unread,omitempty"`
	Online      bool   `json:"online,omitempty"`
	IsGroup     bool   `json:"is_group"`
	Description string `json:"description,omitempty"`
	MemberCount int    `json:"member_count,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
	CreatorID   int64  `json:"creator_id,omitempty"`
}

func (c ConversationSummary) Key() ConversationKey {
	if c.IsGroup {
		return GroupKey(c.ID)
	}
	return DirectKey(c.ID)
}

type Message struct {
	ID             int64     `json:"id"`
	SenderID       int64     `json:"sender_id"`
	ReceiverID     int64     `json:"receiver_id,omitempty"`
	GroupID        int64     `json:"group_id,omitempty"`
	Text           string    `json:"text"`
	Time           string    `json:"time,omitempty"`
	Timestamp      time.Time `json:"created_at"`
	SenderNickname string    `json:"sender_nickname,omitempty"`
}

// Conversation returns the key of the conversation the message belongs to,
// as seen by the user selfID.
func (m Message) Conversation(selfID int64) ConversationKey {
	if m.GroupID != 0 {
		return GroupKey(m.GroupID)
	}
	if m.SenderID == selfID {
		return DirectKey(m.ReceiverID)
	}
	return DirectKey(m.SenderID)
}

// Identity is what authenticated requests carry: the user id header and,
// when the backend issued one, a bearer token.
type Identity struct {
	UserID int64
	Token  string
}

func (s Session) Identity() Identity {
	return Identity{UserID: s.ID, Token: s.Token}
}
