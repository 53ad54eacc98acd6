package handler

import (
	"unicode/utf8"

	"chatsync/internal/model"
	"chatsync/internal/store"
)

const (
	previewLimit = 50
	clockLayout  = "15:04"
)

func sessionOf(u store.User, token string) model.Session {
	return model.Session{
		ID:        u.ID,
		Username:  u.Username,
		Nickname:  u.Nickname,
		Bio:       u.Bio,
		AvatarURL: u.AvatarURL,
		Token:     token,
	}
}

// preview cuts long texts to previewLimit runes and marks the cut.
func preview(text string) string {
	if utf8.RuneCountInString(text) <= previewLimit {
		return text
	}
	return string([]rune(text)[:previewLimit]) + "..."
}

func chatOf(cs store.ChatSummary) model.ConversationSummary {
	return model.ConversationSummary{
		ID:          cs.Peer.ID,
		Name:        cs.Peer.DisplayName(),
		LastMessage: preview(cs.LastMessage.Text),
		LastTime:    cs.LastMessage.CreatedAt.Format(clockLayout),
		UnreadCount: cs.Unread,
		Online:      cs.Peer.Online,
		AvatarURL:   cs.Peer.AvatarURL,
	}
}

func groupOf(g store.GroupSummary) model.ConversationSummary {
	return model.ConversationSummary{
		ID:          g.ID,
		Name:        g.Name,
		IsGroup:     true,
		Description: g.Description,
		MemberCount: g.MemberCount,
		AvatarURL:   g.AvatarURL,
		CreatorID:   g.CreatorID,
	}
}

func messageOf(m store.Message) model.Message {
	out := model.Message{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Text:      m.Text,
		Time:      m.CreatedAt.Format(clockLayout),
		Timestamp: m.CreatedAt,
	}
	if m.ReceiverID != nil {
		out.ReceiverID = *m.ReceiverID
	}
	if m.GroupID != nil {
		out.GroupID = *m.GroupID
	}
	return out
}

func groupMessageOf(gm store.GroupMessage) model.Message {
	out := messageOf(gm.Message)
	out.SenderNickname = gm.SenderNickname
	return out
}
