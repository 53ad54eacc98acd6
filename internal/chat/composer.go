package chat

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	"chatsync/internal/model"
)

// Composer submits messages. It waits for the server's copy before touching
// the sequence, so a failed send leaves nothing to roll back.
type Composer struct {
	svc    MessageService
	logger zerolog.Logger
}

func NewComposer(svc MessageService, logger zerolog.Logger) *Composer {
	return &Composer{svc: svc, logger: logger}
}

// Send validates, submits and returns current with the confirmed message
// appended. current itself is never modified.
func (c *Composer) Send(ctx context.Context, text string, conv *model.ConversationSummary, sess *model.Session, current []model.Message) ([]model.Message, model.Message, error) {
	if strings.TrimSpace(text) == "" {
		return current, model.Message{}, ErrBlankText
	}
	if sess == nil || sess.ID == 0 {
		return current, model.Message{}, ErrNoSession
	}
	if conv == nil {
		return current, model.Message{}, ErrNoSelection
	}

	key := conv.Key()
	msg, err := c.svc.SendMessage(ctx, sess.Identity(), key, text)
	if err != nil {
		c.logger.Warn().Err(err).Str("conversation", key.String()).Msg("composer: send failed")
		return current, model.Message{}, err
	}
	msg = reconcile(msg, key, sess)

	return AppendMessage(current, msg), msg, nil
}

// reconcile fills fields the server may leave out of its echo so the message
// always belongs to key and to the sender.
func reconcile(msg model.Message, key model.ConversationKey, sess *model.Session) model.Message {
	if msg.SenderID == 0 {
		msg.SenderID = sess.ID
	}
	if key.IsGroup() {
		msg.GroupID = key.ID
		msg.ReceiverID = 0
		if msg.SenderNickname == "" {
			msg.SenderNickname = sess.DisplayName()
		}
	} else {
		msg.ReceiverID = key.ID
		msg.GroupID = 0
	}
	return msg
}

// AppendMessage returns a new slice with msg at the end. A message whose id is
// already present is not added twice.
func AppendMessage(current []model.Message, msg model.Message) []model.Message {
	out := make([]model.Message, 0, len(current)+1)
	out = append(out, current...)
	if msg.ID != 0 {
		for _, m := range current {
			if m.ID == msg.ID {
				return out
			}
		}
	}
	return append(out, msg)
}
