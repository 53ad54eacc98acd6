package chat

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"chatsync/internal/model"
)

// Directory fetches direct chats and groups independently and merges them.
type Directory struct {
	svc    DirectoryService
	logger zerolog.Logger
}

func NewDirectory(svc DirectoryService, logger zerolog.Logger) *Directory {
	return &Directory{svc: svc, logger: logger}
}

// Listing is the result of one refresh. A half whose fetch failed is empty and
// carries its error.
type Listing struct {
	Direct    []model.ConversationSummary
	Groups    []model.ConversationSummary
	DirectErr error
	GroupsErr error
}

func (l Listing) Merged() []model.ConversationSummary {
	return Merge(l.Direct, l.Groups)
}

// Refresh issues both fetches concurrently. Neither failure aborts the other.
func (d *Directory) Refresh(ctx context.Context, who model.Identity) Listing {
	var (
		l  Listing
		wg sync.WaitGroup
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		l.Direct, l.DirectErr = d.svc.ListChats(ctx, who)
	}()
	go func() {
		defer wg.Done()
		l.Groups, l.GroupsErr = d.svc.ListGroups(ctx, who)
	}()
	wg.Wait()

	if l.DirectErr != nil {
		d.logger.Warn().Err(l.DirectErr).Int64("user_id", who.UserID).Msg("directory: direct chats fetch failed")
		l.Direct = nil
	}
	if l.GroupsErr != nil {
		d.logger.Warn().Err(l.GroupsErr).Int64("user_id", who.UserID).Msg("directory: groups fetch failed")
		l.Groups = nil
	}
	l.Direct = withKind(l.Direct, false)
	l.Groups = withKind(l.Groups, true)
	return l
}

func withKind(in []model.ConversationSummary, group bool) []model.ConversationSummary {
	out := make([]model.ConversationSummary, len(in))
	for i, c := range in {
		c.IsGroup = group
		out[i] = c
	}
	return out
}

// Merge concatenates direct chats then groups. This is the list's default order.
func Merge(direct, groups []model.ConversationSummary) []model.ConversationSummary {
	out := make([]model.ConversationSummary, 0, len(direct)+len(groups))
	out = append(out, direct...)
	out = append(out, groups...)
	return out
}

// Filter keeps the conversations whose name contains query, ignoring case,
// without reordering.
func Filter(list []model.ConversationSummary, query string) []model.ConversationSummary {
	q := strings.ToLower(strings.TrimSpace(query))
	out := make([]model.ConversationSummary, 0, len(list))
	for _, c := range list {
		if q == "" || strings.Contains(strings.ToLower(c.Name), q) {
			out = append(out, c)
		}
	}
	return out
}

// Find returns the conversation with the given key.
func Find(list []model.ConversationSummary, key model.ConversationKey) (model.ConversationSummary, bool) {
	for _, c := range list {
		if c.Key() == key {
			return c, true
		}
	}
	return model.ConversationSummary{}, false
}
