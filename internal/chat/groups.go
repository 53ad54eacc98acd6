package chat

import (
	"context"
	"strings"

	"chatsync/internal/model"
)

// GroupDraft holds the inputs of the create-group form.
type GroupDraft struct {
	Name        string
	Description string
}

type GroupCreator struct {
	svc GroupService
}

func NewGroupCreator(svc GroupService) *GroupCreator {
	return &GroupCreator{svc: svc}
}

func (g *GroupCreator) Create(ctx context.Context, draft GroupDraft, who model.Identity) (model.ConversationSummary, error) {
	if strings.TrimSpace(draft.Name) == "" {
		return model.ConversationSummary{}, ErrBlankName
	}
	if who.UserID == 0 {
		return model.ConversationSummary{}, ErrNoSession
	}

	summary, err := g.svc.CreateGroup(ctx, who, draft.Name, draft.Description)
	if err != nil {
		return model.ConversationSummary{}, err
	}
	summary.IsGroup = true
	if summary.Name == "" {
		summary.Name = draft.Name
	}
	if summary.MemberCount == 0 {
		summary.MemberCount = 1
	}
	return summary, nil
}

func (g *GroupCreator) AddMember(ctx context.Context, who model.Identity, groupID, memberID int64) error {
	if who.UserID == 0 {
		return ErrNoSession
	}
	if groupID <= 0 || memberID <= 0 {
		return ErrInvalidMember
	}
	return g.svc.AddMember(ctx, who, groupID, memberID)
}
