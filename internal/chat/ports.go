// Package chat keeps a signed-in user's conversation list, the active
// conversation and its message history consistent with the remote services.
package chat

import (
	"context"

	"chatsync/internal/api"
	"chatsync/internal/model"
)

type AuthService interface {
	Authenticate(ctx context.Context, req api.AuthRequest) (model.Session, error)
	AuthenticateAs(ctx context.Context, who model.Identity, req api.AuthRequest) (model.Session, error)
}

type DirectoryService interface {
	ListChats(ctx context.Context, who model.Identity) ([]model.ConversationSummary, error)
	ListGroups(ctx context.Context, who model.Identity) ([]model.ConversationSummary, error)
}

type MessageService interface {
	ListMessages(ctx context.Context, who model.Identity, key model.ConversationKey) ([]model.Message, error)
	SendMessage(ctx context.Context, who model.Identity, key model.ConversationKey, text string) (model.Message, error)
}

type GroupService interface {
	CreateGroup(ctx context.Context, who model.Identity, name, description string) (model.ConversationSummary, error)
	AddMember(ctx context.Context, who model.Identity, groupID, memberID int64) error
}

// Service is everything the Coordinator needs from the backend. *api.Client
// implements it.
type Service interface {
	AuthService
	DirectoryService
	MessageService
	GroupService
}

var _ Service = (*api.Client)(nil)
