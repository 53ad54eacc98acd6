package chat

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/model"
)

func names(list []model.ConversationSummary) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Name)
	}
	return out
}

func TestDirectory_MergesDirectBeforeGroups(t *testing.T) {
	svc := newFakeService()
	svc.chats = []model.ConversationSummary{{ID: 1, Name: "Alex"}, {ID: 2, Name: "Maria"}}
	svc.groups = []model.ConversationSummary{{ID: 1, Name: "Team"}}

	l := NewDirectory(svc, zerolog.Nop()).Refresh(context.Background(), model.Identity{UserID: 7})
	merged := l.Merged()

	require.Len(t, merged, len(svc.chats)+len(svc.groups))
	assert.Equal(t, []string{"Alex", "Maria", "Team"}, names(merged))
	assert.False(t, merged[0].IsGroup)
	assert.True(t, merged[2].IsGroup)
}

func TestDirectory_SharedIDsStayDistinct(t *testing.T) {
	svc := newFakeService()
	svc.chats = []model.ConversationSummary{{ID: 1, Name: "Alex"}}
	svc.groups = []model.ConversationSummary{{ID: 1, Name: "Team"}}

	merged := NewDirectory(svc, zerolog.Nop()).Refresh(context.Background(), model.Identity{UserID: 7}).Merged()
	require.Len(t, merged, 2)

	direct, ok := Find(merged, model.DirectKey(1))
	require.True(t, ok)
	assert.Equal(t, "Alex", direct.Name)

	group, ok := Find(merged, model.GroupKey(1))
	require.True(t, ok)
	assert.Equal(t, "Team", group.Name)
}

func TestDirectory_FailedHalfDegradesToEmpty(t *testing.T) {
	svc := newFakeService()
	svc.chats = []model.ConversationSummary{{ID: 1, Name: "Alex"}}
	svc.groups = []model.ConversationSummary{{ID: 1, Name: "Team"}}
	svc.groupsErr = errDown

	l := NewDirectory(svc, zerolog.Nop()).Refresh(context.Background(), model.Identity{UserID: 7})
	assert.Equal(t, []string{"Alex"}, names(l.Merged()))
	assert.ErrorIs(t, l.GroupsErr, errDown)
	assert.NoError(t, l.DirectErr)

	svc.groupsErr = nil
	svc.chatsErr = errDown
	l = NewDirectory(svc, zerolog.Nop()).Refresh(context.Background(), model.Identity{UserID: 7})
	assert.Equal(t, []string{"Team"}, names(l.Merged()))
}

func TestDirectory_RefreshIsIdempotent(t *testing.T) {
	svc := newFakeService()
	svc.chats = []model.ConversationSummary{{ID: 3, Name: "Anna"}}
	svc.groups = []model.ConversationSummary{{ID: 4, Name: "Devs"}}
	d := NewDirectory(svc, zerolog.Nop())

	first := d.Refresh(context.Background(), model.Identity{UserID: 7}).Merged()
	second := d.Refresh(context.Background(), model.Identity{UserID: 7}).Merged()
	assert.Equal(t, first, second)
}

func TestFilter(t *testing.T) {
	list := []model.ConversationSummary{
		{ID: 1, Name: "Alexander"},
		{ID: 2, Name: "Maria"},
		{ID: 1, Name: "Dev Team", IsGroup: true},
		{ID: 3, Name: "alex's group", IsGroup: true},
	}

	assert.Equal(t, list, Filter(list, ""))
	assert.Equal(t, list, Filter(list, "   "))

	once := Filter(list, "ALEX")
	assert.Equal(t, []string{"Alexander", "alex's group"}, names(once))
	assert.Equal(t, once, Filter(once, "ALEX"))

	assert.Empty(t, Filter(list, "zzz"))
}
