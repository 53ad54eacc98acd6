package model

import (
	"encoding/json"
	"testing"
)

func TestConversationSummaryKey_DistinguishesKinds(t *testing.T) {
	direct := ConversationSummary{ID: 1, Name: "Alex"}
	group := ConversationSummary{ID: 1, Name: "Team", IsGroup: true}

	if direct.Key() == group.Key() {
		t.Fatalf("expected distinct keys for direct and group with the same id")
	}
	if direct.Key() != DirectKey(1) {
		t.Fatalf("unexpected direct key: %v", direct.Key())
	}
	if !group.Key().IsGroup() {
		t.Fatalf("expected group key")
	}
	if group.Key().String() != "group:1" {
		t.Fatalf("unexpected key string %q", group.Key().String())
	}
}

func TestMessageConversation(t *testing.T) {
	self := int64(7)
	cases := []struct {
		msg  Message
		want ConversationKey
	}{
		{Message{SenderID: 7, ReceiverID: 3}, DirectKey(3)},
		{Message{SenderID: 3, ReceiverID: 7}, DirectKey(3)},
		{Message{SenderID: 3, GroupID: 9}, GroupKey(9)},
	}
	for _, tc := range cases {
		if got := tc.msg.Conversation(self); got != tc.want {
			t.Fatalf("Conversation(%+v) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestSessionDisplayName(t *testing.T) {
	if got := (Session{Username: "u", Nickname: " "}).DisplayName(); got != "u" {
		t.Fatalf("expected username fallback, got %q", got)
	}
	if got := (Session{Username: "u", Nickname: "Nick"}).DisplayName(); got != "Nick" {
		t.Fatalf("expected nickname, got %q", got)
	}
}

func TestSummaryDecodesServerShape(t *testing.T) {
	raw := `{"id":4,"name":"Team","description":"d","member_count":3,"is_group":true}`
	var c ConversationSummary
	if err := json.Unmarshal([]byte(raw), &c); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if c.Key() != GroupKey(4) || c.MemberCount != 3 {
		t.Fatalf("unexpected summary: %+v", c)
	}
}
