package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chatsync/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(ConfigFromBase(srv.URL))
}

func TestAuthenticate_SendsDiscriminatorAndDecodesSession(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/auth", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Empty(t, r.Header.Get(model.UserIDHeader))
		assert.NotEmpty(t, r.Header.Get(model.RequestIDHeader))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"id":7,"username":"neo","nickname":"Neo"}`))
	})

	sess, err := c.Authenticate(context.Background(), AuthRequest{Action: ActionLogin, Username: "neo", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), sess.ID)
	assert.Equal(t, "Neo", sess.Nickname)
	assert.Equal(t, "login", got["action"])
	assert.Equal(t, "neo", got["username"])
	assert.Equal(t, "pw", got["password"])
}

func TestAuthenticate_RejectionIsAuthError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	})

	_, err := c.Authenticate(context.Background(), AuthRequest{Action: ActionLogin, Username: "a", Password: "b"})
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, "Invalid credentials", authErr.Message)
	assert.Equal(t, http.StatusUnauthorized, authErr.Status)
}

func TestAuthenticate_ServerFailureIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	})

	_, err := c.Authenticate(context.Background(), AuthRequest{Action: ActionLogin})
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, http.StatusBadGateway, netErr.Status)
}

func TestAuthenticateAs_SendsIdentity(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.Header.Get(model.UserIDHeader))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "update_profile", body["action"])
		assert.Equal(t, "", body["bio"])
		_, _ = w.Write([]byte(`{"id":7,"username":"neo","nickname":"N"}`))
	})

	sess, err := c.AuthenticateAs(context.Background(), model.Identity{UserID: 7, Token: "tok"},
		AuthRequest{Action: ActionUpdateProfile, UserID: 7, Nickname: "N"})
	require.NoError(t, err)
	assert.Equal(t, "N", sess.Nickname)
}

func TestListChatsAndGroups_ForceDiscriminant(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "7", r.Header.Get(model.UserIDHeader))
		switch r.URL.Path {
		case "/messages":
			assert.Empty(t, r.URL.RawQuery)
			_, _ = w.Write([]byte(`{"chats":[{"id":1,"name":"Alex","is_group":true}]}`))
		case "/groups":
			_, _ = w.Write([]byte(`{"groups":[{"id":1,"name":"Team"}]}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	who := model.Identity{UserID: 7}

	chats, err := c.ListChats(context.Background(), who)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.False(t, chats[0].IsGroup)

	groups, err := c.ListGroups(context.Background(), who)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.True(t, groups[0].IsGroup)
}

func TestListMessages_QueryShapeByKind(t *testing.T) {
	var queries []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		queries = append(queries, r.URL.RawQuery)
		_, _ = w.Write([]byte(`{"messages":[{"id":1,"sender_id":2,"text":"hi"},{"id":2,"sender_id":7,"text":"yo"}]}`))
	})
	who := model.Identity{UserID: 7}

	msgs, err := c.ListMessages(context.Background(), who, model.DirectKey(2))
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, int64(1), msgs[0].ID)

	_, err = c.ListMessages(context.Background(), who, model.GroupKey(3))
	require.NoError(t, err)
	assert.Equal(t, []string{"user_id=2", "group_id=3"}, queries)
}

func TestListMessages_EmptyIsNotNil(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})
	msgs, err := c.ListMessages(context.Background(), model.Identity{UserID: 1}, model.DirectKey(2))
	require.NoError(t, err)
	assert.NotNil(t, msgs)
	assert.Empty(t, msgs)
}

func TestSendMessage_BodyShapeByKind(t *testing.T) {
	var bodies []map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		bodies = append(bodies, body)
		_, _ = w.Write([]byte(`{"id":10,"sender_id":7,"text":"hi","time":"12:00"}`))
	})
	who := model.Identity{UserID: 7}

	msg, err := c.SendMessage(context.Background(), who, model.DirectKey(2), "hi")
	require.NoError(t, err)
	assert.Equal(t, int64(10), msg.ID)

	_, err = c.SendMessage(context.Background(), who, model.GroupKey(2), "hi")
	require.NoError(t, err)

	require.Len(t, bodies, 2)
	assert.EqualValues(t, 2, bodies[0]["receiver_id"])
	assert.NotContains(t, bodies[0], "group_id")
	assert.EqualValues(t, 2, bodies[1]["group_id"])
	assert.NotContains(t, bodies[1], "receiver_id")
	assert.Equal(t, "hi", bodies[1]["message_text"])
}

func TestSendMessage_FailureIsNetworkError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":"Not a member"}`))
	})

	_, err := c.SendMessage(context.Background(), model.Identity{UserID: 7}, model.GroupKey(2), "hi")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Contains(t, netErr.Error(), "Not a member")
}

func TestCreateGroupAndAddMember(t *testing.T) {
	var actions []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		actions = append(actions, body["action"].(string))
		if body["action"] == "create" {
			_, _ = w.Write([]byte(`{"id":5,"name":"Team","description":"d"}`))
			return
		}
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	who := model.Identity{UserID: 7}

	g, err := c.CreateGroup(context.Background(), who, "Team", "d")
	require.NoError(t, err)
	assert.True(t, g.IsGroup)
	assert.Equal(t, model.GroupKey(5), g.Key())

	require.NoError(t, c.AddMember(context.Background(), who, 5, 9))
	assert.Equal(t, []string{"create", "add_member"}, actions)
}

func TestTransportFailureIsNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close()
	c := New(ConfigFromBase(srv.URL))

	_, err := c.ListGroups(context.Background(), model.Identity{UserID: 1})
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr))
	assert.Zero(t, netErr.Status)
}

func TestSearchUsers(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/users", r.URL.Path)
		assert.Equal(t, "ne o", r.URL.Query().Get("q"))
		assert.Equal(t, "7", r.Header.Get(model.UserIDHeader))
		_, _ = w.Write([]byte(`{"users":[{"id":3,"username":"neo","nickname":"Neo","online":true}]}`))
	})

	users, err := c.SearchUsers(context.Background(), model.Identity{UserID: 7}, "ne o")
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, int64(3), users[0].ID)
	assert.True(t, users[0].Online)

	_, err = New(Config{}).SearchUsers(context.Background(), model.Identity{UserID: 7}, "x")
	var netErr *NetworkError
	require.ErrorAs(t, err, &netErr)
}
