// Package api talks JSON over HTTP to the auth, messages and groups services.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"chatsync/internal/model"
)

const (
	ActionLogin         = "login"
	ActionRegister      = "register"
	ActionUpdateProfile = "update_profile"
	ActionCreateGroup   = "create"
	ActionAddMember     = "add_member"
)

type Config struct {
	AuthURL     string
	MessagesURL string
	GroupsURL   string
	UsersURL    string
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger
}

// ConfigFromBase derives the service URLs from one base URL using the paths
// the reference backend serves.
func ConfigFromBase(base string) Config {
	base = strings.TrimRight(base, "/")
	return Config{
		AuthURL:     base + "/auth",
		MessagesURL: base + "/messages",
		GroupsURL:   base + "/groups",
		UsersURL:    base + "/users",
	}
}

type Client struct {
	authURL     string
	messagesURL string
	groupsURL   string
	usersURL    string
	http        *http.Client
	logger      zerolog.Logger
}

func New(cfg Config) *Client {
	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		authURL:     cfg.AuthURL,
		messagesURL: cfg.MessagesURL,
		groupsURL:   cfg.GroupsURL,
		usersURL:    cfg.UsersURL,
		http:        hc,
		logger:      cfg.Logger,
	}
}

type AuthRequest struct {
	Action    string `json:"action"`
	Username  string `json:"username,omitempty"`
	Password  string `json:"password,omitempty"`
	Nickname  string `json:"nickname"`
	UserID    int64  `json:"user_id,omitempty"`
	Bio       string `json:"bio"`
	AvatarURL string `json:"avatar_url"`
}

func (c *Client) Authenticate(ctx context.Context, req AuthRequest) (model.Session, error) {
	return c.AuthenticateAs(ctx, model.Identity{UserID: req.UserID}, req)
}

// AuthenticateAs is Authenticate for calls made on behalf of a signed-in
// user, so the bearer token travels with the request.
func (c *Client) AuthenticateAs(ctx context.Context, who model.Identity, req AuthRequest) (model.Session, error) {
	var sess model.Session
	if err := c.do(ctx, "auth "+req.Action, http.MethodPost, c.authURL, who, req, &sess, true); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

func (c *Client) ListChats(ctx context.Context, who model.Identity) ([]model.ConversationSummary, error) {
	var resp struct {
		Chats []model.ConversationSummary `json:"chats"`
	}
	if err := c.do(ctx, "list chats", http.MethodGet, c.messagesURL, who, nil, &resp, false); err != nil {
		return nil, err
	}
	chats := make([]model.ConversationSummary, 0, len(resp.Chats))
	for _, ch := range resp.Chats {
		ch.IsGroup = false
		chats = append(chats, ch)
	}
	return chats, nil
}

func (c *Client) ListGroups(ctx context.Context, who model.Identity) ([]model.ConversationSummary, error) {
	var resp struct {
		Groups []model.ConversationSummary `json:"groups"`
	}
	if err := c.do(ctx, "list groups", http.MethodGet, c.groupsURL, who, nil, &resp, false); err != nil {
		return nil, err
	}
	groups := make([]model.ConversationSummary, 0, len(resp.Groups))
	for _, g := range resp.Groups {
		g.IsGroup = true
		groups = append(groups, g)
	}
	return groups, nil
}

func (c *Client) ListMessages(ctx context.Context, who model.Identity, key model.ConversationKey) ([]model.Message, error) {
	q := url.Values{}
	if key.IsGroup() {
		q.Set("group_id", strconv.FormatInt(key.ID, 10))
	} else {
		q.Set("user_id", strconv.FormatInt(key.ID, 10))
	}

	var resp struct {
		Messages []model.Message `json:"messages"`
	}
	if err := c.do(ctx, "list messages", http.MethodGet, c.messagesURL+"?"+q.Encode(), who, nil, &resp, false); err != nil {
		return nil, err
	}
	if resp.Messages == nil {
		return []model.Message{}, nil
	}
	return resp.Messages, nil
}

type sendMessageBody struct {
	ReceiverID  int64  `json:"receiver_id,omitempty"`
	GroupID     int64  `json:"group_id,omitempty"`
	MessageText string `json:"message_text"`
}

func (c *Client) SendMessage(ctx context.Context, who model.Identity, key model.ConversationKey, text string) (model.Message, error) {
	body := sendMessageBody{MessageText: text}
	if key.IsGroup() {
		body.GroupID = key.ID
	} else {
		body.ReceiverID = key.ID
	}

	var msg model.Message
	if err := c.do(ctx, "send message", http.MethodPost, c.messagesURL, who, body, &msg, false); err != nil {
		return model.Message{}, err
	}
	return msg, nil
}

type groupActionBody struct {
	Action      string `json:"action"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	GroupID     int64  `json:"group_id,omitempty"`
	MemberID    int64  `json:"member_id,omitempty"`
}

func (c *Client) CreateGroup(ctx context.Context, who model.Identity, name, description string) (model.ConversationSummary, error) {
	body := groupActionBody{Action: ActionCreateGroup, Name: name, Description: description}
	var g model.ConversationSummary
	if err := c.do(ctx, "create group", http.MethodPost, c.groupsURL, who, body, &g, false); err != nil {
		return model.ConversationSummary{}, err
	}
	g.IsGroup = true
	return g, nil
}

func (c *Client) AddMember(ctx context.Context, who model.Identity, groupID, memberID int64) error {
	body := groupActionBody{Action: ActionAddMember, GroupID: groupID, MemberID: memberID}
	return c.do(ctx, "add member", http.MethodPost, c.groupsURL, who, body, nil, false)
}

// User is a search hit from the users endpoint.
type User struct {
	ID        int64  `json:"id"`
	Username  string `json:"username"`
	Nickname  string `json:"nickname"`
	AvatarURL string `json:"avatar_url,omitempty"`
	Online    bool   `json:"online"`
}

// SearchUsers looks people up by username or nickname. It is not part of the
// conversation ports; the CLI uses it to find peers before a chat exists.
func (c *Client) SearchUsers(ctx context.Context, who model.Identity, query string) ([]User, error) {
	if c.usersURL == "" {
		return nil, &NetworkError{Op: "search users", Err: errors.New("users endpoint not configured")}
	}
	var resp struct {
		Users []User `json:"users"`
	}
	target := c.usersURL + "?" + url.Values{"q": {query}}.Encode()
	if err := c.do(ctx, "search users", http.MethodGet, target, who, nil, &resp, false); err != nil {
		return nil, err
	}
	if resp.Users == nil {
		return []User{}, nil
	}
	return resp.Users, nil
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) do(ctx context.Context, op, method, target string, who model.Identity, in, out any, authService bool) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return &NetworkError{Op: op, Err: fmt.Errorf("encode request: %w", err)}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return &NetworkError{Op: op, Err: err}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	reqID := uuid.NewString()
	req.Header.Set(model.RequestIDHeader, reqID)
	if who.UserID != 0 {
		req.Header.Set(model.UserIDHeader, strconv.FormatInt(who.UserID, 10))
	}
	if who.Token != "" {
		req.Header.Set("Authorization", "Bearer "+who.Token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Debug().Str("op", op).Str("request_id", reqID).Err(err).Msg("request failed")
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("read body: %w", err)}
	}
	c.logger.Debug().
		Str("op", op).
		Str("request_id", reqID).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("request done")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		msg := eb.Error
		if msg == "" {
			msg = http.StatusText(resp.StatusCode)
		}
		if authService && resp.StatusCode < 500 {
			return &AuthError{Status: resp.StatusCode, Message: msg}
		}
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: errors.New(msg)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}
