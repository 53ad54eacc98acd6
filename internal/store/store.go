// Package store persists users, messages and groups for chatd using gorm.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrUsernameTaken = errors.New("username already taken")
	ErrNotMember     = errors.New("not a group member")
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

type Options struct {
	// Now overrides the clock used for timestamps.
	Now func() time.Time
}

// Open connects to the sqlite database at path and migrates the schema.
func Open(path string) (*Store, error) {
	return OpenWithOptions(path, Options{})
}

func OpenWithOptions(path string, opts Options) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("store: open %s: %w", path, err)
	}
	// sqlite allows one writer; a single connection also keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrate(db); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Store{db: db, now: now}, nil
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&User{}, &Message{}, &Group{}, &GroupMember{}); err != nil {
		return fmt.Errorf("store: migrate: %w", err)
	}
	return nil
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *Store) CreateUser(ctx context.Context, username, passwordHash, nickname string) (User, error) {
	username = strings.TrimSpace(username)
	if nickname == "" {
		nickname = username
	}
	if _, err := s.UserByUsername(ctx, username); err == nil {
		return User{}, ErrUsernameTaken
	}
	u := User{Username: username, PasswordHash: passwordHash, Nickname: nickname, CreatedAt: s.now()}
	err := s.db.WithContext(ctx).Create(&u).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return User{}, ErrUsernameTaken
	}
	if err != nil {
		return User{}, fmt.Errorf("store: create user: %w", err)
	}
	return u, nil
}

func (s *Store) UserByUsername(ctx context.Context, username string) (User, error) {
	var u User
	err := s.db.WithContext(ctx).Where("username = ?", strings.TrimSpace(username)).First(&u).Error
	return u, notFound(err, "user by username")
}

func (s *Store) UserByID(ctx context.Context, id int64) (User, error) {
	var u User
	err := s.db.WithContext(ctx).First(&u, id).Error
	return u, notFound(err, "user by id")
}

// SetOnline records presence and stamps last_seen.
func (s *Store) SetOnline(ctx context.Context, id int64, online bool) error {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		Updates(map[string]any{"online": online, "last_seen": s.now()})
	if res.Error != nil {
		return fmt.Errorf("store: set online: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile overwrites all three profile fields.
func (s *Store) UpdateProfile(ctx context.Context, id int64, nickname, bio, avatarURL string) (User, error) {
	res := s.db.WithContext(ctx).Model(&User{}).Where("id = ?", id).
		Updates(map[string]any{"nickname": nickname, "bio": bio, "avatar_url": avatarURL})
	if res.Error != nil {
		return User{}, fmt.Errorf("store: update profile: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return User{}, ErrNotFound
	}
	return s.UserByID(ctx, id)
}

func (s *Store) CreateDirectMessage(ctx context.Context, senderID, receiverID int64, text string) (Message, error) {
	if _, err := s.UserByID(ctx, receiverID); err != nil {
		return Message{}, err
	}
	m := Message{SenderID: senderID, ReceiverID: &receiverID, Text: text, CreatedAt: s.now()}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return Message{}, fmt.Errorf("store: create message: %w", err)
	}
	return m, nil
}

func (s *Store) CreateGroupMessage(ctx context.Context, senderID, groupID int64, text string) (GroupMessage, error) {
	ok, err := s.IsMember(ctx, groupID, senderID)
	if err != nil {
		return GroupMessage{}, err
	}
	if !ok {
		return GroupMessage{}, ErrNotMember
	}
	sender, err := s.UserByID(ctx, senderID)
	if err != nil {
		return GroupMessage{}, err
	}
	m := Message{SenderID: senderID, GroupID: &groupID, Text: text, CreatedAt: s.now()}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return GroupMessage{}, fmt.Errorf("store: create message: %w", err)
	}
	return GroupMessage{Message: m, SenderNickname: sender.DisplayName()}, nil
}

// DirectHistory returns the conversation between self and peer oldest first
// and marks everything peer sent to self as read.
func (s *Store) DirectHistory(ctx context.Context, self, peer int64) ([]Message, error) {
	var out []Message
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("group_id IS NULL AND ((sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?))",
			self, peer, peer, self).
			Order("created_at ASC, id ASC").
			Find(&out).Error
		if err != nil {
			return err
		}
		return tx.Model(&Message{}).
			Where("group_id IS NULL AND sender_id = ? AND receiver_id = ? AND is_read = ?", peer, self, false).
			Update("is_read", true).Error
	})
	if err != nil {
		return nil, fmt.Errorf("store: direct history: %w", err)
	}
	return out, nil
}

// GroupHistory returns a group's messages oldest first. self must be a member.
func (s *Store) GroupHistory(ctx context.Context, self, groupID int64) ([]GroupMessage, error) {
	ok, err := s.IsMember(ctx, groupID, self)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotMember
	}

	var rows []struct {
		Message
		SenderUsername string
		SenderNickname string
	}
	err = s.db.WithContext(ctx).Model(&Message{}).
		Select("messages.*, users.username AS sender_username, users.nickname AS sender_nickname").
		Joins("LEFT JOIN users ON users.id = messages.sender_id").
		Where("messages.group_id = ?", groupID).
		Order("messages.created_at ASC, messages.id ASC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: group history: %w", err)
	}
	out := make([]GroupMessage, 0, len(rows))
	for _, r := range rows {
		name := r.SenderNickname
		if name == "" {
			name = r.SenderUsername
		}
		out = append(out, GroupMessage{Message: r.Message, SenderNickname: name})
	}
	return out, nil
}

// ChatSummaries lists one entry per direct peer, ordered by peer id.
func (s *Store) ChatSummaries(ctx context.Context, self int64) ([]ChatSummary, error) {
	var msgs []Message
	err := s.db.WithContext(ctx).
		Where("group_id IS NULL AND (sender_id = ? OR receiver_id = ?)", self, self).
		Order("created_at DESC, id DESC").
		Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("store: chat summaries: %w", err)
	}

	latest := make(map[int64]Message)
	unread := make(map[int64]int)
	for _, m := range msgs {
		if m.ReceiverID == nil {
			continue
		}
		peer := m.SenderID
		if peer == self {
			peer = *m.ReceiverID
		}
		if _, seen := latest[peer]; !seen {
			latest[peer] = m
		}
		if m.SenderID == peer && !m.Read {
			unread[peer]++
		}
	}
	if len(latest) == 0 {
		return []ChatSummary{}, nil
	}

	ids := make([]int64, 0, len(latest))
	for id := range latest {
		ids = append(ids, id)
	}
	var users []User
	if err := s.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, fmt.Errorf("store: chat summaries: %w", err)
	}

	out := make([]ChatSummary, 0, len(users))
	for _, u := range users {
		out = append(out, ChatSummary{Peer: u, LastMessage: latest[u.ID], Unread: unread[u.ID]})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Peer.ID < out[j].Peer.ID })
	return out, nil
}

// CreateGroup inserts the group and makes its creator the first member.
func (s *Store) CreateGroup(ctx context.Context, creatorID int64, name, description string) (GroupSummary, error) {
	now := s.now()
	g := Group{Name: name, Description: description, CreatorID: creatorID, CreatedAt: now}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&g).Error; err != nil {
			return err
		}
		return tx.Create(&GroupMember{GroupID: g.ID, UserID: creatorID, JoinedAt: now}).Error
	})
	if err != nil {
		return GroupSummary{}, fmt.Errorf("store: create group: %w", err)
	}
	return GroupSummary{Group: g, MemberCount: 1}, nil
}

// AddMember is idempotent; adding an existing member is not an error.
func (s *Store) AddMember(ctx context.Context, groupID, userID int64) error {
	if err := s.db.WithContext(ctx).First(&Group{}, groupID).Error; err != nil {
		return notFound(err, "add member")
	}
	if _, err := s.UserByID(ctx, userID); err != nil {
		return err
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).
		Create(&GroupMember{GroupID: groupID, UserID: userID, JoinedAt: s.now()}).Error
	if err != nil {
		return fmt.Errorf("store: add member: %w", err)
	}
	return nil
}

func (s *Store) IsMember(ctx context.Context, groupID, userID int64) (bool, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&GroupMember{}).
		Where("group_id = ? AND user_id = ?", groupID, userID).
		Count(&n).Error
	if err != nil {
		return false, fmt.Errorf("store: membership: %w", err)
	}
	return n > 0, nil
}

// Groups lists the groups userID belongs to, newest first.
func (s *Store) Groups(ctx context.Context, userID int64) ([]GroupSummary, error) {
	var rows []GroupSummary
	err := s.db.WithContext(ctx).Model(&Group{}).
		Select("chat_groups.*, (SELECT COUNT(*) FROM group_members m WHERE m.group_id = chat_groups.id) AS member_count").
		Joins("JOIN group_members gm ON gm.group_id = chat_groups.id").
		Where("gm.user_id = ?", userID).
		Order("chat_groups.created_at DESC, chat_groups.id DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("store: groups: %w", err)
	}
	if rows == nil {
		rows = []GroupSummary{}
	}
	return rows, nil
}

func notFound(err error, op string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("store: %s: %w", op, err)
}

// SearchUsers matches username or nickname by case-insensitive substring.
func (s *Store) SearchUsers(ctx context.Context, query string, limit int) ([]User, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return []User{}, nil
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}
	like := "%" + query + "%"
	var out []User
	err := s.db.WithContext(ctx).
		Where("LOWER(username) LIKE ? OR LOWER(nickname) LIKE ?", like, like).
		Order("id ASC").
		Limit(limit).
		Find(&out).Error
	if err != nil {
		return nil, fmt.Errorf("store: search users: %w", err)
	}
	return out, nil
}
