package store

import "time"

// User is a registered account.
type User struct {
	ID           int64  `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"size:64;not null;uniqueIndex"`
	PasswordHash string `gorm:"size:128;not null"`
	Nickname     string `gorm:"size:128"`
	Bio          string `gorm:"type:text"`
	AvatarURL    string `gorm:"size:512"`
	Online       bool   `gorm:"default:false"`
	LastSeen     *time.Time
	CreatedAt    time.Time
}

// DisplayName falls back to the username when no nickname is set.
func (u User) DisplayName() string {
	if u.Nickname != "" {
		return u.Nickname
	}
	return u.Username
}

// Message is either direct (ReceiverID set) or a group post (GroupID set).
type Message struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	SenderID   int64  `gorm:"not null;index"`
	ReceiverID *int64 `gorm:"index"`
	GroupID    *int64 `gorm:"index"`
	Text       string `gorm:"type:text;not null"`
	Read       bool   `gorm:"column:is_read;default:false;index"`
	CreatedAt  time.Time
}

type Group struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"size:128;not null"`
	Description string `gorm:"type:text"`
	AvatarURL   string `gorm:"size:512"`
	CreatorID   int64  `gorm:"not null;index"`
	CreatedAt   time.Time
}

func (Group) TableName() string { return "chat_groups" }

type GroupMember struct {
	GroupID  int64 `gorm:"primaryKey"`
	UserID   int64 `gorm:"primaryKey;index"`
	JoinedAt time.Time
}

// ChatSummary is one direct conversation as seen by a user.
type ChatSummary struct {
	Peer        User
	LastMessage Message
	Unread      int
}

// GroupSummary is a group together with its current member count.
type GroupSummary struct {
	Group
	MemberCount int
}

// GroupMessage carries the sender's display name for group histories.
type GroupMessage struct {
	Message
	SenderNickname string
}
