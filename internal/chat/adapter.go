// Package chat defines the messaging gateway the bot talks through and the
// message types that cross it.
package chat

import (
	"context"
	"errors"
	"time"
)

// ErrUserNotFound is returned by ResolveUser when the identifier matches
// no user.
var ErrUserNotFound = errors.New("chat: user not found")

// Adapter is implemented by each messaging platform.
type Adapter interface {
	// Connect authenticates with the platform.
	Connect(ctx context.Context) error

	// Listen returns a channel of inbound messages. The channel is closed
	// when ctx is cancelled or the adapter is closed. Listen must only be
	// called after Connect.
	Listen(ctx context.Context) (<-chan InboundMessage, error)

	// Send delivers an outbound message.
	Send(ctx context.Context, msg OutboundMessage) error

	// ResolveUser looks up a user by numeric id or @username.
	ResolveUser(ctx context.Context, identifier string) (User, error)

	// GetChatMember returns userID's membership in chatID.
	GetChatMember(ctx context.Context, chatID, userID int64) (Member, error)

	// Close shuts down the connection.
	Close() error
}

// Chat types.
const (
	ChatPrivate    = "private"
	ChatGroup      = "group"
	ChatSupergroup = "supergroup"
	ChatChannel    = "channel"
)

// InboundMessage is a message received from the platform.
type InboundMessage struct {
	ChatID    int64
	ChatType  string
	ChatTitle string
	MessageID int
	UserID    int64 // zero for anonymous admins and channel posts
	UserName  string
	// SenderChatID is set when the message was sent on behalf of a chat,
	// such as an anonymous group admin.
	SenderChatID  int64
	ReplyToUserID int64
	Text          string
	Timestamp     time.Time
}

// OutboundMessage is a message to send.
type OutboundMessage struct {
	ChatID   int64
	ReplyTo  int // message id to reply to, zero for none
	Text     string
	Keyboard [][]Button // inline keyboard rows
}

// Button is an inline keyboard button. Exactly one of URL or Data is set.
type Button struct {
	Text string
	URL  string
	Data string
}

// User is a resolved platform user.
type User struct {
	ID        int64
	UserName  string
	FirstName string
}

// Member statuses.
const (
	StatusCreator       = "creator"
	StatusAdministrator = "administrator"
	StatusMember        = "member"
	StatusRestricted    = "restricted"
	StatusLeft          = "left"
	StatusKicked        = "kicked"
)

// Member is a user's membership in a chat.
type Member struct {
	UserID              int64
	Status              string
	CanManageVideoChats bool
}

// IsAdmin reports whether the member is the creator or an administrator.
func (m Member) IsAdmin() bool {
	return m.Status == StatusCreator || m.Status == StatusAdministrator
}

// CanManageCalls reports whether the member may control voice chats.
func (m Member) CanManageCalls() bool {
	return m.Status == StatusCreator || (m.Status == StatusAdministrator && m.CanManageVideoChats)
}
