package chatsync

import (
	"context"
	"strings"
	"time"

	"pgnest/internal/app/dto"
	"pgnest/internal/domain/chat"
)

// Viewer is the authenticated identity all cached state is scoped to. Owners
// are keyed by user id, tenants by email.
type Viewer struct {
	Role  chat.Role
	ID    string
	Email string
	Name  string
}

// ReaderID is the identifier the read-state endpoint expects for this viewer.
func (v Viewer) ReaderID() string {
	if v.Role == chat.RoleOwner {
		return v.ID
	}
	return strings.ToLower(strings.TrimSpace(v.Email))
}

// Backend is the slice of the REST API the sync layer depends on.
// *rest.Client satisfies it; tests plug in fakes.
type Backend interface {
	OwnerConversations(ctx context.Context, ownerID string) ([]dto.Conversation, error)
	TenantConversations(ctx context.Context, tenantEmail string) ([]dto.Conversation, error)
	Conversation(ctx context.Context, conversationID string) (dto.Conversation, error)
	MarkRead(ctx context.Context, conversationID, readerID string) error
	Reply(ctx context.Context, req dto.ReplyRequest) (dto.Message, error)
	Property(ctx context.Context, propertyID string) (dto.Property, error)
}

// Message is the cached view of a chat message. Optimistic entries carry a
// locally minted id and OriginLocal; once the server acknowledges them the
// server id is recorded alongside without renaming the local one.
type Message struct {
	ID         string
	ServerID   string
	Sender     chat.Role
	SenderName string
	Text       string
	Timestamp  time.Time
	Status     chat.MessageStatus
	Origin     chat.Origin
}

// confirmed reports whether the server has acknowledged this entry.
func (m Message) confirmed() bool {
	return m.Origin == chat.OriginServer || m.ServerID != ""
}

// Conversation is the cached view of one thread, ordered oldest first.
type Conversation struct {
	ID            string
	PropertyID    string
	PropertyTitle string
	OwnerID       string
	OwnerName     string
	OwnerEmail    string
	OwnerPhone    string
	TenantEmail   string
	TenantName    string
	Messages      []Message
	LastMessage   *Message
	LastMessageAt time.Time
	UnreadCount   int
}

func (c *Conversation) clone() Conversation {
	out := *c
	out.Messages = make([]Message, len(c.Messages))
	copy(out.Messages, c.Messages)
	if c.LastMessage != nil {
		last := *c.LastMessage
		out.LastMessage = &last
	}
	return out
}

func (c *Conversation) refreshLastMessage() {
	if len(c.Messages) == 0 {
		c.LastMessage = nil
		return
	}
	last := c.Messages[len(c.Messages)-1]
	c.LastMessage = &last
	if last.Timestamp.After(c.LastMessageAt) {
		c.LastMessageAt = last.Timestamp
	}
}

// Notification is one entry of the poller's notification list.
type Notification struct {
	ID             string
	ConversationID string
	MessageID      string
	Title          string
	Body           string
	SenderName     string
	PropertyTitle  string
	Timestamp      time.Time
}

func messageFromDTO(in dto.Message) Message {
	return Message{
		ID:         in.ID,
		ServerID:   in.ID,
		Sender:     chat.Role(in.Sender),
		SenderName: in.SenderName,
		Text:       in.Text,
		Timestamp:  in.Timestamp,
		Status:     chat.MessageStatus(in.Status),
		Origin:     chat.OriginServer,
	}
}

func conversationFromDTO(in dto.Conversation) *Conversation {
	out := &Conversation{
		ID:            in.ID,
		PropertyID:    in.PropertyID,
		PropertyTitle: in.PropertyTitle,
		OwnerID:       in.OwnerID,
		OwnerName:     in.OwnerName,
		OwnerEmail:    in.OwnerEmail,
		OwnerPhone:    in.OwnerPhone,
		TenantEmail:   in.TenantEmail,
		TenantName:    in.TenantName,
		LastMessageAt: in.LastMessageAt,
		UnreadCount:   in.UnreadCount,
		Messages:      make([]Message, 0, len(in.Messages)),
	}
	for _, msg := range in.Messages {
		out.Messages = append(out.Messages, messageFromDTO(msg))
	}
	if in.LastMessage != nil {
		last := messageFromDTO(*in.LastMessage)
		out.LastMessage = &last
	} else {
		out.refreshLastMessage()
	}
	return out
}
