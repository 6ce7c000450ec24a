package chat

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrConversationIDRequired = errors.New("chat: conversation id is required")
	ErrPropertyRequired       = errors.New("chat: property id is required")
	ErrOwnerRequired          = errors.New("chat: owner id is required")
	ErrTenantRequired         = errors.New("chat: tenant email is required")
	ErrNotFound               = errors.New("chat: conversation not found")
)

type ConversationID string

// Participants holds both sides of a tenant<->owner thread. Owners are addressed
// by id, tenants by email; that asymmetry comes straight from the public API.
type Participants struct {
	OwnerID     string
	OwnerName   string
	OwnerEmail  string
	OwnerPhone  string
	TenantEmail string
	TenantName  string
}

// Conversation is a single tenant<->owner thread about one property.
type Conversation struct {
	ID            ConversationID
	PropertyID    string
	PropertyTitle string
	Participants  Participants
	Messages      []Message
	LastMessage   *Message
	LastMessageAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

type CreateConversationParams struct {
	ID            ConversationID
	PropertyID    string
	PropertyTitle string
	Participants  Participants
	Now           time.Time
}

func NewConversation(params CreateConversationParams) (*Conversation, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return nil, ErrConversationIDRequired
	}
	if strings.TrimSpace(params.PropertyID) == "" {
		return nil, ErrPropertyRequired
	}
	if strings.TrimSpace(params.Participants.OwnerID) == "" {
		return nil, ErrOwnerRequired
	}
	if strings.TrimSpace(params.Participants.TenantEmail) == "" {
		return nil, ErrTenantRequired
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	now = now.UTC()
	participants := params.Participants
	participants.TenantEmail = strings.ToLower(strings.TrimSpace(participants.TenantEmail))
	return &Conversation{
		ID:            params.ID,
		PropertyID:    params.PropertyID,
		PropertyTitle: strings.TrimSpace(params.PropertyTitle),
		Participants:  participants,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Append adds a message to the end of the thread and refreshes the denormalized
// last-message fields used for list rendering.
func (c *Conversation) Append(msg Message) error {
	if msg.ConversationID == "" {
		msg.ConversationID = c.ID
	}
	if msg.ConversationID != c.ID {
		return ErrConversationIDRequired
	}
	c.Messages = append(c.Messages, msg)
	last := c.Messages[len(c.Messages)-1]
	c.LastMessage = &last
	c.LastMessageAt = last.CreatedAt
	if last.CreatedAt.After(c.UpdatedAt) {
		c.UpdatedAt = last.CreatedAt
	}
	return nil
}

// UnreadFor counts messages authored by the viewer's counterparty that the
// viewer has not read yet.
func (c *Conversation) UnreadFor(viewer Role) int {
	counterparty := viewer.Counterparty()
	unread := 0
	for _, msg := range c.Messages {
		if msg.Sender == counterparty && msg.Status != StatusRead {
			unread++
		}
	}
	return unread
}

// ParticipantRole resolves a reader identity (owner id or tenant email) to the
// side of the thread it belongs to. The boolean is false for strangers.
func (c *Conversation) ParticipantRole(readerID string) (Role, bool) {
	readerID = strings.TrimSpace(readerID)
	if readerID == "" {
		return "", false
	}
	if readerID == c.Participants.OwnerID || strings.EqualFold(readerID, c.Participants.OwnerEmail) {
		return RoleOwner, true
	}
	if strings.EqualFold(readerID, c.Participants.TenantEmail) {
		return RoleTenant, true
	}
	return "", false
}

// MarkReadBy flips every counterparty message to read on behalf of the reader
// and reports how many changed. Reads by non-participants change nothing.
func (c *Conversation) MarkReadBy(readerID string, now time.Time) int {
	role, ok := c.ParticipantRole(readerID)
	if !ok {
		return 0
	}
	counterparty := role.Counterparty()
	changed := 0
	for i := range c.Messages {
		if c.Messages[i].Sender != counterparty {
			continue
		}
		if c.Messages[i].Status == StatusRead {
			continue
		}
		c.Messages[i].Status = StatusRead
		changed++
	}
	if c.LastMessage != nil && c.LastMessage.Sender == counterparty {
		c.LastMessage.Status = StatusRead
	}
	if changed > 0 {
		if now.IsZero() {
			now = time.Now()
		}
		c.UpdatedAt = now.UTC()
	}
	return changed
}

// Clone deep-copies the conversation so repository callers cannot alias state.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	copied := *c
	copied.Messages = append([]Message(nil), c.Messages...)
	if c.LastMessage != nil {
		last := *c.LastMessage
		copied.LastMessage = &last
	}
	return &copied
}

// Repository is the persistence port for conversations.
type Repository interface {
	ByID(ctx context.Context, id ConversationID) (*Conversation, error)
	ByOwner(ctx context.Context, ownerID string) ([]*Conversation, error)
	ByTenantEmail(ctx context.Context, email string) ([]*Conversation, error)
	ByPropertyAndTenant(ctx context.Context, propertyID, tenantEmail string) (*Conversation, error)
	Save(ctx context.Context, conversation *Conversation) error
}
