package chat

import (
	"errors"
	"strings"
	"time"
)

var (
	ErrTextRequired      = errors.New("chat: message text is required")
	ErrSenderInvalid     = errors.New("chat: sender role must be owner or tenant")
	ErrStatusTransition  = errors.New("chat: invalid message status transition")
	ErrMessageIDRequired = errors.New("chat: message id is required")
)

type MessageID string

// Role identifies which side of a conversation authored a message.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
)

func (r Role) Valid() bool {
	return r == RoleOwner || r == RoleTenant
}

// Counterparty returns the opposite side of the thread.
func (r Role) Counterparty() Role {
	if r == RoleOwner {
		return RoleTenant
	}
	return RoleOwner
}

type MessageStatus string

const (
	StatusPending   MessageStatus = "pending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
	StatusFailed    MessageStatus = "failed"
)

// Origin records whether an id was minted locally (optimistic entry) or by the server.
type Origin string

const (
	OriginLocal  Origin = "local"
	OriginServer Origin = "server"
)

type Message struct {
	ID             MessageID
	ConversationID ConversationID
	Sender         Role
	SenderName     string
	Text           string
	Status         MessageStatus
	Origin         Origin
	CreatedAt      time.Time
}

type CreateMessageParams struct {
	ID             MessageID
	ConversationID ConversationID
	Sender         Role
	SenderName     string
	Text           string
	Status         MessageStatus
	Origin         Origin
	Now            time.Time
}

func NewMessage(params CreateMessageParams) (Message, error) {
	if strings.TrimSpace(string(params.ID)) == "" {
		return Message{}, ErrMessageIDRequired
	}
	text := strings.TrimSpace(params.Text)
	if text == "" {
		return Message{}, ErrTextRequired
	}
	if !params.Sender.Valid() {
		return Message{}, ErrSenderInvalid
	}
	status := params.Status
	if status == "" {
		status = StatusSent
	}
	origin := params.Origin
	if origin == "" {
		origin = OriginServer
	}
	now := params.Now
	if now.IsZero() {
		now = time.Now()
	}
	return Message{
		ID:             params.ID,
		ConversationID: params.ConversationID,
		Sender:         params.Sender,
		SenderName:     strings.TrimSpace(params.SenderName),
		Text:           text,
		Status:         status,
		Origin:         origin,
		CreatedAt:      now.UTC(),
	}, nil
}

// Transition moves the message through its delivery lifecycle:
// pending -> sent -> delivered -> read, with pending -> failed as the error branch.
// A failed message may re-enter pending on retry.
func (m *Message) Transition(next MessageStatus) error {
	if m.Status == next {
		return nil
	}
	allowed := map[MessageStatus][]MessageStatus{
		StatusPending:   {StatusSent, StatusFailed},
		StatusSent:      {StatusDelivered, StatusRead},
		StatusDelivered: {StatusRead},
		StatusFailed:    {StatusPending},
	}
	for _, candidate := range allowed[m.Status] {
		if candidate == next {
			m.Status = next
			return nil
		}
	}
	return ErrStatusTransition
}
