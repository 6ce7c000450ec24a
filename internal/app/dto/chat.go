package dto

import (
	"time"

	"pgnest/internal/app/services/messaging"
	"pgnest/internal/domain/chat"
)

// Conversation is the wire shape of a tenant<->owner thread. Field names are
// part of the public API contract and stay camelCase.
type Conversation struct {
	ID            string    `json:"id"`
	PropertyID    string    `json:"propertyId"`
	PropertyTitle string    `json:"propertyTitle"`
	OwnerID       string    `json:"ownerId"`
	OwnerName     string    `json:"ownerName"`
	OwnerEmail    string    `json:"ownerEmail,omitempty"`
	OwnerPhone    string    `json:"ownerPhone,omitempty"`
	TenantEmail   string    `json:"tenantEmail"`
	TenantName    string    `json:"tenantName"`
	Messages      []Message `json:"messages,omitempty"`
	LastMessage   *Message  `json:"lastMessage,omitempty"`
	LastMessageAt time.Time `json:"lastMessageAt"`
	UnreadCount   int       `json:"unreadCount"`
}

// Message is a single chat message on the wire.
type Message struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Sender     string    `json:"sender"`
	SenderName string    `json:"senderName"`
	Timestamp  time.Time `json:"timestamp"`
	Status     string    `json:"status"`
}

// Stats backs the owner/tenant stats endpoints.
type Stats struct {
	TotalConversations  int `json:"totalConversations"`
	UnreadConversations int `json:"unreadConversations"`
}

// ReplyRequest matches the POST /messages/reply body. Exactly one of the
// owner or tenant identity pairs should be present; Sender disambiguates
// when both are.
type ReplyRequest struct {
	ConversationID string `json:"conversationId"`
	OwnerID        string `json:"ownerId,omitempty"`
	OwnerName      string `json:"ownerName,omitempty"`
	TenantEmail    string `json:"tenantEmail,omitempty"`
	TenantName     string `json:"tenantName,omitempty"`
	Message        string `json:"message"`
	Sender         string `json:"sender,omitempty"`
}

// StartConversationRequest opens a thread from a tenant to a property owner.
type StartConversationRequest struct {
	PropertyID  string `json:"propertyId"`
	TenantEmail string `json:"tenantEmail"`
	TenantName  string `json:"tenantName"`
	Message     string `json:"message"`
}

// MarkReadRequest matches the PATCH .../read body.
type MarkReadRequest struct {
	ReaderID string `json:"readerId"`
}

// FromMessage maps a domain message to its wire shape.
func FromMessage(msg chat.Message) Message {
	return Message{
		ID:         string(msg.ID),
		Text:       msg.Text,
		Sender:     string(msg.Sender),
		SenderName: msg.SenderName,
		Timestamp:  msg.CreatedAt,
		Status:     string(msg.Status),
	}
}

// FromConversation maps a full conversation, including its message history.
// unreadCount is relative to the viewer role.
func FromConversation(conv *chat.Conversation, viewer chat.Role) Conversation {
	out := fromConversationHeader(conv)
	out.UnreadCount = conv.UnreadFor(viewer)
	out.Messages = make([]Message, 0, len(conv.Messages))
	for _, msg := range conv.Messages {
		out.Messages = append(out.Messages, FromMessage(msg))
	}
	return out
}

// FromSummary maps a list entry. The message history rides along: the
// notification poller scans individual messages of every conversation, so the
// list endpoints return full threads just like the original API did.
func FromSummary(summary messaging.Summary) Conversation {
	out := fromConversationHeader(summary.Conversation)
	out.UnreadCount = summary.UnreadCount
	out.Messages = make([]Message, 0, len(summary.Conversation.Messages))
	for _, msg := range summary.Conversation.Messages {
		out.Messages = append(out.Messages, FromMessage(msg))
	}
	return out
}

func fromConversationHeader(conv *chat.Conversation) Conversation {
	out := Conversation{
		ID:            string(conv.ID),
		PropertyID:    conv.PropertyID,
		PropertyTitle: conv.PropertyTitle,
		OwnerID:       conv.Participants.OwnerID,
		OwnerName:     conv.Participants.OwnerName,
		OwnerEmail:    conv.Participants.OwnerEmail,
		OwnerPhone:    conv.Participants.OwnerPhone,
		TenantEmail:   conv.Participants.TenantEmail,
		TenantName:    conv.Participants.TenantName,
		LastMessageAt: conv.LastMessageAt,
	}
	if conv.LastMessage != nil {
		last := FromMessage(*conv.LastMessage)
		out.LastMessage = &last
	}
	return out
}
