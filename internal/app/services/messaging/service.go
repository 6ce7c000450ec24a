package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"pgnest/internal/domain/chat"
	"pgnest/internal/domain/property"
)

var (
	ErrConversationRequired = errors.New("messaging: conversation id is required")
	ErrReaderRequired       = errors.New("messaging: reader id is required")
	ErrMessageRequired      = errors.New("messaging: message text is required")
	ErrSenderUnresolved     = errors.New("messaging: cannot resolve message sender")
)

// Producer publishes chat events to the broker. A nil Producer disables events.
type Producer interface {
	Publish(ctx context.Context, topic string, key string, payload []byte, headers map[string]string) error
}

// Service implements the server-side messaging use cases: starting threads,
// listing them per viewer, replying, read-marking and stats.
type Service struct {
	Conversations chat.Repository
	Properties    property.Repository
	Events        Producer
	TopicPrefix   string
	Logger        *slog.Logger
	Clock         func() time.Time
}

// Summary pairs a conversation with the unread count derived for one viewer.
type Summary struct {
	Conversation *chat.Conversation
	UnreadCount  int
}

// Stats is the aggregate reported by the stats endpoints.
type Stats struct {
	TotalConversations  int
	UnreadConversations int
}

type StartParams struct {
	PropertyID  string
	TenantEmail string
	TenantName  string
	Text        string
}

// Start finds or creates the thread between a tenant and a property's owner
// and appends the opening message.
func (s *Service) Start(ctx context.Context, params StartParams) (*chat.Conversation, error) {
	tenantEmail := strings.ToLower(strings.TrimSpace(params.TenantEmail))
	if tenantEmail == "" {
		return nil, chat.ErrTenantRequired
	}
	text := strings.TrimSpace(params.Text)
	if text == "" {
		return nil, ErrMessageRequired
	}

	conv, err := s.Conversations.ByPropertyAndTenant(ctx, params.PropertyID, tenantEmail)
	if err != nil && !errors.Is(err, chat.ErrNotFound) {
		return nil, err
	}
	if conv == nil {
		prop, err := s.Properties.ByID(ctx, property.PropertyID(params.PropertyID))
		if err != nil {
			return nil, err
		}
		conv, err = chat.NewConversation(chat.CreateConversationParams{
			ID:            chat.ConversationID(uuid.NewString()),
			PropertyID:    string(prop.ID),
			PropertyTitle: prop.Title,
			Participants: chat.Participants{
				OwnerID:     string(prop.Owner),
				OwnerName:   prop.OwnerName,
				OwnerPhone:  prop.OwnerPhone,
				TenantEmail: tenantEmail,
				TenantName:  params.TenantName,
			},
			Now: s.now(),
		})
		if err != nil {
			return nil, err
		}
	}

	msg, err := chat.NewMessage(chat.CreateMessageParams{
		ID:             chat.MessageID(uuid.NewString()),
		ConversationID: conv.ID,
		Sender:         chat.RoleTenant,
		SenderName:     params.TenantName,
		Text:           text,
		Status:         chat.StatusSent,
		Now:            s.now(),
	})
	if err != nil {
		return nil, err
	}
	if err := conv.Append(msg); err != nil {
		return nil, err
	}
	if err := s.Conversations.Save(ctx, conv); err != nil {
		return nil, err
	}
	s.publish(ctx, "chat.message.sent", string(conv.ID), messageEvent(conv, msg))
	return conv, nil
}

// ListByOwner returns the owner's conversations, most recent first, with
// per-conversation unread counts from the owner's point of view.
func (s *Service) ListByOwner(ctx context.Context, ownerID string) ([]Summary, error) {
	ownerID = strings.TrimSpace(ownerID)
	if ownerID == "" {
		return nil, chat.ErrOwnerRequired
	}
	conversations, err := s.Conversations.ByOwner(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return summarize(conversations, chat.RoleOwner), nil
}

// ListByTenant returns the tenant's conversations keyed by email.
func (s *Service) ListByTenant(ctx context.Context, tenantEmail string) ([]Summary, error) {
	tenantEmail = strings.ToLower(strings.TrimSpace(tenantEmail))
	if tenantEmail == "" {
		return nil, chat.ErrTenantRequired
	}
	conversations, err := s.Conversations.ByTenantEmail(ctx, tenantEmail)
	if err != nil {
		return nil, err
	}
	return summarize(conversations, chat.RoleTenant), nil
}

// Detail returns the full conversation including its message history.
func (s *Service) Detail(ctx context.Context, id chat.ConversationID) (*chat.Conversation, error) {
	if strings.TrimSpace(string(id)) == "" {
		return nil, ErrConversationRequired
	}
	return s.Conversations.ByID(ctx, id)
}

type ReplyParams struct {
	ConversationID chat.ConversationID
	Sender         chat.Role // optional; resolved from identity fields when empty
	OwnerID        string
	OwnerName      string
	TenantEmail    string
	TenantName     string
	Text           string
}

// Reply appends a message from either side of the thread. The sender role is
// taken from the request when present, otherwise resolved from whichever
// identity field matches the conversation's participants.
func (s *Service) Reply(ctx context.Context, params ReplyParams) (*chat.Conversation, chat.Message, error) {
	text := strings.TrimSpace(params.Text)
	if text == "" {
		return nil, chat.Message{}, ErrMessageRequired
	}
	conv, err := s.Conversations.ByID(ctx, params.ConversationID)
	if err != nil {
		return nil, chat.Message{}, err
	}

	sender := params.Sender
	senderName := ""
	switch {
	case sender == chat.RoleOwner || (sender == "" && strings.TrimSpace(params.OwnerID) != ""):
		if params.OwnerID != conv.Participants.OwnerID {
			return nil, chat.Message{}, ErrSenderUnresolved
		}
		sender = chat.RoleOwner
		senderName = firstNonEmpty(params.OwnerName, conv.Participants.OwnerName)
	case sender == chat.RoleTenant || (sender == "" && strings.TrimSpace(params.TenantEmail) != ""):
		if !strings.EqualFold(params.TenantEmail, conv.Participants.TenantEmail) {
			return nil, chat.Message{}, ErrSenderUnresolved
		}
		sender = chat.RoleTenant
		senderName = firstNonEmpty(params.TenantName, conv.Participants.TenantName)
	default:
		return nil, chat.Message{}, ErrSenderUnresolved
	}

	msg, err := chat.NewMessage(chat.CreateMessageParams{
		ID:             chat.MessageID(uuid.NewString()),
		ConversationID: conv.ID,
		Sender:         sender,
		SenderName:     senderName,
		Text:           text,
		Status:         chat.StatusSent,
		Now:            s.now(),
	})
	if err != nil {
		return nil, chat.Message{}, err
	}
	if err := conv.Append(msg); err != nil {
		return nil, chat.Message{}, err
	}
	if err := s.Conversations.Save(ctx, conv); err != nil {
		return nil, chat.Message{}, err
	}
	s.publish(ctx, "chat.message.sent", string(conv.ID), messageEvent(conv, msg))
	return conv, msg, nil
}

// MarkRead flips counterparty messages to read for the reader. Reads by
// non-participants succeed without changing anything; repeat reads are no-ops.
func (s *Service) MarkRead(ctx context.Context, id chat.ConversationID, readerID string) error {
	if strings.TrimSpace(string(id)) == "" {
		return ErrConversationRequired
	}
	if strings.TrimSpace(readerID) == "" {
		return ErrReaderRequired
	}
	conv, err := s.Conversations.ByID(ctx, id)
	if err != nil {
		return err
	}
	changed := conv.MarkReadBy(readerID, s.now())
	if changed == 0 {
		return nil
	}
	if err := s.Conversations.Save(ctx, conv); err != nil {
		return err
	}
	s.publish(ctx, "chat.conversation.read", string(conv.ID), map[string]any{
		"conversation_id": string(conv.ID),
		"reader_id":       readerID,
		"messages_read":   changed,
		"read_at":         s.now(),
	})
	return nil
}

// OwnerStats reports conversation totals for the owner dashboard badge.
func (s *Service) OwnerStats(ctx context.Context, ownerID string) (Stats, error) {
	summaries, err := s.ListByOwner(ctx, ownerID)
	if err != nil {
		return Stats{}, err
	}
	return tally(summaries), nil
}

// TenantStats reports conversation totals for the tenant view.
func (s *Service) TenantStats(ctx context.Context, tenantEmail string) (Stats, error) {
	summaries, err := s.ListByTenant(ctx, tenantEmail)
	if err != nil {
		return Stats{}, err
	}
	return tally(summaries), nil
}

func (s *Service) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

func (s *Service) publish(ctx context.Context, topic, key string, payload any) {
	if s.Events == nil {
		return
	}
	body, err := json.Marshal(payload)
	if err != nil {
		s.logError("event encode failed", err, "topic", topic)
		return
	}
	if s.TopicPrefix != "" {
		topic = s.TopicPrefix + "." + topic
	}
	if err := s.Events.Publish(ctx, topic, key, body, map[string]string{"content-type": "application/json"}); err != nil {
		// Events are best-effort; the write already succeeded.
		s.logError("event publish failed", err, "topic", topic)
	}
}

func (s *Service) logError(msg string, err error, attrs ...any) {
	if s.Logger != nil {
		s.Logger.Error(msg, append([]any{"error", err}, attrs...)...)
	}
}

func summarize(conversations []*chat.Conversation, viewer chat.Role) []Summary {
	summaries := make([]Summary, 0, len(conversations))
	for _, conv := range conversations {
		summaries = append(summaries, Summary{
			Conversation: conv,
			UnreadCount:  conv.UnreadFor(viewer),
		})
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].Conversation.LastMessageAt.After(summaries[j].Conversation.LastMessageAt)
	})
	return summaries
}

func tally(summaries []Summary) Stats {
	stats := Stats{TotalConversations: len(summaries)}
	for _, summary := range summaries {
		if summary.UnreadCount > 0 {
			stats.UnreadConversations++
		}
	}
	return stats
}

func messageEvent(conv *chat.Conversation, msg chat.Message) map[string]any {
	return map[string]any{
		"conversation_id": string(conv.ID),
		"property_id":     conv.PropertyID,
		"message_id":      string(msg.ID),
		"sender":          string(msg.Sender),
		"sent_at":         msg.CreatedAt,
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
