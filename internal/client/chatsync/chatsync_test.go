package chatsync

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"pgnest/internal/app/dto"
	"pgnest/internal/domain/chat"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeBackend is an in-memory stand-in for the REST API. Conversations are
// stored as wire shapes; MarkRead mutates message statuses the way the server
// would so the next list fetch reflects the reconciled state.
type fakeBackend struct {
	mu            sync.Mutex
	conversations map[string]*dto.Conversation
	order         []string
	properties    map[string]dto.Property

	listErr     error
	replyErr    error
	markReadErr error

	markReadCalls []string
	replyCalls    int
	nextMessageID int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		conversations: make(map[string]*dto.Conversation),
		properties:    make(map[string]dto.Property),
	}
}

func (f *fakeBackend) addConversation(conv dto.Conversation) {
	f.mu.Lock()
	defer f.mu.Unlock()
	clone := conv
	clone.Messages = append([]dto.Message(nil), conv.Messages...)
	f.conversations[conv.ID] = &clone
	f.order = append(f.order, conv.ID)
}

func (f *fakeBackend) list() []dto.Conversation {
	out := make([]dto.Conversation, 0, len(f.order))
	for _, id := range f.order {
		conv := *f.conversations[id]
		conv.Messages = append([]dto.Message(nil), conv.Messages...)
		if len(conv.Messages) > 0 {
			last := conv.Messages[len(conv.Messages)-1]
			conv.LastMessage = &last
			conv.LastMessageAt = last.Timestamp
		}
		conv.UnreadCount = 0
		for _, msg := range conv.Messages {
			if msg.Status != string(chat.StatusRead) {
				conv.UnreadCount++
			}
		}
		out = append(out, conv)
	}
	return out
}

func (f *fakeBackend) OwnerConversations(_ context.Context, _ string) ([]dto.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list(), nil
}

func (f *fakeBackend) TenantConversations(_ context.Context, _ string) ([]dto.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.list(), nil
}

func (f *fakeBackend) Conversation(_ context.Context, conversationID string) (dto.Conversation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	conv, ok := f.conversations[conversationID]
	if !ok {
		return dto.Conversation{}, errors.New("fake: conversation not found")
	}
	out := *conv
	out.Messages = append([]dto.Message(nil), conv.Messages...)
	return out, nil
}

func (f *fakeBackend) MarkRead(_ context.Context, conversationID, readerID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.markReadCalls = append(f.markReadCalls, conversationID+"/"+readerID)
	if f.markReadErr != nil {
		return f.markReadErr
	}
	conv, ok := f.conversations[conversationID]
	if !ok {
		return errors.New("fake: conversation not found")
	}
	for i := range conv.Messages {
		conv.Messages[i].Status = string(chat.StatusRead)
	}
	return nil
}

func (f *fakeBackend) Reply(_ context.Context, req dto.ReplyRequest) (dto.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replyCalls++
	if f.replyErr != nil {
		return dto.Message{}, f.replyErr
	}
	f.nextMessageID++
	msg := dto.Message{
		ID:        fmt.Sprintf("srv-%d", f.nextMessageID),
		Text:      req.Message,
		Sender:    req.Sender,
		Timestamp: time.Now().UTC(),
		Status:    string(chat.StatusSent),
	}
	if conv, ok := f.conversations[req.ConversationID]; ok {
		conv.Messages = append(conv.Messages, msg)
	}
	return msg, nil
}

func (f *fakeBackend) Property(_ context.Context, propertyID string) (dto.Property, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	prop, ok := f.properties[propertyID]
	if !ok {
		return dto.Property{}, errors.New("fake: property not found")
	}
	return prop, nil
}

// recordingNotifier captures alerts for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	toasts []string
	sounds int
	native []string
}

func (n *recordingNotifier) Toast(title, body string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.toasts = append(n.toasts, title+": "+body)
}

func (n *recordingNotifier) Sound() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sounds++
	return nil
}

func (n *recordingNotifier) Native(title, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.native = append(n.native, title)
	return nil
}

func (n *recordingNotifier) toastCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.toasts)
}

var baseTime = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func tenantViewer() Viewer {
	return Viewer{Role: chat.RoleTenant, Email: "asha@example.com", Name: "Asha"}
}

func ownerViewer() Viewer {
	return Viewer{Role: chat.RoleOwner, ID: "owner-1", Email: "ravi@example.com", Name: "Ravi"}
}

func serverMessage(id string, sender chat.Role, senderName, text string, at time.Time, status chat.MessageStatus) dto.Message {
	return dto.Message{
		ID:         id,
		Text:       text,
		Sender:     string(sender),
		SenderName: senderName,
		Timestamp:  at,
		Status:     string(status),
	}
}

func threadWith(id string, messages ...dto.Message) dto.Conversation {
	conv := dto.Conversation{
		ID:            id,
		PropertyID:    "prop-" + id,
		PropertyTitle: "Sunrise PG " + id,
		OwnerID:       "owner-1",
		OwnerName:     "Ravi",
		TenantEmail:   "asha@example.com",
		TenantName:    "Asha",
		Messages:      messages,
	}
	if len(messages) > 0 {
		last := messages[len(messages)-1]
		conv.LastMessage = &last
		conv.LastMessageAt = last.Timestamp
	}
	return conv
}
