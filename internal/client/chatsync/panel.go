package chatsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"pgnest/internal/app/dto"
	"pgnest/internal/domain/chat"
)

var (
	ErrNoActiveConversation = errors.New("chatsync: no conversation open")
	ErrQuickReplyIndex      = errors.New("chatsync: quick reply index out of range")
	ErrNotTenant            = errors.New("chatsync: property details are a tenant-side action")
)

// PanelState is which of the two chat surfaces is showing.
type PanelState string

const (
	StateList         PanelState = "list"
	StateConversation PanelState = "conversation"
)

var tenantQuickReplies = []string{
	"Is the room still available?",
	"Can I schedule a visit?",
	"What is included in the rent?",
}

var ownerQuickReplies = []string{
	"Yes, it is available.",
	"When would you like to visit?",
	"Please share your move-in date.",
}

// Panel drives the two-pane chat UI: the conversation list and one open
// thread. It owns navigation, the composer draft, and the send/retry flow;
// all message state lives in the shared store.
type Panel struct {
	store    *Store
	backend  Backend
	notifier Notifier
	logger   *slog.Logger

	mu       sync.Mutex
	state    PanelState
	activeID string
	draft    string
}

func NewPanel(store *Store, backend Backend, notifier Notifier, logger *slog.Logger) *Panel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Panel{
		store:    store,
		backend:  backend,
		notifier: notifier,
		logger:   logger,
		state:    StateList,
	}
}

func (p *Panel) State() PanelState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Active returns the open thread, when one is.
func (p *Panel) Active() (Conversation, bool) {
	p.mu.Lock()
	id := p.activeID
	p.mu.Unlock()
	if id == "" {
		return Conversation{}, false
	}
	return p.store.Conversation(id)
}

// Open switches to the thread view. Loading marks the thread read for the
// viewer, which is what clears its badge everywhere else.
func (p *Panel) Open(ctx context.Context, conversationID string) (Conversation, error) {
	conv, err := p.store.Load(ctx, conversationID)
	if err != nil {
		return Conversation{}, err
	}
	p.mu.Lock()
	p.state = StateConversation
	p.activeID = conversationID
	p.draft = ""
	p.mu.Unlock()
	return conv, nil
}

// Back returns to the list. The thread detail is dropped from the cache; the
// summary list stays as-is until the next poll.
func (p *Panel) Back() {
	p.mu.Lock()
	id := p.activeID
	p.state = StateList
	p.activeID = ""
	p.draft = ""
	p.mu.Unlock()
	if id != "" {
		p.store.Drop(id)
	}
}

func (p *Panel) SetDraft(text string) {
	p.mu.Lock()
	p.draft = text
	p.mu.Unlock()
}

func (p *Panel) Draft() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.draft
}

// QuickReplies lists the canned openers for the viewer's side.
func (p *Panel) QuickReplies() []string {
	source := tenantQuickReplies
	if p.store.Viewer().Role == chat.RoleOwner {
		source = ownerQuickReplies
	}
	out := make([]string, len(source))
	copy(out, source)
	return out
}

// UseQuickReply copies a canned opener into the composer.
func (p *Panel) UseQuickReply(index int) error {
	replies := p.QuickReplies()
	if index < 0 || index >= len(replies) {
		return ErrQuickReplyIndex
	}
	p.SetDraft(replies[index])
	return nil
}

// SendDraft posts the composer text and clears it.
func (p *Panel) SendDraft(ctx context.Context) (Message, error) {
	p.mu.Lock()
	text := strings.TrimSpace(p.draft)
	p.draft = ""
	p.mu.Unlock()
	return p.Send(ctx, text)
}

// Send appends an optimistic entry, posts it, and settles the entry to sent
// or failed. The failed branch leaves the message in the thread with a retry
// affordance and raises a toast; it never silently drops user input.
func (p *Panel) Send(ctx context.Context, text string) (Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	p.mu.Lock()
	conversationID := p.activeID
	p.mu.Unlock()
	if conversationID == "" {
		return Message{}, ErrNoActiveConversation
	}
	local, err := p.store.AppendLocal(conversationID, text)
	if err != nil {
		return Message{}, err
	}
	return p.post(ctx, conversationID, local)
}

// Retry re-posts a failed entry, reusing its local id so the thread shows one
// message moving through states rather than duplicates piling up.
func (p *Panel) Retry(ctx context.Context, localID string) (Message, error) {
	p.mu.Lock()
	conversationID := p.activeID
	p.mu.Unlock()
	if conversationID == "" {
		return Message{}, ErrNoActiveConversation
	}
	if err := p.store.RetryLocal(conversationID, localID); err != nil {
		return Message{}, err
	}
	conv, ok := p.store.Conversation(conversationID)
	if !ok {
		return Message{}, ErrUnknownConversation
	}
	for _, msg := range conv.Messages {
		if msg.ID == localID {
			return p.post(ctx, conversationID, msg)
		}
	}
	return Message{}, ErrUnknownMessage
}

func (p *Panel) post(ctx context.Context, conversationID string, local Message) (Message, error) {
	server, err := p.backend.Reply(ctx, p.replyRequest(conversationID, local.Text))
	if err != nil {
		if failErr := p.store.FailLocal(conversationID, local.ID); failErr != nil {
			p.logger.Error("could not park failed message", "conversation_id", conversationID, "error", failErr)
		}
		if p.notifier != nil {
			p.notifier.Toast("Message not sent", "Check your connection and tap retry.")
		}
		local.Status = chat.StatusFailed
		return local, fmt.Errorf("chatsync: send message: %w", err)
	}
	if err := p.store.ConfirmLocal(conversationID, local.ID, server.ID); err != nil {
		p.logger.Error("could not confirm sent message", "conversation_id", conversationID, "error", err)
	}
	local.Status = chat.StatusSent
	local.ServerID = server.ID
	return local, nil
}

func (p *Panel) replyRequest(conversationID, text string) dto.ReplyRequest {
	viewer := p.store.Viewer()
	req := dto.ReplyRequest{
		ConversationID: conversationID,
		Message:        text,
		Sender:         string(viewer.Role),
	}
	if viewer.Role == chat.RoleOwner {
		req.OwnerID = viewer.ID
		req.OwnerName = viewer.Name
	} else {
		req.TenantEmail = viewer.ReaderID()
		req.TenantName = viewer.Name
	}
	return req
}

// PropertyDetails fetches the listing behind the open thread. Only the tenant
// side shows this shortcut; owners already manage the listing elsewhere.
func (p *Panel) PropertyDetails(ctx context.Context) (dto.Property, error) {
	if p.store.Viewer().Role != chat.RoleTenant {
		return dto.Property{}, ErrNotTenant
	}
	conv, ok := p.Active()
	if !ok {
		return dto.Property{}, ErrNoActiveConversation
	}
	prop, err := p.backend.Property(ctx, conv.PropertyID)
	if err != nil {
		return dto.Property{}, fmt.Errorf("chatsync: load property: %w", err)
	}
	return prop, nil
}
