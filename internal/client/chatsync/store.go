package chatsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"pgnest/internal/app/dto"
	"pgnest/internal/domain/chat"
)

var (
	ErrUnknownConversation = errors.New("chatsync: conversation not cached")
	ErrUnknownMessage      = errors.New("chatsync: message not cached")
	ErrEmptyMessage        = errors.New("chatsync: message text is required")
)

// Store is the single shared conversation cache behind every chat surface.
// The list view, the open thread, and the notification poller all read the
// same state; whoever refreshes it refreshes it for everyone. Mutations wake
// subscribers through coalescing channels.
type Store struct {
	backend Backend
	viewer  Viewer
	logger  *slog.Logger

	// Clock is swappable for tests.
	Clock func() time.Time

	mu            sync.RWMutex
	conversations []*Conversation
	index         map[string]*Conversation
	subs          []chan struct{}
}

func NewStore(backend Backend, viewer Viewer, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		backend: backend,
		viewer:  viewer,
		logger:  logger,
		Clock:   time.Now,
		index:   make(map[string]*Conversation),
	}
}

func (s *Store) Viewer() Viewer { return s.viewer }

// Subscribe returns a channel that receives a signal after every mutation.
// Signals coalesce: a slow consumer sees at least one, not all.
func (s *Store) Subscribe() <-chan struct{} {
	ch := make(chan struct{}, 1)
	s.mu.Lock()
	s.subs = append(s.subs, ch)
	s.mu.Unlock()
	return ch
}

func (s *Store) notifyLocked() {
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now()
}

// Refresh replaces the cached list with the server's view for this viewer.
// Optimistic entries the server has not acknowledged yet are carried over so
// an in-flight send never vanishes from the thread mid-poll.
func (s *Store) Refresh(ctx context.Context) ([]Conversation, error) {
	var (
		raw []dto.Conversation
		err error
	)
	if s.viewer.Role == chat.RoleOwner {
		raw, err = s.backend.OwnerConversations(ctx, s.viewer.ID)
	} else {
		raw, err = s.backend.TenantConversations(ctx, s.viewer.ReaderID())
	}
	if err != nil {
		return nil, fmt.Errorf("chatsync: refresh conversations: %w", err)
	}

	s.mu.Lock()
	pendingByConv := s.unconfirmedLocked()
	s.conversations = s.conversations[:0]
	s.index = make(map[string]*Conversation, len(raw))
	for _, item := range raw {
		conv := conversationFromDTO(item)
		if locals, ok := pendingByConv[conv.ID]; ok {
			conv.Messages = append(conv.Messages, locals...)
			conv.refreshLastMessage()
		}
		s.conversations = append(s.conversations, conv)
		s.index[conv.ID] = conv
	}
	s.resortLocked()
	out := s.snapshotLocked()
	s.notifyLocked()
	s.mu.Unlock()
	return out, nil
}

// unconfirmedLocked collects local-origin messages the server has not echoed
// back yet, keyed by conversation id.
func (s *Store) unconfirmedLocked() map[string][]Message {
	out := make(map[string][]Message)
	for _, conv := range s.conversations {
		for _, msg := range conv.Messages {
			if !msg.confirmed() {
				out[conv.ID] = append(out[conv.ID], msg)
			}
		}
	}
	return out
}

// Conversations returns a snapshot of the cached list, most recent first.
func (s *Store) Conversations() []Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

func (s *Store) Conversation(id string) (Conversation, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	conv, ok := s.index[id]
	if !ok {
		return Conversation{}, false
	}
	return conv.clone(), true
}

// Load fetches the full thread, caches it, and marks it read for the viewer.
// A failed read-marking does not fail the load; the next poll re-derives the
// counts either way.
func (s *Store) Load(ctx context.Context, conversationID string) (Conversation, error) {
	raw, err := s.backend.Conversation(ctx, conversationID)
	if err != nil {
		return Conversation{}, fmt.Errorf("chatsync: load conversation: %w", err)
	}
	conv := conversationFromDTO(raw)

	s.mu.Lock()
	if locals, ok := s.unconfirmedLocked()[conv.ID]; ok {
		conv.Messages = append(conv.Messages, locals...)
		conv.refreshLastMessage()
	}
	s.upsertLocked(conv)
	s.notifyLocked()
	s.mu.Unlock()

	if err := s.MarkConversationRead(ctx, conversationID); err != nil {
		s.logger.Warn("read-state sync failed on open", "conversation_id", conversationID, "error", err)
	}
	out, _ := s.Conversation(conversationID)
	return out, nil
}

// Drop discards the cached thread detail when the viewer navigates away. The
// next poll restores the summary.
func (s *Store) Drop(conversationID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.index[conversationID]
	if !ok {
		return
	}
	kept := conv.Messages[:0]
	for _, msg := range conv.Messages {
		if !msg.confirmed() {
			kept = append(kept, msg)
		}
	}
	conv.Messages = kept
	s.notifyLocked()
}

// AppendLocal adds an optimistic entry for a message the viewer just composed.
// The conversation jumps to the top of the list immediately; delivery state
// starts at pending until the server acknowledges or the send fails.
func (s *Store) AppendLocal(conversationID, text string) (Message, error) {
	if text == "" {
		return Message{}, ErrEmptyMessage
	}
	msg := Message{
		ID:         uuid.NewString(),
		Sender:     s.viewer.Role,
		SenderName: s.viewer.Name,
		Text:       text,
		Timestamp:  s.now(),
		Status:     chat.StatusPending,
		Origin:     chat.OriginLocal,
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.index[conversationID]
	if !ok {
		return Message{}, ErrUnknownConversation
	}
	conv.Messages = append(conv.Messages, msg)
	conv.refreshLastMessage()
	s.resortLocked()
	s.notifyLocked()
	return msg, nil
}

// ConfirmLocal records the server's acknowledgement of an optimistic entry.
func (s *Store) ConfirmLocal(conversationID, localID, serverID string) error {
	return s.transitionLocal(conversationID, localID, chat.StatusSent, serverID)
}

// FailLocal parks an optimistic entry in the failed state for a later retry.
func (s *Store) FailLocal(conversationID, localID string) error {
	return s.transitionLocal(conversationID, localID, chat.StatusFailed, "")
}

// RetryLocal re-arms a failed entry so it can be posted again.
func (s *Store) RetryLocal(conversationID, localID string) error {
	return s.transitionLocal(conversationID, localID, chat.StatusPending, "")
}

func (s *Store) transitionLocal(conversationID, localID string, next chat.MessageStatus, serverID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.index[conversationID]
	if !ok {
		return ErrUnknownConversation
	}
	for i := range conv.Messages {
		if conv.Messages[i].ID != localID {
			continue
		}
		probe := chat.Message{Status: conv.Messages[i].Status}
		if err := probe.Transition(next); err != nil {
			return err
		}
		conv.Messages[i].Status = probe.Status
		if serverID != "" {
			conv.Messages[i].ServerID = serverID
		}
		conv.refreshLastMessage()
		s.notifyLocked()
		return nil
	}
	return ErrUnknownMessage
}

func (s *Store) upsertLocked(conv *Conversation) {
	if existing, ok := s.index[conv.ID]; ok {
		*existing = *conv
	} else {
		s.conversations = append(s.conversations, conv)
		s.index[conv.ID] = conv
	}
	s.resortLocked()
}

func (s *Store) resortLocked() {
	sort.SliceStable(s.conversations, func(i, j int) bool {
		return s.conversations[i].LastMessageAt.After(s.conversations[j].LastMessageAt)
	})
}

func (s *Store) snapshotLocked() []Conversation {
	out := make([]Conversation, 0, len(s.conversations))
	for _, conv := range s.conversations {
		out = append(out, conv.clone())
	}
	return out
}
