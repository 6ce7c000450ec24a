package chatsync

import (
	"context"
	"fmt"

	"pgnest/internal/domain/chat"
)

// MarkConversationRead zeroes the viewer's unread state for one thread, local
// cache first so the badge clears instantly, then the server. Counterparty
// messages flip to read; the viewer's own entries keep their delivery status.
// Marking an already-read thread is a no-op on both sides.
func (s *Store) MarkConversationRead(ctx context.Context, conversationID string) error {
	counterparty := s.viewer.Role.Counterparty()

	s.mu.Lock()
	conv, ok := s.index[conversationID]
	if !ok {
		s.mu.Unlock()
		return ErrUnknownConversation
	}
	changed := 0
	for i := range conv.Messages {
		msg := &conv.Messages[i]
		if msg.Sender != counterparty || msg.Status == chat.StatusRead {
			continue
		}
		msg.Status = chat.StatusRead
		changed++
	}
	if conv.LastMessage != nil && conv.LastMessage.Sender == counterparty {
		conv.LastMessage.Status = chat.StatusRead
	}
	alreadyClear := changed == 0 && conv.UnreadCount == 0
	conv.UnreadCount = 0
	if !alreadyClear {
		s.notifyLocked()
	}
	s.mu.Unlock()

	if alreadyClear {
		return nil
	}
	if err := s.backend.MarkRead(ctx, conversationID, s.viewer.ReaderID()); err != nil {
		return fmt.Errorf("chatsync: mark read: %w", err)
	}
	return nil
}
