package memory

import (
	"context"
	"sort"
	"strings"
	"sync"

	"pgnest/internal/domain/chat"
)

// ConversationRepository stores conversations in memory. It backs the demo
// mode and the test suites; clones are handed out so callers never alias
// repository state.
type ConversationRepository struct {
	mu    sync.RWMutex
	items map[chat.ConversationID]*chat.Conversation
}

func NewConversationRepository() *ConversationRepository {
	return &ConversationRepository{
		items: make(map[chat.ConversationID]*chat.Conversation),
	}
}

func (r *ConversationRepository) ByID(ctx context.Context, id chat.ConversationID) (*chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	conv, ok := r.items[id]
	if !ok {
		return nil, chat.ErrNotFound
	}
	return conv.Clone(), nil
}

func (r *ConversationRepository) ByOwner(ctx context.Context, ownerID string) ([]*chat.Conversation, error) {
	return r.filter(func(conv *chat.Conversation) bool {
		return conv.Participants.OwnerID == ownerID
	})
}

func (r *ConversationRepository) ByTenantEmail(ctx context.Context, email string) ([]*chat.Conversation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.filter(func(conv *chat.Conversation) bool {
		return conv.Participants.TenantEmail == email
	})
}

func (r *ConversationRepository) ByPropertyAndTenant(ctx context.Context, propertyID, tenantEmail string) (*chat.Conversation, error) {
	tenantEmail = strings.ToLower(strings.TrimSpace(tenantEmail))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, conv := range r.items {
		if conv.PropertyID == propertyID && conv.Participants.TenantEmail == tenantEmail {
			return conv.Clone(), nil
		}
	}
	return nil, chat.ErrNotFound
}

func (r *ConversationRepository) Save(ctx context.Context, conversation *chat.Conversation) error {
	if conversation == nil || strings.TrimSpace(string(conversation.ID)) == "" {
		return chat.ErrConversationIDRequired
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[conversation.ID] = conversation.Clone()
	return nil
}

func (r *ConversationRepository) filter(keep func(*chat.Conversation) bool) ([]*chat.Conversation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matches := make([]*chat.Conversation, 0)
	for _, conv := range r.items {
		if keep(conv) {
			matches = append(matches, conv.Clone())
		}
	}
	sort.Slice(matches, func(i, j int) bool {
		return matches[i].LastMessageAt.After(matches[j].LastMessageAt)
	})
	return matches, nil
}
