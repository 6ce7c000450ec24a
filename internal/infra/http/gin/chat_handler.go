package ginserver

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"pgnest/internal/app/dto"
	"pgnest/internal/app/services/messaging"
	"pgnest/internal/domain/chat"
	"pgnest/internal/domain/property"
)

// ChatHTTP exposes the messaging endpoints.
type ChatHTTP interface {
	ListOwnerConversations(c *gin.Context)
	ListTenantConversations(c *gin.Context)
	Detail(c *gin.Context)
	MarkRead(c *gin.Context)
	Reply(c *gin.Context)
	Start(c *gin.Context)
	OwnerStats(c *gin.Context)
	TenantStats(c *gin.Context)
}

type ChatHandler struct {
	Service *messaging.Service
	Logger  *slog.Logger
}

func (h ChatHandler) ListOwnerConversations(c *gin.Context) {
	ownerID := strings.TrimSpace(c.Param("ownerId"))
	summaries, err := h.Service.ListByOwner(c.Request.Context(), ownerID)
	if err != nil {
		h.respondChatError(c, err, "list owner conversations", "owner_id", ownerID)
		return
	}
	c.JSON(http.StatusOK, mapSummaries(summaries))
}

func (h ChatHandler) ListTenantConversations(c *gin.Context) {
	// gin decodes the URL-encoded email path segment before we see it.
	tenantEmail := strings.TrimSpace(c.Param("tenantEmail"))
	summaries, err := h.Service.ListByTenant(c.Request.Context(), tenantEmail)
	if err != nil {
		h.respondChatError(c, err, "list tenant conversations", "tenant_email", tenantEmail)
		return
	}
	c.JSON(http.StatusOK, mapSummaries(summaries))
}

func (h ChatHandler) Detail(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("conversationId"))
	conv, err := h.Service.Detail(c.Request.Context(), chat.ConversationID(conversationID))
	if err != nil {
		h.respondChatError(c, err, "load conversation", "conversation_id", conversationID)
		return
	}
	c.JSON(http.StatusOK, dto.FromConversation(conv, h.viewerRole(c, conv)))
}

func (h ChatHandler) MarkRead(c *gin.Context) {
	conversationID := strings.TrimSpace(c.Param("conversationId"))
	var req dto.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	err := h.Service.MarkRead(c.Request.Context(), chat.ConversationID(conversationID), req.ReaderID)
	if err != nil {
		h.respondChatError(c, err, "mark read", "conversation_id", conversationID, "reader_id", req.ReaderID)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (h ChatHandler) Reply(c *gin.Context) {
	var req dto.ReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	conv, msg, err := h.Service.Reply(c.Request.Context(), messaging.ReplyParams{
		ConversationID: chat.ConversationID(req.ConversationID),
		Sender:         chat.Role(strings.ToLower(strings.TrimSpace(req.Sender))),
		OwnerID:        req.OwnerID,
		OwnerName:      req.OwnerName,
		TenantEmail:    req.TenantEmail,
		TenantName:     req.TenantName,
		Text:           req.Message,
	})
	if err != nil {
		h.respondChatError(c, err, "reply", "conversation_id", req.ConversationID)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"conversationId": string(conv.ID),
		"message":        dto.FromMessage(msg),
	})
}

func (h ChatHandler) Start(c *gin.Context) {
	var req dto.StartConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	conv, err := h.Service.Start(c.Request.Context(), messaging.StartParams{
		PropertyID:  req.PropertyID,
		TenantEmail: req.TenantEmail,
		TenantName:  req.TenantName,
		Text:        req.Message,
	})
	if err != nil {
		h.respondChatError(c, err, "start conversation", "property_id", req.PropertyID)
		return
	}
	c.JSON(http.StatusCreated, dto.FromConversation(conv, chat.RoleTenant))
}

func (h ChatHandler) OwnerStats(c *gin.Context) {
	ownerID := strings.TrimSpace(c.Param("ownerId"))
	stats, err := h.Service.OwnerStats(c.Request.Context(), ownerID)
	if err != nil {
		h.respondChatError(c, err, "owner stats", "owner_id", ownerID)
		return
	}
	c.JSON(http.StatusOK, dto.Stats{
		TotalConversations:  stats.TotalConversations,
		UnreadConversations: stats.UnreadConversations,
	})
}

func (h ChatHandler) TenantStats(c *gin.Context) {
	tenantEmail := strings.TrimSpace(c.Param("tenantEmail"))
	stats, err := h.Service.TenantStats(c.Request.Context(), tenantEmail)
	if err != nil {
		h.respondChatError(c, err, "tenant stats", "tenant_email", tenantEmail)
		return
	}
	c.JSON(http.StatusOK, dto.Stats{
		TotalConversations:  stats.TotalConversations,
		UnreadConversations: stats.UnreadConversations,
	})
}

// viewerRole decides whose point of view the unread counts are derived from:
// the authenticated principal when it is a participant, otherwise an explicit
// ?viewer= query, defaulting to the tenant side.
func (h ChatHandler) viewerRole(c *gin.Context, conv *chat.Conversation) chat.Role {
	if p, ok := currentPrincipal(c); ok {
		if role, ok := conv.ParticipantRole(p.ID); ok {
			return role
		}
		if role, ok := conv.ParticipantRole(p.Email); ok {
			return role
		}
	}
	if viewer := chat.Role(strings.ToLower(c.Query("viewer"))); viewer.Valid() {
		return viewer
	}
	return chat.RoleTenant
}

func (h ChatHandler) respondChatError(c *gin.Context, err error, action string, attrs ...any) {
	switch {
	case errors.Is(err, chat.ErrNotFound), errors.Is(err, property.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	case errors.Is(err, chat.ErrTenantRequired),
		errors.Is(err, chat.ErrOwnerRequired),
		errors.Is(err, messaging.ErrConversationRequired),
		errors.Is(err, messaging.ErrReaderRequired),
		errors.Is(err, messaging.ErrMessageRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, messaging.ErrSenderUnresolved):
		c.JSON(http.StatusForbidden, gin.H{"error": "not a chat participant"})
	default:
		if h.Logger != nil {
			h.Logger.Error("messaging call failed", append([]any{"action", action, "error", err}, attrs...)...)
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func mapSummaries(summaries []messaging.Summary) []dto.Conversation {
	out := make([]dto.Conversation, 0, len(summaries))
	for _, summary := range summaries {
		out = append(out, dto.FromSummary(summary))
	}
	return out
}

var _ ChatHTTP = (*ChatHandler)(nil)
