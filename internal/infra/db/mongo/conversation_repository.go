package mongo

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"pgnest/internal/domain/chat"
)

type ConversationRepository struct {
	col *mongo.Collection
}

func NewConversationRepository(db *mongo.Database) *ConversationRepository {
	return &ConversationRepository{col: db.Collection("conversations")}
}

func (r *ConversationRepository) ByID(ctx context.Context, id chat.ConversationID) (*chat.Conversation, error) {
	var doc conversationDocument
	if err := r.col.FindOne(ctx, bson.M{"_id": string(id)}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, chat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) ByOwner(ctx context.Context, ownerID string) ([]*chat.Conversation, error) {
	return r.find(ctx, bson.M{"owner_id": ownerID})
}

func (r *ConversationRepository) ByTenantEmail(ctx context.Context, email string) ([]*chat.Conversation, error) {
	return r.find(ctx, bson.M{"tenant_email": strings.ToLower(strings.TrimSpace(email))})
}

func (r *ConversationRepository) ByPropertyAndTenant(ctx context.Context, propertyID, tenantEmail string) (*chat.Conversation, error) {
	filter := bson.M{
		"property_id":  propertyID,
		"tenant_email": strings.ToLower(strings.TrimSpace(tenantEmail)),
	}
	var doc conversationDocument
	if err := r.col.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, chat.ErrNotFound
		}
		return nil, err
	}
	return doc.toAggregate(), nil
}

func (r *ConversationRepository) Save(ctx context.Context, conversation *chat.Conversation) error {
	doc := newConversationDocument(conversation)
	filter := bson.M{"_id": doc.ID}
	update := bson.M{"$set": doc}
	opts := options.Update().SetUpsert(true)
	_, err := r.col.UpdateOne(ctx, filter, update, opts)
	return err
}

func (r *ConversationRepository) find(ctx context.Context, filter bson.M) ([]*chat.Conversation, error) {
	opts := options.Find().SetSort(bson.D{{Key: "last_message_at", Value: -1}})
	cursor, err := r.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)
	conversations := make([]*chat.Conversation, 0)
	for cursor.Next(ctx) {
		var doc conversationDocument
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		conversations = append(conversations, doc.toAggregate())
	}
	return conversations, cursor.Err()
}

type conversationDocument struct {
	ID            string            `bson:"_id"`
	PropertyID    string            `bson:"property_id"`
	PropertyTitle string            `bson:"property_title"`
	OwnerID       string            `bson:"owner_id"`
	OwnerName     string            `bson:"owner_name"`
	OwnerEmail    string            `bson:"owner_email"`
	OwnerPhone    string            `bson:"owner_phone"`
	TenantEmail   string            `bson:"tenant_email"`
	TenantName    string            `bson:"tenant_name"`
	Messages      []messageDocument `bson:"messages"`
	LastMessageAt int64             `bson:"last_message_at"`
	CreatedAt     int64             `bson:"created_at"`
	UpdatedAt     int64             `bson:"updated_at"`
}

type messageDocument struct {
	ID         string `bson:"id"`
	Sender     string `bson:"sender"`
	SenderName string `bson:"sender_name"`
	Text       string `bson:"text"`
	Status     string `bson:"status"`
	Origin     string `bson:"origin"`
	CreatedAt  int64  `bson:"created_at"`
}

func newConversationDocument(c *chat.Conversation) conversationDocument {
	messages := make([]messageDocument, 0, len(c.Messages))
	for _, msg := range c.Messages {
		messages = append(messages, messageDocument{
			ID:         string(msg.ID),
			Sender:     string(msg.Sender),
			SenderName: msg.SenderName,
			Text:       msg.Text,
			Status:     string(msg.Status),
			Origin:     string(msg.Origin),
			CreatedAt:  msg.CreatedAt.UnixMilli(),
		})
	}
	return conversationDocument{
		ID:            string(c.ID),
		PropertyID:    c.PropertyID,
		PropertyTitle: c.PropertyTitle,
		OwnerID:       c.Participants.OwnerID,
		OwnerName:     c.Participants.OwnerName,
		OwnerEmail:    c.Participants.OwnerEmail,
		OwnerPhone:    c.Participants.OwnerPhone,
		TenantEmail:   c.Participants.TenantEmail,
		TenantName:    c.Participants.TenantName,
		Messages:      messages,
		LastMessageAt: c.LastMessageAt.UnixMilli(),
		CreatedAt:     c.CreatedAt.UnixMilli(),
		UpdatedAt:     c.UpdatedAt.UnixMilli(),
	}
}

func (d conversationDocument) toAggregate() *chat.Conversation {
	conv := &chat.Conversation{
		ID:            chat.ConversationID(d.ID),
		PropertyID:    d.PropertyID,
		PropertyTitle: d.PropertyTitle,
		Participants: chat.Participants{
			OwnerID:     d.OwnerID,
			OwnerName:   d.OwnerName,
			OwnerEmail:  d.OwnerEmail,
			OwnerPhone:  d.OwnerPhone,
			TenantEmail: d.TenantEmail,
			TenantName:  d.TenantName,
		},
		LastMessageAt: timestampToTime(d.LastMessageAt),
		CreatedAt:     timestampToTime(d.CreatedAt),
		UpdatedAt:     timestampToTime(d.UpdatedAt),
	}
	for _, msg := range d.Messages {
		conv.Messages = append(conv.Messages, chat.Message{
			ID:             chat.MessageID(msg.ID),
			ConversationID: conv.ID,
			Sender:         chat.Role(msg.Sender),
			SenderName:     msg.SenderName,
			Text:           msg.Text,
			Status:         chat.MessageStatus(msg.Status),
			Origin:         chat.Origin(msg.Origin),
			CreatedAt:      timestampToTime(msg.CreatedAt),
		})
	}
	if len(conv.Messages) > 0 {
		last := conv.Messages[len(conv.Messages)-1]
		conv.LastMessage = &last
	}
	return conv
}

func timestampToTime(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
