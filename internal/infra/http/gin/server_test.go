package ginserver

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pgnest/internal/app/dto"
	"pgnest/internal/app/services/messaging"
	"pgnest/internal/domain/property"
	"pgnest/internal/infra/config"
	"pgnest/internal/infra/obs"
	"pgnest/internal/infra/storage/memory"
)

var handlerNow = time.Date(2026, time.March, 14, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T) (http.Handler, *messaging.Service) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	props := memory.NewPropertyRepository()
	prop, err := property.New(property.CreateParams{
		ID:          "pg-1",
		Owner:       "owner-1",
		OwnerName:   "Ravi",
		Title:       "Sunrise PG",
		Address:     property.Address{Line1: "14, 5th Block", City: "Bengaluru"},
		MonthlyRent: 9500,
		Now:         handlerNow,
	})
	if err != nil {
		t.Fatalf("property: %v", err)
	}
	if err := props.Save(context.Background(), prop); err != nil {
		t.Fatalf("save property: %v", err)
	}

	svc := &messaging.Service{
		Conversations: memory.NewConversationRepository(),
		Properties:    props,
		Logger:        logger,
		Clock:         func() time.Time { return handlerNow },
	}
	server := NewServer(config.Config{Env: "test", HTTPAddr: ":0"}, obs.Middleware{Logger: logger}, obs.HealthHandlers{}, Handlers{
		Chat:     ChatHandler{Service: svc, Logger: logger},
		Property: PropertyHandler{Repo: props, Logger: logger},
	})
	return server.Handler, svc
}

func doJSON(t *testing.T, handler http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func startTestThread(t *testing.T, handler http.Handler) dto.Conversation {
	t.Helper()
	rec := doJSON(t, handler, http.MethodPost, "/messages/start", dto.StartConversationRequest{
		PropertyID:  "pg-1",
		TenantEmail: "asha@example.com",
		TenantName:  "Asha",
		Message:     "Is the room available?",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("start status = %d, body %s", rec.Code, rec.Body.String())
	}
	var conv dto.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &conv); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return conv
}

func TestStartThenListPerSide(t *testing.T) {
	handler, _ := newTestServer(t)
	conv := startTestThread(t, handler)
	if conv.OwnerID != "owner-1" || conv.PropertyTitle != "Sunrise PG" {
		t.Fatalf("conversation = %+v", conv)
	}

	rec := doJSON(t, handler, http.MethodGet, "/messages/conversations/owner/owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner list status = %d", rec.Code)
	}
	var ownerList []dto.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &ownerList); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(ownerList) != 1 || ownerList[0].UnreadCount != 1 {
		t.Fatalf("owner list = %+v", ownerList)
	}
	if len(ownerList[0].Messages) != 1 {
		t.Fatalf("list entries must carry the message history")
	}

	rec = doJSON(t, handler, http.MethodGet, "/messages/conversations/tenant/asha@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tenant list status = %d", rec.Code)
	}
	var tenantList []dto.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &tenantList); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(tenantList) != 1 || tenantList[0].UnreadCount != 0 {
		t.Fatalf("tenant list = %+v, own message must not count as unread", tenantList)
	}
}

func TestMarkReadEndpoint(t *testing.T) {
	handler, _ := newTestServer(t)
	conv := startTestThread(t, handler)

	rec := doJSON(t, handler, http.MethodPatch, "/messages/conversations/"+conv.ID+"/read", dto.MarkReadRequest{ReaderID: "owner-1"})
	if rec.Code != http.StatusOK {
		t.Fatalf("mark read status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out map[string]bool
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil || !out["success"] {
		t.Fatalf("body = %s", rec.Body.String())
	}

	rec = doJSON(t, handler, http.MethodGet, "/messages/conversations/owner/owner-1", nil)
	var ownerList []dto.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &ownerList); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if ownerList[0].UnreadCount != 0 {
		t.Fatalf("unread = %d after read, want 0", ownerList[0].UnreadCount)
	}

	rec = doJSON(t, handler, http.MethodPatch, "/messages/conversations/"+conv.ID+"/read", dto.MarkReadRequest{})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("missing reader id status = %d", rec.Code)
	}
}

func TestReplyEndpoint(t *testing.T) {
	handler, _ := newTestServer(t)
	conv := startTestThread(t, handler)

	rec := doJSON(t, handler, http.MethodPost, "/messages/reply", dto.ReplyRequest{
		ConversationID: conv.ID,
		OwnerID:        "owner-1",
		Message:        "Yes, come by tomorrow",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("reply status = %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		ConversationID string      `json:"conversationId"`
		Message        dto.Message `json:"message"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.ConversationID != conv.ID || out.Message.Sender != "owner" {
		t.Fatalf("reply body = %+v", out)
	}

	rec = doJSON(t, handler, http.MethodPost, "/messages/reply", dto.ReplyRequest{
		ConversationID: conv.ID,
		OwnerID:        "intruder",
		Message:        "hi",
	})
	if rec.Code != http.StatusForbidden {
		t.Fatalf("stranger reply status = %d", rec.Code)
	}
}

func TestStatsEndpoints(t *testing.T) {
	handler, _ := newTestServer(t)
	startTestThread(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/messages/stats/owner-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("owner stats status = %d", rec.Code)
	}
	var stats dto.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalConversations != 1 || stats.UnreadConversations != 1 {
		t.Fatalf("owner stats = %+v", stats)
	}

	rec = doJSON(t, handler, http.MethodGet, "/messages/tenant-stats/asha@example.com", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("tenant stats status = %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if stats.TotalConversations != 1 {
		t.Fatalf("tenant stats = %+v", stats)
	}
}

func TestConversationDetailAndNotFound(t *testing.T) {
	handler, _ := newTestServer(t)
	conv := startTestThread(t, handler)

	rec := doJSON(t, handler, http.MethodGet, "/messages/conversations/"+conv.ID+"?viewer=owner", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("detail status = %d", rec.Code)
	}
	var detail dto.Conversation
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if detail.UnreadCount != 1 {
		t.Fatalf("owner-view unread = %d, want 1", detail.UnreadCount)
	}

	rec = doJSON(t, handler, http.MethodGet, "/messages/conversations/ghost", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing thread status = %d", rec.Code)
	}
}

func TestPropertyEndpoints(t *testing.T) {
	handler, _ := newTestServer(t)

	rec := doJSON(t, handler, http.MethodGet, "/properties?city=Bengaluru", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("search status = %d", rec.Code)
	}
	var props []dto.Property
	if err := json.Unmarshal(rec.Body.Bytes(), &props); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(props) != 1 || props[0].ID != "pg-1" {
		t.Fatalf("search = %+v", props)
	}

	rec = doJSON(t, handler, http.MethodGet, "/properties/pg-1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Creating a listing requires an authenticated owner.
	rec = doJSON(t, handler, http.MethodPost, "/properties", dto.CreatePropertyRequest{Title: "New PG"})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("unauthenticated create status = %d", rec.Code)
	}
}
