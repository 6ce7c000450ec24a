package chatsync

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"pgnest/internal/domain/chat"
)

func newTestPoller(t *testing.T, backend *fakeBackend, viewer Viewer, at time.Time) (*Store, *Poller, *recordingNotifier) {
	t.Helper()
	store := NewStore(backend, viewer, testLogger())
	store.Clock = fixedClock(at)
	notifier := &recordingNotifier{}
	poller := NewPoller(store, notifier, PollerConfig{}, testLogger())
	poller.Clock = fixedClock(at)
	return store, poller, notifier
}

func TestPollDerivesNotificationsFromUnreadCounterpartyMessages(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation(threadWith("c1",
		serverMessage("m1", chat.RoleOwner, "Ravi", "Room is open", baseTime.Add(-10*time.Minute), chat.StatusSent),
		serverMessage("m2", chat.RoleTenant, "Asha", "Great, visiting soon", baseTime.Add(-9*time.Minute), chat.StatusSent),
		serverMessage("m3", chat.RoleOwner, "Ravi", "See you then", baseTime.Add(-8*time.Minute), chat.StatusRead),
	))

	_, poller, _ := newTestPoller(t, backend, tenantViewer(), baseTime)
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	got := poller.Notifications()
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	if got[0].MessageID != "m1" {
		t.Fatalf("notification message = %s, want m1", got[0].MessageID)
	}
	if !strings.Contains(got[0].Title, "Ravi") {
		t.Fatalf("title = %q, want sender name", got[0].Title)
	}
}

func TestPollRecencyWindowBoundaryIsInclusive(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation(threadWith("edge",
		serverMessage("exact", chat.RoleOwner, "Ravi", "exactly at the edge", baseTime.Add(-30*time.Minute), chat.StatusSent),
	))
	backend.addConversation(threadWith("past",
		serverMessage("stale", chat.RoleOwner, "Ravi", "one second too old", baseTime.Add(-30*time.Minute-time.Second), chat.StatusSent),
	))

	_, poller, _ := newTestPoller(t, backend, tenantViewer(), baseTime)
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	got := poller.Notifications()
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	if got[0].MessageID != "exact" {
		t.Fatalf("kept %s, want the message aged exactly 30m", got[0].MessageID)
	}
}

func TestPollToastWindowBoundaryIsInclusive(t *testing.T) {
	for _, tc := range []struct {
		name      string
		age       time.Duration
		wantToast bool
	}{
		{"exactly five minutes", 5 * time.Minute, true},
		{"one second past", 5*time.Minute + time.Second, false},
	} {
		t.Run(tc.name, func(t *testing.T) {
			backend := newFakeBackend()
			backend.addConversation(threadWith("c1",
				serverMessage("m1", chat.RoleOwner, "Ravi", "hello", baseTime.Add(-tc.age), chat.StatusSent),
			))

			_, poller, notifier := newTestPoller(t, backend, tenantViewer(), baseTime)
			if err := poller.Poll(context.Background()); err != nil {
				t.Fatalf("poll: %v", err)
			}

			if len(poller.Notifications()) != 1 {
				t.Fatalf("notification list should hold the message either way")
			}
			if gotToast := notifier.toastCount() > 0; gotToast != tc.wantToast {
				t.Fatalf("toast = %v, want %v", gotToast, tc.wantToast)
			}
		})
	}
}

func TestPollCapsNotificationsAtTenMostRecent(t *testing.T) {
	backend := newFakeBackend()
	for i := 0; i < 15; i++ {
		id := fmt.Sprintf("c%02d", i)
		backend.addConversation(threadWith(id,
			serverMessage("m-"+id, chat.RoleOwner, "Ravi", "ping "+id, baseTime.Add(-time.Duration(i+1)*time.Minute), chat.StatusSent),
		))
	}

	_, poller, _ := newTestPoller(t, backend, tenantViewer(), baseTime)
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	got := poller.Notifications()
	if len(got) != 10 {
		t.Fatalf("notifications = %d, want 10", len(got))
	}
	if got[0].MessageID != "m-c00" {
		t.Fatalf("first notification = %s, want the newest message", got[0].MessageID)
	}
	for i := 1; i < len(got); i++ {
		if got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatalf("notifications out of order at %d", i)
		}
	}
	// The five oldest candidates fell off the capped list.
	for _, n := range got {
		if n.MessageID == "m-c14" {
			t.Fatalf("oldest candidate should have been capped out")
		}
	}
}

func TestPollReplacesListWholesale(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation(threadWith("c1",
		serverMessage("m1", chat.RoleOwner, "Ravi", "hello", baseTime.Add(-2*time.Minute), chat.StatusSent),
	))

	_, poller, _ := newTestPoller(t, backend, tenantViewer(), baseTime)
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if poller.Count() != 1 {
		t.Fatalf("count = %d, want 1", poller.Count())
	}

	// Read on another device between cycles.
	if err := backend.MarkRead(context.Background(), "c1", "asha@example.com"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}
	if poller.Count() != 0 {
		t.Fatalf("count = %d after remote read, want 0", poller.Count())
	}
}

func TestPollKeepsStaleListWhenFetchFails(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation(threadWith("c1",
		serverMessage("m1", chat.RoleOwner, "Ravi", "hello", baseTime.Add(-2*time.Minute), chat.StatusSent),
	))

	_, poller, _ := newTestPoller(t, backend, tenantViewer(), baseTime)
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	backend.mu.Lock()
	backend.listErr = errors.New("backend down")
	backend.mu.Unlock()

	if err := poller.Poll(context.Background()); err == nil {
		t.Fatalf("expected poll error while backend is down")
	}
	if poller.Count() != 1 {
		t.Fatalf("count = %d, stale list should survive a failed cycle", poller.Count())
	}
}

func TestPollToastsOnlyNewEntries(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation(threadWith("c1",
		serverMessage("m1", chat.RoleOwner, "Ravi", "hello", baseTime.Add(-2*time.Minute), chat.StatusSent),
	))

	_, poller, notifier := newTestPoller(t, backend, tenantViewer(), baseTime)
	for i := 0; i < 3; i++ {
		if err := poller.Poll(context.Background()); err != nil {
			t.Fatalf("poll %d: %v", i, err)
		}
	}
	if notifier.toastCount() != 1 {
		t.Fatalf("toasts = %d, repeat cycles must not re-toast", notifier.toastCount())
	}
}

func TestOwnerSideNotificationsComeFromTenantMessages(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation(threadWith("c1",
		serverMessage("m1", chat.RoleOwner, "Ravi", "from me", baseTime.Add(-2*time.Minute), chat.StatusSent),
		serverMessage("m2", chat.RoleTenant, "Asha", "from tenant", baseTime.Add(-1*time.Minute), chat.StatusSent),
	))

	_, poller, _ := newTestPoller(t, backend, ownerViewer(), baseTime)
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	got := poller.Notifications()
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	if got[0].MessageID != "m2" {
		t.Fatalf("owner viewer should only be notified about tenant messages, got %s", got[0].MessageID)
	}
	if !strings.Contains(got[0].Title, "Asha") {
		t.Fatalf("title = %q, want tenant name", got[0].Title)
	}
}

func TestNotifyThenOpenThenQuietCycle(t *testing.T) {
	backend := newFakeBackend()
	backend.addConversation(threadWith("c1",
		serverMessage("m1", chat.RoleOwner, "Ravi", "Is tomorrow fine for the visit?", baseTime.Add(-2*time.Minute), chat.StatusSent),
	))

	store, poller, notifier := newTestPoller(t, backend, tenantViewer(), baseTime)
	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll: %v", err)
	}

	got := poller.Notifications()
	if len(got) != 1 {
		t.Fatalf("notifications = %d, want 1", len(got))
	}
	if !strings.Contains(got[0].Title, "Ravi") {
		t.Fatalf("title = %q, want the owner's name", got[0].Title)
	}
	if notifier.toastCount() != 1 {
		t.Fatalf("toasts = %d, want 1 for a two-minute-old message", notifier.toastCount())
	}

	panel := NewPanel(store, backend, notifier, testLogger())
	if _, err := panel.Open(context.Background(), "c1"); err != nil {
		t.Fatalf("open: %v", err)
	}

	if err := poller.Poll(context.Background()); err != nil {
		t.Fatalf("poll after open: %v", err)
	}
	if poller.Count() != 0 {
		t.Fatalf("count = %d after reading the thread, want 0", poller.Count())
	}
}
