package chatsync

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"pgnest/internal/domain/chat"
)

const (
	DefaultPollInterval     = 5 * time.Second
	DefaultRecencyWindow    = 30 * time.Minute
	DefaultToastWindow      = 5 * time.Minute
	DefaultMaxNotifications = 10

	notificationBodyLimit = 80
)

// Notifier receives user-facing alerts. Implementations decide how a toast,
// a sound, or a native notification manifests; Sound and Native may refuse
// (muted, permission denied) and the poller shrugs it off.
type Notifier interface {
	Toast(title, body string)
	Sound() error
	Native(title, body string) error
}

// PollerConfig bounds one polling loop. Zero values fall back to defaults.
type PollerConfig struct {
	Interval         time.Duration
	RecencyWindow    time.Duration
	ToastWindow      time.Duration
	MaxNotifications int
}

func (c PollerConfig) withDefaults() PollerConfig {
	if c.Interval <= 0 {
		c.Interval = DefaultPollInterval
	}
	if c.RecencyWindow <= 0 {
		c.RecencyWindow = DefaultRecencyWindow
	}
	if c.ToastWindow <= 0 {
		c.ToastWindow = DefaultToastWindow
	}
	if c.MaxNotifications <= 0 {
		c.MaxNotifications = DefaultMaxNotifications
	}
	return c
}

// Poller periodically refreshes the shared store and rebuilds the viewer's
// notification list from it. Each cycle replaces the list wholesale, so a
// message read elsewhere disappears on the next tick without bookkeeping.
type Poller struct {
	store    *Store
	notifier Notifier
	cfg      PollerConfig
	logger   *slog.Logger

	// Clock is swappable for tests.
	Clock func() time.Time

	mu            sync.RWMutex
	notifications []Notification
	seen          map[string]struct{}
}

func NewPoller(store *Store, notifier Notifier, cfg PollerConfig, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		store:    store,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		logger:   logger,
		Clock:    time.Now,
		seen:     make(map[string]struct{}),
	}
}

// Run polls until the context is cancelled. The first cycle fires
// immediately; fetch failures are logged and the stale list is kept.
func (p *Poller) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()

	if err := p.Poll(ctx); err != nil {
		p.logger.Warn("notification poll failed", "error", err)
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := p.Poll(ctx); err != nil {
				p.logger.Warn("notification poll failed", "error", err)
			}
		}
	}
}

// Poll executes a single cycle: refresh the store, derive candidates, cap the
// list, and alert on entries that were not present last cycle.
func (p *Poller) Poll(ctx context.Context) error {
	conversations, err := p.store.Refresh(ctx)
	if err != nil {
		return err
	}

	now := p.now()
	counterparty := p.store.Viewer().Role.Counterparty()
	candidates := make([]Notification, 0)
	for _, conv := range conversations {
		for _, msg := range conv.Messages {
			if msg.Sender != counterparty || msg.Status == chat.StatusRead {
				continue
			}
			if now.Sub(msg.Timestamp) > p.cfg.RecencyWindow {
				continue
			}
			candidates = append(candidates, buildNotification(conv, msg))
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Timestamp.After(candidates[j].Timestamp)
	})

	kept := candidates
	if len(kept) > p.cfg.MaxNotifications {
		kept = kept[:p.cfg.MaxNotifications]
	}

	p.mu.Lock()
	var fresh *Notification
	for i := range kept {
		if _, ok := p.seen[kept[i].ID]; ok {
			continue
		}
		if now.Sub(kept[i].Timestamp) > p.cfg.ToastWindow {
			continue
		}
		if fresh == nil || kept[i].Timestamp.After(fresh.Timestamp) {
			fresh = &kept[i]
		}
	}
	p.seen = make(map[string]struct{}, len(candidates))
	for _, n := range candidates {
		p.seen[n.ID] = struct{}{}
	}
	p.notifications = kept
	p.mu.Unlock()

	if fresh != nil && p.notifier != nil {
		p.notifier.Toast(fresh.Title, fresh.Body)
		if err := p.notifier.Sound(); err != nil {
			p.logger.Debug("notification sound unavailable", "error", err)
		}
		if err := p.notifier.Native(fresh.Title, fresh.Body); err != nil {
			p.logger.Debug("native notification unavailable", "error", err)
		}
	}
	return nil
}

// Notifications returns the current list, most recent first.
func (p *Poller) Notifications() []Notification {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]Notification, len(p.notifications))
	copy(out, p.notifications)
	return out
}

// Count backs the unread badge.
func (p *Poller) Count() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.notifications)
}

func (p *Poller) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

func buildNotification(conv Conversation, msg Message) Notification {
	sender := msg.SenderName
	if sender == "" {
		if msg.Sender == chat.RoleOwner {
			sender = "Owner"
		} else {
			sender = "Tenant"
		}
	}
	return Notification{
		ID:             "ntf-" + msg.ID,
		ConversationID: conv.ID,
		MessageID:      msg.ID,
		Title:          "New message from " + sender,
		Body:           truncate(msg.Text, notificationBodyLimit),
		SenderName:     sender,
		PropertyTitle:  conv.PropertyTitle,
		Timestamp:      msg.Timestamp,
	}
}

func truncate(text string, limit int) string {
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-1]) + "…"
}
