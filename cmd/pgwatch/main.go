package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"pgnest/internal/client/chatsync"
	"pgnest/internal/client/rest"
	"pgnest/internal/domain/chat"
	"pgnest/internal/infra/config"
	"pgnest/internal/infra/obs"
)

// pgwatch is a headless chat watcher: it signs in, polls the conversation
// list on the configured cadence and surfaces new-message notifications on
// the terminal. Useful for keeping an eye on a PGNest inbox without the web
// app open.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("configuration invalid", "error", err)
		os.Exit(1)
	}

	email := os.Getenv("PGWATCH_EMAIL")
	password := os.Getenv("PGWATCH_PASSWORD")
	if email == "" || password == "" {
		logger.Error("PGWATCH_EMAIL and PGWATCH_PASSWORD are required")
		os.Exit(1)
	}

	client := rest.New(cfg.APIBaseURL, cfg.HTTPTimeout)
	session, err := client.Login(ctx, email, password)
	if err != nil {
		logger.Error("login failed", "error", err, "api", cfg.APIBaseURL)
		os.Exit(1)
	}
	client.SetToken(session.Token)

	viewer := chatsync.Viewer{
		Role:  chat.RoleTenant,
		ID:    session.User.ID,
		Email: session.User.Email,
		Name:  session.User.Name,
	}
	for _, role := range session.User.Roles {
		if role == string(chat.RoleOwner) {
			viewer.Role = chat.RoleOwner
		}
	}
	logger.Info("watching inbox", "user", viewer.Email, "side", string(viewer.Role), "interval", cfg.PollInterval)

	store := chatsync.NewStore(client, viewer, logger)
	poller := chatsync.NewPoller(store, terminalNotifier{out: os.Stdout}, chatsync.PollerConfig{
		Interval:         cfg.PollInterval,
		RecencyWindow:    cfg.RecencyWindow,
		ToastWindow:      cfg.ToastWindow,
		MaxNotifications: cfg.MaxNotifications,
	}, logger)

	go reportBadge(ctx, store, poller, logger)

	if err := poller.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("watcher stopped", "error", err)
		os.Exit(1)
	}
	logger.Info("watcher stopped")
}

// reportBadge logs the unread badge whenever the store changes.
func reportBadge(ctx context.Context, store *chatsync.Store, poller *chatsync.Poller, logger *slog.Logger) {
	updates := store.Subscribe()
	last := -1
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if count := poller.Count(); count != last {
				logger.Info("inbox badge", "unread_notifications", count, "conversations", len(store.Conversations()))
				last = count
			}
		}
	}
}

// terminalNotifier renders alerts as plain lines. Sound and native
// notifications have no terminal equivalent and report as unavailable.
type terminalNotifier struct {
	out *os.File
}

func (n terminalNotifier) Toast(title, body string) {
	fmt.Fprintf(n.out, "\a[%s] %s\n", title, body)
}

func (n terminalNotifier) Sound() error {
	return errors.New("pgwatch: no sound device")
}

func (n terminalNotifier) Native(title, body string) error {
	return errors.New("pgwatch: native notifications unsupported")
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
