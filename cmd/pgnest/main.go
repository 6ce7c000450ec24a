package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	authsvc "pgnest/internal/app/services/auth"
	"pgnest/internal/app/services/messaging"
	domainauth "pgnest/internal/domain/auth"
	"pgnest/internal/domain/chat"
	"pgnest/internal/domain/property"
	"pgnest/internal/infra/broker/kafka"
	"pgnest/internal/infra/config"
	"pgnest/internal/infra/db/mongo"
	ginserver "pgnest/internal/infra/http/gin"
	"pgnest/internal/infra/obs"
	"pgnest/internal/infra/security"
	"pgnest/internal/infra/storage/memory"
	redisstore "pgnest/internal/infra/storage/redis"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load()

	env := getenv("APP_ENV", "dev")
	logger := obs.NewLogger(env)

	cfg, err := config.Load()
	if err != nil {
		logger.Warn("using fallback configuration", "error", err)
		cfg.Env = env
		cfg.HTTPAddr = getenv("HTTP_ADDR", ":8080")
	}
	if cfg.HTTPAddr == "" {
		cfg.HTTPAddr = ":8080"
	}

	app, cleanup, err := buildApplication(ctx, cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	server := ginserver.NewServer(cfg, obs.Middleware{Logger: logger}, obs.HealthHandlers{
		Ready: app.ready,
	}, app.handlers)

	fixturesPath := cfg.FixturesPath
	if fixturesPath == "" {
		fixturesPath = defaultPropertyFixturesPath()
	}
	if err := app.loadPropertyFixtures(ctx, fixturesPath, logger); err != nil {
		logger.Warn("property fixtures load failed", "error", err, "path", fixturesPath)
	}
	if cfg.SeedDemo {
		if err := app.seedDemo(ctx, logger); err != nil {
			logger.Warn("demo seed failed", "error", err)
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "env", cfg.Env)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	handlers   ginserver.Handlers
	properties property.Repository
	messaging  *messaging.Service
	auth       *authsvc.Service
	ready      func() error
}

// buildApplication wires storage, services and handlers. Mongo, Redis and
// Kafka are all optional: without them the server runs on in-memory state,
// which is what the demo mode uses.
func buildApplication(ctx context.Context, cfg config.Config, logger *slog.Logger) (application, func(), error) {
	var conversations chat.Repository = memory.NewConversationRepository()
	var properties property.Repository = memory.NewPropertyRepository()
	var sessions domainauth.SessionStore = memory.NewSessionStore()
	users := memory.NewUserRepository()
	ready := func() error { return nil }
	var closers []func()

	if cfg.MongoURI != "" {
		client, err := mongo.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return application{}, nil, fmt.Errorf("mongo: %w", err)
		}
		conversations = mongo.NewConversationRepository(client.DB)
		properties = mongo.NewPropertyRepository(client.DB)
		ready = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
		logger.Info("mongo storage enabled", "database", cfg.MongoDB)
	}

	if cfg.RedisAddr != "" {
		store, err := redisstore.NewSessionStore(cfg.RedisAddr)
		if err != nil {
			return application{}, nil, fmt.Errorf("redis: %w", err)
		}
		sessions = store
		logger.Info("redis session store enabled", "addr", cfg.RedisAddr)
	}

	var events messaging.Producer
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, nil)
		if err != nil {
			logger.Warn("kafka unavailable, chat events disabled", "error", err)
		} else {
			events = producer
			closers = append(closers, func() {
				if err := producer.Close(); err != nil {
					logger.Error("kafka close failed", "error", err)
				}
			})
			logger.Info("kafka producer enabled", "brokers", strings.Join(cfg.KafkaBrokers, ","))
		}
	}

	messagingSvc := &messaging.Service{
		Conversations: conversations,
		Properties:    properties,
		Events:        events,
		TopicPrefix:   cfg.KafkaTopicPrefix,
		Logger:        logger,
	}
	authSvc := &authsvc.Service{
		Users:      users,
		Sessions:   sessions,
		Passwords:  security.BcryptHasher{},
		Tokens:     security.RandomTokenGenerator{},
		SessionTTL: cfg.SessionTTL,
		Logger:     logger,
	}

	app := application{
		handlers: ginserver.Handlers{
			Chat:           ginserver.ChatHandler{Service: messagingSvc, Logger: logger},
			Property:       ginserver.PropertyHandler{Repo: properties, Logger: logger},
			Auth:           ginserver.AuthHandler{Service: authSvc, Logger: logger},
			AuthMiddleware: ginserver.AuthMiddleware{Service: authSvc, Logger: logger}.Handle,
		},
		properties: properties,
		messaging:  messagingSvc,
		auth:       authSvc,
		ready:      ready,
	}
	cleanup := func() {
		for _, closeFn := range closers {
			closeFn()
		}
	}
	return app, cleanup, nil
}

func (a application) loadPropertyFixtures(ctx context.Context, path string, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("property fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures []propertyFixture
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	now := time.Now()
	imported := 0
	for _, fx := range fixtures {
		prop, err := property.New(property.CreateParams{
			ID:          property.PropertyID(fx.ID),
			Owner:       property.OwnerID(fx.OwnerID),
			OwnerName:   fx.OwnerName,
			OwnerPhone:  fx.OwnerPhone,
			Title:       fx.Title,
			Description: fx.Description,
			Address: property.Address{
				Line1:    fx.Address.Line1,
				Locality: fx.Address.Locality,
				City:     fx.Address.City,
				State:    fx.Address.State,
				Pincode:  fx.Address.Pincode,
			},
			MonthlyRent:   fx.MonthlyRent,
			DepositMonths: fx.DepositMonths,
			Sharing:       property.SharingType(fx.Sharing),
			Gender:        property.GenderPreference(fx.Gender),
			FoodIncluded:  fx.FoodIncluded,
			Amenities:     append([]string(nil), fx.Amenities...),
			HouseRules:    append([]string(nil), fx.HouseRules...),
			AvailableBeds: fx.AvailableBeds,
			ThumbnailURL:  fx.ThumbnailURL,
			Rating:        fx.Rating,
			Now:           now,
		})
		if err != nil {
			logger.Error("fixture invalid", "property_id", fx.ID, "error", err)
			continue
		}
		if err := a.properties.Save(ctx, prop); err != nil {
			logger.Error("cannot store fixture property", "property_id", fx.ID, "error", err)
			continue
		}
		imported++
	}
	logger.Info("property fixtures imported", "count", imported)
	return nil
}

// seedDemo provisions a demo owner, a demo tenant and one open thread so the
// chat surfaces have something to show right after boot.
func (a application) seedDemo(ctx context.Context, logger *slog.Logger) error {
	owner, err := a.auth.Register(ctx, authsvc.RegisterParams{
		Email:    "ravi@pgnest.dev",
		Name:     "Ravi Kumar",
		Phone:    "+91 98450 12345",
		Password: "pgnest-demo",
		IsOwner:  true,
	})
	if err != nil {
		return fmt.Errorf("seed owner: %w", err)
	}
	if _, err := a.auth.Register(ctx, authsvc.RegisterParams{
		Email:    "asha@pgnest.dev",
		Name:     "Asha Verma",
		Password: "pgnest-demo",
	}); err != nil {
		return fmt.Errorf("seed tenant: %w", err)
	}

	props, err := a.properties.ByOwner(ctx, property.OwnerID(string(owner.User.ID)))
	if err != nil || len(props) == 0 {
		// Fixtures carry their own owner ids; adopt the first listing so the
		// demo owner has a thread to answer.
		all, searchErr := a.properties.Search(ctx, property.SearchParams{Limit: 1})
		if searchErr != nil || len(all) == 0 {
			logger.Info("no properties available, skipping demo conversation")
			return nil
		}
		props = all
	}

	conv, err := a.messaging.Start(ctx, messaging.StartParams{
		PropertyID:  string(props[0].ID),
		TenantEmail: "asha@pgnest.dev",
		TenantName:  "Asha Verma",
		Text:        "Hi, is this PG still available for next month?",
	})
	if err != nil {
		return fmt.Errorf("seed conversation: %w", err)
	}
	logger.Info("demo data seeded", "conversation_id", string(conv.ID))
	return nil
}

type propertyFixture struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"ownerId"`
	OwnerName     string         `json:"ownerName"`
	OwnerPhone    string         `json:"ownerPhone"`
	Title         string         `json:"title"`
	Description   string         `json:"description"`
	Address       fixtureAddress `json:"address"`
	MonthlyRent   int64          `json:"monthlyRent"`
	DepositMonths int            `json:"depositMonths"`
	Sharing       string         `json:"sharing"`
	Gender        string         `json:"gender"`
	FoodIncluded  bool           `json:"foodIncluded"`
	Amenities     []string       `json:"amenities"`
	HouseRules    []string       `json:"houseRules"`
	AvailableBeds int            `json:"availableBeds"`
	ThumbnailURL  string         `json:"thumbnailUrl"`
	Rating        float64        `json:"rating"`
}

type fixtureAddress struct {
	Line1    string `json:"line1"`
	Locality string `json:"locality"`
	City     string `json:"city"`
	State    string `json:"state"`
	Pincode  string `json:"pincode"`
}

func defaultPropertyFixturesPath() string {
	candidates := []string{
		filepath.Join("data", "properties.json"),
		filepath.Join("..", "data", "properties.json"),
	}
	for _, candidate := range candidates {
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	return candidates[0]
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
