package app

import (
	"context"
	"fmt"
	"sync"

	"github.com/acme/chat-webhook-gateway/internal/config"
	"github.com/acme/chat-webhook-gateway/internal/infra/db"
	"github.com/acme/chat-webhook-gateway/internal/infra/redis"
	"github.com/acme/chat-webhook-gateway/internal/queue"
	"github.com/acme/chat-webhook-gateway/internal/repository"
	pgrepo "github.com/acme/chat-webhook-gateway/internal/repository/postgres"
	scyllarepo "github.com/acme/chat-webhook-gateway/internal/repository/scylla"
	adminsvc "github.com/acme/chat-webhook-gateway/internal/service/admin"
	chatsvc "github.com/acme/chat-webhook-gateway/internal/service/chat"
	"github.com/acme/chat-webhook-gateway/internal/service/session"
	"github.com/acme/chat-webhook-gateway/internal/status"
	"github.com/acme/chat-webhook-gateway/internal/webhook"
	"github.com/acme/chat-webhook-gateway/pkg/logger"
)

// Container wires together shared infrastructure dependencies.
type Container struct {
	Config *config.Config
	Logger *logger.Logger

	Postgres *db.Postgres
	Scylla   *db.Scylla
	Redis    *redis.Client
	Kafka    *queue.Kafka

	// lazily initialised components
	components struct {
		once         sync.Once
		repositories *repositories
		services     *services
		webhooks     *webhooks
		statusParts  *statusParts
	}
}

type repositories struct {
	Conversations repository.ConversationRepository
	UsageStats    repository.UsageStatsRepository
	Attempts      repository.CallStore
}

type services struct {
	Chat     *chatsvc.Service
	Admin    *adminsvc.Service
	Sessions *session.Store
}

type webhooks struct {
	Client    *webhook.Client
	Publisher *queue.EventPublisher
}

type statusParts struct {
	Tracker *status.Tracker
	Monitor *status.Monitor
}

// Build constructs a container for the given configuration path.
func Build(ctx context.Context, configPath string) (*Container, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	lg, err := logger.New(cfg.App.Env)
	if err != nil {
		return nil, err
	}

	pg, err := db.NewPostgres(ctx, cfg.Postgres)
	if err != nil {
		return nil, fmt.Errorf("bootstrap postgres: %w", err)
	}

	scylla, err := db.NewScylla(cfg.Scylla)
	if err != nil {
		return nil, fmt.Errorf("bootstrap scylla: %w", err)
	}

	redisClient, err := redis.NewClient(cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("bootstrap redis: %w", err)
	}

	kafka, err := queue.NewKafka(cfg.Kafka)
	if err != nil {
		return nil, fmt.Errorf("bootstrap kafka: %w", err)
	}

	container := &Container{
		Config:   cfg,
		Logger:   lg,
		Postgres: pg,
		Scylla:   scylla,
		Redis:    redisClient,
		Kafka:    kafka,
	}

	return container, nil
}

func (c *Container) initComponents() {
	c.components.once.Do(func() {
		repos := &repositories{
			Conversations: pgrepo.NewConversationRepository(c.Postgres.DB()),
			UsageStats:    pgrepo.NewUsageStatsRepository(c.Postgres.DB()),
			Attempts:      scyllarepo.NewCallStore(c.Scylla.Session()),
		}

		hooks := &webhooks{
			Client:    webhook.NewClient(c.Config.Webhooks.APIKey),
			Publisher: queue.NewEventPublisher(c.Kafka, c.Config.Kafka.CallEventTopic),
		}

		tracker := status.NewTracker()
		parts := &statusParts{
			Tracker: tracker,
			Monitor: status.NewMonitor(c.Config.Status, tracker, c.Logger.Named("status")),
		}

		sessions := session.NewStore(c.Redis.Inner(), c.Config.Session)

		svcs := &services{
			Sessions: sessions,
			Chat: chatsvc.NewService(
				c.Config.Webhooks,
				hooks.Client,
				sessions,
				tracker,
				repos.Attempts,
				hooks.Publisher,
				c.Logger.Named("chat"),
			),
			Admin: adminsvc.NewService(
				c.Config.Webhooks,
				hooks.Client,
				repos.Conversations,
				repos.UsageStats,
				sessions,
				c.Logger.Named("admin"),
			),
		}

		c.components.repositories = repos
		c.components.webhooks = hooks
		c.components.statusParts = parts
		c.components.services = svcs
	})
}

// Repositories exposes initialized repositories.
func (c *Container) Repositories() *repositories {
	c.initComponents()
	return c.components.repositories
}

// Services exposes initialized services.
func (c *Container) Services() *services {
	c.initComponents()
	return c.components.services
}

// Webhooks exposes the webhook client and the call event publisher.
func (c *Container) Webhooks() *webhooks {
	c.initComponents()
	return c.components.webhooks
}

// Status exposes the connection tracker and its monitor.
func (c *Container) Status() *statusParts {
	c.initComponents()
	return c.components.statusParts
}

// Close releases all held resources.
func (c *Container) Close(ctx context.Context) error {
	var errs []error
	if c.components.webhooks != nil && c.components.webhooks.Publisher != nil {
		if err := c.components.webhooks.Publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("event publisher close: %w", err))
		}
	}
	if c.Kafka != nil {
		if err := c.Kafka.Close(); err != nil {
			errs = append(errs, fmt.Errorf("kafka close: %w", err))
		}
	}
	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			errs = append(errs, fmt.Errorf("redis close: %w", err))
		}
	}
	if c.Scylla != nil {
		if err := c.Scylla.Close(); err != nil {
			errs = append(errs, fmt.Errorf("scylla close: %w", err))
		}
	}
	if c.Postgres != nil {
		if err := c.Postgres.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("postgres close: %w", err))
		}
	}
	if c.Logger != nil {
		c.Logger.Sync()
	}
	if len(errs) > 0 {
		return fmt.Errorf("close errors: %v", errs)
	}
	return nil
}

// EnsureTopics ensures required Kafka topics exist.
func (c *Container) EnsureTopics(ctx context.Context) error {
	if c.Config.Kafka.CallEventTopic == "" {
		return fmt.Errorf("kafka: call event topic not configured")
	}
	return c.Kafka.EnsureTopics(ctx, []string{c.Config.Kafka.CallEventTopic}, 12, 1)
}
