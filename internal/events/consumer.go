package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/components/metrics"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"
	"github.com/prometheus/client_golang/prometheus"
)

// Handler processes one decoded event. A returned error triggers a retry.
type Handler func(ctx context.Context, event *Event) error

// Consumer routes subscribed topics to handlers
type Consumer struct {
	router     *message.Router
	subscriber message.Subscriber
	logger     *slog.Logger
}

type ConsumerConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	// Registerer receives router metrics when set
	Registerer prometheus.Registerer
}

func NewConsumer(subscriber message.Subscriber, logger *slog.Logger, cfg ConsumerConfig) (*Consumer, error) {
	wmLogger := watermill.NewSlogLogger(logger)

	router, err := message.NewRouter(message.RouterConfig{CloseTimeout: 30 * time.Second}, wmLogger)
	if err != nil {
		return nil, err
	}

	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.InitialInterval <= 0 {
		cfg.InitialInterval = 500 * time.Millisecond
	}

	router.AddMiddleware(
		middleware.Retry{
			MaxRetries:      cfg.MaxRetries,
			InitialInterval: cfg.InitialInterval,
			MaxInterval:     10 * time.Second,
			Multiplier:      2,
			Logger:          wmLogger,
		}.Middleware,
		middleware.Recoverer,
	)

	if cfg.Registerer != nil {
		metrics.NewPrometheusMetricsBuilder(cfg.Registerer, "course_marketplace", "events").
			AddPrometheusRouterMetrics(router)
	}

	return &Consumer{router: router, subscriber: subscriber, logger: logger}, nil
}

// Handle subscribes h to topic. Messages that are not valid events are dropped.
func (c *Consumer) Handle(name, topic string, h Handler) {
	c.router.AddConsumerHandler(name, topic, c.subscriber, func(msg *message.Message) error {
		var event Event
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			c.logger.Error("Dropping malformed event",
				"handler", name,
				"message_uuid", msg.UUID,
				"error", err)
			return nil
		}
		return h(msg.Context(), &event)
	})
}

// Run blocks until ctx is cancelled or the router is closed
func (c *Consumer) Run(ctx context.Context) error {
	return c.router.Run(ctx)
}

// Running is closed once all handlers are subscribed
func (c *Consumer) Running() chan struct{} {
	return c.router.Running()
}

func (c *Consumer) Close() error {
	return c.router.Close()
}
