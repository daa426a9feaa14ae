package bootstrap

import (
	"context"

	"rma-engine-be/internal/config"
	"rma-engine-be/internal/controller"
	"rma-engine-be/internal/handler"
	"rma-engine-be/internal/pkg/logger"
	"rma-engine-be/internal/pkg/mailer"
	"rma-engine-be/internal/pkg/serverutils"
	"rma-engine-be/internal/repository/memory"
	"rma-engine-be/internal/repository/unitofwork"
	"rma-engine-be/internal/service"
	"rma-engine-be/internal/websocket"
	"rma-engine-be/pkg/events"
	pktNats "rma-engine-be/pkg/nats"
	"rma-engine-be/pkg/rma/analytics"
	rmaEvents "rma-engine-be/pkg/rma/events"
	"rma-engine-be/pkg/rma/lifecycle"
	"rma-engine-be/pkg/rma/notification"
	"rma-engine-be/pkg/rma/numbering"
	"rma-engine-be/pkg/rma/policy"
	"rma-engine-be/pkg/rma/resolution"
	"rma-engine-be/pkg/rma/shipping"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Options selects the parts a binary needs.
type Options struct {
	// Dispatch starts the notification dispatcher. Only one process kind
	// should consume the notification durable.
	Dispatch bool
	// Live starts the websocket hub.
	Live bool
}

type Container struct {
	Logger     *logger.ZapLogger
	UoWFactory unitofwork.RepositoryFactory
	Manager    *lifecycle.Manager
	Policies   *policy.Store

	// Controllers
	RMAController controller.IRMAController
	LiveHandler   *handler.LiveHandler

	WebSocketHub *websocket.Hub
	Dispatcher   *notification.Dispatcher

	cancel  context.CancelFunc
	closers []func()
}

// NewContainer wires the service. db may be nil when cfg selects the memory store.
func NewContainer(db *gorm.DB, cfg *config.Config, opts Options) *Container {
	ctx, cancel := context.WithCancel(context.Background())
	c := &Container{cancel: cancel}

	// 1. Core Facades
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.IsProduction())
	c.Logger = sysLogger
	c.closers = append(c.closers, func() { _ = sysLogger.Sync() })

	if cfg.Database.Driver == config.DriverMemory || db == nil {
		sysLogger.Warn("BOOTSTRAP", "Using the in-memory store, data is not persisted", nil)
		c.UoWFactory = memory.NewRepositoryFactory(memory.NewStore())
	} else {
		c.UoWFactory = unitofwork.NewRepositoryFactory(db)
	}

	// 2. Infrastructure
	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Failed to parse Redis URL, using direct Addr", map[string]interface{}{"error": err.Error()})
		opt = &redis.Options{Addr: cfg.App.RedisURL}
	}
	rdb := redis.NewClient(opt)
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		sysLogger.Warn("BOOTSTRAP", "Redis unavailable, running single-instance", map[string]interface{}{"error": err.Error()})
		_ = rdb.Close()
		rdb = nil
	} else {
		c.closers = append(c.closers, func() { _ = rdb.Close() })
	}

	// Event bus: NATS JetStream, or the in-process bus when NATS is down.
	var publisher events.Publisher
	var subscriber events.Subscriber
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err == nil {
		natsSub, subErr := pktNats.NewSubscriber(cfg.App.NatsURL)
		if subErr == nil {
			publisher, subscriber = natsPub, natsSub
			c.closers = append(c.closers, natsSub.Close, natsPub.Close)
		} else {
			natsPub.Close()
			err = subErr
		}
	}
	if publisher == nil {
		sysLogger.Warn("BOOTSTRAP", "NATS unavailable, using in-process event bus", map[string]interface{}{"error": err.Error()})
		bus := events.NewChannelBus(func(subject string, err error) {
			sysLogger.Error("EVENTS", "Event handler failed", map[string]interface{}{"subject": subject, "error": err.Error()})
		})
		publisher, subscriber = bus, bus
		c.closers = append(c.closers, bus.Close)
	}

	// 3. Domain
	policies := policy.NewStore(memory.NewPolicyCache(cfg.RMA.PolicyCacheTTL, cfg.RMA.PolicyCacheCleanup), sysLogger)
	c.Policies = policies

	c.Manager = lifecycle.NewManager(lifecycle.Dependencies{
		Policies:    policies,
		Labels:      shipping.NewLocalLabelProvider(cfg.RMA.LabelBaseURL),
		Sequencer:   numbering.NewRedisSequencer(rdb, sysLogger),
		Settlement:  resolution.NewLocalGateway(),
		Publisher:   rmaEvents.NewBusPublisher(publisher, sysLogger),
		Logger:      sysLogger,
		MaxRetries:  cfg.RMA.MaxTransitionRetries,
		CheckOrders: cfg.RMA.EnforceOrderChecks,
	})
	aggregator := analytics.NewAggregator(cfg.RMA.AnalyticsBatchSize, sysLogger)

	// 4. Live feed & notifications
	var live notification.LiveSink
	if opts.Live {
		liveLogger := logger.NewIsolatedLogger(cfg.App.LiveLogFilePath)
		c.WebSocketHub = websocket.NewHub(rdb, liveLogger)
		go c.WebSocketHub.Run(ctx)
		live = c.WebSocketHub
	}

	if opts.Dispatch {
		var mail mailer.IEmailService
		if cfg.SMTP.Host != "" {
			mail = mailer.NewEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.Email, cfg.SMTP.Password, cfg.SMTP.Email, sysLogger)
		} else {
			sysLogger.Warn("BOOTSTRAP", "SMTP_HOST not set, e-mail notifications disabled", nil)
		}
		c.Dispatcher = notification.NewDispatcher(c.UoWFactory, policies, mail, live, sysLogger)
		if err := c.Dispatcher.Start(subscriber); err != nil {
			sysLogger.Error("BOOTSTRAP", "Failed to start notification dispatcher", map[string]interface{}{"error": err.Error()})
		}
	}

	// 5. Transport
	auth := serverutils.NewJwtMiddleware(cfg.App.JWTSecret)
	rmaService := service.NewRMAService(c.UoWFactory, c.Manager, aggregator, policies)
	c.RMAController = controller.NewRMAController(rmaService, auth)
	if c.WebSocketHub != nil {
		c.LiveHandler = handler.NewLiveHandler(c.WebSocketHub, auth, sysLogger)
	}

	return c
}

// Close stops background work and releases connections in reverse order.
func (c *Container) Close() {
	c.cancel()
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}
