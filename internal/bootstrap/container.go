package bootstrap

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"crm-access-be/internal/cache"
	"crm-access-be/internal/config"
	"crm-access-be/internal/controller"
	"crm-access-be/internal/mapper"
	"crm-access-be/internal/metrics"
	"crm-access-be/internal/pkg/logger"
	"crm-access-be/internal/pkg/mailer"
	"crm-access-be/internal/pkg/serverutils"
	"crm-access-be/internal/repository/unitofwork"
	"crm-access-be/internal/service"
	"crm-access-be/pkg/access"
	adminEvents "crm-access-be/pkg/admin/events"
	"crm-access-be/pkg/admin/feature"
	"crm-access-be/pkg/admin/override"
	"crm-access-be/pkg/admin/principal"
	"crm-access-be/pkg/admin/tier"

	pktNats "crm-access-be/pkg/nats"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const devJwtSecret = "dev-secret"

type Container struct {
	// Controllers
	AuthController    controller.IAuthController
	FeatureController controller.IFeatureController
	AdminController   controller.IAdminController

	// Session chains: Session requires a resolved principal, OptionalSession
	// lets anonymous callers through with a nil principal.
	Session         []fiber.Handler
	OptionalSession []fiber.Handler

	// Background Services (Exposed for main.go to run)
	AccessService       service.IAccessService
	InvalidationService service.IInvalidationService

	SysLogger   logger.ILogger
	DecisionLog logger.ILogger

	natsSub    *pktNats.Subscriber
	natsPub    *pktNats.Publisher
	redis      *redis.Client
	pubSub     *gochannel.GoChannel
	uowFactory unitofwork.RepositoryFactory
	engine     *access.Engine
}

func NewContainer(db *gorm.DB, cfg *config.Config) *Container {
	// 1. Core Facades
	uowFactory := unitofwork.NewRepositoryFactory(db)
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.IsProduction())
	decisionLog := logger.NewIsolatedLogger(cfg.Access.DecisionLogPath)

	emailService := mailer.NewEmailService(
		cfg.SMTP.Host,
		cfg.SMTP.Port,
		cfg.SMTP.Email,
		cfg.SMTP.Password,
		cfg.SMTP.SenderName,
		cfg.App.ClientURL,
	)

	engine := access.NewEngine(access.Config{BreakGlassEmails: cfg.Access.BreakGlassEmails})
	if n := len(cfg.Access.BreakGlassEmails); n > 0 {
		log.Printf("[WARN] %d break-glass account(s) configured", n)
	}

	accessMetrics := metrics.NewAccessMetrics(prometheus.DefaultRegisterer, metrics.Config{
		ServiceName: "crm-access",
		Environment: cfg.App.Environment,
	})

	// 2. Event Bus
	pubSub := gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: 256},
		watermill.NewStdLogger(false, false),
	)

	// 3. Infrastructure
	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	}

	// Redis (shared effective-feature cache)
	rdb := newRedisClient(cfg.App.RedisURL)
	var remote cache.EffectiveStore
	if rdb != nil {
		remote = cache.NewRedisEffectiveStore(rdb, cfg.Access.EffectiveTTL)
	}

	// 4. Services
	accessService := service.NewAccessService(
		uowFactory,
		engine,
		cache.NewDecisionCache(cfg.Access.CheckCacheTTL),
		cache.NewEffectiveCache(cfg.Access.EffectiveTTL, remote),
		accessMetrics,
		sysLogger,
		decisionLog,
		service.AccessServiceConfig{
			IsProduction: cfg.App.IsProduction(),
			SignInPath:   cfg.Access.SignInPath,
			UpgradePath:  cfg.Access.UpgradePath,
		},
	)
	invalidationService := service.NewInvalidationService(pubSub, accessService, accessMetrics)

	// Admin Domain Components
	adminEventPublisher := adminEvents.NewNatsPublisher(natsPub, sysLogger)
	adminService := service.NewAccessAdminService(
		uowFactory,
		engine,
		sysLogger,
		decisionLog,
		invalidationService,
		adminEventPublisher,
		emailService,
		feature.NewManager(),
		tier.NewManager(),
		override.NewManager(nil),
		principal.NewManager(sysLogger),
		nil,
	)

	// 5. Session middleware
	secret := cfg.Auth.JwtSecret
	if secret == "" {
		if cfg.App.IsProduction() {
			log.Fatal("[FATAL] JWT_SECRET must be set in production")
		}
		log.Printf("[WARN] JWT_SECRET not set, using development secret")
		secret = devJwtSecret
	}
	optionalSession := []fiber.Handler{
		serverutils.OptionalJwtMiddleware(secret),
		serverutils.PrincipalMiddleware(accessService),
	}
	session := []fiber.Handler{
		optionalSession[0],
		optionalSession[1],
		serverutils.RequireAuth(),
	}

	// 6. Controllers
	return &Container{
		AuthController:    controller.NewAuthController(accessService),
		FeatureController: controller.NewFeatureController(accessService, engine),
		AdminController:   controller.NewAdminController(adminService, accessService),

		Session:         session,
		OptionalSession: optionalSession,

		AccessService:       accessService,
		InvalidationService: invalidationService,

		SysLogger:   sysLogger,
		DecisionLog: decisionLog,

		natsSub:    natsSub,
		natsPub:    natsPub,
		redis:      rdb,
		pubSub:     pubSub,
		uowFactory: uowFactory,
		engine:     engine,
	}
}

func newRedisClient(url string) *redis.Client {
	if url == "" {
		log.Println("[INFO] REDIS_URL not set, shared effective cache disabled")
		return nil
	}
	opt, err := redis.ParseURL(url)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: url,
		}
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v (shared effective cache disabled)", err)
		_ = rdb.Close()
		return nil
	}
	return rdb
}

// Start runs the background consumers: the in-process invalidation bus and,
// when NATS is reachable, access events from every instance.
func (c *Container) Start(ctx context.Context) error {
	if err := c.InvalidationService.Consume(ctx); err != nil {
		return err
	}
	if c.natsSub != nil {
		subject := pktNats.SubjectPrefix + ">"
		if err := c.natsSub.Subscribe(subject, durableName(), c.InvalidationService.HandleEvent); err != nil {
			log.Printf("[WARN] Failed to subscribe to access events: %v", err)
		}
	}
	c.logCatalogDrift(ctx)
	return nil
}

// durableName gives every instance its own consumer so each one sees every
// event. NATS durable names may not contain dots or wildcards.
func durableName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	host = strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '/', '\\':
			return '_'
		}
		return r
	}, host)
	return "crm-access-" + host
}

// logCatalogDrift warns when the static mirror and the tier table disagree.
func (c *Container) logCatalogDrift(ctx context.Context) {
	uow := c.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.TierFeatureRepository().FindAll(ctx)
	if err != nil {
		c.SysLogger.Warn("ACCESS", "Could not load tier table for drift check", map[string]interface{}{"error": err.Error()})
		return
	}
	drift := c.engine.Catalog().Diff(mapper.NewTierFeatureMapper().ToCatalogRows(rows))
	if len(drift) == 0 {
		return
	}
	c.SysLogger.Warn("ACCESS", "Static catalog mirror drifts from tier table", map[string]interface{}{
		"catalog_version": access.CatalogVersion,
		"entries":         len(drift),
	})
}

func (c *Container) Close() {
	if c.natsSub != nil {
		c.natsSub.Close()
	}
	if c.natsPub != nil {
		c.natsPub.Close()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	_ = c.pubSub.Close()
	_ = c.SysLogger.Sync()
	_ = c.DecisionLog.Sync()
}
