package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Gopher0727/FeedbackBot/config"
	"github.com/Gopher0727/FeedbackBot/internal/api"
	"github.com/Gopher0727/FeedbackBot/internal/consumer"
	"github.com/Gopher0727/FeedbackBot/internal/handler"
	"github.com/Gopher0727/FeedbackBot/internal/notifier"
	"github.com/Gopher0727/FeedbackBot/internal/pkg/kafka"
	"github.com/Gopher0727/FeedbackBot/internal/pkg/natsx"
	redisx "github.com/Gopher0727/FeedbackBot/internal/pkg/redis"
	"github.com/Gopher0727/FeedbackBot/internal/repository"
	"github.com/Gopher0727/FeedbackBot/internal/scheduler"
	"github.com/Gopher0727/FeedbackBot/internal/service"
	"github.com/Gopher0727/FeedbackBot/internal/storage"
	"github.com/Gopher0727/FeedbackBot/middleware/jwt"
	logger "github.com/Gopher0727/FeedbackBot/middleware/log"
	"github.com/Gopher0727/FeedbackBot/utils/ratelimit"
	"github.com/Gopher0727/FeedbackBot/utils/snowflake"
)

const (
	configPath      = "./config.toml"
	dedupeTTL       = 48 * time.Hour
	shutdownTimeout = 15 * time.Second
)

func main() {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	appLogger, err := logger.NewLogger(&cfg.Logging)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer appLogger.Close()

	if err := run(cfg, appLogger); err != nil {
		appLogger.Error("service stopped with error", zap.Error(err))
		appLogger.Close()
		os.Exit(1)
	}
}

// closers are run in reverse order on shutdown.
type closers []func()

func (c *closers) add(f func()) { *c = append(*c, f) }

func (c *closers) run() {
	for i := len(*c) - 1; i >= 0; i-- {
		(*c)[i]()
	}
}

func run(cfg *config.Config, zlog *logger.Logger) error {
	var cleanup closers
	defer cleanup.run()

	db, err := storage.Open(&cfg.Database, zlog.Component("storage"))
	if err != nil {
		return err
	}
	cleanup.add(func() { _ = storage.Close(db) })
	store := repository.NewStore(db)

	// Redis is optional: without it statistics are not cached, digests are
	// deduplicated per process and nothing is rate limited.
	var (
		svcOpts = []service.Option{service.WithLogger(zlog.Component("service"))}
		limiter ratelimit.Limiter
	)
	if cfg.Redis.Enabled {
		rc, err := redisx.NewClient(&cfg.Redis)
		if err != nil {
			return err
		}
		cleanup.add(func() { _ = rc.Close() })
		svcOpts = append(svcOpts,
			service.WithStatsCache(redisx.NewStatsCache(rc, cfg.Redis.StatsTTL)),
			service.WithDeduper(redisx.NewDeduper(rc, dedupeTTL)),
		)
		limiter = ratelimit.NewWindowLimiter(rc.GetClient(), zlog.Component("ratelimit"), cfg.RateLimit.FailOpen)
	}

	transport, err := newTransport(cfg, zlog, &cleanup)
	if err != nil {
		return err
	}
	ids, err := snowflake.NewGenerator(cfg.Notifier.NodeID)
	if err != nil {
		return fmt.Errorf("invalid notifier node id: %w", err)
	}
	notify := notifier.NewDispatcher(transport, ids, cfg.Notifier.DispatchTimeout, notifier.WithLogger(zlog.Component("notifier")))

	svc, err := newServices(cfg, store, notify, svcOpts)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Kafka.Enabled {
		events := consumer.NewEventConsumer(svc.feedback, svc.tasks, zlog.Component("events"))
		kc, err := kafka.NewConsumer(&cfg.Kafka, []string{cfg.Kafka.Topics.Events}, events.Handle, zlog.Component("kafka"))
		if err != nil {
			return err
		}
		cleanup.add(func() { _ = kc.Stop() })
		go func() {
			if err := kc.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				zlog.ErrorContext(ctx, "event consumer failed to start", zap.Error(err))
			}
		}()
	}

	if cfg.Scheduler.Enabled {
		sched, err := scheduler.New(&cfg.Scheduler, svc.digest, svc.feedback, zlog.Component("scheduler"))
		if err != nil {
			return err
		}
		sched.Start()
		cleanup.add(func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			_ = sched.Stop(sctx)
		})
	}

	return serve(ctx, cfg, zlog, svc, limiter)
}

// newTransport builds the outbound channel from notifier.driver, a comma
// separated list of "log", "kafka" and "nats". Several drivers fan out.
func newTransport(cfg *config.Config, zlog *logger.Logger, cleanup *closers) (notifier.Notifier, error) {
	var transports notifier.MultiNotifier
	for _, driver := range strings.Split(cfg.Notifier.Driver, ",") {
		switch strings.TrimSpace(driver) {
		case "kafka":
			producer, err := kafka.NewProducer(&cfg.Kafka)
			if err != nil {
				return nil, err
			}
			cleanup.add(func() { _ = producer.Close() })
			transports = append(transports, notifier.NewKafkaNotifier(producer, cfg.Kafka.Topics.Notifications))
		case "nats":
			nc, err := natsx.Connect(cfg.NATS)
			if err != nil {
				return nil, err
			}
			cleanup.add(func() { _ = nc.Close() })
			transports = append(transports, notifier.NewNATSNotifier(nc, cfg.NATS.Subject))
		case "log", "":
			transports = append(transports, notifier.NewLogNotifier(zlog.Component("outbox")))
		default:
			return nil, fmt.Errorf("unknown notifier driver %q", driver)
		}
	}
	if len(transports) == 1 {
		return transports[0], nil
	}
	return transports, nil
}

type services struct {
	feedback service.IFeedbackService
	stats    service.IStatsService
	users    service.IUserService
	admins   service.IAdminService
	tasks    service.ITaskService
	teams    service.ITeamService
	quotes   service.IQuoteService
	digest   service.IDigestService
	auth     service.IAuthService
	mentions service.MentionService
	tokens   *jwt.TokenManager
}

func newServices(cfg *config.Config, store *repository.Store, notify notifier.Notifier, opts []service.Option) (*services, error) {
	ctx := context.Background()
	s := &services{}
	s.stats = service.NewStatsService(store, opts...)
	s.feedback = service.NewFeedbackService(store, s.stats, cfg.Bot, notify, opts...)
	s.users = service.NewUserService(store, opts...)
	s.admins = service.NewAdminService(store, cfg.Bot, notify, opts...)
	s.tasks = service.NewTaskService(store, notify, opts...)
	s.teams = service.NewTeamService(store, notify, opts...)
	s.quotes = service.NewQuoteService(store, opts...)
	s.digest = service.NewDigestService(store, s.tasks, s.teams, s.quotes, notify, opts...)

	s.tokens = jwt.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, cfg.JWT.ExpireHours, cfg.JWT.RefreshHours)
	s.auth = service.NewAuthService(cfg.JWT.APIKey, s.tokens, opts...)

	if cfg.Bot.EnableMentions {
		s.mentions = service.NewRealMentionService(store, opts...)
	} else {
		s.mentions = service.NullMentionService{}
	}

	if err := s.admins.SeedAdmins(ctx); err != nil {
		return nil, err
	}
	if cfg.Bot.SeedDefaultQuotes {
		if _, err := s.quotes.SeedDefaults(ctx); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func serve(ctx context.Context, cfg *config.Config, zlog *logger.Logger, svc *services, limiter ratelimit.Limiter) error {
	gin.SetMode(cfg.Server.Mode)

	mw := api.NewMiddlewareManager(svc.tokens, limiter, zlog.Component("http"), &cfg.RateLimit)

	router := api.NewRouter(mw, api.Handlers{
		Auth:     handler.NewAuthHandler(svc.auth),
		Feedback: handler.NewFeedbackHandler(svc.feedback, svc.stats),
		User:     handler.NewUserHandler(svc.users, svc.admins),
		Task:     handler.NewTaskHandler(svc.tasks),
		Mention:  handler.NewMentionHandler(svc.mentions, service.NewBroadcaster(svc.mentions)),
		Team:     handler.NewTeamHandler(svc.teams, svc.digest),
		Quote:    handler.NewQuoteHandler(svc.quotes),
	})

	srv := &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zlog.InfoContext(ctx, "http server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	zlog.InfoContext(ctx, "shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}
