package main

import (
	"context"   // shutdown and migration deadlines
	"errors"    // errors.Is on server and consumer exits
	"net/http"  // http.Server with explicit timeouts
	"os/signal" // SIGINT / SIGTERM handling
	"syscall"
	"time"

	"github.com/google/uuid"                        // request ids
	"github.com/labstack/echo/v4"                   // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware" // recover, request id, CORS
	"github.com/sirupsen/logrus"                    // structured logging

	"github.com/iliyamo/atypikhouse/internal/config"       // environment config
	"github.com/iliyamo/atypikhouse/internal/database"     // MySQL pool and schema
	"github.com/iliyamo/atypikhouse/internal/handler"      // HTTP handlers
	"github.com/iliyamo/atypikhouse/internal/logging"      // app and booking loggers
	"github.com/iliyamo/atypikhouse/internal/middleware"   // auth, cache, rate limit
	"github.com/iliyamo/atypikhouse/internal/notification" // email dispatcher
	"github.com/iliyamo/atypikhouse/internal/payment"      // sandbox / Stripe gateway
	"github.com/iliyamo/atypikhouse/internal/queue"        // RabbitMQ publisher and consumer
	"github.com/iliyamo/atypikhouse/internal/repository"   // data access
	"github.com/iliyamo/atypikhouse/internal/router"       // route registration
	"github.com/iliyamo/atypikhouse/internal/service"      // booking rules
	"github.com/iliyamo/atypikhouse/internal/storage"      // uploaded files
	"github.com/iliyamo/atypikhouse/internal/validation"   // request validator
)

func main() {
	cfg := config.Load()                            // load environment config
	log := logging.New(cfg.Log.Level, cfg.Log.File) // JSON logger, rotated file when set

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.WithError(err).Fatal("database connect failed")
	}
	defer db.Close()
	if cfg.DBAutoMigrate {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		err := database.Migrate(ctx, db)
		cancel()
		if err != nil {
			log.WithError(err).Fatal("schema migration failed")
		}
		log.Info("schema applied")
	}

	// Redis is optional: without it the cache and rate limiter pass through.
	cacheCfg := config.LoadCacheConfig()
	rlCfg := config.LoadRateLimitConfig()
	rdb, err := config.NewRedisClient(config.LoadRedisConfig())
	if err != nil {
		log.WithError(err).Warn("redis unavailable; cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	files, err := storage.NewLocal(cfg.UploadDir, "/media")
	if err != nil {
		log.WithError(err).Fatal("upload dir init failed")
	}

	// ctx is cancelled on SIGINT / SIGTERM; it also stops the consumer
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	publisher := queue.NewPublisher(cfg.Queue.URL, cfg.Queue.Name, log)
	if cfg.Queue.ConsumerEnabled {
		startConsumer(ctx, cfg, log)
	}

	// repositories
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	props := repository.NewPropertyRepo(db)
	avail := repository.NewAvailabilityRepo(db)
	bookings := repository.NewBookingRepo(db)
	reviews := repository.NewReviewRepo(db)
	messages := repository.NewMessageRepo(db)
	ref := repository.NewReferenceRepo(db)
	stats := repository.NewStatsRepo(db)

	gateway := payment.New(payment.Config{
		Sandbox:         cfg.Payment.Sandbox,
		StripeSecretKey: cfg.Payment.StripeSecretKey,
		StripeAPIURL:    cfg.Payment.StripeAPIURL,
	})
	bookingSvc := service.NewBookingService(service.SQLStores(db), service.NewSQLTxRunner(db), gateway, log)

	purge := func(ctx context.Context) error { return middleware.PurgeCache(ctx, rdb, cacheCfg.Prefix) }

	authH := handler.NewAuthHandler(cfg, users, tokens, publisher, log)
	userH := &handler.UserHandler{Users: users, Files: files, Log: log}
	propH := &handler.PropertyHandler{
		Props: props, Avail: avail, Reviews: reviews, Ref: ref, Users: users,
		Bookings: bookingSvc, Files: files, Purge: purge, Log: log,
	}
	refH := &handler.ReferenceHandler{Ref: ref, Log: log}
	bookH := &handler.BookingHandler{
		Service: bookingSvc, Bookings: bookings, Props: props, Users: users, Events: publisher, Log: log,
	}
	revH := &handler.ReviewHandler{Reviews: reviews, Bookings: bookings, Purge: purge, Log: log}
	msgH := &handler.MessageHandler{
		Messages: messages, Users: users, Props: props, Bookings: bookings, Events: publisher, Log: log,
	}
	adminH := &handler.AdminHandler{
		Users: users, Props: props, Ref: ref, Stats: stats, Events: publisher, Purge: purge, Log: log,
	}

	// Echo instance and global middleware
	e := echo.New()
	e.HideBanner = true
	e.Validator = validation.New()
	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(echomw.CORS())
	e.Use(middleware.RequestLogger(log))

	// routes; the api group carries the general token bucket
	router.RegisterRoutes(e, db, cfg.UploadDir)
	api := e.Group("/api", middleware.NewTokenBucket(rlCfg, rdb, log))
	router.RegisterAuth(api, authH, userH, cfg.JWTSecret, middleware.NewTokenBucket(rlCfg.Auth(), rdb, log))
	router.RegisterCatalogue(api, propH, refH, middleware.NewRedisCache(cacheCfg, rdb))
	router.RegisterOwner(api, propH, cfg.JWTSecret)
	router.RegisterBookings(api, bookH, revH, msgH, cfg.JWTSecret)
	router.RegisterAdmin(api, adminH, revH, cfg.JWTSecret)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           e,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	go func() {
		log.WithFields(logrus.Fields{"addr": srv.Addr, "env": cfg.Env}).Info("listening")
		if err := e.StartServer(srv); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done() // block until a signal arrives
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("forced shutdown")
	}
	log.Info("server stopped")
}

// startConsumer runs the notification consumer until ctx is done.  The
// booking log and the SMTP mailer live only on this side of the queue.
func startConsumer(ctx context.Context, cfg config.Config, log *logrus.Logger) {
	var mailer notification.Sender = notification.LogMailer{Log: log}
	if cfg.Mail.Host != "" {
		mailer = notification.NewSMTPMailer(cfg.Mail.Host, cfg.Mail.Port, cfg.Mail.User, cfg.Mail.Pass, cfg.Mail.From, log)
	}
	dispatcher, err := notification.NewDispatcher(mailer, logging.NewBookingLogger(cfg.Log.BookingLog), log, cfg.PublicBaseURL)
	if err != nil {
		log.WithError(err).Fatal("notification init failed")
	}
	consumer := queue.NewConsumer(cfg.Queue.URL, cfg.Queue.Name, dispatcher, log)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.WithError(err).Error("event consumer stopped")
		}
	}()
}
