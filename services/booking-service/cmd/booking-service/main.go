package main

import (
	"context"
	"net/http"
	"time"

	"github.com/venuebook/venuebook/libs/config"
	"github.com/venuebook/venuebook/libs/db"
	"github.com/venuebook/venuebook/libs/grpcx"
	"github.com/venuebook/venuebook/libs/httpx"
	"github.com/venuebook/venuebook/libs/kafkax"
	otelx "github.com/venuebook/venuebook/libs/otel"
	"github.com/venuebook/venuebook/libs/outbox"
	"github.com/venuebook/venuebook/libs/runtime"
	"github.com/venuebook/venuebook/libs/venuev1"
	"github.com/venuebook/venuebook/services/booking-service/internal/availability"
	"github.com/venuebook/venuebook/services/booking-service/internal/consumer"
	"github.com/venuebook/venuebook/services/booking-service/internal/handlers"
	"github.com/venuebook/venuebook/services/booking-service/internal/inbox"
	"github.com/venuebook/venuebook/services/booking-service/internal/schedule"
	"github.com/venuebook/venuebook/services/booking-service/internal/storage"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	service := config.String("SERVICE_NAME", "booking-service")
	port, err := config.Port("PORT", "8083")
	if err != nil {
		panic(err)
	}
	logger := runtime.NewLogger(service)

	ctx, stop := runtime.SignalContext()
	defer stop()

	otelShutdown, err := otelx.Setup(ctx, otelx.ConfigFromEnv(service))
	if err != nil {
		logger.Error("otel setup failed", "err", err)
	} else {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = otelShutdown(shutdownCtx)
		}()
	}

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: int32(config.Int("DB_MAX_CONNS", 10))})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		panic(err)
	}
	defer pool.Close()

	venueConn, err := grpcx.Dial(config.String("VENUE_GRPC_ADDR", "localhost:9084"), grpcx.DialOptions{})
	if err != nil {
		logger.Error("venue-service dial failed", "err", err)
		panic(err)
	}
	defer venueConn.Close()

	rdb := newRedis(logger)
	if rdb != nil {
		defer rdb.Close()
	}

	source := newScheduleSource(logger, venuev1.NewVenueServiceClient(venueConn), rdb)
	repo := storage.NewBookingRepository(pool)
	location, err := time.LoadLocation(config.String("VENUE_TIMEZONE", "UTC"))
	if err != nil {
		logger.Error("invalid VENUE_TIMEZONE", "err", err)
		panic(err)
	}
	resolver := availability.NewResolver(source, source, source, repo, availability.Options{
		DefaultLocation:   location,
		MaxBookingMinutes: config.Int("MAX_BOOKING_MINUTES", availability.DefaultMaxBookingMinutes),
		Suggest: availability.SuggestOptions{
			Step:    time.Duration(config.Int("SUGGEST_STEP_MINUTES", 15)) * time.Minute,
			Horizon: time.Duration(config.Int("SUGGEST_HORIZON_DAYS", 14)) * 24 * time.Hour,
			Max:     config.Int("SUGGEST_MAX", availability.DefaultSuggestMax),
		},
	})

	brokers := config.String("KAFKA_BROKERS", "")
	outboxRepo := outbox.NewRepository()
	outboxPublisher := outbox.NewPublisher(pool, outboxRepo, logger, outbox.PublisherConfig{
		Brokers:   brokers,
		PollEvery: config.Duration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		BatchSize: config.Int("OUTBOX_BATCH_SIZE", 50),
	})
	go outboxPublisher.Run(ctx)

	if cache, ok := source.(*schedule.Cache); ok && brokers != "" {
		scheduleConsumer := consumer.New(logger, inbox.NewRepository(pool), consumer.Config{
			Brokers: brokers,
			GroupID: config.String("KAFKA_GROUP_ID", "booking-service"),
			Topic:   schedule.EventScheduleChanged,
		}, schedule.InvalidateHandler(cache, logger))
		go scheduleConsumer.Run(ctx)
	}

	availabilityHandler := handlers.NewAvailabilityHandler(resolver, logger, config.Int("SUGGEST_MAX", availability.DefaultSuggestMax))
	bookingHandler := handlers.NewBookingHandler(repo, outboxRepo, func(b availability.BookingStore) handlers.Checker {
		return resolver.WithBookings(b)
	}, logger)

	mux := runtime.NewBaseMuxWithReady(
		runtime.ReadyCheck{Name: "db", Check: db.ReadyCheck(pool)},
		runtime.ReadyCheck{Name: "kafka", Check: kafkax.ReadyCheck(brokers)},
	)
	availabilityHandler.Register(mux, newRateLimit(logger, rdb))
	bookingHandler.Register(mux)

	httpHandler := httpx.Chain(mux,
		httpx.WithRequestID,
		httpx.WithAccessLog(logger),
		httpx.WithCORS(httpx.CORSPolicy{
			AllowedOrigins: config.List("CORS_ALLOWED_ORIGINS", ""),
			AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"Content-Type", "Idempotency-Key", httpx.RequestIDHeader},
			MaxAge:         10 * time.Minute,
		}),
		httpx.WithBodyLimit(1<<20),
	)
	httpHandler = otelhttp.NewHandler(httpHandler, "booking")
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           httpHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server error", "err", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "err", err)
	}
	logger.Info("http server stopped")
}
