package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/egannguyen/secondhand-market/internal/config"
	delivery "github.com/egannguyen/secondhand-market/internal/delivery/http"
	"github.com/egannguyen/secondhand-market/internal/media"
	"github.com/egannguyen/secondhand-market/internal/messaging"
	"github.com/egannguyen/secondhand-market/internal/messaging/kafka"
	"github.com/egannguyen/secondhand-market/internal/messaging/watermill"
	"github.com/egannguyen/secondhand-market/internal/payment"
	"github.com/egannguyen/secondhand-market/internal/repository"
	"github.com/egannguyen/secondhand-market/internal/repository/memory"
	"github.com/egannguyen/secondhand-market/internal/repository/mongodb"
	"github.com/egannguyen/secondhand-market/internal/repository/postgres"
	redisrepo "github.com/egannguyen/secondhand-market/internal/repository/redis"
	"github.com/egannguyen/secondhand-market/internal/service"
	"github.com/egannguyen/secondhand-market/internal/telemetry"
)

// repositories groups the storage backends selected by configuration.
type repositories struct {
	products      repository.ProductRepository
	carts         repository.CartRepository
	orders        repository.OrderRepository
	payments      repository.PaymentRepository
	events        repository.EventStore
	verifications repository.VerificationRepository
	users         repository.UserRepository
	notifications repository.NotificationRepository
	idempotency   repository.IdempotencyStore
	closers       []func() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "err", err)
		os.Exit(1)
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx, cfg); err != nil {
		slog.Error("Server exited", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	// --- Tracing ---
	shutdownTracing, err := telemetry.Setup(ctx, telemetry.Options{
		ServiceName: cfg.Telemetry.ServiceName,
		Exporter:    cfg.Telemetry.Exporter,
		Endpoint:    cfg.Telemetry.Endpoint,
	})
	if err != nil {
		return err
	}
	defer func() {
		flushCtx, flushCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer flushCancel()
		if err := shutdownTracing(flushCtx); err != nil {
			slog.Warn("Failed to flush traces", "err", err)
		}
	}()

	// --- Storage ---
	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	// --- Messaging ---
	broker, err := openBroker(cfg.Messaging)
	if err != nil {
		return err
	}
	defer broker.Close()

	// --- Media ---
	var uploader media.Uploader = media.Passthrough{}
	if cfg.Media.CloudinaryURL != "" {
		uploader, err = media.NewCloudinaryUploader(cfg.Media.CloudinaryURL)
		if err != nil {
			return err
		}
	}

	// --- Services ---
	pricing, err := cfg.Pricing.Policy()
	if err != nil {
		return err
	}
	gateway := payment.NewSimulatedGateway(repos.idempotency, payment.SimulatedConfig{
		DeclinePrefix: cfg.Payment.DeclinePrefix,
		TTL:           cfg.Payment.IdempotencyTTL,
	})

	services := delivery.Services{
		Auth:    service.NewAuthService(repos.users, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL),
		Catalog: service.NewCatalogService(repos.products),
		Cart:    service.NewCartService(repos.carts, repos.products),
		Orders: service.NewOrderService(repos.orders, repos.carts, repos.users, repos.events, broker, pricing,
			service.WithPruneKeep(cfg.Storage.PruneKeep)),
		Payments:      service.NewPaymentService(repos.orders, repos.payments, gateway, broker),
		Settlement:    service.NewSettlementService(repos.orders, broker),
		Verifications: service.NewVerificationService(repos.verifications, repos.users, repos.events, uploader, broker),
		Notifications: service.NewNotificationService(repos.notifications),
	}

	if cfg.Auth.AdminPassword != "" {
		if err := services.Auth.SeedAdmin(ctx, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
			return err
		}
	}
	if cfg.Server.SeedCatalog {
		if err := services.Catalog.Seed(ctx); err != nil {
			return err
		}
	}
	if err := services.Notifications.Start(ctx, broker, cfg.Messaging.GroupID+"-notifications"); err != nil {
		return err
	}

	// --- HTTP API ---
	handler := delivery.NewHandler(services)
	httpServer := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler.Routes(cfg.Telemetry.ServiceName, cfg.Server.CORSOrigin),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server starting", "addr", cfg.Server.Addr,
			"storage", cfg.Storage.Driver, "messaging", cfg.Messaging.Driver)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return err
	}

	slog.Info("Shutting down...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	return httpServer.Shutdown(shutdownCtx)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		h = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		h = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(h))
}

func (r *repositories) close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		if err := r.closers[i](); err != nil {
			slog.Warn("Failed to close resource", "err", err)
		}
	}
}

func openRepositories(ctx context.Context, cfg *config.Config) (_ *repositories, err error) {
	repos := &repositories{}
	defer func() {
		if err != nil {
			repos.close()
		}
	}()

	switch cfg.Storage.Driver {
	case "postgres":
		db, dbErr := postgres.InitDB(ctx, cfg.Storage.DatabaseURL)
		if dbErr != nil {
			return nil, dbErr
		}
		repos.closers = append(repos.closers, db.Close)
		repos.products = postgres.NewProductRepository(db)
		repos.carts = postgres.NewCartRepository(db)
		repos.orders = postgres.NewOrderRepository(db)
		repos.payments = postgres.NewPaymentRepository(db)
		repos.events = postgres.NewEventStore(db)
		repos.verifications = postgres.NewVerificationRepository(db)
		repos.users = postgres.NewUserRepository(db)
	default:
		store := memory.NewStore(memory.WithMaxOrders(cfg.Storage.MaxOrders))
		repos.products = store.Products()
		repos.carts = store.Carts()
		repos.orders = store.Orders()
		repos.payments = store.Payments()
		repos.events = store.Events()
		repos.verifications = store.Verifications()
		repos.users = store.Users()
		repos.notifications = store.Notifications()
	}

	if cfg.Storage.RedisURL != "" {
		client, redisErr := redisrepo.NewClient(ctx, cfg.Storage.RedisURL)
		if redisErr != nil {
			return nil, redisErr
		}
		repos.closers = append(repos.closers, client.Close)
		repos.idempotency = redisrepo.NewIdempotencyStore(client, "")
	} else {
		repos.idempotency = memory.NewIdempotencyStore()
	}

	if cfg.Notification.MongoURI != "" {
		client, mongoErr := mongodb.Connect(ctx, cfg.Notification.MongoURI)
		if mongoErr != nil {
			return nil, mongoErr
		}
		repos.closers = append(repos.closers, func() error {
			disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return client.Disconnect(disconnectCtx)
		})
		repos.notifications, err = mongodb.NewNotificationRepository(ctx, client, cfg.Notification.MongoDatabase)
		if err != nil {
			return nil, err
		}
	} else if repos.notifications == nil {
		repos.notifications = memory.NewStore().Notifications()
	}

	return repos, nil
}

func openBroker(cfg config.MessagingConfig) (messaging.Broker, error) {
	switch cfg.Driver {
	case "kafka":
		return kafka.NewKafkaBroker(cfg.Brokers), nil
	case "watermill-kafka":
		return watermill.NewKafkaBroker(cfg.Brokers)
	default:
		return watermill.NewGoChannelBroker(), nil
	}
}
