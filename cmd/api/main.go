package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"go.uber.org/zap"

	"github.com/biovolt/marketplace-api/internal/handlers"
	"github.com/biovolt/marketplace-api/internal/payments"
	"github.com/biovolt/marketplace-api/internal/platform/auth"
	"github.com/biovolt/marketplace-api/internal/platform/config"
	"github.com/biovolt/marketplace-api/internal/platform/mail"
	"github.com/biovolt/marketplace-api/internal/platform/observability"
	pg "github.com/biovolt/marketplace-api/internal/platform/postgres"
	pgrepo "github.com/biovolt/marketplace-api/internal/repositories/postgres"
	"github.com/biovolt/marketplace-api/internal/services"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger, err := observability.NewLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()
	logger = logger.Named("api")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := pg.Open(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	if err := pg.RunMigrations(db, cfg.Database.MigrationsPath); err != nil {
		return err
	}
	logger.Info("database ready")

	productRepo := pgrepo.NewProductRepository(db)
	cartRepo := pgrepo.NewCartRepository(db)
	orderRepo := pgrepo.NewOrderRepository(db)
	eventRepo := pgrepo.NewProcessedEventRepository(db)
	uow := pg.NewUnitOfWork(db)

	provider := payments.NewStripeProvider(cfg.Stripe)
	mailer := mail.New(cfg.SMTP)

	cartSvc := services.NewCartService(services.CartServiceDeps{
		Carts:    cartRepo,
		Products: productRepo,
	})
	orderSvc := services.NewOrderService(services.OrderServiceDeps{
		Carts:      cartSvc,
		CartRepo:   cartRepo,
		Products:   productRepo,
		Orders:     orderRepo,
		UnitOfWork: uow,
	})
	checkoutSvc := services.NewCheckoutService(services.CheckoutServiceDeps{
		Orders:    orderSvc,
		OrderRepo: orderRepo,
		Provider:  provider,
	})
	webhookSvc := services.NewWebhookService(services.WebhookServiceDeps{
		Orders:     orderRepo,
		Events:     eventRepo,
		UnitOfWork: uow,
		Mailer:     mailer,
	})
	invoiceSvc := services.NewInvoiceService()

	authMW := auth.NewMiddleware(auth.NewVerifier(cfg.Auth.JWTSecret))
	limiter := handlers.NewRateLimiter(cfg.RateLimit)
	defer limiter.Stop()

	orderHandler := handlers.NewOrderHandler(orderSvc, invoiceSvc)
	router := handlers.NewRouter(
		handlers.WithLogger(logger),
		handlers.WithAuth(authMW),
		handlers.WithRateLimiter(limiter),
		handlers.WithRootRoutes(handlers.NewHealthHandler(db)),
		handlers.WithPublicRoutes(handlers.NewProductHandler(productRepo)),
		handlers.WithOptionalAuthRoutes(handlers.NewCartHandler(cartSvc)),
		handlers.WithProtectedRoutes(
			orderHandler,
			handlers.NewPaymentHandler(checkoutSvc),
		),
		handlers.WithAdminRoutes(handlers.Registrar(orderHandler.RegisterAdmin)),
		handlers.WithRawRoutes(handlers.NewWebhookHandler(provider, webhookSvc)),
	)

	listener, addr, err := listenWithFallback(cfg.Server, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", zap.String("addr", addr))
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// listenWithFallback binds the configured port, stepping to the next port on
// bind conflicts up to the configured number of attempts.
func listenWithFallback(cfg config.ServerConfig, logger *zap.Logger) (net.Listener, string, error) {
	port, err := strconv.Atoi(cfg.Port)
	if err != nil {
		return nil, "", fmt.Errorf("invalid port %q: %w", cfg.Port, err)
	}

	attempts := cfg.PortFallbacks + 1
	for i := 0; i < attempts; i++ {
		addr := ":" + strconv.Itoa(port+i)
		listener, err := net.Listen("tcp", addr)
		if err == nil {
			if i > 0 {
				logger.Warn("configured port busy, using fallback",
					zap.String("configured", cfg.Port),
					zap.String("addr", addr),
				)
			}
			return listener, addr, nil
		}
		if !isAddrInUse(err) {
			return nil, "", fmt.Errorf("listen %s: %w", addr, err)
		}
		logger.Warn("port in use", zap.String("addr", addr))
	}
	return nil, "", fmt.Errorf("no free port in range %d-%d", port, port+attempts-1)
}

func isAddrInUse(err error) bool {
	return errors.Is(err, syscall.EADDRINUSE)
}
