package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rookgm/creditmart/config"
	"github.com/rookgm/creditmart/internal/auth"
	handler "github.com/rookgm/creditmart/internal/handler/http"
	"github.com/rookgm/creditmart/internal/logger"
	"github.com/rookgm/creditmart/internal/paystack"
	"github.com/rookgm/creditmart/internal/repository"
	"github.com/rookgm/creditmart/internal/repository/postgres"
	"github.com/rookgm/creditmart/internal/service"
	"github.com/rookgm/creditmart/internal/stripepay"
	"github.com/rookgm/creditmart/internal/worker"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {

	// create new config
	cfg, err := config.New(os.Args[1:])
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}

	// initialize logger
	if err := logger.Initialize(cfg.LogLevel); err != nil {
		log.Fatalf("Error initializing logger: %v", err)
	}
	defer logger.Log.Sync()

	// create context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// initialize database
	db, err := postgres.New(ctx, cfg.DatabaseDSN)
	if err != nil {
		logger.Log.Fatal("Error initializing database", zap.Error(err))
	}
	defer db.Close()

	// migrate database
	if err := db.Migrate(); err != nil {
		logger.Log.Fatal("Error migrating database", zap.Error(err))
	}

	// dependency injection
	// repositories
	orderRepo := repository.NewOrderRepository(db)
	customerRepo := repository.NewCustomerRepository(db)
	eventRepo := repository.NewEventRepository(db)
	packRepo := repository.NewPackRepository(db)

	// payment processors
	paystackClient := paystack.NewClient(cfg.PaystackBaseURL, cfg.PaystackSecretKey, cfg.PaystackVerifyTimeout)
	stripeClient := stripepay.NewClient(cfg.StripeSecretKey, cfg.StripeSuccessURL, cfg.StripeCancelURL, nil)

	if cfg.PaystackSecretKey == "" {
		logger.Log.Warn("PAYSTACK_SECRET_KEY is not set, paystack webhooks will be rejected")
	}
	if cfg.StripeWebhookSecret == "" {
		logger.Log.Warn("STRIPE_WEBHOOK_SECRET is not set, stripe webhooks will be rejected")
	}

	// reconciliation
	creditService := service.NewCreditService(customerRepo)
	reconcileService := service.NewReconcileService(eventRepo, orderRepo, creditService, paystackClient,
		paystack.NewWebhook(cfg.PaystackSecretKey),
		stripepay.NewWebhook(cfg.StripeWebhookSecret),
	)
	webhookHandler := handler.NewWebhookHandler(reconcileService)
	verifyHandler := handler.NewVerifyHandler(reconcileService)

	// checkout
	checkoutService := service.NewCheckoutService(packRepo, orderRepo, customerRepo, paystackClient, stripeClient, cfg.PaystackCallbackURL)
	checkoutHandler := handler.NewCheckoutHandler(checkoutService)

	// balance
	balanceService := service.NewBalanceService(customerRepo)
	balanceHandler := handler.NewBalanceHandler(balanceService)

	router := chi.NewRouter()

	router.Use(chimw.RequestID)
	router.Use(chimw.Recoverer)
	router.Use(logger.RequestLogger)

	router.Get("/api/health", handler.Health(db))

	router.Post("/api/webhooks/paystack", webhookHandler.Paystack())
	router.Post("/api/webhooks/stripe", webhookHandler.Stripe())

	router.Get("/api/payments/verify", verifyHandler.Verify())
	router.Post("/api/payments/verify", verifyHandler.Verify())

	router.Post("/api/checkout/paystack", checkoutHandler.Paystack())
	router.Post("/api/checkout/stripe", checkoutHandler.Stripe())

	router.Get("/api/credits", balanceHandler.GetCredits())
	router.Post("/api/credits/use", balanceHandler.UseCredits())

	// admin
	token, err := auth.NewAuthToken(cfg.AuthTokenKey)
	if err != nil {
		logger.Log.Warn("AUTH_TOKEN_KEY is not set, admin routes are disabled", zap.Error(err))
	} else {
		adminService := service.NewAdminService(service.AdminConfig{
			User:         cfg.AdminUser,
			PasswordHash: cfg.AdminPasswordHash,
		}, orderRepo, creditService, token)
		adminHandler := handler.NewAdminHandler(adminService, cfg.AdminCookieSecure)

		router.Post("/api/admin/login", adminHandler.Login())

		// routes that require authentication
		router.Group(func(group chi.Router) {
			group.Use(handler.AuthMiddleware(token))
			group.Use(handler.RequireRole(service.RoleAdmin))
			group.Get("/api/admin/anomalies", adminHandler.Anomalies())
			group.Get("/api/admin/purchases", adminHandler.Purchases())
			group.Post("/api/admin/orders/{orderID}/recredit", adminHandler.Recredit())
		})
	}

	// pending orders sweeper
	if cfg.PaystackSecretKey != "" && cfg.SweepInterval > 0 {
		sweepService := service.NewSweepService(orderRepo, reconcileService, cfg.SweepMinAge)
		go worker.NewPendingSweeper(sweepService, cfg.SweepInterval).Run(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Log.Error("Error shutting down server", zap.Error(err))
		}
	}()

	logger.Log.Info("Running server", zap.String("addr", cfg.ServerAddr))

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Log.Fatal("Error starting server", zap.Error(err))
	}
}
