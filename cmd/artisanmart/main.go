package main

import (
	"context"
	"errors"
	"fmt"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeRez0/artisanmart/internal/adapter/auth"
	"github.com/MikeRez0/artisanmart/internal/adapter/cache"
	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/adapter/gateway/stripe"
	"github.com/MikeRez0/artisanmart/internal/adapter/handler/http"
	"github.com/MikeRez0/artisanmart/internal/adapter/logger"
	"github.com/MikeRez0/artisanmart/internal/adapter/metrics"
	"github.com/MikeRez0/artisanmart/internal/adapter/notify"
	"github.com/MikeRez0/artisanmart/internal/adapter/storage"
	"github.com/MikeRez0/artisanmart/internal/adapter/storage/repository"
	"github.com/MikeRez0/artisanmart/internal/adapter/tracing"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/MikeRez0/artisanmart/internal/core/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	conf, err := config.NewConfig()
	if err != nil {
		fmt.Printf("config error: %s\n", err)
		os.Exit(1)
	}

	log, err := logger.NewLogger(conf.App)
	if err != nil {
		fmt.Printf("error creating log: %s\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = log.Sync()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tp, err := tracing.InitTracer(ctx, conf.Tracing, conf.App.Mode)
	if err != nil {
		log.Error("tracer init error", zap.Error(err))
		return
	}

	db, err := storage.NewDBStorage(ctx, conf.Database)
	if err != nil {
		log.Error("database error", zap.Error(err))
		return
	}
	defer db.Close()

	err = db.RunMigrations()
	if err != nil {
		log.Error("database migration error", zap.Error(err))
		return
	}

	repo, err := repository.NewRepository(db)
	if err != nil {
		log.Error("repository creating error", zap.Error(err))
		return
	}

	tokenService, err := auth.New(conf.Auth)
	if err != nil {
		log.Error("token service creating error", zap.Error(err))
		return
	}

	var idempotency port.IdempotencyStore = cache.NoopIdempotencyStore{}
	if conf.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     conf.Redis.Addr,
			Password: conf.Redis.Password,
		})
		defer func() { _ = rdb.Close() }()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Error("redis ping error", zap.Error(err))
			return
		}
		idempotency = cache.NewRedisIdempotencyStore(rdb, conf.Redis.IdempotencyTTL)
	} else {
		log.Info("redis is not configured, webhook dedup relies on order state only")
	}

	m := metrics.New()

	sender, err := notify.NewSender(conf.Notify, log.Named("Notify"))
	if err != nil {
		log.Error("notification sender creating error", zap.Error(err))
		return
	}
	dispatcher := notify.NewDispatcher(sender, conf.Notify, m, log.Named("Dispatcher"))
	dispatcher.Start()

	gateway, err := stripe.New(conf.Gateway, log.Named("Gateway"))
	if err != nil {
		log.Error("payment gateway creating error", zap.Error(err))
		return
	}

	pricing, err := service.PricingPolicyByName(conf.Orders.PricingPolicy)
	if err != nil {
		log.Error("pricing policy error", zap.Error(err))
		return
	}
	transitions, err := domain.ShippingTransitionsByName(conf.Orders.ShippingTransitions)
	if err != nil {
		log.Error("shipping transitions error", zap.Error(err))
		return
	}

	orderService, err := service.NewOrderService(repo, repo, repo, dispatcher, service.OrderConfig{
		Pricing:     pricing,
		Transitions: transitions,
		AdminEmail:  conf.Orders.AdminEmail,
	}, log.Named("OrderService"))
	if err != nil {
		log.Error("order service creating error", zap.Error(err))
		return
	}

	paymentService, err := service.NewPaymentService(repo, repo, gateway,
		domain.GatewayCredential{SecretKey: conf.Gateway.SecretKey}, log.Named("PaymentService"))
	if err != nil {
		log.Error("payment service creating error", zap.Error(err))
		return
	}

	reconcileService, err := service.NewReconcileService(repo, repo, repo, gateway, idempotency, dispatcher,
		service.ReconcileConfig{
			WebhookSecret: conf.Gateway.WebhookSecret,
			AdminEmail:    conf.Orders.AdminEmail,
		}, log.Named("ReconcileService"))
	if err != nil {
		log.Error("reconcile service creating error", zap.Error(err))
		return
	}

	orderHandler, err := http.NewOrderHandler(orderService, paymentService, log.Named("Order handler"))
	if err != nil {
		log.Error("order handler creating error", zap.Error(err))
		return
	}
	paymentHandler, err := http.NewPaymentHandler(reconcileService, paymentService, m, log.Named("Payment handler"))
	if err != nil {
		log.Error("payment handler creating error", zap.Error(err))
		return
	}

	r, err := http.NewRouter(conf.HTTP, tokenService, m, db, orderHandler, paymentHandler, log.Named("Router"))
	if err != nil {
		log.Error("router creating error", zap.Error(err))
		return
	}

	srv := r.Server()
	serveErr := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("address", srv.Addr))
		serveErr <- srv.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, nethttp.ErrServerClosed) {
			log.Error("router serve error", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown error", zap.Error(err))
	}
	if err := dispatcher.Stop(shutdownCtx); err != nil {
		log.Error("notification dispatcher stop error", zap.Error(err))
	}
	if err := tp.Shutdown(shutdownCtx); err != nil {
		log.Error("tracer shutdown error", zap.Error(err))
	}
}
