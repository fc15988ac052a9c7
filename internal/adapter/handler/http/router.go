package http

import (
	"context"
	"net/http"
	"time"

	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/adapter/metrics"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Pinger reports whether a backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

type Router struct {
	*gin.Engine
	conf *config.HTTP
}

func NewRouter(
	conf *config.HTTP,
	tokenService port.TokenService,
	m *metrics.Metrics,
	db Pinger,
	orderHandler *OrderHandler,
	paymentHandler *PaymentHandler,
	logger *zap.Logger) (*Router, error) {

	router := gin.New()
	router.ContextWithFallback = true
	router.Use(gin.Recovery(), traceContext(), requestLogger(logger), m.Middleware())

	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/healthz", func(ctx *gin.Context) {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := db.Ping(pingCtx); err != nil {
			logger.Warn("health check failed", zap.Error(err))
			ctx.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		ctx.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api")
	{
		api.POST("/orders/payment-event-callback", paymentHandler.PaymentEventCallback)

		authed := api.Group("")
		authed.Use(authCheck(tokenService))

		orders := authed.Group("/orders")
		{
			orders.POST("", orderHandler.CreateOrder)
			orders.GET("/mine", orderHandler.ListMyOrders)
			orders.GET("/selling", artistOnly(), orderHandler.ListSellingOrders)
			orders.GET("/:id", orderHandler.GetOrder)
			orders.PUT("/:id", artistOnly(), orderHandler.UpdateShippingStatus)
			orders.POST("/:id/payment-link", orderHandler.CreatePaymentLink)
		}

		products := authed.Group("/products")
		{
			products.POST("/:id/gateway-registration", artistOnly(), paymentHandler.RegisterProduct)
		}
	}

	return &Router{Engine: router, conf: conf}, nil
}

// Server wraps the router in an http.Server for graceful shutdown.
func (r *Router) Server() *http.Server {
	return &http.Server{
		Addr:              r.conf.HostString,
		Handler:           r.Engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
