package http

import (
	"strings"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.uber.org/zap"
)

const authHeaderKey = "Authorization"
const authType = "Bearer"
const userPayloadKey = "user_payload"

func authCheck(tokenService port.TokenService) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.Request.Header.Get(authHeaderKey)
		if len(header) == 0 {
			handleAbort(ctx, domain.ErrEmptyAuthorizationHeader)
			return
		}

		words := strings.Fields(header)
		if len(words) != 2 {
			handleAbort(ctx, domain.ErrInvalidAuthorizationHeader)
			return
		}
		if !strings.EqualFold(words[0], authType) {
			handleAbort(ctx, domain.ErrInvalidAuthorizationType)
			return
		}
		payload, err := tokenService.VerifyToken(words[1])
		if err != nil {
			handleAbort(ctx, err)
			return
		}

		ctx.Set(userPayloadKey, payload)

		ctx.Next()
	}
}

func artistOnly() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if !getActor(ctx).IsArtist() {
			handleAbort(ctx, domain.ErrForbidden)
			return
		}
		ctx.Next()
	}
}

func getAuthPayload(ctx *gin.Context) *port.TokenPayload {
	return ctx.MustGet(userPayloadKey).(*port.TokenPayload)
}

func getActor(ctx *gin.Context) domain.AuthenticatedUser {
	p := getAuthPayload(ctx)
	return domain.AuthenticatedUser{ID: p.UserID, Role: p.Role}
}

func requestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		start := time.Now()
		ctx.Next()

		fields := []zap.Field{
			zap.String("method", ctx.Request.Method),
			zap.String("path", ctx.Request.URL.Path),
			zap.Int("status", ctx.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if len(ctx.Errors) > 0 {
			fields = append(fields, zap.String("errors", ctx.Errors.String()))
		}
		logger.Debug("request", fields...)
	}
}

// traceContext continues an upstream trace from W3C traceparent headers.
func traceContext() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		reqCtx := otel.GetTextMapPropagator().Extract(ctx.Request.Context(),
			propagation.HeaderCarrier(ctx.Request.Header))
		ctx.Request = ctx.Request.WithContext(reqCtx)
		ctx.Next()
	}
}
