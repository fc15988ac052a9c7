package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/MikeRez0/artisanmart/internal/core/utils"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type ReconcileConfig struct {
	WebhookSecret string
	AdminEmail    string
}

// ReconcileService applies verified gateway webhooks to orders and stock.
type ReconcileService struct {
	orders      port.OrderRepository
	reviews     port.ReviewRepository
	gateway     port.PaymentGateway
	idempotency port.IdempotencyStore
	notify      *notifier
	secret      string
	logger      *zap.Logger
	tracer      trace.Tracer
}

func NewReconcileService(orders port.OrderRepository, users port.UserRepository,
	reviews port.ReviewRepository, gateway port.PaymentGateway, idempotency port.IdempotencyStore,
	queue port.NotificationQueue, conf ReconcileConfig, logger *zap.Logger) (*ReconcileService, error) {
	if conf.WebhookSecret == "" {
		return nil, errors.New("webhook secret is empty")
	}

	return &ReconcileService{
		orders:      orders,
		reviews:     reviews,
		gateway:     gateway,
		idempotency: idempotency,
		notify: &notifier{
			queue:      queue,
			users:      users,
			adminEmail: conf.AdminEmail,
			logger:     logger,
		},
		secret: conf.WebhookSecret,
		logger: logger,
		tracer: otel.Tracer("service/reconcile"),
	}, nil
}

// HandleWebhook verifies and applies one webhook delivery. A nil error means
// the delivery should be acknowledged.
func (s *ReconcileService) HandleWebhook(ctx context.Context,
	payload []byte, signature string) (domain.ReconcileOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "ReconcileService.HandleWebhook")
	defer span.End()

	event, err := s.gateway.VerifyWebhook(payload, signature, s.secret)
	if err != nil {
		utils.Warn(ctx, s.logger, "Webhook rejected", zap.Error(err))
		if !errors.Is(err, domain.ErrSignatureVerification) && !errors.Is(err, domain.ErrBadRequest) {
			err = fmt.Errorf("%w: %w", domain.ErrSignatureVerification, err)
		}
		return domain.OutcomeRejected, err
	}

	span.SetAttributes(
		attribute.String("event_id", event.ID),
		attribute.String("event_type", string(event.Type)),
	)
	log := s.logger.With(zap.String("event_id", event.ID), zap.String("event_type", string(event.Type)))

	kind := event.Kind()
	if kind == domain.PaymentEventUnknown {
		utils.Info(ctx, log, "Webhook event ignored")
		return domain.OutcomeIgnored, nil
	}

	orderID, err := event.OrderID()
	if err != nil {
		utils.Warn(ctx, log, "Webhook without order reference", zap.Error(err))
		return domain.OutcomeRejected, err
	}
	log = log.With(zap.Stringer("order_id", orderID))

	claimed, err := s.idempotency.Claim(ctx, event.ID)
	if err != nil {
		utils.Warn(ctx, log, "Idempotency claim failed", zap.Error(err))
	} else if !claimed {
		utils.Info(ctx, log, "Webhook event already handled")
		return domain.OutcomeDuplicate, nil
	}
	// a failed delivery gives up its claim so the gateway retry is applied
	release := func() {
		if !claimed {
			return
		}
		if err := s.idempotency.Release(ctx, event.ID); err != nil {
			utils.Warn(ctx, log, "Idempotency release failed", zap.Error(err))
		}
	}

	outcome := domain.OutcomeIgnored
	order, err := s.orders.UpdateOrder(ctx, orderID,
		func(ctx context.Context, o *domain.Order, stock port.StockWriter) error {
			outcome = o.ApplyPaymentEvent(kind)
			if outcome != domain.OutcomeApplied || kind != domain.PaymentEventPaid {
				return nil
			}
			for _, d := range o.StockDecrements() {
				if err := stock.DecrementStock(ctx, d.ProductID, d.Quantity); err != nil {
					return fmt.Errorf("product %s: %w", d.ProductID, err)
				}
			}
			return nil
		})
	if err != nil {
		span.RecordError(err)
		switch {
		case errors.Is(err, domain.ErrDataNotFound):
			utils.Warn(ctx, log, "Webhook for unknown order")
			release()
			return domain.OutcomeRejected, err
		case errors.Is(err, domain.ErrInsufficientStock):
			outcome, err := s.review(ctx, log, orderID, event, err)
			if err != nil {
				release()
			}
			return outcome, err
		}
		span.SetStatus(codes.Error, "update order")
		utils.Error(ctx, log, "Apply webhook", zap.Error(err))
		release()
		return domain.OutcomeFailed, err
	}

	utils.Info(ctx, log, "Webhook applied", zap.String("outcome", string(outcome)),
		zap.String("payment_status", string(order.PaymentStatus)),
		zap.String("shipping_status", string(order.ShippingStatus)))

	if outcome == domain.OutcomeApplied {
		switch kind {
		case domain.PaymentEventPaid:
			s.notify.orderPaid(ctx, order)
		case domain.PaymentEventFailed:
			s.notify.paymentFailed(ctx, order)
		}
	}

	return outcome, nil
}

// review records a delivery whose effects could not be applied without
// breaking stock invariants. The order transaction is already rolled back.
func (s *ReconcileService) review(ctx context.Context, log *zap.Logger,
	orderID uuid.UUID, event *domain.PaymentEvent, cause error) (domain.ReconcileOutcome, error) {
	fault := fmt.Errorf("%w: %w", domain.ErrIntegrityFault, cause)
	utils.Error(ctx, log, "Webhook needs manual review", zap.Error(fault))

	review := &domain.PaymentReview{
		ID:        uuid.New(),
		OrderID:   orderID,
		EventID:   event.ID,
		EventType: event.Type,
		Reason:    fault.Error(),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.reviews.CreateReview(ctx, review); err != nil {
		utils.Error(ctx, log, "Record payment review", zap.Error(err))
		return domain.OutcomeFailed, fmt.Errorf("%w: %w", domain.ErrReviewRecordingFailure, err)
	}

	return domain.OutcomeNeedsReview, nil
}
