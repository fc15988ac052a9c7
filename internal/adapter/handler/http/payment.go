package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const signatureHeader = "Stripe-Signature"

// maxWebhookBody matches the gateway's documented payload ceiling.
const maxWebhookBody = 64 << 10

type WebhookRecorder interface {
	WebhookEvent(eventType string, outcome domain.ReconcileOutcome)
}

type PaymentHandler struct {
	Handler
	reconcile port.ReconcileService
	payments  port.PaymentService
	recorder  WebhookRecorder
}

func NewPaymentHandler(reconcile port.ReconcileService, payments port.PaymentService,
	recorder WebhookRecorder, logger *zap.Logger) (*PaymentHandler, error) {
	if recorder == nil {
		return nil, errors.New("webhook recorder is nil")
	}
	return &PaymentHandler{
		Handler:   *NewHandler(logger),
		reconcile: reconcile,
		payments:  payments,
		recorder:  recorder,
	}, nil
}

type WebhookResp struct {
	Status domain.ReconcileOutcome `json:"status"`
}

type GatewayRegistrationResp struct {
	ProductID          string `json:"product_id"`
	ExternalProductRef string `json:"external_product_ref"`
	ExternalPriceRef   string `json:"external_price_ref"`
}

// eventType reads the event type for metrics labels only.
func eventType(payload []byte) string {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &head); err != nil {
		return ""
	}
	return head.Type
}

func (ph *PaymentHandler) PaymentEventCallback(ctx *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxWebhookBody))
	if err != nil {
		ph.recorder.WebhookEvent("", domain.OutcomeRejected)
		ph.handleError(ctx, errors.Join(domain.ErrBadRequest, err))
		return
	}

	outcome, err := ph.reconcile.HandleWebhook(ctx, payload, ctx.GetHeader(signatureHeader))

	label := "unverified"
	if !errors.Is(err, domain.ErrSignatureVerification) {
		label = eventType(payload)
	}
	ph.recorder.WebhookEvent(label, outcome)

	if err != nil {
		status, known := statusFor(err)
		// an unknown order is a bad delivery, not a missing resource
		if status == http.StatusNotFound {
			status = http.StatusBadRequest
		}
		ph.respondError(ctx, status, known, err)
		return
	}

	ph.handleSuccess(ctx, WebhookResp{Status: outcome})
}

func (ph *PaymentHandler) RegisterProduct(ctx *gin.Context) {
	id, err := parseID(ctx)
	if err != nil {
		ph.handleError(ctx, err)
		return
	}

	product, err := ph.payments.RegisterProduct(ctx, getActor(ctx), id)
	if err != nil {
		ph.handleError(ctx, err)
		return
	}

	ph.handleSuccess(ctx, GatewayRegistrationResp{
		ProductID:          product.ID.String(),
		ExternalProductRef: product.ExternalProductRef,
		ExternalPriceRef:   product.ExternalPriceRef,
	})
}
