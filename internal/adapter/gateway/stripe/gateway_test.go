package stripe

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"
)

const whSecret = "whsec_test"

var cred = domain.GatewayCredential{SecretKey: "sk_test_123"}

func newTestGateway(t *testing.T, h http.HandlerFunc) *Gateway {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	g, err := New(&config.Gateway{
		APIURL:     srv.URL,
		SuccessURL: "https://shop.test/ok",
		CancelURL:  "https://shop.test/cancel",
		Currency:   "USD",
	}, zap.NewNop())
	require.NoError(t, err)

	return g
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	fmt.Fprint(w, body)
}

func TestNew_Currency(t *testing.T) {
	_, err := New(&config.Gateway{SuccessURL: "a", CancelURL: "b", Currency: "XYZW"}, zap.NewNop())
	assert.Error(t, err)

	g, err := New(&config.Gateway{SuccessURL: "a", CancelURL: "b", Currency: "EUR"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "eur", g.currency)
}

func TestUnitAmount(t *testing.T) {
	tests := []struct {
		price   string
		want    int64
		wantErr bool
	}{
		{price: "49.90", want: 4990},
		{price: "25", want: 2500},
		{price: "10.006", want: 1001},
		{price: "0", want: 0},
		{price: "-1.00", wantErr: true},
	}

	for _, test := range tests {
		t.Run(test.price, func(t *testing.T) {
			got, err := unitAmount(decimal.MustParse(test.price))
			if test.wantErr {
				assert.ErrorIs(t, err, domain.ErrBadPrice)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, test.want, got)
		})
	}
}

func TestGateway_CreateCheckout(t *testing.T) {
	orderID := uuid.New()

	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		assert.Equal(t, "Bearer "+cred.SecretKey, r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())

		assert.Equal(t, "payment", r.PostForm.Get("mode"))
		assert.Equal(t, orderID.String(), r.PostForm.Get("metadata[order_id]"))
		assert.Equal(t, orderID.String(), r.PostForm.Get("client_reference_id"))
		assert.Equal(t, "price_1", r.PostForm.Get("line_items[0][price]"))
		assert.Equal(t, "2", r.PostForm.Get("line_items[0][quantity]"))
		assert.Equal(t, "price_2", r.PostForm.Get("line_items[1][price]"))
		assert.Equal(t, "1", r.PostForm.Get("line_items[1][quantity]"))
		assert.Equal(t, "https://shop.test/ok", r.PostForm.Get("success_url"))

		writeJSON(w, http.StatusOK,
			`{"id":"cs_test_1","object":"checkout.session","url":"https://checkout.test/c/pay/cs_test_1"}`)
	})

	url, err := g.CreateCheckout(context.Background(), cred, domain.CheckoutRequest{
		OrderID: orderID,
		Lines: []domain.CheckoutLine{
			{PriceRef: "price_1", Quantity: 2},
			{PriceRef: "price_2", Quantity: 1},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "https://checkout.test/c/pay/cs_test_1", url)
}

func TestGateway_RegisterProduct(t *testing.T) {
	product := &domain.Product{ID: uuid.New(), Name: "Sunset", Description: "Oil on canvas", Price: decimal.MustParse("49.90")}

	t.Run("new product", func(t *testing.T) {
		var products, prices atomic.Int32
		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			switch r.URL.Path {
			case "/v1/products":
				products.Add(1)
				assert.Equal(t, "Sunset", r.PostForm.Get("name"))
				writeJSON(w, http.StatusOK, `{"id":"prod_1","object":"product"}`)
			case "/v1/prices":
				prices.Add(1)
				assert.Equal(t, "4990", r.PostForm.Get("unit_amount"))
				assert.Equal(t, "usd", r.PostForm.Get("currency"))
				assert.Equal(t, "prod_1", r.PostForm.Get("product"))
				writeJSON(w, http.StatusOK, `{"id":"price_1","object":"price"}`)
			default:
				t.Errorf("unexpected path %s", r.URL.Path)
			}
		})

		productRef, priceRef, err := g.RegisterProduct(context.Background(), cred, product)
		require.NoError(t, err)
		assert.Equal(t, "prod_1", productRef)
		assert.Equal(t, "price_1", priceRef)
		assert.EqualValues(t, 1, products.Load())
		assert.EqualValues(t, 1, prices.Load())
	})

	t.Run("known product gets a new price", func(t *testing.T) {
		registered := *product
		registered.ExternalProductRef = "prod_old"

		g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, r.ParseForm())
			assert.Equal(t, "/v1/prices", r.URL.Path)
			assert.Equal(t, "prod_old", r.PostForm.Get("product"))
			writeJSON(w, http.StatusOK, `{"id":"price_2","object":"price"}`)
		})

		productRef, priceRef, err := g.RegisterProduct(context.Background(), cred, &registered)
		require.NoError(t, err)
		assert.Equal(t, "prod_old", productRef)
		assert.Equal(t, "price_2", priceRef)
	})
}

func TestGateway_BreakerOpens(t *testing.T) {
	var hits atomic.Int32
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		writeJSON(w, http.StatusBadRequest,
			`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such price"}}`)
	})

	req := domain.CheckoutRequest{OrderID: uuid.New(), Lines: []domain.CheckoutLine{{PriceRef: "price_x", Quantity: 1}}}
	for range 6 {
		_, err := g.CreateCheckout(context.Background(), cred, req)
		assert.ErrorIs(t, err, domain.ErrUpstream)
	}
	assert.EqualValues(t, 5, hits.Load())
}

func signedEvent(t *testing.T, event map[string]any) ([]byte, string) {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    whSecret,
		Timestamp: time.Now(),
	})
	return signed.Payload, signed.Header
}

func checkoutEvent(eventType string, metadata map[string]string, paymentStatus string) map[string]any {
	return map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        eventType,
		"api_version": "2020-08-27",
		"data": map[string]any{
			"object": map[string]any{
				"id":             "cs_test_1",
				"object":         "checkout.session",
				"payment_status": paymentStatus,
				"metadata":       metadata,
			},
		},
	}
}

func TestGateway_VerifyWebhook(t *testing.T) {
	g := newTestGateway(t, func(w http.ResponseWriter, r *http.Request) {
		t.Errorf("webhook verification must not call the API")
	})
	orderID := uuid.New()

	t.Run("completed", func(t *testing.T) {
		payload, header := signedEvent(t, checkoutEvent("checkout.session.completed",
			map[string]string{"order_id": orderID.String()}, "paid"))

		event, err := g.VerifyWebhook(payload, header, whSecret)
		require.NoError(t, err)
		assert.Equal(t, "evt_1", event.ID)
		assert.Equal(t, domain.EventCheckoutCompleted, event.Type)
		assert.Equal(t, domain.PaymentEventPaid, event.Kind())
		got, err := event.OrderID()
		require.NoError(t, err)
		assert.Equal(t, orderID, got)
	})

	t.Run("missing metadata", func(t *testing.T) {
		payload, header := signedEvent(t, checkoutEvent("checkout.session.completed", nil, "paid"))

		event, err := g.VerifyWebhook(payload, header, whSecret)
		require.NoError(t, err)
		_, err = event.OrderID()
		assert.ErrorIs(t, err, domain.ErrMissingOrderReference)
	})

	t.Run("unrelated event", func(t *testing.T) {
		payload, header := signedEvent(t, map[string]any{
			"id":          "evt_2",
			"object":      "event",
			"type":        "customer.created",
			"api_version": "2020-08-27",
			"data":        map[string]any{"object": map[string]any{"id": "cus_1", "object": "customer"}},
		})

		event, err := g.VerifyWebhook(payload, header, whSecret)
		require.NoError(t, err)
		assert.Equal(t, domain.PaymentEventUnknown, event.Kind())
	})

	t.Run("wrong secret", func(t *testing.T) {
		payload, header := signedEvent(t, checkoutEvent("checkout.session.completed",
			map[string]string{"order_id": orderID.String()}, "paid"))

		_, err := g.VerifyWebhook(payload, header, "whsec_other")
		assert.ErrorIs(t, err, domain.ErrSignatureVerification)
	})

	t.Run("tampered payload", func(t *testing.T) {
		payload, header := signedEvent(t, checkoutEvent("checkout.session.completed",
			map[string]string{"order_id": orderID.String()}, "paid"))
		payload = append(payload, ' ')

		_, err := g.VerifyWebhook(payload, header, whSecret)
		assert.ErrorIs(t, err, domain.ErrSignatureVerification)
	})
}
