package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewSender(t *testing.T) {
	s, err := NewSender(&config.Notify{Transport: config.NotifyTransportLog}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &LogSender{}, s)

	s, err = NewSender(&config.Notify{Transport: config.NotifyTransportSMTP, SMTPHost: "mail.test", SMTPPort: 25}, zap.NewNop())
	require.NoError(t, err)
	assert.IsType(t, &SMTPSender{}, s)

	s, err = NewSender(&config.Notify{Transport: config.NotifyTransportTalks, TalksURL: "http://talks.test/"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "http://talks.test/notifications/webhook", s.(*TalksSender).url)

	_, err = NewSender(&config.Notify{Transport: "pigeon"}, zap.NewNop())
	assert.Error(t, err)
}

func TestLogSender(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLogSender(zap.New(core))

	require.NoError(t, s.Send(context.Background(), domain.Notification{
		Subject:   "Payment confirmed",
		Recipient: "buyer@example.com",
		Template:  domain.TemplatePaymentConfirmation,
	}))

	entries := logs.FilterMessage("notification").All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "PC", fields["template"])
	assert.Equal(t, "buyer@example.com", fields["recipient"])
}

func TestSMTPSender(t *testing.T) {
	s := NewSMTPSender(&config.Notify{
		SMTPHost: "mail.test",
		SMTPPort: 2525,
		SMTPUser: "shop",
		SMTPFrom: "shop@artisanmart.test",
	})
	assert.NotNil(t, s.auth)

	var gotAddr, gotFrom string
	var gotTo []string
	var gotMsg []byte
	s.sendMail = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, msg
		return nil
	}

	n := domain.Notification{
		Subject:   "New order",
		Message:   "You sold a painting",
		Recipient: "artist@example.com",
		Template:  domain.TemplateNewOrder,
	}
	require.NoError(t, s.Send(context.Background(), n))
	assert.Equal(t, "mail.test:2525", gotAddr)
	assert.Equal(t, "shop@artisanmart.test", gotFrom)
	assert.Equal(t, []string{"artist@example.com"}, gotTo)
	assert.Contains(t, string(gotMsg), "You sold a painting")

	s.sendMail = func(string, smtp.Auth, string, []string, []byte) error {
		return errors.New("535 authentication failed")
	}
	assert.Error(t, s.Send(context.Background(), n))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Send(ctx, n), context.Canceled)
}

func TestBuildMessage(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	msg := string(buildMessage("shop@artisanmart.test", domain.Notification{
		Subject:   "Payment failed",
		Message:   "Please try again",
		Recipient: "buyer@example.com",
		Template:  domain.TemplatePaymentFailed,
	}, now))

	headers, body, ok := strings.Cut(msg, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, headers, "From: shop@artisanmart.test\r\n")
	assert.Contains(t, headers, "To: buyer@example.com\r\n")
	assert.Contains(t, headers, "Subject: Payment failed\r\n")
	assert.Contains(t, headers, "Date: Wed, 01 May 2024 12:00:00 +0000\r\n")
	assert.Contains(t, headers, "X-Template: PF\r\n")
	assert.Equal(t, "Please try again\r\n", body)
}

type fakeWriter struct {
	msgs   []kafka.Message
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafkaSender(t *testing.T) {
	w := &fakeWriter{}
	s := &KafkaSender{writer: w}

	n := domain.Notification{
		Subject:   "Order update",
		Recipient: "buyer@example.com",
		Template:  domain.TemplateGeneral,
		Data:      map[string]string{"order_id": "42"},
	}
	require.NoError(t, s.Send(context.Background(), n))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "buyer@example.com", string(w.msgs[0].Key))

	var got domain.Notification
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &got))
	assert.Equal(t, n, got)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

type fakeSession struct {
	published  []string
	closed     chan *amqp.Error
	publishErr error
	closeCalls int
}

func newFakeSession() *fakeSession {
	return &fakeSession{closed: make(chan *amqp.Error, 1)}
}

func (f *fakeSession) Publish(_ context.Context, routingKey string, _ amqp.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, routingKey)
	return nil
}

func (f *fakeSession) Closed() <-chan *amqp.Error { return f.closed }

func (f *fakeSession) Close() error {
	f.closeCalls++
	return nil
}

func TestAMQPSender_Redials(t *testing.T) {
	sessions := []*fakeSession{newFakeSession(), newFakeSession(), newFakeSession()}
	dials := 0
	dial := func() (amqpSession, error) {
		if dials >= len(sessions) {
			return nil, errors.New("connection refused")
		}
		s := sessions[dials]
		dials++
		return s, nil
	}

	sender, err := newAMQPSender(dial, zap.NewNop())
	require.NoError(t, err)

	n := domain.Notification{Template: domain.TemplateNewOrder, Recipient: "a@artisanmart.test"}
	ctx := context.Background()

	require.NoError(t, sender.Send(ctx, n))
	assert.Equal(t, 1, dials)

	// broker went away
	sessions[0].closed <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "CONNECTION_FORCED"}
	require.NoError(t, sender.Send(ctx, n))
	assert.Equal(t, 2, dials)
	assert.Equal(t, 1, sessions[0].closeCalls)
	assert.Equal(t, []string{string(domain.TemplateNewOrder)}, sessions[1].published)

	// channel closed under a publish
	sessions[1].publishErr = amqp.ErrClosed
	assert.ErrorIs(t, sender.Send(ctx, n), amqp.ErrClosed)
	require.NoError(t, sender.Send(ctx, n))
	assert.Equal(t, 3, dials)

	close(sessions[2].closed)
	assert.Error(t, sender.Send(ctx, n))

	require.NoError(t, sender.Close())
	assert.ErrorIs(t, sender.Send(ctx, n), errSenderClosed)
}

func TestTalksSender(t *testing.T) {
	var got []talksRequest
	status := "success"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/notifications/webhook", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		var req talksRequest
		assert.NoError(t, json.Unmarshal(body, &req))
		got = append(got, req)
		if status == "" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`{"status":"` + status + `"}`))
	}))
	defer srv.Close()

	s := NewTalksSender(srv.URL, zap.NewNop())
	defer s.Close()
	ctx := context.Background()

	n := domain.Notification{
		Message:     "Order 1 is paid.",
		Recipient:   "buyer@artisanmart.test",
		RecipientID: "u-1",
		URLPath:     "/orders/1",
	}
	require.NoError(t, s.Send(ctx, n))
	require.Len(t, got, 1)
	assert.Equal(t, talksRequest{RecipientID: "u-1", Message: "Order 1 is paid.", URLPath: "/orders/1"}, got[0])

	// admin mailbox has no user to notify
	require.NoError(t, s.Send(ctx, domain.Notification{Recipient: "admin@artisanmart.test"}))
	assert.Len(t, got, 1)

	status = "error"
	assert.Error(t, s.Send(ctx, n))

	status = ""
	assert.ErrorContains(t, s.Send(ctx, n), "status 500")
}
