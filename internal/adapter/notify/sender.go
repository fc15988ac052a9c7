package notify

import (
	"context"
	"fmt"

	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"go.uber.org/zap"
)

// NewSender builds the transport selected by conf.Transport.
func NewSender(conf *config.Notify, logger *zap.Logger) (Sender, error) {
	switch conf.Transport {
	case config.NotifyTransportLog, "":
		return NewLogSender(logger), nil
	case config.NotifyTransportSMTP:
		return NewSMTPSender(conf), nil
	case config.NotifyTransportAMQP:
		return NewAMQPSender(conf.AMQPURL, logger)
	case config.NotifyTransportKafka:
		return NewKafkaSender(conf.KafkaBrokers), nil
	case config.NotifyTransportTalks:
		return NewTalksSender(conf.TalksURL, logger), nil
	}
	return nil, fmt.Errorf("unknown notification transport %q", conf.Transport)
}

type LogSender struct {
	logger *zap.Logger
}

func NewLogSender(logger *zap.Logger) *LogSender {
	return &LogSender{logger: logger.Named("notify")}
}

func (s *LogSender) Send(_ context.Context, n domain.Notification) error {
	s.logger.Info("notification",
		zap.String("template", string(n.Template)),
		zap.String("recipient", n.Recipient),
		zap.String("subject", n.Subject),
		zap.String("message", n.Message),
		zap.Any("data", n.Data))
	return nil
}

func (s *LogSender) Close() error {
	return nil
}
