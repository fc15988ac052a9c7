package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"go.uber.org/zap"
)

const talksTimeout = 5 * time.Second

type talksRequest struct {
	RecipientID string `json:"recipient_id"`
	Message     string `json:"message"`
	URLPath     string `json:"url_path"`
}

type talksResponse struct {
	Status string `json:"status"`
}

// TalksSender creates in-app notifications through the messaging service webhook.
type TalksSender struct {
	url    string
	client *http.Client
	logger *zap.Logger
}

func NewTalksSender(baseURL string, logger *zap.Logger) *TalksSender {
	return &TalksSender{
		url:    strings.TrimRight(baseURL, "/") + "/notifications/webhook",
		client: &http.Client{Timeout: talksTimeout},
		logger: logger.Named("talks"),
	}
}

func (s *TalksSender) Send(ctx context.Context, n domain.Notification) error {
	if n.RecipientID == "" {
		s.logger.Debug("notification has no user recipient, skipped",
			zap.String("recipient", n.Recipient), zap.String("template", string(n.Template)))
		return nil
	}

	body, err := json.Marshal(talksRequest{
		RecipientID: n.RecipientID,
		Message:     n.Message,
		URLPath:     n.URLPath,
	})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("post notification: status %d", resp.StatusCode)
	}
	var result talksResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	if result.Status != "success" {
		return fmt.Errorf("post notification: service answered %q", result.Status)
	}
	return nil
}

func (s *TalksSender) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
