package domain

import "github.com/google/uuid"

type NotificationTemplate string

const (
	TemplatePaymentConfirmation NotificationTemplate = "PC"
	TemplateGeneral             NotificationTemplate = "GN"
	TemplatePaymentFailed       NotificationTemplate = "PF"
	TemplateNewOrder            NotificationTemplate = "NO"
)

type Notification struct {
	Subject   string               `json:"subject"`
	Message   string               `json:"message"`
	Recipient string               `json:"recipient"`
	Template  NotificationTemplate `json:"template"`
	Data      map[string]string    `json:"data,omitempty"`

	// RecipientID is the user id for in-app delivery; empty for the admin mailbox.
	RecipientID string `json:"recipient_id,omitempty"`
	URLPath     string `json:"url_path,omitempty"`
}

func OrderURLPath(orderID uuid.UUID) string {
	return "/orders/" + orderID.String()
}
