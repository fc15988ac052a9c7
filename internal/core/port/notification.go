package port

import "github.com/MikeRez0/artisanmart/internal/core/domain"

//go:generate mockgen -source=notification.go -destination=mock/notification.go -package=mock
type NotificationQueue interface {
	// Enqueue must not block the caller.
	Enqueue(n domain.Notification)
}
