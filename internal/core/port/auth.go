package port

import (
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/google/uuid"
)

type TokenPayload struct {
	UserID uuid.UUID
	Role   domain.Role
}

//go:generate mockgen -source=auth.go -destination=mock/auth.go -package=mock
type TokenService interface {
	VerifyToken(token string) (*TokenPayload, error)
}
