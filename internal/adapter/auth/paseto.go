package auth

import (
	"fmt"
	"time"

	"aidanwoods.dev/go-paseto"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
)

// PasetoToken verifies v4.local tokens that carry a port.TokenPayload.
type PasetoToken struct {
	parser *paseto.Parser
	key    *paseto.V4SymmetricKey
}

// NewPaseto uses hexKey as the symmetric key. An empty key generates a random
// one, which only makes sense for development.
func NewPaseto(hexKey string) (*PasetoToken, error) {
	parser := paseto.NewParser()

	var key paseto.V4SymmetricKey
	if hexKey == "" {
		key = paseto.NewV4SymmetricKey()
	} else {
		var err error
		key, err = paseto.V4SymmetricKeyFromHex(hexKey)
		if err != nil {
			return nil, fmt.Errorf("bad paseto key: %w", err)
		}
	}

	return &PasetoToken{
		parser: &parser,
		key:    &key,
	}, nil
}

func (p *PasetoToken) CreateToken(user domain.AuthenticatedUser, ttl time.Duration) (string, error) {
	token := paseto.NewToken()
	token.SetIssuedAt(time.Now())
	token.SetExpiration(time.Now().Add(ttl))

	payload := port.TokenPayload{UserID: user.ID, Role: user.Role}
	err := token.Set("payload", payload)
	if err != nil {
		return "", domain.ErrTokenCreation
	}

	return token.V4Encrypt(*p.key, nil), nil
}

func (p *PasetoToken) VerifyToken(token string) (*port.TokenPayload, error) {
	parsedToken, err := p.parser.ParseV4Local(*p.key, token, nil)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	payload := port.TokenPayload{}
	err = parsedToken.Get("payload", &payload)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}
	if payload.Role != domain.RoleArtist {
		payload.Role = domain.RoleBuyer
	}
	return &payload, nil
}
