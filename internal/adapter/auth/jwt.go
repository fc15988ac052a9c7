package auth

import (
	"errors"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// identityClaims is what the identity service signs into access tokens.
type identityClaims struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	IsArtist bool   `json:"is_artist"`
	jwt.RegisteredClaims
}

// JWTToken verifies HS256 access tokens issued by the identity service.
type JWTToken struct {
	secret []byte
	parser *jwt.Parser
}

func NewJWT(secret string) (*JWTToken, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	return &JWTToken{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}, nil
}

// CreateToken signs a token the way the identity service does. Used by tests
// and local tooling.
func (j *JWTToken) CreateToken(user *domain.User, ttl time.Duration) (string, error) {
	claims := identityClaims{
		ID:       user.ID.String(),
		Username: user.Username,
		IsArtist: user.IsArtist,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secret)
	if err != nil {
		return "", domain.ErrTokenCreation
	}
	return token, nil
}

func (j *JWTToken) VerifyToken(token string) (*port.TokenPayload, error) {
	claims := identityClaims{}
	_, err := j.parser.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return j.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrExpiredToken
		}
		return nil, domain.ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.ID)
	if err != nil {
		return nil, domain.ErrInvalidToken
	}

	return &port.TokenPayload{UserID: userID, Role: domain.RoleOf(claims.IsArtist)}, nil
}
