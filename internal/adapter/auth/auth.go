package auth

import (
	"fmt"

	"github.com/MikeRez0/artisanmart/internal/adapter/config"
	"github.com/MikeRez0/artisanmart/internal/core/port"
)

func New(conf *config.Auth) (port.TokenService, error) {
	switch conf.TokenFormat {
	case config.TokenFormatJWT:
		return NewJWT(conf.TokenSecret)
	case config.TokenFormatPaseto:
		return NewPaseto(conf.TokenSecret)
	}
	return nil, fmt.Errorf("unknown token format %q", conf.TokenFormat)
}
