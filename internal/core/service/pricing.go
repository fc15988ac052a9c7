package service

import (
	"fmt"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/govalues/decimal"
)

const (
	PricingPolicyClient  = "client"
	PricingPolicyCatalog = "catalog"
)

// ClientPricePolicy keeps the unit price sent by the buyer.
type ClientPricePolicy struct{}

func (ClientPricePolicy) Price(line domain.OrderLine, _ *domain.Product) (decimal.Decimal, error) {
	return line.Price, nil
}

// CatalogPricePolicy charges the current catalog price and ignores the buyer's one.
type CatalogPricePolicy struct{}

func (CatalogPricePolicy) Price(_ domain.OrderLine, product *domain.Product) (decimal.Decimal, error) {
	if product.Price.IsNeg() {
		return decimal.Zero, fmt.Errorf("%w: product %s", domain.ErrBadPrice, product.ID)
	}
	return product.Price, nil
}

func PricingPolicyByName(name string) (port.PricingPolicy, error) {
	switch name {
	case "", PricingPolicyClient:
		return ClientPricePolicy{}, nil
	case PricingPolicyCatalog:
		return CatalogPricePolicy{}, nil
	}
	return nil, fmt.Errorf("unknown pricing policy %q", name)
}
