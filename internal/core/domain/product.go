package domain

import (
	"github.com/google/uuid"
	"github.com/govalues/decimal"
)

type Product struct {
	ID                 uuid.UUID
	ArtistID           uuid.UUID
	ArtistEmail        string
	Name               string
	Description        string
	Price              decimal.Decimal
	Stock              int
	IsActive           bool
	ExternalProductRef string
	ExternalPriceRef   string
}

// StockDecrement is one product stock reduction caused by a paid order.
type StockDecrement struct {
	ProductID uuid.UUID
	Quantity  int
}
