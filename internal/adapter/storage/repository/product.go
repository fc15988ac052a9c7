package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

func (r *Repository) selectProducts() sq.SelectBuilder {
	return r.db.QueryBuilder.
		Select("p.id", "p.artist_id", "u.email", "p.name", "p.description", "p.price", "p.stock",
			"p.is_active", "p.external_product_ref", "p.external_price_ref").
		From("products p").
		Join("users u ON u.id = p.artist_id")
}

func scanProduct(row pgx.Row) (*domain.Product, error) {
	p := domain.Product{}
	err := row.Scan(
		&p.ID,
		&p.ArtistID,
		&p.ArtistEmail,
		&p.Name,
		&p.Description,
		&p.Price,
		&p.Stock,
		&p.IsActive,
		&p.ExternalProductRef,
		&p.ExternalPriceRef,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *Repository) GetProduct(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	sql, args, err := r.selectProducts().Where(sq.Eq{"p.id": productID}).ToSql()
	if err != nil {
		return nil, err
	}

	product, err := scanProduct(r.db.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return product, nil
}

func (r *Repository) GetProducts(ctx context.Context, ids []uuid.UUID) ([]*domain.Product, error) {
	list := make([]*domain.Product, 0, len(ids))
	if len(ids) == 0 {
		return list, nil
	}

	sql, args, err := r.selectProducts().Where(sq.Eq{"p.id": ids}).ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, product)
	}

	return list, rows.Err()
}

func (r *Repository) UpdateGatewayRefs(ctx context.Context, productID uuid.UUID, productRef, priceRef string) error {
	statement := r.db.QueryBuilder.
		Update("products").
		Set("external_product_ref", productRef).
		Set("external_price_ref", priceRef).
		Where(sq.Eq{"id": productID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return err
	}

	tag, err := r.db.Exec(ctx, sql, args...)
	if err != nil {
		return mapError(err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrDataNotFound
	}
	return nil
}
