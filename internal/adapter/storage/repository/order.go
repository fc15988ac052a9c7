package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/MikeRez0/artisanmart/internal/core/port"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

var orderColumns = []string{"id", "buyer_id", "payment_status", "shipping_status", "total_price", "created_at"}

func (r *Repository) CreateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		orderSt := r.db.QueryBuilder.
			Insert("orders").
			Columns(orderColumns...).
			Values(order.ID, order.BuyerID, order.PaymentStatus, order.ShippingStatus,
				order.TotalPrice, order.CreatedAt)

		sql, args, err := orderSt.ToSql()
		if err != nil {
			return err
		}
		if _, err = tx.Exec(ctx, sql, args...); err != nil {
			return err
		}

		itemsSt := r.db.QueryBuilder.
			Insert("order_items").
			Columns("id", "order_id", "product_id", "seller_id", "quantity", "price")
		for _, item := range order.Items {
			itemsSt = itemsSt.Values(item.ID, order.ID, item.ProductID, item.SellerID, item.Quantity, item.Price)
		}

		sql, args, err = itemsSt.ToSql()
		if err != nil {
			return err
		}
		_, err = tx.Exec(ctx, sql, args...)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}

	return order, nil
}

func (r *Repository) GetOrder(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	order, err := r.readOrder(ctx, r.db, orderID, false)
	if err != nil {
		return nil, mapError(err)
	}
	return order, nil
}

func (r *Repository) ListOrdersByBuyer(ctx context.Context, buyerID uuid.UUID) ([]*domain.Order, error) {
	statement := r.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"buyer_id": buyerID}).
		OrderBy("created_at DESC")

	return r.listOrders(ctx, statement)
}

// ListOrdersBySeller returns every order holding at least one item of the
// seller. Items of other sellers are included.
func (r *Repository) ListOrdersBySeller(ctx context.Context, sellerID uuid.UUID) ([]*domain.Order, error) {
	statement := r.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		Where(sq.Expr("id IN (SELECT order_id FROM order_items WHERE seller_id = ?)", sellerID)).
		OrderBy("created_at DESC")

	return r.listOrders(ctx, statement)
}

func (r *Repository) UpdateOrder(ctx context.Context,
	orderID uuid.UUID, updateFn port.UpdateOrderFn) (*domain.Order, error) {
	var updated *domain.Order

	err := pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		order, err := r.readOrder(ctx, tx, orderID, true)
		if err != nil {
			return err
		}
		payment, shipping := order.PaymentStatus, order.ShippingStatus

		err = updateFn(ctx, order, &stockWriter{tx: tx, qb: r.db.QueryBuilder})
		if err != nil {
			return err
		}

		if order.PaymentStatus != payment || order.ShippingStatus != shipping {
			statement := r.db.QueryBuilder.
				Update("orders").
				Set("payment_status", order.PaymentStatus).
				Set("shipping_status", order.ShippingStatus).
				Where(sq.Eq{"id": orderID})

			sql, args, err := statement.ToSql()
			if err != nil {
				return err
			}
			if _, err := tx.Exec(ctx, sql, args...); err != nil {
				return err
			}
		}

		updated = order
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}

	return updated, nil
}

// readOrder loads an order with its items. forUpdate locks the order row
// until the surrounding transaction ends.
func (r *Repository) readOrder(ctx context.Context, q querier, orderID uuid.UUID, forUpdate bool) (*domain.Order, error) {
	statement := r.db.QueryBuilder.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": orderID})
	if forUpdate {
		statement = statement.Suffix("FOR UPDATE")
	}

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	order, err := scanOrder(q.QueryRow(ctx, sql, args...))
	if err != nil {
		return nil, err
	}

	items, err := r.readItems(ctx, q, []uuid.UUID{orderID})
	if err != nil {
		return nil, err
	}
	order.Items = items[orderID]

	return order, nil
}

func (r *Repository) listOrders(ctx context.Context, statement sq.SelectBuilder) ([]*domain.Order, error) {
	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	list := make([]*domain.Order, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, order)
		ids = append(ids, order.ID)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}

	if len(ids) == 0 {
		return list, nil
	}

	items, err := r.readItems(ctx, r.db, ids)
	if err != nil {
		return nil, err
	}
	for _, order := range list {
		order.Items = items[order.ID]
	}

	return list, nil
}

func (r *Repository) readItems(ctx context.Context, q querier, orderIDs []uuid.UUID) (map[uuid.UUID][]domain.OrderItem, error) {
	statement := r.db.QueryBuilder.
		Select("id", "order_id", "product_id", "seller_id", "quantity", "price").
		From("order_items").
		Where(sq.Eq{"order_id": orderIDs}).
		OrderBy("order_id", "id")

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make(map[uuid.UUID][]domain.OrderItem, len(orderIDs))
	for rows.Next() {
		item := domain.OrderItem{}
		err := rows.Scan(&item.ID, &item.OrderID, &item.ProductID, &item.SellerID, &item.Quantity, &item.Price)
		if err != nil {
			return nil, err
		}
		items[item.OrderID] = append(items[item.OrderID], item)
	}

	return items, rows.Err()
}

func scanOrder(row pgx.Row) (*domain.Order, error) {
	order := domain.Order{}
	var payment, shipping string

	err := row.Scan(
		&order.ID,
		&order.BuyerID,
		&payment,
		&shipping,
		&order.TotalPrice,
		&order.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if order.PaymentStatus, err = domain.ToPaymentStatus(payment); err != nil {
		return nil, fmt.Errorf("order %s: %w", order.ID, err)
	}
	if order.ShippingStatus, err = domain.ToShippingStatus(shipping); err != nil {
		return nil, fmt.Errorf("order %s: %w", order.ID, err)
	}

	return &order, nil
}

type stockWriter struct {
	tx pgx.Tx
	qb *sq.StatementBuilderType
}

func (w *stockWriter) DecrementStock(ctx context.Context, productID uuid.UUID, quantity int) error {
	statement := w.qb.
		Update("products").
		Set("stock", sq.Expr("stock - ?", quantity)).
		Where(sq.Eq{"id": productID}).
		Where(sq.GtOrEq{"stock": quantity})

	sql, args, err := statement.ToSql()
	if err != nil {
		return err
	}

	tag, err := w.tx.Exec(ctx, sql, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: product %s, quantity %d", domain.ErrInsufficientStock, productID, quantity)
	}
	return nil
}
