package repository

import (
	"context"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
)

func (r *Repository) CreateReview(ctx context.Context, review *domain.PaymentReview) error {
	statement := r.db.QueryBuilder.
		Insert("payment_reviews").
		Columns("id", "order_id", "event_id", "event_type", "reason", "created_at").
		Values(review.ID, review.OrderID, review.EventID, review.EventType, review.Reason, review.CreatedAt)

	sql, args, err := statement.ToSql()
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx, sql, args...)
	return mapError(err)
}
