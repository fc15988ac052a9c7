package repository

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/google/uuid"
)

func (r *Repository) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	statement := r.db.QueryBuilder.
		Select("id", "username", "email", "is_artist").
		From("users").
		Where(sq.Eq{"id": userID})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	user := domain.User{}
	err = r.db.QueryRow(ctx, sql, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Email,
		&user.IsArtist,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &user, nil
}

func (r *Repository) GetUsers(ctx context.Context, ids []uuid.UUID) ([]*domain.User, error) {
	list := make([]*domain.User, 0, len(ids))
	if len(ids) == 0 {
		return list, nil
	}

	statement := r.db.QueryBuilder.
		Select("id", "username", "email", "is_artist").
		From("users").
		Where(sq.Eq{"id": ids})

	sql, args, err := statement.ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		user := domain.User{}
		if err := rows.Scan(&user.ID, &user.Username, &user.Email, &user.IsArtist); err != nil {
			return nil, err
		}
		list = append(list, &user)
	}

	return list, rows.Err()
}
