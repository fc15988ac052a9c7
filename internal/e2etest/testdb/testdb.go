// Package testdb starts a throwaway PostgreSQL for integration tests and
// seeds the catalog tables the order flow reads from.
package testdb

import (
	"context"
	"fmt"
	"time"

	"github.com/MikeRez0/artisanmart/internal/core/domain"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

type TestDBInstance struct {
	container *postgres.PostgresContainer
	DSN       string
}

func NewTestDBInstance() (*TestDBInstance, error) {
	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:17-alpine",
		postgres.WithDatabase("artisanmart"),
		postgres.WithUsername("artisan"),
		postgres.WithPassword("artisan"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return nil, fmt.Errorf("postgres connection string: %w", err)
	}

	return &TestDBInstance{container: container, DSN: dsn}, nil
}

func (i *TestDBInstance) Down() error {
	return i.container.Terminate(context.Background())
}

func SeedUser(ctx context.Context, pool *pgxpool.Pool, isArtist bool) (*domain.User, error) {
	user := &domain.User{
		ID:       uuid.New(),
		Username: gofakeit.Username() + gofakeit.DigitN(6),
		Email:    gofakeit.Email(),
		IsArtist: isArtist,
	}
	_, err := pool.Exec(ctx,
		`INSERT INTO users (id, username, email, is_artist) VALUES ($1, $2, $3, $4)`,
		user.ID, user.Username, user.Email, user.IsArtist)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func SeedProduct(ctx context.Context, pool *pgxpool.Pool, artist *domain.User,
	price string, stock int) (*domain.Product, error) {
	product := &domain.Product{
		ID:          uuid.New(),
		ArtistID:    artist.ID,
		ArtistEmail: artist.Email,
		Name:        gofakeit.ProductName(),
		Description: gofakeit.ProductDescription(),
		Price:       decimal.MustParse(price),
		Stock:       stock,
		IsActive:    true,
	}
	_, err := pool.Exec(ctx,
		`INSERT INTO products (id, artist_id, name, description, price, stock, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		product.ID, product.ArtistID, product.Name, product.Description, product.Price,
		product.Stock, product.IsActive)
	if err != nil {
		return nil, err
	}
	return product, nil
}

func ProductStock(ctx context.Context, pool *pgxpool.Pool, productID uuid.UUID) (int, error) {
	var stock int
	err := pool.QueryRow(ctx, `SELECT stock FROM products WHERE id = $1`, productID).Scan(&stock)
	return stock, err
}
