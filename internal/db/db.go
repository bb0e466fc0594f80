package db

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RamanBirulia/stock-notebook/internal/repository"
	"github.com/RamanBirulia/stock-notebook/internal/repository/memstore"
	"github.com/RamanBirulia/stock-notebook/internal/repository/mongostore"
	"github.com/RamanBirulia/stock-notebook/internal/repository/pgstore"
)

// DefaultDatabase is used when a mongodb URL names no database.
const DefaultDatabase = "stock_notebook"

// Open returns the store selected by the URL scheme: memory://,
// mongodb:// (or mongodb+srv://), postgres:// (or postgresql://).
func Open(ctx context.Context, connURL string) (repository.Store, error) {
	scheme, _, ok := strings.Cut(connURL, "://")
	if !ok {
		return nil, fmt.Errorf("database url %q has no scheme", connURL)
	}
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	switch strings.ToLower(scheme) {
	case "memory":
		return memstore.New(), nil
	case "mongodb", "mongodb+srv":
		client, err := NewPool(ctx, connURL)
		if err != nil {
			return nil, fmt.Errorf("mongo connect: %w", err)
		}
		s := mongostore.New(client, databaseName(connURL))
		if err := s.EnsureIndexes(ctx); err != nil {
			_ = client.Disconnect(context.Background())
			return nil, err
		}
		return s, nil
	case "postgres", "postgresql":
		s, err := pgstore.Open(ctx, connURL)
		if err != nil {
			return nil, fmt.Errorf("postgres connect: %w", err)
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unsupported database scheme %q", scheme)
	}
}

// NewPool creates a MongoDB client connection.
func NewPool(ctx context.Context, connURL string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(connURL).
		SetMaxPoolSize(8).
		SetMinPoolSize(1)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}

	// Verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	return client, nil
}

func databaseName(connURL string) string {
	u, err := url.Parse(connURL)
	if err != nil {
		return DefaultDatabase
	}
	if name := strings.Trim(u.Path, "/"); name != "" {
		return name
	}
	return DefaultDatabase
}
