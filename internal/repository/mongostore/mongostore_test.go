package mongostore

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/RamanBirulia/stock-notebook/internal/repository"
	"github.com/RamanBirulia/stock-notebook/internal/repository/storetest"
)

// Set TEST_MONGO_URL to run against a live server, e.g.
// mongodb://localhost:27017.
func TestStore(t *testing.T) {
	url := os.Getenv("TEST_MONGO_URL")
	if url == "" {
		t.Skip("TEST_MONGO_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(url))
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	t.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	n := 0
	storetest.Run(t, func(t *testing.T) repository.Store {
		n++
		s := New(client, fmt.Sprintf("stock_notebook_test_%d_%d", time.Now().UnixNano(), n))
		if err := s.EnsureIndexes(context.Background()); err != nil {
			t.Fatalf("EnsureIndexes: %v", err)
		}
		t.Cleanup(func() { _ = s.Drop(context.Background()) })
		return s
	})
}
