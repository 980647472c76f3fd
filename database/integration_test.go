package database

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"qrmenu/config"
)

func TestMongoStore(t *testing.T) {
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}

	ctx := context.Background()
	cfg := config.DatabaseConfig{
		Driver:        "mongo",
		MongoURI:      uri,
		MongoDatabase: fmt.Sprintf("qrmenu_test_%d", time.Now().UnixNano()),
		Timeout:       10 * time.Second,
	}
	s, err := NewMongoStore(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.database.Drop(ctx)
		_ = s.Close(ctx)
	})

	testStore(t, s)
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("POSTGRES_TEST_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_TEST_DSN not set")
	}

	ctx := context.Background()
	s, err := NewPostgresStore(config.DatabaseConfig{Driver: "postgres", PostgresDSN: dsn}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		s.db.Exec("TRUNCATE tables, menu_items, orders, feedbacks, waiter_calls")
		_ = s.Close(ctx)
	})
	s.db.Exec("TRUNCATE tables, menu_items, orders, feedbacks, waiter_calls")

	testStore(t, s)
}

func TestInitDatabaseMemory(t *testing.T) {
	s, err := InitDatabase(context.Background(), config.DatabaseConfig{Driver: "memory", Timeout: time.Second}, zap.NewNop())
	require.NoError(t, err)
	require.IsType(t, &MemoryStore{}, s)

	_, err = InitDatabase(context.Background(), config.DatabaseConfig{Driver: "sqlite", Timeout: time.Second}, zap.NewNop())
	require.Error(t, err)
}
