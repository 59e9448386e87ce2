package persistence

import (
	"context"
	"fmt"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/iota-uz/perfeval/pkg/logging"
)

func setupMongoStore(tb testing.TB) *MongoStore {
	tb.Helper()

	uri := envOr("MONGO_URI", "mongodb://localhost:27017/?replicaSet=rs0")
	parsed, err := url.Parse(uri)
	require.NoError(tb, err)
	port := parsed.Port()
	if port == "" {
		port = "27017"
	}
	if !canDial(tb, parsed.Hostname(), port) {
		if isCI() {
			tb.Fatalf("mongo is not reachable (MONGO_URI).")
		}
		tb.Skip("mongo is not reachable; skipping mongo store integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := ConnectMongo(ctx, uri)
	require.NoError(tb, err)
	tb.Cleanup(func() { _ = client.Disconnect(context.Background()) })

	dbName := fmt.Sprintf("perfeval_test_%d", time.Now().UnixNano())
	store := NewMongoStore(client, dbName, logging.Discard())
	tb.Cleanup(func() { _ = store.db.Drop(context.Background()) })

	require.NoError(tb, store.EnsureIndexes(ctx))
	return store
}

func TestMongoStoreContract(t *testing.T) {
	runStoreContract(t, setupMongoStore(t))
}
