//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/pendergraft/berarelay/internal/config"
	"github.com/pendergraft/berarelay/internal/explorer"
	"github.com/pendergraft/berarelay/internal/explorer/explorertest"
	"github.com/pendergraft/berarelay/internal/relay"
	"github.com/pendergraft/berarelay/internal/resolver"
	"github.com/pendergraft/berarelay/internal/storage"
	"github.com/pendergraft/berarelay/internal/workspace"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// TestContext holds shared test infrastructure
type TestContext struct {
	PostgresContainer *postgres.PostgresContainer
	ConnString        string
	Store             storage.HistoryStore
	Explorer          *explorertest.Server
}

// setupPostgresE starts a Postgres container and returns the connection string
func setupPostgresE(ctx context.Context) (*postgres.PostgresContainer, string, error) {
	postgresContainer, err := postgres.RunContainer(ctx,
		testcontainers.WithImage("postgres:16-alpine"),
		postgres.WithDatabase("berarelay"),
		postgres.WithUsername("berarelay"),
		postgres.WithPassword("berarelay"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second)),
	)
	if err != nil {
		return nil, "", fmt.Errorf("failed to start postgres container: %w", err)
	}

	connString, err := postgresContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = postgresContainer.Terminate(ctx)
		return nil, "", fmt.Errorf("failed to get postgres connection string: %w", err)
	}

	return postgresContainer, connString, nil
}

// openStoreE opens and migrates the Postgres history store the way the CLI does
func openStoreE(ctx context.Context, connString string) (storage.HistoryStore, error) {
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	return storage.Open(ctx, config.HistoryConfig{Type: "postgres", PostgresURL: connString}, logger)
}

// uniqueAddress returns a fresh address so tests sharing the database and
// fake explorer do not see each other's rows
func uniqueAddress() string {
	id := uuid.New()
	return fmt.Sprintf("0x%x%x", id[:], id[:4])
}

// newPipeline builds a pipeline against the shared fake explorer and store
func newPipeline(t *testing.T, opts relay.Options) *relay.Pipeline {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	srv := testCtx.Explorer
	lookup := explorer.NewLookupClient(srv.LookupURL(), "mainnet", 80094, explorer.WithLogger(logger))
	verify := explorer.NewVerifyClient(srv.VerifyURL(), "https://berascan.com", explorer.WithLogger(logger))

	return relay.New(
		lookup,
		verify,
		workspace.New(t.TempDir()),
		resolver.New(resolver.ByHint, logger),
		testCtx.Store,
		opts,
		logger,
	)
}
