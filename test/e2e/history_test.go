//go:build e2e

package e2e

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pendergraft/berarelay/internal/storage"
)

func TestPostgresHistory_RecordAndGet(t *testing.T) {
	ctx := context.Background()
	created := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	sub := &storage.Submission{
		RunID:           uuid.New().String(),
		Address:         uniqueAddress(),
		ChainID:         80094,
		ContractName:    "src/Honey.sol:Honey",
		NameSource:      "resolver",
		CompilerVersion: "v0.8.24+commit.e11b9ed9",
		Status:          "1",
		Message:         "OK",
		Result:          "abc-guid",
		Accepted:        true,
		CreatedAt:       created,
	}
	require.NoError(t, testCtx.Store.RecordSubmission(ctx, sub))
	require.NotEmpty(t, sub.ID)

	got, err := testCtx.Store.GetSubmission(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, sub.Address, got.Address)
	assert.Equal(t, sub.RunID, got.RunID)
	assert.Equal(t, "src/Honey.sol:Honey", got.ContractName)
	assert.Equal(t, "abc-guid", got.Result)
	assert.True(t, got.Accepted)
	assert.WithinDuration(t, created, got.CreatedAt, time.Millisecond)
}

func TestPostgresHistory_GetMissing(t *testing.T) {
	_, err := testCtx.Store.GetSubmission(context.Background(), uuid.New().String())
	assert.True(t, errors.Is(err, storage.ErrNotFound))
}

func TestPostgresHistory_ListFilterAndOrder(t *testing.T) {
	ctx := context.Background()
	address := uniqueAddress()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 3; i++ {
		require.NoError(t, testCtx.Store.RecordSubmission(ctx, &storage.Submission{
			Address:      address,
			ChainID:      80094,
			ContractName: "Contract",
			Status:       "0",
			Result:       "already verified",
			CreatedAt:    base.Add(time.Duration(i) * time.Minute),
		}))
	}

	// Filtering ignores checksum casing
	result, err := testCtx.Store.ListSubmissions(ctx,
		storage.SubmissionFilter{Address: "0x" + strings.ToUpper(address[2:])},
		storage.PaginationParams{Limit: 10})
	require.NoError(t, err)
	require.Len(t, result.Data, 3)
	assert.False(t, result.HasMore)
	for i := 1; i < len(result.Data); i++ {
		assert.False(t, result.Data[i].CreatedAt.After(result.Data[i-1].CreatedAt), "not newest first at %d", i)
	}

	page, err := testCtx.Store.ListSubmissions(ctx, storage.SubmissionFilter{Address: address}, storage.PaginationParams{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.True(t, page.HasMore)

	other, err := testCtx.Store.ListSubmissions(ctx, storage.SubmissionFilter{Address: address, ChainID: 80069}, storage.PaginationParams{})
	require.NoError(t, err)
	assert.Empty(t, other.Data)
}

func TestPostgresHistory_MigrateIdempotent(t *testing.T) {
	assert.NoError(t, testCtx.Store.Migrate(context.Background()))
}
