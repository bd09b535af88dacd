package journal_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/SleepAsSinDev/sleepassin-pos-app/internal/journal"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *journal.Repository {
	// Use in-memory database for tests
	repo, err := journal.NewRepository(":memory:")
	require.NoError(t, err)

	require.NoError(t, repo.RunMigrations("./migrations"))
	t.Cleanup(func() { repo.Close() })

	return repo
}

func record(t *testing.T, repo *journal.Repository, s journal.Submission) journal.Submission {
	t.Helper()
	saved, err := repo.Record(context.Background(), s)
	require.NoError(t, err)
	return saved
}

func TestRunMigrations_IsIdempotent(t *testing.T) {
	repo := setupTestDB(t)
	assert.NoError(t, repo.RunMigrations("./migrations"))
}

func TestRunEmbeddedMigrations(t *testing.T) {
	repo, err := journal.NewRepository(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	require.NoError(t, repo.RunEmbeddedMigrations())
	assert.NoError(t, repo.RunEmbeddedMigrations())

	saved := record(t, repo, journal.Submission{
		SessionID: "s-1",
		Payload:   json.RawMessage(`{"items":[]}`),
		Status:    journal.StatusAccepted,
		OrderID:   "ord-1",
	})
	recent, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, saved.ID, recent[0].ID)
}

func TestRecord_AssignsIDAndRoundTrips(t *testing.T) {
	repo := setupTestDB(t)
	created := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)

	saved := record(t, repo, journal.Submission{
		SessionID:    "s-1",
		TerminalID:   "till-2",
		Payload:      json.RawMessage(`{"items":[{"product_id":"A","quantity":2,"selected_options":[]}]}`),
		DisplayTotal: decimal.RequireFromString("110.50"),
		Status:       journal.StatusAccepted,
		OrderID:      "ord-9",
		CreatedAt:    created,
	})
	assert.NotEmpty(t, saved.ID)

	recent, err := repo.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)

	got := recent[0]
	assert.Equal(t, saved.ID, got.ID)
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, "till-2", got.TerminalID)
	assert.JSONEq(t, string(saved.Payload), string(got.Payload))
	assert.True(t, decimal.RequireFromString("110.5").Equal(got.DisplayTotal))
	assert.Equal(t, journal.StatusAccepted, got.Status)
	assert.Equal(t, "ord-9", got.OrderID)
	assert.False(t, got.Published)
	assert.True(t, created.Equal(got.CreatedAt))
}

func TestRecent_NewestFirstWithLimit(t *testing.T) {
	repo := setupTestDB(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	for i, id := range []string{"a", "b", "c"} {
		record(t, repo, journal.Submission{
			ID:        id,
			SessionID: "s-1",
			Status:    journal.StatusFailed,
			Error:     "backend unavailable",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		})
	}

	recent, err := repo.Recent(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "c", recent[0].ID)
	assert.Equal(t, "b", recent[1].ID)
	assert.Equal(t, "backend unavailable", recent[0].Error)
}

func TestUnpublished_OnlyAcceptedOldestFirst(t *testing.T) {
	repo := setupTestDB(t)
	base := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	record(t, repo, journal.Submission{ID: "late", Status: journal.StatusAccepted, OrderID: "o-2", CreatedAt: base.Add(time.Hour)})
	record(t, repo, journal.Submission{ID: "failed", Status: journal.StatusFailed, CreatedAt: base})
	record(t, repo, journal.Submission{ID: "early", Status: journal.StatusAccepted, OrderID: "o-1", CreatedAt: base})

	pending, err := repo.Unpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "early", pending[0].ID)
	assert.Equal(t, "late", pending[1].ID)

	require.NoError(t, repo.MarkPublished(context.Background(), "early"))

	pending, err = repo.Unpublished(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "late", pending[0].ID)
}

func TestMarkPublished_UnknownID(t *testing.T) {
	repo := setupTestDB(t)

	err := repo.MarkPublished(context.Background(), "missing")
	assert.ErrorIs(t, err, journal.ErrSubmissionNotFound)
}

func TestRecent_CancelledContext(t *testing.T) {
	repo := setupTestDB(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := repo.Recent(ctx, 10)
	assert.Error(t, err)
}
