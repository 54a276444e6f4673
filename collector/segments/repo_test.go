package segments

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/mattn/go-sqlite3"
)

func setupTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteRepository(db)
	require.NoError(t, err)
	return repo
}

func testRecord(id string, receivedAt time.Time) *Record {
	return &Record{
		ID:         id,
		Filename:   id + ".avi",
		Size:       1024,
		MimeType:   "video/x-msvideo",
		Width:      640,
		Height:     480,
		ReceivedAt: receivedAt,
	}
}

func TestSQLiteRepositoryAddAndGet(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	received := time.Date(2026, 8, 27, 12, 0, 0, 123456000, time.UTC)

	require.NoError(t, repo.Add(ctx, testRecord("seg-1", received)))

	got, err := repo.GetByID(ctx, "seg-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "seg-1.avi", got.Filename)
	assert.Equal(t, int64(1024), got.Size)
	assert.Equal(t, "video/x-msvideo", got.MimeType)
	assert.Equal(t, 640, got.Width)
	assert.Equal(t, 480, got.Height)
	assert.True(t, got.ReceivedAt.Equal(received))
}

func TestSQLiteRepositoryGetMissing(t *testing.T) {
	repo := setupTestRepo(t)

	got, err := repo.GetByID(context.Background(), "nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteRepositoryListNewestFirst(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()
	base := time.Date(2026, 8, 27, 12, 0, 0, 0, time.UTC)

	require.NoError(t, repo.Add(ctx, testRecord("old", base)))
	require.NoError(t, repo.Add(ctx, testRecord("new", base.Add(time.Hour))))
	require.NoError(t, repo.Add(ctx, testRecord("mid", base.Add(30*time.Minute))))

	records, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "new", records[0].ID)
	assert.Equal(t, "mid", records[1].ID)
	assert.Equal(t, "old", records[2].ID)
}

func TestSQLiteRepositoryDelete(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testRecord("seg-1", time.Now().UTC())))
	require.NoError(t, repo.Delete(ctx, "seg-1"))

	got, err := repo.GetByID(ctx, "seg-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSQLiteRepositoryDuplicateID(t *testing.T) {
	repo := setupTestRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.Add(ctx, testRecord("seg-1", time.Now().UTC())))
	assert.Error(t, repo.Add(ctx, testRecord("seg-1", time.Now().UTC())))
}
