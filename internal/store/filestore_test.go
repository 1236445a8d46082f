package store_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/orrn/printflow/internal/core"
	"github.com/orrn/printflow/internal/store"
)

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "queue.json")
	fs := store.NewFileStore(path)

	attemptAt := time.Date(2025, 1, 15, 10, 30, 0, 0, time.UTC)
	jobs := []*core.QueuedJob{
		{
			ID: "1736932200000-aaaa",
			Job: &core.PrintJob{
				FileURL:        "http://orders.local/files/a.pdf",
				DisplayName:    "a.pdf",
				DeliveryNumber: "A2025011511",
				Options: core.PrintOptions{
					PageSize:  core.PageSizeA4,
					ColorMode: core.ColorModeMixed,
					Sided:     core.SidedSingle,
					Copies:    2,
					PageCount: 10,
					PageColors: &core.PageColorAssignment{
						ColorPages: []int{2, 3, 7},
					},
				},
			},
			PrinterIndex:  1,
			Attempts:      4,
			CreatedAt:     attemptAt.Add(-time.Hour),
			LastAttemptAt: &attemptAt,
		},
		{
			ID:           "1736932201000-bbbb",
			Job:          &core.PrintJob{FileURL: "http://orders.local/files/b.pdf", DisplayName: "b.pdf"},
			PrinterIndex: 1,
			CreatedAt:    attemptAt,
		},
	}

	require.NoError(t, fs.Save(jobs))

	loaded, err := fs.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, jobs[0].ID, loaded[0].ID)
	assert.Equal(t, 4, loaded[0].Attempts)
	assert.Equal(t, "A2025011511", loaded[0].Job.DeliveryNumber)
	assert.Equal(t, []int{2, 3, 7}, loaded[0].Job.Options.PageColors.ColorPages)
	require.NotNil(t, loaded[0].LastAttemptAt)
	assert.True(t, loaded[0].LastAttemptAt.Equal(attemptAt))
	assert.Equal(t, jobs[1].ID, loaded[1].ID)
}

func TestFileStore_MissingFileIsEmptyQueue(t *testing.T) {
	fs := store.NewFileStore(filepath.Join(t.TempDir(), "missing.json"))

	jobs, err := fs.Load()
	require.NoError(t, err)
	assert.Nil(t, jobs)
}

func TestFileStore_CorruptFileReportsError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := store.NewFileStore(path).Load()
	require.Error(t, err)
}

func TestFileStore_SaveRewritesWholesale(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.json")
	fs := store.NewFileStore(path)

	require.NoError(t, fs.Save([]*core.QueuedJob{
		{ID: "a", Job: &core.PrintJob{FileURL: "u"}},
		{ID: "b", Job: &core.PrintJob{FileURL: "u"}},
	}))
	require.NoError(t, fs.Save(nil))

	jobs, err := fs.Load()
	require.NoError(t, err)
	assert.Empty(t, jobs)

	// No temp files left behind.
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "queue.json", entries[0].Name())
}
