package storage

import (
	"bytes"
	"context"
	"image/png"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/plate.report/internal/alpr"
	"github.com/banshee-data/plate.report/internal/alpr/results"
	"github.com/banshee-data/plate.report/internal/testutil"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := OpenAndMigrate(filepath.Join(t.TempDir(), "plates.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func sampleEntries() []results.Entry {
	s := results.NewStore()
	s.Put(0, 3, results.Outcome{
		Text:       "AB12CDE",
		Confidence: 0.91,
		Crop:       testutil.SyntheticPlate(24, 8),
		Plate:      alpr.Detection{Box: alpr.NewBox(10, 20, 34, 28), Score: 0.8},
	})
	s.Put(0, 1, results.Outcome{Text: "XY99ZZZ", Confidence: 0.6})
	s.Put(2, 3, results.Outcome{Text: "AB12CDE", Confidence: 0.7})
	return s.Entries()
}

func sampleRun(id string, started time.Time) Run {
	return Run{
		ID:         id,
		Source:     "testdata/clip.mp4",
		Mode:       alpr.ModeWithVehicleAssociation,
		MaxFrames:  10,
		ConfigJSON: `{"mode":"with-vehicle-association"}`,
		StartedAt:  started,
		FinishedAt: started.Add(2 * time.Second),
		Frames:     3,
		Candidates: 5,
		Stored:     3,
		StopReason: "end_of_stream",
		StatusCounts: map[string]int{
			"stored":     3,
			"unassigned": 1,
			"no_text":    1,
		},
	}
}

func TestMigrateVersion(t *testing.T) {
	db := openTestDB(t)

	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
	assert.False(t, dirty)

	// Already current.
	require.NoError(t, db.MigrateUp())

	require.NoError(t, db.MigrateDown())
	v, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)

	require.NoError(t, db.MigrateUp())
	v, _, err = db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(2), v)
}

func TestMigrateVersion_FreshDatabase(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "fresh.db"))
	require.NoError(t, err)
	defer db.Close()

	v, dirty, err := db.MigrateVersion()
	require.NoError(t, err)
	assert.Equal(t, uint(0), v)
	assert.False(t, dirty)
}

func TestSaveRun_RoundTrip(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run := sampleRun(NewRunID(), started)

	require.NoError(t, db.SaveRun(ctx, run, sampleEntries()))

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, run.Source, got.Source)
	assert.Equal(t, alpr.ModeWithVehicleAssociation, got.Mode)
	assert.True(t, got.StartedAt.Equal(started))
	assert.True(t, got.FinishedAt.Equal(run.FinishedAt))
	assert.Equal(t, 3, got.Stored)
	assert.Equal(t, run.StatusCounts, got.StatusCounts)

	reads, err := db.PlateReads(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, reads, 3)

	assert.Equal(t, 0, reads[0].Frame)
	assert.Equal(t, 3, reads[0].TrackID)
	assert.Equal(t, 0, reads[0].Seq)
	assert.Equal(t, "AB12CDE", reads[0].Text)
	assert.InDelta(t, 34.0, reads[0].Plate.Box.X2, 1e-9)
	img, err := png.Decode(bytes.NewReader(reads[0].CropPNG))
	require.NoError(t, err)
	assert.Equal(t, 24, img.Bounds().Dx())

	assert.Equal(t, 1, reads[1].TrackID)
	assert.Equal(t, 1, reads[1].Seq)
	assert.Empty(t, reads[1].CropPNG)

	assert.Equal(t, 2, reads[2].Frame)
	assert.Equal(t, 0, reads[2].Seq)
}

func TestSaveRun_DuplicateIDRollsBack(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	run := sampleRun(NewRunID(), time.Unix(100, 0))

	require.NoError(t, db.SaveRun(ctx, run, sampleEntries()))
	err := db.SaveRun(ctx, run, sampleEntries())
	require.Error(t, err)

	reads, err := db.PlateReads(ctx, run.ID)
	require.NoError(t, err)
	assert.Len(t, reads, 3)
}

func TestSaveRun_RequiresID(t *testing.T) {
	db := openTestDB(t)
	assert.Error(t, db.SaveRun(context.Background(), Run{}, nil))
}

func TestGetRun_NotFound(t *testing.T) {
	db := openTestDB(t)
	_, err := db.GetRun(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRunsAndFindByText(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	older := sampleRun("run-a", time.Unix(1000, 0))
	newer := sampleRun("run-b", time.Unix(2000, 0))
	require.NoError(t, db.SaveRun(ctx, older, sampleEntries()))
	require.NoError(t, db.SaveRun(ctx, newer, sampleEntries()[:1]))

	runs, err := db.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-b", runs[0].ID)
	assert.Equal(t, "run-a", runs[1].ID)

	runs, err = db.ListRuns(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "run-b", runs[0].ID)

	reads, err := db.FindByText(ctx, "AB12CDE")
	require.NoError(t, err)
	require.Len(t, reads, 3)
	assert.Equal(t, "run-b", reads[0].RunID)
	assert.Equal(t, "run-a", reads[1].RunID)
	assert.Equal(t, 0, reads[1].Frame)
	assert.Equal(t, 2, reads[2].Frame)

	none, err := db.FindByText(ctx, "NOPE")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestNewRunID_Unique(t *testing.T) {
	assert.NotEqual(t, NewRunID(), NewRunID())
}
