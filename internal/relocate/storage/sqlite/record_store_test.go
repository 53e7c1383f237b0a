package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/reanchor/internal/relocate"
)

func sampleRecord(id string, lat, lon float64) *relocate.SavedAnchorRecord {
	return &relocate.SavedAnchorRecord{
		ID:        id,
		Transform: relocate.TranslationTransform(r3.Vec{X: 1, Y: 2, Z: 0.5}),
		Location: &relocate.Geolocation{
			Latitude:           lat,
			Longitude:          lon,
			Altitude:           12,
			HorizontalAccuracy: 5,
		},
		ContentID: "content-" + id,
	}
}

func TestRecordStoreInsertAndGet(t *testing.T) {
	store := NewRecordStore(newTestDB(t).DB)
	ctx := context.Background()

	scale := 2.0
	record := sampleRecord("rec-1", 37.7749, -122.4194)
	record.Scale = &scale
	record.OrientationOverride = &[4]float64{1, 0, 0, 0}

	require.NoError(t, store.InsertRecord(ctx, record))
	assert.NotZero(t, record.CreatedAtNanos, "insert should stamp creation time")

	got, err := store.GetRecord(ctx, "rec-1")
	require.NoError(t, err)
	if diff := cmp.Diff(record, got); diff != "" {
		t.Errorf("stored record mismatch (-want +got):\n%s", diff)
	}
}

func TestRecordStoreGeneratesID(t *testing.T) {
	store := NewRecordStore(newTestDB(t).DB)

	record := sampleRecord("", 0, 0)
	require.NoError(t, store.InsertRecord(context.Background(), record))
	assert.NotEmpty(t, record.ID, "insert should assign a UUID")
}

func TestRecordStoreGetMissing(t *testing.T) {
	store := NewRecordStore(newTestDB(t).DB)

	_, err := store.GetRecord(context.Background(), "nope")
	assert.True(t, errors.Is(err, sql.ErrNoRows), "expected sql.ErrNoRows, got %v", err)
}

func TestRecordStoreListNear(t *testing.T) {
	store := NewRecordStore(newTestDB(t).DB)
	ctx := context.Background()

	// Ferry Building and a point ~1 km away, plus one across the bay.
	require.NoError(t, store.InsertRecord(ctx, sampleRecord("close", 37.7955, -122.3937)))
	require.NoError(t, store.InsertRecord(ctx, sampleRecord("kilometer", 37.8045, -122.3937)))
	require.NoError(t, store.InsertRecord(ctx, sampleRecord("faraway", 37.8044, -122.2708)))

	// A record without geolocation must never match.
	noLoc := sampleRecord("no-location", 0, 0)
	noLoc.Location = nil
	require.NoError(t, store.InsertRecord(ctx, noLoc))

	center := relocate.Geolocation{Latitude: 37.7955, Longitude: -122.3937}

	got, err := store.ListNear(ctx, center, 200)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "close", got[0].ID)

	got, err = store.ListNear(ctx, center, 2000)
	require.NoError(t, err)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.ElementsMatch(t, []string{"close", "kilometer"}, ids)
}

func TestRecordStoreDelete(t *testing.T) {
	store := NewRecordStore(newTestDB(t).DB)
	ctx := context.Background()

	require.NoError(t, store.InsertRecord(ctx, sampleRecord("rec-1", 1, 1)))
	require.NoError(t, store.DeleteRecord(ctx, "rec-1"))

	_, err := store.GetRecord(ctx, "rec-1")
	assert.True(t, errors.Is(err, sql.ErrNoRows))

	// Deleting a missing record is not an error.
	assert.NoError(t, store.DeleteRecord(ctx, "rec-1"))
}
