package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/spatial/r3"

	"github.com/banshee-data/reanchor/internal/relocate"
)

func TestPlacementLogAppendAndList(t *testing.T) {
	database := newTestDB(t)
	records := NewRecordStore(database.DB)
	log := NewPlacementLog(database.DB)
	ctx := context.Background()

	// The log has a foreign key to anchor_records.
	require.NoError(t, records.InsertRecord(ctx, sampleRecord("rec-1", 1, 1)))

	now := time.Now()
	first := relocate.PlacedAnchor{
		ID:            "rec-1",
		Transform:     relocate.TranslationTransform(r3.Vec{X: 1}),
		Confidence:    0.8,
		PlacedAtNanos: now.UnixNano(),
	}
	second := relocate.PlacedAnchor{
		ID:            "rec-1",
		Transform:     relocate.TranslationTransform(r3.Vec{X: 2}),
		Confidence:    0.95,
		PlacedAtNanos: now.Add(time.Second).UnixNano(),
	}

	require.NoError(t, log.Append(ctx, first))
	require.NoError(t, log.Append(ctx, second))

	entries, err := log.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Ordered by placement time.
	assert.Equal(t, 0.8, entries[0].Confidence)
	assert.Equal(t, 0.95, entries[1].Confidence)
	assert.Equal(t, "rec-1", entries[0].RecordID)
	assert.NotEqual(t, entries[0].PlacementID, entries[1].PlacementID)
	assert.Equal(t, first.Transform, entries[0].Transform)
}

func TestPlacementLogEmpty(t *testing.T) {
	log := NewPlacementLog(newTestDB(t).DB)

	entries, err := log.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries)
}
