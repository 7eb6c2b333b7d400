package detection

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSnapshot_SurvivesNextPass(t *testing.T) {
	d := newDetector(t, DefaultConfig())
	res, err := d.Detect(rows(nested...))
	require.NoError(t, err)
	snap := res.Snapshot()

	want := make([]RegionSnapshot, len(snap.Regions))
	for i, r := range snap.Regions {
		want[i] = r
		want[i].Runs = append([]Span(nil), r.Runs...)
	}

	_, err = d.Detect(randomGrid(9, 40, 40, 5))
	require.NoError(t, err)

	if diff := cmp.Diff(want, snap.Regions); diff != "" {
		t.Errorf("snapshot changed by a later pass (-before +after):\n%s", diff)
	}
	assert.Equal(t, res.FrameID, snap.FrameID)
}

func TestSnapshot_CopiesDescriptors(t *testing.T) {
	res := detect(t, DefaultConfig(), rows(nested...))
	snap := res.Snapshot()
	require.Len(t, snap.Regions, len(res.Regions))

	for i, r := range res.Regions {
		s := snap.Regions[i]
		assert.Equal(t, r.ID(), s.ID)
		assert.Equal(t, int64(r.Value()), s.Value)
		assert.Equal(t, r.Size(), s.Size())
		assert.Equal(t, r.Bounds(), s.Bounds)
		assert.Equal(t, r.COG(), s.COG)
		assert.Equal(t, r.Descriptors(), s.Descriptors)
		assert.Equal(t, r.BoundaryLength(), s.BoundaryLength())
		assert.Equal(t, r.FormFactor(), s.FormFactor())
		assert.Equal(t, r.PCA(), s.PCA())
		assert.Equal(t, r.TouchesBorder(), s.TouchesBorder)
		assert.True(t, s.HasGraph)
		assert.Len(t, s.Runs, r.RunCount())
	}

	b := regionByValue(t, res, 'B')
	sb := snap.Regions[b.ID()]
	require.NotNil(t, sb.ParentID)
	assert.Equal(t, regionByValue(t, res, 'A').ID(), *sb.ParentID)
	assert.Equal(t, []int{regionByValue(t, res, 'C').ID(), regionByValue(t, res, 'D').ID()}, sb.ChildIDs)
	assert.Equal(t, []int{0, 2, 3}, sb.NeighbourIDs)
}

func TestSnapshot_WithoutGraph(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CreateGraph = false
	snap := detect(t, cfg, rows(nested...)).Snapshot()
	for _, s := range snap.Regions {
		assert.False(t, s.HasGraph)
		assert.Nil(t, s.NeighbourIDs)
		assert.Nil(t, s.ParentID)
	}
}

func TestSnapshot_RegionAtAndFilter(t *testing.T) {
	snap := detect(t, withBG(), rows(
		"AA.B",
		"AA.B",
	)).Snapshot()

	r := snap.RegionAt(1, 1)
	require.NotNil(t, r)
	assert.Equal(t, int64('A'), r.Value)
	assert.Nil(t, snap.RegionAt(2, 0))
	assert.Nil(t, snap.RegionAt(9, 9))

	got, err := snap.Filter(FilterSpec{Size: AtLeast(3)})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, int64('A'), got[0].Value)

	byID, ok := snap.Region(1)
	require.True(t, ok)
	assert.Equal(t, int64('B'), byID.Value)
	_, ok = snap.Region(2)
	assert.False(t, ok)
}

func TestSnapshot_JSON(t *testing.T) {
	// single pixel regions have an infinite axis ratio, which must not leak
	// into the encoding
	snap := detect(t, DefaultConfig(), rows("AB")).Snapshot()
	data, err := json.Marshal(snap)
	require.NoError(t, err)

	var back Snapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, snap.FrameID, back.FrameID)
	require.Len(t, back.Regions, 2)
	assert.Equal(t, snap.Regions[1].Runs, back.Regions[1].Runs)
}
