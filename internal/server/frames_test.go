package server

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
)

func newFrame() *frame {
	return &frame{snap: &detection.Snapshot{FrameID: uuid.New(), Width: 1, Height: 1}}
}

func TestFrameStore(t *testing.T) {
	fs := newFrameStore(2)
	a, b, c := newFrame(), newFrame(), newFrame()

	fs.put(a)
	fs.put(b)
	got, err := fs.get(a.snap.FrameID.String())
	require.NoError(t, err)
	assert.Same(t, a, got)

	// the oldest frame goes first
	fs.put(c)
	assert.Equal(t, 2, fs.len())
	_, err = fs.get(a.snap.FrameID.String())
	assert.Error(t, err)
	for _, f := range []*frame{b, c} {
		got, err := fs.get(f.snap.FrameID.String())
		require.NoError(t, err)
		assert.Same(t, f, got)
	}
}

func TestFrameStore_Replace(t *testing.T) {
	fs := newFrameStore(2)
	a := newFrame()
	fs.put(a)

	again := &frame{snap: a.snap, path: "other.png"}
	fs.put(again)
	assert.Equal(t, 1, fs.len())
	assert.Len(t, fs.order, 1)

	got, err := fs.get(a.snap.FrameID.String())
	require.NoError(t, err)
	assert.Equal(t, "other.png", got.path)
}

func TestFrameStore_InvalidID(t *testing.T) {
	fs := newFrameStore(0)
	assert.Equal(t, defaultFrameLimit, fs.limit)

	_, err := fs.get("frame-1")
	assert.ErrorContains(t, err, "invalid frame id")
	_, err = fs.get(uuid.NewString())
	assert.ErrorContains(t, err, "unknown frame")
}
