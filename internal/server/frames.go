package server

import (
	"fmt"
	"image"
	"sync"

	"github.com/google/uuid"

	"github.com/ironsheep/region-tools-mcp/internal/detection"
	"github.com/ironsheep/region-tools-mcp/internal/imaging"
)

const defaultFrameLimit = 32

// frame is one stored detection result with what produced it.
type frame struct {
	snap   *detection.Snapshot
	image  *image.NRGBA // prepared image the regions refer to
	labels []imaging.ClassLabel
	path   string
}

// frameStore keeps the most recent detection results. When full, the oldest
// frame is dropped.
type frameStore struct {
	mu     sync.RWMutex
	limit  int
	frames map[uuid.UUID]*frame
	order  []uuid.UUID
}

func newFrameStore(limit int) *frameStore {
	if limit <= 0 {
		limit = defaultFrameLimit
	}
	return &frameStore{limit: limit, frames: make(map[uuid.UUID]*frame)}
}

func (fs *frameStore) put(f *frame) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	id := f.snap.FrameID
	if _, ok := fs.frames[id]; !ok {
		for len(fs.order) >= fs.limit {
			delete(fs.frames, fs.order[0])
			fs.order = fs.order[1:]
		}
		fs.order = append(fs.order, id)
	}
	fs.frames[id] = f
}

// get looks up a frame by its textual id.
func (fs *frameStore) get(id string) (*frame, error) {
	u, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid frame id %q: %w", id, err)
	}
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	f, ok := fs.frames[u]
	if !ok {
		return nil, fmt.Errorf("unknown frame %s (expired or never detected)", id)
	}
	return f, nil
}

func (fs *frameStore) len() int {
	fs.mu.RLock()
	defer fs.mu.RUnlock()
	return len(fs.frames)
}
