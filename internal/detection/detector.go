package detection

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ironsheep/region-tools-mcp/internal/pool"
)

// Detector finds the regions of classified images, one image per call.
//
// A Detector owns three record pools (runs, merge-tree nodes and regions)
// that are reset at the start of every pass and grow as needed, so a
// detector reused across the frames of a video stream settles at a steady
// capacity and stops allocating. Call Shrink to give memory back after an
// unusually large frame.
//
// A Detector runs one pass at a time. Detect returns ErrBusy when called
// while another pass on the same detector is in progress; use one detector
// per goroutine for parallel processing.
type Detector[V Value] struct {
	cfg Config
	log zerolog.Logger

	runs    *pool.Pool[runSlot[V]]
	parts   *pool.Pool[part]
	regions *pool.Pool[Region[V]]

	// per pass scratch
	rowStart  []int
	prevRoots []pool.Handle
	curRoots  []pool.Handle
	matched   []pool.Handle
	stack     []pool.Handle
	frame     frame[V]
	stats     passStats

	busy atomic.Bool
}

type passStats struct {
	unions int
}

// Option customizes a Detector.
type Option func(*options)

type options struct {
	log zerolog.Logger
}

// WithLogger sets the logger for pass diagnostics. The default discards
// everything.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.log = l }
}

// New creates a detector for value type V.
func New[V Value](cfg Config, opts ...Option) (*Detector[V], error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid detector config: %w", err)
	}
	o := options{log: zerolog.Nop()}
	for _, opt := range opts {
		opt(&o)
	}

	po := cfg.poolOptions()
	runs, err := pool.New[runSlot[V]](po)
	if err != nil {
		return nil, err
	}
	parts, err := pool.New[part](po)
	if err != nil {
		return nil, err
	}
	regions, err := pool.New[Region[V]](po)
	if err != nil {
		return nil, err
	}

	return &Detector[V]{
		cfg:     cfg,
		log:     o.log,
		runs:    runs,
		parts:   parts,
		regions: regions,
	}, nil
}

// Config returns the detector's configuration.
func (d *Detector[V]) Config() Config { return d.cfg }

// Result is the outcome of one pass.
//
// Regions and everything reachable from them belong to the detector and
// stay valid until its next Detect call. Use Snapshot to keep a copy.
type Result[V Value] struct {
	FrameID uuid.UUID
	Width   int
	Height  int

	// Regions in discovery order; Regions[i].ID() == i.
	Regions []*Region[V]

	// Runs is the number of runs extracted, Unions the number of merges of
	// previously separate trees.
	Runs   int
	Unions int
}

type stageTime struct {
	name string
	d    time.Duration
}

// Detect runs one complete pass over src: run extraction, merge-forest
// construction, region assembly and, if configured, the adjacency graph.
//
// The pass is all or nothing. On error no regions are returned and the
// regions of the previous pass are no longer valid.
//
// # Errors
//
//   - ErrBusy if another pass on d is running
//   - ErrInvalidInput for non-positive dimensions, missing rows or rows of
//     the wrong width, before anything is allocated
//   - ErrResourceExhausted if a pool reached its maximum capacity
//   - ErrInconsistentState if the merge forest is corrupt
func (d *Detector[V]) Detect(src Source[V]) (*Result[V], error) {
	if !d.busy.CompareAndSwap(false, true) {
		return nil, ErrBusy
	}
	defer d.busy.Store(false)

	w, h, err := validateSource(src)
	if err != nil {
		return nil, err
	}
	d.reset(w, h)

	var stages []stageTime
	start := time.Now()
	last := start
	lap := func(name string) {
		if !d.cfg.TrackTimes {
			return
		}
		now := time.Now()
		stages = append(stages, stageTime{name, now.Sub(last)})
		last = now
	}

	if err := d.pass(src, h, lap); err != nil {
		d.frame.regions = d.frame.regions[:0]
		d.log.Warn().Err(err).Str("frame", d.frame.id.String()).Msg("region detection failed")
		return nil, err
	}

	res := &Result[V]{
		FrameID: d.frame.id,
		Width:   w,
		Height:  h,
		Regions: d.frame.regions,
		Runs:    d.runs.Len(),
		Unions:  d.stats.unions,
	}

	if d.cfg.TrackTimes {
		ev := d.log.Debug().
			Str("frame", res.FrameID.String()).
			Int("width", w).
			Int("height", h).
			Int("runs", res.Runs).
			Int("regions", len(res.Regions))
		for _, s := range stages {
			ev = ev.Dur(s.name, s.d)
		}
		ev.Dur("total", time.Since(start)).Msg("region detection pass")
	}
	return res, nil
}

func (d *Detector[V]) pass(src Source[V], h int, lap func(string)) error {
	for y := 0; y < h; y++ {
		if err := d.encodeRow(src.Row(y), y); err != nil {
			return err
		}
	}
	lap("rle")

	if err := d.analyse(h); err != nil {
		return err
	}
	lap("analyse")

	if err := d.join(); err != nil {
		return err
	}
	lap("join")

	if d.cfg.CreateGraph {
		if err := d.buildGraph(); err != nil {
			return err
		}
		lap("graph")
	}
	return nil
}

// reset recycles all pools and starts a new frame.
func (d *Detector[V]) reset(w, h int) {
	d.runs.Reset()
	d.parts.Reset()
	d.regions.Reset()

	d.rowStart = append(d.rowStart[:0], 0)
	d.prevRoots = d.prevRoots[:0]
	d.curRoots = d.curRoots[:0]
	d.stats = passStats{}

	d.frame.id = uuid.New()
	d.frame.width = w
	d.frame.height = h
	d.frame.graph = d.cfg.CreateGraph
	d.frame.hierarchy = d.cfg.Hierarchy
	d.frame.regions = d.frame.regions[:0]
	d.frame.containmentDone = false
}

// Shrink releases pool capacity that the recent passes did not need and
// returns the number of records released. It returns 0 without doing
// anything while a pass is running.
func (d *Detector[V]) Shrink() int {
	if !d.busy.CompareAndSwap(false, true) {
		return 0
	}
	defer d.busy.Store(false)

	n := d.runs.Shrink() + d.parts.Shrink() + d.regions.Shrink()
	if n > 0 {
		d.log.Debug().
			Int("released", n).
			Int("run_cap", d.runs.Cap()).
			Int("part_cap", d.parts.Cap()).
			Int("region_cap", d.regions.Cap()).
			Msg("detector pools shrunk")
	}
	return n
}

// RegionAt returns the region containing pixel (x, y), or nil if the pixel
// is outside the image or belongs to the background.
func (r *Result[V]) RegionAt(x, y int) *Region[V] {
	if x < 0 || y < 0 || x >= r.Width || y >= r.Height {
		return nil
	}
	for _, reg := range r.Regions {
		b := reg.Bounds()
		if x < b.X1 || x >= b.X2 || y < b.Y1 || y >= b.Y2 {
			continue
		}
		if reg.Contains(x, y) {
			return reg
		}
	}
	return nil
}

// Filter returns the regions accepted by spec in discovery order.
func (r *Result[V]) Filter(spec FilterSpec) ([]*Region[V], error) {
	return Filter(r.Regions, spec)
}
