package detection

import (
	"fmt"

	"github.com/ironsheep/region-tools-mcp/internal/pool"
)

// Neighborhood selects which pixels count as adjacent when the region graph
// is built.
type Neighborhood int

const (
	// Neighborhood4 links pixels sharing an edge.
	Neighborhood4 Neighborhood = 4

	// Neighborhood8 additionally links pixels touching at a corner.
	Neighborhood8 Neighborhood = 8
)

// String returns "4" or "8" for the known modes.
func (n Neighborhood) String() string {
	switch n {
	case Neighborhood4:
		return "4"
	case Neighborhood8:
		return "8"
	default:
		return fmt.Sprintf("Neighborhood(%d)", int(n))
	}
}

// ParseNeighborhood converts 4 or 8 into a Neighborhood. Zero selects the
// default 4-neighbourhood.
func ParseNeighborhood(n int) (Neighborhood, error) {
	switch n {
	case 0, 4:
		return Neighborhood4, nil
	case 8:
		return Neighborhood8, nil
	default:
		return 0, fmt.Errorf("unsupported neighborhood %d (want 4 or 8)", n)
	}
}

// HierarchyFunc reports whether regions of value child are nested inside
// regions of value parent. It is supplied by hierarchical classifiers, for
// example nested threshold levels where level L+1 lies inside level L.
type HierarchyFunc func(child, parent int64) bool

// Config controls a Detector.
//
// The zero value is not usable; start from DefaultConfig.
type Config struct {
	// CreateGraph enables the adjacency graph builder.
	CreateGraph bool

	// Neighborhood used by the adjacency graph builder. Connectivity of the
	// regions themselves is always 4-connected.
	Neighborhood Neighborhood

	// Sizing of the record pools. All three pools (runs, merge-tree nodes,
	// regions) share these settings.
	PoolInitialCapacity int
	PoolGrowthFactor    float64
	PoolMinCapacity     int
	PoolMaxCapacity     int

	// UseBackground excludes pixels equal to Background from run
	// extraction, so they never form regions.
	UseBackground bool
	Background    int64

	// Hierarchy, when set, drives the parent/children relation of the
	// region graph. Without it containment is derived from topology.
	Hierarchy HierarchyFunc

	// TrackTimes logs the duration of each detection stage at debug level.
	TrackTimes bool
}

// DefaultConfig returns the configuration used when nothing else is given:
// graph creation on, 4-neighbourhood, no background, default pool sizing.
func DefaultConfig() Config {
	po := pool.DefaultOptions()
	return Config{
		CreateGraph:         true,
		Neighborhood:        Neighborhood4,
		PoolInitialCapacity: po.InitialCapacity,
		PoolGrowthFactor:    po.GrowthFactor,
		PoolMinCapacity:     po.MinCapacity,
		PoolMaxCapacity:     po.MaxCapacity,
	}
}

// WithBackground returns a copy of c that excludes value v from detection.
func (c Config) WithBackground(v int64) Config {
	c.UseBackground = true
	c.Background = v
	return c
}

// Validate checks the configuration for unusable values.
func (c Config) Validate() error {
	if c.Neighborhood != Neighborhood4 && c.Neighborhood != Neighborhood8 {
		return fmt.Errorf("unsupported neighborhood %d", int(c.Neighborhood))
	}
	if err := c.poolOptions().Validate(); err != nil {
		return err
	}
	return nil
}

func (c Config) poolOptions() pool.Options {
	return pool.Options{
		InitialCapacity: c.PoolInitialCapacity,
		GrowthFactor:    c.PoolGrowthFactor,
		MinCapacity:     c.PoolMinCapacity,
		MaxCapacity:     c.PoolMaxCapacity,
	}
}
