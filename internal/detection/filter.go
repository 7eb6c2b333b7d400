package detection

import (
	"encoding/json"
	"fmt"
	"math"
)

// Range is a closed interval [Min, Max]. Use math.Inf for an open end.
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// AtLeast returns [lo, +Inf].
func AtLeast(lo float64) *Range { return &Range{Min: lo, Max: math.Inf(1)} }

// AtMost returns [-Inf, hi].
func AtMost(hi float64) *Range { return &Range{Min: math.Inf(-1), Max: hi} }

// Between returns [lo, hi].
func Between(lo, hi float64) *Range { return &Range{Min: lo, Max: hi} }

// Contains reports whether v lies in the interval. NaN is never contained.
func (r Range) Contains(v float64) bool { return v >= r.Min && v <= r.Max }

type rangeJSON struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// MarshalJSON leaves out infinite bounds, which JSON cannot carry.
func (r Range) MarshalJSON() ([]byte, error) {
	var out rangeJSON
	if !math.IsInf(r.Min, 0) {
		out.Min = &r.Min
	}
	if !math.IsInf(r.Max, 0) {
		out.Max = &r.Max
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads {"min": lo, "max": hi}. A missing bound is open.
func (r *Range) UnmarshalJSON(b []byte) error {
	var in rangeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	*r = Range{Min: math.Inf(-1), Max: math.Inf(1)}
	if in.Min != nil {
		r.Min = *in.Min
	}
	if in.Max != nil {
		r.Max = *in.Max
	}
	return nil
}

func (r Range) validate(name string) error {
	if math.IsNaN(r.Min) || math.IsNaN(r.Max) {
		return fmt.Errorf("%w: %s range has NaN bound", ErrFilterSpecInvalid, name)
	}
	if r.Min > r.Max {
		return fmt.Errorf("%w: %s range min %g > max %g", ErrFilterSpecInvalid, name, r.Min, r.Max)
	}
	return nil
}

// FilterSpec selects regions by their statistics. Every nil range accepts
// any value; a region passes when all set ranges contain its statistic.
type FilterSpec struct {
	Value          *Range `json:"value,omitempty"`
	Size           *Range `json:"size,omitempty"`
	BoundaryLength *Range `json:"boundary_length,omitempty"`
	FormFactor     *Range `json:"form_factor,omitempty"`
	AxisRatio      *Range `json:"axis_ratio,omitempty"`
	Angle          *Range `json:"angle,omitempty"`
}

// IsEmpty reports whether no range is set.
func (s FilterSpec) IsEmpty() bool {
	return s.Value == nil && s.Size == nil && s.BoundaryLength == nil &&
		s.FormFactor == nil && s.AxisRatio == nil && s.Angle == nil
}

// Validate rejects ranges with Min > Max or NaN bounds.
func (s FilterSpec) Validate() error {
	for _, f := range s.fields() {
		if f.r == nil {
			continue
		}
		if err := f.r.validate(f.name); err != nil {
			return err
		}
	}
	return nil
}

type specField struct {
	name string
	r    *Range
}

func (s FilterSpec) fields() [6]specField {
	return [6]specField{
		{"value", s.Value},
		{"size", s.Size},
		{"boundary_length", s.BoundaryLength},
		{"form_factor", s.FormFactor},
		{"axis_ratio", s.AxisRatio},
		{"angle", s.Angle},
	}
}

// Measured is what the filter reads from a region. It is implemented by
// *Region and RegionSnapshot.
type Measured interface {
	FilterValue() float64
	Size() int
	BoundaryLength() float64
	FormFactor() float64
	PCA() PCAInfo
}

// Accepts evaluates spec against m. PCA is only computed when spec
// bounds the axis ratio or the angle.
func Accepts(m Measured, spec FilterSpec) (bool, error) {
	if err := spec.Validate(); err != nil {
		return false, err
	}
	return accepts(m, spec), nil
}

func accepts(m Measured, spec FilterSpec) bool {
	if spec.Value != nil && !spec.Value.Contains(m.FilterValue()) {
		return false
	}
	if spec.Size != nil && !spec.Size.Contains(float64(m.Size())) {
		return false
	}
	if spec.BoundaryLength != nil && !spec.BoundaryLength.Contains(m.BoundaryLength()) {
		return false
	}
	if spec.FormFactor != nil && !spec.FormFactor.Contains(m.FormFactor()) {
		return false
	}
	if spec.AxisRatio == nil && spec.Angle == nil {
		return true
	}
	pca := m.PCA()
	if spec.AxisRatio != nil && !spec.AxisRatio.Contains(pca.AxisRatio()) {
		return false
	}
	if spec.Angle != nil && !spec.Angle.Contains(pca.Angle) {
		return false
	}
	return true
}

// Filter returns the elements of regions accepted by spec, in their
// input order. spec is validated once before any region is read.
func Filter[M Measured](regions []M, spec FilterSpec) ([]M, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	out := make([]M, 0, len(regions))
	for _, m := range regions {
		if accepts(m, spec) {
			out = append(out, m)
		}
	}
	return out, nil
}
