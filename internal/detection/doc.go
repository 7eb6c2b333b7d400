// Package detection finds connected regions ("blobs") in classified images.
//
// The input is an image whose pixels already carry classification values,
// for example quantised gray levels or colour classes. A region is a maximal
// 4-connected set of pixels with the same value. For every region the
// package provides shape descriptors and, optionally, an adjacency graph
// between regions, and it can filter regions by their statistics.
//
// # Pipeline
//
// One call to Detector.Detect processes one frame in a single top-to-bottom
// pass:
//
//  1. Run extraction: every row is split into runs of equal values.
//  2. Merge forest: each run is linked to the equal-valued runs it overlaps
//     in the previous row. Runs joining previously separate groups create a
//     union node, so every connected component ends up as one tree.
//  3. Assembly: each tree is flattened into a Region holding its runs.
//  4. Graph (optional): touching runs of different regions produce
//     symmetric neighbour edges, runs on the image edge produce the frame
//     border neighbour, and containment (parent/children) is derived.
//
// All records live in pools owned by the Detector that are recycled on the
// next pass. Processing a video stream with one detector therefore stops
// allocating once the pools have grown to the size of the busiest frame.
//
// # Descriptors
//
// Region descriptors are computed on first access and cached:
//   - Bounds: bounding box, top-left inclusive, bottom-right exclusive
//   - COG: center of gravity
//   - BoundaryLength: count of unit pixel edges between the region and
//     anything else, holes included
//   - FormFactor: BoundaryLength²/(4π·Size), 4/π for a square
//   - PCA: principal axis lengths and orientation from the covariance of
//     the pixel coordinates
//   - Boundary: traced outer contour
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - X increases rightward
//   - Y increases downward
//
// # Lifetime
//
// Regions returned by Detect are valid until the next Detect call on the
// same detector. Result.Snapshot makes a copy that is not tied to the
// detector.
package detection
