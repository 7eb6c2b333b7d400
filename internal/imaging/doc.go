// Package imaging prepares images for region detection and renders its
// results.
//
// It sits on both sides of the detection package: images are loaded and
// cached, optionally cropped to a region of interest and scaled, then turned
// into a ClassMap by one of the classifiers. A ClassMap is a
// detection.Source[uint8]. After detection the regions of a snapshot can be
// drawn over the image, measured against each other and summarised by
// colour.
//
// # Coordinate System
//
// All pixel coordinates are 0-based with the origin at the top-left corner:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//   - For rectangles, (x1,y1) is inclusive and (x2,y2) exclusive
//
// Prepare and Classify always return images with their origin at (0, 0),
// so region coordinates are relative to the prepared image, not to the
// file it came from.
//
// # Classifiers
//
//   - gray: luminance in equal bands
//   - threshold: dark/light split
//   - hue: hue sectors, with grey pixels in class 0
//   - palette: nearest of the image's dominant colours
//   - edges: Sobel gradient magnitude above a threshold
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. All other functions are stateless
// and may be called concurrently on images that are not being modified.
package imaging
