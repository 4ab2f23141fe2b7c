// Package imaging implements the preprocessing stage of the answer-sheet
// pipeline: turning a decoded raster image into the normalized intensity
// grid and dark/light binary map the detection stages work on.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based:
//   - X: horizontal position (0 = leftmost pixel)
//   - Y: vertical position (0 = topmost pixel)
//
// # Data Flow
//
// The source image.Image is owned by the caller and only ever read. From
// it, NewIntensity derives a smoothed single-channel grid, and Binarize
// derives a BinaryMap of identical dimensions. Both derived grids are
// immutable once built; later stages consume them read-only, which keeps
// every stage independently testable and lets separate sheet invocations
// run concurrently with no coordination.
//
// # Threshold Strategy
//
// Binarization supports a fixed global cutoff and a locally adaptive
// cutoff. The strategy is the dominant source of accuracy variance on real
// scans, which is why it is a configuration option rather than a constant:
// sheets photographed under uneven lighting misclassify large regions under
// a global cutoff, so adaptive is the default.
//
// # Error Handling
//
// Degenerate input (zero dimensions, a single uniform color) produces an
// explicit error rather than an empty map, so failures surface at the
// preprocessing boundary instead of as zero detections downstream.
//
// The package also renders review overlays (Annotate) marking detected
// bubbles on a copy of the source image; this is a diagnostic aid and not
// part of the detection pipeline.
package imaging
