package omr

import (
	"fmt"

	"omr-service/internal/imaging"
)

// DetectionConfig carries every tunable of the detection pipeline.
//
// A config is loaded once at startup and passed by value into each call;
// the pipeline never mutates it, so one config may serve any number of
// concurrent invocations.
type DetectionConfig struct {
	// BlurKernelSize is the side length of the Gaussian smoothing kernel
	// applied before thresholding and edge extraction. Values <= 1 disable
	// smoothing.
	BlurKernelSize int

	// ThresholdMode selects fixed or adaptive binarization.
	ThresholdMode imaging.ThresholdMode

	// ThresholdValue is the global intensity cutoff in [0, 1] used when
	// ThresholdMode is fixed. Ignored in adaptive mode.
	ThresholdValue float64

	// MinRadius and MaxRadius bound the bubble radius search in pixels.
	MinRadius int
	MaxRadius int

	// MinDist is the minimum separation between accepted bubble centers.
	MinDist int

	// EdgeThreshold is the gradient strength, on the [0, 1] intensity
	// scale, required for a pixel to vote in the circle accumulator.
	EdgeThreshold float64

	// AccumulatorThreshold is the fraction of a circle's circumference
	// that must vote before a center is accepted.
	AccumulatorThreshold float64

	// RowSeparationFactor scales the median bubble diameter into the
	// vertical gap that starts a new question row.
	RowSeparationFactor float64

	// FillSampleScale shrinks the fill-sampling footprint relative to the
	// detected radius, keeping the printed outline out of the sample.
	FillSampleScale float64

	// MarkedThreshold is the minimum dark fraction for a bubble to count
	// as marked.
	MarkedThreshold float64

	// SeparationThreshold is the minimum lead of the top fill over the
	// runner-up for an unambiguous answer.
	SeparationThreshold float64
}

// DefaultConfig returns the tuning used for standard A-E sheets scanned at
// typical phone-camera resolution. The radius window and center distance
// mirror the parameters the service has been graded against.
func DefaultConfig() DetectionConfig {
	return DetectionConfig{
		BlurKernelSize:       5,
		ThresholdMode:        imaging.ThresholdAdaptive,
		ThresholdValue:       0.5,
		MinRadius:            10,
		MaxRadius:            40,
		MinDist:              20,
		EdgeThreshold:        0.12,
		AccumulatorThreshold: 0.2,
		RowSeparationFactor:  1.5,
		FillSampleScale:      0.85,
		MarkedThreshold:      0.35,
		SeparationThreshold:  0.10,
	}
}

// Validate reports the first structurally invalid field, if any.
func (c DetectionConfig) Validate() error {
	switch {
	case c.MinRadius < 1:
		return fmt.Errorf("minRadius must be >= 1, got %d", c.MinRadius)
	case c.MaxRadius < c.MinRadius:
		return fmt.Errorf("maxRadius %d below minRadius %d", c.MaxRadius, c.MinRadius)
	case c.MinDist < 1:
		return fmt.Errorf("minDist must be >= 1, got %d", c.MinDist)
	case c.ThresholdMode != imaging.ThresholdFixed && c.ThresholdMode != imaging.ThresholdAdaptive:
		return fmt.Errorf("unknown threshold mode %q", c.ThresholdMode)
	case c.ThresholdValue < 0 || c.ThresholdValue > 1:
		return fmt.Errorf("thresholdValue must be in [0,1], got %g", c.ThresholdValue)
	case c.EdgeThreshold <= 0 || c.EdgeThreshold >= 1:
		return fmt.Errorf("edgeThreshold must be in (0,1), got %g", c.EdgeThreshold)
	case c.AccumulatorThreshold <= 0 || c.AccumulatorThreshold > 1:
		return fmt.Errorf("accumulatorThreshold must be in (0,1], got %g", c.AccumulatorThreshold)
	case c.RowSeparationFactor <= 0:
		return fmt.Errorf("rowSeparationFactor must be > 0, got %g", c.RowSeparationFactor)
	case c.FillSampleScale <= 0 || c.FillSampleScale > 1:
		return fmt.Errorf("fillSampleScale must be in (0,1], got %g", c.FillSampleScale)
	case c.MarkedThreshold <= 0 || c.MarkedThreshold >= 1:
		return fmt.Errorf("markedThreshold must be in (0,1), got %g", c.MarkedThreshold)
	case c.SeparationThreshold < 0 || c.SeparationThreshold >= 1:
		return fmt.Errorf("separationThreshold must be in [0,1), got %g", c.SeparationThreshold)
	}
	return nil
}
