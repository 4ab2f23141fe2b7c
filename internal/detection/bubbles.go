package detection

import (
	"math"
	"sort"

	"omr-service/internal/imaging"
)

// Bubble is a candidate answer circle located on the sheet.
//
// Identity is purely positional; a Bubble carries no mutable state. Score is
// the fraction of the circumference supported by edge votes in the Hough
// accumulator, capped at 1.0.
type Bubble struct {
	X      int     `json:"x"` // center, 0-based pixel coordinates
	Y      int     `json:"y"`
	Radius int     `json:"radius"`
	Score  float64 `json:"score"`
}

// circumferenceStep is the angular voting step in degrees. Votes are cast
// every 10 degrees around each edge pixel, as a speed/recall tradeoff.
const circumferenceStep = 10

// localMaxWindow is the half-width of the neighborhood inspected when
// deciding whether an accumulator cell is a local maximum.
const localMaxWindow = 3

// DetectBubbles locates circular answer bubbles using a Hough circle
// transform over the smoothed intensity map.
//
// Parameters:
//   - in: Smoothed intensity map from the preprocessor.
//   - minRadius, maxRadius: Radius search window in pixels. Bubbles have a
//     known approximate size on a given sheet layout, so a narrow window
//     both speeds detection and rejects noise blobs of implausible size.
//   - minDist: Minimum separation between accepted centers in pixels.
//   - edgeThreshold: Gradient strength in intensity units ([0, 1] scale)
//     required for a pixel to cast votes. Typical: 0.1-0.2.
//   - accumThreshold: Fraction of a circle's circumference that must vote
//     for a center before it is accepted. Typical: 0.2-0.4.
//
// # Algorithm
//
//  1. Edge extraction: pixels whose horizontal or vertical intensity
//     gradient exceeds edgeThreshold.
//  2. Accumulator voting: for each radius in the window, every edge pixel
//     votes for candidate centers sampled every 10 degrees around it.
//  3. Peak detection: accumulator cells that reach accumThreshold of the
//     circumference and are local maxima become candidates.
//  4. Merging: candidates within minDist of an already accepted center are
//     dropped. Candidates are visited in score order; ties break toward the
//     larger radius, then the smaller Y, then the smaller X, so identical
//     input always yields the identical bubble set.
func DetectBubbles(in *imaging.Intensity, minRadius, maxRadius, minDist int, edgeThreshold, accumThreshold float64) []Bubble {
	width, height := in.Width, in.Height
	if minRadius < 1 {
		minRadius = 1
	}
	if maxRadius < minRadius || width == 0 || height == 0 {
		return nil
	}

	edges := gradientEdges(in, edgeThreshold)

	var candidates []Bubble
	for radius := minRadius; radius <= maxRadius; radius++ {
		accumulator := make([]int, width*height)

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				if !edges[y*width+x] {
					continue
				}
				for angle := 0; angle < 360; angle += circumferenceStep {
					rad := float64(angle) * math.Pi / 180
					cx := x - int(math.Round(float64(radius)*math.Cos(rad)))
					cy := y - int(math.Round(float64(radius)*math.Sin(rad)))
					if cx >= 0 && cx < width && cy >= 0 && cy < height {
						accumulator[cy*width+cx]++
					}
				}
			}
		}

		circumference := 2 * math.Pi * float64(radius)
		threshold := int(circumference * accumThreshold)
		if threshold < 3 {
			threshold = 3
		}

		for y := radius; y < height-radius; y++ {
			for x := radius; x < width-radius; x++ {
				votes := accumulator[y*width+x]
				if votes < threshold {
					continue
				}
				if !isLocalMax(accumulator, width, height, x, y, votes) {
					continue
				}
				candidates = append(candidates, Bubble{
					X:      x,
					Y:      y,
					Radius: radius,
					Score:  math.Min(float64(votes)/circumference, 1.0),
				})
			}
		}
	}

	return mergeCandidates(candidates, minDist)
}

// gradientEdges marks pixels whose horizontal or vertical gradient exceeds
// the threshold. Border pixels are never edges.
func gradientEdges(in *imaging.Intensity, threshold float64) []bool {
	width, height := in.Width, in.Height
	edges := make([]bool, width*height)
	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			c := in.At(x, y)
			dx := math.Abs(c - in.At(x+1, y))
			dy := math.Abs(c - in.At(x, y+1))
			if dx > threshold || dy > threshold {
				edges[y*width+x] = true
			}
		}
	}
	return edges
}

// isLocalMax reports whether the cell at (x, y) holds the strict maximum of
// its neighborhood. Equal-valued neighbors do not disqualify a cell; the
// duplicates they produce are collapsed deterministically during merging.
func isLocalMax(accumulator []int, width, height, x, y, votes int) bool {
	for dy := -localMaxWindow; dy <= localMaxWindow; dy++ {
		for dx := -localMaxWindow; dx <= localMaxWindow; dx++ {
			if dx == 0 && dy == 0 {
				continue
			}
			nx, ny := x+dx, y+dy
			if nx < 0 || nx >= width || ny < 0 || ny >= height {
				continue
			}
			if accumulator[ny*width+nx] > votes {
				return false
			}
		}
	}
	return true
}

// mergeCandidates collapses candidates whose centers fall within minDist of
// an already accepted, higher-ranked candidate.
func mergeCandidates(candidates []Bubble, minDist int) []Bubble {
	if len(candidates) == 0 {
		return nil
	}

	sort.Slice(candidates, func(i, j int) bool {
		a, b := candidates[i], candidates[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Radius != b.Radius {
			return a.Radius > b.Radius
		}
		if a.Y != b.Y {
			return a.Y < b.Y
		}
		return a.X < b.X
	})

	minDistSq := float64(minDist * minDist)
	accepted := make([]Bubble, 0, len(candidates))
	for _, c := range candidates {
		keep := true
		for _, a := range accepted {
			dx := float64(c.X - a.X)
			dy := float64(c.Y - a.Y)
			if dx*dx+dy*dy < minDistSq {
				keep = false
				break
			}
		}
		if keep {
			accepted = append(accepted, c)
		}
	}
	return accepted
}
