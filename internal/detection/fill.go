package detection

import (
	"omr-service/internal/imaging"
)

// FillScore pairs a Bubble with the fraction of its interior classified as
// dark. DarkFraction is always in [0, 1].
type FillScore struct {
	Bubble       Bubble  `json:"bubble"`
	DarkFraction float64 `json:"darkFraction"`
}

// ScoreRow computes one FillScore per bubble in the row.
//
// For each bubble, every pixel within sampleScale times the radius of the
// center is sampled against the binary map and the dark fraction is the
// number of dark samples over the total. Scaling the footprint down (0.85
// is typical) keeps the bubble's printed outline out of the sample, which
// would otherwise raise the floor for unmarked bubbles.
//
// This is a pure geometric aggregation; no state is carried between bubbles
// and the input row and map are not modified.
func ScoreRow(row Row, bm *imaging.BinaryMap, sampleScale float64) []FillScore {
	scores := make([]FillScore, len(row.Bubbles))
	for i, b := range row.Bubbles {
		scores[i] = FillScore{Bubble: b, DarkFraction: darkFraction(b, bm, sampleScale)}
	}
	return scores
}

func darkFraction(b Bubble, bm *imaging.BinaryMap, sampleScale float64) float64 {
	r := int(float64(b.Radius) * sampleScale)
	if r < 1 {
		r = 1
	}
	rSq := r * r

	dark, total := 0, 0
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy > rSq {
				continue
			}
			x, y := b.X+dx, b.Y+dy
			if x < 0 || x >= bm.Width || y < 0 || y >= bm.Height {
				continue
			}
			total++
			if bm.Dark(x, y) {
				dark++
			}
		}
	}
	if total == 0 {
		return 0
	}
	return float64(dark) / float64(total)
}
