package detection

import (
	"math"
	"sort"
)

// Row is the ordered set of Bubbles assigned to one question. Bubbles are
// sorted left to right, so the option position of Bubbles[i] is i+1. Rows
// themselves are ordered top to bottom; that order defines the question
// numbering.
type Row struct {
	Bubbles []Bubble
	CenterY float64 // mean of the member centers, used for row ordering
}

// GroupRows partitions bubbles into question rows by vertical position.
//
// Bubbles are sorted by center Y and swept top to bottom; a new row starts
// whenever the vertical gap to the previous bubble exceeds
// rowSeparationFactor times the median bubble diameter. Deriving the gap
// limit from the detected geometry keeps grouping stable across scan
// resolutions, where a fixed pixel tolerance would not be.
//
// Within each row bubbles are ordered by center X. Rows with fewer bubbles
// than the sheet layout expects are still emitted; the resolver downgrades
// their confidence later.
func GroupRows(bubbles []Bubble, rowSeparationFactor float64) []Row {
	if len(bubbles) == 0 {
		return nil
	}

	sorted := make([]Bubble, len(bubbles))
	copy(sorted, bubbles)
	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Y != sorted[j].Y {
			return sorted[i].Y < sorted[j].Y
		}
		return sorted[i].X < sorted[j].X
	})

	gapLimit := rowSeparationFactor * float64(2*medianRadius(sorted))

	var rows []Row
	current := []Bubble{sorted[0]}
	for _, b := range sorted[1:] {
		if float64(b.Y-current[len(current)-1].Y) > gapLimit {
			rows = append(rows, finishRow(current))
			current = nil
		}
		current = append(current, b)
	}
	rows = append(rows, finishRow(current))

	return rows
}

// finishRow orders a completed row left to right and computes its center.
func finishRow(bubbles []Bubble) Row {
	sort.Slice(bubbles, func(i, j int) bool {
		if bubbles[i].X != bubbles[j].X {
			return bubbles[i].X < bubbles[j].X
		}
		return bubbles[i].Y < bubbles[j].Y
	})
	sum := 0.0
	for _, b := range bubbles {
		sum += float64(b.Y)
	}
	return Row{Bubbles: bubbles, CenterY: sum / float64(len(bubbles))}
}

// CapRows keeps at most maxRows of the given rows.
//
// Stray circular detections in margins and headers frequently produce rows
// above or below the real answer grid; keeping them would shift question
// numbering for every row underneath. When more rows exist than questions,
// the rows whose bubble count is closest to expectedPerRow are kept,
// preferring rows whose spacing to their neighbors matches the median row
// pitch. The survivors are returned in top-to-bottom order.
func CapRows(rows []Row, maxRows, expectedPerRow int) []Row {
	if maxRows <= 0 || len(rows) <= maxRows {
		return rows
	}

	pitches := make([]float64, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		pitches = append(pitches, rows[i].CenterY-rows[i-1].CenterY)
	}
	sort.Float64s(pitches)
	medianPitch := pitches[len(pitches)/2]

	type ranked struct {
		index        int
		countDev     int
		irregularity float64
	}
	scored := make([]ranked, len(rows))
	for i, row := range rows {
		irregularity := 0.0
		if i > 0 {
			irregularity += math.Abs((rows[i].CenterY - rows[i-1].CenterY) - medianPitch)
		}
		if i < len(rows)-1 {
			irregularity += math.Abs((rows[i+1].CenterY - rows[i].CenterY) - medianPitch)
		}
		scored[i] = ranked{
			index:        i,
			countDev:     abs(len(row.Bubbles) - expectedPerRow),
			irregularity: irregularity,
		}
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].countDev != scored[j].countDev {
			return scored[i].countDev < scored[j].countDev
		}
		if scored[i].irregularity != scored[j].irregularity {
			return scored[i].irregularity < scored[j].irregularity
		}
		return scored[i].index < scored[j].index
	})

	keep := make([]int, maxRows)
	for i := 0; i < maxRows; i++ {
		keep[i] = scored[i].index
	}
	sort.Ints(keep)

	capped := make([]Row, maxRows)
	for i, idx := range keep {
		capped[i] = rows[idx]
	}
	return capped
}

// medianRadius returns the median radius of the given bubbles.
func medianRadius(bubbles []Bubble) int {
	radii := make([]int, len(bubbles))
	for i, b := range bubbles {
		radii[i] = b.Radius
	}
	sort.Ints(radii)
	return radii[len(radii)/2]
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
