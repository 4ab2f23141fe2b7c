// Package detection locates answer bubbles on a preprocessed sheet and
// decides which option each question row has marked.
//
// The package covers four of the pipeline's five stages, each a pure
// function over immutable inputs:
//
//   - DetectBubbles: Hough circle transform over the smoothed intensity
//     map, producing candidate Bubbles within a configured radius window.
//   - GroupRows: clusters Bubbles into top-to-bottom question Rows by
//     vertical position and orders options left to right. CapRows trims
//     stray rows so margins and headers cannot shift question numbering.
//   - ScoreRow: fraction of each bubble's interior classified dark.
//   - ResolveRow: the decision rule turning fill scores into one
//     AnswerResult per question.
//
// # Coordinate System
//
// All coordinates use the standard image convention: origin (0, 0) at the
// top-left corner, X increasing rightward, Y increasing downward.
//
// # Determinism
//
// Grading requires that identical pixel input always yields identical
// results, so every ranking in this package carries explicit tie-breaks:
// bubble merging prefers the higher accumulator score, then the larger
// radius, then the smaller Y, then the smaller X; fill ties resolve to the
// earlier option position. Nothing in the package reads global state.
//
// # Confidence and Ambiguity
//
// ResolveRow reports a confidence in [0, 1] that grows with both the
// absolute darkness of the chosen bubble and its lead over the runner-up.
// A row with no sufficiently dark bubble, or with two comparably dark ones,
// is flagged ambiguous for human review; ambiguity is an expected outcome,
// not a failure.
package detection
