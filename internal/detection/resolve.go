package detection

import (
	"fmt"
	"sort"
)

// AnswerResult is the outcome for one question row: which option was marked,
// how certain the decision is, and whether a human should review it.
// An AnswerResult is created once per row and never mutated afterwards.
//
// SelectedOption is the 1-based option position, or nil when no option is
// sufficiently filled. Ambiguity is a normal, expected outcome surfaced for
// review; it is never reported as a pipeline failure.
type AnswerResult struct {
	QuestionNumber int     `json:"questionNumber"`
	SelectedOption *int    `json:"selectedOption"`
	Confidence     float64 `json:"confidence"`
	Ambiguous      bool    `json:"ambiguous"`
	Notes          string  `json:"notes"`
}

// ResolveRow decides which option, if any, is marked in a row.
//
// Parameters:
//   - scores: Fill scores in left-to-right option order, as produced by
//     ScoreRow. The option position of scores[i] is i+1.
//   - questionNumber: 1-based question number for the result.
//   - expectedOptions: Bubbles the sheet layout expects per row. A row with
//     fewer detected bubbles is still resolved, but flagged ambiguous with
//     halved confidence, since the missing option may be the marked one.
//   - markedThreshold: Minimum dark fraction for a bubble to count as
//     marked at all. Typical: 0.35.
//   - separationThreshold: Minimum lead of the top fill over the runner-up
//     for an unambiguous decision. Typical: 0.10.
//
// # Decision rule
//
// Scores are ranked by dark fraction, descending; exact ties rank the
// earlier option position first.
//
//   - top below markedThreshold: no selection, ambiguous, confidence 0.
//   - top minus second below separationThreshold: the top option is
//     returned as a best guess, ambiguous, confidence 0.5 x top.
//   - otherwise: the top option, confidence min(1, top + (top - second)).
//
// The rule is deterministic: identical scores always produce the identical
// result, which consistent grading depends on.
func ResolveRow(scores []FillScore, questionNumber, expectedOptions int, markedThreshold, separationThreshold float64) AnswerResult {
	if len(scores) == 0 {
		return AnswerResult{
			QuestionNumber: questionNumber,
			Confidence:     0,
			Ambiguous:      true,
			Notes:          "no bubbles detected in row",
		}
	}

	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(i, j int) bool {
		a, b := scores[order[i]], scores[order[j]]
		if a.DarkFraction != b.DarkFraction {
			return a.DarkFraction > b.DarkFraction
		}
		return order[i] < order[j]
	})

	top := scores[order[0]].DarkFraction
	second := 0.0
	if len(order) > 1 {
		second = scores[order[1]].DarkFraction
	}
	topOption := order[0] + 1

	var result AnswerResult
	switch {
	case top < markedThreshold:
		result = AnswerResult{
			QuestionNumber: questionNumber,
			Confidence:     0,
			Ambiguous:      true,
			Notes:          "no clear mark",
		}
	case top-second < separationThreshold:
		result = AnswerResult{
			QuestionNumber: questionNumber,
			SelectedOption: &topOption,
			Confidence:     0.5 * top,
			Ambiguous:      true,
			Notes:          "multiple candidates close in fill",
		}
	default:
		confidence := top + (top - second)
		if confidence > 1 {
			confidence = 1
		}
		result = AnswerResult{
			QuestionNumber: questionNumber,
			SelectedOption: &topOption,
			Confidence:     confidence,
			Ambiguous:      false,
			Notes:          fmt.Sprintf("clear mark at position %d", topOption),
		}
	}

	if len(scores) < expectedOptions {
		result.Ambiguous = true
		result.Confidence *= 0.5
		result.Notes += fmt.Sprintf("; only %d of %d options detected", len(scores), expectedOptions)
	}

	return result
}
