// Package omr assembles the answer-sheet pipeline: preprocess, detect
// bubbles, group rows, score fill, resolve answers.
//
// DetectAnswers is the single operation the package exposes. It is a pure,
// synchronous, CPU-bound computation: no I/O, no retries, no timeouts, no
// state shared between invocations. Callers needing a wall-clock budget
// apply it around the whole call. Multiple sheets may be processed
// concurrently with a shared DetectionConfig, which the pipeline treats as
// immutable.
//
// # Error Kinds
//
// Three structured conditions are reported, all usable with errors.As:
//
//   - InvalidImageError: undecodable or degenerate input; fatal.
//   - DetectionShortfallError: far fewer bubbles than the layout implies;
//     non-fatal, accompanies the partial result.
//   - IncompleteGridError: fewer rows than questions requested; non-fatal,
//     accompanies the partial row set.
//
// Unmarked or multiply-marked questions are never errors; they surface in
// each answer's confidence and ambiguity fields.
package omr
