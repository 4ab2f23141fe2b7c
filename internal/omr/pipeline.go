package omr

import (
	"image"

	"omr-service/internal/detection"
	"omr-service/internal/imaging"
)

// DefaultOptionsPerQuestion is assumed when a caller does not say how many
// options each question has (standard A-E sheets).
const DefaultOptionsPerQuestion = 5

// shortfallDivisor controls when a low bubble count is reported as a
// shortfall: fewer than expected/shortfallDivisor detections trigger it.
const shortfallDivisor = 2

// Result is the output of one pipeline invocation.
//
// Answers holds one entry per resolved question row, in question order.
// TotalDetected and RowsDetected describe what detection recovered and are
// reported to callers alongside the answers so they can judge partial
// results.
type Result struct {
	Answers       []detection.AnswerResult `json:"answers"`
	TotalDetected int                      `json:"totalDetected"`
	RowsDetected  int                      `json:"rowsDetected"`

	// Bubbles is the merged bubble set, exposed for overlay rendering.
	// It is not part of the serialized result.
	Bubbles []detection.Bubble `json:"-"`
}

// DetectAnswers runs the full detection pipeline over a decoded sheet image.
//
// The pipeline is pure and synchronous: it reads the image, produces an
// immutable result, performs no I/O, and holds no state between calls.
// Invocations are independent and may run concurrently on separate sheets
// as long as cfg is treated as read-only, which this function guarantees by
// taking it by value.
//
// Stages run strictly forward: binarize, detect bubbles, group rows, score
// fill, resolve answers. Identical input and config always yield an
// identical Result.
//
// Errors follow the pipeline's propagation policy:
//
//   - *InvalidImageError: structural failure, returned with a nil Result.
//   - *DetectionShortfallError, *IncompleteGridError: degraded conditions,
//     returned alongside the partial Result so the caller can choose to
//     proceed or reject.
//
// A question that is unmarked or multiply marked is never an error; that
// outcome is carried in the per-answer confidence and ambiguity fields.
func DetectAnswers(img image.Image, numQuestions, optionsPerQuestion int, cfg DetectionConfig) (*Result, error) {
	if optionsPerQuestion <= 0 {
		optionsPerQuestion = DefaultOptionsPerQuestion
	}
	if numQuestions < 1 {
		return nil, &InvalidImageError{Reason: "numberOfQuestions must be at least 1"}
	}
	if err := cfg.Validate(); err != nil {
		return nil, &InvalidImageError{Reason: "invalid detection config", Err: err}
	}

	intensity, err := imaging.NewIntensity(img, cfg.BlurKernelSize)
	if err != nil {
		return nil, &InvalidImageError{Reason: err.Error(), Err: err}
	}

	binary, err := intensity.Binarize(cfg.ThresholdMode, cfg.ThresholdValue)
	if err != nil {
		return nil, &InvalidImageError{Reason: err.Error(), Err: err}
	}

	bubbles := detection.DetectBubbles(intensity,
		cfg.MinRadius, cfg.MaxRadius, cfg.MinDist,
		cfg.EdgeThreshold, cfg.AccumulatorThreshold)

	expected := numQuestions * optionsPerQuestion
	if len(bubbles) == 0 {
		return &Result{Answers: []detection.AnswerResult{}},
			&DetectionShortfallError{Found: 0, Expected: expected}
	}

	rows := detection.GroupRows(bubbles, cfg.RowSeparationFactor)
	rows = detection.CapRows(rows, numQuestions, optionsPerQuestion)

	answers := make([]detection.AnswerResult, 0, len(rows))
	for i, row := range rows {
		scores := detection.ScoreRow(row, binary, cfg.FillSampleScale)
		answers = append(answers, detection.ResolveRow(scores, i+1, optionsPerQuestion,
			cfg.MarkedThreshold, cfg.SeparationThreshold))
	}

	result := &Result{
		Answers:       answers,
		TotalDetected: len(bubbles),
		RowsDetected:  len(rows),
		Bubbles:       bubbles,
	}

	if len(rows) < numQuestions {
		return result, &IncompleteGridError{Rows: len(rows), Expected: numQuestions}
	}
	if len(bubbles) < expected/shortfallDivisor {
		return result, &DetectionShortfallError{Found: len(bubbles), Expected: expected}
	}
	return result, nil
}
