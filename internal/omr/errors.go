package omr

import "fmt"

// InvalidImageError reports an undecodable or degenerate input image.
// It is fatal: no result accompanies it. The condition is not retryable
// inside the pipeline; the caller may re-fetch or re-upload the sheet.
type InvalidImageError struct {
	Reason string
	Err    error
}

func (e *InvalidImageError) Error() string {
	return fmt.Sprintf("invalid image: %s", e.Reason)
}

func (e *InvalidImageError) Unwrap() error { return e.Err }

// DetectionShortfallError reports that far fewer bubbles were found than
// the sheet layout implies. It is non-fatal and accompanies a partial
// result; the caller decides whether to proceed or reject the sheet.
type DetectionShortfallError struct {
	Found    int // bubbles actually detected
	Expected int // questions x options per question
}

func (e *DetectionShortfallError) Error() string {
	return fmt.Sprintf("detection shortfall: found %d bubbles, expected about %d", e.Found, e.Expected)
}

// IncompleteGridError reports that fewer question rows were resolved than
// requested. It is non-fatal and accompanies the partial row set: the
// requested question count is advisory input, not something detection can
// force into existence.
type IncompleteGridError struct {
	Rows     int // rows actually resolved
	Expected int // questions requested
}

func (e *IncompleteGridError) Error() string {
	return fmt.Sprintf("incomplete grid: resolved %d of %d question rows", e.Rows, e.Expected)
}
