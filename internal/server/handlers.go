package server

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"omr-service/internal/detection"
	"omr-service/internal/imaging"
	"omr-service/internal/omr"
)

// DefaultNumberOfQuestions is assumed when a request omits the question
// count (standard 45-question sheets).
const DefaultNumberOfQuestions = 45

// annotatedMaxWidth bounds annotated-overlay payloads in responses.
const annotatedMaxWidth = 1200

// ProcessRequest is the body of POST /process-omr.
type ProcessRequest struct {
	ImageURL           string `json:"imageUrl"`
	NumberOfQuestions  int    `json:"numberOfQuestions"`
	OptionsPerQuestion int    `json:"optionsPerQuestion"`

	// IncludeAnnotated requests a base64 PNG overlay of the detected
	// bubbles for human review.
	IncludeAnnotated bool `json:"includeAnnotated"`
}

// ProcessResponse is the body of a successful POST /process-omr.
type ProcessResponse struct {
	Answers        []detection.AnswerResult `json:"answers"`
	TotalDetected  int                      `json:"totalDetected"`
	RowsDetected   int                      `json:"rowsDetected"`
	Warnings       []string                 `json:"warnings,omitempty"`
	AnnotatedImage *imaging.AnnotateResult  `json:"annotatedImage,omitempty"`
}

// OMRHandler serves the answer-sheet processing endpoints.
type OMRHandler struct {
	fetcher ImageFetcher
	cfg     omr.DetectionConfig
	log     *slog.Logger
}

// NewOMRHandler creates a handler using the given fetcher and detection
// tuning. A nil logger falls back to slog.Default.
func NewOMRHandler(fetcher ImageFetcher, cfg omr.DetectionConfig, log *slog.Logger) *OMRHandler {
	if log == nil {
		log = slog.Default()
	}
	return &OMRHandler{fetcher: fetcher, cfg: cfg, log: log}
}

// Health answers the liveness probe.
func Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "omr-service"})
}

// ProcessOMR fetches the referenced sheet image, runs the detection
// pipeline, and returns one answer per question.
//
// Degraded detections (shortfall, incomplete grid) still return 200 with
// the partial answers, a warning, and padding entries for undetected rows,
// so the caller always receives numberOfQuestions answers. Structural
// failures return 400; fetch failures return 502.
func (h *OMRHandler) ProcessOMR(c *gin.Context) {
	var req ProcessRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no JSON data provided"})
		return
	}
	if req.ImageURL == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "imageUrl is required"})
		return
	}
	if req.NumberOfQuestions <= 0 {
		req.NumberOfQuestions = DefaultNumberOfQuestions
	}

	h.log.Info("processing sheet", "url", req.ImageURL, "questions", req.NumberOfQuestions)

	img, err := h.fetcher.Fetch(c.Request.Context(), req.ImageURL)
	if err != nil {
		h.log.Error("image fetch failed", "url", req.ImageURL, "error", err)
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	result, err := omr.DetectAnswers(img, req.NumberOfQuestions, req.OptionsPerQuestion, h.cfg)

	var warnings []string
	if err != nil {
		var invalid *omr.InvalidImageError
		var shortfall *omr.DetectionShortfallError
		var incomplete *omr.IncompleteGridError
		switch {
		case errors.As(err, &invalid):
			h.log.Error("sheet rejected", "url", req.ImageURL, "error", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		case errors.As(err, &shortfall) && shortfall.Found == 0:
			c.JSON(http.StatusBadRequest, gin.H{"error": "no bubbles detected in image"})
			return
		case errors.As(err, &shortfall), errors.As(err, &incomplete):
			// Degraded but usable; report and continue with partial answers.
			h.log.Warn("degraded detection", "url", req.ImageURL, "condition", err)
			warnings = append(warnings, err.Error())
		default:
			h.log.Error("pipeline failure", "url", req.ImageURL, "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	resp := ProcessResponse{
		Answers:       padAnswers(result.Answers, req.NumberOfQuestions),
		TotalDetected: result.TotalDetected,
		RowsDetected:  result.RowsDetected,
		Warnings:      warnings,
	}

	if req.IncludeAnnotated {
		markers := make([]imaging.Marker, len(result.Bubbles))
		for i, b := range result.Bubbles {
			markers[i] = imaging.Marker{X: b.X, Y: b.Y, Radius: b.Radius, Confidence: b.Score}
		}
		annotated, err := imaging.Annotate(img, markers, annotatedMaxWidth)
		if err != nil {
			h.log.Warn("overlay rendering failed", "error", err)
		} else {
			resp.AnnotatedImage = annotated
		}
	}

	h.log.Info("sheet processed",
		"url", req.ImageURL,
		"bubbles", result.TotalDetected,
		"rows", result.RowsDetected)

	c.JSON(http.StatusOK, resp)
}

// padAnswers extends the answer list to numQuestions entries so callers can
// index answers by question number even when rows were not detected.
func padAnswers(answers []detection.AnswerResult, numQuestions int) []detection.AnswerResult {
	padded := make([]detection.AnswerResult, 0, numQuestions)
	padded = append(padded, answers...)
	for q := len(answers) + 1; q <= numQuestions; q++ {
		padded = append(padded, detection.AnswerResult{
			QuestionNumber: q,
			Confidence:     0,
			Ambiguous:      false,
			Notes:          "row not detected",
		})
	}
	return padded
}
