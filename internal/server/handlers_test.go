package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"omr-service/internal/imaging"
	"omr-service/internal/omr"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

type stubFetcher struct {
	img image.Image
	err error
}

func (s *stubFetcher) Fetch(_ context.Context, _ string) (image.Image, error) {
	return s.img, s.err
}

const (
	inkGray      = 20
	bubbleRadius = 12
	optionPitch  = 60
	rowPitch     = 70
	sheetMargin  = 50
)

// testSheet renders a rows x options bubble grid with the given 1-based
// marked option per row (0 leaves the row unmarked).
func testSheet(rows, options int, marked []int) *image.Gray {
	w := 2*sheetMargin + (options-1)*optionPitch
	h := 2*sheetMargin + (rows-1)*rowPitch
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = 255
	}
	for r := 0; r < rows; r++ {
		cy := sheetMargin + r*rowPitch
		for c := 0; c < options; c++ {
			cx := sheetMargin + c*optionPitch
			if r < len(marked) && marked[r] == c+1 {
				disc(img, cx, cy, bubbleRadius)
			} else {
				outline(img, cx, cy, bubbleRadius)
				outline(img, cx, cy, bubbleRadius-1)
			}
		}
	}
	return img
}

func disc(img *image.Gray, cx, cy, r int) {
	for dy := -r; dy <= r; dy++ {
		for dx := -r; dx <= r; dx++ {
			if dx*dx+dy*dy <= r*r && image.Pt(cx+dx, cy+dy).In(img.Bounds()) {
				img.Pix[img.PixOffset(cx+dx, cy+dy)] = inkGray
			}
		}
	}
}

func outline(img *image.Gray, cx, cy, r int) {
	set := func(x, y int) {
		if image.Pt(x, y).In(img.Bounds()) {
			img.Pix[img.PixOffset(x, y)] = inkGray
		}
	}
	x, y, d := r, 0, 1-r
	for x >= y {
		set(cx+x, cy+y)
		set(cx-x, cy+y)
		set(cx+x, cy-y)
		set(cx-x, cy-y)
		set(cx+y, cy+x)
		set(cx-y, cy+x)
		set(cx+y, cy-x)
		set(cx-y, cy-x)
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

func serverConfig() omr.DetectionConfig {
	cfg := omr.DefaultConfig()
	cfg.BlurKernelSize = 3
	cfg.ThresholdMode = imaging.ThresholdFixed
	cfg.ThresholdValue = 0.5
	cfg.MinRadius = 9
	cfg.MaxRadius = 15
	cfg.MinDist = 20
	cfg.EdgeThreshold = 0.1
	cfg.AccumulatorThreshold = 0.15
	return cfg
}

func postProcess(t *testing.T, fetcher ImageFetcher, body any) *httptest.ResponseRecorder {
	t.Helper()
	router := NewRouter(NewOMRHandler(fetcher, serverConfig(), nil))

	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(http.MethodPost, "/process-omr", &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHealth(t *testing.T) {
	router := NewRouter(NewOMRHandler(&stubFetcher{}, serverConfig(), nil))

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "omr-service", body["service"])
}

func TestProcessOMR_Success(t *testing.T) {
	fetcher := &stubFetcher{img: testSheet(2, 5, []int{3, 1})}

	w := postProcess(t, fetcher, ProcessRequest{
		ImageURL:           "http://sheets.local/1.png",
		NumberOfQuestions:  2,
		OptionsPerQuestion: 5,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.TotalDetected)
	assert.Equal(t, 2, resp.RowsDetected)
	assert.Empty(t, resp.Warnings)
	require.Len(t, resp.Answers, 2)

	require.NotNil(t, resp.Answers[0].SelectedOption)
	assert.Equal(t, 3, *resp.Answers[0].SelectedOption)
	require.NotNil(t, resp.Answers[1].SelectedOption)
	assert.Equal(t, 1, *resp.Answers[1].SelectedOption)
	assert.Nil(t, resp.AnnotatedImage)
}

func TestProcessOMR_PadsUndetectedRows(t *testing.T) {
	// Two detectable rows against a five-question request: degraded, but
	// still 200 with a warning and one entry per question.
	fetcher := &stubFetcher{img: testSheet(2, 5, []int{2, 2})}

	w := postProcess(t, fetcher, ProcessRequest{
		ImageURL:          "http://sheets.local/partial.png",
		NumberOfQuestions: 5,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Warnings)
	require.Len(t, resp.Answers, 5)

	assert.Equal(t, 5, resp.Answers[4].QuestionNumber)
	assert.Nil(t, resp.Answers[4].SelectedOption)
	assert.Equal(t, "row not detected", resp.Answers[4].Notes)
}

func TestProcessOMR_MissingImageURL(t *testing.T) {
	w := postProcess(t, &stubFetcher{}, ProcessRequest{NumberOfQuestions: 5})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "imageUrl is required")
}

func TestProcessOMR_MalformedJSON(t *testing.T) {
	w := postProcess(t, &stubFetcher{}, `{"imageUrl": `)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no JSON data provided")
}

func TestProcessOMR_FetchFailure(t *testing.T) {
	fetcher := &stubFetcher{err: errors.New("failed to download image: status 404")}

	w := postProcess(t, fetcher, ProcessRequest{ImageURL: "http://sheets.local/missing.png"})

	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "failed to download image")
}

func TestProcessOMR_UniformImageRejected(t *testing.T) {
	blank := image.NewGray(image.Rect(0, 0, 200, 200))
	for i := range blank.Pix {
		blank.Pix[i] = 128
	}

	w := postProcess(t, &stubFetcher{img: blank}, ProcessRequest{
		ImageURL:          "http://sheets.local/blank.png",
		NumberOfQuestions: 5,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessOMR_NoBubblesRejected(t *testing.T) {
	// Contrast without circles: isolated dots only.
	dots := image.NewGray(image.Rect(0, 0, 160, 160))
	for i := range dots.Pix {
		dots.Pix[i] = 255
	}
	for _, p := range []image.Point{{40, 40}, {120, 40}, {40, 120}, {120, 120}} {
		disc(dots, p.X, p.Y, 1)
	}

	w := postProcess(t, &stubFetcher{img: dots}, ProcessRequest{
		ImageURL:          "http://sheets.local/dots.png",
		NumberOfQuestions: 5,
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "no bubbles detected in image")
}

func TestProcessOMR_IncludeAnnotated(t *testing.T) {
	fetcher := &stubFetcher{img: testSheet(2, 5, []int{1, 4})}

	w := postProcess(t, fetcher, ProcessRequest{
		ImageURL:          "http://sheets.local/2.png",
		NumberOfQuestions: 2,
		IncludeAnnotated:  true,
	})

	require.Equal(t, http.StatusOK, w.Code)

	var resp ProcessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotNil(t, resp.AnnotatedImage)
	assert.Equal(t, "image/png", resp.AnnotatedImage.MimeType)
	assert.NotEmpty(t, resp.AnnotatedImage.ImageBase64)
}
