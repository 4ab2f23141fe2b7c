// Package server is the HTTP surface of the OMR service.
//
// It exposes two routes:
//
//   - POST /process-omr: accepts {imageUrl, numberOfQuestions}, downloads
//     and decodes the sheet, runs the detection pipeline, and returns
//     {answers, totalDetected, rowsDetected}. The answer list is always
//     padded to numberOfQuestions entries; rows the pipeline could not
//     detect carry an explanatory note instead of being dropped.
//   - GET /health: liveness probe.
//
// Everything with side effects lives here: network fetching, decoding,
// request logging. The pipeline underneath is pure, so retry policy and
// request deadlines are this layer's responsibility (the fetch timeout is
// the only one applied by default).
package server
