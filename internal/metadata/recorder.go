package metadata

import (
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Recorder is the zerolog-backed MetadataSink. Every event carries the
// run id so interleaved runs remain separable downstream.
type Recorder struct {
	runID  string
	logger zerolog.Logger
}

func NewRecorder(w io.Writer, level string) Recorder {
	parsed, err := zerolog.ParseLevel(level)
	if err != nil {
		parsed = zerolog.InfoLevel
	}
	runID := uuid.NewString()
	logger := zerolog.New(w).Level(parsed).With().
		Timestamp().
		Str("run_id", runID).
		Logger()
	return Recorder{
		runID:  runID,
		logger: logger,
	}
}

func (r *Recorder) RunID() string {
	return r.runID
}

func (r *Recorder) RecordFetched(event FetchedEvent) {
	r.logger.Info().
		Str("event", "fetched").
		Str("fp", event.Fingerprint).
		Int("status", event.Status).
		Int64("bytes", event.Bytes).
		Int64("elapsed_ms", event.Elapsed.Milliseconds()).
		Int("attempts", event.Attempts).
		Int("in_flight", event.InFlight).
		Int("reserved_total", event.ReservedTotal).
		Send()
}

func (r *Recorder) RecordSkipped(event SkippedEvent) {
	r.logger.Info().
		Str("event", "skipped").
		Str("url", event.URL).
		Str("reason", event.Reason).
		Send()
}

func (r *Recorder) RecordFinalize(event FinalizeEvent) {
	r.logger.Info().
		Str("event", "finalize").
		Str("analyzer", event.Analyzer).
		Int64("elapsed_ms", event.Elapsed.Milliseconds()).
		Send()
}

func (r *Recorder) RecordError(
	observedAt time.Time,
	packageName string,
	action string,
	cause ErrorCause,
	message string,
	attrs []Attribute,
) {
	entry := r.logger.Warn().
		Str("event", "error").
		Time("observed_at", observedAt).
		Str("package", packageName).
		Str("action", action).
		Str("cause", cause.String()).
		Str("message", message)
	for _, attr := range attrs {
		entry = entry.Str(string(attr.Key), attr.Value)
	}
	entry.Send()
}

func (r *Recorder) RecordFinalCrawlStats(totalURLs, totalErrors, totalSkipped int, duration time.Duration) {
	r.logger.Info().
		Str("event", "crawl_done").
		Int("total_urls", totalURLs).
		Int("total_errors", totalErrors).
		Int("total_skipped", totalSkipped).
		Int64("duration_ms", duration.Milliseconds()).
		Send()
}
