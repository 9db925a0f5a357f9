package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/timmy/mojiscan/internal/domain"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/observe"
	"github.com/timmy/mojiscan/internal/prompts"
	"go.opentelemetry.io/otel/metric"
)

// ScanRequest is one transcription request.
type ScanRequest struct {
	Image domain.ImagePayload
	// Reference is the user-supplied correct text. Blank skips scoring.
	Reference string
}

// ScanResult is the response for one scan.
type ScanResult struct {
	ScanID     string                   `json:"scan_id"`
	ImageID    string                   `json:"image_id"`
	Outcome    *domain.ConsensusOutcome `json:"outcome"`
	Score      *domain.ScoreReport      `json:"score,omitempty"`
	DurationMs int64                    `json:"duration_ms"`
}

// ScanService is the request/response boundary: reconcile, then optionally score.
type ScanService struct {
	engine  *ConsensusEngine
	prompts prompts.Set
	metrics *observe.Metrics
	logger  *logger.Logger
}

// NewScanService creates a new scan service.
// Parameters:
//   - engine: consensus engine.
//   - set: prompt set used for every scan; validated by the caller at startup.
//   - metrics: optional metrics; nil uses observe.DefaultMetrics().
//   - log: logger instance; nil uses the default logger.
//
// Returns:
//   - *ScanService: initialized scan service.
func NewScanService(engine *ConsensusEngine, set prompts.Set, metrics *observe.Metrics, log *logger.Logger) *ScanService {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	return &ScanService{
		engine:  engine,
		prompts: set,
		metrics: metrics,
		logger:  log,
	}
}

// Scan transcribes the image and scores the result when a reference is given.
// The returned error is a *domain.TranscriptionError when an initial pass failed.
func (s *ScanService) Scan(ctx context.Context, req *ScanRequest) (*ScanResult, error) {
	start := time.Now()
	scanID := uuid.New().String()

	ctx = logger.WithFields(s.withLogger(ctx), logger.Fields{
		logger.FieldScanID:    scanID,
		logger.FieldImageID:   req.Image.ShortID(),
		logger.FieldComponent: "scan",
	})

	s.metrics.ActiveScans.Add(ctx, 1)
	defer s.metrics.ActiveScans.Add(ctx, -1)

	w, h := req.Image.Dimensions()
	s.log(ctx).WithFields(logger.Fields{
		logger.FieldSize: req.Image.Size(),
		"format":         req.Image.Format(),
		"width":          w,
		"height":         h,
	}).Info("Scan started")

	outcome, err := s.engine.Reconcile(ctx, req.Image, s.prompts)
	if err != nil {
		s.recordDuration(ctx, start, "error")
		return nil, err
	}

	result := &ScanResult{
		ScanID:  scanID,
		ImageID: req.Image.ID(),
		Outcome: outcome,
	}

	if strings.TrimSpace(req.Reference) != "" {
		report := Score(outcome.FinalText, req.Reference)
		result.Score = &report
		s.metrics.SimilarityPercent.Record(ctx, report.SimilarityPercent)
	}

	result.DurationMs = time.Since(start).Milliseconds()
	s.recordDuration(ctx, start, string(outcome.Path))

	logger.With(logger.Fields{logger.FieldPath: string(outcome.Path)}).
		WithDuration(start).
		WithStatus("ok").
		Info(ctx, "Scan completed")

	return result, nil
}

func (s *ScanService) recordDuration(ctx context.Context, start time.Time, path string) {
	s.metrics.ScanDuration.Record(ctx, time.Since(start).Seconds(),
		metric.WithAttributes(observe.Attr("path", path)))
}

// withLogger attaches the service logger unless the caller already put one in ctx.
func (s *ScanService) withLogger(ctx context.Context) context.Context {
	if logger.FromContext(ctx) != logger.GetDefault() {
		return ctx
	}
	return s.logger.WithContext(ctx)
}

func (s *ScanService) log(ctx context.Context) *logger.Logger {
	return logger.FromContext(ctx)
}
