package service

import (
	"context"
	"fmt"
	"time"

	"github.com/timmy/mojiscan/internal/domain"
	"github.com/timmy/mojiscan/internal/logger"
	"github.com/timmy/mojiscan/internal/observe"
	"github.com/timmy/mojiscan/internal/prompts"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

const degradedWarning = "arbitration failed; the first transcription is shown and may be less accurate"

// ConsensusConfig holds configuration for the consensus engine.
type ConsensusConfig struct {
	// Parallel runs the base and variant passes concurrently.
	Parallel bool
}

// ConsensusEngine reconciles two independently prompted transcriptions of the
// same image, arbitrating when they differ.
type ConsensusEngine struct {
	transcriber *Transcriber
	metrics     *observe.Metrics
	logger      *logger.Logger
	parallel    bool
}

// NewConsensusEngine creates a new consensus engine.
func NewConsensusEngine(transcriber *Transcriber, metrics *observe.Metrics, log *logger.Logger, cfg *ConsensusConfig) *ConsensusEngine {
	if metrics == nil {
		metrics = observe.DefaultMetrics()
	}
	if log == nil {
		log = logger.GetDefault()
	}
	e := &ConsensusEngine{
		transcriber: transcriber,
		metrics:     metrics,
		logger:      log,
	}
	if cfg != nil {
		e.parallel = cfg.Parallel
	}
	return e
}

func (e *ConsensusEngine) log(ctx context.Context) *logger.Logger {
	if l := logger.FromContext(ctx); l != nil && l != logger.GetDefault() {
		return l
	}
	return e.logger
}

type pass struct {
	text string
	hit  bool
}

// Reconcile runs the base and variant passes and settles on a final text.
// Parameters:
//   - ctx: context for cancellation; a failing pass cancels its sibling when parallel.
//   - image: validated image payload.
//   - set: base, variant and arbitration prompts.
//
// Returns:
//   - *domain.ConsensusOutcome: agreed, arbitrated, or degraded when arbitration failed.
//   - error: *domain.TranscriptionError when either initial pass fails, or
//     domain.ErrConfiguration for an invalid prompt set.
func (e *ConsensusEngine) Reconcile(ctx context.Context, image domain.ImagePayload, set prompts.Set) (outcome *domain.ConsensusOutcome, err error) {
	if err := set.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrConfiguration, err)
	}

	ctx, span := observe.StartSpan(ctx, "consensus.reconcile")
	defer func() {
		if outcome != nil {
			span.SetAttributes(
				attribute.String("path", string(outcome.Path)),
				attribute.Int("backend_calls", outcome.BackendCalls),
			)
		}
		observe.EndSpan(span, err)
	}()

	start := time.Now()
	base, variant, err := e.initialPasses(ctx, image, set)
	if err != nil {
		e.log(ctx).WithError(err).Warn("Initial transcription pass failed")
		return nil, err
	}

	outcome = &domain.ConsensusOutcome{
		CandidateA:   base.text,
		CandidateB:   variant.text,
		BackendCalls: backendCalls(base, variant),
	}

	if base.text == variant.text {
		outcome.Path = domain.PathAgreed
		outcome.FinalText = base.text
		e.finish(ctx, outcome, start)
		return outcome, nil
	}

	arbitrationPrompt := prompts.RenderArbitration(set.Arbitration, base.text, variant.text)
	final, hit, arbErr := e.transcriber.transcribe(ctx, image, domain.PromptArbitration, arbitrationPrompt)
	outcome.BackendCalls += backendCalls(pass{hit: hit})

	if arbErr != nil {
		outcome.Path = domain.PathDegraded
		outcome.FinalText = base.text
		outcome.ArbitrationError = arbErr.Error()
		outcome.Warnings = append(outcome.Warnings, degradedWarning)
		e.log(ctx).WithError(arbErr).Warn("Arbitration failed, falling back to first candidate")
	} else {
		outcome.Path = domain.PathArbitrated
		outcome.FinalText = final
	}

	e.finish(ctx, outcome, start)
	return outcome, nil
}

// initialPasses runs BASE and VARIANT. Either failure fails the pair.
func (e *ConsensusEngine) initialPasses(ctx context.Context, image domain.ImagePayload, set prompts.Set) (pass, pass, error) {
	var base, variant pass

	if !e.parallel {
		var err error
		if base.text, base.hit, err = e.transcriber.transcribe(ctx, image, domain.PromptBase, set.Base); err != nil {
			return pass{}, pass{}, err
		}
		if variant.text, variant.hit, err = e.transcriber.transcribe(ctx, image, domain.PromptVariantAlt, set.Variant); err != nil {
			return pass{}, pass{}, err
		}
		return base, variant, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		base.text, base.hit, err = e.transcriber.transcribe(gctx, image, domain.PromptBase, set.Base)
		return err
	})
	g.Go(func() error {
		var err error
		variant.text, variant.hit, err = e.transcriber.transcribe(gctx, image, domain.PromptVariantAlt, set.Variant)
		return err
	})
	if err := g.Wait(); err != nil {
		return pass{}, pass{}, err
	}
	return base, variant, nil
}

func (e *ConsensusEngine) finish(ctx context.Context, outcome *domain.ConsensusOutcome, start time.Time) {
	e.metrics.RecordOutcome(ctx, string(outcome.Path))
	logger.With(logger.Fields{logger.FieldPath: string(outcome.Path)}).
		WithCount(outcome.BackendCalls).
		WithDuration(start).
		Info(ctx, "Consensus reached")
}

// backendCalls counts the passes that reached the backend rather than the cache.
func backendCalls(passes ...pass) int {
	n := 0
	for _, p := range passes {
		if !p.hit {
			n++
		}
	}
	return n
}
