// Package pipeline coordinates the three email-creation stages: template
// selection and content generation run concurrently, compilation runs after
// both have produced their results.
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"email-assistant/internal/common/errors"
	"email-assistant/internal/common/logger"
	"email-assistant/internal/common/metrics"
	"email-assistant/internal/common/observability"
	"email-assistant/internal/models"
	"email-assistant/internal/status"
)

type Orchestrator struct {
	selector  TemplateSelector
	generator ContentGenerator
	compiler  Compiler
	lister    TemplateLister
	reporter  status.Reporter
	obs       *observability.Observability
	logger    logger.Logger
}

// Option configures optional orchestrator collaborators.
type Option func(*Orchestrator)

// WithReporter registers the status sink receiving per-stage updates for
// every run started through CreateEmail.
func WithReporter(r status.Reporter) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.reporter = r
		}
	}
}

// WithObservability wires otel run metrics.
func WithObservability(obs *observability.Observability) Option {
	return func(o *Orchestrator) { o.obs = obs }
}

func NewOrchestrator(selector TemplateSelector, generator ContentGenerator, compiler Compiler, lister TemplateLister, log logger.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		selector:  selector,
		generator: generator,
		compiler:  compiler,
		lister:    lister,
		reporter:  status.Nop(),
		logger: log.WithFields(map[string]interface{}{
			"component": "pipeline",
		}),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// CreateEmail runs the full pipeline for one campaign request and returns
// the terminal artifact. Any stage failure is returned as a
// *errors.PipelineError naming the failing stage; partial results are
// discarded. The orchestrator never retries.
func (o *Orchestrator) CreateEmail(ctx context.Context, req models.CampaignRequest) (*models.PipelineResult, error) {
	return o.CreateEmailWithStatus(ctx, req, nil)
}

// CreateEmailWithStatus is CreateEmail with an additional per-run status
// sink (e.g. a per-session snapshot) alongside the registered reporter.
func (o *Orchestrator) CreateEmailWithStatus(ctx context.Context, req models.CampaignRequest, extra status.Reporter) (*models.PipelineResult, error) {
	started := time.Now()
	metrics.PipelineRunsActive.Inc()
	defer metrics.PipelineRunsActive.Dec()

	result, err := o.run(ctx, req, o.runReporter(extra))

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	metrics.PipelineRunsCompleted.WithLabelValues(outcome).Inc()
	if o.obs != nil {
		o.obs.RecordRun(ctx, outcome)
		o.obs.RecordRunDuration(ctx, time.Since(started), outcome)
	}
	return result, err
}

// runReporter builds the per-run monotonic guard over the configured sink
// plus any extra per-run sink. The guard enforces the reporting contract:
// non-decreasing progress per stage, 1.0 exactly once.
func (o *Orchestrator) runReporter(extra status.Reporter) *status.Monotonic {
	if extra == nil {
		return status.NewMonotonic(o.reporter)
	}
	return status.NewMonotonic(status.Multi(o.reporter, extra))
}

func (o *Orchestrator) run(ctx context.Context, req models.CampaignRequest, guard *status.Monotonic) (*models.PipelineResult, error) {
	report := func(stage status.Stage) StatusFunc {
		return func(message string, progress float64) {
			guard.Report(status.Update{Stage: stage, Message: message, Progress: progress})
		}
	}
	reportTemplate := report(status.StageTemplate)
	reportContent := report(status.StageContent)
	reportCompilation := report(status.StageCompilation)

	candidates := req.Candidates
	if len(candidates) == 0 && o.lister != nil {
		listed, err := o.lister.ListTemplates()
		if err != nil {
			werr := errors.NewTemplateSelectionFailedError(err)
			o.failStage(reportTemplate, werr)
			return nil, werr
		}
		candidates = listed
	}

	var (
		templateID string
		content    models.ContentMap
	)

	// Template selection and content generation share no data, so both
	// branches run concurrently. Wait drains both even when one fails; the
	// first error wins and the sibling is not cancelled.
	g := new(errgroup.Group)
	g.Go(func() error {
		defer o.observeStage(status.StageTemplate)()
		selected, err := o.selector.SelectTemplate(ctx, req.Intent, candidates, reportTemplate)
		if err != nil {
			werr := wrapStageError(status.StageTemplate, err)
			o.failStage(reportTemplate, werr)
			return werr
		}
		templateID = selected
		return nil
	})
	g.Go(func() error {
		defer o.observeStage(status.StageContent)()
		generated, err := o.generator.GenerateContent(ctx, req.Contact, req.Intent, reportContent)
		if err != nil {
			werr := wrapStageError(status.StageContent, err)
			o.failStage(reportContent, werr)
			return werr
		}
		content = generated
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	stopCompilation := o.observeStage(status.StageCompilation)
	html, err := o.compiler.CompileHTML(ctx, templateID, content, reportCompilation)
	stopCompilation()
	if err != nil {
		werr := wrapStageError(status.StageCompilation, err)
		o.failStage(reportCompilation, werr)
		return nil, werr
	}

	result := &models.PipelineResult{
		RunID:     uuid.NewString(),
		Template:  templateID,
		Content:   content,
		HTML:      html,
		CreatedAt: time.Now().UTC(),
	}
	o.logger.Info("email created", map[string]interface{}{
		"runId":    result.RunID,
		"template": result.Template,
	})
	return result, nil
}

// failStage records the failure and terminates the stage's progress at 1.0,
// since the stage is over either way. The monotonic guard drops this update
// when the stage already reported completion itself.
func (o *Orchestrator) failStage(report StatusFunc, werr *errors.PipelineError) {
	metrics.PipelineStageFailures.WithLabelValues(string(werr.Stage), string(werr.Code)).Inc()
	o.logger.WithError(werr).Error("pipeline stage failed", map[string]interface{}{
		"stage":   string(werr.Stage),
		"details": werr.Details,
	})
	report("Error: "+werr.Message, 1.0)
}

func (o *Orchestrator) observeStage(stage status.Stage) func() {
	started := time.Now()
	return func() {
		metrics.PipelineStageDuration.WithLabelValues(string(stage)).Observe(time.Since(started).Seconds())
	}
}

// wrapStageError maps a stage failure to the pipeline taxonomy. Errors that
// are already typed pass through unchanged; anything else is wrapped with
// the stage's failure kind so provider internals stay contained.
func wrapStageError(stage status.Stage, err error) *errors.PipelineError {
	if pe, ok := errors.AsPipelineError(err); ok {
		return pe
	}
	switch stage {
	case status.StageTemplate:
		return errors.NewTemplateSelectionFailedError(err)
	case status.StageContent:
		return errors.NewContentGenerationFailedError(err.Error())
	default:
		return errors.NewCompilationFailedError(err.Error())
	}
}
