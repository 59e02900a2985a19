package pipeline

import (
	"context"
	"log/slog"
	"time"

	"nutripilot"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// InstrumentedPipeline is an instrumented version of the Pipeline with
// comprehensive observability metrics.
type InstrumentedPipeline struct {
	inner  *Pipeline
	tracer trace.Tracer
	meter  metric.Meter
}

// NewInstrumentedPipeline initializes a new instrumented pipeline around the
// same collaborators as NewPipeline.
func NewInstrumentedPipeline(
	perception nutripilot.PerceptionStage,
	constraint nutripilot.ConstraintStage,
	nutrition nutripilot.NutritionStage,
	alerts nutripilot.AlertNotifier,
	alertChannel string,
	logger nutripilot.SessionLogger,
	scoring nutripilot.ScoringConfig,
	perceptionTimeout time.Duration,
	tracer trace.Tracer,
	meter metric.Meter,
) *InstrumentedPipeline {
	return &InstrumentedPipeline{
		inner: NewPipeline(
			perception, constraint, nutrition,
			alerts, alertChannel, logger, scoring, perceptionTimeout,
		),
		tracer: tracer,
		meter:  meter,
	}
}

// Run executes the full Observe-Think-Act pipeline with full instrumentation.
func (p *InstrumentedPipeline) Run(ctx context.Context, input Input) (*nutripilot.SessionState, error) {
	ctx, span := p.tracer.Start(ctx, "InstrumentedPipeline.Run")
	defer span.End()

	slog.Info("PIPELINE: Starting instrumented run", "user_id", input.UserID)

	// Initialize all metrics
	runsCounter, _ := p.meter.Int64Counter("pipeline_runs_total",
		metric.WithDescription("Total number of analysis runs started"))
	runsCompletedCounter, _ := p.meter.Int64Counter("pipeline_runs_completed_total",
		metric.WithDescription("Total number of analysis runs completed successfully"))
	runsFailedCounter, _ := p.meter.Int64Counter("pipeline_runs_failed_total",
		metric.WithDescription("Total number of analysis runs that failed"))
	extractionFailuresCounter, _ := p.meter.Int64Counter("extraction_failures_total",
		metric.WithDescription("Total number of runs terminated by the extraction-failure gate"))
	goalSuggestionsCounter, _ := p.meter.Int64Counter("goal_suggestions_total",
		metric.WithDescription("Total number of goal-specific suggestions generated"))
	constraintViolationsCounter, _ := p.meter.Int64Counter("constraint_violations_total",
		metric.WithDescription("Total number of constraint violations detected"))

	// Gauges
	foodsDetectedGauge, _ := p.meter.Int64Gauge("foods_detected_count",
		metric.WithDescription("Number of foods detected in the latest observe phase"))
	confidenceGauge, _ := p.meter.Float64Gauge("image_analysis_confidence",
		metric.WithDescription("Overall confidence reported by the perception stage"))
	mealScoreGauge, _ := p.meter.Float64Gauge("meal_score",
		metric.WithDescription("Overall meal score of the latest completed run"))
	adjustmentsGauge, _ := p.meter.Int64Gauge("adjustments_count",
		metric.WithDescription("Number of adjustments in the latest completed run"))

	// Histograms
	runDurationHist, _ := p.meter.Float64Histogram("pipeline_run_duration_seconds",
		metric.WithDescription("Total duration of a pipeline run in seconds"))

	runsCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.Bool("is_image", len(input.ImageBytes) > 0),
	))

	runStart := time.Now()
	state, err := p.inner.Run(ctx, input)
	runDuration := time.Since(runStart)
	runDurationHist.Record(ctx, runDuration.Seconds())

	if err != nil {
		runsFailedCounter.Add(ctx, 1)
		span.SetStatus(codes.Error, "Pipeline run failed")
		span.RecordError(err)
		return nil, err
	}

	foodsDetectedGauge.Record(ctx, int64(len(state.DetectedFoods)))
	confidenceGauge.Record(ctx, state.ImageAnalysisConfidence)
	mealScoreGauge.Record(ctx, state.Score())
	adjustmentsGauge.Record(ctx, int64(len(state.Adjustments)))
	constraintViolationsCounter.Add(ctx, int64(len(state.ConstraintViolations)))
	goalSuggestionsCounter.Add(ctx, int64(len(state.Adjustments)))

	// A zero score with no foods means the extraction gate fired.
	if state.Score() == 0 && len(state.DetectedFoods) == 0 {
		extractionFailuresCounter.Add(ctx, 1)
		span.AddEvent("Extraction failure gate fired", trace.WithAttributes(
			attribute.String("session_id", state.SessionID),
			attribute.Float64("confidence", state.ImageAnalysisConfidence),
		))
	} else {
		runsCompletedCounter.Add(ctx, 1)
		span.AddEvent("Analysis completed", trace.WithAttributes(
			attribute.String("session_id", state.SessionID),
			attribute.Int("foods_detected", len(state.DetectedFoods)),
			attribute.Int("violations", len(state.ConstraintViolations)),
			attribute.Int("adjustments", len(state.Adjustments)),
			attribute.Float64("meal_score", state.Score()),
			attribute.Float64("run_duration_seconds", runDuration.Seconds()),
		))
	}

	slog.Info("PIPELINE: Instrumented run complete",
		"session_id", state.SessionID,
		"score", state.Score(),
		"duration_ms", runDuration.Milliseconds(),
	)

	return state, nil
}
