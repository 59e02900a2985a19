package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"nutripilot"

	"go.opentelemetry.io/otel"
)

// ErrInvalidInput is returned when a run is requested with neither image
// bytes nor text input.
var ErrInvalidInput = errors.New("either image bytes or text input must be provided")

// Input is one analysis request.
type Input struct {
	UserID     string
	ImageBytes []byte
	TextInput  string
	MealType   nutripilot.MealType
	Profile    *nutripilot.UserProfile
}

// Pipeline runs the Observe-Think-Act analysis over its stage collaborators.
// Stage failures never escape Run; the only returned error is ErrInvalidInput.
type Pipeline struct {
	perception nutripilot.PerceptionStage
	constraint nutripilot.ConstraintStage
	nutrition  nutripilot.NutritionStage

	// alerts is optional. A nil notifier means alert delivery is skipped.
	alerts       nutripilot.AlertNotifier
	alertChannel string

	logger  nutripilot.SessionLogger
	scoring nutripilot.ScoringConfig

	perceptionTimeout time.Duration
}

// NewPipeline initializes a new pipeline. The alert notifier may be nil when
// no alert channel is configured.
func NewPipeline(
	perception nutripilot.PerceptionStage,
	constraint nutripilot.ConstraintStage,
	nutrition nutripilot.NutritionStage,
	alerts nutripilot.AlertNotifier,
	alertChannel string,
	logger nutripilot.SessionLogger,
	scoring nutripilot.ScoringConfig,
	perceptionTimeout time.Duration,
) *Pipeline {
	if logger == nil {
		logger = nutripilot.NewNoOpSessionLogger()
	}
	return &Pipeline{
		perception:        perception,
		constraint:        constraint,
		nutrition:         nutrition,
		alerts:            alerts,
		alertChannel:      alertChannel,
		logger:            logger,
		scoring:           scoring,
		perceptionTimeout: perceptionTimeout,
	}
}

// runContext carries the per-run working set between phases. One instance per
// Run call; nothing on the Pipeline itself mutates during a run.
type runContext struct {
	state              *nutripilot.SessionState
	profile            *nutripilot.UserProfile
	pendingSuggestions []nutripilot.MealAdjustment
	isImage            bool
}

// Run executes the full Observe-Think-Act pipeline for one request.
func (p *Pipeline) Run(ctx context.Context, input Input) (*nutripilot.SessionState, error) {
	ctx, span := otel.Tracer(nutripilot.TracerNamePipeline).Start(ctx, "Pipeline.Run")
	defer span.End()

	start := time.Now()

	if len(input.ImageBytes) == 0 && input.TextInput == "" {
		return nil, ErrInvalidInput
	}

	rc := &runContext{
		state:   nutripilot.NewSessionState(input.UserID, input.MealType),
		profile: input.Profile,
		isImage: len(input.ImageBytes) > 0,
	}

	slog.Info("PIPELINE: Starting analysis",
		"session_id", rc.state.SessionID,
		"user_id", input.UserID,
		"is_image", rc.isImage,
	)

	p.observe(ctx, rc, input)
	rc.state.AgentCalls = append(rc.state.AgentCalls, "PerceptionStage")

	// Short-circuit when the observe phase produced nothing usable. Running
	// Think and Act over hallucinated foods is worse than failing plainly.
	if p.isExtractionFailed(rc) {
		p.handleExtractionFailure(rc)
		rc.state.ProcessingTimeMS = time.Since(start).Milliseconds()
		slog.Warn("PIPELINE: Extraction failed, short-circuiting downstream processing",
			"session_id", rc.state.SessionID,
		)
		return rc.state, nil
	}

	p.think(ctx, rc)
	rc.state.AgentCalls = append(rc.state.AgentCalls, "ConstraintStage", "NutritionStage")

	p.act(ctx, rc)
	rc.state.AgentCalls = append(rc.state.AgentCalls, "Pipeline.act")

	rc.state.ProcessingTimeMS = time.Since(start).Milliseconds()

	slog.Info("PIPELINE: Analysis complete",
		"session_id", rc.state.SessionID,
		"processing_time_ms", rc.state.ProcessingTimeMS,
		"score", rc.state.Score(),
	)

	return rc.state, nil
}

// observe runs the OBSERVE phase: detect foods from the image or text input.
func (p *Pipeline) observe(ctx context.Context, rc *runContext, input Input) {
	ctx, span := otel.Tracer(nutripilot.TracerNamePipeline).Start(ctx, "Pipeline.observe")
	defer span.End()

	phaseStart := time.Now()
	slog.Info("PIPELINE: Starting OBSERVE phase", "session_id", rc.state.SessionID)

	if rc.isImage {
		p.observeImage(ctx, rc, input.ImageBytes)
	} else {
		parseTextInput(rc.state, input.TextInput, p.scoring.MaxTextMatches)
	}

	p.logPhase(nutripilot.PhaseLog{
		Phase:      "observe",
		Timestamp:  time.Now(),
		SessionID:  rc.state.SessionID,
		Output:     rc.state.DetectedFoods,
		DurationMS: time.Since(phaseStart).Milliseconds(),
	})

	slog.Info("PIPELINE: OBSERVE complete",
		"session_id", rc.state.SessionID,
		"foods_detected", len(rc.state.DetectedFoods),
		"confidence", rc.state.ImageAnalysisConfidence,
	)
}

func (p *Pipeline) observeImage(ctx context.Context, rc *runContext, imageBytes []byte) {
	visionCtx := ctx
	if p.perceptionTimeout > 0 {
		var cancel context.CancelFunc
		visionCtx, cancel = context.WithTimeout(ctx, p.perceptionTimeout)
		defer cancel()
	}

	report, err := p.perception.Analyze(visionCtx, nutripilot.VisionInput{
		ImageBytes:  imageBytes,
		ImageFormat: "jpeg",
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			// A timed-out analysis yields nothing; the extraction gate turns
			// this into a clean failure instead of inventing foods.
			slog.Warn("PIPELINE: Perception stage timed out", "session_id", rc.state.SessionID)
			rc.state.DetectedFoods = nil
			rc.state.ImageAnalysisConfidence = 0
			return
		}
		slog.Warn("PIPELINE: Perception stage failed, using fallback foods",
			"session_id", rc.state.SessionID,
			"error", err,
		)
		addFallbackFoods(rc.state)
		return
	}

	rc.state.DetectedFoods = report.Foods
	rc.state.ImageAnalysisConfidence = report.OverallConfidence
	rc.state.RawOCRText = report.OCRText

	slog.Info("PIPELINE: Perception stage detected foods",
		"session_id", rc.state.SessionID,
		"count", len(report.Foods),
		"confidence", report.OverallConfidence,
		"model", report.ModelUsed,
	)
}

// think runs the THINK phase: query health constraints and audit nutrition.
func (p *Pipeline) think(ctx context.Context, rc *runContext) {
	ctx, span := otel.Tracer(nutripilot.TracerNamePipeline).Start(ctx, "Pipeline.think")
	defer span.End()

	phaseStart := time.Now()
	slog.Info("PIPELINE: Starting THINK phase", "session_id", rc.state.SessionID)

	bioReport, err := p.constraint.QueryConstraints(ctx, nutripilot.BioDataQuery{
		UserID: rc.state.UserID,
	})
	if err != nil {
		slog.Warn("PIPELINE: Constraint stage failed",
			"session_id", rc.state.SessionID,
			"error", err,
		)
	} else {
		constraints := bioReport.Constraints

		// When a profile is present, blood glucose readings only matter to
		// users with a glycemic goal or a diabetes condition. Without a
		// profile the constraints pass through untouched.
		if rc.profile != nil && !rc.profile.GlycemicRelevant() {
			filtered := constraints[:0]
			for _, c := range constraints {
				if c.ConstraintType != "blood_glucose" {
					filtered = append(filtered, c)
				}
			}
			if len(filtered) < len(constraints) {
				slog.Info("PIPELINE: Filtered out blood_glucose constraints",
					"session_id", rc.state.SessionID,
				)
			}
			constraints = filtered
		}

		rc.state.HealthConstraints = constraints

		for _, alert := range bioReport.Alerts {
			slog.Warn("PIPELINE: Health alert", "session_id", rc.state.SessionID, "alert", alert)
			p.postAlert(ctx, rc, alert)
		}
	}

	auditReport, err := p.nutrition.Audit(ctx, nutripilot.AuditRequest{
		Foods:           rc.state.DetectedFoods,
		UserConstraints: rc.state.HealthConstraints,
	})
	if err != nil {
		slog.Warn("PIPELINE: Nutrition stage failed",
			"session_id", rc.state.SessionID,
			"error", err,
		)
	} else {
		rc.state.DetectedFoods = auditReport.Foods
		rc.state.TotalNutrients = auditReport.TotalNutrients
		rc.state.ConstraintViolations = auditReport.Violations

		for _, warning := range auditReport.Warnings {
			tagged := "warning: " + warning
			if !containsString(rc.state.ConstraintViolations, warning) {
				rc.state.ConstraintViolations = append(rc.state.ConstraintViolations, tagged)
			}
		}

		rc.pendingSuggestions = auditReport.Suggestions

		slog.Info("PIPELINE: Nutrition stage matched foods",
			"session_id", rc.state.SessionID,
			"foods_matched", auditReport.FoodsMatched,
			"violations", len(auditReport.Violations),
		)
	}

	p.logPhase(nutripilot.PhaseLog{
		Phase:      "think",
		Timestamp:  time.Now(),
		SessionID:  rc.state.SessionID,
		Output:     rc.state.ConstraintViolations,
		DurationMS: time.Since(phaseStart).Milliseconds(),
	})

	slog.Info("PIPELINE: THINK complete",
		"session_id", rc.state.SessionID,
		"violations", len(rc.state.ConstraintViolations),
	)
}

// act runs the ACT phase: generate adjustments, score the meal, and write the
// summary.
func (p *Pipeline) act(ctx context.Context, rc *runContext) {
	_, span := otel.Tracer(nutripilot.TracerNamePipeline).Start(ctx, "Pipeline.act")
	defer span.End()

	phaseStart := time.Now()
	slog.Info("PIPELINE: Starting ACT phase", "session_id", rc.state.SessionID)

	if rc.profile != nil && len(rc.profile.Goals) > 0 {
		rc.state.Adjustments = GenerateGoalSuggestions(
			rc.state.TotalAmounts(),
			rc.state.DetectedFoods,
			rc.profile,
			p.scoring.MaxGoalSuggestions,
		)
		slog.Info("PIPELINE: Generated goal-specific suggestions",
			"session_id", rc.state.SessionID,
			"count", len(rc.state.Adjustments),
		)
	} else if len(rc.pendingSuggestions) > 0 {
		rc.state.Adjustments = rc.pendingSuggestions
		rc.pendingSuggestions = nil
	}

	p.synthesizeCarbAdjustment(rc)

	score := CalculateMealScore(rc.state, p.scoring)
	rc.state.SetScore(score)

	rc.state.Summary = GenerateSummary(rc.state)

	p.logPhase(nutripilot.PhaseLog{
		Phase:      "act",
		Timestamp:  time.Now(),
		SessionID:  rc.state.SessionID,
		Output:     rc.state.Summary,
		DurationMS: time.Since(phaseStart).Milliseconds(),
	})

	slog.Info("PIPELINE: ACT complete",
		"session_id", rc.state.SessionID,
		"score", rc.state.Score(),
		"adjustments", len(rc.state.Adjustments),
	)
}

// synthesizeCarbAdjustment adds a portion-reduction suggestion when a
// carbohydrate violation exists for a glycemic-relevant user and no adjustment
// already covers carbs or glucose.
func (p *Pipeline) synthesizeCarbAdjustment(rc *runContext) {
	if len(rc.state.ConstraintViolations) == 0 || rc.profile == nil {
		return
	}
	if !rc.profile.GlycemicRelevant() {
		return
	}

	for _, violation := range rc.state.ConstraintViolations {
		if !strings.Contains(strings.ToLower(violation), "carbohydrate") {
			continue
		}

		hasCarbSuggestion := false
		for _, adj := range rc.state.Adjustments {
			reason := strings.ToLower(adj.Reason)
			if strings.Contains(reason, "carb") || strings.Contains(reason, "glucose") {
				hasCarbSuggestion = true
				break
			}
		}
		if hasCarbSuggestion {
			continue
		}

		for _, food := range rc.state.DetectedFoods {
			if food.NutrientAmount(nutripilot.NutrientCarbs) <= 20 {
				continue
			}
			alternative := ""
			if strings.Contains(strings.ToLower(food.Name), "rice") {
				alternative = "cauliflower rice"
			}
			rc.state.Adjustments = append(rc.state.Adjustments, nutripilot.MealAdjustment{
				FoodName:    food.Name,
				Action:      nutripilot.ActionReduce,
				Reason:      "Consider reducing portion to manage blood glucose",
				Alternative: alternative,
				Priority:    1,
			})
			break
		}
	}
}

// isExtractionFailed reports whether the observe phase failed to extract
// anything downstream phases could safely use. Text inputs always pass; the
// parser synthesizes at least one item.
func (p *Pipeline) isExtractionFailed(rc *runContext) bool {
	if !rc.isImage {
		return false
	}

	noFoods := len(rc.state.DetectedFoods) < p.scoring.MinFoodsForSuccess
	lowConfidence := rc.state.ImageAnalysisConfidence < p.scoring.FailureConfidence

	if noFoods && lowConfidence {
		slog.Warn("PIPELINE: Image extraction failed",
			"session_id", rc.state.SessionID,
			"foods", len(rc.state.DetectedFoods),
			"confidence", rc.state.ImageAnalysisConfidence,
		)
		return true
	}

	// Confidence this low with foods present usually means hallucinated
	// detections from a non-food image.
	if rc.state.ImageAnalysisConfidence < p.scoring.HallucinationConfidence {
		slog.Warn("PIPELINE: Very low confidence extraction",
			"session_id", rc.state.SessionID,
			"confidence", rc.state.ImageAnalysisConfidence,
		)
		return true
	}

	return false
}

// handleExtractionFailure moves the session to its terminal failure state:
// all observe outputs cleared, score zero, and an input-specific summary
// instead of fabricated analysis.
func (p *Pipeline) handleExtractionFailure(rc *runContext) {
	rc.state.DetectedFoods = nil
	rc.state.TotalNutrients = nil
	rc.state.Adjustments = nil
	rc.state.ConstraintViolations = nil

	rc.state.SetScore(0)

	if rc.isImage {
		rc.state.Summary = "Unable to identify food in this image. " +
			"Please upload a clear photo of your meal, or try describing " +
			"your food using the text input option. For best results, " +
			"ensure good lighting and that the food is clearly visible."
	} else {
		rc.state.Summary = "Could not process the input as food. " +
			"Please provide a description of your meal, such as " +
			"'grilled chicken with rice and vegetables'."
	}

	p.logPhase(nutripilot.PhaseLog{
		Phase:     "extraction_failure",
		Timestamp: time.Now(),
		SessionID: rc.state.SessionID,
		Output:    rc.state.Summary,
	})
}

func (p *Pipeline) postAlert(ctx context.Context, rc *runContext, alert string) {
	if p.alerts == nil {
		return
	}
	if err := p.alerts.PostMessage(ctx, p.alertChannel, alert); err != nil {
		slog.Error("PIPELINE: Failed to post health alert",
			"session_id", rc.state.SessionID,
			"error", err,
		)
	}
}

func (p *Pipeline) logPhase(phase nutripilot.PhaseLog) {
	if err := p.logger.LogPhase(phase); err != nil {
		slog.Error("Failed to log pipeline phase", "error", err, "phase", phase.Phase)
	}
}

// addFallbackFoods fills in the fixed illustrative food set used when the
// perception stage errors out without timing out.
func addFallbackFoods(state *nutripilot.SessionState) {
	state.DetectedFoods = []nutripilot.FoodItem{
		{
			Name:               "grilled chicken breast",
			PortionGrams:       150,
			PortionDescription: "1 medium breast",
			Confidence:         0.9,
		},
		{
			Name:               "brown rice",
			PortionGrams:       200,
			PortionDescription: "1 cup cooked",
			Confidence:         0.85,
		},
		{
			Name:               "steamed broccoli",
			PortionGrams:       100,
			PortionDescription: "1 cup",
			Confidence:         0.88,
		},
	}
	state.ImageAnalysisConfidence = 0.87
}

func containsString(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
