package nutripilot

import (
	"context"
	"net/http"
	"time"
)

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AlertNotifier delivers critical health alerts to an external channel. The
// pipeline holds a nil notifier when alerting is not configured and skips
// delivery without error.
type AlertNotifier interface {
	PostMessage(ctx context.Context, channel string, message string) error
}

// VisionInput is the request to a perception stage.
type VisionInput struct {
	ImageBytes  []byte `json:"image_bytes"`
	ImageFormat string `json:"image_format"`
	Context     string `json:"context,omitempty"`
}

// VisionReport is the perception stage's answer.
type VisionReport struct {
	Foods             []FoodItem `json:"foods"`
	OCRText           string     `json:"ocr_text,omitempty"`
	OverallConfidence float64    `json:"overall_confidence"`
	ModelUsed         string     `json:"model_used"`
	LatencyMS         int64      `json:"latency_ms"`
}

// PerceptionStage detects foods in an image. Implementations may time out or
// fail; the pipeline treats both as "no usable foods".
type PerceptionStage interface {
	Analyze(ctx context.Context, input VisionInput) (VisionReport, error)
}

// BioDataQuery is the request to a constraint stage.
type BioDataQuery struct {
	UserID          string   `json:"user_id"`
	ConstraintTypes []string `json:"constraint_types,omitempty"`
}

// BioDataReport is the constraint stage's answer.
type BioDataReport struct {
	UserID      string             `json:"user_id"`
	Constraints []HealthConstraint `json:"constraints"`
	Alerts      []string           `json:"alerts"`
	LastUpdated time.Time          `json:"last_updated"`
}

// ConstraintStage queries the user's active health constraints.
type ConstraintStage interface {
	QueryConstraints(ctx context.Context, query BioDataQuery) (BioDataReport, error)
}

// AuditRequest is the request to a nutrition stage.
type AuditRequest struct {
	Foods           []FoodItem         `json:"foods"`
	UserConstraints []HealthConstraint `json:"user_constraints"`
}

// AuditReport is the nutrition stage's answer. Foods carries the input items
// enriched with nutrient data.
type AuditReport struct {
	Foods          []FoodItem       `json:"foods"`
	TotalNutrients []NutrientInfo   `json:"total_nutrients"`
	Violations     []string         `json:"violations"`
	Warnings       []string         `json:"warnings"`
	Suggestions    []MealAdjustment `json:"suggestions"`
	FoodsMatched   int              `json:"foods_matched"`
	FoodsUnmatched []string         `json:"foods_unmatched"`
}

// NutritionStage enriches foods with nutrient data and checks them against
// the user's constraints.
type NutritionStage interface {
	Audit(ctx context.Context, req AuditRequest) (AuditReport, error)
}
