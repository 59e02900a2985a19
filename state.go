package nutripilot

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// MealType categorizes meal timing.
type MealType string

const (
	MealTypeBreakfast MealType = "breakfast"
	MealTypeLunch     MealType = "lunch"
	MealTypeDinner    MealType = "dinner"
	MealTypeSnack     MealType = "snack"
)

// NutrientInfo is a single nutrient measurement.
type NutrientInfo struct {
	Name         string   `json:"name"`
	Amount       float64  `json:"amount"`
	Unit         string   `json:"unit"`
	PercentDaily *float64 `json:"percent_daily,omitempty"`
}

// BoundingBox holds normalized image coordinates for a detected food.
type BoundingBox struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// IsValid reports whether the box coordinates are normalized and ordered.
func (b BoundingBox) IsValid() bool {
	inRange := func(v float64) bool { return v >= 0 && v <= 1 }
	return inRange(b.X1) && inRange(b.Y1) && inRange(b.X2) && inRange(b.Y2) &&
		b.X2 > b.X1 && b.Y2 > b.Y1
}

// FoodItem is a single detected food from image or text analysis.
type FoodItem struct {
	Name               string         `json:"name"`
	PortionGrams       float64        `json:"portion_grams"`
	PortionDescription string         `json:"portion_description"`
	Confidence         float64        `json:"confidence"`
	Nutrients          []NutrientInfo `json:"nutrients"`
	BoundingBox        *BoundingBox   `json:"bounding_box,omitempty"`
}

// Validate checks the structural requirements on a food item.
func (f *FoodItem) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("food item name must not be empty")
	}
	if f.PortionGrams <= 0 {
		return fmt.Errorf("food item %q: portion_grams must be positive, got %v", f.Name, f.PortionGrams)
	}
	if f.Confidence < 0 || f.Confidence > 1 {
		return fmt.Errorf("food item %q: confidence must be in [0,1], got %v", f.Name, f.Confidence)
	}
	if f.BoundingBox != nil && !f.BoundingBox.IsValid() {
		return fmt.Errorf("food item %q: invalid bounding box", f.Name)
	}
	return nil
}

// NutrientAmount returns the amount of a nutrient on this food, zero if the
// nutrition lookup has not populated it.
func (f *FoodItem) NutrientAmount(n Nutrient) float64 {
	for _, info := range f.Nutrients {
		if parsed, ok := ParseNutrient(info.Name); ok && parsed == n {
			return info.Amount
		}
	}
	return 0
}

// ConstraintStatus is the alert level of a health constraint.
type ConstraintStatus string

const (
	ConstraintNormal   ConstraintStatus = "normal"
	ConstraintWarning  ConstraintStatus = "warning"
	ConstraintCritical ConstraintStatus = "critical"
)

// HealthConstraint is a health-related boundary condition from biometric data.
type HealthConstraint struct {
	ConstraintType string           `json:"constraint_type"`
	Value          float64          `json:"value"`
	Unit           string           `json:"unit"`
	Status         ConstraintStatus `json:"status"`
	ThresholdLow   *float64         `json:"threshold_low,omitempty"`
	ThresholdHigh  *float64         `json:"threshold_high,omitempty"`
	Recommendation string           `json:"recommendation,omitempty"`
}

// AdjustmentAction is the kind of change a MealAdjustment proposes.
type AdjustmentAction string

const (
	ActionReduce  AdjustmentAction = "reduce"
	ActionReplace AdjustmentAction = "replace"
	ActionRemove  AdjustmentAction = "remove"
	ActionAdd     AdjustmentAction = "add"
)

// MealAdjustment is a suggested modification to improve the meal.
type MealAdjustment struct {
	FoodName    string           `json:"food_name"`
	Action      AdjustmentAction `json:"action"`
	Reason      string           `json:"reason"`
	Alternative string           `json:"alternative,omitempty"`
	Priority    int              `json:"priority"` // 1 = highest, 5 = lowest
}

// SessionState is the single record accumulated across a pipeline run. It is
// created once per analysis request, mutated in place by each phase, and
// owned exclusively by that run; nothing shares an instance across requests.
type SessionState struct {
	// Session metadata.
	SessionID string    `json:"session_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	MealType  MealType  `json:"meal_type,omitempty"`

	// Observe outputs.
	DetectedFoods           []FoodItem `json:"detected_foods"`
	RawOCRText              string     `json:"raw_ocr_text,omitempty"`
	ImageAnalysisConfidence float64    `json:"image_analysis_confidence"`

	// Think outputs.
	HealthConstraints    []HealthConstraint `json:"health_constraints"`
	TotalNutrients       []NutrientInfo     `json:"total_nutrients"`
	ConstraintViolations []string           `json:"constraint_violations"`

	// Act outputs.
	Adjustments  []MealAdjustment `json:"adjustments"`
	Summary      string           `json:"summary,omitempty"`
	OverallScore *float64         `json:"overall_score,omitempty"`

	// Bookkeeping.
	AgentCalls       []string `json:"agent_calls"`
	ProcessingTimeMS int64    `json:"processing_time_ms,omitempty"`
}

// NewSessionState creates the state record for one pipeline run.
func NewSessionState(userID string, mealType MealType) *SessionState {
	return &SessionState{
		SessionID: uuid.NewString(),
		UserID:    userID,
		Timestamp: time.Now().UTC(),
		MealType:  mealType,
	}
}

// SetScore records the overall score, clamped to [0,100]. Once set the
// session is terminal.
func (s *SessionState) SetScore(score float64) {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	s.OverallScore = &score
}

// Score returns the overall score, zero when unset.
func (s *SessionState) Score() float64 {
	if s.OverallScore == nil {
		return 0
	}
	return *s.OverallScore
}

// IsTerminal reports whether the session has reached a final state.
func (s *SessionState) IsTerminal() bool {
	return s.OverallScore != nil
}

// TotalAmounts folds the aggregated nutrient totals into a typed map.
func (s *SessionState) TotalAmounts() Amounts {
	return AmountsFromInfos(s.TotalNutrients)
}
