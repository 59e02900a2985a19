package nutripilot

import (
	"time"

	"github.com/google/uuid"
)

// HealthGoal is a user-defined health objective.
type HealthGoal string

const (
	GoalWeightLoss       HealthGoal = "weight_loss"
	GoalWeightGain       HealthGoal = "weight_gain"
	GoalGlycemicControl  HealthGoal = "glycemic_control"
	GoalLowerCholesterol HealthGoal = "lower_cholesterol"
	GoalHeartHealth      HealthGoal = "heart_health"
	GoalMuscleBuilding   HealthGoal = "muscle_building"
	GoalGeneralWellness  HealthGoal = "general_wellness"
)

// AllGoals lists every supported goal.
var AllGoals = []HealthGoal{
	GoalWeightLoss,
	GoalWeightGain,
	GoalGlycemicControl,
	GoalLowerCholesterol,
	GoalHeartHealth,
	GoalMuscleBuilding,
	GoalGeneralWellness,
}

// HealthCondition is a known condition affecting dietary needs.
type HealthCondition string

const (
	ConditionType2Diabetes     HealthCondition = "type_2_diabetes"
	ConditionType1Diabetes     HealthCondition = "type_1_diabetes"
	ConditionHypertension      HealthCondition = "hypertension"
	ConditionHighCholesterol   HealthCondition = "high_cholesterol"
	ConditionCeliacDisease     HealthCondition = "celiac_disease"
	ConditionLactoseIntolerant HealthCondition = "lactose_intolerant"
	ConditionKidneyDisease     HealthCondition = "kidney_disease"
	ConditionNone              HealthCondition = "none"
)

// IsDiabetes reports whether the condition is a diabetes diagnosis of either
// type, which makes glycemic adjustments relevant.
func (c HealthCondition) IsDiabetes() bool {
	return c == ConditionType1Diabetes || c == ConditionType2Diabetes
}

// DailyTargets holds the user's daily nutritional targets.
type DailyTargets struct {
	Calories int `json:"calories"`
	ProteinG int `json:"protein_g"`
	CarbsG   int `json:"carbs_g"`
	FatG     int `json:"fat_g"`
	FiberG   int `json:"fiber_g"`
	SodiumMG int `json:"sodium_mg"`
	SugarG   int `json:"sugar_g"`
}

// DefaultDailyTargets returns the reference targets used when a profile has
// no custom values.
func DefaultDailyTargets() DailyTargets {
	return DailyTargets{
		Calories: 2000,
		ProteinG: 50,
		CarbsG:   250,
		FatG:     65,
		FiberG:   25,
		SodiumMG: 2300,
		SugarG:   50,
	}
}

// Target returns the daily target for a nutrient, zero when the nutrient has
// no configured target.
func (t DailyTargets) Target(n Nutrient) float64 {
	switch n {
	case NutrientCalories:
		return float64(t.Calories)
	case NutrientProtein:
		return float64(t.ProteinG)
	case NutrientCarbs:
		return float64(t.CarbsG)
	case NutrientFat:
		return float64(t.FatG)
	case NutrientFiber:
		return float64(t.FiberG)
	case NutrientSodium:
		return float64(t.SodiumMG)
	case NutrientSugar:
		return float64(t.SugarG)
	}
	return 0
}

// UserProfile is the complete personalization record for a user. Immutable
// within a pipeline run.
type UserProfile struct {
	UserID              string            `json:"user_id"`
	DisplayName         string            `json:"display_name,omitempty"`
	Goals               []HealthGoal      `json:"goals"`
	Conditions          []HealthCondition `json:"conditions"`
	DietaryRestrictions []string          `json:"dietary_restrictions"`
	DailyTargets        DailyTargets      `json:"daily_targets"`
	TimelineWeeks       int               `json:"timeline_weeks"`
	StartDate           time.Time         `json:"start_date"`
	CreatedAt           time.Time         `json:"created_at"`
	UpdatedAt           time.Time         `json:"updated_at"`
}

// HasGoal reports whether the profile declares a goal.
func (p *UserProfile) HasGoal(goal HealthGoal) bool {
	if p == nil {
		return false
	}
	for _, g := range p.Goals {
		if g == goal {
			return true
		}
	}
	return false
}

// HasDiabetes reports whether any declared condition is a diabetes diagnosis.
func (p *UserProfile) HasDiabetes() bool {
	if p == nil {
		return false
	}
	for _, c := range p.Conditions {
		if c.IsDiabetes() {
			return true
		}
	}
	return false
}

// GlycemicRelevant reports whether glycemic adjustments apply to this user:
// either a glycemic-control goal or a diabetes condition.
func (p *UserProfile) GlycemicRelevant() bool {
	return p.HasGoal(GoalGlycemicControl) || p.HasDiabetes()
}

// MealLogEntry is a logged meal for progress tracking.
type MealLogEntry struct {
	EntryID   string    `json:"entry_id"`
	UserID    string    `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
	MealType  MealType  `json:"meal_type"`

	FoodNames    []string `json:"food_names"`
	TotalCals    float64  `json:"total_calories"`
	TotalProtein float64  `json:"total_protein"`
	TotalCarbs   float64  `json:"total_carbs"`
	TotalFat     float64  `json:"total_fat"`
	TotalFiber   float64  `json:"total_fiber"`
	TotalSodium  float64  `json:"total_sodium"`

	MealScore          float64 `json:"meal_score"`
	GoalAlignmentScore float64 `json:"goal_alignment_score"`

	GoalFeedback []string `json:"goal_feedback"`
}

// NewMealLogEntry builds a log entry from a completed session state and an
// optional goal-alignment score.
func NewMealLogEntry(state *SessionState, alignmentScore float64) MealLogEntry {
	names := make([]string, 0, len(state.DetectedFoods))
	for _, f := range state.DetectedFoods {
		names = append(names, f.Name)
	}

	totals := state.TotalAmounts()
	mealType := state.MealType
	if mealType == "" {
		mealType = MealTypeSnack
	}

	return MealLogEntry{
		EntryID:            uuid.NewString(),
		UserID:             state.UserID,
		Timestamp:          state.Timestamp,
		MealType:           mealType,
		FoodNames:          names,
		TotalCals:          totals.Get(NutrientCalories),
		TotalProtein:       totals.Get(NutrientProtein),
		TotalCarbs:         totals.Get(NutrientCarbs),
		TotalFat:           totals.Get(NutrientFat),
		TotalFiber:         totals.Get(NutrientFiber),
		TotalSodium:        totals.Get(NutrientSodium),
		MealScore:          state.Score(),
		GoalAlignmentScore: alignmentScore,
	}
}

// GoalEvaluation is the result of scoring a meal against user goals.
type GoalEvaluation struct {
	AlignmentScore  float64            `json:"alignment_score"`
	GoalScores      map[string]float64 `json:"goal_scores"`
	Feedback        []string           `json:"feedback"`
	Recommendations []string           `json:"recommendations"`
}
