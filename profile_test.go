package nutripilot_test

import (
	"testing"
	"time"

	"nutripilot"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func TestGlycemicRelevant(t *testing.T) {
	tests := []struct {
		name    string
		profile *nutripilot.UserProfile
		want    bool
	}{
		{"nil profile", nil, false},
		{"no goals or conditions", &nutripilot.UserProfile{UserID: "u1"}, false},
		{
			"glycemic goal",
			&nutripilot.UserProfile{Goals: []nutripilot.HealthGoal{nutripilot.GoalGlycemicControl}},
			true,
		},
		{
			"type 2 diabetes",
			&nutripilot.UserProfile{Conditions: []nutripilot.HealthCondition{nutripilot.ConditionType2Diabetes}},
			true,
		},
		{
			"type 1 diabetes",
			&nutripilot.UserProfile{Conditions: []nutripilot.HealthCondition{nutripilot.ConditionType1Diabetes}},
			true,
		},
		{
			"hypertension only",
			&nutripilot.UserProfile{Conditions: []nutripilot.HealthCondition{nutripilot.ConditionHypertension}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			should.Equal(t, tt.want, tt.profile.GlycemicRelevant())
		})
	}
}

func TestDailyTargetsTarget(t *testing.T) {
	targets := nutripilot.DefaultDailyTargets()

	should.Equal(t, 2000.0, targets.Target(nutripilot.NutrientCalories))
	should.Equal(t, 50.0, targets.Target(nutripilot.NutrientProtein))
	should.Equal(t, 2300.0, targets.Target(nutripilot.NutrientSodium))
	should.Zero(t, targets.Target(nutripilot.NutrientVitaminC))
}

func TestNewMealLogEntry(t *testing.T) {
	state := nutripilot.NewSessionState("u1", nutripilot.MealTypeDinner)
	state.DetectedFoods = []nutripilot.FoodItem{
		{Name: "salmon", PortionGrams: 150, Confidence: 0.9},
		{Name: "quinoa", PortionGrams: 185, Confidence: 0.8},
	}
	state.TotalNutrients = []nutripilot.NutrientInfo{
		{Name: "calories", Amount: 520, Unit: "kcal"},
		{Name: "protein", Amount: 38, Unit: "g"},
		{Name: "sodium", Amount: 300, Unit: "mg"},
	}
	state.SetScore(88)

	entry := nutripilot.NewMealLogEntry(state, 75.5)

	should.NotEmpty(t, entry.EntryID)
	should.Equal(t, "u1", entry.UserID)
	should.Equal(t, nutripilot.MealTypeDinner, entry.MealType)
	should.Equal(t, []string{"salmon", "quinoa"}, entry.FoodNames)
	should.Equal(t, 520.0, entry.TotalCals)
	should.Equal(t, 38.0, entry.TotalProtein)
	should.Equal(t, 300.0, entry.TotalSodium)
	should.Equal(t, 88.0, entry.MealScore)
	should.Equal(t, 75.5, entry.GoalAlignmentScore)
	must.WithinDuration(t, time.Now(), entry.Timestamp, time.Minute)
}

func TestNewMealLogEntryDefaultsMealType(t *testing.T) {
	state := nutripilot.NewSessionState("u1", "")
	state.DetectedFoods = []nutripilot.FoodItem{{Name: "apple", PortionGrams: 180, Confidence: 0.8}}
	state.SetScore(70)

	entry := nutripilot.NewMealLogEntry(state, 50)
	should.Equal(t, nutripilot.MealTypeSnack, entry.MealType)
}
