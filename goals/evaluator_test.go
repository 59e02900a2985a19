package goals_test

import (
	"testing"

	"nutripilot"
	"nutripilot/goals"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func mealState(totals map[nutripilot.Nutrient]float64, foodNames ...string) *nutripilot.SessionState {
	state := nutripilot.NewSessionState("u1", nutripilot.MealTypeLunch)
	for _, name := range foodNames {
		state.DetectedFoods = append(state.DetectedFoods, nutripilot.FoodItem{
			Name: name, PortionGrams: 100, Confidence: 0.8,
		})
	}
	for _, n := range nutripilot.AllNutrients {
		if v, ok := totals[n]; ok {
			state.TotalNutrients = append(state.TotalNutrients, nutripilot.NutrientInfo{
				Name: string(n), Amount: v, Unit: nutripilot.NutrientUnits[n],
			})
		}
	}
	return state
}

func profileWith(goals []nutripilot.HealthGoal, conditions ...nutripilot.HealthCondition) *nutripilot.UserProfile {
	return &nutripilot.UserProfile{
		UserID:       "u1",
		Goals:        goals,
		Conditions:   conditions,
		DailyTargets: nutripilot.DefaultDailyTargets(),
	}
}

func TestEvaluateNoGoals(t *testing.T) {
	evaluator := goals.NewEvaluator()
	state := mealState(map[nutripilot.Nutrient]float64{nutripilot.NutrientCalories: 500})

	tests := []struct {
		name    string
		profile *nutripilot.UserProfile
	}{
		{"nil profile", nil},
		{"empty goals", profileWith(nil)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := evaluator.Evaluate(state, tt.profile)
			should.Equal(t, 50.0, result.AlignmentScore)
			must.NotNil(t, result.Feedback)
			must.NotNil(t, result.Recommendations)
			should.Empty(t, result.Feedback)
			should.Empty(t, result.Recommendations)
			should.Empty(t, result.GoalScores)
		})
	}
}

func TestEvaluateWeightLossAligned(t *testing.T) {
	evaluator := goals.NewEvaluator()
	state := mealState(map[nutripilot.Nutrient]float64{
		nutripilot.NutrientCalories: 500,
		nutripilot.NutrientProtein:  55,
		nutripilot.NutrientFiber:    26,
		nutripilot.NutrientSugar:    10,
	})
	profile := profileWith([]nutripilot.HealthGoal{nutripilot.GoalWeightLoss})

	result := evaluator.Evaluate(state, profile)
	should.Equal(t, 100.0, result.AlignmentScore)
	should.Equal(t, 100.0, result.GoalScores["weight_loss"])
	must.Len(t, result.Feedback, 1)
	should.Equal(t, "Great job! This meal aligns well with your weight loss goal!", result.Feedback[0])
	should.Empty(t, result.Recommendations)
}

func TestEvaluateWeightLossMisaligned(t *testing.T) {
	evaluator := goals.NewEvaluator()
	state := mealState(map[nutripilot.Nutrient]float64{
		nutripilot.NutrientCalories: 2600,
		nutripilot.NutrientProtein:  10,
		nutripilot.NutrientFiber:    2,
		nutripilot.NutrientSugar:    60,
	})
	profile := profileWith([]nutripilot.HealthGoal{nutripilot.GoalWeightLoss})

	result := evaluator.Evaluate(state, profile)

	// calories 130% of target: 100-(130-90)*2 = 20, weight 0.4
	// protein 20% of target: 100-80 = 20, weight 0.3
	// fiber 8% of target: 100-92 = 8, weight 0.2
	// sugar 120% of target: 100-(120-80)*2 = 20, weight 0.1
	should.Equal(t, 17.6, result.AlignmentScore)
	should.Len(t, result.Feedback, 4)
	should.Contains(t, result.Feedback[0], "Weight Loss: Calories is 130% of target (limit 90%)")
	should.Len(t, result.Recommendations, 3, "recommendations cap at three")
	should.Equal(t, "Reduce calories intake for your weight loss goal", result.Recommendations[0])
}

func TestEvaluateMultipleGoalsAveraged(t *testing.T) {
	evaluator := goals.NewEvaluator()
	state := mealState(map[nutripilot.Nutrient]float64{
		nutripilot.NutrientCalories: 500,
		nutripilot.NutrientProtein:  55,
		nutripilot.NutrientFiber:    26,
		nutripilot.NutrientSugar:    10,
		nutripilot.NutrientCarbs:    50,
	})
	profile := profileWith([]nutripilot.HealthGoal{
		nutripilot.GoalWeightLoss,
		nutripilot.GoalMuscleBuilding,
	})

	result := evaluator.Evaluate(state, profile)

	// weight_loss scores 100. muscle_building: protein 110% (goal 150, shortfall
	// 40 -> 60) * 0.5, calories 25% (shortfall 75 -> 25) * 0.3, carbs 20%
	// (shortfall 80 -> 20) * 0.2 = 41.5. Mean = 70.75 -> 70.8.
	should.Equal(t, 70.8, result.AlignmentScore)
	should.Equal(t, 100.0, result.GoalScores["weight_loss"])
	should.Equal(t, 41.5, result.GoalScores["muscle_building"])
}

func TestEvaluateConditionLimits(t *testing.T) {
	evaluator := goals.NewEvaluator()
	state := mealState(map[nutripilot.Nutrient]float64{
		nutripilot.NutrientProtein: 50,
		nutripilot.NutrientFiber:   25,
		nutripilot.NutrientSugar:   30,
	})
	profile := profileWith(
		[]nutripilot.HealthGoal{nutripilot.GoalGeneralWellness},
		nutripilot.ConditionType2Diabetes,
	)

	result := evaluator.Evaluate(state, profile)
	should.Contains(t, result.Feedback, "Type 2 Diabetes: Sugar (30g) exceeds recommended max (25g)")
}

func TestEvaluateAvoidFoods(t *testing.T) {
	evaluator := goals.NewEvaluator()
	state := mealState(nil, "garlic bread", "salmon")
	profile := profileWith(
		[]nutripilot.HealthGoal{nutripilot.GoalGeneralWellness},
		nutripilot.ConditionCeliacDisease,
	)

	result := evaluator.Evaluate(state, profile)
	should.Contains(t, result.Feedback, `Celiac Disease: "garlic bread" may not be suitable, contains bread`)
}

func TestEvaluateFeedbackCapped(t *testing.T) {
	evaluator := goals.NewEvaluator()
	state := mealState(map[nutripilot.Nutrient]float64{
		nutripilot.NutrientSodium: 3000,
		nutripilot.NutrientSugar:  80,
		nutripilot.NutrientFat:    90,
	}, "cheese pasta", "milk", "bread")
	profile := profileWith(
		[]nutripilot.HealthGoal{nutripilot.GoalWeightLoss, nutripilot.GoalHeartHealth},
		nutripilot.ConditionHypertension,
		nutripilot.ConditionLactoseIntolerant,
		nutripilot.ConditionCeliacDisease,
	)

	result := evaluator.Evaluate(state, profile)
	should.LessOrEqual(t, len(result.Feedback), 5)
	should.LessOrEqual(t, len(result.Recommendations), 3)
}

func TestWarnings(t *testing.T) {
	should.Equal(t,
		[]string{"Limit processed foods", "Avoid added salt"},
		goals.Warnings(nutripilot.ConditionHypertension),
	)
	should.Empty(t, goals.Warnings(nutripilot.ConditionNone))
}
