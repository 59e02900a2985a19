// Package goals scores completed meals against a user's declared health
// goals and condition restrictions.
package goals

import (
	"fmt"
	"log/slog"
	"math"
	"strings"

	"nutripilot"
)

// ruleKind distinguishes ceiling rules from floor rules.
type ruleKind int

const (
	maxPercent ruleKind = iota
	minPercent
)

// nutrientRule bounds one nutrient's intake as a percentage of the daily
// target, with a weight for the goal's weighted average.
type nutrientRule struct {
	nutrient nutripilot.Nutrient
	kind     ruleKind
	percent  float64
	weight   float64
}

// goalRules holds the per-goal nutrient rules. Slice order is the evaluation
// and feedback order.
var goalRules = map[nutripilot.HealthGoal][]nutrientRule{
	nutripilot.GoalWeightLoss: {
		{nutripilot.NutrientCalories, maxPercent, 90, 0.4},
		{nutripilot.NutrientProtein, minPercent, 100, 0.3},
		{nutripilot.NutrientFiber, minPercent, 100, 0.2},
		{nutripilot.NutrientSugar, maxPercent, 80, 0.1},
	},
	nutripilot.GoalGlycemicControl: {
		{nutripilot.NutrientSugar, maxPercent, 60, 0.4},
		{nutripilot.NutrientCarbs, maxPercent, 80, 0.3},
		{nutripilot.NutrientFiber, minPercent, 120, 0.2},
		{nutripilot.NutrientProtein, minPercent, 100, 0.1},
	},
	nutripilot.GoalLowerCholesterol: {
		{nutripilot.NutrientFiber, minPercent, 120, 0.4},
		{nutripilot.NutrientFat, maxPercent, 80, 0.3},
		{nutripilot.NutrientSodium, maxPercent, 90, 0.2},
		{nutripilot.NutrientProtein, minPercent, 90, 0.1},
	},
	nutripilot.GoalHeartHealth: {
		{nutripilot.NutrientSodium, maxPercent, 70, 0.4},
		{nutripilot.NutrientFiber, minPercent, 100, 0.3},
		{nutripilot.NutrientFat, maxPercent, 85, 0.2},
		{nutripilot.NutrientSugar, maxPercent, 80, 0.1},
	},
	nutripilot.GoalWeightGain: {
		{nutripilot.NutrientCalories, minPercent, 120, 0.4},
		{nutripilot.NutrientProtein, minPercent, 130, 0.35},
		{nutripilot.NutrientCarbs, minPercent, 110, 0.25},
	},
	nutripilot.GoalMuscleBuilding: {
		{nutripilot.NutrientProtein, minPercent, 150, 0.5},
		{nutripilot.NutrientCalories, minPercent, 100, 0.3},
		{nutripilot.NutrientCarbs, minPercent, 100, 0.2},
	},
	nutripilot.GoalGeneralWellness: {
		{nutripilot.NutrientProtein, minPercent, 90, 0.25},
		{nutripilot.NutrientFiber, minPercent, 90, 0.25},
		{nutripilot.NutrientSodium, maxPercent, 100, 0.25},
		{nutripilot.NutrientSugar, maxPercent, 100, 0.25},
	},
}

// conditionRestriction carries hard limits attached to a health condition.
// Zero limits are unset.
type conditionRestriction struct {
	sugarMaxG   float64
	sodiumMaxMG float64
	carbsMaxG   float64
	fatMaxG     float64
	proteinMaxG float64
	avoidFoods  []string
	warnings    []string
}

var conditionRestrictions = map[nutripilot.HealthCondition]conditionRestriction{
	nutripilot.ConditionType2Diabetes: {
		sugarMaxG: 25,
		carbsMaxG: 150,
		warnings:  []string{"Avoid high-glycemic foods", "Monitor carbohydrate portions"},
	},
	nutripilot.ConditionType1Diabetes: {
		sugarMaxG: 30,
		warnings:  []string{"Count carbohydrates carefully", "Monitor blood glucose after meals"},
	},
	nutripilot.ConditionHypertension: {
		sodiumMaxMG: 1500,
		warnings:    []string{"Limit processed foods", "Avoid added salt"},
	},
	nutripilot.ConditionHighCholesterol: {
		fatMaxG:  50,
		warnings: []string{"Limit saturated fats", "Choose lean proteins"},
	},
	nutripilot.ConditionCeliacDisease: {
		avoidFoods: []string{"wheat", "barley", "rye", "bread", "pasta"},
		warnings:   []string{"Avoid gluten-containing foods"},
	},
	nutripilot.ConditionLactoseIntolerant: {
		avoidFoods: []string{"milk", "cheese", "yogurt", "ice cream"},
		warnings:   []string{"Choose lactose-free dairy alternatives"},
	},
	nutripilot.ConditionKidneyDisease: {
		sodiumMaxMG: 1500,
		proteinMaxG: 50,
		warnings:    []string{"Limit sodium and protein intake", "Monitor phosphorus"},
	},
}

const (
	maxFeedback        = 5
	maxRecommendations = 3
	neutralScore       = 50.0
)

// Evaluator scores meals against user goals.
type Evaluator struct{}

// NewEvaluator creates a goal evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluate scores a completed session against the profile's goals and
// conditions. A profile with no goals yields the neutral score with no
// feedback.
func (e *Evaluator) Evaluate(state *nutripilot.SessionState, profile *nutripilot.UserProfile) nutripilot.GoalEvaluation {
	if profile == nil || len(profile.Goals) == 0 {
		return nutripilot.GoalEvaluation{
			AlignmentScore:  neutralScore,
			GoalScores:      map[string]float64{},
			Feedback:        []string{},
			Recommendations: []string{},
		}
	}

	totals := state.TotalAmounts()

	goalScores := make(map[string]float64, len(profile.Goals))
	var feedback []string
	var recommendations []string

	var sum float64
	for _, goal := range profile.Goals {
		score, fb, recs := e.evaluateGoal(goal, totals, profile)
		goalScores[string(goal)] = score
		sum += score
		feedback = append(feedback, fb...)
		recommendations = append(recommendations, recs...)
	}

	feedback = append(feedback, e.checkConditions(state, profile, totals)...)

	alignment := neutralScore
	if len(goalScores) > 0 {
		alignment = round1(sum / float64(len(goalScores)))
	}

	slog.Info("GOALS: Evaluation complete",
		"alignment_score", alignment,
		"goals", len(goalScores),
		"feedback_items", len(feedback),
	)

	if len(feedback) > maxFeedback {
		feedback = feedback[:maxFeedback]
	}
	if len(recommendations) > maxRecommendations {
		recommendations = recommendations[:maxRecommendations]
	}

	return nutripilot.GoalEvaluation{
		AlignmentScore:  alignment,
		GoalScores:      goalScores,
		Feedback:        feedback,
		Recommendations: recommendations,
	}
}

// evaluateGoal scores the meal's nutrient totals against one goal's rules.
// Overages on ceiling rules cost double the proportional penalty; shortfalls
// on floor rules cost it once.
func (e *Evaluator) evaluateGoal(
	goal nutripilot.HealthGoal,
	totals nutripilot.Amounts,
	profile *nutripilot.UserProfile,
) (float64, []string, []string) {
	rules, ok := goalRules[goal]
	if !ok {
		return neutralScore, nil, nil
	}

	label := goalLabel(goal)
	lower := strings.ReplaceAll(string(goal), "_", " ")

	var totalScore, totalWeight float64
	var feedback, recommendations []string

	for _, rule := range rules {
		target := profile.DailyTargets.Target(rule.nutrient)
		if target == 0 {
			continue
		}

		actual := totals.Get(rule.nutrient)
		percentOfTarget := actual / target * 100

		var score float64
		switch rule.kind {
		case maxPercent:
			if percentOfTarget <= rule.percent {
				score = 100
			} else {
				overage := percentOfTarget - rule.percent
				score = math.Max(0, 100-overage*2)
				if score < 50 {
					feedback = append(feedback, fmt.Sprintf(
						"%s: %s is %.0f%% of target (limit %.0f%%)",
						label, nutrientLabel(rule.nutrient), percentOfTarget, rule.percent,
					))
					recommendations = append(recommendations, fmt.Sprintf(
						"Reduce %s intake for your %s goal", string(rule.nutrient), lower,
					))
				}
			}
		case minPercent:
			if percentOfTarget >= rule.percent {
				score = 100
			} else {
				shortfall := rule.percent - percentOfTarget
				score = math.Max(0, 100-shortfall)
				if score < 50 {
					feedback = append(feedback, fmt.Sprintf(
						"%s: %s is %.0f%% of target (goal %.0f%% or more)",
						label, nutrientLabel(rule.nutrient), percentOfTarget, rule.percent,
					))
					recommendations = append(recommendations, fmt.Sprintf(
						"Increase %s intake for your %s goal", string(rule.nutrient), lower,
					))
				}
			}
		}

		totalScore += score * rule.weight
		totalWeight += rule.weight
	}

	final := neutralScore
	if totalWeight > 0 {
		final = totalScore / totalWeight
	}

	if final >= 80 && len(feedback) == 0 {
		feedback = append(feedback, fmt.Sprintf(
			"Great job! This meal aligns well with your %s goal!", lower,
		))
	}

	return round1(final), feedback, recommendations
}

// checkConditions applies hard condition limits independently of the goal
// scores. Each triggered limit adds one feedback line.
func (e *Evaluator) checkConditions(
	state *nutripilot.SessionState,
	profile *nutripilot.UserProfile,
	totals nutripilot.Amounts,
) []string {
	var feedback []string

	for _, condition := range profile.Conditions {
		if condition == nutripilot.ConditionNone {
			continue
		}
		restriction, ok := conditionRestrictions[condition]
		if !ok {
			continue
		}

		label := conditionLabel(condition)

		if restriction.sugarMaxG > 0 {
			if sugar := totals.Get(nutripilot.NutrientSugar); sugar > restriction.sugarMaxG {
				feedback = append(feedback, fmt.Sprintf(
					"%s: Sugar (%.0fg) exceeds recommended max (%.0fg)",
					label, sugar, restriction.sugarMaxG,
				))
			}
		}
		if restriction.sodiumMaxMG > 0 {
			if sodium := totals.Get(nutripilot.NutrientSodium); sodium > restriction.sodiumMaxMG {
				feedback = append(feedback, fmt.Sprintf(
					"%s: Sodium (%.0fmg) exceeds recommended max (%.0fmg)",
					label, sodium, restriction.sodiumMaxMG,
				))
			}
		}
		if restriction.carbsMaxG > 0 {
			if carbs := totals.Get(nutripilot.NutrientCarbs); carbs > restriction.carbsMaxG {
				feedback = append(feedback, fmt.Sprintf(
					"%s: Carbs (%.0fg) exceeds recommended max (%.0fg)",
					label, carbs, restriction.carbsMaxG,
				))
			}
		}
		if restriction.fatMaxG > 0 {
			if fat := totals.Get(nutripilot.NutrientFat); fat > restriction.fatMaxG {
				feedback = append(feedback, fmt.Sprintf(
					"%s: Fat (%.0fg) exceeds recommended max (%.0fg)",
					label, fat, restriction.fatMaxG,
				))
			}
		}
		if restriction.proteinMaxG > 0 {
			if protein := totals.Get(nutripilot.NutrientProtein); protein > restriction.proteinMaxG {
				feedback = append(feedback, fmt.Sprintf(
					"%s: Protein (%.0fg) exceeds recommended max (%.0fg)",
					label, protein, restriction.proteinMaxG,
				))
			}
		}

		if len(restriction.avoidFoods) > 0 {
			for _, food := range state.DetectedFoods {
				name := strings.ToLower(food.Name)
				for _, avoid := range restriction.avoidFoods {
					if strings.Contains(name, avoid) {
						feedback = append(feedback, fmt.Sprintf(
							"%s: %q may not be suitable, contains %s",
							label, name, avoid,
						))
						break
					}
				}
			}
		}
	}

	return feedback
}

// Warnings returns the advisory warning lines attached to a condition.
func Warnings(condition nutripilot.HealthCondition) []string {
	return conditionRestrictions[condition].warnings
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func goalLabel(goal nutripilot.HealthGoal) string {
	return titleCase(strings.ReplaceAll(string(goal), "_", " "))
}

func nutrientLabel(n nutripilot.Nutrient) string {
	return titleCase(strings.ReplaceAll(string(n), "_", " "))
}

func conditionLabel(condition nutripilot.HealthCondition) string {
	return titleCase(strings.ReplaceAll(string(condition), "_", " "))
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
