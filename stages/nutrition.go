package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"nutripilot"
	"nutripilot/stages/storage"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// fallbackNutrition holds per-100g nutrient values for common foods, used
// when no dataset is configured or a food is missing from it. The "default"
// entry covers anything unknown.
var fallbackNutrition = map[string]map[nutripilot.Nutrient]float64{
	"chicken":          {nutripilot.NutrientCalories: 165, nutripilot.NutrientProtein: 31, nutripilot.NutrientCarbs: 0, nutripilot.NutrientFat: 3.6, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 74},
	"grilled chicken":  {nutripilot.NutrientCalories: 165, nutripilot.NutrientProtein: 31, nutripilot.NutrientCarbs: 0, nutripilot.NutrientFat: 3.6, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 74},
	"chicken breast":   {nutripilot.NutrientCalories: 165, nutripilot.NutrientProtein: 31, nutripilot.NutrientCarbs: 0, nutripilot.NutrientFat: 3.6, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 74},
	"rice":             {nutripilot.NutrientCalories: 130, nutripilot.NutrientProtein: 2.7, nutripilot.NutrientCarbs: 28, nutripilot.NutrientFat: 0.3, nutripilot.NutrientFiber: 0.4, nutripilot.NutrientSodium: 1},
	"brown rice":       {nutripilot.NutrientCalories: 111, nutripilot.NutrientProtein: 2.6, nutripilot.NutrientCarbs: 23, nutripilot.NutrientFat: 0.9, nutripilot.NutrientFiber: 1.8, nutripilot.NutrientSodium: 5},
	"white rice":       {nutripilot.NutrientCalories: 130, nutripilot.NutrientProtein: 2.7, nutripilot.NutrientCarbs: 28, nutripilot.NutrientFat: 0.3, nutripilot.NutrientFiber: 0.4, nutripilot.NutrientSodium: 1},
	"broccoli":         {nutripilot.NutrientCalories: 34, nutripilot.NutrientProtein: 2.8, nutripilot.NutrientCarbs: 7, nutripilot.NutrientFat: 0.4, nutripilot.NutrientFiber: 2.6, nutripilot.NutrientSodium: 33},
	"steamed broccoli": {nutripilot.NutrientCalories: 34, nutripilot.NutrientProtein: 2.8, nutripilot.NutrientCarbs: 7, nutripilot.NutrientFat: 0.4, nutripilot.NutrientFiber: 2.6, nutripilot.NutrientSodium: 33},
	"salmon":           {nutripilot.NutrientCalories: 208, nutripilot.NutrientProtein: 20, nutripilot.NutrientCarbs: 0, nutripilot.NutrientFat: 13, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 59},
	"apple":            {nutripilot.NutrientCalories: 52, nutripilot.NutrientProtein: 0.3, nutripilot.NutrientCarbs: 14, nutripilot.NutrientFat: 0.2, nutripilot.NutrientFiber: 2.4, nutripilot.NutrientSodium: 1},
	"banana":           {nutripilot.NutrientCalories: 89, nutripilot.NutrientProtein: 1.1, nutripilot.NutrientCarbs: 23, nutripilot.NutrientFat: 0.3, nutripilot.NutrientFiber: 2.6, nutripilot.NutrientSodium: 1},
	"eggs":             {nutripilot.NutrientCalories: 155, nutripilot.NutrientProtein: 13, nutripilot.NutrientCarbs: 1.1, nutripilot.NutrientFat: 11, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 124},
	"egg":              {nutripilot.NutrientCalories: 155, nutripilot.NutrientProtein: 13, nutripilot.NutrientCarbs: 1.1, nutripilot.NutrientFat: 11, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 124},
	"avocado":          {nutripilot.NutrientCalories: 160, nutripilot.NutrientProtein: 2, nutripilot.NutrientCarbs: 9, nutripilot.NutrientFat: 15, nutripilot.NutrientFiber: 7, nutripilot.NutrientSodium: 7},
	"spinach":          {nutripilot.NutrientCalories: 23, nutripilot.NutrientProtein: 2.9, nutripilot.NutrientCarbs: 3.6, nutripilot.NutrientFat: 0.4, nutripilot.NutrientFiber: 2.2, nutripilot.NutrientSodium: 79},
	"steak":            {nutripilot.NutrientCalories: 271, nutripilot.NutrientProtein: 26, nutripilot.NutrientCarbs: 0, nutripilot.NutrientFat: 18, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 66},
	"beef":             {nutripilot.NutrientCalories: 250, nutripilot.NutrientProtein: 26, nutripilot.NutrientCarbs: 0, nutripilot.NutrientFat: 15, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 72},
	"potato":           {nutripilot.NutrientCalories: 77, nutripilot.NutrientProtein: 2, nutripilot.NutrientCarbs: 17, nutripilot.NutrientFat: 0.1, nutripilot.NutrientFiber: 2.2, nutripilot.NutrientSodium: 6},
	"bread":            {nutripilot.NutrientCalories: 265, nutripilot.NutrientProtein: 9, nutripilot.NutrientCarbs: 49, nutripilot.NutrientFat: 3.2, nutripilot.NutrientFiber: 2.7, nutripilot.NutrientSodium: 491},
	"pasta":            {nutripilot.NutrientCalories: 131, nutripilot.NutrientProtein: 5, nutripilot.NutrientCarbs: 25, nutripilot.NutrientFat: 1.1, nutripilot.NutrientFiber: 1.8, nutripilot.NutrientSodium: 1},
	"cheese":           {nutripilot.NutrientCalories: 402, nutripilot.NutrientProtein: 25, nutripilot.NutrientCarbs: 1.3, nutripilot.NutrientFat: 33, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 621},
	"milk":             {nutripilot.NutrientCalories: 42, nutripilot.NutrientProtein: 3.4, nutripilot.NutrientCarbs: 5, nutripilot.NutrientFat: 1, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 44},
	"yogurt":           {nutripilot.NutrientCalories: 59, nutripilot.NutrientProtein: 10, nutripilot.NutrientCarbs: 3.6, nutripilot.NutrientFat: 0.7, nutripilot.NutrientFiber: 0, nutripilot.NutrientSodium: 36},
	"orange":           {nutripilot.NutrientCalories: 47, nutripilot.NutrientProtein: 0.9, nutripilot.NutrientCarbs: 12, nutripilot.NutrientFat: 0.1, nutripilot.NutrientFiber: 2.4, nutripilot.NutrientSodium: 0},
	"carrot":           {nutripilot.NutrientCalories: 41, nutripilot.NutrientProtein: 0.9, nutripilot.NutrientCarbs: 10, nutripilot.NutrientFat: 0.2, nutripilot.NutrientFiber: 2.8, nutripilot.NutrientSodium: 69},
	"tomato":           {nutripilot.NutrientCalories: 18, nutripilot.NutrientProtein: 0.9, nutripilot.NutrientCarbs: 3.9, nutripilot.NutrientFat: 0.2, nutripilot.NutrientFiber: 1.2, nutripilot.NutrientSodium: 5},
	"default":          {nutripilot.NutrientCalories: 100, nutripilot.NutrientProtein: 5, nutripilot.NutrientCarbs: 15, nutripilot.NutrientFat: 3, nutripilot.NutrientFiber: 1, nutripilot.NutrientSodium: 100},
}

// NutritionAuditor enriches detected foods with per-100g nutrient data scaled
// by portion, totals the meal, and checks the totals against the user's
// health constraints.
type NutritionAuditor struct {
	dataset storage.DataState

	mu     sync.Mutex
	cache  map[string]map[nutripilot.Nutrient]float64
	loaded bool
}

// NewNutritionAuditor creates a nutrition auditor. The dataset may be nil, in
// which case only the built-in fallback table is consulted.
func NewNutritionAuditor(dataset storage.DataState) *NutritionAuditor {
	return &NutritionAuditor{
		dataset: dataset,
		cache:   make(map[string]map[nutripilot.Nutrient]float64),
	}
}

func (a *NutritionAuditor) Name() string  { return "nutrition_audit" }
func (a *NutritionAuditor) Title() string { return "Nutrition Audit" }
func (a *NutritionAuditor) Description() string {
	return "Enriches foods with nutrient data, totals the meal, and flags constraint violations."
}

func (a *NutritionAuditor) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"foods":            {Type: "array", Items: foodItemSchema()},
			"user_constraints": {Type: "array", Items: constraintSchema()},
		},
		Required: []string{"foods"},
	}
}

func (a *NutritionAuditor) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"foods":           {Type: "array", Items: foodItemSchema()},
			"total_nutrients": {Type: "array", Items: nutrientInfoSchema()},
			"violations":      {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"warnings":        {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"foods_matched":   {Type: "integer"},
			"foods_unmatched": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"foods", "total_nutrients", "violations", "warnings"},
	}
}

// Audit implements the NutritionStage interface.
func (a *NutritionAuditor) Audit(ctx context.Context, req nutripilot.AuditRequest) (nutripilot.AuditReport, error) {
	start := time.Now()

	foodsMatched := 0
	var foodsUnmatched []string

	enriched := make([]nutripilot.FoodItem, 0, len(req.Foods))
	for _, food := range req.Foods {
		nutrients, matched := a.lookupNutrition(ctx, food.Name, food.PortionGrams)
		if matched {
			foodsMatched++
		} else {
			foodsUnmatched = append(foodsUnmatched, food.Name)
		}
		food.Nutrients = nutrients
		enriched = append(enriched, food)
	}

	totals := calculateTotals(enriched)
	violations, warnings := checkConstraints(totals, req.UserConstraints)
	suggestions := generateSuggestions(enriched, violations)

	slog.Info("STAGE: Nutrition audit complete",
		"foods_matched", foodsMatched,
		"foods_total", len(req.Foods),
		"violations", len(violations),
		"latency_ms", time.Since(start).Milliseconds(),
	)

	return nutripilot.AuditReport{
		Foods:          enriched,
		TotalNutrients: totals,
		Violations:     violations,
		Warnings:       warnings,
		Suggestions:    suggestions,
		FoodsMatched:   foodsMatched,
		FoodsUnmatched: foodsUnmatched,
	}, nil
}

// lookupNutrition returns the portion-scaled nutrient list for a food. The
// bool reports whether the food matched a dataset or fallback entry other
// than the default.
func (a *NutritionAuditor) lookupNutrition(ctx context.Context, foodName string, portionGrams float64) ([]nutripilot.NutrientInfo, bool) {
	key := strings.TrimSpace(strings.ToLower(foodName))

	per100g, matched := a.findPer100g(ctx, key)
	scale := portionGrams / 100.0

	result := make([]nutripilot.NutrientInfo, 0, len(per100g))
	for _, n := range nutripilot.AllNutrients {
		value, ok := per100g[n]
		if !ok {
			continue
		}
		scaled := round1(value * scale)

		var percentDaily *float64
		if dv, ok := nutripilot.DailyValues[n]; ok && dv > 0 && scaled != 0 {
			pd := round1(scaled / dv * 100)
			percentDaily = &pd
		}

		result = append(result, nutripilot.NutrientInfo{
			Name:         string(n),
			Amount:       scaled,
			Unit:         nutripilot.NutrientUnits[n],
			PercentDaily: percentDaily,
		})
	}
	return result, matched
}

func (a *NutritionAuditor) findPer100g(ctx context.Context, key string) (map[nutripilot.Nutrient]float64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if cached, ok := a.cache[key]; ok {
		return cached, true
	}

	if !a.loaded && a.dataset != nil {
		a.loadDatasetLocked(ctx)
	}
	if cached, ok := a.cache[key]; ok {
		return cached, true
	}

	// Exact fallback match, then substring match either way.
	if values, ok := fallbackNutrition[key]; ok {
		a.cache[key] = values
		return values, true
	}
	for name, values := range fallbackNutrition {
		if name == "default" {
			continue
		}
		if strings.Contains(key, name) || strings.Contains(name, key) {
			a.cache[key] = values
			return values, true
		}
	}

	// Unmatched foods are not cached so repeat lookups still count as
	// unmatched.
	return fallbackNutrition["default"], false
}

// loadDatasetLocked parses the configured dataset document into the cache.
// The document is a JSON object of food name to per-100g nutrient values.
func (a *NutritionAuditor) loadDatasetLocked(ctx context.Context) {
	a.loaded = true

	data, err := a.dataset.Load(ctx)
	if err != nil {
		slog.Warn("STAGE: Failed to load nutrition dataset, using fallback table", "error", err)
		return
	}

	var raw map[string]map[string]float64
	if err := json.Unmarshal(data, &raw); err != nil {
		slog.Warn("STAGE: Failed to parse nutrition dataset, using fallback table", "error", err)
		return
	}

	for name, values := range raw {
		entry := make(map[nutripilot.Nutrient]float64, len(values))
		for nutrientName, amount := range values {
			if n, ok := nutripilot.ParseNutrient(nutrientName); ok {
				entry[n] = amount
			}
		}
		a.cache[strings.TrimSpace(strings.ToLower(name))] = entry
	}

	slog.Info("STAGE: Loaded nutrition dataset", "entries", len(raw))
}

func calculateTotals(foods []nutripilot.FoodItem) []nutripilot.NutrientInfo {
	totals := make(nutripilot.Amounts)
	for _, food := range foods {
		for _, n := range food.Nutrients {
			if parsed, ok := nutripilot.ParseNutrient(n.Name); ok {
				totals[parsed] += n.Amount
			}
		}
	}

	result := make([]nutripilot.NutrientInfo, 0, len(totals))
	for _, n := range nutripilot.AllNutrients {
		amount, ok := totals[n]
		if !ok {
			continue
		}
		amount = round1(amount)

		var percentDaily *float64
		if dv, ok := nutripilot.DailyValues[n]; ok && dv > 0 && amount != 0 {
			pd := round1(amount / dv * 100)
			percentDaily = &pd
		}

		result = append(result, nutripilot.NutrientInfo{
			Name:         string(n),
			Amount:       amount,
			Unit:         nutripilot.NutrientUnits[n],
			PercentDaily: percentDaily,
		})
	}
	return result
}

// checkConstraints compares the meal totals against each health constraint.
// Violations block; warnings advise.
func checkConstraints(totalNutrients []nutripilot.NutrientInfo, constraints []nutripilot.HealthConstraint) ([]string, []string) {
	var violations, warnings []string

	totals := nutripilot.AmountsFromInfos(totalNutrients)
	carbs := totals.Get(nutripilot.NutrientCarbs)
	sugar := totals.Get(nutripilot.NutrientSugar)
	sodium := totals.Get(nutripilot.NutrientSodium)

	for _, constraint := range constraints {
		switch {
		case constraint.ConstraintType == "blood_glucose":
			switch constraint.Status {
			case nutripilot.ConstraintWarning:
				if carbs > 45 {
					violations = append(violations, fmt.Sprintf(
						"High carbohydrates (%.0fg) may spike blood glucose", carbs))
				} else if sugar > 15 {
					warnings = append(warnings, fmt.Sprintf(
						"Moderate sugar (%.0fg), monitor blood glucose", sugar))
				}
			case nutripilot.ConstraintCritical:
				if carbs > 30 {
					violations = append(violations, fmt.Sprintf(
						"Meal carbohydrates (%.0fg) too high for current glucose level", carbs))
				}
			}

		case strings.Contains(constraint.ConstraintType, "low_sodium"),
			constraint.ConstraintType == "daily_sodium":
			if sodium > 800 {
				violations = append(violations, fmt.Sprintf(
					"High sodium meal (%.0fmg), limit of 600mg recommended", sodium))
			} else if sodium > 500 {
				warnings = append(warnings, fmt.Sprintf(
					"Moderate sodium (%.0fmg) in this meal", sodium))
			}

		case strings.HasPrefix(constraint.ConstraintType, "allergy_"):
			allergen := strings.TrimPrefix(constraint.ConstraintType, "allergy_")
			violations = append(violations, fmt.Sprintf(
				"Check all items for %s content", allergen))
		}
	}

	return violations, warnings
}

// generateSuggestions derives meal adjustments from the violations found.
func generateSuggestions(foods []nutripilot.FoodItem, violations []string) []nutripilot.MealAdjustment {
	var suggestions []nutripilot.MealAdjustment

	for _, violation := range violations {
		lower := strings.ToLower(violation)

		switch {
		case strings.Contains(lower, "carbohydrate") || strings.Contains(lower, "carbs"):
			for _, food := range foods {
				if food.NutrientAmount(nutripilot.NutrientCarbs) <= 20 {
					continue
				}
				alternative := ""
				if strings.Contains(strings.ToLower(food.Name), "rice") {
					alternative = "cauliflower rice"
				}
				suggestions = append(suggestions, nutripilot.MealAdjustment{
					FoodName:    food.Name,
					Action:      nutripilot.ActionReduce,
					Reason:      "Reduce portion to lower carbohydrate intake",
					Alternative: alternative,
					Priority:    1,
				})
				break
			}

		case strings.Contains(lower, "sodium"):
			for _, food := range foods {
				if food.NutrientAmount(nutripilot.NutrientSodium) <= 200 {
					continue
				}
				suggestions = append(suggestions, nutripilot.MealAdjustment{
					FoodName:    food.Name,
					Action:      nutripilot.ActionReplace,
					Reason:      "High sodium content",
					Alternative: "unseasoned version or fresh alternative",
					Priority:    2,
				})
				break
			}
		}
	}

	var totalFiber float64
	for _, food := range foods {
		totalFiber += food.NutrientAmount(nutripilot.NutrientFiber)
	}
	if totalFiber < 5 {
		suggestions = append(suggestions, nutripilot.MealAdjustment{
			FoodName:    "meal",
			Action:      nutripilot.ActionAdd,
			Reason:      "Low fiber meal, consider adding vegetables",
			Alternative: "leafy greens, broccoli, or beans",
			Priority:    3,
		})
	}

	return suggestions
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
