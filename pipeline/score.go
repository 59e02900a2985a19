package pipeline

import (
	"fmt"
	"strings"

	"nutripilot"
)

// softWarningPrefix tags advisory violations that should not count against
// the meal score.
const softWarningPrefix = "warning: "

// CalculateMealScore computes the 0-100 meal quality score from the session's
// totals, violations, and food variety.
func CalculateMealScore(state *nutripilot.SessionState, cfg nutripilot.ScoringConfig) float64 {
	score := cfg.BaseScore

	totals := state.TotalAmounts()

	protein := totals.Get(nutripilot.NutrientProtein)
	switch {
	case protein >= cfg.ProteinHighGrams:
		score += 15
	case protein >= cfg.ProteinMidGrams:
		score += 10
	case protein >= cfg.ProteinLowGrams:
		score += 5
	}

	fiber := totals.Get(nutripilot.NutrientFiber)
	switch {
	case fiber >= cfg.FiberHighGrams:
		score += 10
	case fiber >= cfg.FiberMidGrams:
		score += 5
	}

	sodium := totals.Get(nutripilot.NutrientSodium)
	switch {
	case sodium > cfg.SodiumHighMG:
		score -= 10
	case sodium > cfg.SodiumMidMG:
		score -= 5
	}

	serious := 0
	for _, v := range state.ConstraintViolations {
		if !strings.HasPrefix(v, softWarningPrefix) {
			serious++
		}
	}
	score -= float64(serious) * cfg.ViolationPenalty

	switch {
	case len(state.DetectedFoods) >= 4:
		score += 10
	case len(state.DetectedFoods) >= 3:
		score += 5
	}

	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return score
}

// GenerateSummary writes the human-readable meal summary. Call after the
// score is set; the remark buckets read the final score.
func GenerateSummary(state *nutripilot.SessionState) string {
	names := make([]string, 0, 3)
	for i, f := range state.DetectedFoods {
		if i >= 3 {
			break
		}
		names = append(names, f.Name)
	}
	foodsList := strings.Join(names, ", ")
	if extra := len(state.DetectedFoods) - 3; extra > 0 {
		foodsList += fmt.Sprintf(" and %d more", extra)
	}

	totals := state.TotalAmounts()
	calories := totals.Get(nutripilot.NutrientCalories)
	protein := totals.Get(nutripilot.NutrientProtein)
	carbs := totals.Get(nutripilot.NutrientCarbs)

	var b strings.Builder
	fmt.Fprintf(&b, "Your meal contains %s", foodsList)
	fmt.Fprintf(&b, " with approximately %.0f calories", calories)
	fmt.Fprintf(&b, ", %.0fg protein, and %.0fg carbohydrates.", protein, carbs)

	switch score := state.Score(); {
	case score >= 85:
		b.WriteString(" Excellent balanced meal!")
	case score >= 70:
		b.WriteString(" Great meal with good nutritional balance!")
	case score >= 55:
		b.WriteString(" Good meal with room for improvement.")
	default:
		b.WriteString(" Consider some adjustments for better nutrition.")
	}

	if n := len(state.Adjustments); n > 0 {
		fmt.Fprintf(&b, " We have %d suggestion(s) for you.", n)
	}

	return b.String()
}
