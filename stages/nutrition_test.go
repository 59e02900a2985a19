package stages_test

import (
	"context"
	"testing"

	"nutripilot"
	"nutripilot/stages"
	"nutripilot/stages/storage"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func auditFoods(names []string, grams []float64) []nutripilot.FoodItem {
	foods := make([]nutripilot.FoodItem, len(names))
	for i := range names {
		foods[i] = nutripilot.FoodItem{Name: names[i], PortionGrams: grams[i], Confidence: 0.9}
	}
	return foods
}

func TestAuditEnrichesAndTotals(t *testing.T) {
	auditor := stages.NewNutritionAuditor(nil)

	report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods(
			[]string{"grilled chicken breast", "brown rice", "steamed broccoli"},
			[]float64{150, 200, 100},
		),
	})
	must.NoError(t, err)

	should.Equal(t, 3, report.FoodsMatched)
	should.Empty(t, report.FoodsUnmatched)
	must.Len(t, report.Foods, 3)

	rice := report.Foods[1]
	should.InDelta(t, 46.0, rice.NutrientAmount(nutripilot.NutrientCarbs), 0.001)
	should.InDelta(t, 222.0, rice.NutrientAmount(nutripilot.NutrientCalories), 0.001)

	totals := nutripilot.AmountsFromInfos(report.TotalNutrients)
	should.InDelta(t, 503.5, totals.Get(nutripilot.NutrientCalories), 0.001)
	should.InDelta(t, 54.5, totals.Get(nutripilot.NutrientProtein), 0.001)
	should.InDelta(t, 53.0, totals.Get(nutripilot.NutrientCarbs), 0.001)
	should.InDelta(t, 154.0, totals.Get(nutripilot.NutrientSodium), 0.001)
}

func TestAuditUnknownFoodUsesDefault(t *testing.T) {
	auditor := stages.NewNutritionAuditor(nil)

	report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods([]string{"xylograph stew"}, []float64{200}),
	})
	must.NoError(t, err)

	should.Zero(t, report.FoodsMatched)
	should.Equal(t, []string{"xylograph stew"}, report.FoodsUnmatched)
	should.InDelta(t, 200.0, report.Foods[0].NutrientAmount(nutripilot.NutrientCalories), 0.001)
	should.InDelta(t, 30.0, report.Foods[0].NutrientAmount(nutripilot.NutrientCarbs), 0.001)
}

func TestAuditRepeatedUnknownFoodStaysUnmatched(t *testing.T) {
	auditor := stages.NewNutritionAuditor(nil)

	report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods([]string{"xylograph stew", "xylograph stew"}, []float64{200, 150}),
	})
	must.NoError(t, err)

	should.Zero(t, report.FoodsMatched)
	should.Equal(t, []string{"xylograph stew", "xylograph stew"}, report.FoodsUnmatched)

	report, err = auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods([]string{"xylograph stew"}, []float64{200}),
	})
	must.NoError(t, err)

	should.Zero(t, report.FoodsMatched)
	should.Equal(t, []string{"xylograph stew"}, report.FoodsUnmatched)
}

func TestAuditPercentDaily(t *testing.T) {
	auditor := stages.NewNutritionAuditor(nil)

	report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods([]string{"salmon"}, []float64{100}),
	})
	must.NoError(t, err)

	for _, info := range report.Foods[0].Nutrients {
		if info.Name == string(nutripilot.NutrientProtein) {
			must.NotNil(t, info.PercentDaily)
			should.InDelta(t, 40.0, *info.PercentDaily, 0.001)
		}
		if info.Name == string(nutripilot.NutrientCarbs) {
			should.Nil(t, info.PercentDaily, "zero amounts carry no percent daily")
		}
	}
}

func TestAuditDatasetOverridesFallback(t *testing.T) {
	dataset := storage.NewTestDataState([]byte(`{"dragon fruit": {"calories": 60, "carbs": 13, "fiber": 3}}`))
	auditor := stages.NewNutritionAuditor(dataset)

	report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods([]string{"dragon fruit"}, []float64{100}),
	})
	must.NoError(t, err)

	should.Equal(t, 1, report.FoodsMatched)
	should.InDelta(t, 60.0, report.Foods[0].NutrientAmount(nutripilot.NutrientCalories), 0.001)
	should.InDelta(t, 13.0, report.Foods[0].NutrientAmount(nutripilot.NutrientCarbs), 0.001)
}

func TestAuditDatasetLoadFailureFallsBack(t *testing.T) {
	auditor := stages.NewNutritionAuditor(storage.NewTestDataStateWithError())

	report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods([]string{"banana"}, []float64{120}),
	})
	must.NoError(t, err)
	should.Equal(t, 1, report.FoodsMatched)
	should.InDelta(t, 106.8, report.Foods[0].NutrientAmount(nutripilot.NutrientCalories), 0.001)
}

func TestAuditBloodGlucoseConstraints(t *testing.T) {
	tests := []struct {
		name           string
		foods          []string
		grams          []float64
		status         nutripilot.ConstraintStatus
		wantViolations int
		wantWarnings   int
		wantContains   string
	}{
		{
			name:           "warning status with high carbs violates",
			foods:          []string{"white rice"},
			grams:          []float64{200},
			status:         nutripilot.ConstraintWarning,
			wantViolations: 1,
			wantContains:   "High carbohydrates (56g) may spike blood glucose",
		},
		{
			name:           "critical status tightens the carb limit",
			foods:          []string{"potato"},
			grams:          []float64{200},
			status:         nutripilot.ConstraintCritical,
			wantViolations: 1,
			wantContains:   "too high for current glucose level",
		},
		{
			name:           "low carb meal passes",
			foods:          []string{"grilled chicken"},
			grams:          []float64{150},
			status:         nutripilot.ConstraintWarning,
			wantViolations: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			auditor := stages.NewNutritionAuditor(nil)
			report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
				Foods: auditFoods(tt.foods, tt.grams),
				UserConstraints: []nutripilot.HealthConstraint{
					{ConstraintType: "blood_glucose", Value: 120, Unit: "mg/dL", Status: tt.status},
				},
			})
			must.NoError(t, err)
			should.Len(t, report.Violations, tt.wantViolations)
			should.Len(t, report.Warnings, tt.wantWarnings)
			if tt.wantContains != "" {
				should.Contains(t, report.Violations[0], tt.wantContains)
			}
		})
	}
}

func TestAuditSodiumConstraint(t *testing.T) {
	auditor := stages.NewNutritionAuditor(nil)

	report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods([]string{"bread", "cheese"}, []float64{120, 60}),
		UserConstraints: []nutripilot.HealthConstraint{
			{ConstraintType: "daily_sodium", Value: 1800, Unit: "mg", Status: nutripilot.ConstraintWarning},
		},
	})
	must.NoError(t, err)

	// bread 120g -> 589.2mg, cheese 60g -> 372.6mg; total 961.8mg
	must.Len(t, report.Violations, 1)
	should.Contains(t, report.Violations[0], "High sodium meal")
	should.Contains(t, report.Violations[0], "limit of 600mg recommended")
}

func TestAuditAllergyConstraint(t *testing.T) {
	auditor := stages.NewNutritionAuditor(nil)

	report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods([]string{"salad"}, []float64{150}),
		UserConstraints: []nutripilot.HealthConstraint{
			{ConstraintType: "allergy_peanuts", Value: 1, Unit: "boolean", Status: nutripilot.ConstraintCritical},
		},
	})
	must.NoError(t, err)

	must.Len(t, report.Violations, 1)
	should.Equal(t, "Check all items for peanuts content", report.Violations[0])
}

func TestAuditSuggestions(t *testing.T) {
	auditor := stages.NewNutritionAuditor(nil)

	report, err := auditor.Audit(context.Background(), nutripilot.AuditRequest{
		Foods: auditFoods([]string{"white rice"}, []float64{200}),
		UserConstraints: []nutripilot.HealthConstraint{
			{ConstraintType: "blood_glucose", Value: 150, Unit: "mg/dL", Status: nutripilot.ConstraintWarning},
		},
	})
	must.NoError(t, err)

	must.GreaterOrEqual(t, len(report.Suggestions), 2)

	carb := report.Suggestions[0]
	should.Equal(t, "white rice", carb.FoodName)
	should.Equal(t, nutripilot.ActionReduce, carb.Action)
	should.Equal(t, "cauliflower rice", carb.Alternative)
	should.Equal(t, 1, carb.Priority)

	fiber := report.Suggestions[len(report.Suggestions)-1]
	should.Equal(t, nutripilot.ActionAdd, fiber.Action)
	should.Contains(t, fiber.Reason, "Low fiber meal")
	should.Equal(t, 3, fiber.Priority)
}
