package stages_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"nutripilot"
	"nutripilot/stages"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func fixedClock(hour int) func() time.Time {
	return func() time.Time {
		return time.Date(2025, 6, 15, hour, 0, 0, 0, time.UTC)
	}
}

func constraintByType(constraints []nutripilot.HealthConstraint, constraintType string) (nutripilot.HealthConstraint, bool) {
	for _, c := range constraints {
		if c.ConstraintType == constraintType {
			return c, true
		}
	}
	return nutripilot.HealthConstraint{}, false
}

func TestQueryConstraintsDefaults(t *testing.T) {
	scout := stages.NewBioDataScoutWithSeed(42, fixedClock(13))

	report, err := scout.QueryConstraints(context.Background(), nutripilot.BioDataQuery{
		UserID: "demo_user",
	})
	must.NoError(t, err)

	should.Equal(t, "demo_user", report.UserID)
	should.False(t, report.LastUpdated.IsZero())

	for _, want := range []string{"blood_glucose", "sleep_quality", "activity_level", "daily_sodium"} {
		_, ok := constraintByType(report.Constraints, want)
		should.True(t, ok, "expected constraint %s", want)
	}

	_, ok := constraintByType(report.Constraints, "heart_rate")
	should.False(t, ok, "heart rate is not in the default query set")
}

func TestQueryConstraintsGlucoseRange(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		scout := stages.NewBioDataScoutWithSeed(seed, fixedClock(13))
		report, err := scout.QueryConstraints(context.Background(), nutripilot.BioDataQuery{
			UserID:          "diabetic_user",
			ConstraintTypes: []string{"blood_glucose"},
		})
		must.NoError(t, err)
		must.Len(t, report.Constraints, 1)

		glucose := report.Constraints[0]
		should.GreaterOrEqual(t, glucose.Value, 60.0)
		should.LessOrEqual(t, glucose.Value, 200.0)
		should.Equal(t, "mg/dL", glucose.Unit)
		must.NotNil(t, glucose.ThresholdLow)
		must.NotNil(t, glucose.ThresholdHigh)
		should.Equal(t, 70.0, *glucose.ThresholdLow)
		should.Equal(t, 100.0, *glucose.ThresholdHigh)

		switch {
		case glucose.Value < 70:
			should.Equal(t, nutripilot.ConstraintCritical, glucose.Status)
		case glucose.Value > 100:
			should.Equal(t, nutripilot.ConstraintWarning, glucose.Status)
		default:
			should.Equal(t, nutripilot.ConstraintNormal, glucose.Status)
		}
	}
}

func TestQueryConstraintsAllergies(t *testing.T) {
	scout := stages.NewBioDataScoutWithSeed(7, fixedClock(9))

	report, err := scout.QueryConstraints(context.Background(), nutripilot.BioDataQuery{
		UserID:          "diabetic_user",
		ConstraintTypes: []string{"allergens"},
	})
	must.NoError(t, err)

	must.Len(t, report.Constraints, 1)
	allergy := report.Constraints[0]
	should.Equal(t, "allergy_peanuts", allergy.ConstraintType)
	should.Equal(t, nutripilot.ConstraintCritical, allergy.Status)
	should.Equal(t, "boolean", allergy.Unit)
	should.Contains(t, allergy.Recommendation, "Avoid all peanuts")

	must.Len(t, report.Alerts, 1)
	should.True(t, strings.HasPrefix(report.Alerts[0], "CRITICAL: allergy_peanuts"))
}

func TestQueryConstraintsNoAllergies(t *testing.T) {
	scout := stages.NewBioDataScoutWithSeed(7, fixedClock(9))

	report, err := scout.QueryConstraints(context.Background(), nutripilot.BioDataQuery{
		UserID:          "demo_user",
		ConstraintTypes: []string{"allergens"},
	})
	must.NoError(t, err)
	should.Empty(t, report.Constraints)
	should.Empty(t, report.Alerts)
}

func TestQueryConstraintsSodiumThreshold(t *testing.T) {
	tests := []struct {
		userID string
		want   float64
	}{
		{"diabetic_user", 1500},
		{"athlete_user", 2300},
		{"unknown_user", 2300},
	}

	for _, tt := range tests {
		t.Run(tt.userID, func(t *testing.T) {
			scout := stages.NewBioDataScoutWithSeed(3, fixedClock(18))
			report, err := scout.QueryConstraints(context.Background(), nutripilot.BioDataQuery{
				UserID:          tt.userID,
				ConstraintTypes: []string{"sodium_intake"},
			})
			must.NoError(t, err)
			must.Len(t, report.Constraints, 1)

			sodium := report.Constraints[0]
			should.Equal(t, "daily_sodium", sodium.ConstraintType)
			must.NotNil(t, sodium.ThresholdHigh)
			should.Equal(t, tt.want, *sodium.ThresholdHigh)
		})
	}
}

func TestQueryConstraintsDeterministicWithSeed(t *testing.T) {
	query := nutripilot.BioDataQuery{UserID: "demo_user"}

	first, err := stages.NewBioDataScoutWithSeed(99, fixedClock(13)).
		QueryConstraints(context.Background(), query)
	must.NoError(t, err)
	second, err := stages.NewBioDataScoutWithSeed(99, fixedClock(13)).
		QueryConstraints(context.Background(), query)
	must.NoError(t, err)

	must.Equal(t, len(first.Constraints), len(second.Constraints))
	for i := range first.Constraints {
		should.Equal(t, first.Constraints[i].ConstraintType, second.Constraints[i].ConstraintType)
		should.Equal(t, first.Constraints[i].Value, second.Constraints[i].Value)
		should.Equal(t, first.Constraints[i].Status, second.Constraints[i].Status)
	}
}

func TestQueryConstraintsActivityEarlyDay(t *testing.T) {
	scout := stages.NewBioDataScoutWithSeed(11, fixedClock(8))

	report, err := scout.QueryConstraints(context.Background(), nutripilot.BioDataQuery{
		UserID:          "demo_user",
		ConstraintTypes: []string{"activity_level"},
	})
	must.NoError(t, err)
	must.Len(t, report.Constraints, 1)

	activity := report.Constraints[0]
	should.Equal(t, "steps", activity.Unit)
	// Low step counts before mid-afternoon never warn.
	should.Equal(t, nutripilot.ConstraintNormal, activity.Status)
}
