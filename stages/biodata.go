package stages

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"time"

	"nutripilot"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// mockProfile describes the simulated health state behind a user ID. Real
// deployments would query a health data aggregator instead.
type mockProfile struct {
	age          int
	conditions   []string
	allergies    []string
	restrictions []string
}

var mockProfiles = map[string]mockProfile{
	"demo_user": {
		age:        35,
		conditions: []string{"pre_diabetic"},
	},
	"diabetic_user": {
		age:          52,
		conditions:   []string{"type_2_diabetes", "hypertension"},
		allergies:    []string{"peanuts"},
		restrictions: []string{"low_sodium", "low_sugar"},
	},
	"athlete_user": {
		age:          28,
		allergies:    []string{"shellfish"},
		restrictions: []string{"high_protein"},
	},
	"default": {age: 30},
}

var defaultConstraintTypes = []string{
	"blood_glucose",
	"sleep_quality",
	"activity_level",
	"sodium_intake",
	"allergens",
}

// BioDataScout simulates wearable and lab readings for a user and turns them
// into health constraints. Randomness and the clock are injectable so tests
// stay deterministic.
type BioDataScout struct {
	rng *rand.Rand
	now func() time.Time
}

// NewBioDataScout creates a scout seeded from the current time.
func NewBioDataScout() *BioDataScout {
	return &BioDataScout{
		rng: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
	}
}

// NewBioDataScoutWithSeed creates a scout with a fixed seed and clock for
// reproducible readings.
func NewBioDataScoutWithSeed(seed int64, now func() time.Time) *BioDataScout {
	return &BioDataScout{
		rng: rand.New(rand.NewSource(seed)),
		now: now,
	}
}

func (s *BioDataScout) Name() string  { return "biodata_scout" }
func (s *BioDataScout) Title() string { return "BioData Scout" }
func (s *BioDataScout) Description() string {
	return "Gathers biometric readings for a user and derives health constraints for meal analysis."
}

func (s *BioDataScout) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"user_id":          {Type: "string"},
			"constraint_types": {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
		},
		Required: []string{"user_id"},
	}
}

func (s *BioDataScout) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"user_id":      {Type: "string"},
			"constraints":  {Type: "array", Items: constraintSchema()},
			"alerts":       {Type: "array", Items: &jsonschema.Schema{Type: "string"}},
			"last_updated": {Type: "string"},
		},
		Required: []string{"user_id", "constraints", "alerts"},
	}
}

// QueryConstraints implements the ConstraintStage interface.
func (s *BioDataScout) QueryConstraints(ctx context.Context, query nutripilot.BioDataQuery) (nutripilot.BioDataReport, error) {
	profile, ok := mockProfiles[query.UserID]
	if !ok {
		profile = mockProfiles["default"]
	}

	constraintTypes := query.ConstraintTypes
	if len(constraintTypes) == 0 {
		constraintTypes = defaultConstraintTypes
	}

	var constraints []nutripilot.HealthConstraint
	for _, constraintType := range constraintTypes {
		switch constraintType {
		case "blood_glucose":
			constraints = append(constraints, s.glucoseConstraint(profile))
		case "sleep_quality":
			constraints = append(constraints, s.sleepConstraint())
		case "activity_level":
			constraints = append(constraints, s.activityConstraint())
		case "sodium_intake":
			constraints = append(constraints, s.sodiumConstraint(profile))
		case "heart_rate":
			constraints = append(constraints, s.heartRateConstraint(profile))
		case "allergens":
			constraints = append(constraints, s.allergyConstraints(profile)...)
		}
	}

	var alerts []string
	for _, constraint := range constraints {
		if constraint.Status == nutripilot.ConstraintCritical {
			alerts = append(alerts, fmt.Sprintf("CRITICAL: %s at %.1f %s",
				constraint.ConstraintType, constraint.Value, constraint.Unit))
		}
	}

	slog.Info("STAGE: BioData scan complete",
		"user_id", query.UserID,
		"constraints", len(constraints),
		"alerts", len(alerts),
	)

	return nutripilot.BioDataReport{
		UserID:      query.UserID,
		Constraints: constraints,
		Alerts:      alerts,
		LastUpdated: s.now(),
	}, nil
}

func (s *BioDataScout) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

func (s *BioDataScout) glucoseConstraint(profile mockProfile) nutripilot.HealthConstraint {
	diabetic := false
	for _, c := range profile.conditions {
		if strings.Contains(c, "diabet") {
			diabetic = true
			break
		}
	}

	var glucose float64
	if diabetic {
		glucose = s.uniform(100, 130)
	} else {
		glucose = s.uniform(75, 95)
	}

	hour := s.now().Hour()
	if hour < 10 {
		glucose -= s.uniform(5, 15)
	} else if hour >= 12 && hour <= 14 {
		glucose += s.uniform(20, 45)
	}
	glucose += s.uniform(-10, 10)
	glucose = clamp(glucose, 60, 200)

	status := nutripilot.ConstraintNormal
	recommendation := ""
	switch {
	case glucose < 70:
		status = nutripilot.ConstraintCritical
		recommendation = "Low blood sugar! Consider a small snack with quick carbs."
	case glucose > 140:
		status = nutripilot.ConstraintWarning
		recommendation = "Elevated glucose. Consider low-glycemic foods."
	case glucose > 100:
		status = nutripilot.ConstraintWarning
		recommendation = "Slightly elevated. Consider reducing simple carbs."
	}

	lo, hi := 70.0, 100.0
	return nutripilot.HealthConstraint{
		ConstraintType: "blood_glucose",
		Value:          round1(glucose),
		Unit:           "mg/dL",
		ThresholdLow:   &lo,
		ThresholdHigh:  &hi,
		Status:         status,
		Recommendation: recommendation,
	}
}

func (s *BioDataScout) sleepConstraint() nutripilot.HealthConstraint {
	hours := s.uniform(5.5, 8.5)
	quality := s.uniform(0.5, 0.95)
	score := (hours/8)*0.5 + quality*0.5
	if score > 1.0 {
		score = 1.0
	}

	status := nutripilot.ConstraintNormal
	recommendation := ""
	if score < 0.5 {
		status = nutripilot.ConstraintWarning
		recommendation = "Poor sleep detected. Consider lighter meals and limiting caffeine."
	}

	lo := 0.5
	return nutripilot.HealthConstraint{
		ConstraintType: "sleep_quality",
		Value:          round1(score * 100),
		Unit:           "score",
		ThresholdLow:   &lo,
		Status:         status,
		Recommendation: recommendation,
	}
}

func (s *BioDataScout) activityConstraint() nutripilot.HealthConstraint {
	maxSteps := s.uniform(8000, 15000)
	hour := s.now().Hour()
	steps := float64(int(maxSteps * float64(hour) / 24))

	status := nutripilot.ConstraintNormal
	recommendation := ""
	if steps < 3000 && hour > 14 {
		status = nutripilot.ConstraintWarning
		recommendation = "Low activity today. Consider lighter portions or a walk after eating."
	}

	return nutripilot.HealthConstraint{
		ConstraintType: "activity_level",
		Value:          steps,
		Unit:           "steps",
		Status:         status,
		Recommendation: recommendation,
	}
}

func (s *BioDataScout) sodiumConstraint(profile mockProfile) nutripilot.HealthConstraint {
	hour := s.now().Hour()
	mealsEaten := hour / 6
	if mealsEaten > 3 {
		mealsEaten = 3
	}
	daily := float64(mealsEaten)*s.uniform(600, 1200) + s.uniform(0, 300)

	threshold := 2300.0
	for _, c := range profile.conditions {
		if c == "hypertension" {
			threshold = 1500.0
		}
	}
	for _, r := range profile.restrictions {
		if r == "low_sodium" {
			threshold = 1500.0
		}
	}

	status := nutripilot.ConstraintNormal
	recommendation := ""
	if daily > threshold {
		status = nutripilot.ConstraintWarning
		recommendation = "Daily sodium intake already high. Choose low-sodium options."
	}

	return nutripilot.HealthConstraint{
		ConstraintType: "daily_sodium",
		Value:          round1(daily),
		Unit:           "mg",
		ThresholdHigh:  &threshold,
		Status:         status,
		Recommendation: recommendation,
	}
}

func (s *BioDataScout) heartRateConstraint(profile mockProfile) nutripilot.HealthConstraint {
	age := profile.age
	if age <= 0 {
		age = 30
	}
	base := 70 - float64(age-30)*0.2
	rate := clamp(base+s.uniform(-10, 20), 50, 100)

	status := nutripilot.ConstraintNormal
	recommendation := ""
	if rate > 90 {
		status = nutripilot.ConstraintWarning
		recommendation = "Elevated resting heart rate. Limit caffeine and heavy meals."
	}

	return nutripilot.HealthConstraint{
		ConstraintType: "heart_rate",
		Value:          round1(rate),
		Unit:           "bpm",
		Status:         status,
		Recommendation: recommendation,
	}
}

func (s *BioDataScout) allergyConstraints(profile mockProfile) []nutripilot.HealthConstraint {
	constraints := make([]nutripilot.HealthConstraint, 0, len(profile.allergies))
	for _, allergen := range profile.allergies {
		constraints = append(constraints, nutripilot.HealthConstraint{
			ConstraintType: "allergy_" + allergen,
			Value:          1.0,
			Unit:           "boolean",
			Status:         nutripilot.ConstraintCritical,
			Recommendation: fmt.Sprintf("Avoid all %s and %s-containing products", allergen, allergen),
		})
	}
	return constraints
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
