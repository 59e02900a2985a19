package nutripilot_test

import (
	"testing"

	"nutripilot"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func TestFoodItemValidate(t *testing.T) {
	tests := []struct {
		name    string
		item    nutripilot.FoodItem
		wantErr string
	}{
		{
			name: "valid item",
			item: nutripilot.FoodItem{Name: "apple", PortionGrams: 180, Confidence: 0.9},
		},
		{
			name:    "empty name",
			item:    nutripilot.FoodItem{PortionGrams: 100, Confidence: 0.9},
			wantErr: "name must not be empty",
		},
		{
			name:    "zero portion",
			item:    nutripilot.FoodItem{Name: "apple", Confidence: 0.9},
			wantErr: "portion_grams must be positive",
		},
		{
			name:    "confidence out of range",
			item:    nutripilot.FoodItem{Name: "apple", PortionGrams: 100, Confidence: 1.2},
			wantErr: "confidence must be in [0,1]",
		},
		{
			name: "invalid bounding box",
			item: nutripilot.FoodItem{
				Name: "apple", PortionGrams: 100, Confidence: 0.9,
				BoundingBox: &nutripilot.BoundingBox{X1: 0.5, Y1: 0.5, X2: 0.2, Y2: 0.8},
			},
			wantErr: "invalid bounding box",
		},
		{
			name: "valid bounding box",
			item: nutripilot.FoodItem{
				Name: "apple", PortionGrams: 100, Confidence: 0.9,
				BoundingBox: &nutripilot.BoundingBox{X1: 0.1, Y1: 0.1, X2: 0.4, Y2: 0.6},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.item.Validate()
			if tt.wantErr == "" {
				should.NoError(t, err)
				return
			}
			must.Error(t, err)
			should.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSessionStateScore(t *testing.T) {
	state := nutripilot.NewSessionState("u1", nutripilot.MealTypeLunch)

	should.False(t, state.IsTerminal())
	should.Zero(t, state.Score())

	state.SetScore(82.5)
	should.True(t, state.IsTerminal())
	should.Equal(t, 82.5, state.Score())

	state.SetScore(150)
	should.Equal(t, 100.0, state.Score())

	state.SetScore(-10)
	should.Zero(t, state.Score())
	should.True(t, state.IsTerminal())
}

func TestSessionStateTotalAmounts(t *testing.T) {
	state := nutripilot.NewSessionState("u1", nutripilot.MealTypeDinner)
	state.TotalNutrients = []nutripilot.NutrientInfo{
		{Name: "calories", Amount: 450, Unit: "kcal"},
		{Name: "protein", Amount: 32, Unit: "g"},
	}

	totals := state.TotalAmounts()
	should.Equal(t, 450.0, totals.Get(nutripilot.NutrientCalories))
	should.Equal(t, 32.0, totals.Get(nutripilot.NutrientProtein))
}

func TestNewSessionState(t *testing.T) {
	a := nutripilot.NewSessionState("u1", nutripilot.MealTypeBreakfast)
	b := nutripilot.NewSessionState("u1", nutripilot.MealTypeBreakfast)

	should.NotEmpty(t, a.SessionID)
	should.NotEqual(t, a.SessionID, b.SessionID)
	should.Equal(t, "u1", a.UserID)
	should.False(t, a.Timestamp.IsZero())
}
