package nutripilot

// Nutrient is the closed set of nutrient names the pipeline tracks. External
// data (vision output, nutrition datasets) is normalized into this set at the
// ingestion boundary; anything outside it is dropped there.
type Nutrient string

const (
	NutrientCalories Nutrient = "calories"
	NutrientProtein  Nutrient = "protein"
	NutrientFat      Nutrient = "fat"
	NutrientCarbs    Nutrient = "carbohydrates"
	NutrientFiber    Nutrient = "fiber"
	NutrientSugar    Nutrient = "sugar"
	NutrientSodium   Nutrient = "sodium"
	NutrientVitaminC Nutrient = "vitamin_c"
	NutrientCalcium  Nutrient = "calcium"
	NutrientIron     Nutrient = "iron"
)

// AllNutrients lists every tracked nutrient in a stable order.
var AllNutrients = []Nutrient{
	NutrientCalories,
	NutrientProtein,
	NutrientFat,
	NutrientCarbs,
	NutrientFiber,
	NutrientSugar,
	NutrientSodium,
	NutrientVitaminC,
	NutrientCalcium,
	NutrientIron,
}

// NutrientUnits maps each nutrient to its unit of measurement.
var NutrientUnits = map[Nutrient]string{
	NutrientCalories: "kcal",
	NutrientProtein:  "g",
	NutrientFat:      "g",
	NutrientCarbs:    "g",
	NutrientFiber:    "g",
	NutrientSugar:    "g",
	NutrientSodium:   "mg",
	NutrientVitaminC: "mg",
	NutrientCalcium:  "mg",
	NutrientIron:     "mg",
}

// DailyValues holds reference daily intake amounts used for percent-daily
// calculations.
var DailyValues = map[Nutrient]float64{
	NutrientCalories: 2000,
	NutrientProtein:  50,
	NutrientFat:      78,
	NutrientCarbs:    275,
	NutrientFiber:    28,
	NutrientSugar:    50,
	NutrientSodium:   2300,
	NutrientVitaminC: 90,
	NutrientCalcium:  1300,
	NutrientIron:     18,
}

// ParseNutrient maps an external nutrient name onto the closed set. The bool
// reports whether the name is one we track. "carbs" is accepted as an alias
// for carbohydrates since datasets disagree on the spelling.
func ParseNutrient(name string) (Nutrient, bool) {
	switch Nutrient(name) {
	case NutrientCalories, NutrientProtein, NutrientFat, NutrientCarbs,
		NutrientFiber, NutrientSugar, NutrientSodium, NutrientVitaminC,
		NutrientCalcium, NutrientIron:
		return Nutrient(name), true
	}
	if name == "carbs" {
		return NutrientCarbs, true
	}
	return "", false
}

// Amounts is a typed nutrient-to-quantity mapping. Lookups of absent
// nutrients return zero, which replaces the loose dict.get(name, 0) access
// pattern in external data handling.
type Amounts map[Nutrient]float64

// Get returns the amount for a nutrient, zero when absent.
func (a Amounts) Get(n Nutrient) float64 {
	return a[n]
}

// AmountsFromInfos folds a NutrientInfo list into an Amounts map, keeping
// only nutrients in the closed set.
func AmountsFromInfos(infos []NutrientInfo) Amounts {
	amounts := make(Amounts, len(infos))
	for _, info := range infos {
		if n, ok := ParseNutrient(info.Name); ok {
			amounts[n] += info.Amount
		}
	}
	return amounts
}
