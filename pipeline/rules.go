package pipeline

import (
	"sort"

	"nutripilot"
)

// GenerateGoalSuggestions produces meal adjustments tailored to the profile's
// health goals. Pure function over the meal totals, the detected foods, and
// the profile; rules use fixed thresholds per goal. The union across goals is
// sorted by priority ascending and truncated to maxSuggestions.
func GenerateGoalSuggestions(
	totals nutripilot.Amounts,
	foods []nutripilot.FoodItem,
	profile *nutripilot.UserProfile,
	maxSuggestions int,
) []nutripilot.MealAdjustment {
	if profile == nil || len(profile.Goals) == 0 {
		return nil
	}
	if maxSuggestions <= 0 {
		maxSuggestions = 3
	}

	protein := totals.Get(nutripilot.NutrientProtein)
	calories := totals.Get(nutripilot.NutrientCalories)
	carbs := totals.Get(nutripilot.NutrientCarbs)
	fiber := totals.Get(nutripilot.NutrientFiber)
	sodium := totals.Get(nutripilot.NutrientSodium)
	fat := totals.Get(nutripilot.NutrientFat)
	sugar := totals.Get(nutripilot.NutrientSugar)

	var suggestions []nutripilot.MealAdjustment
	add := func(adj nutripilot.MealAdjustment) {
		suggestions = append(suggestions, adj)
	}

	for _, goal := range profile.Goals {
		label := goalLabel(goal)

		switch goal {
		case nutripilot.GoalWeightGain:
			if protein < 30 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Add more protein to support healthy weight gain",
					Alternative: "grilled chicken, eggs, Greek yogurt, or protein shake",
					Priority:    1,
				})
			}
			if calories < 400 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Increase portion size for caloric surplus",
					Alternative: "add healthy fats like avocado, nuts, or olive oil",
					Priority:    2,
				})
			}
			if carbs < 40 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Add more complex carbs for energy",
					Alternative: "brown rice, sweet potato, oats, or whole grain bread",
					Priority:    3,
				})
			}

		case nutripilot.GoalMuscleBuilding:
			if protein < 40 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Increase protein intake significantly",
					Alternative: "lean meat, fish, eggs, or whey protein",
					Priority:    1,
				})
			}
			if protein >= 40 && protein < 50 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Good protein! Consider adding more for optimal muscle synthesis",
					Alternative: "add another egg or 2oz chicken breast",
					Priority:    3,
				})
			}
			if calories < 500 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Ensure adequate calories for muscle growth",
					Alternative: "add carbs like rice or pasta to fuel workouts",
					Priority:    2,
				})
			}

		case nutripilot.GoalWeightLoss:
			if calories > 600 {
				target := "meal"
				for _, f := range foods {
					if f.NutrientAmount(nutripilot.NutrientCalories) > 200 {
						target = f.Name
						break
					}
				}
				add(nutripilot.MealAdjustment{
					FoodName:    target,
					Action:      nutripilot.ActionReduce,
					Reason:      label + ": Consider smaller portions to maintain calorie deficit",
					Alternative: "use smaller plate or reduce portion by 25%",
					Priority:    1,
				})
			}
			if protein < 25 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Add more protein to preserve muscle and stay full",
					Alternative: "lean chicken, fish, or tofu",
					Priority:    2,
				})
			}
			if fiber < 5 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Add fiber-rich foods for satiety",
					Alternative: "vegetables, legumes, or whole grains",
					Priority:    3,
				})
			}

		case nutripilot.GoalGlycemicControl:
			if sugar > 15 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionReduce,
					Reason:      label + ": High sugar content may spike blood glucose",
					Alternative: "choose unsweetened versions or reduce portion",
					Priority:    1,
				})
			}
			if carbs > 50 && fiber < 5 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionReplace,
					Reason:      label + ": High carbs with low fiber, consider swapping",
					Alternative: "cauliflower rice, zucchini noodles, or legumes",
					Priority:    2,
				})
			}

		case nutripilot.GoalHeartHealth:
			if sodium > 600 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionReduce,
					Reason:      label + ": High sodium, limit processed foods and added salt",
					Alternative: "use herbs and spices for flavor instead",
					Priority:    1,
				})
			}
			if fiber < 5 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Add more fiber for cardiovascular health",
					Alternative: "oats, beans, vegetables, or berries",
					Priority:    2,
				})
			}

		case nutripilot.GoalLowerCholesterol:
			if fiber < 8 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Fiber helps reduce cholesterol absorption",
					Alternative: "add oatmeal, beans, or vegetables",
					Priority:    1,
				})
			}
			if fat > 25 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionReduce,
					Reason:      label + ": Reduce saturated fat intake",
					Alternative: "choose lean proteins and limit fried foods",
					Priority:    2,
				})
			}

		case nutripilot.GoalGeneralWellness:
			if protein < 20 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Add more protein for overall health",
					Alternative: "lean meat, fish, eggs, beans, or tofu",
					Priority:    2,
				})
			}
			if fiber < 5 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionAdd,
					Reason:      label + ": Boost fiber intake for digestive health",
					Alternative: "vegetables, fruits, or whole grains",
					Priority:    2,
				})
			}
			if sodium > 800 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionReduce,
					Reason:      label + ": Consider reducing sodium for better health",
					Alternative: "use herbs and low-sodium seasonings",
					Priority:    3,
				})
			}
			if sugar > 20 {
				add(nutripilot.MealAdjustment{
					FoodName:    "meal",
					Action:      nutripilot.ActionReduce,
					Reason:      label + ": Limit added sugars for better health",
					Alternative: "choose naturally sweet foods like fruit",
					Priority:    3,
				})
			}
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority < suggestions[j].Priority
	})
	if len(suggestions) > maxSuggestions {
		suggestions = suggestions[:maxSuggestions]
	}
	return suggestions
}

// goalLabel renders a goal as a title-cased human label, "weight_loss"
// becoming "Weight Loss".
func goalLabel(goal nutripilot.HealthGoal) string {
	words := []byte(string(goal))
	upper := true
	for i, c := range words {
		switch {
		case c == '_':
			words[i] = ' '
			upper = true
		case upper && c >= 'a' && c <= 'z':
			words[i] = c - 'a' + 'A'
			upper = false
		default:
			upper = false
		}
	}
	return string(words)
}
