package pipeline

import (
	"sort"
	"strings"

	"nutripilot"
)

// portionEntry is a known food's default portion.
type portionEntry struct {
	grams       float64
	description string
}

// commonFoods maps food names to default portions for text parsing. Entries
// with multi-word names must precede their shorter substrings in match order;
// matchOrder below handles that by sorting on length.
var commonFoods = map[string]portionEntry{
	// Proteins
	"grilled chicken breast": {150, "1 medium breast"},
	"grilled chicken":        {150, "1 serving"},
	"fried chicken":          {180, "2 pieces"},
	"chicken breast":         {150, "1 medium breast"},
	"chicken wings":          {120, "4 wings"},
	"chicken":                {150, "1 serving"},
	"salmon":                 {150, "1 fillet"},
	"grilled salmon":         {150, "1 fillet"},
	"tuna":                   {140, "1 can"},
	"shrimp":                 {100, "6 large shrimp"},
	"steak":                  {200, "6 oz"},
	"beef":                   {150, "1 serving"},
	"ground beef":            {150, "1 patty"},
	"pork chop":              {150, "1 chop"},
	"bacon":                  {30, "3 strips"},
	"sausage":                {100, "2 links"},
	"turkey":                 {150, "1 serving"},
	"eggs":                   {100, "2 eggs"},
	"egg":                    {50, "1 egg"},
	"scrambled eggs":         {120, "2 eggs"},
	"tofu":                   {100, "1/2 block"},

	// Grains and carbs
	"brown rice":   {200, "1 cup cooked"},
	"white rice":   {200, "1 cup cooked"},
	"rice":         {200, "1 cup"},
	"quinoa":       {185, "1 cup cooked"},
	"pasta":        {200, "1 cup cooked"},
	"spaghetti":    {200, "1 cup"},
	"bread":        {30, "1 slice"},
	"garlic bread": {60, "2 pieces"},
	"toast":        {60, "2 slices"},
	"bagel":        {100, "1 bagel"},
	"oatmeal":      {250, "1 bowl"},
	"cereal":       {40, "1 cup"},

	// Pizza and fast food
	"pepperoni pizza": {250, "2 slices"},
	"cheese pizza":    {220, "2 slices"},
	"pizza":           {220, "2 slices"},
	"hamburger":       {250, "1 burger"},
	"cheeseburger":    {280, "1 burger"},
	"burger":          {250, "1 burger"},
	"hot dog":         {150, "1 hot dog"},
	"french fries":    {120, "medium serving"},
	"fries":           {120, "medium serving"},
	"nachos":          {200, "1 plate"},
	"tacos":           {180, "2 tacos"},
	"burrito":         {300, "1 burrito"},

	// Vegetables
	"broccoli":           {100, "1 cup"},
	"steamed broccoli":   {100, "1 cup"},
	"roasted vegetables": {150, "1 cup mixed"},
	"vegetables":         {100, "1 cup mixed"},
	"spinach":            {30, "1 cup"},
	"salad":              {150, "1 bowl"},
	"green salad":        {150, "1 bowl"},
	"caesar salad":       {200, "1 bowl"},
	"carrot":             {60, "1 medium"},
	"carrots":            {80, "1/2 cup"},
	"potato":             {150, "1 medium"},
	"baked potato":       {200, "1 large"},
	"mashed potatoes":    {200, "1 cup"},
	"sweet potato":       {150, "1 medium"},
	"corn":               {90, "1 ear"},
	"green beans":        {100, "1 cup"},
	"asparagus":          {90, "6 spears"},
	"avocado":            {100, "1/2 avocado"},

	// Fruits
	"apple":        {180, "1 medium"},
	"banana":       {120, "1 medium"},
	"orange":       {130, "1 medium"},
	"strawberries": {150, "1 cup"},
	"blueberries":  {150, "1 cup"},
	"grapes":       {100, "1 cup"},
	"watermelon":   {150, "1 slice"},
	"mango":        {165, "1 cup"},

	// Dairy
	"cheese":         {30, "1 oz"},
	"yogurt":         {170, "1 cup"},
	"greek yogurt":   {170, "1 cup"},
	"milk":           {240, "1 cup"},
	"cottage cheese": {225, "1 cup"},

	// Beverages with no or minimal calories
	"water":           {240, "1 glass"},
	"just water":      {240, "1 glass"},
	"coffee":          {240, "1 cup"},
	"black coffee":    {240, "1 cup"},
	"tea":             {240, "1 cup"},
	"green tea":       {240, "1 cup"},
	"sparkling water": {240, "1 glass"},
	"diet soda":       {355, "1 can"},

	// Sweet beverages
	"soda":         {355, "1 can"},
	"orange juice": {240, "1 cup"},
	"juice":        {240, "1 cup"},
	"smoothie":     {350, "1 medium"},
	"milkshake":    {400, "1 medium"},
	"latte":        {350, "1 medium"},
	"cappuccino":   {250, "1 cup"},

	// Snacks and desserts
	"chips":       {50, "1 oz bag"},
	"cookies":     {60, "2 cookies"},
	"cake":        {100, "1 slice"},
	"ice cream":   {130, "1/2 cup"},
	"chocolate":   {45, "1 bar"},
	"popcorn":     {30, "1 cup"},
	"nuts":        {30, "1/4 cup"},
	"almonds":     {30, "1/4 cup"},
	"peanuts":     {30, "1/4 cup"},
	"granola bar": {40, "1 bar"},

	// Soups and bowls
	"soup":         {240, "1 cup"},
	"chicken soup": {240, "1 cup"},
	"tomato soup":  {240, "1 cup"},
	"ramen":        {400, "1 bowl"},
	"pho":          {500, "1 bowl"},
	"bowl":         {350, "1 bowl"},
	"acai bowl":    {300, "1 bowl"},
}

// matchOrder is the vocabulary sorted longest-first so "grilled chicken
// breast" wins over "chicken". Ties break lexicographically to keep parsing
// deterministic.
var matchOrder = func() []string {
	names := make([]string, 0, len(commonFoods))
	for name := range commonFoods {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) > len(names[j])
		}
		return names[i] < names[j]
	})
	return names
}()

// parseTextInput scans the text for known food names and fills the state's
// observe outputs. Matches claim their span of the input so shorter names
// never double-count inside a longer match. Unknown text synthesizes one
// low-confidence item so downstream phases always have something to work
// with.
func parseTextInput(state *nutripilot.SessionState, text string, maxMatches int) {
	if maxMatches <= 0 {
		maxMatches = 6
	}

	textLower := strings.ToLower(text)
	used := make([]bool, len(textLower))

	var matched []nutripilot.FoodItem

	for _, name := range matchOrder {
		idx := strings.Index(textLower, name)
		if idx < 0 {
			continue
		}

		overlaps := false
		for i := idx; i < idx+len(name); i++ {
			if used[i] {
				overlaps = true
				break
			}
		}
		if overlaps {
			continue
		}

		entry := commonFoods[name]
		matched = append(matched, nutripilot.FoodItem{
			Name:               name,
			PortionGrams:       entry.grams,
			PortionDescription: entry.description,
			Confidence:         0.7,
		})
		for i := idx; i < idx+len(name); i++ {
			used[i] = true
		}

		if len(matched) >= maxMatches {
			break
		}
	}

	if len(matched) > 0 {
		state.DetectedFoods = matched
		if len(matched) > 1 {
			state.ImageAnalysisConfidence = 0.7
		} else {
			state.ImageAnalysisConfidence = 0.6
		}
		return
	}

	cleaned := strings.TrimSpace(text)
	if len(cleaned) > 50 {
		cleaned = cleaned[:50]
	}
	if cleaned == "" {
		cleaned = "meal"
	}
	state.DetectedFoods = []nutripilot.FoodItem{{
		Name:               cleaned,
		PortionGrams:       300,
		PortionDescription: "1 serving",
		Confidence:         0.4,
	}}
	state.ImageAnalysisConfidence = 0.3
}
