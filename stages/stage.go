// Package stages holds the pipeline's stage implementations: perception,
// biodata constraints, and nutrition auditing.
package stages

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// Stage describes a pipeline stage for discovery and documentation. Each
// concrete stage also implements its typed execution interface from the root
// package.
type Stage interface {
	Name() string
	Title() string
	Description() string
	InputSchema() *jsonschema.Schema
	OutputSchema() *jsonschema.Schema
}

func foodItemSchema() *jsonschema.Schema {
	zero := 0.0
	one := 1.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":                {Type: "string"},
			"portion_grams":       {Type: "number", Minimum: &zero},
			"portion_description": {Type: "string"},
			"confidence":          {Type: "number", Minimum: &zero, Maximum: &one},
			"nutrients": {
				Type:  "array",
				Items: nutrientInfoSchema(),
			},
			"bounding_box": {
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"x1": {Type: "number", Minimum: &zero, Maximum: &one},
					"y1": {Type: "number", Minimum: &zero, Maximum: &one},
					"x2": {Type: "number", Minimum: &zero, Maximum: &one},
					"y2": {Type: "number", Minimum: &zero, Maximum: &one},
				},
				Required: []string{"x1", "y1", "x2", "y2"},
			},
		},
		Required: []string{"name", "portion_grams", "confidence"},
	}
}

func nutrientInfoSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"name":          {Type: "string"},
			"amount":        {Type: "number"},
			"unit":          {Type: "string"},
			"percent_daily": {Type: "number"},
		},
		Required: []string{"name", "amount", "unit"},
	}
}

func constraintSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"constraint_type": {Type: "string"},
			"value":           {Type: "number"},
			"unit":            {Type: "string"},
			"status":          {Type: "string", Enum: []any{"normal", "warning", "critical"}},
			"threshold_low":   {Type: "number"},
			"threshold_high":  {Type: "number"},
			"recommendation":  {Type: "string"},
		},
		Required: []string{"constraint_type", "value", "unit", "status"},
	}
}
