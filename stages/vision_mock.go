package stages

import (
	"context"
	"time"

	"nutripilot"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

// MockVisionDetector returns a canned detection result, useful for local runs
// without Bedrock access and for pipeline tests.
type MockVisionDetector struct {
	Report nutripilot.VisionReport
	Err    error
	Delay  time.Duration
}

// NewMockVisionDetector returns a mock preloaded with a typical balanced meal.
func NewMockVisionDetector() *MockVisionDetector {
	return &MockVisionDetector{
		Report: nutripilot.VisionReport{
			Foods: []nutripilot.FoodItem{
				{Name: "grilled chicken breast", PortionGrams: 150, PortionDescription: "1 breast", Confidence: 0.9},
				{Name: "brown rice", PortionGrams: 200, PortionDescription: "1 cup", Confidence: 0.85},
				{Name: "steamed broccoli", PortionGrams: 100, PortionDescription: "1 cup", Confidence: 0.88},
			},
			OverallConfidence: 0.87,
			ModelUsed:         "mock",
		},
	}
}

func (m *MockVisionDetector) Name() string  { return "vision_detect" }
func (m *MockVisionDetector) Title() string { return "Vision Detection (mock)" }
func (m *MockVisionDetector) Description() string {
	return "Returns a canned food detection result."
}

func (m *MockVisionDetector) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

func (m *MockVisionDetector) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{Type: "object"}
}

// Analyze implements the PerceptionStage interface.
func (m *MockVisionDetector) Analyze(ctx context.Context, input nutripilot.VisionInput) (nutripilot.VisionReport, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nutripilot.VisionReport{}, ctx.Err()
		}
	}
	if m.Err != nil {
		return nutripilot.VisionReport{}, m.Err
	}
	return m.Report, nil
}
