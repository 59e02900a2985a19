package stages

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"nutripilot"

	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

type ollamaOptions struct {
	Temperature   float64 `json:"temperature,omitempty"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
}

// OllamaVisionDetector detects foods through a local Ollama server running a
// multimodal model such as llava. Useful for development without AWS
// credentials.
type OllamaVisionDetector struct {
	endpoint   string
	model      string
	httpClient nutripilot.HTTPClient
	options    ollamaOptions
}

// OllamaVisionOpts configures an OllamaVisionDetector.
type OllamaVisionOpts struct {
	BaseEndpoint string
	ModelID      string
	HTTPClient   nutripilot.HTTPClient
}

// NewOllamaVisionDetector creates a detector against a local Ollama endpoint.
func NewOllamaVisionDetector(opts OllamaVisionOpts) (*OllamaVisionDetector, error) {
	if opts.BaseEndpoint == "" {
		return nil, fmt.Errorf("base endpoint must not be empty")
	}
	if opts.ModelID == "" {
		opts.ModelID = "llava"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &OllamaVisionDetector{
		endpoint:   opts.BaseEndpoint + "/api/chat",
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		options: ollamaOptions{
			Temperature:   0.2,
			TopP:          0.9,
			RepeatPenalty: 1.05,
			NumCtx:        16384,
		},
	}, nil
}

func (d *OllamaVisionDetector) Name() string  { return "vision_detect" }
func (d *OllamaVisionDetector) Title() string { return "Vision Detection (ollama)" }
func (d *OllamaVisionDetector) Description() string {
	return "Identifies foods and portion estimates in a meal photo through a local Ollama model."
}

func (d *OllamaVisionDetector) InputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"image_bytes":  {Type: "string"},
			"image_format": {Type: "string"},
			"context":      {Type: "string"},
		},
		Required: []string{"image_bytes"},
	}
}

func (d *OllamaVisionDetector) OutputSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"foods":              {Type: "array", Items: foodItemSchema()},
			"overall_confidence": {Type: "number"},
			"model_used":         {Type: "string"},
			"latency_ms":         {Type: "integer"},
		},
		Required: []string{"foods", "overall_confidence"},
	}
}

type ollamaMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"`
}

type ollamaRequest struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Options  ollamaOptions   `json:"options,omitempty"`
}

type ollamaResponse struct {
	Message ollamaMessage `json:"message"`
	// other metadata omitted but available
}

// Analyze implements the PerceptionStage interface.
func (d *OllamaVisionDetector) Analyze(ctx context.Context, input nutripilot.VisionInput) (nutripilot.VisionReport, error) {
	start := time.Now()

	if len(input.ImageBytes) == 0 {
		return nutripilot.VisionReport{}, fmt.Errorf("image bytes must not be empty")
	}

	userText := "Identify the foods in this meal photo."
	if input.Context != "" {
		userText += " Context: " + input.Context
	}

	reqBody := ollamaRequest{
		Model: d.model,
		Messages: []ollamaMessage{
			{Role: "system", Content: visionSystemPrompt},
			{
				Role:    "user",
				Content: userText,
				Images:  []string{base64.StdEncoding.EncodeToString(input.ImageBytes)},
			},
		},
		Stream:  false,
		Options: d.options,
	}
	reqBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nutripilot.VisionReport{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewBuffer(reqBytes))
	if err != nil {
		return nutripilot.VisionReport{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		slog.Error("VISION: Ollama invoke failed", "error", err)
		return nutripilot.VisionReport{}, fmt.Errorf("failed to invoke vision model: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nutripilot.VisionReport{}, fmt.Errorf("VISION: %s: %s", resp.Status, string(body))
	}

	var or ollamaResponse
	if err := json.Unmarshal(body, &or); err != nil {
		return nutripilot.VisionReport{}, fmt.Errorf("failed to decode ollama response: %w", err)
	}

	slog.Info("VISION: Ollama invoke succeeded",
		"model", d.model,
		"latency_ms", time.Since(start).Milliseconds(),
	)

	var result visionResult
	if err := json.Unmarshal([]byte(extractJSON(or.Message.Content)), &result); err != nil {
		return nutripilot.VisionReport{}, fmt.Errorf("vision output not valid JSON: %w", err)
	}

	foods := make([]nutripilot.FoodItem, 0, len(result.Foods))
	for _, f := range result.Foods {
		item := nutripilot.FoodItem{
			Name:               strings.ToLower(strings.TrimSpace(f.Name)),
			PortionGrams:       f.PortionGrams,
			PortionDescription: f.PortionDescription,
			Confidence:         f.Confidence,
		}
		if err := item.Validate(); err != nil {
			slog.Warn("VISION: Dropping invalid food item", "error", err)
			continue
		}
		foods = append(foods, item)
	}

	return nutripilot.VisionReport{
		Foods:             foods,
		OverallConfidence: result.OverallConfidence,
		ModelUsed:         d.model,
		LatencyMS:         time.Since(start).Milliseconds(),
	}, nil
}
