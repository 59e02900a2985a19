package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nutripilot"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/modelcontextprotocol/go-sdk/jsonschema"
)

const (
	// defaultModelID is the default model ID for Bedrock Claude.
	// It's an inference profile ID or ARN, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// Controls the maximum number of tokens the model can generate in one response.
	// 1k is enough for a food list; raise it when expecting many items per image.
	defaultMaxTokens = 1024

	// Low temperature keeps outputs more deterministic and consistent, which is
	// better for structured JSON extraction.
	defaultTemperature = 0.2

	// Low top_p keeps outputs more focused and less random.
	defaultTopP = 0.9
)

// visionSystemPrompt instructs the model to answer with nothing but the JSON
// food list so the response parses without scraping.
const visionSystemPrompt = `You are a food recognition system. Identify every distinct food in the image.
Respond with ONLY a JSON object of this shape, no prose:
{"foods":[{"name":"...","portion_grams":0,"portion_description":"...","confidence":0.0}],"overall_confidence":0.0}
Use lowercase food names. Estimate portions in grams. Confidence values are between 0 and 1.
If no food is visible, return {"foods":[],"overall_confidence":0.0}.`

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// VisionDetector detects foods in a meal photo through the Bedrock Converse
// API.
type VisionDetector struct {
	brc  bedrockRuntimeClient
	opts nutripilot.ModelConfig
}

// NewVisionDetector creates a detector. Zero-valued options fall back to the
// defaults above.
func NewVisionDetector(brc bedrockRuntimeClient, opts nutripilot.ModelConfig) *VisionDetector {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.Temperature == 0 {
		opts.Temperature = defaultTemperature
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &VisionDetector{
		brc:  brc,
		opts: opts,
	}
}

func (d *VisionDetector) Name() string  { return "vision_detect" }
func (d *VisionDetector) Title() string { return "Vision Detection" }
func (d *VisionDetector) Description() string {
	return "Identifies foods and portion estimates in a meal photo."
}

func (d *VisionDetector) InputSchema() *jsonschema.Schema {
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

func (d *VisionDetector) OutputSchema() *jsonschema.Schema {
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

// visionResult is the wire shape the model is prompted to produce.
type visionResult struct {
	Foods []struct {
		Name               string  `json:"name"`
		PortionGrams       float64 `json:"portion_grams"`
		PortionDescription string  `json:"portion_description"`
		Confidence         float64 `json:"confidence"`
	} `json:"foods"`
	OverallConfidence float64 `json:"overall_confidence"`
}

// Analyze implements the PerceptionStage interface.
func (d *VisionDetector) Analyze(ctx context.Context, input nutripilot.VisionInput) (nutripilot.VisionReport, error) {
	start := time.Now()

	if len(input.ImageBytes) == 0 {
		return nutripilot.VisionReport{}, fmt.Errorf("image bytes must not be empty")
	}

	format := imageFormat(input.ImageFormat)

	userText := "Identify the foods in this meal photo."
	if input.Context != "" {
		userText += " Context: " + input.Context
	}

	in := &bedrockruntime.ConverseInput{
		ModelId: &d.opts.ModelID,
		System: []types.SystemContentBlock{
			&types.SystemContentBlockMemberText{Value: visionSystemPrompt},
		},
		Messages: []types.Message{
			{
				Role: types.ConversationRoleUser,
				Content: []types.ContentBlock{
					&types.ContentBlockMemberImage{Value: types.ImageBlock{
						Format: format,
						Source: &types.ImageSourceMemberBytes{Value: input.ImageBytes},
					}},
					&types.ContentBlockMemberText{Value: userText},
				},
			},
		},
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(d.opts.MaxTokens),
			Temperature: aws.Float32(d.opts.Temperature),
			TopP:        aws.Float32(d.opts.TopP),
		},
	}

	out, err := d.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("VISION: Bedrock Claude invoke failed", "error", err)
		return nutripilot.VisionReport{}, fmt.Errorf("failed to invoke vision model: %w", err)
	}

	slog.Info("VISION: Bedrock Claude invoke succeeded",
		"stop_reason", out.StopReason,
		"latency_ms", aws.ToInt64(out.Metrics.LatencyMs),
		"input_tokens", aws.ToInt32(out.Usage.InputTokens),
		"output_tokens", aws.ToInt32(out.Usage.OutputTokens),
	)

	text, err := textFromOutput(out)
	if err != nil {
		return nutripilot.VisionReport{}, err
	}

	var result visionResult
	if err := json.Unmarshal([]byte(extractJSON(text)), &result); err != nil {
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
		ModelUsed:         d.opts.ModelID,
		LatencyMS:         time.Since(start).Milliseconds(),
	}, nil
}

func imageFormat(format string) types.ImageFormat {
	switch strings.ToLower(format) {
	case "png":
		return types.ImageFormatPng
	case "gif":
		return types.ImageFormatGif
	case "webp":
		return types.ImageFormatWebp
	default:
		return types.ImageFormatJpeg
	}
}

// textFromOutput pulls the concatenated text blocks out of a Converse
// response.
func textFromOutput(out *bedrockruntime.ConverseOutput) (string, error) {
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok {
		return "", fmt.Errorf("unexpected converse output type %T", out.Output)
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if text, ok := block.(*types.ContentBlockMemberText); ok {
			sb.WriteString(text.Value)
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("no text content in model response")
	}
	return sb.String(), nil
}

// extractJSON trims any stray prose around the first JSON object in the
// model's answer.
func extractJSON(text string) string {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		return text[start : end+1]
	}
	return text
}
