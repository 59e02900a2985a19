package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"nutripilot"
	"nutripilot/pipeline"
	"nutripilot/stages"
	stagestorage "nutripilot/stages/storage"
)

type Params struct {
	UserID      string `json:"user_id"`
	ImageBase64 string `json:"image_base64,omitempty"`
	TextInput   string `json:"text_input,omitempty"`
	MealType    string `json:"meal_type,omitempty"`
}

type Results struct {
	State *nutripilot.SessionState `json:"state"`
}

func main() {
	fn := func(ctx context.Context, params Params) (Results, error) {
		var modelConfig nutripilot.ModelConfig
		if err := envdecode.Decode(&modelConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		var pipelineConfig nutripilot.PipelineConfig
		if err := envdecode.Decode(&pipelineConfig); err != nil {
			log.Fatalf("Failed to decode: %s", err)
		}

		s3Bucket := os.Getenv("ARTIFACTS_S3_BUCKET")
		nutritionKey := os.Getenv("ARTIFACTS_NUTRITION_S3_KEY")
		if s3Bucket == "" || nutritionKey == "" {
			return Results{}, fmt.Errorf("missing S3 config: ARTIFACTS_S3_BUCKET, ARTIFACTS_NUTRITION_S3_KEY must be set")
		}

		awsCfg, err := config.LoadDefaultConfig(ctx)
		if err != nil {
			return Results{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		s3Client := s3.NewFromConfig(awsCfg)

		dataset := stagestorage.NewS3DataState(s3Client, s3Bucket, nutritionKey)
		nutrition := stages.NewNutritionAuditor(dataset)
		biodata := stages.NewBioDataScout()
		slog.Info("SETUP: S3 nutrition dataset initialized", "bucket", s3Bucket, "key", nutritionKey)

		brc, err := newBedrockRuntimeClient(ctx)
		if err != nil {
			slog.Error("SETUP: Failed to create Bedrock client", "error", err)
			return Results{}, err
		}
		vision := stages.NewVisionDetector(brc, modelConfig)

		var imageBytes []byte
		if params.ImageBase64 != "" {
			imageBytes, err = base64.StdEncoding.DecodeString(params.ImageBase64)
			if err != nil {
				return Results{}, fmt.Errorf("failed to decode image: %w", err)
			}
		}

		p := pipeline.NewPipeline(
			vision,
			biodata,
			nutrition,
			nil,
			pipelineConfig.AlertChannel,
			nutripilot.NewStdoutSessionLogger(),
			nutripilot.DefaultScoringConfig(),
			pipelineConfig.PerceptionTimeout,
		)

		state, err := p.Run(ctx, pipeline.Input{
			UserID:     params.UserID,
			ImageBytes: imageBytes,
			TextInput:  params.TextInput,
			MealType:   nutripilot.MealType(params.MealType),
		})
		if err != nil {
			slog.Error("RESULT: Error analyzing meal", "error", err)
			return Results{}, err
		}

		return Results{State: state}, nil
	}

	lambda.Start(fn)
}

func newBedrockRuntimeClient(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}
