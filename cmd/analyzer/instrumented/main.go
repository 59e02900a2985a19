package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"nutripilot"
	"nutripilot/pipeline"
	"nutripilot/slack"
	"nutripilot/stages"
	stagestorage "nutripilot/stages/storage"
)

func main() {
	ctx := context.Background()

	var modelConfig nutripilot.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	var pipelineConfig nutripilot.PipelineConfig
	if err := envdecode.Decode(&pipelineConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	imagePath := argOr(1, "")
	userID := argOr(2, "demo_user")

	var imageBytes []byte
	if imagePath != "" {
		var err error
		imageBytes, err = os.ReadFile(imagePath)
		if err != nil {
			slog.Error("SETUP: Failed to read image", "path", imagePath, "error", err)
			return
		}
	}

	brc, err := newBedrockRuntimeClient(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to create Bedrock client", "error", err)
		return
	}

	var vision nutripilot.PerceptionStage
	if imageBytes != nil {
		vision = stages.NewVisionDetector(brc, modelConfig)
	} else {
		vision = stages.NewMockVisionDetector()
	}

	dataset := stagestorage.NewFileDataState(pipelineConfig.ArtifactsNutritionPath)
	nutrition := stages.NewNutritionAuditor(dataset)
	biodata := stages.NewBioDataScout()

	logger, cleanup, err := newSessionLogger(userID)
	if err != nil {
		slog.Error("SETUP: Failed to create session logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("Failed to flush session log", "error", err)
		}
	}()

	tracerProvider, meterProvider, otelShutdown, err := nutripilot.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	testServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := new(bytes.Buffer)
		body.ReadFrom(r.Body) // nolint: errcheck
		slog.Info("ALERT: Received request",
			"method", r.Method,
			"path", r.URL.Path,
			"body", body.String(),
		)
		w.WriteHeader(http.StatusOK)
	}))
	defer testServer.Close()

	slackClient := slack.NewClient(testServer.URL, http.DefaultClient)

	tracer := tracerProvider.Tracer(nutripilot.TracerNamePipeline)
	ctx, span := tracer.Start(ctx, nutripilot.TracerNamePipeline, trace.WithAttributes(
		attribute.String("model.id", modelConfig.ModelID),
		attribute.Int("model.max_tokens", int(modelConfig.MaxTokens)),
		attribute.Float64("model.temperature", float64(modelConfig.Temperature)),
		attribute.Float64("model.top_p", float64(modelConfig.TopP)),
	))
	defer span.End()

	p := pipeline.NewInstrumentedPipeline(
		vision,
		biodata,
		nutrition,
		slackClient,
		pipelineConfig.AlertChannel,
		logger,
		nutripilot.DefaultScoringConfig(),
		pipelineConfig.PerceptionTimeout,
		tracer,
		meterProvider.Meter(nutripilot.TracerNamePipeline),
	)

	state, err := p.Run(ctx, pipeline.Input{
		UserID:     userID,
		ImageBytes: imageBytes,
		TextInput:  textInputWhenNoImage(imageBytes),
		MealType:   nutripilot.MealTypeLunch,
	})
	if err != nil {
		slog.Error("RESULT: Error analyzing meal", "error", err)
		return
	}

	fmt.Println(state.Summary)
	fmt.Printf("Score: %.0f  Foods: %d  Adjustments: %d\n",
		state.Score(), len(state.DetectedFoods), len(state.Adjustments))
}

func textInputWhenNoImage(imageBytes []byte) string {
	if imageBytes != nil {
		return ""
	}
	return "grilled chicken breast with brown rice and steamed broccoli"
}

func newBedrockRuntimeClient(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func newSessionLogger(userID string) (nutripilot.SessionLogger, func() error, error) {
	logFilePath := nutripilot.NewSessionLogFilePath(userID)
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, func() error { return err }, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := nutripilot.NewFileSessionLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
