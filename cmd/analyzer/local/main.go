// Command local analyzes a meal photo through a local Ollama model instead of
// Bedrock. Requires a running Ollama server with a multimodal model pulled.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"

	"github.com/joeshaw/envdecode"

	"nutripilot"
	"nutripilot/pipeline"
	"nutripilot/stages"
	stagestorage "nutripilot/stages/storage"
)

func main() {
	ctx := context.Background()

	var ollamaConfig nutripilot.OllamaConfig
	if err := envdecode.Decode(&ollamaConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	var pipelineConfig nutripilot.PipelineConfig
	if err := envdecode.Decode(&pipelineConfig); err != nil {
		log.Fatalf("SETUP: Failed to decode: %s", err)
	}

	if len(os.Args) < 2 {
		log.Fatal("SETUP: Usage: local <image-path> [user-id]")
	}
	imagePath := os.Args[1]
	userID := argOr(2, "demo_user")

	imageBytes, err := os.ReadFile(imagePath)
	if err != nil {
		slog.Error("SETUP: Failed to read image", "path", imagePath, "error", err)
		return
	}

	vision, err := stages.NewOllamaVisionDetector(stages.OllamaVisionOpts{
		BaseEndpoint: ollamaConfig.BaseEndpoint,
		ModelID:      ollamaConfig.ModelID,
		HTTPClient:   http.DefaultClient,
	})
	if err != nil {
		slog.Error("SETUP: Failed to create vision detector", "error", err)
		return
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

	p := pipeline.NewPipeline(
		vision,
		biodata,
		nutrition,
		nil,
		pipelineConfig.AlertChannel,
		logger,
		nutripilot.DefaultScoringConfig(),
		pipelineConfig.PerceptionTimeout,
	)

	state, err := p.Run(ctx, pipeline.Input{
		UserID:     userID,
		ImageBytes: imageBytes,
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
