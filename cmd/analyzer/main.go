package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/joeshaw/envdecode"

	"nutripilot"
	"nutripilot/goals"
	"nutripilot/pipeline"
	"nutripilot/stages"
	stagestorage "nutripilot/stages/storage"
	"nutripilot/storage"
)

func main() {
	ctx := context.Background()

	var pipelineConfig nutripilot.PipelineConfig
	if err := envdecode.Decode(&pipelineConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	text := argOr(1, "grilled chicken breast with brown rice and steamed broccoli")
	userID := argOr(2, "demo_user")

	dataset := stagestorage.NewFileDataState(pipelineConfig.ArtifactsNutritionPath)
	nutrition := stages.NewNutritionAuditor(dataset)
	biodata := stages.NewBioDataScout()
	vision := stages.NewMockVisionDetector()

	registry, err := stages.NewRegistry(vision, biodata, nutrition)
	if err != nil {
		slog.Error("SETUP: Failed to create stage registry", "error", err)
		return
	}
	slog.Info("SETUP: Stage registry initialized", "stages", len(registry.GetStages()))

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

	repo := storage.NewMemoryRepository()
	profile := demoProfile(userID)
	if err := repo.SaveProfile(ctx, profile); err != nil {
		slog.Error("SETUP: Failed to save profile", "error", err)
		return
	}

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
		UserID:    userID,
		TextInput: text,
		MealType:  nutripilot.MealTypeLunch,
		Profile:   &profile,
	})
	if err != nil {
		slog.Error("RESULT: Error analyzing meal", "error", err)
		return
	}

	evaluation := goals.NewEvaluator().Evaluate(state, &profile)
	entry := nutripilot.NewMealLogEntry(state, evaluation.AlignmentScore)
	entry.GoalFeedback = evaluation.Feedback
	if err := repo.LogMeal(ctx, entry); err != nil {
		slog.Error("RESULT: Failed to log meal", "error", err)
		return
	}

	dashboard, err := repo.Dashboard(ctx, userID, 7)
	if err != nil {
		slog.Error("RESULT: Failed to build dashboard", "error", err)
		return
	}

	fmt.Println(state.Summary)
	fmt.Printf("Score: %.0f  Goal alignment: %.1f  Meals this week: %d\n",
		state.Score(), evaluation.AlignmentScore, dashboard.EntryCount)
	for _, adj := range state.Adjustments {
		fmt.Printf("- [%s] %s: %s\n", adj.Action, adj.FoodName, adj.Reason)
	}
}

func argOr(i int, def string) string {
	if len(os.Args) > i {
		return os.Args[i]
	}
	return def
}

func demoProfile(userID string) nutripilot.UserProfile {
	return nutripilot.UserProfile{
		UserID:       userID,
		Goals:        []nutripilot.HealthGoal{nutripilot.GoalGeneralWellness},
		DailyTargets: nutripilot.DefaultDailyTargets(),
	}
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
