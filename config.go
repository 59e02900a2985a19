package nutripilot

import "time"

// ModelConfig configures the Bedrock vision model used by the perception
// stage.
type ModelConfig struct {
	ModelID     string  `env:"MODEL_ID,required"`
	MaxTokens   int32   `env:"MAX_TOKENS,default=1024"`
	Temperature float32 `env:"TEMPERATURE,default=0.2"`
	TopP        float32 `env:"TOP_P,default=0.9"`
}

// OllamaConfig configures the local Ollama vision backend.
type OllamaConfig struct {
	BaseEndpoint string `env:"BASE_OLLAMA_ENDPOINT,default=http://localhost:11434"`
	ModelID      string `env:"OLLAMA_MODEL_ID,default=llava"`
}

// PipelineConfig configures pipeline-level behavior.
type PipelineConfig struct {
	ArtifactsNutritionPath  string        `env:"ARTIFACTS_NUTRITION_PATH,default=artifacts/nutrition.json"`
	ArtifactsVocabularyPath string        `env:"ARTIFACTS_VOCABULARY_PATH,default=artifacts/vocabulary.json"`
	PerceptionTimeout       time.Duration `env:"PERCEPTION_TIMEOUT,default=15s"`
	AlertChannel            string        `env:"ALERT_CHANNEL,default=#health-alerts"`
}

// ScoringConfig carries the scoring and gate thresholds. None of the values
// has a documented derivation, so they stay adjustable rather than baked in
// as constants.
type ScoringConfig struct {
	// Extraction-failure gate.
	FailureConfidence       float64 `env:"FAILURE_CONFIDENCE,default=0.15"`
	HallucinationConfidence float64 `env:"HALLUCINATION_CONFIDENCE,default=0.10"`
	MinFoodsForSuccess      int     `env:"MIN_FOODS_FOR_SUCCESS,default=1"`

	// Meal score.
	BaseScore          float64 `env:"BASE_SCORE,default=70"`
	ProteinHighGrams   float64 `env:"PROTEIN_HIGH_GRAMS,default=30"`
	ProteinMidGrams    float64 `env:"PROTEIN_MID_GRAMS,default=20"`
	ProteinLowGrams    float64 `env:"PROTEIN_LOW_GRAMS,default=10"`
	FiberHighGrams     float64 `env:"FIBER_HIGH_GRAMS,default=8"`
	FiberMidGrams      float64 `env:"FIBER_MID_GRAMS,default=5"`
	SodiumHighMG       float64 `env:"SODIUM_HIGH_MG,default=1000"`
	SodiumMidMG        float64 `env:"SODIUM_MID_MG,default=800"`
	ViolationPenalty   float64 `env:"VIOLATION_PENALTY,default=10"`
	MaxTextMatches     int     `env:"MAX_TEXT_MATCHES,default=6"`
	MaxGoalSuggestions int     `env:"MAX_GOAL_SUGGESTIONS,default=3"`
}

// DefaultScoringConfig returns the reference scoring configuration without
// consulting the environment.
func DefaultScoringConfig() ScoringConfig {
	return ScoringConfig{
		FailureConfidence:       0.15,
		HallucinationConfidence: 0.10,
		MinFoodsForSuccess:      1,
		BaseScore:               70,
		ProteinHighGrams:        30,
		ProteinMidGrams:         20,
		ProteinLowGrams:         10,
		FiberHighGrams:          8,
		FiberMidGrams:           5,
		SodiumHighMG:            1000,
		SodiumMidMG:             800,
		ViolationPenalty:        10,
		MaxTextMatches:          6,
		MaxGoalSuggestions:      3,
	}
}
