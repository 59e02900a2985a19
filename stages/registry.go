package stages

import (
	"fmt"
)

// Registry maps stage names to implementations
type Registry map[string]Stage

// NewRegistry creates a stage registry over the given stages.
func NewRegistry(stages ...Stage) (*Registry, error) {
	registry := make(Registry, len(stages))
	for _, stage := range stages {
		if _, exists := registry[stage.Name()]; exists {
			return nil, fmt.Errorf("duplicate stage name %q", stage.Name())
		}
		registry[stage.Name()] = stage
	}
	return &registry, nil
}

// GetStages returns all stages in the registry as a slice
func (r *Registry) GetStages() []Stage {
	stages := make([]Stage, 0, len(*r))
	for _, stage := range *r {
		stages = append(stages, stage)
	}
	return stages
}

// GetStage retrieves a stage by name from the registry
func (r Registry) GetStage(name string) (Stage, error) {
	stage, exists := r[name]
	if !exists {
		return nil, fmt.Errorf("stage %q not found in registry", name)
	}
	return stage, nil
}
