package config

// ModelDefinition represents a selectable model configuration
type ModelDefinition struct {
	Model       string `json:"model"`       // Full model identifier passed to the wrapper
	DisplayName string `json:"displayName"` // Human readable name for the UI
	Backend     string `json:"backend"`     // Backend tag this model belongs to
}

// ModelRegistry holds model configurations keyed by shorthand name
type ModelRegistry struct {
	Models  map[string]ModelDefinition `json:"models"`
	Default string                     `json:"default"`
}

// ModelInfo represents model information for API responses
type ModelInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	Backend     string `json:"backend"`
}

// GetModel returns a model definition by shorthand name
func (r *ModelRegistry) GetModel(name string) (ModelDefinition, bool) {
	model, ok := r.Models[name]
	return model, ok
}

// HasModel checks if a model exists in the registry
func (r *ModelRegistry) HasModel(name string) bool {
	_, ok := r.Models[name]
	return ok
}

// ListModels returns model info for all registered models
func (r *ModelRegistry) ListModels() []ModelInfo {
	var models []ModelInfo
	for name, def := range r.Models {
		models = append(models, ModelInfo{
			Name:        name,
			DisplayName: def.DisplayName,
			Backend:     def.Backend,
		})
	}
	return models
}

// ResolveModel resolves a shorthand name to the full model identifier.
// Names not in the registry are returned unchanged.
func (r *ModelRegistry) ResolveModel(name string) string {
	if model, ok := r.Models[name]; ok {
		return model.Model
	}
	return name
}
