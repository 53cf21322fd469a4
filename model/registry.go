package model

import (
	"fmt"
	"sort"
	"strings"
)

// Spec is the declarative model configuration understood by New. Kind
// selects the implementation; the remaining fields apply to the kinds that
// recognize them.
type Spec struct {
	Kind         string  `yaml:"kind"` // "gollm", "deterministic", "roulette", "interleaving"
	ModelName    string  `yaml:"model_name"`
	Provider     string  `yaml:"provider"`
	MaxTokens    int     `yaml:"max_tokens"`
	Temperature  float64 `yaml:"temperature"`
	CacheControl bool    `yaml:"cache_control"`

	// Deterministic models.
	Outputs     []string `yaml:"outputs"`
	CostPerCall float64  `yaml:"cost_per_call"`

	// Meta-models.
	Models   []Spec `yaml:"models"`
	Sequence []int  `yaml:"sequence"`
}

// kinds maps a model kind to its constructor. Registered at startup;
// dispatch is over this closed set, and unknown kinds fail fast. The map is
// filled in init because the meta-model constructors recurse through New.
var kinds = map[string]func(Spec) (Model, error){}

func init() {
	kinds["gollm"] = newGollmKind
	kinds["deterministic"] = newDeterministicKind
	kinds["roulette"] = newRouletteKind
	kinds["interleaving"] = newInterleavingKind
}

// New builds a Model from its spec. Unknown kinds return a ConfigError
// naming the recognized kinds.
func New(spec Spec) (Model, error) {
	build, ok := kinds[spec.Kind]
	if !ok {
		return nil, &ConfigError{Message: fmt.Sprintf(
			"unknown model kind %q (known kinds: %s)", spec.Kind, strings.Join(knownKinds(), ", "))}
	}
	return build(spec)
}

func knownKinds() []string {
	names := make([]string, 0, len(kinds))
	for name := range kinds {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func newGollmKind(spec Spec) (Model, error) {
	return NewGollmModel(GollmConfig{
		ModelName:    spec.ModelName,
		Provider:     spec.Provider,
		MaxTokens:    spec.MaxTokens,
		Temperature:  spec.Temperature,
		CacheControl: spec.CacheControl,
	})
}

func newDeterministicKind(spec Spec) (Model, error) {
	return NewDeterministicModelFromConfig(DeterministicConfig{
		Outputs:     spec.Outputs,
		ModelName:   spec.ModelName,
		CostPerCall: spec.CostPerCall,
	}), nil
}

func buildSubModels(spec Spec) ([]Model, error) {
	if len(spec.Models) == 0 {
		return nil, &ConfigError{Message: fmt.Sprintf("%s model requires at least one sub-model", spec.Kind)}
	}
	subs := make([]Model, len(spec.Models))
	for i, sub := range spec.Models {
		m, err := New(sub)
		if err != nil {
			return nil, err
		}
		subs[i] = m
	}
	return subs, nil
}

func newRouletteKind(spec Spec) (Model, error) {
	subs, err := buildSubModels(spec)
	if err != nil {
		return nil, err
	}
	return NewRouletteModel(subs), nil
}

func newInterleavingKind(spec Spec) (Model, error) {
	subs, err := buildSubModels(spec)
	if err != nil {
		return nil, err
	}
	for _, idx := range spec.Sequence {
		if idx < 0 || idx >= len(subs) {
			return nil, &ConfigError{Message: fmt.Sprintf("sequence index %d out of range for %d sub-models", idx, len(subs))}
		}
	}
	return NewInterleavingModel(subs, spec.Sequence), nil
}
