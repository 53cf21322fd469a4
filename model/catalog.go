package model

// ModelInfo describes a known model in the pricing catalog.
type ModelInfo struct {
	ID                   string   `json:"id"`
	Provider             string   `json:"provider"`
	DisplayName          string   `json:"display_name"`
	ContextWindow        int      `json:"context_window"`
	InputCostPerMillion  float64  `json:"input_cost_per_million"`
	OutputCostPerMillion float64  `json:"output_cost_per_million"`
	Aliases              []string `json:"aliases,omitempty"`
}

// Catalog is the built-in model catalog used for provider inference and
// cost accounting.
var Catalog = []ModelInfo{
	// Anthropic
	{
		ID: "claude-opus-4-6", Provider: "anthropic", DisplayName: "Claude Opus 4.6",
		ContextWindow:       200000,
		InputCostPerMillion: 15.0, OutputCostPerMillion: 75.0,
		Aliases: []string{"opus", "claude-opus"},
	},
	{
		ID: "claude-sonnet-4-5", Provider: "anthropic", DisplayName: "Claude Sonnet 4.5",
		ContextWindow:       200000,
		InputCostPerMillion: 3.0, OutputCostPerMillion: 15.0,
		Aliases: []string{"sonnet", "claude-sonnet"},
	},

	// OpenAI
	{
		ID: "gpt-5.2", Provider: "openai", DisplayName: "GPT-5.2",
		ContextWindow:       1047576,
		InputCostPerMillion: 2.50, OutputCostPerMillion: 10.0,
		Aliases: []string{"gpt5"},
	},
	{
		ID: "gpt-5.2-mini", Provider: "openai", DisplayName: "GPT-5.2 Mini",
		ContextWindow:       1047576,
		InputCostPerMillion: 0.75, OutputCostPerMillion: 3.0,
		Aliases: []string{"gpt5-mini"},
	},

	// Gemini
	{
		ID: "gemini-3-pro-preview", Provider: "gemini", DisplayName: "Gemini 3 Pro (Preview)",
		ContextWindow:       1048576,
		InputCostPerMillion: 1.25, OutputCostPerMillion: 5.0,
		Aliases: []string{"gemini-pro", "gemini-3-pro"},
	},
	{
		ID: "gemini-3-flash-preview", Provider: "gemini", DisplayName: "Gemini 3 Flash (Preview)",
		ContextWindow:       1048576,
		InputCostPerMillion: 0.15, OutputCostPerMillion: 0.60,
		Aliases: []string{"gemini-flash", "gemini-3-flash"},
	},
}

// LookupModel finds catalog info by model ID or alias. Returns nil when the
// model is unknown; unknown models are still usable, they just report zero
// cost.
func LookupModel(name string) *ModelInfo {
	for i := range Catalog {
		info := &Catalog[i]
		if info.ID == name {
			return info
		}
		for _, alias := range info.Aliases {
			if alias == name {
				return info
			}
		}
	}
	return nil
}
