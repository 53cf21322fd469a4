package model

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkoukk/tiktoken-go"
	"github.com/teilomillet/gollm"
)

// GollmConfig configures a live model backend.
type GollmConfig struct {
	ModelName    string  `yaml:"model_name"`
	Provider     string  `yaml:"provider"`      // inferred from the catalog when empty
	APIKey       string  `yaml:"-"`             // read from environment when empty
	MaxTokens    int     `yaml:"max_tokens"`    // default 4096
	Temperature  float64 `yaml:"temperature"`   // default 0.0
	CacheControl bool    `yaml:"cache_control"` // annotate history for prompt caching
}

// GollmModel invokes a live LLM backend through gollm. Cost is computed
// from the pricing catalog using tokenizer counts; models absent from the
// catalog report zero cost.
type GollmModel struct {
	usage
	config GollmConfig
	llm    gollm.LLM
	info   *ModelInfo
	enc    *tiktoken.Tiktoken
}

// NewGollmModel creates a live model for the configured backend.
func NewGollmModel(cfg GollmConfig) (*GollmModel, error) {
	if cfg.ModelName == "" {
		return nil, &ConfigError{Message: "model_name is required"}
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 4096
	}

	info := LookupModel(cfg.ModelName)
	provider := cfg.Provider
	if provider == "" {
		if info == nil {
			return nil, &ConfigError{Message: fmt.Sprintf("model %q is not in the catalog; set provider explicitly", cfg.ModelName)}
		}
		provider = info.Provider
		cfg.Provider = provider
	}

	opts := []gollm.ConfigOption{
		gollm.SetProvider(provider),
		gollm.SetModel(cfg.ModelName),
		gollm.SetMaxTokens(cfg.MaxTokens),
		gollm.SetTemperature(cfg.Temperature),
		gollm.SetMaxRetries(0), // the agent loop handles retries
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.APIKey != "" {
		opts = append(opts, gollm.SetAPIKey(cfg.APIKey))
	}

	llm, err := gollm.NewLLM(opts...)
	if err != nil {
		return nil, &ConfigError{Message: fmt.Sprintf("creating %s backend: %v", provider, err)}
	}

	enc, err := tiktoken.EncodingForModel(cfg.ModelName)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("loading tokenizer: %w", err)
		}
	}

	return &GollmModel{config: cfg, llm: llm, info: info, enc: enc}, nil
}

// Name returns the configured model name.
func (m *GollmModel) Name() string {
	return m.config.ModelName
}

// Query sends the history to the backend and returns one assistant
// response, booking its cost locally and globally.
func (m *GollmModel) Query(ctx context.Context, messages []Message) (Response, error) {
	if m.config.CacheControl {
		messages = AddCacheControl(messages, 0)
	}

	prompt := m.translate(messages)
	text, err := m.llm.Generate(ctx, prompt)
	if err != nil {
		return Response{}, classifyError(m.config.Provider, err)
	}

	cost := m.estimateCost(messages, text)
	m.record(cost)

	return Response{Content: text, ModelName: m.config.ModelName, Cost: cost}, nil
}

// translate flattens the role-tagged history into a gollm prompt. System
// messages become the system prompt (marked cacheable); assistant turns are
// inlined as context.
func (m *GollmModel) translate(messages []Message) *gollm.Prompt {
	var system string
	var parts []string
	for _, msg := range messages {
		switch msg.Role {
		case RoleSystem:
			system += msg.TextContent() + "\n"
		case RoleUser:
			parts = append(parts, msg.TextContent())
		case RoleAssistant:
			if text := msg.TextContent(); text != "" {
				parts = append(parts, "[Assistant]: "+text)
			}
		}
	}

	var opts []gollm.PromptOption
	if system != "" {
		opts = append(opts, gollm.WithSystemPrompt(strings.TrimSpace(system), gollm.CacheTypeEphemeral))
	}
	return gollm.NewPrompt(strings.Join(parts, "\n"), opts...)
}

// estimateCost prices the call from tokenizer counts and catalog rates.
func (m *GollmModel) estimateCost(messages []Message, completion string) float64 {
	if m.info == nil {
		return 0
	}
	inputTokens := 0
	for _, msg := range messages {
		inputTokens += len(m.enc.Encode(msg.TextContent(), nil, nil))
	}
	outputTokens := len(m.enc.Encode(completion, nil, nil))
	return float64(inputTokens)*m.info.InputCostPerMillion/1e6 +
		float64(outputTokens)*m.info.OutputCostPerMillion/1e6
}

// classifyError translates a backend error into the model error hierarchy
// based on its message, since gollm flattens provider errors to strings.
func classifyError(provider string, err error) error {
	base := BackendError{Message: "generate failed", Cause: err, Provider: provider}

	lower := strings.ToLower(err.Error())
	switch {
	case strings.Contains(lower, "401") || strings.Contains(lower, "unauthorized") || strings.Contains(lower, "invalid api key"):
		return &AuthenticationError{BackendError: base}
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		base.Transient = true
		return &RateLimitError{BackendError: base}
	case strings.Contains(lower, "context length") || strings.Contains(lower, "too many tokens"):
		return &ContextLengthError{BackendError: base}
	case strings.Contains(lower, "500") || strings.Contains(lower, "502") || strings.Contains(lower, "503") ||
		strings.Contains(lower, "internal server") || strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "connection"):
		base.Transient = true
		return &ServerError{BackendError: base}
	default:
		// Unknown backend errors default to retryable.
		base.Transient = true
		return &base
	}
}
