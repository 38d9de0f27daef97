package config

const (
	PDFBackendGemini = "gemini"
	PDFBackendLocal  = "local"
)

// Operation names one model-backed task
type Operation string

const (
	OpExtract   Operation = "extract"
	OpAnalyze   Operation = "analyze"
	OpQuestions Operation = "questions"
	OpAnswers   Operation = "answers"
)

// Operations lists every model-backed task
var Operations = []Operation{OpExtract, OpAnalyze, OpQuestions, OpAnswers}

func (c *Config) rawOperationConfig(op Operation) OperationAIConfig {
	switch op {
	case OpExtract:
		return c.AI.Operations.Extract
	case OpAnalyze:
		return c.AI.Operations.Analyze
	case OpQuestions:
		return c.AI.Operations.Questions
	case OpAnswers:
		return c.AI.Operations.Answers
	default:
		return OperationAIConfig{}
	}
}

// GetOperationConfig returns the settings for op with global fallbacks
// applied. Timeout and MaxRetries are never nil on the result.
func (c *Config) GetOperationConfig(op Operation) OperationAIConfig {
	cfg := c.rawOperationConfig(op)

	if cfg.Model == "" {
		cfg.Model = c.AI.Model
	}
	if cfg.Timeout == nil {
		timeout := c.AI.Timeout
		cfg.Timeout = &timeout
	}
	if cfg.MaxRetries == nil {
		retries := c.AI.MaxRetries
		cfg.MaxRetries = &retries
	}
	if cfg.Temperature == nil && c.AI.Temperature != nil {
		temp := *c.AI.Temperature
		cfg.Temperature = &temp
	}
	if !cfg.CircuitBreaker.Enabled && cfg.CircuitBreaker == (CircuitBreakerConfig{}) {
		cfg.CircuitBreaker = c.AI.CircuitBreaker
	}
	if c.prompts != nil {
		if p := c.prompts.Get(op); p != "" {
			cfg.Prompt = p
		}
	}

	return cfg
}

// Prompts returns the prompt store backing custom templates
func (c *Config) Prompts() *PromptStore {
	if c.prompts == nil {
		c.prompts = NewPromptStore()
	}
	return c.prompts
}
