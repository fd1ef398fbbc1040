package config

// LoopGuardPolicy selects how self-generated messages are detected.
type LoopGuardPolicy string

const (
	// LoopGuardHeuristic adds sender name/id substring checks on top of the
	// platform bot flags.
	LoopGuardHeuristic LoopGuardPolicy = "heuristic"
	// LoopGuardStrict relies on platform bot flags and exact matches against
	// the configured agents only.
	LoopGuardStrict LoopGuardPolicy = "strict"
)

// Config is the top-level relay configuration, corresponding to .relay.yml.
type Config struct {
	Server  ServerConfig  `yaml:"server" koanf:"server"`
	DataDir string        `yaml:"data_dir" koanf:"data_dir"`
	Webhook WebhookConfig `yaml:"webhook" koanf:"webhook"`
	Model   ModelConfig   `yaml:"model" koanf:"model"`
	Slack   SlackConfig   `yaml:"slack" koanf:"slack"`
	Teams   TeamsConfig   `yaml:"teams" koanf:"teams"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int  `yaml:"port" koanf:"port"`
	AllowAllOrigins bool `yaml:"allow_all_origins" koanf:"allow_all_origins"`
}

// WebhookConfig controls the inbound chat webhook.
type WebhookConfig struct {
	Path                  string          `yaml:"path" koanf:"path"`
	VerifySlackSignatures bool            `yaml:"verify_slack_signatures" koanf:"verify_slack_signatures"`
	AsyncDispatch         bool            `yaml:"async_dispatch" koanf:"async_dispatch"`
	LoopGuard             LoopGuardPolicy `yaml:"loop_guard" koanf:"loop_guard"`
}

// ModelConfig holds completion settings shared by all agents.
type ModelConfig struct {
	BaseURL             string  `yaml:"base_url" koanf:"base_url"`
	MaxTokens           int     `yaml:"max_tokens" koanf:"max_tokens"`
	Temperature         float64 `yaml:"temperature" koanf:"temperature"`
	DefaultSystemPrompt string  `yaml:"default_system_prompt" koanf:"default_system_prompt"`
	FallbackResponse    string  `yaml:"fallback_response" koanf:"fallback_response"`
}

// SlackConfig holds Slack Web API endpoints.
type SlackConfig struct {
	APIURL string `yaml:"api_url" koanf:"api_url"`
}

// TeamsConfig holds Bot Framework endpoints and defaults.
type TeamsConfig struct {
	LoginURL          string `yaml:"login_url" koanf:"login_url"`
	DefaultTenant     string `yaml:"default_tenant" koanf:"default_tenant"`
	DefaultServiceURL string `yaml:"default_service_url" koanf:"default_service_url"`
	Scope             string `yaml:"scope" koanf:"scope"`
}
