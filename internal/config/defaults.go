package config

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			AllowAllOrigins: true,
		},
		DataDir: ".relay",
		Webhook: WebhookConfig{
			Path:          "/api/webhook",
			AsyncDispatch: true,
			LoopGuard:     LoopGuardHeuristic,
		},
		Model: ModelConfig{
			BaseURL:             "https://api.openai.com/v1",
			MaxTokens:           500,
			Temperature:         0.7,
			DefaultSystemPrompt: "You are a helpful AI assistant. Be concise and friendly.",
			FallbackResponse:    "Sorry, I could not generate a response.",
		},
		Slack: SlackConfig{
			APIURL: "https://slack.com/api/",
		},
		Teams: TeamsConfig{
			LoginURL:          "https://login.microsoftonline.com",
			DefaultTenant:     "botframework.com",
			DefaultServiceURL: "https://smba.trafficmanager.net/teams/",
			Scope:             "https://api.botframework.com/.default",
		},
	}
}
