// Package cfg holds the service configuration, bound to flags and filled
// from the environment by main.
package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds service-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int

	DatabaseURL string

	AuthSecret      string
	AuthAccessCode  string
	TokenTTLMinutes int

	RiskModelDir       string
	DepartmentModelDir string
	ScoringConfigPath  string

	SlackWebhookURL string

	ClaudeAPIKey string
	ClaudeModel  string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory stores)")
	fs.StringVar(&c.AuthSecret, "auth-secret", "", "HMAC secret for signing API tokens")
	fs.StringVar(&c.AuthAccessCode, "auth-access-code", "", "shared access code exchanged for API tokens")
	fs.IntVar(&c.TokenTTLMinutes, "token-ttl-minutes", 720, "API token lifetime in minutes (1..10080)")
	fs.StringVar(&c.RiskModelDir, "risk-model-dir", "", "directory with the risk classifier bundle (empty = neutral fallback)")
	fs.StringVar(&c.DepartmentModelDir, "department-model-dir", "", "directory with the department classifier bundle (empty = rule cascade)")
	fs.StringVar(&c.ScoringConfigPath, "scoring-config", "", "YAML file overriding the scoring constants (empty = defaults)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for high-priority notifications")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for narrative generation (empty = narratives disabled)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model for narrative generation")
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	// Token signing requires a secret and a way to obtain tokens
	if c.AuthSecret == "" {
		errs = append(errs, errors.New("AUTH_SECRET is required"))
	}
	if c.AuthAccessCode == "" {
		errs = append(errs, errors.New("AUTH_ACCESS_CODE is required"))
	}
	if c.TokenTTLMinutes <= 0 || c.TokenTTLMinutes > 10080 {
		errs = append(errs, fmt.Errorf("invalid TOKEN_TTL_MINUTES %d (must be 1..10080)", c.TokenTTLMinutes))
	}

	// Narratives need a model when a key is set
	if c.ClaudeAPIKey != "" && c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required when CLAUDE_API_KEY is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
