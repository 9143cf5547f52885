package cfg

import (
	"errors"
	"flag"
	"fmt"
)

// Config adds sift-specific configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	ClaudeAPIKey          string
	ClaudeModel           string
	DatabaseURL           string
	SlackWebhookURL       string
	APIToken              string
	AutoFileOnApprove     bool
	CommitThreshold       float64
	SettleMs              int
	RefineChunks          int
	RefineDelayMs         int
	MaxTokensSoftLimit    int
	MaxCostSoftLimit      float64
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.ClaudeAPIKey, "claude-api-key", "", "API key for accessing the Claude LLM provider (empty = provider calls fail with a configuration error)")
	fs.StringVar(&c.ClaudeModel, "claude-model", "claude-sonnet-4-20250514", "Claude model to use")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for reviewer notifications")
	fs.StringVar(&c.APIToken, "api-token", "", "bearer token required on /api routes (empty = no auth)")
	fs.BoolVar(&c.AutoFileOnApprove, "auto-file-on-approve", false, "also file extracted entities when a draft is approved")
	fs.Float64Var(&c.CommitThreshold, "commit-threshold", 0.33, "fraction of the card extent a swipe must cross to commit (0..1)")
	fs.IntVar(&c.SettleMs, "settle-ms", 250, "commit exit-transition duration in milliseconds before dispatch fires (1..5000)")
	fs.IntVar(&c.RefineChunks, "refine-chunks", 8, "prefix steps a refinement stream is delivered in (1..64)")
	fs.IntVar(&c.RefineDelayMs, "refine-delay-ms", 40, "artificial delay between refinement chunks in milliseconds (0..1000)")
	fs.IntVar(&c.MaxTokensSoftLimit, "max-tokens-soft-limit", 0, "display-only token ceiling for usage ratios (0 = none)")
	fs.Float64Var(&c.MaxCostSoftLimit, "max-cost-soft-limit", 0, "display-only cost ceiling for usage ratios (0 = none)")
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

	// The API key is deliberately not required here: provider calls report
	// a configuration error per operation instead of refusing to start.
	if c.ClaudeModel == "" {
		errs = append(errs, errors.New("CLAUDE_MODEL is required"))
	}

	if !(c.CommitThreshold > 0 && c.CommitThreshold < 1) {
		errs = append(errs, fmt.Errorf("invalid COMMIT_THRESHOLD %v (must be in (0, 1))", c.CommitThreshold))
	}
	if c.SettleMs <= 0 || c.SettleMs > 5000 {
		errs = append(errs, fmt.Errorf("invalid SETTLE_MS %d (must be 1..5000)", c.SettleMs))
	}
	if c.RefineChunks <= 0 || c.RefineChunks > 64 {
		errs = append(errs, fmt.Errorf("invalid REFINE_CHUNKS %d (must be 1..64)", c.RefineChunks))
	}
	if c.RefineDelayMs < 0 || c.RefineDelayMs > 1000 {
		errs = append(errs, fmt.Errorf("invalid REFINE_DELAY_MS %d (must be 0..1000)", c.RefineDelayMs))
	}
	if c.MaxTokensSoftLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_TOKENS_SOFT_LIMIT %d (must be >= 0)", c.MaxTokensSoftLimit))
	}
	if c.MaxCostSoftLimit < 0 {
		errs = append(errs, fmt.Errorf("invalid MAX_COST_SOFT_LIMIT %v (must be >= 0)", c.MaxCostSoftLimit))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
