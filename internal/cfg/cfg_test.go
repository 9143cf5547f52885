package cfg

import (
	"flag"
	"math"
	"strings"
	"testing"
)

// validBase returns a Config with all required fields set to valid values.
func validBase() Config {
	return Config{
		DrainSeconds:          60,
		ShutdownBudgetSeconds: 90,
		APIPort:               8080,
		ClaudeModel:           "claude-sonnet-4-20250514",
		CommitThreshold:       0.33,
		SettleMs:              250,
		RefineChunks:          8,
		RefineDelayMs:         40,
	}
}

func TestRegisterFlags_Defaults(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	if err := fs.Parse(nil); err != nil {
		t.Fatalf("parse empty args: %v", err)
	}

	if c.DrainSeconds != 60 {
		t.Errorf("DrainSeconds = %d, want 60", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 90 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 90", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 8080 {
		t.Errorf("APIPort = %d, want 8080", c.APIPort)
	}
	if c.ClaudeModel != "claude-sonnet-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-sonnet-4-20250514")
	}
	if c.CommitThreshold != 0.33 {
		t.Errorf("CommitThreshold = %v, want 0.33", c.CommitThreshold)
	}
	if c.SettleMs != 250 {
		t.Errorf("SettleMs = %d, want 250", c.SettleMs)
	}
	if c.RefineChunks != 8 {
		t.Errorf("RefineChunks = %d, want 8", c.RefineChunks)
	}
	if c.AutoFileOnApprove {
		t.Error("AutoFileOnApprove should default to false")
	}

	// Defaults must themselves validate.
	if err := c.Validate(); err != nil {
		t.Errorf("default config does not validate: %v", err)
	}
}

func TestRegisterFlags_Override(t *testing.T) {
	t.Parallel()

	var c Config
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	c.RegisterFlags(fs)

	args := []string{
		"-drain-seconds", "30",
		"-shutdown-budget-seconds", "120",
		"-http-port", "9090",
		"-claude-api-key", "sk-override",
		"-claude-model", "claude-opus-4-20250514",
		"-auto-file-on-approve",
		"-commit-threshold", "0.5",
		"-refine-chunks", "4",
		"-api-token", "secret",
	}
	if err := fs.Parse(args); err != nil {
		t.Fatalf("parse args: %v", err)
	}

	if c.DrainSeconds != 30 {
		t.Errorf("DrainSeconds = %d, want 30", c.DrainSeconds)
	}
	if c.ShutdownBudgetSeconds != 120 {
		t.Errorf("ShutdownBudgetSeconds = %d, want 120", c.ShutdownBudgetSeconds)
	}
	if c.APIPort != 9090 {
		t.Errorf("APIPort = %d, want 9090", c.APIPort)
	}
	if c.ClaudeAPIKey != "sk-override" {
		t.Errorf("ClaudeAPIKey = %q, want %q", c.ClaudeAPIKey, "sk-override")
	}
	if c.ClaudeModel != "claude-opus-4-20250514" {
		t.Errorf("ClaudeModel = %q, want %q", c.ClaudeModel, "claude-opus-4-20250514")
	}
	if !c.AutoFileOnApprove {
		t.Error("AutoFileOnApprove = false, want true")
	}
	if c.CommitThreshold != 0.5 {
		t.Errorf("CommitThreshold = %v, want 0.5", c.CommitThreshold)
	}
	if c.RefineChunks != 4 {
		t.Errorf("RefineChunks = %d, want 4", c.RefineChunks)
	}
	if c.APIToken != "secret" {
		t.Errorf("APIToken = %q, want %q", c.APIToken, "secret")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	withDrain := func(drain, budget int) Config {
		c := validBase()
		c.DrainSeconds = drain
		c.ShutdownBudgetSeconds = budget
		return c
	}

	tests := []struct {
		name      string
		cfg       Config
		wantErr   bool
		errSubstr []string // substrings that must appear in error message
	}{
		{
			name:    "base is valid",
			cfg:     validBase(),
			wantErr: false,
		},
		{
			name: "missing api key is valid",
			cfg: func() Config {
				c := validBase()
				c.ClaudeAPIKey = ""
				return c
			}(),
			wantErr: false,
		},
		// DrainSeconds boundaries
		{
			name:      "drain zero",
			cfg:       withDrain(0, 90),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain negative",
			cfg:       withDrain(-1, 90),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS"},
		},
		{
			name:      "drain above max",
			cfg:       withDrain(301, 302),
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:    "drain at lower bound",
			cfg:     withDrain(1, 90),
			wantErr: false,
		},
		// ShutdownBudgetSeconds boundaries
		{
			name:      "budget zero",
			cfg:       withDrain(60, 0),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		{
			name:      "budget above max",
			cfg:       withDrain(60, 301),
			wantErr:   true,
			errSubstr: []string{"SHUTDOWN_BUDGET_SECONDS"},
		},
		// Cross-field: budget vs drain
		{
			name:      "budget equals drain",
			cfg:       withDrain(60, 60),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:      "budget less than drain",
			cfg:       withDrain(60, 30),
			wantErr:   true,
			errSubstr: []string{"must be greater than"},
		},
		{
			name:    "budget is drain plus one",
			cfg:     withDrain(60, 61),
			wantErr: false,
		},
		// APIPort boundaries
		{
			name: "port zero",
			cfg: func() Config {
				c := validBase()
				c.APIPort = 0
				return c
			}(),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name: "port above max",
			cfg: func() Config {
				c := validBase()
				c.APIPort = 65536
				return c
			}(),
			wantErr:   true,
			errSubstr: []string{"HTTP_PORT"},
		},
		{
			name: "empty claude model",
			cfg: func() Config {
				c := validBase()
				c.ClaudeModel = ""
				return c
			}(),
			wantErr:   true,
			errSubstr: []string{"CLAUDE_MODEL"},
		},
		// Review tuning boundaries
		{
			name: "threshold zero",
			cfg: func() Config {
				c := validBase()
				c.CommitThreshold = 0
				return c
			}(),
			wantErr:   true,
			errSubstr: []string{"COMMIT_THRESHOLD"},
		},
		{
			name: "threshold one",
			cfg: func() Config {
				c := validBase()
				c.CommitThreshold = 1
				return c
			}(),
			wantErr:   true,
			errSubstr: []string{"COMMIT_THRESHOLD"},
		},
		{
			name: "settle zero",
			cfg: func() Config {
				c := validBase()
				c.SettleMs = 0
				return c
			}(),
			wantErr:   true,
			errSubstr: []string{"SETTLE_MS"},
		},
		{
			name: "refine chunks zero",
			cfg: func() Config {
				c := validBase()
				c.RefineChunks = 0
				return c
			}(),
			wantErr:   true,
			errSubstr: []string{"REFINE_CHUNKS"},
		},
		{
			name: "refine delay negative",
			cfg: func() Config {
				c := validBase()
				c.RefineDelayMs = -1
				return c
			}(),
			wantErr:   true,
			errSubstr: []string{"REFINE_DELAY_MS"},
		},
		{
			name: "negative soft limits",
			cfg: func() Config {
				c := validBase()
				c.MaxTokensSoftLimit = -1
				c.MaxCostSoftLimit = -0.5
				return c
			}(),
			wantErr:   true,
			errSubstr: []string{"MAX_TOKENS_SOFT_LIMIT", "MAX_COST_SOFT_LIMIT"},
		},
		// Error accumulation: everything invalid at once
		{
			name:      "all fields invalid",
			cfg:       Config{},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT", "CLAUDE_MODEL", "COMMIT_THRESHOLD", "SETTLE_MS", "REFINE_CHUNKS"},
		},
		{
			name:      "extreme negative values",
			cfg:       Config{DrainSeconds: math.MinInt32, ShutdownBudgetSeconds: math.MinInt32, APIPort: math.MinInt32},
			wantErr:   true,
			errSubstr: []string{"DRAIN_SECONDS", "SHUTDOWN_BUDGET_SECONDS", "HTTP_PORT"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				errMsg := err.Error()
				for _, sub := range tt.errSubstr {
					if !strings.Contains(errMsg, sub) {
						t.Errorf("error %q does not contain %q", errMsg, sub)
					}
				}
			}
		})
	}
}

func FuzzValidate(f *testing.F) {
	// Seeds: defaults, boundaries, extremes
	seeds := []struct {
		drain, budget, port int
		model               string
		threshold           float64
		settle, chunks      int
	}{
		{60, 90, 8080, "claude-sonnet", 0.33, 250, 8},
		{1, 2, 1, "m", 0.01, 1, 1},
		{299, 300, 65535, "m", 0.99, 5000, 64},
		{0, 0, 0, "", 0, 0, 0},
		{-1, -1, -1, "", -1, -1, -1},
		{301, 302, 65536, "", 1, 5001, 65},
		{150, 100, 8080, "m", 0.33, 250, 8},
		{math.MinInt32, math.MinInt32, math.MinInt32, "", 0, 0, 0},
		{math.MaxInt32, math.MaxInt32, math.MaxInt32, "", 2, math.MaxInt32, math.MaxInt32},
	}
	for _, s := range seeds {
		f.Add(s.drain, s.budget, s.port, s.model, s.threshold, s.settle, s.chunks)
	}

	f.Fuzz(func(t *testing.T, drain, budget, port int, model string, threshold float64, settle, chunks int) {
		c := Config{
			DrainSeconds:          drain,
			ShutdownBudgetSeconds: budget,
			APIPort:               port,
			ClaudeModel:           model,
			CommitThreshold:       threshold,
			SettleMs:              settle,
			RefineChunks:          chunks,
		}
		err := c.Validate()

		drainOK := drain >= 1 && drain <= 300
		budgetOK := budget >= 1 && budget <= 300
		portOK := port >= 1 && port <= 65535
		crossOK := budget > drain
		modelOK := model != ""
		thresholdOK := threshold > 0 && threshold < 1
		settleOK := settle >= 1 && settle <= 5000
		chunksOK := chunks >= 1 && chunks <= 64

		allValid := drainOK && budgetOK && portOK && crossOK && modelOK && thresholdOK && settleOK && chunksOK

		if allValid && err != nil {
			t.Errorf("expected no error for valid config %+v, got: %v", c, err)
		}
		if !allValid && err == nil {
			t.Errorf("expected error for invalid config %+v, got nil", c)
		}
	})
}
