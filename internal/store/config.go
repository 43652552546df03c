package store

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"news-trading-bot/internal/types"
)

type SourceConfig struct {
	ID            string `yaml:"id"`
	Adapter       string `yaml:"adapter"` // FEED or STATIC
	URL           string `yaml:"url"`
	ListSelector  string `yaml:"list_selector"`
	TitleSelector string `yaml:"title_selector"`
	LinkSelector  string `yaml:"link_selector"`
	ContractID    string `yaml:"contract_id"`
	OutcomeID     string `yaml:"outcome_id"`
	PollMS        int    `yaml:"poll_interval_ms"`
	CalibrationS  int    `yaml:"calibration_seconds"`
	RateLimit     struct {
		Capacity     float64 `yaml:"capacity"`
		RefillPerSec float64 `yaml:"refill_per_sec"`
	} `yaml:"rate_limit"`
}

func (s SourceConfig) PollInterval() time.Duration {
	return time.Duration(s.PollMS) * time.Millisecond
}

func (s SourceConfig) CalibrationWindow() time.Duration {
	return time.Duration(s.CalibrationS) * time.Second
}

type ClassifierConfig struct {
	Provider    string  `yaml:"provider"` // OPENAI, CLAUDE, NOOP
	Model       string  `yaml:"model"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float32 `yaml:"temperature"`
	System      string  `yaml:"system"`
}

type ActionRule struct {
	Score    int     `yaml:"score"`
	Side     string  `yaml:"side"`
	PriceCap float64 `yaml:"price_cap"`
}

type ContractConfig struct {
	ID           string   `yaml:"id"`
	Outcomes     []string `yaml:"outcomes"`
	TickSize     float64  `yaml:"tick_size"`
	MultiOutcome bool     `yaml:"multi_outcome"`
}

type Config struct {
	Mode    string         `yaml:"mode"` // DRY_RUN or LIVE
	Sources []SourceConfig `yaml:"sources"`
	Monitor struct {
		ChannelBuffer    int `yaml:"channel_buffer"`
		FailureThreshold int `yaml:"failure_threshold"`
		BackoffInitialMS int `yaml:"backoff_initial_ms"`
		BackoffMaxMS     int `yaml:"backoff_max_ms"`
		PollTimeoutMS    int `yaml:"poll_timeout_ms"`
	} `yaml:"monitor"`
	Classifiers struct {
		Providers    []ClassifierConfig `yaml:"providers"`
		Quorum       int                `yaml:"quorum"`
		DeadlineMS   int                `yaml:"deadline_ms"`
		MinAgreement float64            `yaml:"min_agreement"`
	} `yaml:"classifiers"`
	Actions []ActionRule `yaml:"actions"`
	Sizing  struct {
		BaseQuantity    int     `yaml:"base_quantity"`
		ImpactTolerance float64 `yaml:"impact_tolerance"`
	} `yaml:"sizing"`
	Risk struct {
		MaxExposurePerContract float64 `yaml:"max_exposure_per_contract"`
		MaxTotalExposure       float64 `yaml:"max_total_exposure"`
		MaxOrderNotional       float64 `yaml:"max_order_notional"`
	} `yaml:"risk"`
	Contracts []ContractConfig `yaml:"contracts"`
	Gateway   struct {
		BaseURL   string `yaml:"base_url"`
		StreamURL string `yaml:"stream_url"`
		TimeoutMS int    `yaml:"timeout_ms"`
	} `yaml:"gateway"`
	Metrics struct {
		Addr string `yaml:"addr"`
	} `yaml:"metrics"`
}

func (c *Config) ClassifierDeadline() time.Duration {
	return time.Duration(c.Classifiers.DeadlineMS) * time.Millisecond
}

func (c *Config) BackoffInitial() time.Duration {
	return time.Duration(c.Monitor.BackoffInitialMS) * time.Millisecond
}

func (c *Config) BackoffMax() time.Duration {
	return time.Duration(c.Monitor.BackoffMaxMS) * time.Millisecond
}

func (c *Config) PollTimeout() time.Duration {
	return time.Duration(c.Monitor.PollTimeoutMS) * time.Millisecond
}

// RiskLimits returns the read-only risk configuration.
func (c *Config) RiskLimits() types.RiskLimits {
	return types.RiskLimits{
		MaxExposurePerContract: c.Risk.MaxExposurePerContract,
		MaxTotalExposure:       c.Risk.MaxTotalExposure,
		MaxOrderNotional:       c.Risk.MaxOrderNotional,
	}
}

// ContractMap builds the contract lookup used across the pipeline.
func (c *Config) ContractMap() map[string]types.Contract {
	m := make(map[string]types.Contract, len(c.Contracts))
	for _, cc := range c.Contracts {
		m[cc.ID] = types.Contract{
			ID:           cc.ID,
			Outcomes:     cc.Outcomes,
			TickSize:     cc.TickSize,
			MultiOutcome: cc.MultiOutcome,
		}
	}
	return m
}

// DefaultActions is the confidence-to-action table used when the config
// does not override it.
func DefaultActions() []ActionRule {
	return []ActionRule{
		{Score: 4, Side: "BUY", PriceCap: 0.90},
		{Score: 3, Side: "BUY", PriceCap: 0.80},
		{Score: 2, Side: "BUY", PriceCap: 0.75},
		{Score: 1, Side: "SELL", PriceCap: 0.30},
	}
}

func (c *Config) Validate() error {
	if c.Mode != "DRY_RUN" && c.Mode != "LIVE" {
		return fmt.Errorf("invalid mode '%s': must be 'DRY_RUN' or 'LIVE'", c.Mode)
	}
	if len(c.Sources) == 0 {
		return errors.New("sources cannot be empty")
	}
	if len(c.Contracts) == 0 {
		return errors.New("contracts cannot be empty")
	}
	contracts := map[string]ContractConfig{}
	for _, cc := range c.Contracts {
		if cc.ID == "" {
			return errors.New("contract id cannot be empty")
		}
		if len(cc.Outcomes) == 0 {
			return fmt.Errorf("contract '%s' must have at least one outcome", cc.ID)
		}
		if cc.TickSize <= 0 || cc.TickSize >= 1 {
			return fmt.Errorf("contract '%s' tick_size must be in (0, 1), got %v", cc.ID, cc.TickSize)
		}
		contracts[cc.ID] = cc
	}
	for _, s := range c.Sources {
		if s.ID == "" {
			return errors.New("source id cannot be empty")
		}
		if s.Adapter != "FEED" && s.Adapter != "STATIC" {
			return fmt.Errorf("source '%s': adapter must be 'FEED' or 'STATIC', got '%s'", s.ID, s.Adapter)
		}
		cc, ok := contracts[s.ContractID]
		if !ok {
			return fmt.Errorf("source '%s' references unknown contract '%s'", s.ID, s.ContractID)
		}
		if !containsOutcome(cc.Outcomes, s.OutcomeID) {
			return fmt.Errorf("source '%s' references unknown outcome '%s' on contract '%s'", s.ID, s.OutcomeID, s.ContractID)
		}
		if s.CalibrationS < 0 {
			return fmt.Errorf("source '%s': calibration_seconds cannot be negative", s.ID)
		}
	}
	if c.Classifiers.Quorum < 1 {
		return fmt.Errorf("classifiers.quorum must be >= 1, got %d", c.Classifiers.Quorum)
	}
	if c.Classifiers.Quorum > len(c.Classifiers.Providers) {
		return fmt.Errorf("classifiers.quorum %d exceeds provider count %d", c.Classifiers.Quorum, len(c.Classifiers.Providers))
	}
	if c.Classifiers.MinAgreement < 0 || c.Classifiers.MinAgreement > 1 {
		return fmt.Errorf("classifiers.min_agreement must be in [0, 1], got %v", c.Classifiers.MinAgreement)
	}
	for _, a := range c.Actions {
		if !types.ValidScore(a.Score) {
			return fmt.Errorf("action rule score %d outside [-1, 4]", a.Score)
		}
		if a.Side != "BUY" && a.Side != "SELL" {
			return fmt.Errorf("action rule side must be 'BUY' or 'SELL', got '%s'", a.Side)
		}
		if a.PriceCap <= 0 || a.PriceCap >= 1 {
			return fmt.Errorf("action rule price_cap must be in (0, 1), got %v", a.PriceCap)
		}
	}
	if c.Sizing.ImpactTolerance <= 0 {
		return fmt.Errorf("sizing.impact_tolerance must be positive, got %v", c.Sizing.ImpactTolerance)
	}
	if c.Risk.MaxOrderNotional <= 0 {
		return errors.New("risk.max_order_notional must be positive")
	}
	if c.Mode == "LIVE" && c.Gateway.BaseURL == "" {
		return errors.New("gateway.base_url required in LIVE mode")
	}
	return nil
}

func containsOutcome(outcomes []string, id string) bool {
	for _, o := range outcomes {
		if o == id {
			return true
		}
	}
	return false
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	applyDefaults(&c)

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &c, nil
}

func applyDefaults(c *Config) {
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.PollMS == 0 {
			s.PollMS = 15000
		}
		if s.RateLimit.Capacity == 0 {
			s.RateLimit.Capacity = 1
		}
		if s.RateLimit.RefillPerSec == 0 {
			s.RateLimit.RefillPerSec = 1000.0 / float64(s.PollMS)
		}
	}
	if c.Monitor.ChannelBuffer == 0 {
		c.Monitor.ChannelBuffer = 64
	}
	if c.Monitor.FailureThreshold == 0 {
		c.Monitor.FailureThreshold = 5
	}
	if c.Monitor.BackoffInitialMS == 0 {
		c.Monitor.BackoffInitialMS = 500
	}
	if c.Monitor.BackoffMaxMS == 0 {
		c.Monitor.BackoffMaxMS = 60000
	}
	if c.Monitor.PollTimeoutMS == 0 {
		c.Monitor.PollTimeoutMS = 10000
	}
	if c.Classifiers.DeadlineMS == 0 {
		c.Classifiers.DeadlineMS = 8000
	}
	if c.Classifiers.MinAgreement == 0 {
		c.Classifiers.MinAgreement = 0.5
	}
	if len(c.Actions) == 0 {
		c.Actions = DefaultActions()
	}
	if c.Sizing.BaseQuantity == 0 {
		c.Sizing.BaseQuantity = 100
	}
	if c.Sizing.ImpactTolerance == 0 {
		c.Sizing.ImpactTolerance = 0.05
	}
	if c.Gateway.TimeoutMS == 0 {
		c.Gateway.TimeoutMS = 5000
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9108"
	}
}
