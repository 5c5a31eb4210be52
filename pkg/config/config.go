package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8000"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"60s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"60s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
	} `yaml:"server"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Payment struct {
		RPCURL         string        `yaml:"rpc_url" default:"https://sepolia.base.org"`
		ChainID        int64         `yaml:"chain_id" default:"84532"`
		PayeeAddress   string        `yaml:"payee_address"`
		TokenAddress   string        `yaml:"token_address" default:"0x036CbD53842c5426634e7929541eC2318f3dCF7e"`
		Price          string        `yaml:"price" default:"1.0"`
		TokenDecimals  int32         `yaml:"token_decimals" default:"6"`
		ConfirmTimeout time.Duration `yaml:"confirm_timeout" default:"30s"`
		PollInterval   time.Duration `yaml:"poll_interval" default:"1s"`
		EnforceAmount  bool          `yaml:"enforce_amount"`
	} `yaml:"payment"`
	Agent struct {
		APIURL       string        `yaml:"api_url" default:"http://127.0.0.1:8000"`
		Source       string        `yaml:"source" default:"Agent-007"`
		PrivateKey   string        `yaml:"private_key"`
		PollInterval time.Duration `yaml:"poll_interval" default:"3s"`
		MaxAttempts  int           `yaml:"max_attempts" default:"20"`
		GasLimit     uint64        `yaml:"gas_limit" default:"100000"`
		HTTPTimeout  time.Duration `yaml:"http_timeout" default:"3m"`
		Schedule     string        `yaml:"schedule"`
	} `yaml:"agent"`
	Engine struct {
		Assets       []string `yaml:"assets" default:"[\"BTC-USD\",\"ETH-USD\",\"SOL-USD\",\"DOGE-USD\"]"`
		DefaultAsset string   `yaml:"default_asset" default:"BTC-USD"`
		RiskWeight   float64  `yaml:"risk_weight" default:"0.6"`
	} `yaml:"engine"`
	Ledger struct {
		Path string `yaml:"path" default:"portfolio.json"`
	} `yaml:"ledger"`
	Market struct {
		BaseURL  string        `yaml:"base_url" default:"https://query1.finance.yahoo.com"`
		Interval string        `yaml:"interval" default:"15m"`
		Range    string        `yaml:"range" default:"7d"`
		Timeout  time.Duration `yaml:"timeout" default:"15s"`
	} `yaml:"market"`
	News struct {
		FeedURL   string        `yaml:"feed_url" default:"https://www.coindesk.com/arc/outboundfeeds/rss/"`
		Headlines int           `yaml:"headlines" default:"2"`
		Timeout   time.Duration `yaml:"timeout" default:"10s"`
		CacheTTL  time.Duration `yaml:"cache_ttl" default:"2m"`
	} `yaml:"news"`
	Classifier struct {
		ServiceURL string        `yaml:"service_url"`
		Assets     []string      `yaml:"assets"`
		Timeout    time.Duration `yaml:"timeout" default:"5s"`
	} `yaml:"classifier"`
	Oracle struct {
		Provider   string        `yaml:"provider" default:"none"`
		BaseURL    string        `yaml:"base_url"`
		APIKey     string        `yaml:"api_key"`
		Model      string        `yaml:"model"`
		Timeout    time.Duration `yaml:"timeout" default:"30s"`
		MaxRetries int           `yaml:"max_retries" default:"2"`
	} `yaml:"oracle"`
	Audit struct {
		Backend  string `yaml:"backend" default:"memory"`
		Capacity int    `yaml:"capacity" default:"500"`
		RedisKey string `yaml:"redis_key" default:"x402:audit"`
	} `yaml:"audit"`
	Cache struct {
		Backend string `yaml:"backend" default:"memory"`
		MaxSize int    `yaml:"max_size" default:"256"`
	} `yaml:"cache"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
		Prefix   string `yaml:"prefix" default:"x402"`
	} `yaml:"redis"`
	Sink struct {
		Backend string `yaml:"backend" default:"none"`
		Kafka   struct {
			Brokers      []string      `yaml:"brokers"`
			Topic        string        `yaml:"topic" default:"x402.decisions"`
			RequiredAcks int           `yaml:"required_acks" default:"-1"`
			Compression  string        `yaml:"compression" default:"gzip"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
		} `yaml:"kafka"`
		ClickHouse struct {
			Host        string        `yaml:"host" default:"localhost"`
			Port        int           `yaml:"port" default:"9000"`
			Database    string        `yaml:"database" default:"x402"`
			Table       string        `yaml:"table" default:"decision_events"`
			User        string        `yaml:"user" default:"default"`
			Password    string        `yaml:"password"`
			UseHTTP     bool          `yaml:"use_http"`
			DialTimeout time.Duration `yaml:"dial_timeout" default:"5s"`
			ReadTimeout time.Duration `yaml:"read_timeout" default:"10s"`
		} `yaml:"clickhouse"`
	} `yaml:"sink"`
	RateLimit struct {
		RPS   float64 `yaml:"rps" default:"5"`
		Burst int     `yaml:"burst" default:"10"`
	} `yaml:"rate_limit"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse decodes YAML bytes, applies defaults and validates.
func Parse(b []byte) (*Config, error) {
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables
// before validating.
func LoadWithEnv(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := decode(b)
	if err != nil {
		return nil, err
	}
	c.applyEnv()
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func decode(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("RPC_URL"); v != "" {
		c.Payment.RPCURL = v
	}
	if v := os.Getenv("PAYEE_ADDRESS"); v != "" {
		c.Payment.PayeeAddress = v
	}
	if v := os.Getenv("TOKEN_ADDRESS"); v != "" {
		c.Payment.TokenAddress = v
	}
	if v := os.Getenv("AGENT_PRIVATE_KEY"); v != "" {
		c.Agent.PrivateKey = v
	}
	if v := os.Getenv("SIGNAL_API_URL"); v != "" {
		c.Agent.APIURL = v
	}
	if v := os.Getenv("ORACLE_API_KEY"); v != "" {
		c.Oracle.APIKey = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Sink.Kafka.Brokers = strings.Split(v, ",")
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if !common.IsHexAddress(c.Payment.PayeeAddress) {
		return fmt.Errorf("payment.payee_address must be a hex address, got %q", c.Payment.PayeeAddress)
	}
	if !common.IsHexAddress(c.Payment.TokenAddress) {
		return fmt.Errorf("payment.token_address must be a hex address, got %q", c.Payment.TokenAddress)
	}
	price, err := decimal.NewFromString(c.Payment.Price)
	if err != nil || !price.IsPositive() {
		return fmt.Errorf("payment.price must be a positive decimal, got %q", c.Payment.Price)
	}
	if c.Payment.ConfirmTimeout <= 0 {
		return fmt.Errorf("payment.confirm_timeout must be positive")
	}
	if c.Agent.MaxAttempts <= 0 || c.Agent.PollInterval <= 0 {
		return fmt.Errorf("agent.max_attempts and agent.poll_interval must be positive")
	}
	if c.Agent.HTTPTimeout > 0 && c.Agent.HTTPTimeout <= c.SignalBudget() {
		return fmt.Errorf("agent.http_timeout %s must exceed the paid /signal budget %s", c.Agent.HTTPTimeout, c.SignalBudget())
	}
	if len(c.Engine.Assets) == 0 {
		return fmt.Errorf("engine.assets cannot be empty")
	}
	if !contains(c.Engine.Assets, c.Engine.DefaultAsset) {
		return fmt.Errorf("engine.default_asset %q is not in engine.assets", c.Engine.DefaultAsset)
	}
	if c.Engine.RiskWeight < 0 || c.Engine.RiskWeight > 1 {
		return fmt.Errorf("engine.risk_weight must be within [0,1], got %v", c.Engine.RiskWeight)
	}
	if c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required")
	}
	switch c.Oracle.Provider {
	case "none", "openai", "gemini":
	default:
		return fmt.Errorf("oracle.provider must be 'none', 'openai' or 'gemini', got '%s'", c.Oracle.Provider)
	}
	switch c.Audit.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("audit.backend must be 'memory' or 'redis', got '%s'", c.Audit.Backend)
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("cache.backend must be 'memory' or 'redis', got '%s'", c.Cache.Backend)
	}
	switch c.Sink.Backend {
	case "none", "clickhouse":
	case "kafka":
		if len(c.Sink.Kafka.Brokers) == 0 {
			return fmt.Errorf("sink.kafka.brokers cannot be empty when sink.backend is 'kafka'")
		}
	default:
		return fmt.Errorf("sink.backend must be 'none', 'kafka' or 'clickhouse', got '%s'", c.Sink.Backend)
	}
	return nil
}

// SignalBudget is the longest a /signal request carrying a proof can take:
// the receipt wait followed by one full evaluation with every retry.
func (c *Config) SignalBudget() time.Duration {
	b := c.Payment.ConfirmTimeout + c.Market.Timeout + c.News.Timeout + 2*c.Classifier.Timeout
	if c.Oracle.Provider != "none" {
		b += time.Duration(1+c.Oracle.MaxRetries) * c.Oracle.Timeout
		for i := 0; i < c.Oracle.MaxRetries; i++ {
			b += 800 * time.Millisecond << i
		}
	}
	return b
}

func contains(xs []string, s string) bool {
	for _, x := range xs {
		if x == s {
			return true
		}
	}
	return false
}
