package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
payment:
  payee_address: "0x00000000000000000000000000000000000000aa"
`

func TestParseAppliesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)

	assert.Equal(t, 8000, c.Server.Port)
	assert.Equal(t, "1.0", c.Payment.Price)
	assert.Equal(t, int32(6), c.Payment.TokenDecimals)
	assert.Equal(t, 30*time.Second, c.Payment.ConfirmTimeout)
	assert.Equal(t, 3*time.Second, c.Agent.PollInterval)
	assert.Equal(t, 20, c.Agent.MaxAttempts)
	assert.Equal(t, "Agent-007", c.Agent.Source)
	assert.Equal(t, []string{"BTC-USD", "ETH-USD", "SOL-USD", "DOGE-USD"}, c.Engine.Assets)
	assert.Equal(t, 0.6, c.Engine.RiskWeight)
	assert.Equal(t, "none", c.Oracle.Provider)
	assert.Equal(t, "memory", c.Audit.Backend)
	assert.Equal(t, "none", c.Sink.Backend)
	assert.False(t, c.Payment.EnforceAmount)
	assert.Equal(t, 3*time.Minute, c.Agent.HTTPTimeout)
}

func TestSignalBudget(t *testing.T) {
	c, err := Parse([]byte(minimal))
	require.NoError(t, err)
	// 30s confirm + 15s market + 10s news + 2x5s classifier
	assert.Equal(t, 65*time.Second, c.SignalBudget())

	c.Oracle.Provider = "openai"
	// plus 3x30s oracle attempts and 0.8s + 1.6s backoff
	assert.Equal(t, 157400*time.Millisecond, c.SignalBudget())
	assert.Less(t, c.SignalBudget(), c.Agent.HTTPTimeout)
}

func TestParseOverridesDefaults(t *testing.T) {
	c, err := Parse([]byte(minimal + `
engine:
  assets: [ETH-USD]
  default_asset: ETH-USD
  risk_weight: 0.9
agent:
  schedule: "*/15 * * * *"
`))
	require.NoError(t, err)
	assert.Equal(t, []string{"ETH-USD"}, c.Engine.Assets)
	assert.Equal(t, 0.9, c.Engine.RiskWeight)
	assert.Equal(t, "*/15 * * * *", c.Agent.Schedule)
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]string{
		"missing payee":           ``,
		"bad price":               minimal + "  price: \"-1\"\n",
		"default not in assets":   minimal + "engine:\n  default_asset: XRP-USD\n",
		"risk out of range":       minimal + "engine:\n  risk_weight: 1.5\n",
		"unknown oracle":          minimal + "oracle:\n  provider: claude\n",
		"kafka without brokers":   minimal + "sink:\n  backend: kafka\n",
		"unknown audit backend":   minimal + "audit:\n  backend: mongo\n",
		"agent timeout too short": minimal + "agent:\n  http_timeout: 45s\n",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoadWithEnvOverridesBeforeValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600))

	t.Setenv("PAYEE_ADDRESS", "0x00000000000000000000000000000000000000bb")
	t.Setenv("AGENT_PRIVATE_KEY", "abc")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	c, err := LoadWithEnv(path)
	require.NoError(t, err)
	assert.Equal(t, "0x00000000000000000000000000000000000000bb", c.Payment.PayeeAddress)
	assert.Equal(t, "abc", c.Agent.PrivateKey)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, c.Sink.Kafka.Brokers)
	assert.Equal(t, "debug", c.Log.Level)
}
