package oracle

import (
	"context"
	"fmt"
	"time"

	"X402/internal/domain/models"
	dservice "X402/internal/domain/service"
	applogger "X402/pkg/logger"
)

const (
	ProviderNone   = "none"
	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

// Completer sends one prompt to a language model and returns its text reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Config describes the model endpoint.
type Config struct {
	Provider   string
	BaseURL    string
	APIKey     string
	Model      string
	Timeout    time.Duration
	MaxRetries int
}

// LLMOracle asks a language model to arbitrate a decision snapshot.
type LLMOracle struct {
	completer Completer
	log       *applogger.Logger
}

var _ dservice.Oracle = (*LLMOracle)(nil)

func NewLLMOracle(c Completer, l *applogger.Logger) *LLMOracle {
	return &LLMOracle{completer: c, log: l.With("oracle")}
}

func (o *LLMOracle) Advise(ctx context.Context, snap models.DecisionSnapshot) (models.Verdict, error) {
	text, err := o.completer.Complete(ctx, systemPrompt, BuildPrompt(snap))
	if err != nil {
		return models.Verdict{}, fmt.Errorf("%w: %v", models.ErrOracleUnavailable, err)
	}
	v, err := ParseVerdict(text)
	if err != nil {
		o.log.Debug("unusable oracle reply", applogger.String("reply", text))
		return models.Verdict{}, fmt.Errorf("%w: %v", models.ErrOracleUnavailable, err)
	}
	return v, nil
}

// Offline is the oracle used when no provider is configured.
type Offline struct{}

func (Offline) Advise(context.Context, models.DecisionSnapshot) (models.Verdict, error) {
	return models.Verdict{}, models.ErrOracleUnavailable
}

// New picks the oracle for cfg.Provider.
func New(cfg Config, l *applogger.Logger) (dservice.Oracle, error) {
	switch cfg.Provider {
	case "", ProviderNone:
		return Offline{}, nil
	case ProviderOpenAI:
		return NewLLMOracle(NewOpenAIClient(cfg), l), nil
	case ProviderGemini:
		return NewLLMOracle(NewGeminiClient(cfg), l), nil
	default:
		return nil, fmt.Errorf("unknown oracle provider %q", cfg.Provider)
	}
}
